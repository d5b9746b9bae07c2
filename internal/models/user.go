package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Role string

const (
	Volunteer  Role = "volunteer"
	Instructor Role = "instructor"
	Admin      Role = "admin"
)

// ParseRole — разбор роли из БД/заголовка; неизвестные значения отклоняются.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case Volunteer, Instructor, Admin:
		return true
	}
	return false
}

// IsStaff — инструкторы и администраторы.
func (r Role) IsStaff() bool {
	return r == Instructor || r == Admin
}

func (r Role) IsAdmin() bool { return r == Admin }

// Label — подпись роли для интерфейсов.
func (r Role) Label() string {
	switch r {
	case Instructor:
		return "Istruttore"
	case Admin:
		return "Admin"
	default:
		return "Volontario"
	}
}

// Profile — профиль пользователя. Таблица profiles принадлежит внешнему сервису,
// ядро её только читает.
type Profile struct {
	UserID     uuid.UUID `json:"user_id"`
	FullName   string    `json:"full_name"`
	Phone      string    `json:"phone,omitempty"`
	Role       Role      `json:"role"`
	TelegramID *int64    `json:"-"`
}

// DisplayName — имя для отображения с запасным вариантом.
func (p Profile) DisplayName(fallback string) string {
	if n := strings.TrimSpace(p.FullName); n != "" {
		return n
	}
	return fallback
}
