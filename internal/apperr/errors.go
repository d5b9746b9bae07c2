// Package apperr — типизированные ошибки сервиса записи.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Виды ошибок. Проверяются через errors.Is.
var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrForbidden   = errors.New("forbidden")
	ErrPersistence = errors.New("persistence error")
)

type Error struct {
	Kind error
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Msg != "" {
		b.WriteString(e.Msg)
	} else {
		b.WriteString(e.Kind.Error())
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newf(kind error, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func Validation(op, format string, args ...any) error {
	return newf(ErrValidation, op, format, args...)
}

func NotFound(op, format string, args ...any) error {
	return newf(ErrNotFound, op, format, args...)
}

func Conflict(op, format string, args ...any) error {
	return newf(ErrConflict, op, format, args...)
}

func Forbidden(op, format string, args ...any) error {
	return newf(ErrForbidden, op, format, args...)
}

// Persistence заворачивает ошибку хранилища. Уже типизированные ошибки
// возвращаются как есть, nil остаётся nil.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: ErrPersistence, Op: op, Err: err}
}

// KindOf — вид ошибки или nil, если ошибка не из таксономии.
func KindOf(err error) error {
	for _, k := range []error{ErrValidation, ErrNotFound, ErrConflict, ErrForbidden, ErrPersistence} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Expected — ожидаемые исходы, которые показываются пользователю, а не в Sentry.
func Expected(err error) bool {
	k := KindOf(err)
	return k != nil && k != ErrPersistence
}
