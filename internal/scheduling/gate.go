package scheduling

import (
	"github.com/google/uuid"

	"github.com/Spok95/volunteer-slots/internal/apperr"
	"github.com/Spok95/volunteer-slots/internal/models"
)

// Матрица прав:
//
//	операция                        volunteer  instructor   admin
//	GenerateSlots/SetStatus/Delete  -          свои слоты   любые
//	ListRosterForSlotOwner          -          свой         любой
//	CreateBooking/CancelBooking     свои       -            любые
//	чек-лист обучения               -          да           да
//
// Любое нарушение — ErrForbidden, запрос никогда не "понижается" молча.

func RequireStaff(req Request, op string) error {
	if !req.Role.IsStaff() {
		return apperr.Forbidden(op, "role %q cannot do this", req.Role)
	}
	return nil
}

// RequireOwnerOrAdmin — инструктор действует только от своего имени, админ — от любого.
func RequireOwnerOrAdmin(req Request, ownerID uuid.UUID, op string) error {
	if err := RequireStaff(req, op); err != nil {
		return err
	}
	if req.Role.IsAdmin() || req.UserID == ownerID {
		return nil
	}
	return apperr.Forbidden(op, "not the owner")
}

// RequireBooker — бронировать и отменять может сам волонтёр или админ.
func RequireBooker(req Request, volunteerID uuid.UUID, op string) error {
	switch req.Role {
	case models.Admin:
		return nil
	case models.Volunteer:
		if req.UserID == volunteerID {
			return nil
		}
		return apperr.Forbidden(op, "volunteers act only on their own bookings")
	default:
		return apperr.Forbidden(op, "role %q cannot book", req.Role)
	}
}

// RequireSelfOrAdmin — чтение собственных данных.
func RequireSelfOrAdmin(req Request, userID uuid.UUID, op string) error {
	if req.Role.IsAdmin() || req.UserID == userID {
		return nil
	}
	return apperr.Forbidden(op, "not your data")
}
