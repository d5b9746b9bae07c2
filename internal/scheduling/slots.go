package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Spok95/volunteer-slots/internal/apperr"
	"github.com/Spok95/volunteer-slots/internal/metrics"
	"github.com/Spok95/volunteer-slots/internal/models"
)

// TileSlots — режет [start, end) на подряд идущие слоты длиной ровно dur.
// Хвост короче dur отбрасывается.
func TileSlots(instructorID uuid.UUID, day models.Date, start, end models.Clock, dur time.Duration) []models.Slot {
	if dur <= 0 || end <= start {
		return nil
	}
	var out []models.Slot
	for t := start; t.Add(dur) <= end; t = t.Add(dur) {
		out = append(out, models.Slot{
			InstructorID: instructorID,
			Day:          day,
			StartTime:    t,
			EndTime:      t.Add(dur),
			Status:       models.SlotOpen,
		})
	}
	return out
}

// GenerateSlots — пачка слотов инструктора на день. Возвращает число созданных.
func (s *Service) GenerateSlots(ctx context.Context, req Request, instructorID uuid.UUID, day models.Date, start, end models.Clock, durationMinutes int) (int, error) {
	const op = "GenerateSlots"
	if err := RequireOwnerOrAdmin(req, instructorID, op); err != nil {
		return 0, err
	}
	if day.IsZero() {
		return 0, apperr.Validation(op, "day is required")
	}
	if end <= start {
		return 0, apperr.Validation(op, "end %s must be after start %s", end, start)
	}
	if durationMinutes <= 0 {
		return 0, apperr.Validation(op, "duration must be positive, got %d", durationMinutes)
	}
	if instructorID != req.UserID {
		owner, ok := s.lookupProfiles(ctx, []uuid.UUID{instructorID})[instructorID]
		if !ok {
			return 0, apperr.NotFound(op, "instructor %s not found", instructorID)
		}
		if !owner.Role.IsStaff() {
			return 0, apperr.Validation(op, "%s is not an instructor", instructorID)
		}
	}

	slots := TileSlots(instructorID, day, start, end, time.Duration(durationMinutes)*time.Minute)
	if len(slots) == 0 {
		return 0, apperr.Validation(op, "no slot of %d minutes fits in %s-%s", durationMinutes, start, end)
	}
	// пересечение с уже созданными слотами дня отклоняет всю пачку (ErrValidation из хранилища)
	n, err := s.store.InsertSlots(ctx, slots)
	if err != nil {
		return 0, apperr.Persistence(op, err)
	}
	metrics.SlotsGenerated.Add(float64(n))
	s.log.Info("slots generated",
		zap.Stringer("instructor_id", instructorID),
		zap.Stringer("day", day),
		zap.Int("created", n),
		zap.Int("requested", len(slots)),
	)
	return n, nil
}

// SetSlotStatus — открыть/закрыть слот. Закрытый сразу пропадает из витрины.
func (s *Service) SetSlotStatus(ctx context.Context, req Request, slotID int64, status models.SlotStatus) error {
	const op = "SetSlotStatus"
	if err := RequireStaff(req, op); err != nil {
		return err
	}
	if !status.Valid() {
		return apperr.Validation(op, "unknown status %q", status)
	}
	slot, err := s.store.GetSlot(ctx, slotID)
	if err != nil {
		return apperr.Persistence(op, err)
	}
	if err := RequireOwnerOrAdmin(req, slot.InstructorID, op); err != nil {
		return err
	}
	if slot.Status == status {
		return nil
	}
	if err := s.store.UpdateSlotStatus(ctx, slotID, status); err != nil {
		return apperr.Persistence(op, err)
	}
	s.log.Info("slot status changed", zap.Int64("slot_id", slotID), zap.String("status", string(status)))
	return nil
}

// DeleteSlot — жёсткое удаление. Подтверждённая бронь на слот не каскадится,
// а остаётся в истории без слота.
func (s *Service) DeleteSlot(ctx context.Context, req Request, slotID int64) error {
	const op = "DeleteSlot"
	if err := RequireStaff(req, op); err != nil {
		return err
	}
	slot, err := s.store.GetSlot(ctx, slotID)
	if err != nil {
		return apperr.Persistence(op, err)
	}
	if err := RequireOwnerOrAdmin(req, slot.InstructorID, op); err != nil {
		return err
	}
	if err := s.store.DeleteSlot(ctx, slotID); err != nil {
		return apperr.Persistence(op, err)
	}
	s.log.Info("slot deleted", zap.Int64("slot_id", slotID), zap.Stringer("by", req.UserID))
	return nil
}

// ListMySlots — экран инструктора: все его слоты на день, любой статус.
func (s *Service) ListMySlots(ctx context.Context, req Request, instructorID uuid.UUID, day models.Date) ([]models.Slot, error) {
	const op = "ListMySlots"
	if err := RequireOwnerOrAdmin(req, instructorID, op); err != nil {
		return nil, err
	}
	out, err := s.store.ListSlotsByInstructorDay(ctx, instructorID, day)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	return out, nil
}
