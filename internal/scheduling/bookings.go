package scheduling

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Spok95/volunteer-slots/internal/apperr"
	"github.com/Spok95/volunteer-slots/internal/metrics"
	"github.com/Spok95/volunteer-slots/internal/models"
)

// CreateBooking — запись волонтёра на слот.
//
// Проверка "нет CONFIRMED брони" и вставка идут под мьютексом слота, а в БД их
// дополнительно страхует частичный уникальный индекс. Из N параллельных вызовов
// на один слот успешен ровно один, остальные получают ErrConflict.
func (s *Service) CreateBooking(ctx context.Context, req Request, slotID int64, volunteerID uuid.UUID) (models.Booking, error) {
	const op = "CreateBooking"
	b, err := s.createBooking(ctx, op, req, slotID, volunteerID)
	s.countBooking(err)
	if err != nil {
		if apperr.Expected(err) {
			s.log.Debug("booking rejected",
				zap.Int64("slot_id", slotID),
				zap.Stringer("volunteer_id", volunteerID),
				zap.Error(err),
			)
		}
		return models.Booking{}, err
	}
	s.log.Info("booking confirmed",
		zap.Int64("booking_id", b.ID),
		zap.Int64("slot_id", slotID),
		zap.Stringer("volunteer_id", volunteerID),
	)
	return b, nil
}

func (s *Service) createBooking(ctx context.Context, op string, req Request, slotID int64, volunteerID uuid.UUID) (models.Booking, error) {
	if err := RequireBooker(req, volunteerID, op); err != nil {
		return models.Booking{}, err
	}
	if volunteerID != req.UserID {
		if _, ok := s.lookupProfiles(ctx, []uuid.UUID{volunteerID})[volunteerID]; !ok {
			return models.Booking{}, apperr.NotFound(op, "volunteer %s not found", volunteerID)
		}
	}
	asOf := s.asOf(req.AsOf)

	unlock := s.locks.lock(slotID)
	defer unlock()

	slot, err := s.store.GetSlot(ctx, slotID)
	if err != nil {
		return models.Booking{}, apperr.Persistence(op, err)
	}
	if slot.Status != models.SlotOpen {
		return models.Booking{}, apperr.Validation(op, "slot %d is closed", slotID)
	}
	if !slot.IsFuture(asOf) {
		return models.Booking{}, apperr.Validation(op, "slot %d has already started", slotID)
	}
	booked, err := s.store.ConfirmedSlotIDs(ctx, []int64{slotID})
	if err != nil {
		return models.Booking{}, apperr.Persistence(op, err)
	}
	if _, taken := booked[slotID]; taken {
		return models.Booking{}, apperr.Conflict(op, "slot %d is already booked", slotID)
	}
	b, err := s.store.InsertBooking(ctx, slotID, volunteerID)
	if err != nil {
		return models.Booking{}, apperr.Persistence(op, err)
	}
	return b, nil
}

func (s *Service) countBooking(err error) {
	switch {
	case err == nil:
		metrics.Bookings.WithLabelValues(metrics.OutcomeConfirmed).Inc()
	case errors.Is(err, apperr.ErrConflict):
		metrics.Bookings.WithLabelValues(metrics.OutcomeConflict).Inc()
	case apperr.Expected(err):
		metrics.Bookings.WithLabelValues(metrics.OutcomeRejected).Inc()
	default:
		metrics.Bookings.WithLabelValues(metrics.OutcomeError).Inc()
	}
}

// CancelBooking — CONFIRMED → CANCELLED. Повторная отмена — не ошибка.
// Слот сразу снова попадает в ListFreeSlots.
func (s *Service) CancelBooking(ctx context.Context, req Request, bookingID int64) error {
	const op = "CancelBooking"
	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return apperr.Persistence(op, err)
	}
	if err := RequireBooker(req, b.VolunteerID, op); err != nil {
		return err
	}
	if b.Status == models.BookingCancelled {
		return nil
	}
	changed, err := s.store.CancelBooking(ctx, bookingID)
	if err != nil {
		return apperr.Persistence(op, err)
	}
	if changed {
		metrics.Cancellations.Inc()
		s.log.Info("booking cancelled",
			zap.Int64("booking_id", bookingID),
			zap.Int64("slot_id", b.SlotID),
			zap.Stringer("by", req.UserID),
		)
	}
	return nil
}

// ListMyBookings — брони волонтёра, новые сверху; status == nil — все.
func (s *Service) ListMyBookings(ctx context.Context, req Request, volunteerID uuid.UUID, status *models.BookingStatus) ([]models.Booking, error) {
	const op = "ListMyBookings"
	if err := RequireSelfOrAdmin(req, volunteerID, op); err != nil {
		return nil, err
	}
	if status != nil && !status.Valid() {
		return nil, apperr.Validation(op, "unknown status %q", *status)
	}
	out, err := s.store.ListBookingsByVolunteer(ctx, volunteerID, status)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	return out, nil
}

// ListMyUpcoming — экран "мои записи": подтверждённые брони на будущие слоты
// с именем инструктора. Брони без слота (слот удалён) пропускаются.
func (s *Service) ListMyUpcoming(ctx context.Context, req Request, volunteerID uuid.UUID) ([]models.UpcomingBooking, error) {
	const op = "ListMyUpcoming"
	confirmed := models.BookingConfirmed
	list, err := s.ListMyBookings(ctx, req, volunteerID, &confirmed)
	if err != nil || len(list) == 0 {
		return nil, err
	}

	slotIDs := make([]int64, 0, len(list))
	for _, b := range list {
		slotIDs = append(slotIDs, b.SlotID)
	}
	slots, err := s.store.GetSlotsByIDs(ctx, slotIDs)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}

	asOf := s.asOf(req.AsOf)
	out := make([]models.UpcomingBooking, 0, len(list))
	var instructors []uuid.UUID
	for _, b := range list {
		sl, ok := slots[b.SlotID]
		if !ok || !sl.IsFuture(asOf) {
			continue
		}
		out = append(out, models.UpcomingBooking{Booking: b, Slot: sl})
		instructors = append(instructors, sl.InstructorID)
	}
	names := s.lookupProfiles(ctx, uniqueIDs(instructors))
	for i := range out {
		out[i].InstructorName = UnknownInstructor
		if p, ok := names[out[i].Slot.InstructorID]; ok {
			out[i].InstructorName = p.DisplayName(UnknownInstructor)
		}
	}
	return out, nil
}

// ListRosterForSlotOwner — кто записан на будущие слоты инструктора, с именем и телефоном.
// Волонтёр без профиля остаётся в списке с Known=false.
func (s *Service) ListRosterForSlotOwner(ctx context.Context, req Request, instructorID uuid.UUID) ([]models.RosterEntry, error) {
	const op = "ListRosterForSlotOwner"
	if err := RequireOwnerOrAdmin(req, instructorID, op); err != nil {
		return nil, err
	}
	rows, err := s.store.ListConfirmedForInstructor(ctx, instructorID, s.asOf(req.AsOf))
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.Booking.VolunteerID)
	}
	profiles := s.lookupProfiles(ctx, uniqueIDs(ids))

	out := make([]models.RosterEntry, 0, len(rows))
	for _, r := range rows {
		p, ok := profiles[r.Booking.VolunteerID]
		if !ok {
			p = models.Profile{UserID: r.Booking.VolunteerID, Role: models.Volunteer}
		}
		out = append(out, models.RosterEntry{Booking: r.Booking, Slot: r.Slot, Volunteer: p, Known: ok})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Slot.StartAt(time.UTC), out[j].Slot.StartAt(time.UTC)
		if !a.Equal(b) {
			return a.Before(b)
		}
		return out[i].Booking.CreatedAt.Before(out[j].Booking.CreatedAt)
	})
	return out, nil
}
