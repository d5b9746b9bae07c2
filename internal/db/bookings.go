package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Spok95/volunteer-slots/internal/apperr"
	"github.com/Spok95/volunteer-slots/internal/models"
)

const bookingCols = `id, slot_id, volunteer_id, status, created_at`

func scanBooking(r rowScanner) (models.Booking, error) {
	var (
		b      models.Booking
		status string
	)
	if err := r.Scan(&b.ID, &b.SlotID, &b.VolunteerID, &status, &b.CreatedAt); err != nil {
		return b, err
	}
	b.Status = models.BookingStatus(status)
	if !b.Status.Valid() {
		return b, fmt.Errorf("booking %d: unknown status %q", b.ID, status)
	}
	return b, nil
}

// ConfirmedSlotIDs — какие из слотов уже заняты подтверждённой бронью.
func (s *Store) ConfirmedSlotIDs(ctx context.Context, slotIDs []int64) (map[int64]struct{}, error) {
	out := make(map[int64]struct{})
	if len(slotIDs) == 0 {
		return out, nil
	}
	ctx, cancel := dbctx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT slot_id FROM bookings
		WHERE status = 'CONFIRMED' AND slot_id = ANY($1)
	`, pq.Array(slotIDs))
	if err != nil {
		return nil, s.fail("ConfirmedSlotIDs", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, s.fail("ConfirmedSlotIDs", err)
		}
		out[id] = struct{}{}
	}
	return out, s.fail("ConfirmedSlotIDs", rows.Err())
}

// InsertBooking — новая подтверждённая бронь. Вторую CONFIRMED на тот же слот
// не пропустит частичный уникальный индекс bookings_one_confirmed_per_slot.
func (s *Store) InsertBooking(ctx context.Context, slotID int64, volunteerID uuid.UUID) (models.Booking, error) {
	ctx, cancel := dbctx(ctx)
	defer cancel()

	b := models.Booking{SlotID: slotID, VolunteerID: volunteerID, Status: models.BookingConfirmed}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO bookings (slot_id, volunteer_id, status)
		VALUES ($1, $2, 'CONFIRMED')
		RETURNING id, created_at
	`, slotID, volunteerID).Scan(&b.ID, &b.CreatedAt)
	if isUniqueViolation(err) {
		return models.Booking{}, apperr.Conflict("InsertBooking", "slot %d is already booked", slotID)
	}
	if err != nil {
		return models.Booking{}, s.fail("InsertBooking", err)
	}
	return b, nil
}

func (s *Store) GetBooking(ctx context.Context, id int64) (models.Booking, error) {
	ctx, cancel := dbctx(ctx)
	defer cancel()

	b, err := scanBooking(s.db.QueryRowContext(ctx, `SELECT `+bookingCols+` FROM bookings WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Booking{}, apperr.NotFound("GetBooking", "booking %d not found", id)
	}
	if err != nil {
		return models.Booking{}, s.fail("GetBooking", err)
	}
	return b, nil
}

// CancelBooking — CONFIRMED → CANCELLED. false, если бронь уже была отменена.
func (s *Store) CancelBooking(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := dbctx(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `
		UPDATE bookings
		SET status = 'CANCELLED', cancelled_at = now()
		WHERE id = $1 AND status = 'CONFIRMED'
	`, id)
	if err != nil {
		return false, s.fail("CancelBooking", err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// ListBookingsByVolunteer — новые сверху; status == nil — все статусы.
func (s *Store) ListBookingsByVolunteer(ctx context.Context, volunteerID uuid.UUID, status *models.BookingStatus) ([]models.Booking, error) {
	ctx, cancel := dbctx(ctx)
	defer cancel()

	q := `SELECT ` + bookingCols + ` FROM bookings WHERE volunteer_id = $1`
	args := []any{volunteerID}
	if status != nil {
		q += ` AND status = $2`
		args = append(args, string(*status))
	}
	q += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, s.fail("ListBookingsByVolunteer", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, s.fail("ListBookingsByVolunteer", err)
		}
		out = append(out, b)
	}
	return out, s.fail("ListBookingsByVolunteer", rows.Err())
}

// ListConfirmedForInstructor — подтверждённые брони на будущие слоты инструктора.
func (s *Store) ListConfirmedForInstructor(ctx context.Context, instructorID uuid.UUID, from time.Time) ([]models.BookedSlot, error) {
	ctx, cancel := dbctx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT b.id, b.slot_id, b.volunteer_id, b.status, b.created_at,
		       s.id, s.instructor_id, s.day::text, s.start_time::text, s.end_time::text, s.status
		FROM bookings b
		JOIN slots s ON s.id = b.slot_id
		WHERE s.instructor_id = $1
		  AND b.status = 'CONFIRMED'
		  AND s.day + s.start_time >= $2::timestamp
		ORDER BY s.day, s.start_time, b.created_at
	`, instructorID, localTimestamp(from))
	if err != nil {
		return nil, s.fail("ListConfirmedForInstructor", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.BookedSlot
	for rows.Next() {
		var (
			bs                                   models.BookedSlot
			bStatus, day, start, end, slotStatus string
		)
		if err := rows.Scan(
			&bs.Booking.ID, &bs.Booking.SlotID, &bs.Booking.VolunteerID, &bStatus, &bs.Booking.CreatedAt,
			&bs.Slot.ID, &bs.Slot.InstructorID, &day, &start, &end, &slotStatus,
		); err != nil {
			return nil, s.fail("ListConfirmedForInstructor", err)
		}
		bs.Booking.Status = models.BookingStatus(bStatus)
		if bs.Slot, err = parseSlot(bs.Slot, day, start, end, slotStatus); err != nil {
			return nil, s.fail("ListConfirmedForInstructor", err)
		}
		out = append(out, bs)
	}
	return out, s.fail("ListConfirmedForInstructor", rows.Err())
}
