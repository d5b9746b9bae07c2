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

const slotCols = `id, instructor_id, day::text, start_time::text, end_time::text, status`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlot(r rowScanner) (models.Slot, error) {
	var (
		sl                      models.Slot
		day, start, end, status string
	)
	if err := r.Scan(&sl.ID, &sl.InstructorID, &day, &start, &end, &status); err != nil {
		return sl, err
	}
	return parseSlot(sl, day, start, end, status)
}

func parseSlot(sl models.Slot, day, start, end, status string) (models.Slot, error) {
	var err error
	if sl.Day, err = models.ParseDate(day); err != nil {
		return sl, err
	}
	if sl.StartTime, err = models.ParseClock(start); err != nil {
		return sl, err
	}
	if sl.EndTime, err = models.ParseClock(end); err != nil {
		return sl, err
	}
	sl.Status = models.SlotStatus(status)
	if !sl.Status.Valid() {
		return sl, fmt.Errorf("slot %d: unknown status %q", sl.ID, status)
	}
	return sl, nil
}

func collectSlots(rows *sql.Rows) ([]models.Slot, error) {
	defer func() { _ = rows.Close() }()
	var out []models.Slot
	for rows.Next() {
		sl, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sl)
	}
	return out, rows.Err()
}

// InsertSlots — пачечная вставка слотов в одной транзакции: либо все, либо ни одного.
// Пересечение хотя бы одного слота с уже существующим слотом того же
// инструктора на тот же день — ErrValidation, пачка не пишется.
func (s *Store) InsertSlots(ctx context.Context, slots []models.Slot) (int, error) {
	const op = "InsertSlots"
	if len(slots) == 0 {
		return 0, nil
	}
	ctx, cancel := dbctx(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return 0, s.fail(op, err)
	}
	defer func() { _ = tx.Rollback() }()

	// сериализуем генерацию по (инструктор, день), в том числе между процессами
	locked := make(map[string]bool)
	for _, sl := range slots {
		key := sl.InstructorID.String() + "|" + sl.Day.String()
		if locked[key] {
			continue
		}
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
			return 0, s.fail(op, err)
		}
		locked[key] = true
	}

	check, err := tx.PrepareContext(ctx, `
		SELECT start_time::text, end_time::text
		FROM slots
		WHERE instructor_id = $1 AND day = $2::date
		  AND start_time < $4::time AND end_time > $3::time
		ORDER BY start_time
		LIMIT 1
	`)
	if err != nil {
		return 0, s.fail(op, err)
	}
	defer func() { _ = check.Close() }()

	for _, sl := range slots {
		var from, to string
		err := check.QueryRowContext(ctx, sl.InstructorID, sl.Day.String(), sl.StartTime.SQL(), sl.EndTime.SQL()).Scan(&from, &to)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return 0, s.fail(op, err)
		default:
			return 0, apperr.Validation(op, "slot %s-%s overlaps existing slot %s-%s on %s",
				sl.StartTime, sl.EndTime, trimSeconds(from), trimSeconds(to), sl.Day)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO slots (instructor_id, day, start_time, end_time, status)
		VALUES ($1, $2::date, $3::time, $4::time, $5)
	`)
	if err != nil {
		return 0, s.fail(op, err)
	}
	defer func() { _ = stmt.Close() }()

	for _, sl := range slots {
		if _, err := stmt.ExecContext(ctx, sl.InstructorID, sl.Day.String(), sl.StartTime.SQL(), sl.EndTime.SQL(), string(sl.Status)); err != nil {
			return 0, s.fail(op, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, s.fail(op, err)
	}
	return len(slots), nil
}

// trimSeconds — "09:00:00" → "09:00" для сообщений.
func trimSeconds(t string) string {
	if c, err := models.ParseClock(t); err == nil {
		return c.String()
	}
	return t
}

func (s *Store) GetSlot(ctx context.Context, id int64) (models.Slot, error) {
	ctx, cancel := dbctx(ctx)
	defer cancel()

	sl, err := scanSlot(s.db.QueryRowContext(ctx, `SELECT `+slotCols+` FROM slots WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Slot{}, apperr.NotFound("GetSlot", "slot %d not found", id)
	}
	if err != nil {
		return models.Slot{}, s.fail("GetSlot", err)
	}
	return sl, nil
}

// GetSlotsByIDs — слоты по списку id; отсутствующие просто не попадают в карту.
func (s *Store) GetSlotsByIDs(ctx context.Context, ids []int64) (map[int64]models.Slot, error) {
	out := make(map[int64]models.Slot, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	ctx, cancel := dbctx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT `+slotCols+` FROM slots WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, s.fail("GetSlotsByIDs", err)
	}
	slots, err := collectSlots(rows)
	if err != nil {
		return nil, s.fail("GetSlotsByIDs", err)
	}
	for _, sl := range slots {
		out[sl.ID] = sl
	}
	return out, nil
}

func (s *Store) UpdateSlotStatus(ctx context.Context, id int64, status models.SlotStatus) error {
	ctx, cancel := dbctx(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `
		UPDATE slots SET status = $1, updated_at = now() WHERE id = $2
	`, string(status), id)
	if err != nil {
		return s.fail("UpdateSlotStatus", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("UpdateSlotStatus", "slot %d not found", id)
	}
	return nil
}

// DeleteSlot — жёсткое удаление; брони на слот остаются.
func (s *Store) DeleteSlot(ctx context.Context, id int64) error {
	ctx, cancel := dbctx(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM slots WHERE id = $1`, id)
	if err != nil {
		return s.fail("DeleteSlot", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("DeleteSlot", "slot %d not found", id)
	}
	return nil
}

// ListOpenSlotsFrom — открытые слоты с началом >= from (по настенному времени from).
func (s *Store) ListOpenSlotsFrom(ctx context.Context, from time.Time) ([]models.Slot, error) {
	ctx, cancel := dbctx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+slotCols+`
		FROM slots
		WHERE status = 'OPEN'
		  AND day + start_time >= $1::timestamp
		ORDER BY day, start_time, id
	`, localTimestamp(from))
	if err != nil {
		return nil, s.fail("ListOpenSlotsFrom", err)
	}
	out, err := collectSlots(rows)
	return out, s.fail("ListOpenSlotsFrom", err)
}

// ListSlotsByInstructorDay — все слоты инструктора на день, любой статус.
func (s *Store) ListSlotsByInstructorDay(ctx context.Context, instructorID uuid.UUID, day models.Date) ([]models.Slot, error) {
	ctx, cancel := dbctx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+slotCols+`
		FROM slots
		WHERE instructor_id = $1 AND day = $2::date
		ORDER BY start_time, id
	`, instructorID, day.String())
	if err != nil {
		return nil, s.fail("ListSlotsByInstructorDay", err)
	}
	out, err := collectSlots(rows)
	return out, s.fail("ListSlotsByInstructorDay", err)
}
