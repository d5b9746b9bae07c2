package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Spok95/volunteer-slots/internal/apperr"
	"github.com/Spok95/volunteer-slots/internal/models"
)

func (s *Store) ListTrainingItems(ctx context.Context) ([]models.TrainingItem, error) {
	ctx, cancel := dbctx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT id, label, sort FROM training_items ORDER BY sort, id`)
	if err != nil {
		return nil, s.fail("ListTrainingItems", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.TrainingItem
	for rows.Next() {
		var it models.TrainingItem
		if err := rows.Scan(&it.ID, &it.Label, &it.Sort); err != nil {
			return nil, s.fail("ListTrainingItems", err)
		}
		out = append(out, it)
	}
	return out, s.fail("ListTrainingItems", rows.Err())
}

func (s *Store) GetTrainingItem(ctx context.Context, id int64) (models.TrainingItem, error) {
	ctx, cancel := dbctx(ctx)
	defer cancel()

	var it models.TrainingItem
	err := s.db.QueryRowContext(ctx, `SELECT id, label, sort FROM training_items WHERE id = $1`, id).
		Scan(&it.ID, &it.Label, &it.Sort)
	if errors.Is(err, sql.ErrNoRows) {
		return it, apperr.NotFound("GetTrainingItem", "training item %d not found", id)
	}
	if err != nil {
		return it, s.fail("GetTrainingItem", err)
	}
	return it, nil
}

// UpsertTrainingItems — сид справочника; совпадение по label обновляет sort.
func (s *Store) UpsertTrainingItems(ctx context.Context, items []models.TrainingItem) (int, error) {
	const op = "UpsertTrainingItems"
	ctx, cancel := dbctx(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, s.fail(op, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, it := range items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO training_items (label, sort) VALUES ($1, $2)
			ON CONFLICT (label) DO UPDATE SET sort = EXCLUDED.sort
		`, it.Label, it.Sort); err != nil {
			return 0, s.fail(op, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, s.fail(op, err)
	}
	return len(items), nil
}

// GetProgress — ok=false, если строки ещё нет.
func (s *Store) GetProgress(ctx context.Context, volunteerID uuid.UUID, itemID int64) (models.TrainingProgress, bool, error) {
	ctx, cancel := dbctx(ctx)
	defer cancel()

	p := models.TrainingProgress{VolunteerID: volunteerID, ItemID: itemID}
	err := s.db.QueryRowContext(ctx, `
		SELECT checked, updated_by, updated_at
		FROM training_progress
		WHERE volunteer_id = $1 AND item_id = $2
	`, volunteerID, itemID).Scan(&p.Checked, &p.UpdatedBy, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return p, false, nil
	}
	if err != nil {
		return p, false, s.fail("GetProgress", err)
	}
	return p, true, nil
}

// UpsertProgress — одна строка на (volunteer_id, item_id), запись заменяет checked/updated_by.
func (s *Store) UpsertProgress(ctx context.Context, p models.TrainingProgress) error {
	ctx, cancel := dbctx(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO training_progress (volunteer_id, item_id, checked, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (volunteer_id, item_id) DO UPDATE
		SET checked = EXCLUDED.checked, updated_by = EXCLUDED.updated_by, updated_at = now()
	`, p.VolunteerID, p.ItemID, p.Checked, p.UpdatedBy)
	return s.fail("UpsertProgress", err)
}

// ListProgress — все отметки указанных волонтёров.
func (s *Store) ListProgress(ctx context.Context, volunteerIDs []uuid.UUID) ([]models.TrainingProgress, error) {
	if len(volunteerIDs) == 0 {
		return nil, nil
	}
	strs := make([]string, 0, len(volunteerIDs))
	for _, id := range volunteerIDs {
		strs = append(strs, id.String())
	}

	ctx, cancel := dbctx(ctx)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, `
		SELECT volunteer_id, item_id, checked, updated_by, updated_at
		FROM training_progress
		WHERE volunteer_id = ANY($1::uuid[])
	`, pq.StringArray(strs))
	if err != nil {
		return nil, s.fail("ListProgress", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.TrainingProgress
	for rows.Next() {
		var p models.TrainingProgress
		if err := rows.Scan(&p.VolunteerID, &p.ItemID, &p.Checked, &p.UpdatedBy, &p.UpdatedAt); err != nil {
			return nil, s.fail("ListProgress", err)
		}
		out = append(out, p)
	}
	return out, s.fail("ListProgress", rows.Err())
}
