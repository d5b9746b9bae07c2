package scheduling

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Spok95/volunteer-slots/internal/apperr"
	"github.com/Spok95/volunteer-slots/internal/models"
)

// Чек-лист обучения читают и меняют только инструкторы и админы.

func (s *Service) ListTrainingItems(ctx context.Context, req Request) ([]models.TrainingItem, error) {
	const op = "ListTrainingItems"
	if err := RequireStaff(req, op); err != nil {
		return nil, err
	}
	out, err := s.store.ListTrainingItems(ctx)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	return out, nil
}

// ListVolunteers — волонтёры по full_name; filter — подстрока без учёта регистра.
func (s *Service) ListVolunteers(ctx context.Context, req Request, filter string) ([]models.Profile, error) {
	const op = "ListVolunteers"
	if err := RequireStaff(req, op); err != nil {
		return nil, err
	}
	out, err := s.store.ListVolunteers(ctx, strings.TrimSpace(filter))
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	return out, nil
}

// GetProgress — false, если отметки ещё нет.
func (s *Service) GetProgress(ctx context.Context, req Request, volunteerID uuid.UUID, itemID int64) (bool, error) {
	const op = "GetProgress"
	if err := RequireStaff(req, op); err != nil {
		return false, err
	}
	p, ok, err := s.store.GetProgress(ctx, volunteerID, itemID)
	if err != nil {
		return false, apperr.Persistence(op, err)
	}
	return ok && p.Checked, nil
}

// SetProgress — upsert по (volunteer_id, item_id), updated_by = автор запроса.
// Либо запись целиком, либо ошибка без частичного эффекта; откат своего
// оптимистичного представления — забота вызывающего.
func (s *Service) SetProgress(ctx context.Context, req Request, volunteerID uuid.UUID, itemID int64, checked bool) error {
	const op = "SetProgress"
	if err := RequireStaff(req, op); err != nil {
		return err
	}
	if _, err := s.store.GetTrainingItem(ctx, itemID); err != nil {
		return apperr.Persistence(op, err)
	}
	profiles, err := s.store.Profiles(ctx, []uuid.UUID{volunteerID})
	if err != nil {
		return apperr.Persistence(op, err)
	}
	if p, ok := profiles[volunteerID]; !ok || p.Role != models.Volunteer {
		return apperr.NotFound(op, "volunteer %s not found", volunteerID)
	}
	err = s.store.UpsertProgress(ctx, models.TrainingProgress{
		VolunteerID: volunteerID,
		ItemID:      itemID,
		Checked:     checked,
		UpdatedBy:   req.UserID,
	})
	if err != nil {
		return apperr.Persistence(op, err)
	}
	s.log.Debug("training progress set",
		zap.Stringer("volunteer_id", volunteerID),
		zap.Int64("item_id", itemID),
		zap.Bool("checked", checked),
		zap.Stringer("by", req.UserID),
	)
	return nil
}

// ProgressMatrix — все отметки для экрана чек-листа одним запросом.
// Пустой volunteerIDs — все волонтёры.
func (s *Service) ProgressMatrix(ctx context.Context, req Request, volunteerIDs []uuid.UUID) (map[models.ProgressKey]bool, error) {
	const op = "ProgressMatrix"
	if err := RequireStaff(req, op); err != nil {
		return nil, err
	}
	if len(volunteerIDs) == 0 {
		vols, err := s.store.ListVolunteers(ctx, "")
		if err != nil {
			return nil, apperr.Persistence(op, err)
		}
		for _, v := range vols {
			volunteerIDs = append(volunteerIDs, v.UserID)
		}
	}
	rows, err := s.store.ListProgress(ctx, uniqueIDs(volunteerIDs))
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	out := make(map[models.ProgressKey]bool, len(rows))
	for _, p := range rows {
		out[models.ProgressKey{VolunteerID: p.VolunteerID, ItemID: p.ItemID}] = p.Checked
	}
	return out, nil
}

// SeedTrainingItems — загрузка справочника (CLI, без проверки роли).
func (s *Service) SeedTrainingItems(ctx context.Context, items []models.TrainingItem) (int, error) {
	const op = "SeedTrainingItems"
	if len(items) == 0 {
		return 0, apperr.Validation(op, "no training items")
	}
	n, err := s.store.UpsertTrainingItems(ctx, items)
	if err != nil {
		return 0, apperr.Persistence(op, err)
	}
	s.log.Info("training items seeded", zap.Int("items", n))
	return n, nil
}
