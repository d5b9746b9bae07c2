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

const profileCols = `user_id, full_name, COALESCE(phone, ''), role, telegram_id`

func scanProfile(r rowScanner) (models.Profile, error) {
	var (
		p    models.Profile
		role string
		tg   sql.NullInt64
	)
	if err := r.Scan(&p.UserID, &p.FullName, &p.Phone, &role, &tg); err != nil {
		return p, err
	}
	var err error
	if p.Role, err = models.ParseRole(role); err != nil {
		return p, err
	}
	if tg.Valid {
		p.TelegramID = &tg.Int64
	}
	return p, nil
}

func collectProfiles(rows *sql.Rows) ([]models.Profile, error) {
	defer func() { _ = rows.Close() }()
	var out []models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Profiles — профили по списку id; неизвестные id в карту не попадают.
func (s *Store) Profiles(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Profile, error) {
	out := make(map[uuid.UUID]models.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	strs := make([]string, 0, len(ids))
	for _, id := range ids {
		strs = append(strs, id.String())
	}

	ctx, cancel := dbctx(ctx)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+profileCols+` FROM profiles WHERE user_id = ANY($1::uuid[])
	`, pq.StringArray(strs))
	if err != nil {
		return nil, s.fail("Profiles", err)
	}
	list, err := collectProfiles(rows)
	if err != nil {
		return nil, s.fail("Profiles", err)
	}
	for _, p := range list {
		out[p.UserID] = p
	}
	return out, nil
}

func (s *Store) ProfileByTelegramID(ctx context.Context, telegramID int64) (models.Profile, error) {
	ctx, cancel := dbctx(ctx)
	defer cancel()

	p, err := scanProfile(s.db.QueryRowContext(ctx, `SELECT `+profileCols+` FROM profiles WHERE telegram_id = $1`, telegramID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, apperr.NotFound("ProfileByTelegramID", "no profile for telegram id %d", telegramID)
	}
	if err != nil {
		return models.Profile{}, s.fail("ProfileByTelegramID", err)
	}
	return p, nil
}

// ListVolunteers — волонтёры по имени; filter — подстрока без учёта регистра.
func (s *Store) ListVolunteers(ctx context.Context, filter string) ([]models.Profile, error) {
	ctx, cancel := dbctx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+profileCols+`
		FROM profiles
		WHERE role = 'volunteer'
		  AND ($1 = '' OR strpos(lower(full_name), lower($1)) > 0)
		ORDER BY full_name, user_id
	`, filter)
	if err != nil {
		return nil, s.fail("ListVolunteers", err)
	}
	out, err := collectProfiles(rows)
	return out, s.fail("ListVolunteers", err)
}

// UpsertProfile — профили ведёт внешний сервис; здесь для сидов и тестов.
func (s *Store) UpsertProfile(ctx context.Context, p models.Profile) error {
	ctx, cancel := dbctx(ctx)
	defer cancel()

	var phone sql.NullString
	if p.Phone != "" {
		phone = sql.NullString{String: p.Phone, Valid: true}
	}
	var tg sql.NullInt64
	if p.TelegramID != nil {
		tg = sql.NullInt64{Int64: *p.TelegramID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, full_name, phone, role, telegram_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET full_name = EXCLUDED.full_name, phone = EXCLUDED.phone,
		    role = EXCLUDED.role, telegram_id = EXCLUDED.telegram_id
	`, p.UserID, p.FullName, phone, string(p.Role), tg)
	return s.fail("UpsertProfile", err)
}
