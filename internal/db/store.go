package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/Spok95/volunteer-slots/internal/apperr"
	"github.com/Spok95/volunteer-slots/internal/ctxutil"
)

const uniqueViolation = "23505"

// Store — Postgres-реализация хранилища слотов, броней и чек-листа.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

func NewStore(database *sql.DB, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{db: database, log: log}
}

func (s *Store) DB() *sql.DB { return s.db }

// Ping — для /healthz.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// isUniqueViolation — работает и с pgx (прод), и с lib/pq (testcontainers).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	return false
}

func (s *Store) fail(op string, err error) error {
	if err == nil {
		return nil
	}
	s.log.Error("db query failed", zap.String("op", op), zap.Error(err))
	return apperr.Persistence(op, err)
}

func dbctx(ctx context.Context) (context.Context, context.CancelFunc) {
	return ctxutil.WithDBTimeout(ctx)
}

// localTimestamp — параметр для сравнения с day + start_time (timestamp без зоны).
func localTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05.999999")
}
