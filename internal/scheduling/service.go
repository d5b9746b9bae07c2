// Package scheduling — ядро записи: слоты инструкторов, брони волонтёров,
// витрина свободного времени и чек-лист обучения.
package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Spok95/volunteer-slots/internal/apperr"
	"github.com/Spok95/volunteer-slots/internal/models"
)

// ProfileLookup — внешний справочник профилей. Отсутствующий id — не ошибка,
// просто его нет в карте.
type ProfileLookup interface {
	Profiles(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Profile, error)
}

type SlotStore interface {
	InsertSlots(ctx context.Context, slots []models.Slot) (int, error)
	GetSlot(ctx context.Context, id int64) (models.Slot, error)
	GetSlotsByIDs(ctx context.Context, ids []int64) (map[int64]models.Slot, error)
	UpdateSlotStatus(ctx context.Context, id int64, status models.SlotStatus) error
	DeleteSlot(ctx context.Context, id int64) error
	ListOpenSlotsFrom(ctx context.Context, from time.Time) ([]models.Slot, error)
	ListSlotsByInstructorDay(ctx context.Context, instructorID uuid.UUID, day models.Date) ([]models.Slot, error)
}

type BookingStore interface {
	ConfirmedSlotIDs(ctx context.Context, slotIDs []int64) (map[int64]struct{}, error)
	// InsertBooking обязан вернуть apperr.ErrConflict, если на слот уже есть CONFIRMED.
	InsertBooking(ctx context.Context, slotID int64, volunteerID uuid.UUID) (models.Booking, error)
	GetBooking(ctx context.Context, id int64) (models.Booking, error)
	CancelBooking(ctx context.Context, id int64) (bool, error)
	ListBookingsByVolunteer(ctx context.Context, volunteerID uuid.UUID, status *models.BookingStatus) ([]models.Booking, error)
	ListConfirmedForInstructor(ctx context.Context, instructorID uuid.UUID, from time.Time) ([]models.BookedSlot, error)
}

type TrainingStore interface {
	ListTrainingItems(ctx context.Context) ([]models.TrainingItem, error)
	GetTrainingItem(ctx context.Context, id int64) (models.TrainingItem, error)
	UpsertTrainingItems(ctx context.Context, items []models.TrainingItem) (int, error)
	ListVolunteers(ctx context.Context, filter string) ([]models.Profile, error)
	GetProgress(ctx context.Context, volunteerID uuid.UUID, itemID int64) (models.TrainingProgress, bool, error)
	UpsertProgress(ctx context.Context, p models.TrainingProgress) error
	ListProgress(ctx context.Context, volunteerIDs []uuid.UUID) ([]models.TrainingProgress, error)
}

// Store — всё, что нужно сервису от хранилища (db.Store, memstore.Store).
type Store interface {
	ProfileLookup
	SlotStore
	BookingStore
	TrainingStore
}

// Request — явный контекст вызова: кто спрашивает, с какой ролью и на какой момент.
// Глобального "текущего пользователя" в ядре нет.
type Request struct {
	UserID uuid.UUID
	Role   models.Role
	AsOf   time.Time
}

type Service struct {
	store Store
	log   *zap.Logger
	loc   *time.Location
	locks *slotLocks
}

type Option func(*Service)

// WithLocation — зона, в которой живут day/start_time слотов.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func NewService(store Store, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		store: store,
		log:   log,
		loc:   time.Local,
		locks: newSlotLocks(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Location() *time.Location { return s.loc }

// Resolve — собирает Request по id из внешнего слоя идентификации.
// Пользователь без профиля получает ForbiddenError.
func (s *Service) Resolve(ctx context.Context, userID uuid.UUID, asOf time.Time) (Request, error) {
	const op = "Resolve"
	profiles, err := s.store.Profiles(ctx, []uuid.UUID{userID})
	if err != nil {
		return Request{}, apperr.Persistence(op, err)
	}
	p, ok := profiles[userID]
	if !ok {
		return Request{}, apperr.Forbidden(op, "unknown user %s", userID)
	}
	return Request{UserID: userID, Role: p.Role, AsOf: asOf}, nil
}

// asOf — момент запроса в зоне сервиса.
func (s *Service) asOf(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now()
	}
	return t.In(s.loc)
}

// lookupProfiles — при сбое справочника имена просто не подставляются.
func (s *Service) lookupProfiles(ctx context.Context, ids []uuid.UUID) map[uuid.UUID]models.Profile {
	if len(ids) == 0 {
		return map[uuid.UUID]models.Profile{}
	}
	m, err := s.store.Profiles(ctx, ids)
	if err != nil {
		s.log.Warn("profile lookup failed, using fallback names", zap.Int("ids", len(ids)), zap.Error(err))
		return map[uuid.UUID]models.Profile{}
	}
	return m
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == uuid.Nil {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
