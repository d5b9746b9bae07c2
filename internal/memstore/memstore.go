// Package memstore — хранилище в памяти с той же семантикой, что и Postgres:
// одна CONFIRMED бронь на слот, upsert прогресса, сиротские брони после удаления слота.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Spok95/volunteer-slots/internal/apperr"
	"github.com/Spok95/volunteer-slots/internal/models"
)

// dayKey — слоты одного инструктора на один день.
type dayKey struct {
	instructor uuid.UUID
	day        models.Date
}

type Store struct {
	mu sync.RWMutex

	now func() time.Time

	profiles map[uuid.UUID]models.Profile
	slots    map[int64]models.Slot
	byDay    map[dayKey]map[int64]struct{}
	bookings map[int64]models.Booking
	// slot_id → id подтверждённой брони, аналог частичного уникального индекса
	confirmed map[int64]int64
	items     map[int64]models.TrainingItem
	progress  map[models.ProgressKey]models.TrainingProgress

	nextSlot, nextBooking, nextItem int64
}

func New() *Store {
	return &Store{
		now:       time.Now,
		profiles:  make(map[uuid.UUID]models.Profile),
		slots:     make(map[int64]models.Slot),
		byDay:     make(map[dayKey]map[int64]struct{}),
		bookings:  make(map[int64]models.Booking),
		confirmed: make(map[int64]int64),
		items:     make(map[int64]models.TrainingItem),
		progress:  make(map[models.ProgressKey]models.TrainingProgress),
	}
}

// WithClock — подмена часов для created_at в тестах.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Ping(context.Context) error { return nil }

// ── профили ──

func (s *Store) UpsertProfile(_ context.Context, p models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
	return nil
}

func (s *Store) Profiles(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uuid.UUID]models.Profile, len(ids))
	for _, id := range ids {
		if p, ok := s.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (s *Store) ProfileByTelegramID(_ context.Context, telegramID int64) (models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.profiles {
		if p.TelegramID != nil && *p.TelegramID == telegramID {
			return p, nil
		}
	}
	return models.Profile{}, apperr.NotFound("ProfileByTelegramID", "no profile for telegram id %d", telegramID)
}

func (s *Store) ListVolunteers(_ context.Context, filter string) ([]models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f := strings.ToLower(filter)
	var out []models.Profile
	for _, p := range s.profiles {
		if p.Role != models.Volunteer {
			continue
		}
		if f != "" && !strings.Contains(strings.ToLower(p.FullName), f) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FullName != out[j].FullName {
			return out[i].FullName < out[j].FullName
		}
		return out[i].UserID.String() < out[j].UserID.String()
	})
	return out, nil
}

// ── слоты ──

// InsertSlots — всё или ничего: слот, пересекающий существующий слот
// инструктора в тот же день, отклоняет всю пачку.
func (s *Store) InsertSlots(_ context.Context, slots []models.Slot) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sl := range slots {
		for id := range s.byDay[dayKey{sl.InstructorID, sl.Day}] {
			ex := s.slots[id]
			if sl.StartTime < ex.EndTime && ex.StartTime < sl.EndTime {
				return 0, apperr.Validation("InsertSlots", "slot %s-%s overlaps existing slot %s-%s on %s",
					sl.StartTime, sl.EndTime, ex.StartTime, ex.EndTime, sl.Day)
			}
		}
	}
	for _, sl := range slots {
		s.nextSlot++
		sl.ID = s.nextSlot
		s.slots[sl.ID] = sl
		k := dayKey{sl.InstructorID, sl.Day}
		if s.byDay[k] == nil {
			s.byDay[k] = make(map[int64]struct{})
		}
		s.byDay[k][sl.ID] = struct{}{}
	}
	return len(slots), nil
}

func (s *Store) GetSlot(_ context.Context, id int64) (models.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sl, ok := s.slots[id]
	if !ok {
		return models.Slot{}, apperr.NotFound("GetSlot", "slot %d not found", id)
	}
	return sl, nil
}

func (s *Store) GetSlotsByIDs(_ context.Context, ids []int64) (map[int64]models.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]models.Slot, len(ids))
	for _, id := range ids {
		if sl, ok := s.slots[id]; ok {
			out[id] = sl
		}
	}
	return out, nil
}

func (s *Store) UpdateSlotStatus(_ context.Context, id int64, status models.SlotStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[id]
	if !ok {
		return apperr.NotFound("UpdateSlotStatus", "slot %d not found", id)
	}
	sl.Status = status
	s.slots[id] = sl
	return nil
}

func (s *Store) DeleteSlot(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[id]
	if !ok {
		return apperr.NotFound("DeleteSlot", "slot %d not found", id)
	}
	delete(s.slots, id)
	delete(s.byDay[dayKey{sl.InstructorID, sl.Day}], id)
	return nil
}

func (s *Store) ListOpenSlotsFrom(_ context.Context, from time.Time) ([]models.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Slot
	for _, sl := range s.slots {
		if sl.Status == models.SlotOpen && sl.IsFuture(from) {
			out = append(out, sl)
		}
	}
	sortSlots(out)
	return out, nil
}

func (s *Store) ListSlotsByInstructorDay(_ context.Context, instructorID uuid.UUID, day models.Date) ([]models.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Slot
	for _, sl := range s.slots {
		if sl.InstructorID == instructorID && sl.Day == day {
			out = append(out, sl)
		}
	}
	sortSlots(out)
	return out, nil
}

func sortSlots(xs []models.Slot) {
	sort.Slice(xs, func(i, j int) bool { return xs[i].Less(xs[j]) })
}

// ── брони ──

func (s *Store) ConfirmedSlotIDs(_ context.Context, slotIDs []int64) (map[int64]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]struct{})
	for _, id := range slotIDs {
		if _, ok := s.confirmed[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func (s *Store) InsertBooking(_ context.Context, slotID int64, volunteerID uuid.UUID) (models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.confirmed[slotID]; taken {
		return models.Booking{}, apperr.Conflict("InsertBooking", "slot %d is already booked", slotID)
	}
	s.nextBooking++
	b := models.Booking{
		ID:          s.nextBooking,
		SlotID:      slotID,
		VolunteerID: volunteerID,
		Status:      models.BookingConfirmed,
		CreatedAt:   s.now(),
	}
	s.bookings[b.ID] = b
	s.confirmed[slotID] = b.ID
	return b, nil
}

func (s *Store) GetBooking(_ context.Context, id int64) (models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return models.Booking{}, apperr.NotFound("GetBooking", "booking %d not found", id)
	}
	return b, nil
}

func (s *Store) CancelBooking(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok || b.Status != models.BookingConfirmed {
		return false, nil
	}
	b.Status = models.BookingCancelled
	s.bookings[id] = b
	if s.confirmed[b.SlotID] == id {
		delete(s.confirmed, b.SlotID)
	}
	return true, nil
}

func (s *Store) ListBookingsByVolunteer(_ context.Context, volunteerID uuid.UUID, status *models.BookingStatus) ([]models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Booking
	for _, b := range s.bookings {
		if b.VolunteerID != volunteerID {
			continue
		}
		if status != nil && b.Status != *status {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) ListConfirmedForInstructor(_ context.Context, instructorID uuid.UUID, from time.Time) ([]models.BookedSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.BookedSlot
	for slotID, bookingID := range s.confirmed {
		sl, ok := s.slots[slotID]
		if !ok || sl.InstructorID != instructorID || !sl.IsFuture(from) {
			continue
		}
		out = append(out, models.BookedSlot{Booking: s.bookings[bookingID], Slot: sl})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot.Less(out[j].Slot) })
	return out, nil
}

// ── чек-лист ──

func (s *Store) ListTrainingItems(context.Context) ([]models.TrainingItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.TrainingItem, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Sort != out[j].Sort {
			return out[i].Sort < out[j].Sort
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetTrainingItem(_ context.Context, id int64) (models.TrainingItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[id]
	if !ok {
		return it, apperr.NotFound("GetTrainingItem", "training item %d not found", id)
	}
	return it, nil
}

func (s *Store) UpsertTrainingItems(_ context.Context, items []models.TrainingItem) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range items {
		found := false
		for id, cur := range s.items {
			if cur.Label == it.Label {
				cur.Sort = it.Sort
				s.items[id] = cur
				found = true
				break
			}
		}
		if !found {
			s.nextItem++
			it.ID = s.nextItem
			s.items[it.ID] = it
		}
	}
	return len(items), nil
}

func (s *Store) GetProgress(_ context.Context, volunteerID uuid.UUID, itemID int64) (models.TrainingProgress, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.progress[models.ProgressKey{VolunteerID: volunteerID, ItemID: itemID}]
	if !ok {
		return models.TrainingProgress{VolunteerID: volunteerID, ItemID: itemID}, false, nil
	}
	return p, true, nil
}

func (s *Store) UpsertProgress(_ context.Context, p models.TrainingProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.UpdatedAt = s.now()
	s.progress[models.ProgressKey{VolunteerID: p.VolunteerID, ItemID: p.ItemID}] = p
	return nil
}

func (s *Store) ListProgress(_ context.Context, volunteerIDs []uuid.UUID) ([]models.TrainingProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := make(map[uuid.UUID]bool, len(volunteerIDs))
	for _, id := range volunteerIDs {
		want[id] = true
	}
	var out []models.TrainingProgress
	for k, p := range s.progress {
		if want[k.VolunteerID] {
			out = append(out, p)
		}
	}
	return out, nil
}
