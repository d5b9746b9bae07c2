package scheduling

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Spok95/volunteer-slots/internal/apperr"
	"github.com/Spok95/volunteer-slots/internal/models"
)

// UnknownInstructor — подпись, если профиля инструктора нет.
const UnknownInstructor = "Istruttore"

// SlotGroup — свободные слоты одного инструктора за один день.
type SlotGroup struct {
	InstructorID   uuid.UUID          `json:"instructor_id"`
	InstructorName string             `json:"instructor_name"`
	Day            models.Date        `json:"day"`
	Count          int                `json:"count"`
	Ranges         []models.TimeRange `json:"ranges"`
	Slots          []models.Slot      `json:"slots"`
}

// ListOpenFutureSlots — OPEN и start >= asOf, по (day, start_time).
func (s *Service) ListOpenFutureSlots(ctx context.Context, asOf time.Time) ([]models.Slot, error) {
	out, err := s.store.ListOpenSlotsFrom(ctx, s.asOf(asOf))
	if err != nil {
		return nil, apperr.Persistence("ListOpenFutureSlots", err)
	}
	return out, nil
}

// ListFreeSlots — открытые будущие слоты без подтверждённой брони.
// Чтение без блокировок: устаревший "свободный" слот допустим, бронь на него
// всё равно получит ConflictError.
func (s *Service) ListFreeSlots(ctx context.Context, asOf time.Time) ([]models.Slot, error) {
	open, err := s.ListOpenFutureSlots(ctx, asOf)
	if err != nil || len(open) == 0 {
		return nil, err
	}
	ids := make([]int64, 0, len(open))
	for _, sl := range open {
		ids = append(ids, sl.ID)
	}
	booked, err := s.store.ConfirmedSlotIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Persistence("ListFreeSlots", err)
	}
	free := open[:0]
	for _, sl := range open {
		if _, taken := booked[sl.ID]; !taken {
			free = append(free, sl)
		}
	}
	return free, nil
}

// GroupFreeSlots — витрина: свободные слоты по инструктору и дню.
func (s *Service) GroupFreeSlots(ctx context.Context, asOf time.Time) ([]SlotGroup, error) {
	free, err := s.ListFreeSlots(ctx, asOf)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(free))
	for _, sl := range free {
		ids = append(ids, sl.InstructorID)
	}
	return GroupByInstructorAndDay(free, s.lookupProfiles(ctx, uniqueIDs(ids))), nil
}

// MergeRanges склеивает интервалы для показа. Следующий интервал вливается в
// текущий, если начинается не позже его конца (стык без зазора тоже склеивается).
// Интервалы разных дней не склеиваются. Слоты не меняются.
func MergeRanges(slots []models.Slot) []models.TimeRange {
	if len(slots) == 0 {
		return nil
	}
	sorted := make([]models.Slot, len(slots))
	copy(sorted, slots)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })

	out := make([]models.TimeRange, 0, len(sorted))
	for _, sl := range sorted {
		if n := len(out); n > 0 {
			last := &out[n-1]
			if last.Day == sl.Day && sl.StartTime <= last.End {
				if sl.EndTime > last.End {
					last.End = sl.EndTime
				}
				continue
			}
		}
		out = append(out, models.TimeRange{Day: sl.Day, Start: sl.StartTime, End: sl.EndTime})
	}
	return out
}

// GroupByInstructorAndDay — группы в порядке первого появления по (day, start_time).
// Ключ группы — id инструктора, имя берётся из names с запасным UnknownInstructor.
func GroupByInstructorAndDay(slots []models.Slot, names map[uuid.UUID]models.Profile) []SlotGroup {
	sorted := make([]models.Slot, len(slots))
	copy(sorted, slots)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })

	type key struct {
		instructor uuid.UUID
		day        models.Date
	}
	index := make(map[key]int)
	var groups []SlotGroup
	for _, sl := range sorted {
		k := key{sl.InstructorID, sl.Day}
		i, ok := index[k]
		if !ok {
			name := UnknownInstructor
			if p, found := names[sl.InstructorID]; found {
				name = p.DisplayName(UnknownInstructor)
			}
			groups = append(groups, SlotGroup{InstructorID: sl.InstructorID, InstructorName: name, Day: sl.Day})
			i = len(groups) - 1
			index[k] = i
		}
		groups[i].Slots = append(groups[i].Slots, sl)
	}
	for i := range groups {
		groups[i].Count = len(groups[i].Slots)
		groups[i].Ranges = MergeRanges(groups[i].Slots)
	}
	return groups
}
