package models

import (
	"time"

	"github.com/google/uuid"
)

type SlotStatus string

const (
	SlotOpen   SlotStatus = "OPEN"
	SlotClosed SlotStatus = "CLOSED"
)

func (s SlotStatus) Valid() bool { return s == SlotOpen || s == SlotClosed }

// Slot — интервал, который инструктор открыл для записи.
type Slot struct {
	ID           int64      `json:"id"`
	InstructorID uuid.UUID  `json:"instructor_id"`
	Day          Date       `json:"day"`
	StartTime    Clock      `json:"start_time"`
	EndTime      Clock      `json:"end_time"`
	Status       SlotStatus `json:"status"`
}

// StartAt — начало слота в зоне loc.
func (s Slot) StartAt(loc *time.Location) time.Time { return At(s.Day, s.StartTime, loc) }

func (s Slot) EndAt(loc *time.Location) time.Time { return At(s.Day, s.EndTime, loc) }

// IsFuture — начало слота не раньше asOf (граница включительно).
func (s Slot) IsFuture(asOf time.Time) bool {
	return !s.StartAt(asOf.Location()).Before(asOf)
}

// Less — порядок (day, start_time).
func (s Slot) Less(o Slot) bool {
	if c := s.Day.Compare(o.Day); c != 0 {
		return c < 0
	}
	if s.StartTime != o.StartTime {
		return s.StartTime < o.StartTime
	}
	return s.ID < o.ID
}

// TimeRange — объединённый интервал для отображения.
type TimeRange struct {
	Day   Date  `json:"day"`
	Start Clock `json:"start"`
	End   Clock `json:"end"`
}
