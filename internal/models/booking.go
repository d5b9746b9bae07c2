package models

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
)

func (s BookingStatus) Valid() bool { return s == BookingConfirmed || s == BookingCancelled }

// Booking — запись волонтёра на слот. Отмена меняет статус, строка остаётся.
type Booking struct {
	ID          int64         `json:"id"`
	SlotID      int64         `json:"slot_id"`
	VolunteerID uuid.UUID     `json:"volunteer_id"`
	Status      BookingStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
}

// BookedSlot — бронь вместе со слотом, на который она сделана.
type BookedSlot struct {
	Booking Booking `json:"booking"`
	Slot    Slot    `json:"slot"`
}

// RosterEntry — строка списка записавшихся для инструктора.
type RosterEntry struct {
	Booking   Booking `json:"booking"`
	Slot      Slot    `json:"slot"`
	Volunteer Profile `json:"volunteer"`
	Known     bool    `json:"known"`
}

// UpcomingBooking — будущая бронь волонтёра с именем инструктора.
type UpcomingBooking struct {
	Booking        Booking `json:"booking"`
	Slot           Slot    `json:"slot"`
	InstructorName string  `json:"instructor_name"`
}
