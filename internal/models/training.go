package models

import (
	"time"

	"github.com/google/uuid"
)

type TrainingItem struct {
	ID    int64  `json:"id" yaml:"-"`
	Label string `json:"label" yaml:"label"`
	Sort  int    `json:"sort" yaml:"sort"`
}

// TrainingProgress — отметка пункта чек-листа для волонтёра; ключ (VolunteerID, ItemID).
type TrainingProgress struct {
	VolunteerID uuid.UUID `json:"volunteer_id"`
	ItemID      int64     `json:"item_id"`
	Checked     bool      `json:"checked"`
	UpdatedBy   uuid.UUID `json:"updated_by"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProgressKey — ключ карты прогресса.
type ProgressKey struct {
	VolunteerID uuid.UUID
	ItemID      int64
}
