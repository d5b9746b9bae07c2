package export

import (
	"time"

	"github.com/google/uuid"

	"github.com/Spok95/volunteer-slots/internal/models"
)

const unknownVolunteer = "(profilo mancante)"

// RosterSheet — список записавшихся: по строке на подтверждённую бронь.
func RosterSheet(entries []models.RosterEntry, loc *time.Location) SheetSpec {
	if loc == nil {
		loc = time.Local
	}
	s := SheetSpec{
		Title:  "Iscritti",
		Header: []string{"Giorno", "Inizio", "Fine", "Volontario", "Telefono", "Prenotato il"},
	}
	for _, e := range entries {
		name := e.Volunteer.DisplayName(unknownVolunteer)
		if !e.Known {
			name = unknownVolunteer
		}
		s.Rows = append(s.Rows, []string{
			e.Slot.Day.String(),
			e.Slot.StartTime.String(),
			e.Slot.EndTime.String(),
			name,
			e.Volunteer.Phone,
			e.Booking.CreatedAt.In(loc).Format("2006-01-02 15:04"),
		})
	}
	return s
}

// ProgressSheet — матрица чек-листа: волонтёры по строкам, пункты по столбцам.
func ProgressSheet(items []models.TrainingItem, volunteers []models.Profile, checked map[models.ProgressKey]bool) SheetSpec {
	s := SheetSpec{Title: "Formazione", Header: []string{"Volontario"}}
	for _, it := range items {
		s.Header = append(s.Header, it.Label)
	}
	for _, v := range volunteers {
		row := []string{v.DisplayName(v.UserID.String())}
		for _, it := range items {
			row = append(row, mark(checked, v.UserID, it.ID))
		}
		s.Rows = append(s.Rows, row)
	}
	return s
}

func mark(checked map[models.ProgressKey]bool, volunteerID uuid.UUID, itemID int64) string {
	if checked[models.ProgressKey{VolunteerID: volunteerID, ItemID: itemID}] {
		return "✓"
	}
	return ""
}
