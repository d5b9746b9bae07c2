package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Spok95/volunteer-slots/internal/models"
)

func TestColumName(t *testing.T) {
	assert.Equal(t, "A", columName(1))
	assert.Equal(t, "Z", columName(26))
	assert.Equal(t, "AA", columName(27))
	assert.Equal(t, "AZ", columName(52))
}

func TestRosterFilename(t *testing.T) {
	assert.Equal(t, "Iscritti — Marco Rossi — 2030-05-06.xlsx", RosterFilename(" Marco  Rossi ", "2030-05-06"))
	assert.Equal(t, "Iscritti — a_b — —.xlsx", RosterFilename("a/b", ""))
}

func TestRosterWorkbook(t *testing.T) {
	day := models.Date{Year: 2030, Month: time.May, Day: 6}
	known := models.RosterEntry{
		Booking:   models.Booking{ID: 1, CreatedAt: time.Date(2030, 5, 1, 10, 30, 0, 0, time.UTC)},
		Slot:      models.Slot{Day: day, StartTime: models.NewClock(9, 0), EndTime: models.NewClock(9, 30)},
		Volunteer: models.Profile{UserID: uuid.New(), FullName: "Giulia Verdi", Phone: "+39 333 000"},
		Known:     true,
	}
	ghost := models.RosterEntry{
		Booking:   models.Booking{ID: 2, CreatedAt: time.Date(2030, 5, 2, 8, 0, 0, 0, time.UTC)},
		Slot:      models.Slot{Day: day, StartTime: models.NewClock(9, 30), EndTime: models.NewClock(10, 0)},
		Volunteer: models.Profile{UserID: uuid.New()},
	}

	wb, err := NewWorkbook([]SheetSpec{RosterSheet([]models.RosterEntry{known, ghost}, time.UTC)})
	require.NoError(t, err)
	defer func() { _ = wb.Close() }()

	var buf bytes.Buffer
	_, err = wb.WriteTo(&buf)
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Iscritti")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Giorno", "Inizio", "Fine", "Volontario", "Telefono", "Prenotato il"}, rows[0])
	assert.Equal(t, []string{"2030-05-06", "09:00", "09:30", "Giulia Verdi", "+39 333 000", "2030-05-01 10:30"}, rows[1])
	assert.Equal(t, unknownVolunteer, rows[2][3])
}

func TestProgressWorkbook_TwoSheets(t *testing.T) {
	v1 := models.Profile{UserID: uuid.New(), FullName: "Giulia Verdi"}
	v2 := models.Profile{UserID: uuid.New(), FullName: "Paolo Neri"}
	items := []models.TrainingItem{{ID: 1, Label: "Accoglienza"}, {ID: 2, Label: "Sicurezza"}}
	checked := map[models.ProgressKey]bool{
		{VolunteerID: v1.UserID, ItemID: 2}: true,
		{VolunteerID: v2.UserID, ItemID: 1}: true,
	}

	wb, err := NewWorkbook([]SheetSpec{
		RosterSheet(nil, time.UTC),
		ProgressSheet(items, []models.Profile{v1, v2}, checked),
	})
	require.NoError(t, err)
	defer func() { _ = wb.Close() }()

	assert.Equal(t, []string{"Iscritti", "Formazione"}, wb.File.GetSheetList())
	rows, err := wb.File.GetRows("Formazione")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Volontario", "Accoglienza", "Sicurezza"}, rows[0])
	assert.Equal(t, []string{"Giulia Verdi", "", "✓"}, rows[1])
	assert.Equal(t, []string{"Paolo Neri", "✓"}, rows[2])
}

func TestNewWorkbook_Empty(t *testing.T) {
	_, err := NewWorkbook(nil)
	assert.Error(t, err)
}
