//go:build testutil
// +build testutil

package db_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/volunteer-slots/internal/apperr"
	"github.com/Spok95/volunteer-slots/internal/db"
	"github.com/Spok95/volunteer-slots/internal/models"
	"github.com/Spok95/volunteer-slots/internal/scheduling"
	"github.com/Spok95/volunteer-slots/internal/testutil/testdb"
)

var (
	day  = models.Date{Year: 2030, Month: time.May, Day: 6}
	asOf = time.Date(2030, time.May, 1, 12, 0, 0, 0, time.UTC)
)

func startStore(t *testing.T) (*db.Store, func()) {
	t.Helper()
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return db.NewStore(h.DB, nil), h.Close
}

func mustProfile(t *testing.T, st *db.Store, name string, role models.Role) models.Profile {
	t.Helper()
	p := models.Profile{UserID: uuid.New(), FullName: name, Role: role}
	require.NoError(t, st.UpsertProfile(context.Background(), p))
	return p
}

func TestStore_SlotsRoundTrip(t *testing.T) {
	st, done := startStore(t)
	defer done()
	ctx := context.Background()
	ins := mustProfile(t, st, "Marco Rossi", models.Instructor)

	slots := scheduling.TileSlots(ins.UserID, day, models.NewClock(9, 0), models.NewClock(11, 0), 30*time.Minute)
	n, err := st.InsertSlots(ctx, slots)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = st.InsertSlots(ctx, slots)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Zero(t, n)

	got, err := st.ListSlotsByInstructorDay(ctx, ins.UserID, day)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, day, got[0].Day)
	assert.Equal(t, "09:00", got[0].StartTime.String())
	assert.Equal(t, "09:30", got[0].EndTime.String())

	require.NoError(t, st.UpdateSlotStatus(ctx, got[0].ID, models.SlotClosed))
	open, err := st.ListOpenSlotsFrom(ctx, asOf)
	require.NoError(t, err)
	assert.Len(t, open, 3)

	// граница включительно
	open, err = st.ListOpenSlotsFrom(ctx, got[1].StartAt(time.UTC))
	require.NoError(t, err)
	assert.Len(t, open, 3)
	open, err = st.ListOpenSlotsFrom(ctx, got[1].StartAt(time.UTC).Add(time.Microsecond))
	require.NoError(t, err)
	assert.Len(t, open, 2)

	byID, err := st.GetSlotsByIDs(ctx, []int64{got[0].ID, got[3].ID, 999999})
	require.NoError(t, err)
	assert.Len(t, byID, 2)

	require.NoError(t, st.DeleteSlot(ctx, got[3].ID))
	_, err = st.GetSlot(ctx, got[3].ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, st.DeleteSlot(ctx, got[3].ID), apperr.ErrNotFound)
}

func TestStore_InsertSlotsOverlap(t *testing.T) {
	st, done := startStore(t)
	defer done()
	ctx := context.Background()
	ins := mustProfile(t, st, "Marco Rossi", models.Instructor)

	_, err := st.InsertSlots(ctx, scheduling.TileSlots(ins.UserID, day, models.NewClock(9, 0), models.NewClock(11, 0), 30*time.Minute))
	require.NoError(t, err)

	for _, batch := range [][]models.Slot{
		scheduling.TileSlots(ins.UserID, day, models.NewClock(9, 0), models.NewClock(12, 0), time.Hour),
		scheduling.TileSlots(ins.UserID, day, models.NewClock(9, 15), models.NewClock(11, 15), 30*time.Minute),
	} {
		n, err := st.InsertSlots(ctx, batch)
		assert.ErrorIs(t, err, apperr.ErrValidation)
		assert.Zero(t, n)
	}
	got, err := st.ListSlotsByInstructorDay(ctx, ins.UserID, day)
	require.NoError(t, err)
	assert.Len(t, got, 4)

	// две пересекающиеся пачки наперегонки: проходит ровно одна
	var (
		wg sync.WaitGroup
		ok atomic.Int32
	)
	for _, from := range []int{13, 13} {
		wg.Add(1)
		go func(h int) {
			defer wg.Done()
			if _, err := st.InsertSlots(ctx, scheduling.TileSlots(ins.UserID, day, models.NewClock(h, 0), models.NewClock(h+1, 0), 20*time.Minute)); err == nil {
				ok.Add(1)
			}
		}(from)
	}
	wg.Wait()
	assert.EqualValues(t, 1, ok.Load())

	got, err = st.ListSlotsByInstructorDay(ctx, ins.UserID, day)
	require.NoError(t, err)
	assert.Len(t, got, 7)
}

func TestStore_OneConfirmedPerSlot(t *testing.T) {
	st, done := startStore(t)
	defer done()
	ctx := context.Background()
	ins := mustProfile(t, st, "Marco Rossi", models.Instructor)
	_, err := st.InsertSlots(ctx, scheduling.TileSlots(ins.UserID, day, models.NewClock(9, 0), models.NewClock(9, 30), 30*time.Minute))
	require.NoError(t, err)
	slots, err := st.ListSlotsByInstructorDay(ctx, ins.UserID, day)
	require.NoError(t, err)
	slotID := slots[0].ID

	const n = 16
	vols := make([]models.Profile, n)
	for i := range vols {
		vols[i] = mustProfile(t, st, fmt.Sprintf("Volontario %02d", i), models.Volunteer)
	}

	// напрямую в хранилище, без мьютекса сервиса: держит только индекс
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok, confl int
	)
	for _, v := range vols {
		wg.Add(1)
		go func(v models.Profile) {
			defer wg.Done()
			_, err := st.InsertBooking(ctx, slotID, v.UserID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, apperr.ErrConflict):
				confl++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(v)
	}
	wg.Wait()
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, confl)

	taken, err := st.ConfirmedSlotIDs(ctx, []int64{slotID})
	require.NoError(t, err)
	assert.Contains(t, taken, slotID)
}

func TestStore_BookingLifecycle(t *testing.T) {
	st, done := startStore(t)
	defer done()
	ctx := context.Background()
	ins := mustProfile(t, st, "Marco Rossi", models.Instructor)
	vol := mustProfile(t, st, "Giulia Verdi", models.Volunteer)
	_, err := st.InsertSlots(ctx, scheduling.TileSlots(ins.UserID, day, models.NewClock(9, 0), models.NewClock(10, 0), 30*time.Minute))
	require.NoError(t, err)
	slots, err := st.ListSlotsByInstructorDay(ctx, ins.UserID, day)
	require.NoError(t, err)

	b, err := st.InsertBooking(ctx, slots[0].ID, vol.UserID)
	require.NoError(t, err)

	roster, err := st.ListConfirmedForInstructor(ctx, ins.UserID, asOf)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, b.ID, roster[0].Booking.ID)
	assert.Equal(t, slots[0].ID, roster[0].Slot.ID)

	changed, err := st.CancelBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = st.CancelBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	// после отмены слот снова свободен
	_, err = st.InsertBooking(ctx, slots[0].ID, vol.UserID)
	require.NoError(t, err)

	cancelled := models.BookingCancelled
	list, err := st.ListBookingsByVolunteer(ctx, vol.UserID, &cancelled)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)

	all, err := st.ListBookingsByVolunteer(ctx, vol.UserID, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = st.GetBooking(ctx, 424242)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestStore_ProfilesAndTraining(t *testing.T) {
	st, done := startStore(t)
	defer done()
	ctx := context.Background()
	ins := mustProfile(t, st, "Marco Rossi", models.Instructor)
	vol := mustProfile(t, st, "Giulia Verdi", models.Volunteer)
	tgID := int64(555)
	vol.TelegramID = &tgID
	vol.Phone = "+39 333"
	require.NoError(t, st.UpsertProfile(ctx, vol))

	got, err := st.ProfileByTelegramID(ctx, tgID)
	require.NoError(t, err)
	assert.Equal(t, vol.UserID, got.UserID)
	assert.Equal(t, "+39 333", got.Phone)

	m, err := st.Profiles(ctx, []uuid.UUID{ins.UserID, vol.UserID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, m, 2)

	vols, err := st.ListVolunteers(ctx, "VERDI")
	require.NoError(t, err)
	require.Len(t, vols, 1)

	_, err = st.UpsertTrainingItems(ctx, []models.TrainingItem{{Label: "Accoglienza", Sort: 10}, {Label: "Sicurezza", Sort: 20}})
	require.NoError(t, err)
	items, err := st.ListTrainingItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)

	_, ok, err := st.GetProgress(ctx, vol.UserID, items[0].ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, st.UpsertProgress(ctx, models.TrainingProgress{VolunteerID: vol.UserID, ItemID: items[0].ID, Checked: true, UpdatedBy: ins.UserID}))
	require.NoError(t, st.UpsertProgress(ctx, models.TrainingProgress{VolunteerID: vol.UserID, ItemID: items[0].ID, Checked: false, UpdatedBy: ins.UserID}))
	p, ok, err := st.GetProgress(ctx, vol.UserID, items[0].ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, p.Checked)
	assert.Equal(t, ins.UserID, p.UpdatedBy)

	rows, err := st.ListProgress(ctx, []uuid.UUID{vol.UserID})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
