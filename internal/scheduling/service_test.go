package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/volunteer-slots/internal/memstore"
	"github.com/Spok95/volunteer-slots/internal/models"
)

var (
	testDay  = models.Date{Year: 2030, Month: time.May, Day: 6}
	testAsOf = time.Date(2030, time.May, 1, 12, 0, 0, 0, time.UTC)
)

type fixture struct {
	ctx   context.Context
	store *memstore.Store
	svc   *Service

	admin, instructor, other, volunteer models.Profile
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := memstore.New().WithClock(func() time.Time { return testAsOf })
	f := &fixture{
		ctx:        ctx,
		store:      st,
		svc:        NewService(st, nil, WithLocation(time.UTC)),
		admin:      models.Profile{UserID: uuid.New(), FullName: "Anna Admin", Role: models.Admin},
		instructor: models.Profile{UserID: uuid.New(), FullName: "Marco Rossi", Role: models.Instructor},
		other:      models.Profile{UserID: uuid.New(), FullName: "Luca Bianchi", Role: models.Instructor},
		volunteer:  models.Profile{UserID: uuid.New(), FullName: "Giulia Verdi", Phone: "+39 333 000", Role: models.Volunteer},
	}
	for _, p := range []models.Profile{f.admin, f.instructor, f.other, f.volunteer} {
		require.NoError(t, st.UpsertProfile(ctx, p))
	}
	return f
}

func (f *fixture) as(p models.Profile) Request {
	return Request{UserID: p.UserID, Role: p.Role, AsOf: testAsOf}
}

func (f *fixture) addVolunteer(t *testing.T, name string) models.Profile {
	t.Helper()
	p := models.Profile{UserID: uuid.New(), FullName: name, Role: models.Volunteer}
	require.NoError(t, f.store.UpsertProfile(f.ctx, p))
	return p
}

// generate — слоты инструктора на testDay, возвращает их в порядке времени.
func (f *fixture) generate(t *testing.T, owner models.Profile, from, to string, minutes int) []models.Slot {
	t.Helper()
	start, err := models.ParseClock(from)
	require.NoError(t, err)
	end, err := models.ParseClock(to)
	require.NoError(t, err)
	_, err = f.svc.GenerateSlots(f.ctx, f.as(owner), owner.UserID, testDay, start, end, minutes)
	require.NoError(t, err)
	slots, err := f.svc.ListMySlots(f.ctx, f.as(owner), owner.UserID, testDay)
	require.NoError(t, err)
	return slots
}

func clock(t *testing.T, s string) models.Clock {
	t.Helper()
	c, err := models.ParseClock(s)
	require.NoError(t, err)
	return c
}
