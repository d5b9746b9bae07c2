package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/volunteer-slots/internal/apperr"
	"github.com/Spok95/volunteer-slots/internal/memstore"
	"github.com/Spok95/volunteer-slots/internal/models"
	"github.com/Spok95/volunteer-slots/internal/scheduling"
)

var apiNow = time.Date(2030, time.May, 1, 12, 0, 0, 0, time.UTC)

type apiFixture struct {
	t       *testing.T
	store   *memstore.Store
	handler http.Handler

	instructor, volunteer models.Profile
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	st := memstore.New().WithClock(func() time.Time { return apiNow })
	f := &apiFixture{
		t:          t,
		store:      st,
		instructor: models.Profile{UserID: uuid.New(), FullName: "Marco Rossi", Role: models.Instructor},
		volunteer:  models.Profile{UserID: uuid.New(), FullName: "Giulia Verdi", Role: models.Volunteer},
	}
	require.NoError(t, st.UpsertProfile(context.Background(), f.instructor))
	require.NoError(t, st.UpsertProfile(context.Background(), f.volunteer))

	api := NewAPI(scheduling.NewService(st, nil, scheduling.WithLocation(time.UTC)), st, nil)
	api.now = func() time.Time { return apiNow }
	f.handler = api.Routes()
	return f
}

func (f *apiFixture) do(method, path string, as *models.Profile, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(f.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if as != nil {
		req.Header.Set(HeaderUserID, as.UserID.String())
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) generate() []models.Slot {
	f.t.Helper()
	rec := f.do(http.MethodPost, "/api/slots/generate", &f.instructor, map[string]any{
		"day": "2030-05-06", "start": "09:00", "end": "11:00", "duration_minutes": 30,
	})
	require.Equal(f.t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp generateResp
	require.NoError(f.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(f.t, 4, resp.Created)

	rec = f.do(http.MethodGet, "/api/slots/free", &f.volunteer, nil)
	require.Equal(f.t, http.StatusOK, rec.Code)
	var slots []models.Slot
	require.NoError(f.t, json.Unmarshal(rec.Body.Bytes(), &slots))
	return slots
}

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apperr.Validation("op", "x"), http.StatusBadRequest},
		{apperr.Forbidden("op", "x"), http.StatusForbidden},
		{apperr.NotFound("op", "x"), http.StatusNotFound},
		{apperr.Conflict("op", "x"), http.StatusConflict},
		{apperr.Persistence("op", errors.New("db down")), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusOf(tc.err), tc.err.Error())
	}
}

func TestAPI_Identity(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(http.MethodGet, "/api/slots/free", nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	stranger := models.Profile{UserID: uuid.New()}
	rec = f.do(http.MethodGet, "/api/slots/free", &stranger, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/slots/free", nil)
	req.Header.Set(HeaderUserID, "not-a-uuid")
	out := httptest.NewRecorder()
	f.handler.ServeHTTP(out, req)
	assert.Equal(t, http.StatusBadRequest, out.Code)
}

func TestAPI_BookingFlow(t *testing.T) {
	f := newAPIFixture(t)
	slots := f.generate()
	require.Len(t, slots, 4)

	rec := f.do(http.MethodPost, "/api/bookings", &f.volunteer, map[string]any{"slot_id": slots[0].ID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var b models.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	assert.Equal(t, models.BookingConfirmed, b.Status)

	second := models.Profile{UserID: uuid.New(), FullName: "Paolo Neri", Role: models.Volunteer}
	require.NoError(t, f.store.UpsertProfile(context.Background(), second))
	rec = f.do(http.MethodPost, "/api/bookings", &second, map[string]any{"slot_id": slots[0].ID})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(http.MethodPost, "/api/bookings", &f.instructor, map[string]any{"slot_id": slots[1].ID})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(http.MethodGet, "/api/slots/free/grouped", &f.volunteer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var groups []scheduling.SlotGroup
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &groups))
	require.Len(t, groups, 1)
	assert.Equal(t, 3, groups[0].Count)
	assert.Equal(t, "Marco Rossi", groups[0].InstructorName)

	rec = f.do(http.MethodGet, "/api/roster", &f.instructor, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var roster []models.RosterEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &roster))
	require.Len(t, roster, 1)
	assert.Equal(t, "Giulia Verdi", roster[0].Volunteer.FullName)

	rec = f.do(http.MethodGet, "/api/roster.xlsx", &f.instructor, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	assert.NotZero(t, rec.Body.Len())

	rec = f.do(http.MethodGet, "/api/bookings/upcoming", &f.volunteer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var up []models.UpcomingBooking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &up))
	require.Len(t, up, 1)
	assert.Equal(t, "Marco Rossi", up[0].InstructorName)

	cancel := fmt.Sprintf("/api/bookings/%d/cancel", b.ID)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPost, cancel, &second, nil).Code)
	assert.Equal(t, http.StatusNoContent, f.do(http.MethodPost, cancel, &f.volunteer, nil).Code)
	assert.Equal(t, http.StatusNoContent, f.do(http.MethodPost, cancel, &f.volunteer, nil).Code)

	rec = f.do(http.MethodGet, "/api/bookings/mine?status=cancelled", &f.volunteer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []models.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mine))
	require.Len(t, mine, 1)

	rec = f.do(http.MethodGet, "/api/bookings/mine?status=pending", &f.volunteer, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_SlotManagement(t *testing.T) {
	f := newAPIFixture(t)
	slots := f.generate()

	rec := f.do(http.MethodPost, "/api/slots/generate", &f.instructor, map[string]any{
		"day": "2030-05-06", "start": "11:00", "end": "10:00", "duration_minutes": 30,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/slots/generate", &f.instructor, map[string]any{
		"day": "2030-05-06", "start": "09:00", "end": "10:00", "duration_minutes": 30, "extra": true,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// пересечение с уже открытым утром
	rec = f.do(http.MethodPost, "/api/slots/generate", &f.instructor, map[string]any{
		"day": "2030-05-06", "start": "09:15", "end": "11:15", "duration_minutes": 30,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "overlaps")

	path := fmt.Sprintf("/api/slots/%d/status", slots[0].ID)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPatch, path, &f.volunteer, map[string]string{"status": "CLOSED"}).Code)
	assert.Equal(t, http.StatusNoContent, f.do(http.MethodPatch, path, &f.instructor, map[string]string{"status": "CLOSED"}).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPatch, "/api/slots/abc/status", &f.instructor, map[string]string{"status": "OPEN"}).Code)

	rec = f.do(http.MethodGet, "/api/slots/mine?day=2030-05-06", &f.instructor, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []models.Slot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mine))
	require.Len(t, mine, 4)
	assert.Equal(t, models.SlotClosed, mine[0].Status)

	del := fmt.Sprintf("/api/slots/%d", slots[1].ID)
	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, del, &f.instructor, nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodDelete, del, &f.instructor, nil).Code)

	rec = f.do(http.MethodGet, "/api/slots/open", &f.volunteer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var open []models.Slot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &open))
	assert.Len(t, open, 2)
}

func TestAPI_Training(t *testing.T) {
	f := newAPIFixture(t)
	_, err := f.store.UpsertTrainingItems(context.Background(), []models.TrainingItem{{Label: "Accoglienza", Sort: 10}})
	require.NoError(t, err)

	rec := f.do(http.MethodGet, "/api/training/items", &f.volunteer, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(http.MethodGet, "/api/training/items", &f.instructor, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var items []models.TrainingItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)

	body := map[string]any{"volunteer_id": f.volunteer.UserID, "item_id": items[0].ID, "checked": true}
	rec = f.do(http.MethodPut, "/api/training/progress", &f.instructor, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(http.MethodPut, "/api/training/progress", &f.instructor, map[string]any{"volunteer_id": f.volunteer.UserID, "item_id": items[0].ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	q := fmt.Sprintf("/api/training/progress?volunteer_id=%s&item_id=%d", f.volunteer.UserID, items[0].ID)
	rec = f.do(http.MethodGet, q, &f.instructor, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cell progressCell
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cell))
	assert.True(t, cell.Checked)

	rec = f.do(http.MethodGet, "/api/training/progress", &f.instructor, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var matrix []progressCell
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &matrix))
	assert.Len(t, matrix, 1)

	rec = f.do(http.MethodGet, "/api/training/volunteers?q=giulia", &f.instructor, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var vols []models.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &vols))
	require.Len(t, vols, 1)
}

func TestAPI_Healthz(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestAPI_RosterFilenameInServiceZone(t *testing.T) {
	st := memstore.New()
	ins := models.Profile{UserID: uuid.New(), FullName: "Marco Rossi", Role: models.Instructor}
	require.NoError(t, st.UpsertProfile(context.Background(), ins))

	// 23:30 UTC 6 мая — уже 7 мая по зоне сервиса
	zone := time.FixedZone("UTC+10", 10*3600)
	api := NewAPI(scheduling.NewService(st, nil, scheduling.WithLocation(zone)), st, nil)
	api.now = func() time.Time { return time.Date(2030, time.May, 6, 23, 30, 0, 0, time.UTC) }

	req := httptest.NewRequest(http.MethodGet, "/api/roster.xlsx", nil)
	req.Header.Set(HeaderUserID, ins.UserID.String())
	rec := httptest.NewRecorder()
	api.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cd := rec.Header().Get("Content-Disposition")
	assert.Contains(t, cd, "2030-05-07")
	assert.NotContains(t, cd, "2030-05-06")
}
