package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Spok95/volunteer-slots/internal/apperr"
	"github.com/Spok95/volunteer-slots/internal/ctxutil"
	"github.com/Spok95/volunteer-slots/internal/export"
	"github.com/Spok95/volunteer-slots/internal/logging"
	"github.com/Spok95/volunteer-slots/internal/metrics"
	"github.com/Spok95/volunteer-slots/internal/models"
	"github.com/Spok95/volunteer-slots/internal/observability"
	"github.com/Spok95/volunteer-slots/internal/scheduling"
)

// HeaderUserID — id пользователя, проставленный внешним слоем аутентификации.
const HeaderUserID = "X-User-ID"

type Pinger interface {
	Ping(ctx context.Context) error
}

type API struct {
	svc   *scheduling.Service
	db    Pinger
	log   *zap.Logger
	now   func() time.Time
	valid *validator.Validate
}

func NewAPI(svc *scheduling.Service, db Pinger, log *zap.Logger) *API {
	if log == nil {
		log = zap.NewNop()
	}
	return &API{svc: svc, db: db, log: log, now: time.Now, valid: validator.New()}
}

// handlerFunc — обработчик с уже разрешённым пользователем.
type handlerFunc func(w http.ResponseWriter, r *http.Request, req scheduling.Request) error

func (a *API) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", a.healthz)
	mux.Handle("GET /metrics", metrics.Handler())

	a.route(mux, "POST /api/slots/generate", a.generateSlots)
	a.route(mux, "PATCH /api/slots/{id}/status", a.setSlotStatus)
	a.route(mux, "DELETE /api/slots/{id}", a.deleteSlot)
	a.route(mux, "GET /api/slots/mine", a.mySlots)
	a.route(mux, "GET /api/slots/open", a.openSlots)
	a.route(mux, "GET /api/slots/free", a.freeSlots)
	a.route(mux, "GET /api/slots/free/grouped", a.freeGrouped)

	a.route(mux, "POST /api/bookings", a.createBooking)
	a.route(mux, "POST /api/bookings/{id}/cancel", a.cancelBooking)
	a.route(mux, "GET /api/bookings/mine", a.myBookings)
	a.route(mux, "GET /api/bookings/upcoming", a.upcoming)

	a.route(mux, "GET /api/roster", a.roster)
	a.route(mux, "GET /api/roster.xlsx", a.rosterXLSX)

	a.route(mux, "GET /api/training/items", a.trainingItems)
	a.route(mux, "GET /api/training/volunteers", a.volunteers)
	a.route(mux, "GET /api/training/progress", a.progress)
	a.route(mux, "PUT /api/training/progress", a.setProgress)

	return mux
}

func (a *API) route(mux *http.ServeMux, pattern string, h handlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		defer func() {
			metrics.HTTPRequests.WithLabelValues(pattern, strconv.Itoa(rec.code)).Inc()
		}()

		ctx := ctxutil.WithOp(r.Context(), pattern)
		req, err := a.resolve(ctx, r)
		if err == nil {
			ctx = ctxutil.WithUserID(ctx, req.UserID)
			err = h(rec, r.WithContext(ctx), req)
		}
		if err != nil {
			a.fail(ctx, rec, err)
		}
	})
}

func (a *API) resolve(ctx context.Context, r *http.Request) (scheduling.Request, error) {
	raw := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if raw == "" {
		return scheduling.Request{}, apperr.Forbidden("auth", "missing %s header", HeaderUserID)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return scheduling.Request{}, apperr.Validation("auth", "bad %s header", HeaderUserID)
	}
	return a.svc.Resolve(ctx, id, a.now())
}

// StatusOf — HTTP-код для ошибки из таксономии apperr.
func StatusOf(err error) int {
	switch apperr.KindOf(err) {
	case apperr.ErrValidation:
		return http.StatusBadRequest
	case apperr.ErrForbidden:
		return http.StatusForbidden
	case apperr.ErrNotFound:
		return http.StatusNotFound
	case apperr.ErrConflict:
		return http.StatusConflict
	case apperr.ErrPersistence:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) fail(ctx context.Context, w http.ResponseWriter, err error) {
	code := StatusOf(err)
	if code >= 500 {
		metrics.HandlerErrors.Inc()
		observability.CaptureCtx(ctx, err)
		logging.FromContext(ctx, a.log).Error("request failed", zap.Error(err))
		writeJSON(w, code, errorBody{Error: http.StatusText(code)})
		return
	}
	logging.FromContext(ctx, a.log).Debug("request rejected", zap.Int("code", code), zap.Error(err))
	writeJSON(w, code, errorBody{Error: err.Error()})
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *API) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Validation("decode", "bad json: %v", err)
	}
	if err := a.valid.Struct(dst); err != nil {
		return apperr.Validation("decode", "%v", err)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

// ── параметры ──

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("path", "bad id %q", r.PathValue("id"))
	}
	return id, nil
}

// queryUUID — параметр uuid; пустой — def.
func queryUUID(r *http.Request, name string, def uuid.UUID) (uuid.UUID, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.Validation("query", "bad %s %q", name, raw)
	}
	return id, nil
}

// ── слоты ──

type generateReq struct {
	InstructorID    *uuid.UUID   `json:"instructor_id"`
	Day             models.Date  `json:"day"`
	Start           models.Clock `json:"start"`
	End             models.Clock `json:"end" validate:"required"`
	DurationMinutes int          `json:"duration_minutes" validate:"required"`
}

type generateResp struct {
	Created int `json:"created"`
}

func (a *API) generateSlots(w http.ResponseWriter, r *http.Request, req scheduling.Request) error {
	var body generateReq
	if err := a.decode(r, &body); err != nil {
		return err
	}
	owner := req.UserID
	if body.InstructorID != nil {
		owner = *body.InstructorID
	}
	n, err := a.svc.GenerateSlots(r.Context(), req, owner, body.Day, body.Start, body.End, body.DurationMinutes)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, generateResp{Created: n})
	return nil
}

type statusReq struct {
	Status models.SlotStatus `json:"status" validate:"required"`
}

func (a *API) setSlotStatus(w http.ResponseWriter, r *http.Request, req scheduling.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	var body statusReq
	if err := a.decode(r, &body); err != nil {
		return err
	}
	if err := a.svc.SetSlotStatus(r.Context(), req, id, body.Status); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (a *API) deleteSlot(w http.ResponseWriter, r *http.Request, req scheduling.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	if err := a.svc.DeleteSlot(r.Context(), req, id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (a *API) mySlots(w http.ResponseWriter, r *http.Request, req scheduling.Request) error {
	owner, err := queryUUID(r, "instructor_id", req.UserID)
	if err != nil {
		return err
	}
	day := models.DateOf(req.AsOf.In(a.svc.Location()))
	if raw := r.URL.Query().Get("day"); raw != "" {
		if day, err = models.ParseDate(raw); err != nil {
			return apperr.Validation("query", "%v", err)
		}
	}
	out, err := a.svc.ListMySlots(r.Context(), req, owner, day)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, nonNil(out))
	return nil
}

func (a *API) openSlots(w http.ResponseWriter, r *http.Request, req scheduling.Request) error {
	out, err := a.svc.ListOpenFutureSlots(r.Context(), req.AsOf)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, nonNil(out))
	return nil
}

func (a *API) freeSlots(w http.ResponseWriter, r *http.Request, req scheduling.Request) error {
	out, err := a.svc.ListFreeSlots(r.Context(), req.AsOf)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, nonNil(out))
	return nil
}

func (a *API) freeGrouped(w http.ResponseWriter, r *http.Request, req scheduling.Request) error {
	out, err := a.svc.GroupFreeSlots(r.Context(), req.AsOf)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, nonNil(out))
	return nil
}

// ── брони ──

type bookingReq struct {
	SlotID      int64      `json:"slot_id" validate:"required,gt=0"`
	VolunteerID *uuid.UUID `json:"volunteer_id"`
}

func (a *API) createBooking(w http.ResponseWriter, r *http.Request, req scheduling.Request) error {
	var body bookingReq
	if err := a.decode(r, &body); err != nil {
		return err
	}
	who := req.UserID
	if body.VolunteerID != nil {
		who = *body.VolunteerID
	}
	b, err := a.svc.CreateBooking(r.Context(), req, body.SlotID, who)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, b)
	return nil
}

func (a *API) cancelBooking(w http.ResponseWriter, r *http.Request, req scheduling.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	if err := a.svc.CancelBooking(r.Context(), req, id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (a *API) myBookings(w http.ResponseWriter, r *http.Request, req scheduling.Request) error {
	who, err := queryUUID(r, "volunteer_id", req.UserID)
	if err != nil {
		return err
	}
	var status *models.BookingStatus
	if raw := strings.ToUpper(r.URL.Query().Get("status")); raw != "" {
		st := models.BookingStatus(raw)
		status = &st
	}
	out, err := a.svc.ListMyBookings(r.Context(), req, who, status)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, nonNil(out))
	return nil
}

func (a *API) upcoming(w http.ResponseWriter, r *http.Request, req scheduling.Request) error {
	who, err := queryUUID(r, "volunteer_id", req.UserID)
	if err != nil {
		return err
	}
	out, err := a.svc.ListMyUpcoming(r.Context(), req, who)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, nonNil(out))
	return nil
}

// ── список записавшихся ──

func (a *API) roster(w http.ResponseWriter, r *http.Request, req scheduling.Request) error {
	owner, err := queryUUID(r, "instructor_id", req.UserID)
	if err != nil {
		return err
	}
	out, err := a.svc.ListRosterForSlotOwner(r.Context(), req, owner)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, nonNil(out))
	return nil
}

func (a *API) rosterXLSX(w http.ResponseWriter, r *http.Request, req scheduling.Request) error {
	owner, err := queryUUID(r, "instructor_id", req.UserID)
	if err != nil {
		return err
	}
	entries, err := a.svc.ListRosterForSlotOwner(r.Context(), req, owner)
	if err != nil {
		return err
	}
	wb, err := export.NewWorkbook([]export.SheetSpec{export.RosterSheet(entries, a.svc.Location())})
	if err != nil {
		return apperr.Persistence("roster.xlsx", err)
	}
	defer func() { _ = wb.Close() }()

	name := export.RosterFilename(owner.String(), models.DateOf(req.AsOf.In(a.svc.Location())).String())
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(name)))
	if _, err := wb.WriteTo(w); err != nil {
		a.log.Warn("roster.xlsx write failed", zap.Error(err))
	}
	return nil
}

// ── чек-лист ──

func (a *API) trainingItems(w http.ResponseWriter, r *http.Request, req scheduling.Request) error {
	out, err := a.svc.ListTrainingItems(r.Context(), req)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, nonNil(out))
	return nil
}

func (a *API) volunteers(w http.ResponseWriter, r *http.Request, req scheduling.Request) error {
	out, err := a.svc.ListVolunteers(r.Context(), req, r.URL.Query().Get("q"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, nonNil(out))
	return nil
}

type progressCell struct {
	VolunteerID uuid.UUID `json:"volunteer_id"`
	ItemID      int64     `json:"item_id"`
	Checked     bool      `json:"checked"`
}

// progress — одна отметка (volunteer_id + item_id) или вся матрица.
func (a *API) progress(w http.ResponseWriter, r *http.Request, req scheduling.Request) error {
	vid, err := queryUUID(r, "volunteer_id", uuid.Nil)
	if err != nil {
		return err
	}
	if raw := r.URL.Query().Get("item_id"); raw != "" {
		itemID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || vid == uuid.Nil {
			return apperr.Validation("query", "volunteer_id and numeric item_id are required")
		}
		checked, err := a.svc.GetProgress(r.Context(), req, vid, itemID)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, progressCell{VolunteerID: vid, ItemID: itemID, Checked: checked})
		return nil
	}

	var ids []uuid.UUID
	if vid != uuid.Nil {
		ids = []uuid.UUID{vid}
	}
	m, err := a.svc.ProgressMatrix(r.Context(), req, ids)
	if err != nil {
		return err
	}
	out := make([]progressCell, 0, len(m))
	for k, v := range m {
		out = append(out, progressCell{VolunteerID: k.VolunteerID, ItemID: k.ItemID, Checked: v})
	}
	writeJSON(w, http.StatusOK, out)
	return nil
}

type setProgressReq struct {
	VolunteerID uuid.UUID `json:"volunteer_id" validate:"required"`
	ItemID      int64     `json:"item_id" validate:"required,gt=0"`
	Checked     *bool     `json:"checked" validate:"required"`
}

func (a *API) setProgress(w http.ResponseWriter, r *http.Request, req scheduling.Request) error {
	var body setProgressReq
	if err := a.decode(r, &body); err != nil {
		return err
	}
	if err := a.svc.SetProgress(r.Context(), req, body.VolunteerID, body.ItemID, *body.Checked); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, progressCell{VolunteerID: body.VolunteerID, ItemID: body.ItemID, Checked: *body.Checked})
	return nil
}

// ── служебное ──

func (a *API) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 800*time.Millisecond)
	defer cancel()
	t0 := time.Now()
	if err := a.db.Ping(ctx); err != nil {
		http.Error(w, "db not ok: "+err.Error(), http.StatusServiceUnavailable)
		return
	}
	metrics.ObserveDBPing(time.Since(t0))
	_, _ = w.Write([]byte("ok"))
}

// nonNil — пустой список отдаём как [], а не null.
func nonNil[T any](xs []T) []T {
	if xs == nil {
		return []T{}
	}
	return xs
}

type HTTPServer struct {
	srv  *http.Server
	done chan struct{}
}

// Wait — блокирует до завершения Shutdown.
func (h *HTTPServer) Wait() { <-h.done }

// StartHTTP — слушает addr до отмены ctx, потом аккуратно гасит сервер.
func StartHTTP(ctx context.Context, addr string, h http.Handler, log *zap.Logger) *HTTPServer {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped", zap.Error(err))
			observability.CaptureErr(err)
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
	}()

	log.Info("http listening", zap.String("addr", addr))
	return &HTTPServer{srv: srv, done: done}
}
