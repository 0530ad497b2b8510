// Package httpapi CRMイベントの検索・ICSダウンロード・同期トリガーのHTTP API
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/k-negishi/crm-calendar-sync/internal/domain"
	"github.com/k-negishi/crm-calendar-sync/internal/ics"
	"github.com/k-negishi/crm-calendar-sync/internal/query"
	"github.com/k-negishi/crm-calendar-sync/internal/usecase"
)

const dateLayout = "2006-01-02"

// EventSource 導出済みイベントの取得
type EventSource interface {
	Execute(ctx context.Context) ([]domain.Event, error)
}

// Syncer 一括同期
type Syncer interface {
	Execute(ctx context.Context, onProgress usecase.ProgressFunc) (domain.SyncResult, error)
}

// SyncStatus 同期状態の参照
type SyncStatus interface {
	Status() domain.SyncResult
	LastSync(ctx context.Context) (time.Time, error)
}

// CalendarLister リモートカレンダー一覧
type CalendarLister interface {
	ListCalendars(ctx context.Context) ([]domain.CalendarInfo, error)
}

// AutoSyncSettings 自動同期フラグ
type AutoSyncSettings interface {
	AutoSync(ctx context.Context) (bool, error)
	SetAutoSync(ctx context.Context, enabled bool) error
}

type Handler struct {
	Events    EventSource
	Syncer    Syncer
	Status    SyncStatus
	Calendars CalendarLister
	Settings  AutoSyncSettings
	Location  *time.Location
	Logger    *zap.Logger

	now func() time.Time
}

func NewHandler(events EventSource, syncer Syncer, status SyncStatus, calendars CalendarLister, settings AutoSyncSettings, location *time.Location, logger *zap.Logger) *Handler {
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Events:    events,
		Syncer:    syncer,
		Status:    status,
		Calendars: calendars,
		Settings:  settings,
		Location:  location,
		Logger:    logger,
		now:       time.Now,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(h.loggingMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.Route("/api", func(api chi.Router) {
		api.Get("/events", h.handleSearch)
		api.Get("/events/day/{date}", h.handleDay)
		api.Get("/events/upcoming", h.handleUpcoming)
		api.Get("/calendar.ics", h.handleExport)
		api.Get("/calendars", h.handleCalendars)

		api.Post("/sync", h.handleSync)
		api.Get("/sync/status", h.handleSyncStatus)

		api.Get("/settings/auto-sync", h.handleGetAutoSync)
		api.Put("/settings/auto-sync", h.handlePutAutoSync)
	})

	return r
}

type syncStatusResponse struct {
	domain.SyncResult
	LastSync *time.Time `json:"lastSync"`
}

type autoSyncRequest struct {
	Enabled *bool `json:"enabled"`
}

type autoSyncResponse struct {
	Enabled bool `json:"enabled"`
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	events, ok := h.loadEvents(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, query.FilterBySearch(events, r.URL.Query().Get("q")))
}

func (h *Handler) handleDay(w http.ResponseWriter, r *http.Request) {
	day, err := time.ParseInLocation(dateLayout, chi.URLParam(r, "date"), h.Location)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	events, ok := h.loadEvents(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, query.EventsOnDate(events, day))
}

func (h *Handler) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	events, ok := h.loadEvents(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, query.Upcoming(events, h.now().In(h.Location), limit))
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	events, ok := h.loadEvents(w, r)
	if !ok {
		return
	}
	now := h.now()
	w.Header().Set("Content-Type", ics.ContentType+"; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ics.FileName(now)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(ics.Export(events, now))
}

func (h *Handler) handleCalendars(w http.ResponseWriter, r *http.Request) {
	calendars, err := h.Calendars.ListCalendars(r.Context())
	if err != nil {
		h.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, calendars)
}

func (h *Handler) handleSync(w http.ResponseWriter, r *http.Request) {
	result, err := h.Syncer.Execute(r.Context(), nil)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrSyncInProgress):
			h.writeError(w, http.StatusConflict, err.Error())
		case result.State == domain.SyncAborted:
			h.writeJSON(w, http.StatusServiceUnavailable, result)
		default:
			h.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	resp := syncStatusResponse{SyncResult: h.Status.Status()}
	last, err := h.Status.LastSync(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !last.IsZero() {
		resp.LastSync = &last
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetAutoSync(w http.ResponseWriter, r *http.Request) {
	enabled, err := h.Settings.AutoSync(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, autoSyncResponse{Enabled: enabled})
}

func (h *Handler) handlePutAutoSync(w http.ResponseWriter, r *http.Request) {
	var req autoSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := h.Settings.SetAutoSync(r.Context(), *req.Enabled); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, autoSyncResponse{Enabled: *req.Enabled})
}

func (h *Handler) loadEvents(w http.ResponseWriter, r *http.Request) ([]domain.Event, bool) {
	events, err := h.Events.Execute(r.Context())
	if err != nil {
		h.Logger.Error("イベントの取得に失敗しました", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return events, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}
