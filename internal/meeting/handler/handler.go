// Package handler serves the meeting CRUD and action-item endpoints. Every
// write goes through the store first, then the index maintainer, then cache
// invalidation, so the index and cache never get ahead of the database.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/notehaus/meeting-assistant/internal/events"
	"github.com/notehaus/meeting-assistant/internal/indexer"
	"github.com/notehaus/meeting-assistant/internal/indexer/index"
	"github.com/notehaus/meeting-assistant/internal/meeting"
	"github.com/notehaus/meeting-assistant/internal/meeting/store"
	"github.com/notehaus/meeting-assistant/internal/meeting/validator"
	"github.com/notehaus/meeting-assistant/internal/searcher/cache"
	apperrors "github.com/notehaus/meeting-assistant/pkg/errors"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type Handler struct {
	store      *store.Store
	maintainer *indexer.Maintainer
	cache      *cache.QueryCache
	collector  *events.Collector
	logger     *slog.Logger
}

// New creates the meeting handler. queryCache and collector may be nil.
func New(st *store.Store, mt *indexer.Maintainer, queryCache *cache.QueryCache, collector *events.Collector) *Handler {
	return &Handler{
		store:      st,
		maintainer: mt,
		cache:      queryCache,
		collector:  collector,
		logger:     slog.Default().With("component", "meeting-handler"),
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req meeting.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validator.ValidateCreateRequest(&req); err != nil {
		writeValidationError(w, err)
		return
	}

	ctx := r.Context()
	m, err := h.store.Create(ctx, &req)
	if err != nil {
		h.logger.Error("failed to create meeting", "error", err)
		writeAppError(w, err)
		return
	}

	if err := h.maintainer.OnCreate(documentFor(m)); err != nil {
		h.logger.Error("failed to index meeting", "meeting_id", m.ID, "error", err)
	}
	h.invalidateCache(r)
	h.trackMeeting(events.EventMeetingCreated, m.ID)

	writeJSON(w, http.StatusCreated, m)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	m, err := h.store.Get(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	offset := parseQueryInt(r, "offset", 0)
	limit := parseQueryInt(r, "limit", defaultListLimit)
	if limit > maxListLimit {
		limit = maxListLimit
	}

	meetings, err := h.store.List(r.Context(), offset, limit)
	if err != nil {
		h.logger.Error("failed to list meetings", "error", err)
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"meetings": meetings,
		"offset":   offset,
		"limit":    limit,
		"count":    len(meetings),
	})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req meeting.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validator.ValidateUpdateRequest(&req); err != nil {
		writeValidationError(w, err)
		return
	}

	ctx := r.Context()
	m, err := h.store.Update(ctx, id, &req)
	if err != nil {
		writeAppError(w, err)
		return
	}

	// Notes or timestamp changes both affect search results, so any update
	// reindexes the meeting.
	if err := h.maintainer.OnUpdate(documentFor(m)); err != nil {
		h.logger.Error("failed to reindex meeting", "meeting_id", m.ID, "error", err)
	}
	h.invalidateCache(r)
	h.trackMeeting(events.EventMeetingUpdated, m.ID)

	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	if err := h.store.Delete(ctx, id); err != nil {
		writeAppError(w, err)
		return
	}

	if err := h.maintainer.OnDelete(id); err != nil {
		h.logger.Error("failed to deindex meeting", "meeting_id", id, "error", err)
	}
	h.invalidateCache(r)
	h.trackMeeting(events.EventMeetingDeleted, id)

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListActionItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListActionItems(r.Context())
	if err != nil {
		h.logger.Error("failed to list action items", "error", err)
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"action_items": items,
		"count":        len(items),
	})
}

func (h *Handler) CreateActionItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req meeting.ActionItemCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validator.ValidateActionItemCreate(&req); err != nil {
		writeValidationError(w, err)
		return
	}

	ctx := r.Context()
	if _, err := h.store.Get(ctx, id); err != nil {
		writeAppError(w, err)
		return
	}

	item, err := h.store.CreateActionItem(ctx, id, &req)
	if err != nil {
		h.logger.Error("failed to create action item", "meeting_id", id, "error", err)
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *Handler) ListMeetingActionItems(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	// Verify the meeting exists so a bogus id yields 404, not an empty list.
	if _, err := h.store.Get(r.Context(), id); err != nil {
		writeAppError(w, err)
		return
	}

	items, err := h.store.ListMeetingActionItems(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to list meeting action items", "meeting_id", id, "error", err)
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"meeting_id":   id,
		"action_items": items,
		"count":        len(items),
	})
}

func (h *Handler) UpdateActionItemStatus(w http.ResponseWriter, r *http.Request) {
	idStr := r.PathValue("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "invalid action item id")
		return
	}

	var req meeting.ActionItemStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validator.ValidateActionItemStatus(&req); err != nil {
		writeValidationError(w, err)
		return
	}

	item, err := h.store.UpdateActionItemStatus(r.Context(), id, req.Status)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "invalid meeting id")
		return 0, false
	}
	return id, true
}

func (h *Handler) invalidateCache(r *http.Request) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Warn("cache invalidation failed", "error", err)
	}
}

func (h *Handler) trackMeeting(eventType events.EventType, id int64) {
	if h.collector == nil {
		return
	}
	h.collector.Track(events.MeetingEvent{
		Type:      eventType,
		MeetingID: id,
		Timestamp: time.Now().UTC(),
	})
}

func documentFor(m *meeting.Meeting) index.Document {
	return index.Document{
		MeetingID:  m.ID,
		Text:       m.RawNotes,
		OccurredAt: m.OccurredAt,
	}
}

func parseQueryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeValidationError(w http.ResponseWriter, err error) {
	var verr *validator.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": verr.Fields,
		})
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

func writeAppError(w http.ResponseWriter, err error) {
	writeError(w, apperrors.HTTPStatusCode(err), err.Error())
}
