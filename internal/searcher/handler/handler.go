// Package handler serves the search endpoints: ranked keyword search for
// the UI and ranked context passages for the external answer-generation
// step.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/notehaus/meeting-assistant/internal/events"
	"github.com/notehaus/meeting-assistant/internal/indexer/tokenizer"
	"github.com/notehaus/meeting-assistant/internal/meeting"
	"github.com/notehaus/meeting-assistant/internal/searcher"
	"github.com/notehaus/meeting-assistant/internal/searcher/cache"
	"github.com/notehaus/meeting-assistant/pkg/logger"
	"github.com/notehaus/meeting-assistant/pkg/metrics"
	"github.com/notehaus/meeting-assistant/pkg/tracing"
)

// MeetingFetcher supplies full meeting records for context passages.
type MeetingFetcher interface {
	Get(ctx context.Context, id int64) (*meeting.Meeting, error)
}

// ContextPassage is one ranked passage handed to the answer-generation
// collaborator: the meeting's identity, its notes, and the match score.
type ContextPassage struct {
	MeetingID int64  `json:"meeting_id"`
	Title     string `json:"title"`
	RawNotes  string `json:"raw_notes"`
	Score     int    `json:"score"`
}

// ContextResult is the response of the context endpoint.
type ContextResult struct {
	Query    string           `json:"query"`
	Passages []ContextPassage `json:"passages"`
}

type Handler struct {
	engine       *searcher.Engine
	cache        *cache.QueryCache
	fetcher      MeetingFetcher
	collector    *events.Collector
	metrics      *metrics.Metrics
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

// New creates the search handler. queryCache, collector, and m may be nil
// when the corresponding subsystem is disabled.
func New(engine *searcher.Engine, queryCache *cache.QueryCache, fetcher MeetingFetcher, collector *events.Collector, m *metrics.Metrics, defaultLimit, maxResults int) *Handler {
	return &Handler{
		engine:       engine,
		cache:        queryCache,
		fetcher:      fetcher,
		collector:    collector,
		metrics:      m,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
		logger:       slog.Default().With("component", "search-handler"),
	}
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	limit, ok := h.parseLimit(w, r)
	if !ok {
		return
	}

	ctx, span := tracing.StartSpan(ctx, "search", logger.RequestIDFromContext(ctx))
	result, cacheHit := h.execute(ctx, query, limit)
	span.SetAttr("query", query)
	span.SetAttr("total_hits", result.TotalHits)
	span.SetAttr("cache_hit", cacheHit)
	span.End()
	span.Log()

	h.observe(query, result, cacheHit, time.Since(start))
	h.track(ctx, query, result, cacheHit, time.Since(start))
	writeJSON(w, http.StatusOK, result)
}

// Context returns ranked passages for the answer-generation collaborator.
// The collaborator fetches nothing itself: each passage carries the full
// notes text it needs to build the model prompt.
func (h *Handler) Context(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	limit, ok := h.parseLimit(w, r)
	if !ok {
		return
	}

	result, cacheHit := h.execute(ctx, query, limit)
	passages := make([]ContextPassage, 0, len(result.Results))
	for _, hit := range result.Results {
		m, err := h.fetcher.Get(ctx, hit.MeetingID)
		if err != nil {
			// The meeting may have been deleted between ranking and fetch;
			// skip it rather than failing the whole context window.
			h.logger.Warn("ranked meeting not fetchable, skipping",
				"meeting_id", hit.MeetingID,
				"error", err,
			)
			continue
		}
		passages = append(passages, ContextPassage{
			MeetingID: m.ID,
			Title:     m.Title,
			RawNotes:  m.RawNotes,
			Score:     hit.Score,
		})
	}

	h.observe(query, result, cacheHit, time.Since(start))
	h.track(ctx, query, result, cacheHit, time.Since(start))
	writeJSON(w, http.StatusOK, &ContextResult{
		Query:    query,
		Passages: passages,
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": hitRate,
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) execute(ctx context.Context, query string, limit int) (*searcher.SearchResult, bool) {
	if h.cache == nil {
		return h.engine.Query(ctx, query, limit), false
	}
	return h.cache.GetOrCompute(ctx, query, limit, func() *searcher.SearchResult {
		return h.engine.Query(ctx, query, limit)
	})
}

func (h *Handler) parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	limit := h.defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return 0, false
		}
		if parsed > h.maxResults {
			parsed = h.maxResults
		}
		limit = parsed
	}
	return limit, true
}

func (h *Handler) observe(query string, result *searcher.SearchResult, cacheHit bool, took time.Duration) {
	if h.metrics == nil {
		return
	}
	resultType := "hit"
	switch {
	case len(tokenizer.Unique(query)) == 0:
		resultType = "empty_query"
	case result.TotalHits == 0:
		resultType = "zero_result"
	}
	cacheStatus := "miss"
	if cacheHit {
		cacheStatus = "hit"
		h.metrics.CacheHitsTotal.Inc()
	} else {
		h.metrics.CacheMissesTotal.Inc()
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(took.Seconds())
	h.metrics.SearchResultsCount.Observe(float64(len(result.Results)))
}

func (h *Handler) track(ctx context.Context, query string, result *searcher.SearchResult, cacheHit bool, took time.Duration) {
	if h.collector == nil {
		return
	}
	eventType := events.EventSearch
	if result.TotalHits == 0 {
		eventType = events.EventZeroResult
	}
	h.collector.Track(events.SearchEvent{
		Type:      eventType,
		Query:     query,
		TotalHits: result.TotalHits,
		Returned:  len(result.Results),
		LatencyMs: took.Milliseconds(),
		CacheHit:  cacheHit,
		Timestamp: time.Now().UTC(),
		RequestID: logger.RequestIDFromContext(ctx),
	})
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
