package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/notehaus/meeting-assistant/internal/indexer/index"
	"github.com/notehaus/meeting-assistant/internal/meeting"
	"github.com/notehaus/meeting-assistant/internal/searcher"
	apperrors "github.com/notehaus/meeting-assistant/pkg/errors"
)

var t1 = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type fakeFetcher struct {
	meetings map[int64]*meeting.Meeting
}

func (f *fakeFetcher) Get(ctx context.Context, id int64) (*meeting.Meeting, error) {
	m, ok := f.meetings[id]
	if !ok {
		return nil, apperrors.ErrMeetingNotFound
	}
	return m, nil
}

func newTestHandler(t *testing.T) (*Handler, *fakeFetcher) {
	t.Helper()
	ix := index.NewInvertedIndex()
	if err := ix.Add(1, "sprint velocity sprint goals", t1); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := ix.Add(2, "sprint retro notes", t1.Add(time.Hour)); err != nil {
		t.Fatalf("Add: %v", err)
	}

	fetcher := &fakeFetcher{meetings: map[int64]*meeting.Meeting{
		1: {ID: 1, Title: "Planning", RawNotes: "sprint velocity sprint goals", OccurredAt: t1},
		2: {ID: 2, Title: "Retro", RawNotes: "sprint retro notes", OccurredAt: t1.Add(time.Hour)},
	}}
	h := New(searcher.NewEngine(ix), nil, fetcher, nil, nil, 5, 50)
	return h, fetcher
}

func doSearch(t *testing.T, h *Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.Search(rec, req)
	return rec
}

func TestSearchEndpoint(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doSearch(t, h, "/api/v1/search?q=sprint")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var result searcher.SearchResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.TotalHits != 2 {
		t.Errorf("TotalHits = %d, want 2", result.TotalHits)
	}
	if len(result.Results) != 2 || result.Results[0].MeetingID != 1 || result.Results[0].Score != 2 {
		t.Errorf("Results = %v, want meeting 1 with score 2 first", result.Results)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	h, _ := newTestHandler(t)
	if rec := doSearch(t, h, "/api/v1/search"); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSearchInvalidLimit(t *testing.T) {
	h, _ := newTestHandler(t)
	for _, q := range []string{"limit=0", "limit=-3", "limit=abc"} {
		if rec := doSearch(t, h, "/api/v1/search?q=sprint&"+q); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, rec.Code)
		}
	}
}

func TestSearchLimitClamped(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doSearch(t, h, "/api/v1/search?q=sprint&limit=99999")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var result searcher.SearchResult
	json.Unmarshal(rec.Body.Bytes(), &result)
	if len(result.Results) > 50 {
		t.Errorf("limit not clamped to maxResults: got %d results", len(result.Results))
	}
}

func TestSearchZeroResults(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doSearch(t, h, "/api/v1/search?q=database")
	if rec.Code != http.StatusOK {
		t.Fatalf("zero-result search status = %d, want 200", rec.Code)
	}
	var result searcher.SearchResult
	json.Unmarshal(rec.Body.Bytes(), &result)
	if result.TotalHits != 0 || len(result.Results) != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}

func TestContextEndpoint(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/context?q=sprint&limit=2", nil)
	rec := httptest.NewRecorder()
	h.Context(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var result ContextResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result.Passages) != 2 {
		t.Fatalf("passages = %d, want 2", len(result.Passages))
	}
	first := result.Passages[0]
	if first.MeetingID != 1 || first.Title != "Planning" || first.RawNotes == "" {
		t.Errorf("first passage = %+v, want meeting 1 with title and notes", first)
	}
	if first.Score != 2 {
		t.Errorf("first passage score = %d, want 2", first.Score)
	}
}

func TestContextSkipsDeletedMeetings(t *testing.T) {
	h, fetcher := newTestHandler(t)
	delete(fetcher.meetings, 1)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/context?q=sprint", nil)
	rec := httptest.NewRecorder()
	h.Context(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var result ContextResult
	json.Unmarshal(rec.Body.Bytes(), &result)
	if len(result.Passages) != 1 || result.Passages[0].MeetingID != 2 {
		t.Errorf("passages = %v, want only meeting 2", result.Passages)
	}
}

func TestCacheEndpointsWithCachingDisabled(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.CacheStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("CacheStats status = %d, want 200", rec.Code)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["status"] != "disabled" {
		t.Errorf("CacheStats body = %v, want disabled marker", body)
	}

	rec = httptest.NewRecorder()
	h.CacheInvalidate(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("CacheInvalidate status = %d, want 503", rec.Code)
	}
}

func TestSearchDeterministicAcrossRequests(t *testing.T) {
	h, _ := newTestHandler(t)

	first := doSearch(t, h, "/api/v1/search?q=sprint+retro").Body.String()
	for i := 0; i < 5; i++ {
		if got := doSearch(t, h, "/api/v1/search?q=sprint+retro").Body.String(); got != first {
			t.Fatalf("request %d differed:\n%s\n%s", i, first, got)
		}
	}
}
