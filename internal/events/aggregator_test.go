package events

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func feed(t *testing.T, agg *Aggregator, event any) {
	t.Helper()
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := HandleEvent(agg)(context.Background(), nil, payload); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
}

func TestAggregatorCountsSearchEvents(t *testing.T) {
	agg := NewAggregator()

	feed(t, agg, SearchEvent{Type: EventSearch, Query: "sprint planning", TotalHits: 3, LatencyMs: 10, CacheHit: true})
	feed(t, agg, SearchEvent{Type: EventSearch, Query: "sprint planning", TotalHits: 3, LatencyMs: 20})
	feed(t, agg, SearchEvent{Type: EventZeroResult, Query: "flux capacitor", TotalHits: 0, LatencyMs: 5})

	stats := agg.Stats()
	if stats.TotalSearches != 3 {
		t.Errorf("TotalSearches = %d, want 3", stats.TotalSearches)
	}
	if stats.CacheHits != 1 || stats.CacheMisses != 2 {
		t.Errorf("cache counters = %d/%d, want 1/2", stats.CacheHits, stats.CacheMisses)
	}
	if stats.ZeroResultCount != 1 {
		t.Errorf("ZeroResultCount = %d, want 1", stats.ZeroResultCount)
	}

	wantTop := []QueryCount{
		{Query: "sprint planning", Count: 2},
		{Query: "flux capacitor", Count: 1},
	}
	if !reflect.DeepEqual(stats.TopQueries, wantTop) {
		t.Errorf("TopQueries = %v, want %v", stats.TopQueries, wantTop)
	}
	wantZero := []QueryCount{{Query: "flux capacitor", Count: 1}}
	if !reflect.DeepEqual(stats.ZeroResultQueries, wantZero) {
		t.Errorf("ZeroResultQueries = %v, want %v", stats.ZeroResultQueries, wantZero)
	}
}

func TestAggregatorCountsMeetingEvents(t *testing.T) {
	agg := NewAggregator()

	now := time.Now().UTC()
	feed(t, agg, MeetingEvent{Type: EventMeetingCreated, MeetingID: 1, Timestamp: now})
	feed(t, agg, MeetingEvent{Type: EventMeetingCreated, MeetingID: 2, Timestamp: now})
	feed(t, agg, MeetingEvent{Type: EventMeetingUpdated, MeetingID: 1, Timestamp: now})
	feed(t, agg, MeetingEvent{Type: EventMeetingDeleted, MeetingID: 2, Timestamp: now})

	stats := agg.Stats()
	if stats.MeetingsCreated != 2 {
		t.Errorf("MeetingsCreated = %d, want 2", stats.MeetingsCreated)
	}
	if stats.MeetingsUpdated != 1 {
		t.Errorf("MeetingsUpdated = %d, want 1", stats.MeetingsUpdated)
	}
	if stats.MeetingsDeleted != 1 {
		t.Errorf("MeetingsDeleted = %d, want 1", stats.MeetingsDeleted)
	}
	if stats.TotalSearches != 0 {
		t.Errorf("TotalSearches = %d, want 0", stats.TotalSearches)
	}
}

func TestAggregatorLatencyPercentiles(t *testing.T) {
	agg := NewAggregator()
	for i := int64(1); i <= 100; i++ {
		agg.recordSearchEvent(SearchEvent{Type: EventSearch, Query: "q", LatencyMs: i})
	}

	stats := agg.Stats()
	if stats.AvgLatencyMs != 50.5 {
		t.Errorf("AvgLatencyMs = %v, want 50.5", stats.AvgLatencyMs)
	}
	if stats.P50LatencyMs != 51 {
		t.Errorf("P50LatencyMs = %d, want 51", stats.P50LatencyMs)
	}
	if stats.P95LatencyMs != 96 {
		t.Errorf("P95LatencyMs = %d, want 96", stats.P95LatencyMs)
	}
	if stats.P99LatencyMs != 100 {
		t.Errorf("P99LatencyMs = %d, want 100", stats.P99LatencyMs)
	}
}

func TestAggregatorTopQueriesDeterministicOrder(t *testing.T) {
	agg := NewAggregator()
	for _, q := range []string{"beta", "alpha", "gamma"} {
		agg.recordSearchEvent(SearchEvent{Type: EventSearch, Query: q, TotalHits: 1})
	}

	want := []QueryCount{
		{Query: "alpha", Count: 1},
		{Query: "beta", Count: 1},
		{Query: "gamma", Count: 1},
	}
	if got := agg.Stats().TopQueries; !reflect.DeepEqual(got, want) {
		t.Errorf("equal-count queries not ordered alphabetically: %v", got)
	}
}

func TestHandleEventSkipsGarbage(t *testing.T) {
	agg := NewAggregator()
	if err := HandleEvent(agg)(context.Background(), nil, []byte("not json")); err != nil {
		t.Errorf("garbage event should be skipped, got error %v", err)
	}
	if stats := agg.Stats(); stats.TotalSearches != 0 {
		t.Errorf("garbage event changed stats: %+v", stats)
	}
}
