// Package events collects usage events (meeting lifecycle and searches),
// ships them to Kafka in the background, and aggregates them in-process for
// the stats endpoint. Event delivery is best effort: a full buffer drops
// events rather than blocking a request.
package events

import "time"

type EventType string

const (
	EventSearch         EventType = "search"
	EventZeroResult     EventType = "zero_result"
	EventMeetingCreated EventType = "meeting_created"
	EventMeetingUpdated EventType = "meeting_updated"
	EventMeetingDeleted EventType = "meeting_deleted"
)

type SearchEvent struct {
	Type      EventType `json:"type"`
	Query     string    `json:"query"`
	TotalHits int       `json:"total_hits"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

type MeetingEvent struct {
	Type      EventType `json:"type"`
	MeetingID int64     `json:"meeting_id"`
	Timestamp time.Time `json:"timestamp"`
}
