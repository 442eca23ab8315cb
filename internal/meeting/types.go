// Package meeting defines the meeting and action-item records owned by the
// persistence layer, plus the request and response types of the HTTP API.
package meeting

import "time"

// Meeting is the persisted meeting record. ID is assigned by PostgreSQL and
// immutable; RawNotes is the text the keyword index sees; OccurredAt breaks
// ranking ties. Summary and Tags are filled in by the external
// answer-generation collaborator, never by this service.
type Meeting struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	OccurredAt   time.Time `json:"occurred_at"`
	Participants string    `json:"participants"`
	RawNotes     string    `json:"raw_notes"`
	Summary      string    `json:"summary,omitempty"`
	Tags         string    `json:"tags,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ActionItem is a follow-up extracted from a meeting.
type ActionItem struct {
	ID          int64      `json:"id"`
	MeetingID   int64      `json:"meeting_id"`
	Description string     `json:"description"`
	Owner       string     `json:"owner,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CreateRequest is the JSON body accepted when creating a meeting.
type CreateRequest struct {
	Title        string    `json:"title"`
	OccurredAt   time.Time `json:"occurred_at"`
	Participants string    `json:"participants"`
	RawNotes     string    `json:"raw_notes"`
}

// UpdateRequest is the JSON body accepted when updating a meeting. Nil
// fields are left unchanged.
type UpdateRequest struct {
	Title        *string    `json:"title,omitempty"`
	OccurredAt   *time.Time `json:"occurred_at,omitempty"`
	Participants *string    `json:"participants,omitempty"`
	RawNotes     *string    `json:"raw_notes,omitempty"`
}

// ActionItemCreateRequest is the JSON body accepted when attaching an
// action item to a meeting.
type ActionItemCreateRequest struct {
	Description string     `json:"description"`
	Owner       string     `json:"owner,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// ActionItemStatusRequest updates an action item's status.
type ActionItemStatusRequest struct {
	Status string `json:"status"`
}
