// Package validator provides input validation for meeting requests. It
// enforces title and notes length constraints and returns per-field error
// details.
package validator

import (
	"fmt"
	"strings"

	"github.com/notehaus/meeting-assistant/internal/meeting"
)

const (
	maxTitleLength        = 1024
	maxNotesLength        = 1048576
	maxParticipantsLength = 4096
)

var allowedStatuses = map[string]struct{}{
	"pending":     {},
	"in_progress": {},
	"completed":   {},
}

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	var parts []string
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, msg))
	}
	return strings.Join(parts, "; ")
}

// ValidateCreateRequest checks a meeting create payload.
func ValidateCreateRequest(req *meeting.CreateRequest) error {
	errs := make(map[string]string)

	title := strings.TrimSpace(req.Title)
	if title == "" {
		errs["title"] = "title is required"
	} else if len(title) > maxTitleLength {
		errs["title"] = fmt.Sprintf("title must be at most %d characters", maxTitleLength)
	}
	if req.OccurredAt.IsZero() {
		errs["occurred_at"] = "occurred_at is required"
	}
	if len(req.RawNotes) > maxNotesLength {
		errs["raw_notes"] = fmt.Sprintf("raw_notes must be at most %d characters", maxNotesLength)
	}
	if len(req.Participants) > maxParticipantsLength {
		errs["participants"] = fmt.Sprintf("participants must be at most %d characters", maxParticipantsLength)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// ValidateUpdateRequest checks a meeting update payload.
func ValidateUpdateRequest(req *meeting.UpdateRequest) error {
	errs := make(map[string]string)

	if req.Title == nil && req.OccurredAt == nil && req.Participants == nil && req.RawNotes == nil {
		errs["body"] = "at least one field must be set"
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			errs["title"] = "title must not be empty"
		} else if len(title) > maxTitleLength {
			errs["title"] = fmt.Sprintf("title must be at most %d characters", maxTitleLength)
		}
	}
	if req.OccurredAt != nil && req.OccurredAt.IsZero() {
		errs["occurred_at"] = "occurred_at must be a valid timestamp"
	}
	if req.RawNotes != nil && len(*req.RawNotes) > maxNotesLength {
		errs["raw_notes"] = fmt.Sprintf("raw_notes must be at most %d characters", maxNotesLength)
	}
	if req.Participants != nil && len(*req.Participants) > maxParticipantsLength {
		errs["participants"] = fmt.Sprintf("participants must be at most %d characters", maxParticipantsLength)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// ValidateActionItemCreate checks an action-item create payload.
func ValidateActionItemCreate(req *meeting.ActionItemCreateRequest) error {
	errs := make(map[string]string)

	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		errs["description"] = "description is required"
	} else if len(desc) > maxTitleLength {
		errs["description"] = fmt.Sprintf("description must be at most %d characters", maxTitleLength)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// ValidateActionItemStatus checks an action-item status transition.
func ValidateActionItemStatus(req *meeting.ActionItemStatusRequest) error {
	if _, ok := allowedStatuses[req.Status]; !ok {
		return &ValidationError{Fields: map[string]string{
			"status": "status must be one of pending, in_progress, completed",
		}}
	}
	return nil
}
