package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/notehaus/meeting-assistant/internal/indexer"
	"github.com/notehaus/meeting-assistant/internal/indexer/index"
)

// Requests that fail validation or id parsing never reach the store, so
// these run against a handler with no database behind it.
func newValidationHandler() *Handler {
	return New(nil, indexer.NewMaintainer(index.NewInvertedIndex(), nil), nil, nil)
}

func TestCreateRejectsInvalidBody(t *testing.T) {
	h := newValidationHandler()

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"title": `},
		{"missing title", `{"occurred_at": "2026-03-10T09:00:00Z"}`},
		{"missing occurred_at", `{"title": "Sync"}`},
		{"blank title", `{"title": "  ", "occurred_at": "2026-03-10T09:00:00Z"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/meetings", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.Create(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestCreateValidationReportsFields(t *testing.T) {
	h := newValidationHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/meetings", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := body.Fields["title"]; !ok {
		t.Errorf("fields = %v, want title error", body.Fields)
	}
	if _, ok := body.Fields["occurred_at"]; !ok {
		t.Errorf("fields = %v, want occurred_at error", body.Fields)
	}
}

func TestInvalidMeetingID(t *testing.T) {
	h := newValidationHandler()

	for _, raw := range []string{"abc", "-1", "0", "1.5", ""} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/meetings/"+raw, nil)
		req.SetPathValue("id", raw)
		rec := httptest.NewRecorder()
		h.Get(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("id %q: status = %d, want 400", raw, rec.Code)
		}
	}
}

func TestUpdateRejectsEmptyPatch(t *testing.T) {
	h := newValidationHandler()

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/meetings/1", strings.NewReader(`{}`))
	req.SetPathValue("id", "1")
	rec := httptest.NewRecorder()
	h.Update(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
}

func TestActionItemStatusRejectsUnknownStatus(t *testing.T) {
	h := newValidationHandler()

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/action-items/1", strings.NewReader(`{"status": "done"}`))
	req.SetPathValue("id", "1")
	rec := httptest.NewRecorder()
	h.UpdateActionItemStatus(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
}
