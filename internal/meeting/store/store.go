// Package store persists meetings and action items in PostgreSQL. It is the
// authoritative source of truth; the keyword index is a derived cache
// rebuilt from here at startup.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	apperrors "github.com/notehaus/meeting-assistant/pkg/errors"
	"github.com/notehaus/meeting-assistant/pkg/postgres"

	"github.com/notehaus/meeting-assistant/internal/meeting"
)

type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func New(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "meeting-store"),
	}
}

// Migrate creates the meetings and action_items tables when missing. The
// service runs as a single binary, so schema setup happens at startup
// rather than through a separate migration tool.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meetings (
			id BIGSERIAL PRIMARY KEY,
			title TEXT NOT NULL,
			occurred_at TIMESTAMPTZ NOT NULL,
			participants TEXT NOT NULL DEFAULT '',
			raw_notes TEXT NOT NULL DEFAULT '',
			summary TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS action_items (
			id BIGSERIAL PRIMARY KEY,
			meeting_id BIGINT NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
			description TEXT NOT NULL,
			owner TEXT NOT NULL DEFAULT '',
			due_date TIMESTAMPTZ,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_action_items_meeting ON action_items(meeting_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("running migration: %w", err)
		}
	}
	return nil
}

const meetingColumns = `id, title, occurred_at, participants, raw_notes, summary, tags, created_at, updated_at`

// Create inserts a new meeting and returns the stored record with its
// assigned id.
func (s *Store) Create(ctx context.Context, req *meeting.CreateRequest) (*meeting.Meeting, error) {
	row := s.db.DB.QueryRowContext(ctx,
		`INSERT INTO meetings (title, occurred_at, participants, raw_notes)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+meetingColumns,
		req.Title, req.OccurredAt, req.Participants, req.RawNotes,
	)
	m, err := scanMeeting(row)
	if err != nil {
		return nil, fmt.Errorf("inserting meeting: %w", err)
	}
	return m, nil
}

// Get returns the meeting with the given id, or ErrMeetingNotFound.
func (s *Store) Get(ctx context.Context, id int64) (*meeting.Meeting, error) {
	row := s.db.DB.QueryRowContext(ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE id = $1`, id)
	m, err := scanMeeting(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrMeetingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying meeting %d: %w", id, err)
	}
	return m, nil
}

// List returns meetings ordered by occurrence time descending.
func (s *Store) List(ctx context.Context, offset, limit int) ([]meeting.Meeting, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT `+meetingColumns+` FROM meetings
		 ORDER BY occurred_at DESC OFFSET $1 LIMIT $2`, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("listing meetings: %w", err)
	}
	defer rows.Close()
	return collectMeetings(rows)
}

// ListAll returns every meeting. Used to rebuild the keyword index at
// process start; an error here must abort the rebuild before the index is
// touched.
func (s *Store) ListAll(ctx context.Context) ([]meeting.Meeting, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT `+meetingColumns+` FROM meetings ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing all meetings: %w", err)
	}
	defer rows.Close()
	return collectMeetings(rows)
}

// Update applies the non-nil fields of req to the meeting and returns the
// updated record.
func (s *Store) Update(ctx context.Context, id int64, req *meeting.UpdateRequest) (*meeting.Meeting, error) {
	var updated *meeting.Meeting
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+meetingColumns+` FROM meetings WHERE id = $1 FOR UPDATE`, id)
		m, err := scanMeeting(row)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.ErrMeetingNotFound
		}
		if err != nil {
			return fmt.Errorf("locking meeting %d: %w", id, err)
		}

		if req.Title != nil {
			m.Title = *req.Title
		}
		if req.OccurredAt != nil {
			m.OccurredAt = *req.OccurredAt
		}
		if req.Participants != nil {
			m.Participants = *req.Participants
		}
		if req.RawNotes != nil {
			m.RawNotes = *req.RawNotes
		}

		row = tx.QueryRowContext(ctx,
			`UPDATE meetings
			 SET title = $1, occurred_at = $2, participants = $3, raw_notes = $4, updated_at = NOW()
			 WHERE id = $5
			 RETURNING `+meetingColumns,
			m.Title, m.OccurredAt, m.Participants, m.RawNotes, id,
		)
		updated, err = scanMeeting(row)
		if err != nil {
			return fmt.Errorf("updating meeting %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the meeting and, via the foreign key cascade, its action
// items.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.DB.ExecContext(ctx, `DELETE FROM meetings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting meeting %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrMeetingNotFound
	}
	return nil
}

const actionItemColumns = `id, meeting_id, description, owner, due_date, status, created_at`

// CreateActionItem attaches an action item to a meeting. The meeting must
// exist; the foreign key rejects orphans.
func (s *Store) CreateActionItem(ctx context.Context, meetingID int64, req *meeting.ActionItemCreateRequest) (*meeting.ActionItem, error) {
	row := s.db.DB.QueryRowContext(ctx,
		`INSERT INTO action_items (meeting_id, description, owner, due_date)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+actionItemColumns,
		meetingID, req.Description, req.Owner, req.DueDate,
	)
	item, err := scanActionItem(row)
	if err != nil {
		return nil, fmt.Errorf("inserting action item for meeting %d: %w", meetingID, err)
	}
	return item, nil
}

// ListActionItems returns all action items, newest first.
func (s *Store) ListActionItems(ctx context.Context) ([]meeting.ActionItem, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT `+actionItemColumns+` FROM action_items ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing action items: %w", err)
	}
	defer rows.Close()
	return collectActionItems(rows)
}

// ListMeetingActionItems returns the action items of one meeting.
func (s *Store) ListMeetingActionItems(ctx context.Context, meetingID int64) ([]meeting.ActionItem, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT `+actionItemColumns+` FROM action_items WHERE meeting_id = $1 ORDER BY created_at`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("listing action items for meeting %d: %w", meetingID, err)
	}
	defer rows.Close()
	return collectActionItems(rows)
}

// UpdateActionItemStatus sets an action item's status and returns the
// updated record.
func (s *Store) UpdateActionItemStatus(ctx context.Context, id int64, status string) (*meeting.ActionItem, error) {
	row := s.db.DB.QueryRowContext(ctx,
		`UPDATE action_items SET status = $1 WHERE id = $2 RETURNING `+actionItemColumns,
		status, id,
	)
	item, err := scanActionItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrActionItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating action item %d: %w", id, err)
	}
	return item, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeeting(row rowScanner) (*meeting.Meeting, error) {
	var m meeting.Meeting
	err := row.Scan(
		&m.ID, &m.Title, &m.OccurredAt, &m.Participants, &m.RawNotes,
		&m.Summary, &m.Tags, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func collectMeetings(rows *sql.Rows) ([]meeting.Meeting, error) {
	meetings := make([]meeting.Meeting, 0)
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning meeting row: %w", err)
		}
		meetings = append(meetings, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating meeting rows: %w", err)
	}
	return meetings, nil
}

func scanActionItem(row rowScanner) (*meeting.ActionItem, error) {
	var item meeting.ActionItem
	var due sql.NullTime
	err := row.Scan(
		&item.ID, &item.MeetingID, &item.Description, &item.Owner,
		&due, &item.Status, &item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if due.Valid {
		item.DueDate = &due.Time
	}
	return &item, nil
}

func collectActionItems(rows *sql.Rows) ([]meeting.ActionItem, error) {
	items := make([]meeting.ActionItem, 0)
	for rows.Next() {
		item, err := scanActionItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning action item row: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating action item rows: %w", err)
	}
	return items, nil
}
