// Package indexer keeps the inverted index consistent with meeting
// lifecycle events. The Maintainer enforces the remove-before-add
// discipline for updates and performs startup recovery from the
// authoritative meeting store.
package indexer

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/notehaus/meeting-assistant/internal/indexer/index"
	apperrors "github.com/notehaus/meeting-assistant/pkg/errors"
	"github.com/notehaus/meeting-assistant/pkg/metrics"
)

// Maintainer bridges meeting lifecycle events to the InvertedIndex.
type Maintainer struct {
	ix      *index.InvertedIndex
	metrics *metrics.Metrics
	logger  *slog.Logger
	closed  atomic.Bool
}

// NewMaintainer creates a Maintainer around the given index. m may be nil
// when metrics are disabled.
func NewMaintainer(ix *index.InvertedIndex, m *metrics.Metrics) *Maintainer {
	return &Maintainer{
		ix:      ix,
		metrics: m,
		logger:  slog.Default().With("component", "index-maintainer"),
	}
}

// Index exposes the underlying inverted index for read-side consumers.
func (mt *Maintainer) Index() *index.InvertedIndex {
	return mt.ix
}

// OnCreate indexes a newly created meeting. The meeting id must be fresh;
// re-indexing an existing meeting goes through OnUpdate.
func (mt *Maintainer) OnCreate(doc index.Document) error {
	if mt.closed.Load() {
		return apperrors.ErrShuttingDown
	}
	start := time.Now()
	if err := mt.ix.Add(doc.MeetingID, doc.Text, doc.OccurredAt); err != nil {
		return fmt.Errorf("indexing meeting %d: %w", doc.MeetingID, err)
	}
	mt.observe("create")
	mt.logger.Debug("meeting indexed",
		"meeting_id", doc.MeetingID,
		"terms", mt.ix.TermCount(),
		"took", time.Since(start),
	)
	return nil
}

// OnUpdate replaces a meeting's postings with ones derived from its new
// text. Removal and re-insertion happen under a single writer lock
// acquisition, so no query observes the transient in-between state.
func (mt *Maintainer) OnUpdate(doc index.Document) error {
	if mt.closed.Load() {
		return apperrors.ErrShuttingDown
	}
	mt.ix.Update(doc.MeetingID, doc.Text, doc.OccurredAt)
	mt.observe("update")
	mt.logger.Debug("meeting re-indexed", "meeting_id", doc.MeetingID)
	return nil
}

// OnDelete erases a meeting's postings. Deleting an id that was never
// indexed is a no-op, not an error.
func (mt *Maintainer) OnDelete(meetingID int64) error {
	if mt.closed.Load() {
		return apperrors.ErrShuttingDown
	}
	removed := mt.ix.Remove(meetingID)
	mt.observe("delete")
	mt.logger.Debug("meeting removed from index",
		"meeting_id", meetingID,
		"was_indexed", removed,
	)
	return nil
}

// Rebuild reconstructs the whole index from the authoritative meeting set,
// typically once at process start before any queries are served. The
// previous index state stays untouched until the full replacement is ready.
func (mt *Maintainer) Rebuild(docs []index.Document) error {
	if mt.closed.Load() {
		return apperrors.ErrShuttingDown
	}
	start := time.Now()
	mt.ix.Rebuild(docs)
	mt.observe("rebuild")
	mt.logger.Info("index rebuilt",
		"meetings", mt.ix.MeetingCount(),
		"terms", mt.ix.TermCount(),
		"took", time.Since(start),
	)
	return nil
}

// Close marks the maintainer as shutting down. Later mutations are refused
// with ErrShuttingDown so callers can report rather than silently drop them.
func (mt *Maintainer) Close() {
	mt.closed.Store(true)
	mt.logger.Info("index maintainer closed")
}

func (mt *Maintainer) observe(op string) {
	if mt.metrics == nil {
		return
	}
	mt.metrics.IndexOpsTotal.WithLabelValues(op).Inc()
	mt.metrics.IndexTerms.Set(float64(mt.ix.TermCount()))
	mt.metrics.IndexMeetings.Set(float64(mt.ix.MeetingCount()))
}
