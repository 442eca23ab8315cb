// Package index implements the in-memory inverted index mapping vocabulary
// terms to the meetings containing them. It is the one shared mutable
// structure in the service: readers run concurrently, writers are exclusive,
// and every mutation appears atomic to concurrent readers.
package index

import (
	"sync"
	"time"

	"github.com/notehaus/meeting-assistant/internal/indexer/tokenizer"
	apperrors "github.com/notehaus/meeting-assistant/pkg/errors"
)

// docEntry remembers what a meeting contributed to the index so removal
// touches only the terms the meeting actually contains.
type docEntry struct {
	counts     map[string]int
	occurredAt time.Time
}

// InvertedIndex maps term -> meetingID -> term frequency. A term is present
// as a key only while its posting map is non-empty, and no posting ever has
// frequency zero.
type InvertedIndex struct {
	mu    sync.RWMutex
	terms map[string]map[int64]int
	docs  map[int64]docEntry
}

func NewInvertedIndex() *InvertedIndex {
	return &InvertedIndex{
		terms: make(map[string]map[int64]int),
		docs:  make(map[int64]docEntry),
	}
}

// Add tokenizes text and inserts the meeting's postings. The meeting must
// not already be indexed; callers re-indexing must remove first (or use
// Update, which does both under one lock acquisition).
func (ix *InvertedIndex) Add(meetingID int64, text string, occurredAt time.Time) error {
	counts := tokenizer.Counts(text)

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, exists := ix.docs[meetingID]; exists {
		return apperrors.ErrMeetingExists
	}
	ix.addLocked(meetingID, counts, occurredAt)
	return nil
}

// Remove deletes every posting for the meeting and prunes terms left with
// empty posting maps. Removing an unknown id is a no-op; the return value
// reports whether anything was removed.
func (ix *InvertedIndex) Remove(meetingID int64) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.removeLocked(meetingID)
}

// Update replaces the meeting's postings wholesale under a single writer
// lock acquisition, so no reader ever observes the transient state between
// removal and re-insertion. Updating an id that was never indexed behaves
// like Add.
func (ix *InvertedIndex) Update(meetingID int64, text string, occurredAt time.Time) {
	counts := tokenizer.Counts(text)

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeLocked(meetingID)
	ix.addLocked(meetingID, counts, occurredAt)
}

// Rebuild replaces the entire index with one built from docs. The new state
// is assembled off-lock and swapped in atomically, so a failed or partial
// caller never corrupts the previous state and readers always see either
// the old index or the complete new one. The result is identical to adding
// the same documents incrementally in any order.
func (ix *InvertedIndex) Rebuild(docs []Document) {
	fresh := NewInvertedIndex()
	for _, doc := range docs {
		counts := tokenizer.Counts(doc.Text)
		if _, exists := fresh.docs[doc.MeetingID]; exists {
			fresh.removeLocked(doc.MeetingID)
		}
		fresh.addLocked(doc.MeetingID, counts, doc.OccurredAt)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.terms = fresh.terms
	ix.docs = fresh.docs
}

// Lookup returns a copy of the postings for term, or an empty map when the
// term is absent. Read-only.
func (ix *InvertedIndex) Lookup(term string) map[int64]int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	postings := ix.terms[term]
	result := make(map[int64]int, len(postings))
	for meetingID, freq := range postings {
		result[meetingID] = freq
	}
	return result
}

// Candidates accumulates, per meeting, the sum of term frequencies across
// all given terms (OR semantics) under one read lock, so a single query
// scores against one consistent snapshot of the index.
func (ix *InvertedIndex) Candidates(terms []string) []Candidate {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	scores := make(map[int64]int)
	for _, term := range terms {
		for meetingID, freq := range ix.terms[term] {
			scores[meetingID] += freq
		}
	}
	candidates := make([]Candidate, 0, len(scores))
	for meetingID, score := range scores {
		candidates = append(candidates, Candidate{
			MeetingID:  meetingID,
			Score:      score,
			OccurredAt: ix.docs[meetingID].occurredAt,
		})
	}
	return candidates
}

// TermCount returns the number of distinct terms in the index.
func (ix *InvertedIndex) TermCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.terms)
}

// MeetingCount returns the number of meetings currently indexed.
func (ix *InvertedIndex) MeetingCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}

// DocumentCount returns the number of meetings containing term.
func (ix *InvertedIndex) DocumentCount(term string) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.terms[term])
}

// Contains reports whether the meeting currently has postings.
func (ix *InvertedIndex) Contains(meetingID int64) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.docs[meetingID]
	return ok
}

func (ix *InvertedIndex) addLocked(meetingID int64, counts map[string]int, occurredAt time.Time) {
	for term, freq := range counts {
		postings, exists := ix.terms[term]
		if !exists {
			postings = make(map[int64]int)
			ix.terms[term] = postings
		}
		postings[meetingID] = freq
	}
	// A meeting whose notes tokenize to nothing is still tracked, so a later
	// Remove is recognised and Update keeps working.
	ix.docs[meetingID] = docEntry{counts: counts, occurredAt: occurredAt}
}

func (ix *InvertedIndex) removeLocked(meetingID int64) bool {
	entry, exists := ix.docs[meetingID]
	if !exists {
		return false
	}
	for term := range entry.counts {
		postings := ix.terms[term]
		delete(postings, meetingID)
		if len(postings) == 0 {
			delete(ix.terms, term)
		}
	}
	delete(ix.docs, meetingID)
	return true
}
