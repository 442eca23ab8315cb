// Package searcher executes keyword queries against the inverted index and
// produces deterministic, ranked, bounded results. Ranking is a plain
// bag-of-terms frequency sum; recency breaks score ties and meeting id
// breaks the rest. Kept deliberately free of IDF weighting and length
// normalisation.
package searcher

import (
	"context"
	"log/slog"
	"sort"

	"github.com/notehaus/meeting-assistant/internal/indexer/index"
	"github.com/notehaus/meeting-assistant/internal/indexer/tokenizer"
	"github.com/notehaus/meeting-assistant/pkg/logger"
)

// ScoredMeeting is one ranked search hit.
type ScoredMeeting struct {
	MeetingID int64 `json:"meeting_id"`
	Score     int   `json:"score"`
}

// SearchResult is the ordered outcome of one query.
type SearchResult struct {
	Query     string          `json:"query"`
	TotalHits int             `json:"total_hits"`
	Results   []ScoredMeeting `json:"results"`
	TermStats map[string]int  `json:"term_stats,omitempty"`
}

// Engine ranks meetings for keyword queries.
type Engine struct {
	ix     *index.InvertedIndex
	logger *slog.Logger
}

func NewEngine(ix *index.InvertedIndex) *Engine {
	return &Engine{
		ix:     ix,
		logger: slog.Default().With("component", "query-engine"),
	}
}

// Query tokenizes text, deduplicates the resulting terms, accumulates
// per-meeting term-frequency sums (OR semantics), and returns at most limit
// hits ordered by score descending, meeting recency descending, and meeting
// id ascending. A query matching nothing returns an empty result; that is a
// normal outcome, not an error. Identical queries against an unchanged
// index return identical ordered results.
func (e *Engine) Query(ctx context.Context, text string, limit int) *SearchResult {
	result := &SearchResult{
		Query:   text,
		Results: []ScoredMeeting{},
	}
	terms := tokenizer.Unique(text)
	if len(terms) == 0 {
		return result
	}

	candidates := e.ix.Candidates(terms)
	result.TotalHits = len(candidates)
	if len(candidates) == 0 {
		return result
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.OccurredAt.Equal(b.OccurredAt) {
			return a.OccurredAt.After(b.OccurredAt)
		}
		return a.MeetingID < b.MeetingID
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	result.Results = make([]ScoredMeeting, 0, len(candidates))
	for _, c := range candidates {
		result.Results = append(result.Results, ScoredMeeting{
			MeetingID: c.MeetingID,
			Score:     c.Score,
		})
	}
	result.TermStats = make(map[string]int, len(terms))
	for _, term := range terms {
		if n := e.ix.DocumentCount(term); n > 0 {
			result.TermStats[term] = n
		}
	}

	log := e.logger
	if id := logger.RequestIDFromContext(ctx); id != "" {
		log = log.With("request_id", id)
	}
	log.Debug("query executed",
		"query", text,
		"terms", terms,
		"candidates", result.TotalHits,
		"returned", len(result.Results),
	)
	return result
}
