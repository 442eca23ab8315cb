package index

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	apperrors "github.com/notehaus/meeting-assistant/pkg/errors"
)

var baseTime = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func TestAddStoresTermFrequencies(t *testing.T) {
	ix := NewInvertedIndex()
	if err := ix.Add(1, "sprint velocity sprint goals", baseTime); err != nil {
		t.Fatalf("Add: %v", err)
	}

	postings := ix.Lookup("sprint")
	if postings[1] != 2 {
		t.Errorf("frequency of 'sprint' = %d, want 2", postings[1])
	}
	if ix.Lookup("velocity")[1] != 1 {
		t.Errorf("frequency of 'velocity' = %d, want 1", ix.Lookup("velocity")[1])
	}
	if ix.Lookup("goals")[1] != 1 {
		t.Errorf("frequency of 'goals' = %d, want 1", ix.Lookup("goals")[1])
	}
	if ix.TermCount() != 3 {
		t.Errorf("TermCount = %d, want 3", ix.TermCount())
	}
	if ix.MeetingCount() != 1 {
		t.Errorf("MeetingCount = %d, want 1", ix.MeetingCount())
	}
}

func TestAddDuplicateMeeting(t *testing.T) {
	ix := NewInvertedIndex()
	if err := ix.Add(1, "first version", baseTime); err != nil {
		t.Fatalf("Add: %v", err)
	}
	err := ix.Add(1, "second version", baseTime)
	if !errors.Is(err, apperrors.ErrMeetingExists) {
		t.Errorf("duplicate Add error = %v, want ErrMeetingExists", err)
	}
	// Original postings untouched.
	if ix.Lookup("first")[1] != 1 {
		t.Error("original postings should survive a rejected duplicate Add")
	}
	if len(ix.Lookup("second")) != 0 {
		t.Error("rejected Add must not leave partial postings")
	}
}

func TestRemoveErasesEveryPosting(t *testing.T) {
	ix := NewInvertedIndex()
	ix.Add(1, "alpha beta gamma alpha", baseTime)
	ix.Add(2, "beta delta", baseTime.Add(time.Hour))

	if !ix.Remove(1) {
		t.Fatal("Remove(1) = false, want true")
	}

	for _, term := range []string{"alpha", "gamma"} {
		if n := ix.DocumentCount(term); n != 0 {
			t.Errorf("DocumentCount(%q) = %d after removal, want 0", term, n)
		}
	}
	if ix.Lookup("beta")[2] != 1 {
		t.Error("postings of other meetings must survive removal")
	}
	if ix.Contains(1) {
		t.Error("Contains(1) = true after removal")
	}
}

func TestRemoveUnknownIsNoop(t *testing.T) {
	ix := NewInvertedIndex()
	ix.Add(1, "alpha beta", baseTime)

	if ix.Remove(42) {
		t.Error("Remove of unknown id should return false")
	}
	if ix.MeetingCount() != 1 || ix.TermCount() != 2 {
		t.Error("Remove of unknown id must not change index state")
	}
	// Remove twice: second call is a no-op.
	ix.Remove(1)
	if ix.Remove(1) {
		t.Error("second Remove of the same id should return false")
	}
}

func TestTermPruning(t *testing.T) {
	ix := NewInvertedIndex()
	ix.Add(1, "ephemeral keyword", baseTime)
	ix.Remove(1)

	if ix.TermCount() != 0 {
		t.Errorf("TermCount = %d after removing the only meeting, want 0", ix.TermCount())
	}
	if postings := ix.Lookup("ephemeral"); len(postings) != 0 {
		t.Errorf("Lookup of pruned term returned %v", postings)
	}
}

func TestUpdateReplacesPostings(t *testing.T) {
	ix := NewInvertedIndex()
	ix.Add(1, "kafka consumer lag", baseTime)

	ix.Update(1, "postgres migration plan", baseTime.Add(time.Hour))

	for _, stale := range []string{"kafka", "consumer", "lag"} {
		if ix.DocumentCount(stale) != 0 {
			t.Errorf("stale term %q still indexed after update", stale)
		}
	}
	for _, fresh := range []string{"postgres", "migration", "plan"} {
		if ix.Lookup(fresh)[1] != 1 {
			t.Errorf("updated term %q missing", fresh)
		}
	}
	if ix.MeetingCount() != 1 {
		t.Errorf("MeetingCount = %d after update, want 1", ix.MeetingCount())
	}
}

func TestUpdateUnindexedBehavesLikeAdd(t *testing.T) {
	ix := NewInvertedIndex()
	ix.Update(7, "fresh meeting notes", baseTime)

	if !ix.Contains(7) {
		t.Fatal("Update of unknown id should index the meeting")
	}
	if ix.Lookup("fresh")[7] != 1 {
		t.Error("postings missing after Update of unknown id")
	}
}

func TestEmptyNotesMeetingIsTracked(t *testing.T) {
	ix := NewInvertedIndex()
	if err := ix.Add(3, "", baseTime); err != nil {
		t.Fatalf("Add with empty notes: %v", err)
	}

	if !ix.Contains(3) {
		t.Error("meeting with empty notes should still be tracked")
	}
	if ix.TermCount() != 0 {
		t.Error("empty notes must contribute no terms")
	}
	if !ix.Remove(3) {
		t.Error("Remove of empty-notes meeting should report true")
	}
}

func TestCandidatesAccumulatesAcrossTerms(t *testing.T) {
	ix := NewInvertedIndex()
	ix.Add(1, "sprint velocity sprint goals", baseTime)
	ix.Add(2, "sprint retro notes", baseTime.Add(time.Hour))

	got := ix.Candidates([]string{"sprint", "retro"})
	scores := make(map[int64]int, len(got))
	for _, c := range got {
		scores[c.MeetingID] = c.Score
	}
	if scores[1] != 2 {
		t.Errorf("score of meeting 1 = %d, want 2", scores[1])
	}
	if scores[2] != 2 {
		t.Errorf("score of meeting 2 = %d, want 2 (sprint=1 + retro=1)", scores[2])
	}

	if got := ix.Candidates([]string{"database"}); len(got) != 0 {
		t.Errorf("Candidates for absent term = %v, want empty", got)
	}
}

func TestCandidatesCarriesTimestamps(t *testing.T) {
	ix := NewInvertedIndex()
	later := baseTime.Add(2 * time.Hour)
	ix.Add(1, "standup notes", baseTime)
	ix.Add(2, "standup notes", later)

	for _, c := range ix.Candidates([]string{"standup"}) {
		switch c.MeetingID {
		case 1:
			if !c.OccurredAt.Equal(baseTime) {
				t.Errorf("meeting 1 timestamp = %v, want %v", c.OccurredAt, baseTime)
			}
		case 2:
			if !c.OccurredAt.Equal(later) {
				t.Errorf("meeting 2 timestamp = %v, want %v", c.OccurredAt, later)
			}
		}
	}
}

func TestRebuildMatchesIncrementalBuild(t *testing.T) {
	docs := []Document{
		{MeetingID: 1, Text: "sprint velocity sprint goals", OccurredAt: baseTime},
		{MeetingID: 2, Text: "sprint retro notes", OccurredAt: baseTime.Add(time.Hour)},
		{MeetingID: 3, Text: "database migration kafka", OccurredAt: baseTime.Add(2 * time.Hour)},
	}

	incremental := NewInvertedIndex()
	for _, d := range docs {
		if err := incremental.Add(d.MeetingID, d.Text, d.OccurredAt); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	rebuilt := NewInvertedIndex()
	rebuilt.Add(99, "stale content to be replaced", baseTime)
	rebuilt.Rebuild(docs)

	if rebuilt.Contains(99) {
		t.Error("Rebuild must discard prior contents")
	}
	if rebuilt.TermCount() != incremental.TermCount() {
		t.Errorf("TermCount: rebuilt %d, incremental %d", rebuilt.TermCount(), incremental.TermCount())
	}
	if rebuilt.MeetingCount() != incremental.MeetingCount() {
		t.Errorf("MeetingCount: rebuilt %d, incremental %d", rebuilt.MeetingCount(), incremental.MeetingCount())
	}
	for _, term := range []string{"sprint", "retro", "database", "kafka"} {
		a, b := rebuilt.Lookup(term), incremental.Lookup(term)
		if len(a) != len(b) {
			t.Errorf("Lookup(%q): rebuilt %v, incremental %v", term, a, b)
			continue
		}
		for id, freq := range b {
			if a[id] != freq {
				t.Errorf("Lookup(%q)[%d]: rebuilt %d, incremental %d", term, id, a[id], freq)
			}
		}
	}
}

func TestRebuildLastWriteWinsOnDuplicateIDs(t *testing.T) {
	ix := NewInvertedIndex()
	ix.Rebuild([]Document{
		{MeetingID: 1, Text: "first draft agenda", OccurredAt: baseTime},
		{MeetingID: 1, Text: "final agenda", OccurredAt: baseTime.Add(time.Hour)},
	})

	if ix.MeetingCount() != 1 {
		t.Fatalf("MeetingCount = %d, want 1", ix.MeetingCount())
	}
	if ix.DocumentCount("draft") != 0 {
		t.Error("earlier duplicate's terms should be replaced")
	}
	if ix.Lookup("final")[1] != 1 {
		t.Error("later duplicate's terms should win")
	}
}

func TestLookupReturnsCopy(t *testing.T) {
	ix := NewInvertedIndex()
	ix.Add(1, "mutation check", baseTime)

	postings := ix.Lookup("mutation")
	postings[1] = 999
	if ix.Lookup("mutation")[1] != 1 {
		t.Error("mutating a Lookup result must not affect the index")
	}
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	ix := NewInvertedIndex()
	for i := int64(0); i < 50; i++ {
		ix.Add(i, fmt.Sprintf("seed topic%d shared", i), baseTime)
	}

	var readers, writers sync.WaitGroup
	stop := make(chan struct{})

	for r := 0; r < 8; r++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				for _, c := range ix.Candidates([]string{"shared", "seed"}) {
					// Scores are per-meeting sums of positive frequencies.
					if c.Score < 1 {
						t.Errorf("observed score %d below 1", c.Score)
						return
					}
				}
				ix.TermCount()
			}
		}()
	}

	for w := 0; w < 4; w++ {
		writers.Add(1)
		go func(w int) {
			defer writers.Done()
			for i := 0; i < 200; i++ {
				id := int64(100 + w*1000 + i)
				ix.Add(id, "shared churn content", baseTime)
				ix.Update(id, "shared churn revised", baseTime)
				ix.Remove(id)
			}
		}(w)
	}

	writers.Wait()
	close(stop)
	readers.Wait()

	// Writers removed everything they added, so only the seeds remain.
	if got := ix.MeetingCount(); got != 50 {
		t.Errorf("MeetingCount = %d after churn, want 50", got)
	}
}
