package index

import "time"

// Posting records how many times a term occurs in one meeting's notes.
type Posting struct {
	MeetingID int64
	Frequency int
}

// Document is the unit handed to the index: a meeting's id, its notes text,
// and the meeting timestamp used for ranking tie-breaks.
type Document struct {
	MeetingID  int64
	Text       string
	OccurredAt time.Time
}

// Candidate is a meeting matched by at least one query term, carrying the
// accumulated term-frequency sum and the timestamp needed for ranking.
type Candidate struct {
	MeetingID  int64
	Score      int
	OccurredAt time.Time
}
