package models

import "time"

// Event bus envelope shared by every producer and consumer.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // match-candidate, review-decision
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// ReviewEdit is one pending change to one row, as submitted by a reviewer.
// An empty Status means the status is unchanged. Comment is a pointer so
// "no comment edit" and "comment cleared" stay distinguishable on the wire.
type ReviewEdit struct {
	ID      int64   `json:"id"`
	Status  string  `json:"status"`
	Comment *string `json:"comment,omitempty"`
}

type SubmitRequest struct {
	Edits []ReviewEdit `json:"edits"`
}

// SkipWarning reports an edit that failed pre-write validation and was
// omitted from the batch.
type SkipWarning struct {
	ID     int64  `json:"id"`
	Reason string `json:"reason"`
}

// WriteFailure reports a single UPDATE that did not persist. Updates already
// issued for other rows are not rolled back.
type WriteFailure struct {
	ID    int64  `json:"id"`
	Error string `json:"error"`
}
