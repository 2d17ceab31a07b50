package review

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Session lifecycle. A session is single-use: once it leaves Open it never
// accepts edits again, and a new submit always starts from a fresh fetch.
const (
	SessionOpen       = "open"
	SessionCommitting = "committing"
	SessionClosed     = "closed"
)

// Editable fields of the review projection.
const (
	FieldStatus  = "status"
	FieldComment = "comment"
)

var (
	ErrSessionNotOpen = errors.New("session no longer accepts edits")
	ErrUnknownField   = errors.New("unknown editable field")
)

// RowEdit holds the latest recorded value per editable field of one row.
// Last write wins within a session.
type RowEdit struct {
	Status  *string `json:"status,omitempty"`
	Comment *string `json:"comment,omitempty"`
}

// Session bridges a read-only base snapshot and the reviewer's pending
// deltas. Fields excluded from the editable projection always round-trip
// from the base snapshot on reconstitution.
type Session struct {
	ID        string             `json:"id"`
	Mode      Mode               `json:"mode"`
	State     string             `json:"state"`
	CreatedAt time.Time          `json:"created_at"`
	Base      map[int64]MatchRow `json:"base"`
	Edits     map[int64]*RowEdit `json:"edits,omitempty"`
}

func NewSession(mode Mode, rows []MatchRow) *Session {
	base := make(map[int64]MatchRow, len(rows))
	for _, row := range rows {
		base[row.ID] = row
	}

	return &Session{
		ID:        uuid.New().String(),
		Mode:      mode,
		State:     SessionOpen,
		CreatedAt: time.Now().UTC(),
		Base:      base,
		Edits:     make(map[int64]*RowEdit),
	}
}

// RecordEdit stores the latest value for one field of one row. An edit that
// matches the base snapshot is dropped unless it overwrites an earlier
// recorded edit, so form posts that echo every field back stay empty.
func (s *Session) RecordEdit(id int64, field, value string) error {
	if s.State != SessionOpen {
		return ErrSessionNotOpen
	}

	if s.Edits == nil {
		s.Edits = make(map[int64]*RowEdit)
	}
	edit := s.Edits[id]

	switch field {
	case FieldStatus:
		if base, ok := s.Base[id]; ok && (edit == nil || edit.Status == nil) && canonicalStatus(value) == base.AcceptReject {
			return nil
		}
		if edit == nil {
			edit = &RowEdit{}
			s.Edits[id] = edit
		}
		v := value
		edit.Status = &v
	case FieldComment:
		if base, ok := s.Base[id]; ok && (edit == nil || edit.Comment == nil) && value == baseComment(base) {
			return nil
		}
		if edit == nil {
			edit = &RowEdit{}
			s.Edits[id] = edit
		}
		v := value
		edit.Comment = &v
	default:
		return ErrUnknownField
	}

	return nil
}

func baseComment(row MatchRow) string {
	if row.UserComment == nil {
		return ""
	}
	return *row.UserComment
}

// EditedIDs returns the rows with at least one recorded edit, in id order.
func (s *Session) EditedIDs() []int64 {
	ids := make([]int64, 0, len(s.Edits))
	for id := range s.Edits {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Edit returns the recorded deltas for one row.
func (s *Session) Edit(id int64) (RowEdit, bool) {
	edit, ok := s.Edits[id]
	if !ok {
		return RowEdit{}, false
	}
	return *edit, true
}

// Reconstitute merges the base snapshot with the recorded edits into the
// full row: original values for everything hidden from the editable
// projection, overlaid with the edited status and comment.
func (s *Session) Reconstitute(id int64) (MatchRow, bool) {
	row, ok := s.Base[id]
	if !ok {
		return MatchRow{}, false
	}

	if edit, ok := s.Edits[id]; ok {
		if edit.Status != nil {
			row.AcceptReject = canonicalStatus(*edit.Status)
		}
		if edit.Comment != nil {
			row.UserComment = edit.Comment
		}
	}
	return row, true
}

// BeginCommit moves the session out of Open; no further edits are accepted
// once writes are in flight.
func (s *Session) BeginCommit() error {
	if s.State != SessionOpen {
		return ErrSessionNotOpen
	}
	s.State = SessionCommitting
	return nil
}

func (s *Session) Close() {
	s.State = SessionClosed
}
