package review

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/matchgrid-ai/platform/pkg/common/models"
)

// Status is the reviewer's classification of a match candidate. It is never
// null in memory: nulls in the store collapse to the empty string on scan and
// are normalized to the mode default at fetch time.
type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

// Scan accepts the tri-state text column as well as the legacy boolean
// column (bools from postgres, 0/1 integers from sqlite).
func (s *Status) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*s = ""
	case string:
		*s = canonicalStatus(v)
	case []byte:
		*s = canonicalStatus(string(v))
	case bool:
		if v {
			*s = StatusApproved
		} else {
			*s = StatusPending
		}
	case int64:
		if v != 0 {
			*s = StatusApproved
		} else {
			*s = StatusPending
		}
	default:
		return fmt.Errorf("unsupported status column type %T", value)
	}
	return nil
}

func (s Status) Value() (driver.Value, error) {
	return string(s), nil
}

func canonicalStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return ""
	case "pending":
		return StatusPending
	case "approved":
		return StatusApproved
	case "rejected":
		return StatusRejected
	case "true", "1":
		return StatusApproved
	case "false", "0":
		return StatusPending
	default:
		// Preserved as-is; pre-write validation rejects it.
		return Status(raw)
	}
}

// Mode selects the active review variant. The legacy boolean variant stores
// a single accept flag where Pending and false coincide.
type Mode string

const (
	ModeTristate Mode = "tristate"
	ModeBoolean  Mode = "boolean"
)

func ParseMode(raw string) Mode {
	if strings.EqualFold(strings.TrimSpace(raw), string(ModeBoolean)) {
		return ModeBoolean
	}
	return ModeTristate
}

func (m Mode) DefaultStatus() Status {
	return StatusPending
}

// Statuses lists the values the editable control offers.
func (m Mode) Statuses() []Status {
	if m == ModeBoolean {
		return []Status{StatusPending, StatusApproved}
	}
	return []Status{StatusPending, StatusApproved, StatusRejected}
}

// Encode maps a status to the value written to the accept_reject column:
// its string form in tristate mode, a boolean in the legacy variant.
func (m Mode) Encode(s Status) interface{} {
	if m == ModeBoolean {
		return s == StatusApproved
	}
	return string(s)
}

// ParseStatus maps reviewer input to a member of the mode's domain.
func (m Mode) ParseStatus(raw string) (Status, error) {
	s := canonicalStatus(raw)
	switch s {
	case StatusPending, StatusApproved:
		return s, nil
	case StatusRejected:
		if m == ModeBoolean {
			// Legacy variant has no distinct rejected state.
			return StatusPending, nil
		}
		return s, nil
	case "":
		return "", fmt.Errorf("status is empty")
	default:
		return "", fmt.Errorf("unknown status %q", raw)
	}
}

// MatchRow is one match candidate under review. Column names are the fixed
// store contract; only accept_reject, user_comment and comment_timestamp are
// ever written, keyed by id.
type MatchRow struct {
	ID               int64      `json:"id" gorm:"primaryKey;column:id"`
	BDID             string     `json:"bdid" gorm:"column:bdid"`
	Product          string     `json:"product" gorm:"column:product"`
	ComponentGroup   string     `json:"component_group" gorm:"column:componentgroup"`
	TSItem           string     `json:"ts_item" gorm:"column:ts_item"`
	BDItem           string     `json:"bd_item" gorm:"column:bd_item"`
	MatchStatus      string     `json:"match_status" gorm:"column:match_status"`
	AcceptReject     Status     `json:"accept_reject" gorm:"column:accept_reject"`
	UserComment      *string    `json:"user_comment,omitempty" gorm:"column:user_comment"`
	CommentTimestamp *time.Time `json:"comment_timestamp,omitempty" gorm:"column:comment_timestamp"`
}

// Normalize fills a null status with the mode default. Every other field
// passes through unchanged.
func Normalize(mode Mode, row *MatchRow) {
	if row.AcceptReject == "" {
		row.AcceptReject = mode.DefaultStatus()
	}
}

// RowUpdate is one reconstituted row handed to the store gateway. Comment and
// CommentAt are set together, and only when a comment edit was recorded.
type RowUpdate struct {
	ID        int64
	Status    Status
	Comment   *string
	CommentAt *time.Time
}

// Snapshot is a freshly fetched working set bound to an open session.
type Snapshot struct {
	SessionID string     `json:"session_id"`
	Mode      Mode       `json:"mode"`
	Rows      []MatchRow `json:"rows"`
}

// CommitResult reports one commit: rows persisted, edits skipped by
// validation, per-row write failures, and the refreshed working set.
type CommitResult struct {
	Written  int                   `json:"written"`
	Skipped  []models.SkipWarning  `json:"skipped,omitempty"`
	Failures []models.WriteFailure `json:"failures,omitempty"`
	Rows     []MatchRow            `json:"rows"`
}
