package review

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/matchgrid-ai/platform/pkg/common/models"
	"gorm.io/gorm"
)

var (
	// ErrStoreUnavailable marks connection-level failures: nothing was read
	// or written.
	ErrStoreUnavailable = errors.New("review store unreachable")
	// ErrQueryFailed marks malformed statements or schema drift.
	ErrQueryFailed = errors.New("review query failed")
)

// Repository is the store gateway for the review table. Reads are a full
// table scan; writes are independent per-row UPDATE statements keyed by id.
type Repository struct {
	db    *gorm.DB
	table string
	mode  Mode
}

func NewRepository(db *gorm.DB, table string, mode Mode) *Repository {
	return &Repository{db: db, table: table, mode: mode}
}

func (r *Repository) AutoMigrate() error {
	return r.db.Table(r.table).AutoMigrate(&MatchRow{})
}

// FetchRows loads the entire working set, normalizing null statuses to the
// mode default so the caller never sees a null tri-state.
func (r *Repository) FetchRows(ctx context.Context) ([]MatchRow, error) {
	var rows []MatchRow
	result := r.db.WithContext(ctx).Table(r.table).Order("id").Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("fetching review rows: %w", classifyStoreError(result.Error))
	}

	for i := range rows {
		Normalize(r.mode, &rows[i])
	}
	return rows, nil
}

// ApplyEdits issues one parameterized UPDATE per row. A failure on one row
// is collected and the loop continues; updates already issued are not rolled
// back.
func (r *Repository) ApplyEdits(ctx context.Context, updates []RowUpdate) (int, []models.WriteFailure, error) {
	written := 0
	var failures []models.WriteFailure

	for _, u := range updates {
		values := map[string]interface{}{
			"accept_reject": r.mode.Encode(u.Status),
		}
		if u.Comment != nil {
			values["user_comment"] = *u.Comment
			values["comment_timestamp"] = u.CommentAt
		}

		result := r.db.WithContext(ctx).Table(r.table).Where("id = ?", u.ID).Updates(values)
		if result.Error != nil {
			failures = append(failures, models.WriteFailure{ID: u.ID, Error: result.Error.Error()})
			continue
		}
		if result.RowsAffected == 0 {
			failures = append(failures, models.WriteFailure{ID: u.ID, Error: "no row with this id"})
			continue
		}
		written++
	}

	return written, failures, nil
}

// CreateCandidate inserts a new match candidate with the mode default status.
func (r *Repository) CreateCandidate(ctx context.Context, row *MatchRow) error {
	if row.AcceptReject == "" {
		row.AcceptReject = r.mode.DefaultStatus()
	}

	values := map[string]interface{}{
		"bdid":           row.BDID,
		"product":        row.Product,
		"componentgroup": row.ComponentGroup,
		"ts_item":        row.TSItem,
		"bd_item":        row.BDItem,
		"match_status":   row.MatchStatus,
		"accept_reject":  r.mode.Encode(row.AcceptReject),
	}
	if row.ID > 0 {
		values["id"] = row.ID
	}

	result := r.db.WithContext(ctx).Table(r.table).Create(values)
	if result.Error != nil {
		return fmt.Errorf("inserting match candidate: %w", classifyStoreError(result.Error))
	}
	return nil
}

func classifyStoreError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%w: %v", ErrQueryFailed, err)
}
