package review

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/matchgrid-ai/platform/pkg/common/models"
)

type fakeGateway struct {
	rows      []MatchRow
	applied   []RowUpdate
	failIDs   map[int64]string
	fetchErr  error
	applyHook func()
}

func (f *fakeGateway) FetchRows(ctx context.Context) ([]MatchRow, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := make([]MatchRow, len(f.rows))
	copy(out, f.rows)
	return out, nil
}

func (f *fakeGateway) ApplyEdits(ctx context.Context, updates []RowUpdate) (int, []models.WriteFailure, error) {
	if f.applyHook != nil {
		f.applyHook()
	}
	f.applied = append(f.applied, updates...)

	written := 0
	var failures []models.WriteFailure
	for _, u := range updates {
		if msg, ok := f.failIDs[u.ID]; ok {
			failures = append(failures, models.WriteFailure{ID: u.ID, Error: msg})
			continue
		}
		for i := range f.rows {
			if f.rows[i].ID == u.ID {
				f.rows[i].AcceptReject = u.Status
				if u.Comment != nil {
					f.rows[i].UserComment = u.Comment
					f.rows[i].CommentTimestamp = u.CommentAt
				}
			}
		}
		written++
	}
	return written, failures, nil
}

func (f *fakeGateway) CreateCandidate(ctx context.Context, row *MatchRow) error {
	if row.AcceptReject == "" {
		row.AcceptReject = StatusPending
	}
	f.rows = append(f.rows, *row)
	return nil
}

func newTestService(rows []MatchRow) (*Service, *fakeGateway) {
	gateway := &fakeGateway{rows: rows, failIDs: map[int64]string{}}
	svc := NewService(gateway, NewValidator(ModeTristate, 0), NewMemoryStore(0), nil, nil)
	return svc, gateway
}

// cloningStore round-trips sessions through JSON on every Get, the way a
// networked session store does, so callers never share a pointer.
type cloningStore struct {
	inner SessionStore
}

func (c *cloningStore) Save(ctx context.Context, session *Session) error {
	return c.inner.Save(ctx, session)
}

func (c *cloningStore) Get(ctx context.Context, id string) (*Session, error) {
	session, err := c.inner.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return nil, err
	}
	var clone Session
	if err := json.Unmarshal(raw, &clone); err != nil {
		return nil, err
	}
	return &clone, nil
}

func (c *cloningStore) Delete(ctx context.Context, id string) error {
	return c.inner.Delete(ctx, id)
}

func TestSubmitWithoutEditsIssuesNoUpdates(t *testing.T) {
	svc, gateway := newTestService(testRows())
	ctx := context.Background()

	snapshot, err := svc.Begin(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Echo the base values back, the way a full form post does.
	result, err := svc.Submit(ctx, snapshot.SessionID, []models.ReviewEdit{
		{ID: 1, Status: "Pending"},
		{ID: 2, Status: "Approved"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(gateway.applied) != 0 {
		t.Fatalf("expected zero UPDATE statements, got %d", len(gateway.applied))
	}
	if result.Written != 0 {
		t.Fatalf("expected zero rows written, got %d", result.Written)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("expected refreshed snapshot, got %d rows", len(result.Rows))
	}
}

func TestSubmitPartialFailureIsolation(t *testing.T) {
	svc, gateway := newTestService(testRows())
	ctx := context.Background()

	snapshot, err := svc.Begin(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := svc.Submit(ctx, snapshot.SessionID, []models.ReviewEdit{
		{ID: 1, Status: "Approved"},
		{ID: 2, Status: "Maybe"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Written != 1 {
		t.Fatalf("expected one row written, got %d", result.Written)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].ID != 2 {
		t.Fatalf("expected exactly one skip warning for row 2, got %+v", result.Skipped)
	}

	// The valid edit is observable on refetch.
	for _, row := range result.Rows {
		if row.ID == 1 && row.AcceptReject != StatusApproved {
			t.Fatalf("expected row 1 approved on refetch, got %q", row.AcceptReject)
		}
	}
	if len(gateway.applied) != 1 {
		t.Fatalf("expected one UPDATE, got %d", len(gateway.applied))
	}
}

func TestSubmitSkipsUnknownRow(t *testing.T) {
	svc, _ := newTestService(testRows())
	ctx := context.Background()

	snapshot, err := svc.Begin(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := svc.Submit(ctx, snapshot.SessionID, []models.ReviewEdit{
		{ID: 99, Status: "Approved"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Written != 0 || len(result.Skipped) != 1 {
		t.Fatalf("expected unknown row to be skipped, got %+v", result)
	}
}

func TestSubmitCommentSetsTimestamp(t *testing.T) {
	svc, gateway := newTestService([]MatchRow{{ID: 7, AcceptReject: StatusPending}})
	ctx := context.Background()

	snapshot, err := svc.Begin(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := svc.Submit(ctx, snapshot.SessionID, []models.ReviewEdit{
		{ID: 7, Status: "Approved", Comment: comment("ok")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Written != 1 {
		t.Fatalf("expected one row written, got %d", result.Written)
	}

	if len(gateway.applied) != 1 {
		t.Fatalf("expected one UPDATE, got %d", len(gateway.applied))
	}
	update := gateway.applied[0]
	if update.Comment == nil || *update.Comment != "ok" {
		t.Fatalf("expected comment in update, got %+v", update)
	}
	if update.CommentAt == nil {
		t.Fatal("expected a freshly generated comment timestamp")
	}

	for _, row := range result.Rows {
		if row.ID == 7 && row.CommentTimestamp == nil {
			t.Fatal("expected comment timestamp on refetch")
		}
	}
}

func TestSubmitCommentOnlyEditKeepsBaseStatus(t *testing.T) {
	svc, gateway := newTestService(testRows())
	ctx := context.Background()

	snapshot, err := svc.Begin(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// No status on the edit: the row keeps its base status.
	result, err := svc.Submit(ctx, snapshot.SessionID, []models.ReviewEdit{
		{ID: 1, Comment: comment("needs a second look")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Written != 1 || len(result.Skipped) != 0 {
		t.Fatalf("expected comment-only edit to commit cleanly, got %+v", result)
	}

	if len(gateway.applied) != 1 {
		t.Fatalf("expected one UPDATE, got %d", len(gateway.applied))
	}
	update := gateway.applied[0]
	if update.Status != StatusPending {
		t.Fatalf("expected base status to carry through, got %q", update.Status)
	}
	if update.Comment == nil || *update.Comment != "needs a second look" {
		t.Fatalf("expected comment in update, got %+v", update)
	}
	if update.CommentAt == nil {
		t.Fatal("expected a comment timestamp")
	}
}

func TestSubmitPersistsCommittingState(t *testing.T) {
	gateway := &fakeGateway{rows: testRows(), failIDs: map[int64]string{}}
	store := &cloningStore{inner: NewMemoryStore(0)}
	svc := NewService(gateway, NewValidator(ModeTristate, 0), store, nil, nil)
	ctx := context.Background()

	snapshot, err := svc.Begin(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	edits := []models.ReviewEdit{{ID: 1, Status: "Approved"}}

	// While writes are in flight, a second submit loading the session from
	// the store must see the committing state and refuse new edits.
	gateway.applyHook = func() {
		session, err := store.Get(ctx, snapshot.SessionID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if session.State != SessionCommitting {
			t.Fatalf("expected committing state in store, got %q", session.State)
		}

		gateway.applyHook = nil
		if _, err := svc.Submit(ctx, snapshot.SessionID, edits); !errors.Is(err, ErrSessionNotOpen) {
			t.Fatalf("expected ErrSessionNotOpen for the in-flight session, got %v", err)
		}
	}

	if _, err := svc.Submit(ctx, snapshot.SessionID, edits); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSubmitStatusOnlyLeavesCommentAlone(t *testing.T) {
	svc, gateway := newTestService(testRows())
	ctx := context.Background()

	snapshot, err := svc.Begin(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.Submit(ctx, snapshot.SessionID, []models.ReviewEdit{
		{ID: 2, Status: "Rejected"},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(gateway.applied) != 1 {
		t.Fatalf("expected one UPDATE, got %d", len(gateway.applied))
	}
	if gateway.applied[0].Comment != nil || gateway.applied[0].CommentAt != nil {
		t.Fatalf("expected status-only update, got %+v", gateway.applied[0])
	}
}

func TestSubmitReportsWriteFailures(t *testing.T) {
	svc, gateway := newTestService(testRows())
	gateway.failIDs[1] = "row locked"
	ctx := context.Background()

	snapshot, err := svc.Begin(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := svc.Submit(ctx, snapshot.SessionID, []models.ReviewEdit{
		{ID: 1, Status: "Approved"},
	})
	if err != nil {
		t.Fatalf("expected write failures to be non-fatal, got %v", err)
	}
	if result.Written != 0 || len(result.Failures) != 1 || result.Failures[0].ID != 1 {
		t.Fatalf("expected one reported failure for row 1, got %+v", result)
	}
}

func TestSubmitSessionSingleUse(t *testing.T) {
	svc, _ := newTestService(testRows())
	ctx := context.Background()

	snapshot, err := svc.Begin(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.Submit(ctx, snapshot.SessionID, []models.ReviewEdit{
		{ID: 1, Status: "Approved"},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = svc.Submit(ctx, snapshot.SessionID, []models.ReviewEdit{
		{ID: 1, Status: "Rejected"},
	})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound on reuse, got %v", err)
	}
}

func TestIngestCandidate(t *testing.T) {
	svc, gateway := newTestService(nil)

	event := models.Event{
		Type: "match-candidate",
		Data: map[string]interface{}{
			"candidate": map[string]interface{}{
				"bdid":         "BD-9",
				"product":      "Widget",
				"ts_item":      "TS-9",
				"bd_item":      "BD-ITEM-9",
				"match_status": "fuzzy",
			},
		},
	}

	if err := svc.IngestCandidate(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gateway.rows) != 1 {
		t.Fatalf("expected one candidate row, got %d", len(gateway.rows))
	}
	if gateway.rows[0].AcceptReject != StatusPending {
		t.Fatalf("expected new candidate to default to Pending, got %q", gateway.rows[0].AcceptReject)
	}
}

func TestIngestCandidateRejectsMissingPayload(t *testing.T) {
	svc, _ := newTestService(nil)
	if err := svc.IngestCandidate(context.Background(), models.Event{Type: "match-candidate"}); err == nil {
		t.Fatal("expected error for missing candidate payload")
	}
}
