package review

import "testing"

func comment(s string) *string {
	return &s
}

func testRows() []MatchRow {
	return []MatchRow{
		{ID: 1, BDID: "BD-1", Product: "Widget", AcceptReject: StatusPending},
		{ID: 2, BDID: "BD-2", Product: "Gadget", AcceptReject: StatusApproved, UserComment: comment("checked")},
	}
}

func TestRecordEditLastWriteWins(t *testing.T) {
	s := NewSession(ModeTristate, testRows())

	if err := s.RecordEdit(1, FieldStatus, "Approved"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.RecordEdit(1, FieldStatus, "Rejected"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	row, ok := s.Reconstitute(1)
	if !ok {
		t.Fatal("expected row 1 in snapshot")
	}
	if row.AcceptReject != StatusRejected {
		t.Fatalf("expected last write to win, got %q", row.AcceptReject)
	}
}

func TestRecordEditSuppressesNoOps(t *testing.T) {
	s := NewSession(ModeTristate, testRows())

	// Echoing the base values back records nothing.
	if err := s.RecordEdit(1, FieldStatus, "Pending"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.RecordEdit(2, FieldComment, "checked"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ids := s.EditedIDs(); len(ids) != 0 {
		t.Fatalf("expected no recorded edits, got %v", ids)
	}

	// A value that overwrites a real edit sticks even when it matches base.
	if err := s.RecordEdit(1, FieldStatus, "Approved"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.RecordEdit(1, FieldStatus, "Pending"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ids := s.EditedIDs(); len(ids) != 1 {
		t.Fatalf("expected one edited row, got %v", ids)
	}
}

func TestRecordEditRejectedAfterCommitBegins(t *testing.T) {
	s := NewSession(ModeTristate, testRows())
	if err := s.BeginCommit(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.RecordEdit(1, FieldStatus, "Approved"); err != ErrSessionNotOpen {
		t.Fatalf("expected ErrSessionNotOpen, got %v", err)
	}
	if err := s.BeginCommit(); err != ErrSessionNotOpen {
		t.Fatalf("expected ErrSessionNotOpen on double commit, got %v", err)
	}
}

func TestRecordEditUnknownField(t *testing.T) {
	s := NewSession(ModeTristate, testRows())
	if err := s.RecordEdit(1, "product", "Doohickey"); err != ErrUnknownField {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestReconstituteKeepsHiddenFields(t *testing.T) {
	s := NewSession(ModeTristate, testRows())
	if err := s.RecordEdit(1, FieldStatus, "Approved"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	row, ok := s.Reconstitute(1)
	if !ok {
		t.Fatal("expected row 1 in snapshot")
	}
	if row.AcceptReject != StatusApproved {
		t.Fatalf("expected edited status, got %q", row.AcceptReject)
	}
	if row.Product != "Widget" {
		t.Fatalf("expected hidden field to round-trip from base, got %q", row.Product)
	}
	if row.UserComment != nil {
		t.Fatalf("expected untouched comment to stay nil, got %q", *row.UserComment)
	}
}

func TestReconstituteUnknownRow(t *testing.T) {
	s := NewSession(ModeTristate, testRows())
	if _, ok := s.Reconstitute(99); ok {
		t.Fatal("expected unknown row to be absent")
	}
}
