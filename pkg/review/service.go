package review

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/matchgrid-ai/platform/pkg/common/kafka"
	"github.com/matchgrid-ai/platform/pkg/common/logger"
	"github.com/matchgrid-ai/platform/pkg/common/models"
	"github.com/matchgrid-ai/platform/pkg/observability/metrics"
)

// Gateway is the store-facing contract of the review service.
type Gateway interface {
	FetchRows(ctx context.Context) ([]MatchRow, error)
	ApplyEdits(ctx context.Context, updates []RowUpdate) (int, []models.WriteFailure, error)
	CreateCandidate(ctx context.Context, row *MatchRow) error
}

// Service runs one fetch-edit-commit cycle per reviewer interaction. It never
// trusts its own in-memory state after a commit: the refreshed snapshot is
// always re-fetched from the store.
type Service struct {
	gateway   Gateway
	validator *Validator
	sessions  SessionStore
	producer  *kafka.Producer
	dlq       *kafka.Producer
}

func NewService(gateway Gateway, validator *Validator, sessions SessionStore, producer, dlq *kafka.Producer) *Service {
	return &Service{
		gateway:   gateway,
		validator: validator,
		sessions:  sessions,
		producer:  producer,
		dlq:       dlq,
	}
}

func (s *Service) Mode() Mode {
	return s.validator.Mode()
}

// Begin fetches the working set and opens a single-use session over it.
func (s *Service) Begin(ctx context.Context) (*Snapshot, error) {
	rows, err := s.gateway.FetchRows(ctx)
	if err != nil {
		return nil, err
	}

	session := NewSession(s.Mode(), rows)
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}

	metrics.ObserveSessionStarted(len(rows))
	return &Snapshot{SessionID: session.ID, Mode: session.Mode, Rows: rows}, nil
}

// Submit records the reviewer's edits on the session, validates and
// reconstitutes every edited row, writes the batch, then discards the
// session and re-fetches the table. An empty status on an edit means the
// status is unchanged; the reconstituted row keeps its base value, so a
// comment-only edit still commits. Validation failures are collected as
// skip warnings; per-row write failures do not abort the batch.
func (s *Service) Submit(ctx context.Context, sessionID string, edits []models.ReviewEdit) (*CommitResult, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	for _, edit := range edits {
		if edit.Status != "" {
			if err := session.RecordEdit(edit.ID, FieldStatus, edit.Status); err != nil {
				return nil, err
			}
		}
		if edit.Comment != nil {
			if err := session.RecordEdit(edit.ID, FieldComment, *edit.Comment); err != nil {
				return nil, err
			}
		}
	}

	if err := session.BeginCommit(); err != nil {
		return nil, err
	}
	// Make the committing state visible to other processes sharing the
	// session store. Best effort: the store is not a lock.
	if err := s.sessions.Save(ctx, session); err != nil {
		logger.Log.WithError(err).Warn("failed to persist committing session state")
	}

	now := time.Now().UTC()
	var updates []RowUpdate
	var skipped []models.SkipWarning

	for _, id := range session.EditedIDs() {
		row, ok := session.Reconstitute(id)
		if !ok {
			skipped = append(skipped, models.SkipWarning{ID: id, Reason: "unknown row"})
			continue
		}
		edit, _ := session.Edit(id)

		status, err := s.validator.ValidateEdit(id, string(row.AcceptReject), edit.Comment)
		if err != nil {
			logger.Log.WithFields(map[string]interface{}{
				"row_id": id,
				"reason": err.Error(),
			}).Warn("edit skipped")
			skipped = append(skipped, models.SkipWarning{ID: id, Reason: err.Error()})
			continue
		}

		update := RowUpdate{ID: id, Status: status}
		if edit.Comment != nil {
			update.Comment = row.UserComment
			ts := now
			update.CommentAt = &ts
		}
		updates = append(updates, update)
	}

	written, failures, err := s.gateway.ApplyEdits(ctx, updates)
	if err != nil {
		return nil, err
	}

	session.Close()
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		logger.Log.WithError(err).Warn("failed to discard session")
	}

	s.publishDecision(ctx, session, written, len(skipped), len(failures))

	rows, err := s.gateway.FetchRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("refreshing after commit: %w", err)
	}

	metrics.ObserveCommit(written, len(skipped), len(failures))

	return &CommitResult{
		Written:  written,
		Skipped:  skipped,
		Failures: failures,
		Rows:     rows,
	}, nil
}

func (s *Service) publishDecision(ctx context.Context, session *Session, written, skipped, failed int) {
	if s.producer == nil {
		return
	}

	payload := map[string]interface{}{
		"session_id": session.ID,
		"mode":       string(session.Mode),
		"written":    written,
		"skipped":    skipped,
		"failed":     failed,
	}

	if err := s.producer.PublishEvent(ctx, "review-decision", "review-service", payload); err != nil {
		logger.Log.WithError(err).Error("failed to publish review decision")
		if s.dlq != nil {
			_ = s.dlq.PublishEvent(ctx, "review-decision", "review-service", payload)
		}
	}
}

type candidatePayload struct {
	ID             int64  `json:"id,omitempty"`
	BDID           string `json:"bdid"`
	Product        string `json:"product"`
	ComponentGroup string `json:"componentgroup"`
	TSItem         string `json:"ts_item"`
	BDItem         string `json:"bd_item"`
	MatchStatus    string `json:"match_status"`
}

// IngestCandidate maps a match-candidate event into a new pending row.
func (s *Service) IngestCandidate(ctx context.Context, event models.Event) error {
	raw, ok := event.Data["candidate"].(map[string]interface{})
	if !ok {
		return fmt.Errorf("candidate payload missing")
	}

	bytes, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	var payload candidatePayload
	if err := json.Unmarshal(bytes, &payload); err != nil {
		return err
	}

	row := &MatchRow{
		ID:             payload.ID,
		BDID:           payload.BDID,
		Product:        payload.Product,
		ComponentGroup: payload.ComponentGroup,
		TSItem:         payload.TSItem,
		BDItem:         payload.BDItem,
		MatchStatus:    payload.MatchStatus,
	}

	if err := s.gateway.CreateCandidate(ctx, row); err != nil {
		return err
	}

	metrics.ObserveCandidate()
	return nil
}
