package visit

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/patientflow/internal/platform/apperr"
)

// HistoryService records and lists accepted visit transitions.
type HistoryService struct {
	repo   HistoryRepository
	logger zerolog.Logger
	now    func() time.Time
}

func NewHistoryService(repo HistoryRepository, logger zerolog.Logger) *HistoryService {
	return &HistoryService{repo: repo, logger: logger, now: time.Now}
}

// RecordStatusChange validates the transition and appends it to the
// visit's history.
func (s *HistoryService) RecordStatusChange(ctx context.Context, v *Visit, from Status, action Action, changedBy string) error {
	if err := ValidateTransition(from, v.Status); err != nil {
		return err
	}
	sc := &StatusChange{
		VisitID:    v.ID,
		PatientID:  v.PatientID,
		FromStatus: from,
		ToStatus:   v.Status,
		Action:     action,
		ChangedBy:  changedBy,
		ChangedAt:  s.now().UTC(),
	}
	if err := s.repo.Create(ctx, sc); err != nil {
		return fmt.Errorf("record status change for visit %s: %w", v.ID, err)
	}
	s.logger.Info().
		Str("visit_id", v.ID).
		Str("from", from.String()).
		Str("to", v.Status.String()).
		Str("action", string(action)).
		Str("changed_by", changedBy).
		Msg("visit status changed")
	return nil
}

// History returns the recorded transitions of a visit, oldest first.
func (s *HistoryService) History(ctx context.Context, visitID string) ([]*StatusChange, error) {
	if visitID == "" {
		return nil, apperr.Validation("visit id is required")
	}
	return s.repo.ListByVisit(ctx, visitID)
}
