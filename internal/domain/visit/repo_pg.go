package visit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is satisfied by *pgxpool.Pool, *pgxpool.Conn and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

type historyRepoPG struct {
	db Querier
}

func NewHistoryRepoPG(db Querier) HistoryRepository {
	return &historyRepoPG{db: db}
}

func (r *historyRepoPG) Create(ctx context.Context, sc *StatusChange) error {
	if sc.ID == uuid.Nil {
		sc.ID = uuid.New()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO visit_status_history (id, visit_id, patient_id, from_status, to_status, action, changed_by, changed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		sc.ID, sc.VisitID, nullable(sc.PatientID), sc.FromStatus.String(), sc.ToStatus.String(),
		string(sc.Action), sc.ChangedBy, sc.ChangedAt,
	)
	return err
}

func (r *historyRepoPG) ListByVisit(ctx context.Context, visitID string) ([]*StatusChange, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, visit_id, patient_id, from_status, to_status, action, changed_by, changed_at
		FROM visit_status_history WHERE visit_id = $1 ORDER BY changed_at`, visitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []*StatusChange
	for rows.Next() {
		var (
			sc       StatusChange
			from, to string
			action   string
			patient  *string
		)
		if err := rows.Scan(&sc.ID, &sc.VisitID, &patient, &from, &to, &action, &sc.ChangedBy, &sc.ChangedAt); err != nil {
			return nil, err
		}
		if sc.FromStatus, err = ParseStatus(from); err != nil {
			return nil, fmt.Errorf("history %s: %w", sc.ID, err)
		}
		if sc.ToStatus, err = ParseStatus(to); err != nil {
			return nil, fmt.Errorf("history %s: %w", sc.ID, err)
		}
		if patient != nil {
			sc.PatientID = *patient
		}
		sc.Action = Action(action)
		history = append(history, &sc)
	}
	return history, rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
