package visit

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// historyRepoMem keeps history in process memory. It is used when no
// database is configured.
type historyRepoMem struct {
	mu      sync.RWMutex
	byVisit map[string][]*StatusChange
}

func NewHistoryRepoMem() HistoryRepository {
	return &historyRepoMem{byVisit: make(map[string][]*StatusChange)}
}

func (r *historyRepoMem) Create(_ context.Context, sc *StatusChange) error {
	if sc.ID == uuid.Nil {
		sc.ID = uuid.New()
	}
	cp := *sc

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byVisit[sc.VisitID] = append(r.byVisit[sc.VisitID], &cp)
	return nil
}

func (r *historyRepoMem) ListByVisit(_ context.Context, visitID string) ([]*StatusChange, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src := r.byVisit[visitID]
	out := make([]*StatusChange, 0, len(src))
	for _, sc := range src {
		cp := *sc
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ChangedAt.Before(out[j].ChangedAt)
	})
	return out, nil
}
