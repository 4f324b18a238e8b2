// Package memory holds mutex-guarded map implementations of the domain
// repositories, used by tests and database-less local runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/draftball/draft-league/internal/domain/league"
)

type LeagueRepository struct {
	mu    sync.RWMutex
	items map[string]league.League
}

func NewLeagueRepository() *LeagueRepository {
	return &LeagueRepository{items: make(map[string]league.League)}
}

func (r *LeagueRepository) Seed(items ...league.League) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		r.items[item.ID] = item
	}
}

func (r *LeagueRepository) GetByID(_ context.Context, id string) (league.League, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	return item, ok, nil
}

func (r *LeagueRepository) ListActive(_ context.Context) ([]league.League, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]league.League, 0, len(r.items))
	for _, item := range r.items {
		if item.DraftState == league.DraftStateComplete || item.DraftState == league.DraftStateActive {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
