package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/draftball/draft-league/internal/domain/fixture"
)

type FixtureRepository struct {
	mu    sync.RWMutex
	items map[int64]fixture.Fixture
}

func NewFixtureRepository() *FixtureRepository {
	return &FixtureRepository{items: make(map[int64]fixture.Fixture)}
}

func (r *FixtureRepository) ListByLeague(_ context.Context, leagueID string) ([]fixture.Fixture, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]fixture.Fixture, 0, len(r.items))
	for _, item := range r.items {
		if item.LeagueID == leagueID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *FixtureRepository) GetByID(_ context.Context, id int64) (fixture.Fixture, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	return item, ok, nil
}

func (r *FixtureRepository) UpsertMany(_ context.Context, items []fixture.Fixture) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		r.items[item.ID] = item
	}
	return nil
}

func (r *FixtureRepository) UpdateLiveState(_ context.Context, item fixture.Fixture) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[item.ID]
	if !ok {
		return fmt.Errorf("fixture %d not found", item.ID)
	}
	// Finalized only ever moves forward.
	if current.Finalized {
		item.Finalized = true
	}
	r.items[item.ID] = item
	return nil
}
