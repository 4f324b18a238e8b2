package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/draftball/draft-league/internal/domain/pool"
)

type PoolRepository struct {
	mu    sync.RWMutex
	items map[string]pool.Entry
}

func NewPoolRepository() *PoolRepository {
	return &PoolRepository{items: make(map[string]pool.Entry)}
}

func (r *PoolRepository) ListByLeague(_ context.Context, leagueID string) ([]pool.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]pool.Entry, 0, len(r.items))
	for _, item := range r.items {
		if item.LeagueID == leagueID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpsertMany inserts or refreshes entries while preserving the draft
// assignment and accumulated scores of existing rows.
func (r *PoolRepository) UpsertMany(_ context.Context, items []pool.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range items {
		if current, ok := r.items[item.ID]; ok {
			if item.DraftedBy == "" {
				item.DraftedBy = current.DraftedBy
			}
			if item.Scores == nil {
				item.Scores = current.Scores
			}
		}
		r.items[item.ID] = item
	}
	return nil
}

func (r *PoolRepository) ReplaceStageScores(_ context.Context, leagueID, stage string, playerPoints, teamPoints map[int64]int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, item := range r.items {
		if item.LeagueID != leagueID {
			continue
		}

		// Assets absent from the maps are reset to zero for the stage.
		source := playerPoints
		if item.IsTeamDefense {
			source = teamPoints
		}
		points := source[item.AssetKey()]

		if item.Scores == nil {
			item.Scores = make(map[string]int)
		}
		item.Scores[stage] = points
		r.items[id] = item
	}
	return nil
}
