package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/draftball/draft-league/internal/domain/matchstat"
)

type MatchStatRepository struct {
	mu      sync.RWMutex
	players map[int64][]matchstat.MatchStat
	teams   map[int64][]matchstat.TeamMatchStat
}

func NewMatchStatRepository() *MatchStatRepository {
	return &MatchStatRepository{
		players: make(map[int64][]matchstat.MatchStat),
		teams:   make(map[int64][]matchstat.TeamMatchStat),
	}
}

func (r *MatchStatRepository) ReplaceForFixture(_ context.Context, fixtureID int64, players []matchstat.MatchStat, teams []matchstat.TeamMatchStat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.players[fixtureID] = append([]matchstat.MatchStat(nil), players...)
	r.teams[fixtureID] = append([]matchstat.TeamMatchStat(nil), teams...)
	return nil
}

func (r *MatchStatRepository) ListByLeague(_ context.Context, leagueID string) ([]matchstat.MatchStat, []matchstat.TeamMatchStat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var players []matchstat.MatchStat
	var teams []matchstat.TeamMatchStat
	for _, rows := range r.players {
		for _, row := range rows {
			if row.LeagueID == leagueID {
				players = append(players, row)
			}
		}
	}
	for _, rows := range r.teams {
		for _, row := range rows {
			if row.LeagueID == leagueID {
				teams = append(teams, row)
			}
		}
	}

	sort.Slice(players, func(i, j int) bool {
		if players[i].FixtureID != players[j].FixtureID {
			return players[i].FixtureID < players[j].FixtureID
		}
		return players[i].PlayerID < players[j].PlayerID
	})
	sort.Slice(teams, func(i, j int) bool {
		if teams[i].FixtureID != teams[j].FixtureID {
			return teams[i].FixtureID < teams[j].FixtureID
		}
		return teams[i].TeamID < teams[j].TeamID
	})
	return players, teams, nil
}
