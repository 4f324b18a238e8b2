package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/draftball/draft-league/internal/domain/fixture"
	"github.com/draftball/draft-league/internal/domain/league"
	"github.com/draftball/draft-league/internal/domain/pool"
	"github.com/draftball/draft-league/internal/platform/logging"
)

// RosterService seeds and refreshes a league's draftable pool from the
// provider's squad rosters. Squad fetches are cached by the gateway, so
// repeated syncs inside the cache window cost no upstream calls.
type RosterService struct {
	provider    LiveDataProvider
	leagueRepo  league.Repository
	fixtureRepo fixture.Repository
	poolRepo    pool.Repository
	logger      *logging.Logger
}

func NewRosterService(
	provider LiveDataProvider,
	leagueRepo league.Repository,
	fixtureRepo fixture.Repository,
	poolRepo pool.Repository,
	logger *logging.Logger,
) *RosterService {
	if logger == nil {
		logger = logging.Default()
	}
	return &RosterService{
		provider:    provider,
		leagueRepo:  leagueRepo,
		fixtureRepo: fixtureRepo,
		poolRepo:    poolRepo,
		logger:      logger,
	}
}

type RosterSyncResult struct {
	Teams   int `json:"teams"`
	Players int `json:"players"`
	Failed  int `json:"failed"`
}

// SyncLeaguePool upserts one pool entry per rostered player plus one
// team-defense entry per team appearing in the league's fixtures. Draft
// assignments and accumulated scores on existing entries are preserved.
func (s *RosterService) SyncLeaguePool(ctx context.Context, leagueID string) (RosterSyncResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RosterService.SyncLeaguePool")
	defer span.End()

	lg, ok, err := s.leagueRepo.GetByID(ctx, leagueID)
	if err != nil {
		return RosterSyncResult{}, fmt.Errorf("get league: %w", err)
	}
	if !ok {
		return RosterSyncResult{}, fmt.Errorf("%w: league %s", ErrNotFound, leagueID)
	}

	fixtures, err := s.fixtureRepo.ListByLeague(ctx, lg.ID)
	if err != nil {
		return RosterSyncResult{}, fmt.Errorf("list fixtures: %w", err)
	}

	teamNames := make(map[int64]string, 32)
	for _, item := range fixtures {
		if item.HomeTeamID > 0 {
			teamNames[item.HomeTeamID] = item.HomeTeamName
		}
		if item.AwayTeamID > 0 {
			teamNames[item.AwayTeamID] = item.AwayTeamName
		}
	}

	teamIDs := make([]int64, 0, len(teamNames))
	for id := range teamNames {
		teamIDs = append(teamIDs, id)
	}
	sort.Slice(teamIDs, func(i, j int) bool { return teamIDs[i] < teamIDs[j] })

	result := RosterSyncResult{Teams: len(teamIDs)}
	entries := make([]pool.Entry, 0, len(teamIDs)*26)

	for _, teamID := range teamIDs {
		entries = append(entries, pool.Entry{
			ID:            fmt.Sprintf("%s:team:%d", lg.ID, teamID),
			LeagueID:      lg.ID,
			TeamID:        teamID,
			IsTeamDefense: true,
			Name:          teamNames[teamID],
			Position:      "DEF",
		})

		squad, err := s.provider.FetchTeamSquad(ctx, teamID)
		if err != nil {
			result.Failed++
			s.logger.WarnContext(ctx, "fetch team squad failed", "league_id", lg.ID, "team_id", teamID, "error", err)
			continue
		}

		for _, player := range squad {
			if player.PlayerID <= 0 {
				continue
			}
			entries = append(entries, pool.Entry{
				ID:       fmt.Sprintf("%s:player:%d", lg.ID, player.PlayerID),
				LeagueID: lg.ID,
				PlayerID: player.PlayerID,
				TeamID:   teamID,
				Name:     player.Name,
				Position: player.Position,
			})
			result.Players++
		}
	}

	if err := s.poolRepo.UpsertMany(ctx, entries); err != nil {
		return result, fmt.Errorf("upsert pool entries: %w", err)
	}

	return result, nil
}
