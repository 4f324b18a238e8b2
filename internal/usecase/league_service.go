package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/draftball/draft-league/internal/domain/fixture"
	"github.com/draftball/draft-league/internal/domain/league"
	"github.com/draftball/draft-league/internal/domain/pool"
)

// LeagueService serves the read side of a league: its pool standings and
// its fixture schedule.
type LeagueService struct {
	leagueRepo  league.Repository
	fixtureRepo fixture.Repository
	poolRepo    pool.Repository
}

func NewLeagueService(leagueRepo league.Repository, fixtureRepo fixture.Repository, poolRepo pool.Repository) *LeagueService {
	return &LeagueService{
		leagueRepo:  leagueRepo,
		fixtureRepo: fixtureRepo,
		poolRepo:    poolRepo,
	}
}

type PoolView struct {
	League  league.League
	Entries []pool.Entry
}

// GetPool returns the league's pool sorted by total points, highest
// first, with names breaking ties.
func (s *LeagueService) GetPool(ctx context.Context, leagueID string) (PoolView, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueService.GetPool")
	defer span.End()

	lg, err := s.getLeague(ctx, leagueID)
	if err != nil {
		return PoolView{}, err
	}

	entries, err := s.poolRepo.ListByLeague(ctx, lg.ID)
	if err != nil {
		return PoolView{}, fmt.Errorf("list pool entries: %w", err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		left, right := totalScore(entries[i]), totalScore(entries[j])
		if left != right {
			return left > right
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})

	return PoolView{League: lg, Entries: entries}, nil
}

func (s *LeagueService) ListFixtures(ctx context.Context, leagueID string) ([]fixture.Fixture, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueService.ListFixtures")
	defer span.End()

	lg, err := s.getLeague(ctx, leagueID)
	if err != nil {
		return nil, err
	}

	fixtures, err := s.fixtureRepo.ListByLeague(ctx, lg.ID)
	if err != nil {
		return nil, fmt.Errorf("list fixtures: %w", err)
	}

	sort.SliceStable(fixtures, func(i, j int) bool {
		if !fixtures[i].KickoffAt.Equal(fixtures[j].KickoffAt) {
			return fixtures[i].KickoffAt.Before(fixtures[j].KickoffAt)
		}
		return fixtures[i].ID < fixtures[j].ID
	})
	return fixtures, nil
}

func (s *LeagueService) getLeague(ctx context.Context, leagueID string) (league.League, error) {
	if strings.TrimSpace(leagueID) == "" {
		return league.League{}, fmt.Errorf("%w: league id is required", ErrInvalidInput)
	}

	lg, ok, err := s.leagueRepo.GetByID(ctx, leagueID)
	if err != nil {
		return league.League{}, fmt.Errorf("get league: %w", err)
	}
	if !ok {
		return league.League{}, fmt.Errorf("%w: league %s", ErrNotFound, leagueID)
	}
	return lg, nil
}

func totalScore(entry pool.Entry) int {
	total := 0
	for _, points := range entry.Scores {
		total += points
	}
	return total
}
