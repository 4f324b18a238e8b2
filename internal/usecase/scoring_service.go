package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/draftball/draft-league/internal/domain/matchstat"
	"github.com/draftball/draft-league/internal/domain/pool"
	"github.com/draftball/draft-league/internal/platform/logging"
	"github.com/draftball/draft-league/internal/platform/resilience"
)

// ScoringService folds fixture stat rows into per-stage pool scores.
type ScoringService struct {
	matchStatRepo matchstat.Repository
	poolRepo      pool.Repository
	logger        *logging.Logger
	recomputeFlt  resilience.SingleFlight
}

func NewScoringService(
	matchStatRepo matchstat.Repository,
	poolRepo pool.Repository,
	logger *logging.Logger,
) *ScoringService {
	if logger == nil {
		logger = logging.Default()
	}
	return &ScoringService{
		matchStatRepo: matchStatRepo,
		poolRepo:      poolRepo,
		logger:        logger,
	}
}

// RecomputePoolScores rebuilds every stage score of a league's pool from
// the current stat rows. The sum covers every fixture that has rows, so
// in-progress fixtures contribute their provisional points and the next
// settle pass corrects them. Concurrent calls for one league collapse.
func (s *ScoringService) RecomputePoolScores(ctx context.Context, leagueID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoringService.RecomputePoolScores")
	defer span.End()

	if leagueID == "" {
		return fmt.Errorf("%w: league id is required", ErrInvalidInput)
	}

	_, err, _ := s.recomputeFlt.Do("pool-scores:"+leagueID, func() (any, error) {
		return nil, s.recomputeOnce(ctx, leagueID)
	})
	return err
}

func (s *ScoringService) recomputeOnce(ctx context.Context, leagueID string) error {
	playerStats, teamStats, err := s.matchStatRepo.ListByLeague(ctx, leagueID)
	if err != nil {
		return fmt.Errorf("list match stats for pool recompute: %w", err)
	}

	playerByStage := make(map[string]map[int64]int)
	teamByStage := make(map[string]map[int64]int)
	stages := make([]string, 0, 4)

	touchStage := func(stage string) {
		if _, ok := playerByStage[stage]; ok {
			return
		}
		playerByStage[stage] = make(map[int64]int)
		teamByStage[stage] = make(map[int64]int)
		stages = append(stages, stage)
	}

	for _, row := range playerStats {
		touchStage(row.Stage)
		playerByStage[row.Stage][row.PlayerID] += row.Points
	}
	for _, row := range teamStats {
		touchStage(row.Stage)
		teamByStage[row.Stage][row.TeamID] += row.Points
	}

	sort.Strings(stages)
	for _, stage := range stages {
		if err := s.poolRepo.ReplaceStageScores(ctx, leagueID, stage, playerByStage[stage], teamByStage[stage]); err != nil {
			return fmt.Errorf("replace stage scores league=%s stage=%s: %w", leagueID, stage, err)
		}
	}

	s.logger.DebugContext(ctx, "pool scores recomputed",
		"league_id", leagueID,
		"stages", len(stages),
		"player_rows", len(playerStats),
		"team_rows", len(teamStats),
	)
	return nil
}
