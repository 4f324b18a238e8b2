package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/draftball/draft-league/internal/domain/fixture"
	"github.com/draftball/draft-league/internal/domain/league"
	"github.com/draftball/draft-league/internal/domain/matchstat"
	"github.com/draftball/draft-league/internal/domain/rawdata"
	"github.com/draftball/draft-league/internal/platform/logging"
)

const (
	defaultPollInterval = time.Minute
	// The gateway serializes upstream calls, so extra workers only
	// reorder settles within a tick; one keeps the order deterministic.
	defaultPollMaxWorkers = 1
)

type PollConfig struct {
	Interval   time.Duration
	MaxWorkers int
}

// PollService drives the live-scoring loop: every tick it pulls the
// provider's live fixtures for each active league, settles the ones
// whose state is ready, and recomputes pool scores for the touched
// competition seasons. It is the only writer of fixture live state.
type PollService struct {
	provider      LiveDataProvider
	leagueRepo    league.Repository
	fixtureRepo   fixture.Repository
	matchStatRepo matchstat.Repository
	rawRepo       rawdata.Repository
	scoring       *ScoringService
	logger        *logging.Logger
	cfg           PollConfig
	now           func() time.Time
	tickMu        sync.Mutex
}

type TickResult struct {
	Leagues  int `json:"leagues"`
	Settled  int `json:"settled"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
	Rescored int `json:"rescored"`
}

func NewPollService(
	provider LiveDataProvider,
	leagueRepo league.Repository,
	fixtureRepo fixture.Repository,
	matchStatRepo matchstat.Repository,
	rawRepo rawdata.Repository,
	scoring *ScoringService,
	logger *logging.Logger,
	cfg PollConfig,
) *PollService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultPollInterval
	}
	if cfg.MaxWorkers < 1 {
		cfg.MaxWorkers = defaultPollMaxWorkers
	}
	return &PollService{
		provider:      provider,
		leagueRepo:    leagueRepo,
		fixtureRepo:   fixtureRepo,
		matchStatRepo: matchStatRepo,
		rawRepo:       rawRepo,
		scoring:       scoring,
		logger:        logger,
		cfg:           cfg,
		now:           time.Now,
	}
}

// Run ticks until ctx is cancelled. A tick that overruns the interval is
// not stacked; the overlapping tick is skipped.
func (s *PollService) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		result, err := s.Tick(ctx)
		switch {
		case err == nil:
			s.logger.InfoContext(ctx, "poll tick done",
				"leagues", result.Leagues,
				"settled", result.Settled,
				"skipped", result.Skipped,
				"failed", result.Failed,
				"rescored", result.Rescored,
			)
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			s.logger.WarnContext(ctx, "poll tick failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick runs one polling pass. It is non-reentrant: a call that lands
// while another tick is still running returns ErrTickInFlight.
func (s *PollService) Tick(ctx context.Context) (TickResult, error) {
	if !s.tickMu.TryLock() {
		return TickResult{}, ErrTickInFlight
	}
	defer s.tickMu.Unlock()

	ctx, span := startUsecaseSpan(ctx, "usecase.PollService.Tick")
	defer span.End()

	leagues, err := s.leagueRepo.ListActive(ctx)
	if err != nil {
		return TickResult{}, fmt.Errorf("list active leagues: %w", err)
	}
	sort.SliceStable(leagues, func(i, j int) bool { return leagues[i].ID < leagues[j].ID })

	result := TickResult{Leagues: len(leagues)}
	touchedSeasons := make(map[string]struct{})

	for _, lg := range leagues {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		settled, skipped, failed, err := s.pollLeague(ctx, lg)
		result.Settled += settled
		result.Skipped += skipped
		result.Failed += failed
		if err != nil {
			result.Failed++
			s.logger.WarnContext(ctx, "poll league failed",
				"league_id", lg.ID,
				"competition_id", lg.CompetitionID,
				"season", lg.Season,
				"error", err,
			)
			continue
		}
		if settled > 0 {
			touchedSeasons[fmt.Sprintf("%d:%d", lg.CompetitionID, lg.Season)] = struct{}{}
		}
	}

	// One recompute per touched competition season, regardless of how
	// many fixtures were settled in it.
	for _, lg := range leagues {
		key := fmt.Sprintf("%d:%d", lg.CompetitionID, lg.Season)
		if _, ok := touchedSeasons[key]; !ok {
			continue
		}
		if err := s.scoring.RecomputePoolScores(ctx, lg.ID); err != nil {
			result.Failed++
			s.logger.WarnContext(ctx, "recompute pool scores failed", "league_id", lg.ID, "error", err)
			continue
		}
		result.Rescored++
	}

	return result, nil
}

func (s *PollService) pollLeague(ctx context.Context, lg league.League) (settled, skipped, failed int, err error) {
	fixtures, err := s.fixtureRepo.ListByLeague(ctx, lg.ID)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("list fixtures: %w", err)
	}
	byID := make(map[int64]fixture.Fixture, len(fixtures))
	for _, item := range fixtures {
		byID[item.ID] = item
	}

	live, payload, err := s.provider.FetchLiveFixtures(ctx, lg.CompetitionID, lg.Season)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("fetch live fixtures: %w", err)
	}
	s.archivePayloads(ctx, lg.ID, payload)

	sort.SliceStable(live, func(i, j int) bool { return live[i].FixtureID < live[j].FixtureID })

	tasks := make([]fixture.Fixture, 0, len(live))
	for _, row := range live {
		local, ok := byID[row.FixtureID]
		if !ok {
			// Not part of this league's seeded schedule.
			skipped++
			s.logger.DebugContext(ctx, "skip unknown live fixture", "league_id", lg.ID, "fixture_id", row.FixtureID)
			continue
		}
		if local.Finalized {
			skipped++
			continue
		}

		local = mergeLiveState(local, row)
		if !fixture.ShouldSettle(local.Status, local.Elapsed) {
			if err := s.fixtureRepo.UpdateLiveState(ctx, local); err != nil {
				failed++
				s.logger.WarnContext(ctx, "update fixture live state failed", "fixture_id", local.ID, "error", err)
				continue
			}
			skipped++
			continue
		}
		tasks = append(tasks, local)
	}

	if len(tasks) == 0 {
		return 0, skipped, failed, nil
	}

	workers := s.cfg.MaxWorkers
	if workers > len(tasks) {
		workers = len(tasks)
	}
	workerPool, err := ants.NewPool(workers)
	if err != nil {
		return 0, skipped, failed, fmt.Errorf("create settle worker pool: %w", err)
	}
	defer workerPool.Release()

	var wg sync.WaitGroup
	var settledCount, failedCount atomic.Int32
	for _, task := range tasks {
		task := task
		wg.Add(1)
		submitErr := workerPool.Submit(func() {
			defer wg.Done()
			if err := s.settleFixture(ctx, lg, task); err != nil {
				failedCount.Add(1)
				s.logger.WarnContext(ctx, "settle fixture failed",
					"league_id", lg.ID,
					"fixture_id", task.ID,
					"status", task.Status,
					"error", err,
				)
				return
			}
			settledCount.Add(1)
		})
		if submitErr != nil {
			wg.Done()
			failedCount.Add(1)
			s.logger.WarnContext(ctx, "submit settle task failed", "fixture_id", task.ID, "error", submitErr)
		}
	}
	wg.Wait()

	return int(settledCount.Load()), skipped, failed + int(failedCount.Load()), nil
}

// settleFixture runs one full stats pass for a fixture: fetch events and
// statistics, recompute the breakdown rows, replace them wholesale and
// persist the fixture's live state. Final statuses flip Finalized, which
// never goes back.
func (s *PollService) settleFixture(ctx context.Context, lg league.League, fx fixture.Fixture) error {
	events, eventsPayload, err := s.provider.FetchFixtureEvents(ctx, fx.ID)
	if err != nil {
		return fmt.Errorf("fetch events: %w", err)
	}
	stats, statsPayload, err := s.provider.FetchFixtureStatistics(ctx, fx.ID)
	if err != nil {
		return fmt.Errorf("fetch statistics: %w", err)
	}
	s.archivePayloads(ctx, lg.ID, eventsPayload, statsPayload)

	playerRows, teamRows := ComputeFixturePoints(events, FixtureResult{
		FixtureID:     fx.ID,
		HomeTeamID:    fx.HomeTeamID,
		AwayTeamID:    fx.AwayTeamID,
		HomeTeamName:  fx.HomeTeamName,
		AwayTeamName:  fx.AwayTeamName,
		HomeGoals:     fx.HomeGoals,
		AwayGoals:     fx.AwayGoals,
		HomePenalties: fx.HomePenalties,
		AwayPenalties: fx.AwayPenalties,
	})

	playerStats := make([]matchstat.MatchStat, 0, len(playerRows))
	for _, row := range playerRows {
		playerStats = append(playerStats, matchstat.MatchStat{
			FixtureID:  fx.ID,
			LeagueID:   lg.ID,
			Stage:      fx.Stage,
			PlayerID:   row.PlayerID,
			PlayerName: row.PlayerName,
			TeamID:     row.TeamID,
			Points:     row.Points,
			Breakdown:  row.Breakdown,
		})
	}
	teamStats := make([]matchstat.TeamMatchStat, 0, len(teamRows))
	for _, row := range teamRows {
		teamStats = append(teamStats, matchstat.TeamMatchStat{
			FixtureID: fx.ID,
			LeagueID:  lg.ID,
			Stage:     fx.Stage,
			TeamID:    row.TeamID,
			TeamName:  firstNonEmptyName(row.TeamName, teamNameFromStatistics(stats, row.TeamID)),
			Points:    row.Points,
			Breakdown: row.Breakdown,
		})
	}

	if err := s.matchStatRepo.ReplaceForFixture(ctx, fx.ID, playerStats, teamStats); err != nil {
		return fmt.Errorf("replace fixture stats: %w", err)
	}

	if fixture.IsFinalStatus(fx.Status) {
		fx.Finalized = true
	}
	if err := s.fixtureRepo.UpdateLiveState(ctx, fx); err != nil {
		return fmt.Errorf("update fixture state: %w", err)
	}

	return nil
}

func (s *PollService) archivePayloads(ctx context.Context, leagueID string, payloads ...rawdata.Payload) {
	if s.rawRepo == nil {
		return
	}

	items := make([]rawdata.Payload, 0, len(payloads))
	for _, item := range payloads {
		if item.PayloadJSON == "" {
			continue
		}
		item.LeagueID = leagueID
		if item.FetchedAt.IsZero() {
			item.FetchedAt = s.now().UTC()
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return
	}

	if err := s.rawRepo.UpsertMany(ctx, items); err != nil {
		s.logger.WarnContext(ctx, "archive provider payloads failed", "league_id", leagueID, "error", err)
	}
}

func mergeLiveState(local fixture.Fixture, row ExternalLiveFixture) fixture.Fixture {
	local.Status = fixture.NormalizeStatus(row.Status)
	local.Elapsed = row.Elapsed
	local.HomeGoals = row.HomeGoals
	local.AwayGoals = row.AwayGoals
	local.HomePenalties = cloneIntPtr(row.HomePenalties)
	local.AwayPenalties = cloneIntPtr(row.AwayPenalties)
	if local.HomeTeamID == 0 {
		local.HomeTeamID = row.HomeTeamID
	}
	if local.AwayTeamID == 0 {
		local.AwayTeamID = row.AwayTeamID
	}
	if local.HomeTeamName == "" {
		local.HomeTeamName = row.HomeTeamName
	}
	if local.AwayTeamName == "" {
		local.AwayTeamName = row.AwayTeamName
	}
	return local
}

func teamNameFromStatistics(stats []ExternalTeamStatistic, teamID int64) string {
	for _, item := range stats {
		if item.TeamID == teamID {
			return item.TeamName
		}
	}
	return ""
}

func firstNonEmptyName(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

func cloneIntPtr(value *int) *int {
	if value == nil {
		return nil
	}
	out := *value
	return &out
}
