package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/draftball/draft-league/internal/domain/fixture"
	"github.com/draftball/draft-league/internal/domain/league"
	"github.com/draftball/draft-league/internal/domain/matchstat"
	"github.com/draftball/draft-league/internal/domain/pool"
	"github.com/draftball/draft-league/internal/domain/rawdata"
	"github.com/draftball/draft-league/internal/platform/logging"
)

type stubProvider struct {
	mu         sync.Mutex
	live       map[string][]ExternalLiveFixture
	liveErr    map[string]error
	events     map[int64][]ExternalMatchEvent
	eventsErr  map[int64]error
	stats      map[int64][]ExternalTeamStatistic
	eventCalls map[int64]int

	// liveGate, when set, blocks FetchLiveFixtures until closed;
	// liveEntered reports that a caller reached the gate.
	liveGate    chan struct{}
	liveEntered chan struct{}
}

func seasonKey(competitionID int64, season int) string {
	return fmt.Sprintf("%d:%d", competitionID, season)
}

func (p *stubProvider) FetchLiveFixtures(_ context.Context, competitionID int64, season int) ([]ExternalLiveFixture, rawdata.Payload, error) {
	if p.liveGate != nil {
		if p.liveEntered != nil {
			p.liveEntered <- struct{}{}
		}
		<-p.liveGate
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	key := seasonKey(competitionID, season)
	if err := p.liveErr[key]; err != nil {
		return nil, rawdata.Payload{}, err
	}
	return p.live[key], rawdata.Payload{Endpoint: "/fixtures", PayloadJSON: "{}"}, nil
}

func (p *stubProvider) FetchFixtureEvents(_ context.Context, fixtureID int64) ([]ExternalMatchEvent, rawdata.Payload, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.eventCalls == nil {
		p.eventCalls = make(map[int64]int)
	}
	p.eventCalls[fixtureID]++

	if err := p.eventsErr[fixtureID]; err != nil {
		return nil, rawdata.Payload{}, err
	}
	return p.events[fixtureID], rawdata.Payload{Endpoint: "/fixtures/events", FixtureID: fixtureID, PayloadJSON: "{}"}, nil
}

func (p *stubProvider) FetchFixtureStatistics(_ context.Context, fixtureID int64) ([]ExternalTeamStatistic, rawdata.Payload, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats[fixtureID], rawdata.Payload{Endpoint: "/fixtures/statistics", FixtureID: fixtureID, PayloadJSON: "{}"}, nil
}

func (p *stubProvider) FetchTeamSquad(context.Context, int64) ([]ExternalSquadPlayer, error) {
	return nil, nil
}

func (p *stubProvider) eventCallCount(fixtureID int64) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.eventCalls[fixtureID]
}

type stubLeagueRepo struct {
	leagues []league.League
}

func (r *stubLeagueRepo) GetByID(_ context.Context, id string) (league.League, bool, error) {
	for _, lg := range r.leagues {
		if lg.ID == id {
			return lg, true, nil
		}
	}
	return league.League{}, false, nil
}

func (r *stubLeagueRepo) ListActive(context.Context) ([]league.League, error) {
	return r.leagues, nil
}

type stubFixtureRepo struct {
	mu       sync.Mutex
	fixtures map[int64]fixture.Fixture
}

func (r *stubFixtureRepo) ListByLeague(_ context.Context, leagueID string) ([]fixture.Fixture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]fixture.Fixture, 0, len(r.fixtures))
	for _, item := range r.fixtures {
		if item.LeagueID == leagueID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *stubFixtureRepo) GetByID(_ context.Context, id int64) (fixture.Fixture, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.fixtures[id]
	return item, ok, nil
}

func (r *stubFixtureRepo) UpsertMany(_ context.Context, items []fixture.Fixture) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		r.fixtures[item.ID] = item
	}
	return nil
}

func (r *stubFixtureRepo) UpdateLiveState(_ context.Context, item fixture.Fixture) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.fixtures[item.ID]
	if !ok {
		return fmt.Errorf("fixture %d not found", item.ID)
	}
	if current.Finalized {
		item.Finalized = true
	}
	r.fixtures[item.ID] = item
	return nil
}

func (r *stubFixtureRepo) get(id int64) fixture.Fixture {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fixtures[id]
}

type stubMatchStatRepo struct {
	mu           sync.Mutex
	players      map[int64][]matchstat.MatchStat
	teams        map[int64][]matchstat.TeamMatchStat
	replaceCalls int
}

func (r *stubMatchStatRepo) ReplaceForFixture(_ context.Context, fixtureID int64, players []matchstat.MatchStat, teams []matchstat.TeamMatchStat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.players == nil {
		r.players = make(map[int64][]matchstat.MatchStat)
		r.teams = make(map[int64][]matchstat.TeamMatchStat)
	}
	r.players[fixtureID] = players
	r.teams[fixtureID] = teams
	r.replaceCalls++
	return nil
}

func (r *stubMatchStatRepo) ListByLeague(_ context.Context, leagueID string) ([]matchstat.MatchStat, []matchstat.TeamMatchStat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

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
	return players, teams, nil
}

type stubPoolRepo struct {
	mu            sync.Mutex
	replaceStages []string
}

func (r *stubPoolRepo) ListByLeague(context.Context, string) ([]pool.Entry, error) {
	return nil, nil
}

func (r *stubPoolRepo) UpsertMany(context.Context, []pool.Entry) error {
	return nil
}

func (r *stubPoolRepo) ReplaceStageScores(_ context.Context, leagueID, stage string, _, _ map[int64]int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replaceStages = append(r.replaceStages, leagueID+"|"+stage)
	return nil
}

type stubRawRepo struct {
	mu       sync.Mutex
	payloads []rawdata.Payload
}

func (r *stubRawRepo) UpsertMany(_ context.Context, items []rawdata.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, items...)
	return nil
}

type pollHarness struct {
	provider *stubProvider
	leagues  *stubLeagueRepo
	fixtures *stubFixtureRepo
	stats    *stubMatchStatRepo
	pools    *stubPoolRepo
	raw      *stubRawRepo
	service  *PollService
}

func newPollHarness(leagues []league.League, fixtures []fixture.Fixture) *pollHarness {
	h := &pollHarness{
		provider: &stubProvider{
			live:      make(map[string][]ExternalLiveFixture),
			liveErr:   make(map[string]error),
			events:    make(map[int64][]ExternalMatchEvent),
			eventsErr: make(map[int64]error),
			stats:     make(map[int64][]ExternalTeamStatistic),
		},
		leagues:  &stubLeagueRepo{leagues: leagues},
		fixtures: &stubFixtureRepo{fixtures: make(map[int64]fixture.Fixture)},
		stats:    &stubMatchStatRepo{},
		pools:    &stubPoolRepo{},
		raw:      &stubRawRepo{},
	}
	for _, item := range fixtures {
		h.fixtures.fixtures[item.ID] = item
	}

	logger := logging.NewNop()
	scoring := NewScoringService(h.stats, h.pools, logger)
	h.service = NewPollService(h.provider, h.leagues, h.fixtures, h.stats, h.raw, scoring, logger, PollConfig{MaxWorkers: 2})
	return h
}

func testLeague(id string, competitionID int64, season int) league.League {
	return league.League{ID: id, Name: id, CompetitionID: competitionID, Season: season, CurrentStage: "group", DraftState: league.DraftStateComplete}
}

func testFixture(id int64, leagueID string) fixture.Fixture {
	return fixture.Fixture{
		ID:           id,
		LeagueID:     leagueID,
		Stage:        "group",
		HomeTeamID:   10,
		AwayTeamID:   20,
		HomeTeamName: "Home",
		AwayTeamName: "Away",
		Status:       fixture.StatusNotStarted,
	}
}

func liveRow(fixtureID int64, status string, elapsed, homeGoals, awayGoals int) ExternalLiveFixture {
	return ExternalLiveFixture{
		FixtureID:  fixtureID,
		Status:     status,
		Elapsed:    elapsed,
		HomeTeamID: 10,
		AwayTeamID: 20,
		HomeGoals:  homeGoals,
		AwayGoals:  awayGoals,
	}
}

func TestPollService_Tick_SettlesReadyAndSkipsTheRest(t *testing.T) {
	t.Parallel()

	finalized := testFixture(4, "lg-1")
	finalized.Finalized = true

	h := newPollHarness(
		[]league.League{testLeague("lg-1", 39, 2026)},
		[]fixture.Fixture{testFixture(1, "lg-1"), testFixture(2, "lg-1"), finalized},
	)
	h.provider.live[seasonKey(39, 2026)] = []ExternalLiveFixture{
		liveRow(1, "2H", 60, 1, 0),
		liveRow(2, "1H", 0, 0, 0),
		liveRow(3, "2H", 60, 0, 0), // never seeded for this league
		liveRow(4, "FT", 90, 2, 2),
	}
	h.provider.events[1] = []ExternalMatchEvent{
		{FixtureID: 1, TeamID: 10, PlayerID: 100, PlayerName: "Scorer", Type: "Goal", Detail: "Normal Goal"},
	}

	result, err := h.service.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}

	if result.Settled != 1 || result.Skipped != 3 || result.Failed != 0 {
		t.Fatalf("result = %+v, want settled=1 skipped=3 failed=0", result)
	}
	if result.Rescored != 1 {
		t.Fatalf("rescored = %d, want 1", result.Rescored)
	}

	if h.stats.replaceCalls != 1 {
		t.Fatalf("replace calls = %d, want 1", h.stats.replaceCalls)
	}
	if got := len(h.stats.players[1]); got != 1 {
		t.Fatalf("player rows for fixture 1 = %d, want 1", got)
	}
	if got := len(h.stats.teams[1]); got != 2 {
		t.Fatalf("team rows for fixture 1 = %d, want 2", got)
	}

	// The early first-half fixture keeps its live state but is not settled.
	early := h.fixtures.get(2)
	if early.Status != "1H" || early.Elapsed != 0 {
		t.Fatalf("early fixture state = %+v", early)
	}
	if h.provider.eventCallCount(2) != 0 {
		t.Fatal("early fixture should not trigger an events fetch")
	}
	if h.provider.eventCallCount(3) != 0 {
		t.Fatal("unknown fixture should not trigger an events fetch")
	}
	if h.provider.eventCallCount(4) != 0 {
		t.Fatal("finalized fixture should not trigger an events fetch")
	}

	if len(h.pools.replaceStages) == 0 || h.pools.replaceStages[0] != "lg-1|group" {
		t.Fatalf("pool stage replacements = %v", h.pools.replaceStages)
	}
	if len(h.raw.payloads) == 0 {
		t.Fatal("provider payloads were not archived")
	}
}

func TestPollService_Tick_FinalStatusFinalizesOnce(t *testing.T) {
	t.Parallel()

	h := newPollHarness(
		[]league.League{testLeague("lg-1", 39, 2026)},
		[]fixture.Fixture{testFixture(1, "lg-1")},
	)
	h.provider.live[seasonKey(39, 2026)] = []ExternalLiveFixture{liveRow(1, "FT", 90, 2, 1)}

	if _, err := h.service.Tick(context.Background()); err != nil {
		t.Fatalf("first tick: %v", err)
	}
	if got := h.fixtures.get(1); !got.Finalized {
		t.Fatalf("fixture not finalized after full time: %+v", got)
	}
	if h.provider.eventCallCount(1) != 1 {
		t.Fatalf("event fetches = %d, want 1", h.provider.eventCallCount(1))
	}

	// Provider may keep reporting the fixture; a finalized one is skipped.
	result, err := h.service.Tick(context.Background())
	if err != nil {
		t.Fatalf("second tick: %v", err)
	}
	if result.Settled != 0 || result.Skipped != 1 {
		t.Fatalf("second tick result = %+v", result)
	}
	if h.provider.eventCallCount(1) != 1 {
		t.Fatalf("event fetches after second tick = %d, want still 1", h.provider.eventCallCount(1))
	}
	if got := h.fixtures.get(1); !got.Finalized {
		t.Fatal("finalized flag was unset")
	}
}

func TestPollService_Tick_IsolatesPerFixtureFailures(t *testing.T) {
	t.Parallel()

	h := newPollHarness(
		[]league.League{testLeague("lg-1", 39, 2026)},
		[]fixture.Fixture{testFixture(1, "lg-1"), testFixture(2, "lg-1")},
	)
	h.provider.live[seasonKey(39, 2026)] = []ExternalLiveFixture{
		liveRow(1, "FT", 90, 1, 0),
		liveRow(2, "FT", 90, 0, 0),
	}
	h.provider.eventsErr[1] = errors.New("events feed unavailable")

	result, err := h.service.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if result.Settled != 1 || result.Failed != 1 {
		t.Fatalf("result = %+v, want settled=1 failed=1", result)
	}
	if h.fixtures.get(1).Finalized {
		t.Fatal("failed fixture must not be finalized")
	}
	if !h.fixtures.get(2).Finalized {
		t.Fatal("healthy fixture should still settle")
	}
	if result.Rescored != 1 {
		t.Fatalf("rescored = %d, want 1", result.Rescored)
	}
}

func TestPollService_Tick_IsolatesLeagueFetchFailures(t *testing.T) {
	t.Parallel()

	h := newPollHarness(
		[]league.League{testLeague("lg-1", 39, 2026), testLeague("lg-2", 140, 2026)},
		[]fixture.Fixture{testFixture(1, "lg-1"), testFixture(2, "lg-2")},
	)
	h.provider.liveErr[seasonKey(39, 2026)] = errors.New("upstream down")
	h.provider.live[seasonKey(140, 2026)] = []ExternalLiveFixture{liveRow(2, "FT", 90, 1, 0)}

	result, err := h.service.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if result.Leagues != 2 || result.Failed != 1 || result.Settled != 1 {
		t.Fatalf("result = %+v, want leagues=2 failed=1 settled=1", result)
	}
	if !h.fixtures.get(2).Finalized {
		t.Fatal("healthy league should still settle its fixture")
	}
}

func TestPollService_Tick_RescoresEveryLeagueOfATouchedSeason(t *testing.T) {
	t.Parallel()

	// lg-1 and lg-2 track the same competition season; only lg-1 has a
	// fixture settling this tick. lg-3 tracks an untouched season.
	h := newPollHarness(
		[]league.League{
			testLeague("lg-1", 39, 2026),
			testLeague("lg-2", 39, 2026),
			testLeague("lg-3", 140, 2026),
		},
		[]fixture.Fixture{testFixture(1, "lg-1")},
	)
	h.provider.live[seasonKey(39, 2026)] = []ExternalLiveFixture{liveRow(1, "FT", 90, 1, 0)}

	result, err := h.service.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if result.Rescored != 2 {
		t.Fatalf("rescored = %d, want both leagues of the touched season", result.Rescored)
	}
	for _, entry := range h.pools.replaceStages {
		if entry == "lg-3|group" {
			t.Fatal("untouched season was rescored")
		}
	}
}

func TestPollService_Tick_NonReentrant(t *testing.T) {
	t.Parallel()

	h := newPollHarness(
		[]league.League{testLeague("lg-1", 39, 2026)},
		[]fixture.Fixture{testFixture(1, "lg-1")},
	)
	h.provider.liveGate = make(chan struct{})
	h.provider.liveEntered = make(chan struct{}, 1)

	firstDone := make(chan error, 1)
	go func() {
		_, err := h.service.Tick(context.Background())
		firstDone <- err
	}()

	// Wait until the first tick is inside the provider call, then overlap.
	<-h.provider.liveEntered

	if _, err := h.service.Tick(context.Background()); !errors.Is(err, ErrTickInFlight) {
		t.Fatalf("overlapping tick error = %v, want ErrTickInFlight", err)
	}

	close(h.provider.liveGate)
	if err := <-firstDone; err != nil {
		t.Fatalf("first tick: %v", err)
	}
}
