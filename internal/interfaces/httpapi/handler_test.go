package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/draftball/draft-league/internal/domain/fixture"
	"github.com/draftball/draft-league/internal/domain/league"
	"github.com/draftball/draft-league/internal/domain/pool"
	"github.com/draftball/draft-league/internal/domain/rawdata"
	"github.com/draftball/draft-league/internal/infrastructure/repository/memory"
	"github.com/draftball/draft-league/internal/platform/logging"
	"github.com/draftball/draft-league/internal/usecase"
)

type emptyProvider struct{}

func (emptyProvider) FetchLiveFixtures(context.Context, int64, int) ([]usecase.ExternalLiveFixture, rawdata.Payload, error) {
	return nil, rawdata.Payload{}, nil
}

func (emptyProvider) FetchFixtureEvents(context.Context, int64) ([]usecase.ExternalMatchEvent, rawdata.Payload, error) {
	return nil, rawdata.Payload{}, nil
}

func (emptyProvider) FetchFixtureStatistics(context.Context, int64) ([]usecase.ExternalTeamStatistic, rawdata.Payload, error) {
	return nil, rawdata.Payload{}, nil
}

func (emptyProvider) FetchTeamSquad(context.Context, int64) ([]usecase.ExternalSquadPlayer, error) {
	return nil, nil
}

const testJobToken = "job-secret"

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	leagueRepo := memory.NewLeagueRepository()
	fixtureRepo := memory.NewFixtureRepository()
	matchStatRepo := memory.NewMatchStatRepository()
	poolRepo := memory.NewPoolRepository()
	rawRepo := memory.NewRawDataRepository()
	logger := logging.NewNop()

	leagueRepo.Seed(league.League{
		ID:            "lg-1",
		Name:          "Office Cup",
		CompetitionID: 1,
		Season:        2026,
		CurrentStage:  "group",
		DraftState:    league.DraftStateComplete,
	})

	ctx := context.Background()
	if err := fixtureRepo.UpsertMany(ctx, []fixture.Fixture{
		{
			ID:           101,
			LeagueID:     "lg-1",
			HomeTeamID:   10,
			AwayTeamID:   20,
			HomeTeamName: "Reds",
			AwayTeamName: "Blues",
			KickoffAt:    time.Date(2026, 6, 14, 18, 0, 0, 0, time.UTC),
			Status:       fixture.StatusFullTime,
			HomeGoals:    2,
			AwayGoals:    1,
			Finalized:    true,
		},
		{
			ID:           102,
			LeagueID:     "lg-1",
			HomeTeamID:   20,
			AwayTeamID:   10,
			HomeTeamName: "Blues",
			AwayTeamName: "Reds",
			KickoffAt:    time.Date(2026, 6, 18, 18, 0, 0, 0, time.UTC),
			Status:       fixture.StatusNotStarted,
		},
	}); err != nil {
		t.Fatalf("seed fixtures: %v", err)
	}

	if err := poolRepo.UpsertMany(ctx, []pool.Entry{
		{ID: "lg-1:player:7", LeagueID: "lg-1", PlayerID: 7, TeamID: 10, Name: "Ana", Position: "F", Scores: map[string]int{"group": 5}},
		{ID: "lg-1:player:8", LeagueID: "lg-1", PlayerID: 8, TeamID: 20, Name: "Ben", Position: "M", Country: "ESP", Scores: map[string]int{"group": 9}},
		{ID: "lg-1:team:10", LeagueID: "lg-1", TeamID: 10, IsTeamDefense: true, Name: "Reds", Position: "DEF", Scores: map[string]int{"group": 3}},
	}); err != nil {
		t.Fatalf("seed pool: %v", err)
	}

	scoring := usecase.NewScoringService(matchStatRepo, poolRepo, logger)
	pollService := usecase.NewPollService(emptyProvider{}, leagueRepo, fixtureRepo, matchStatRepo, rawRepo, scoring, logger, usecase.PollConfig{})
	rosterService := usecase.NewRosterService(emptyProvider{}, leagueRepo, fixtureRepo, poolRepo, logger)
	leagueService := usecase.NewLeagueService(leagueRepo, fixtureRepo, poolRepo)

	handler := NewHandler(leagueService, rosterService, pollService, logger)
	return NewRouter(handler, logger, []string{"*"}, testJobToken)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response body: %v", err)
	}
	return body
}

func TestRouter_GetLeaguePool_SortedByPoints(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/leagues/lg-1/pool", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeEnvelope(t, rec)
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %v", body["data"])
	}
	if got, _ := data["leagueId"].(string); got != "lg-1" {
		t.Fatalf("expected leagueId lg-1, got %v", data["leagueId"])
	}

	entries, ok := data["entries"].([]any)
	if !ok || len(entries) != 3 {
		t.Fatalf("expected 3 pool entries, got %v", data["entries"])
	}

	first, _ := entries[0].(map[string]any)
	if got, _ := first["name"].(string); got != "Ben" {
		t.Fatalf("expected top scorer Ben first, got %v", first["name"])
	}
	if got, _ := first["totalPoints"].(float64); got != 9 {
		t.Fatalf("expected 9 total points, got %v", first["totalPoints"])
	}
	if got, _ := first["country"].(string); got != "ESP" {
		t.Fatalf("expected seeded country to surface, got %v", first["country"])
	}
}

func TestRouter_GetLeaguePool_UnknownLeague(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/leagues/nope/pool", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestRouter_ListLeagueFixtures_OrderedByKickoff(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/leagues/lg-1/fixtures", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeEnvelope(t, rec)
	items, ok := body["data"].([]any)
	if !ok || len(items) != 2 {
		t.Fatalf("expected 2 fixtures, got %v", body["data"])
	}

	first, _ := items[0].(map[string]any)
	if got, _ := first["id"].(float64); got != 101 {
		t.Fatalf("expected earliest fixture first, got %v", first["id"])
	}
	if got, _ := first["finalized"].(bool); !got {
		t.Fatalf("expected finalized fixture flag to survive the DTO")
	}
}

func TestRouter_PollJob_RequiresToken(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/poll", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestRouter_PollJob_RunsTick(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/poll", nil)
	req.Header.Set("X-Internal-Job-Token", testJobToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeEnvelope(t, rec)
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected tick result object, got %v", body["data"])
	}
	if got, _ := data["leagues"].(float64); got != 1 {
		t.Fatalf("expected 1 league polled, got %v", data["leagues"])
	}
}

func TestRouter_RosterSyncJob_ValidatesBody(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/sync-roster", strings.NewReader(`{}`))
	req.Header.Set("X-Internal-Job-Token", testJobToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_RosterSyncJob_SyncsLeague(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/sync-roster", strings.NewReader(`{"league_id":"lg-1"}`))
	req.Header.Set("X-Internal-Job-Token", testJobToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeEnvelope(t, rec)
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected sync result object, got %v", body["data"])
	}
	if got, _ := data["teams"].(float64); got != 2 {
		t.Fatalf("expected 2 teams from the fixture list, got %v", data["teams"])
	}
}
