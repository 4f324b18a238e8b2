package usecase

import (
	"context"
	"time"

	"github.com/draftball/draft-league/internal/domain/rawdata"
)

// ExternalLiveFixture is the provider's live view of one match.
type ExternalLiveFixture struct {
	FixtureID     int64
	CompetitionID int64
	Season        int
	Status        string
	Elapsed       int
	KickoffAt     time.Time
	HomeTeamID    int64
	AwayTeamID    int64
	HomeTeamName  string
	AwayTeamName  string
	// HomeGoals/AwayGoals are the regulation plus extra-time tally only.
	HomeGoals     int
	AwayGoals     int
	HomePenalties *int
	AwayPenalties *int
}

// ExternalMatchEvent is one timeline event of a fixture.
type ExternalMatchEvent struct {
	FixtureID   int64
	Minute      int
	ExtraMinute int
	TeamID      int64
	PlayerID    int64
	PlayerName  string
	AssistID    int64
	AssistName  string
	Type        string
	Detail      string
	Comments    string
}

// ExternalTeamStatistic carries one team's raw stat table for a fixture.
type ExternalTeamStatistic struct {
	FixtureID int64
	TeamID    int64
	TeamName  string
	Values    map[string]string
}

// ExternalSquadPlayer is one roster row from the squads endpoint.
type ExternalSquadPlayer struct {
	TeamID   int64
	PlayerID int64
	Name     string
	Position string
	Number   int
}

// LiveDataProvider is the upstream gateway contract. Implementations
// serialize and pace their calls; failures come back as structured
// provider errors.
type LiveDataProvider interface {
	FetchLiveFixtures(ctx context.Context, competitionID int64, season int) ([]ExternalLiveFixture, rawdata.Payload, error)
	FetchFixtureEvents(ctx context.Context, fixtureID int64) ([]ExternalMatchEvent, rawdata.Payload, error)
	FetchFixtureStatistics(ctx context.Context, fixtureID int64) ([]ExternalTeamStatistic, rawdata.Payload, error)
	FetchTeamSquad(ctx context.Context, teamID int64) ([]ExternalSquadPlayer, error)
}
