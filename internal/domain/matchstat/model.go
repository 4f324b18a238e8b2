package matchstat

// Line is one scored reason inside a breakdown, e.g. {+2, "PK Goal"}.
type Line struct {
	Points int    `json:"points"`
	Reason string `json:"reason"`
}

// MatchStat is one player's scoring output for one fixture. Rows for a
// fixture are replaced wholesale on every settle pass, never merged.
type MatchStat struct {
	FixtureID  int64
	LeagueID   string
	Stage      string
	PlayerID   int64
	PlayerName string
	TeamID     int64
	Points     int
	Breakdown  []Line
}

// TeamMatchStat is the team-defense scoring output for one fixture.
type TeamMatchStat struct {
	FixtureID int64
	LeagueID  string
	Stage     string
	TeamID    int64
	TeamName  string
	Points    int
	Breakdown []Line
}
