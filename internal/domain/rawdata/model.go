package rawdata

import "time"

// Payload is one archived provider response, kept for audit and replay.
type Payload struct {
	Source      string
	Endpoint    string
	EntityKey   string
	LeagueID    string
	FixtureID   int64
	PayloadJSON string
	PayloadHash string
	FetchedAt   time.Time
}
