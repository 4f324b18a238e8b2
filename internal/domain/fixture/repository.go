package fixture

import "context"

// Repository exposes fixture reads plus the live-state writes owned by
// the poller.
type Repository interface {
	ListByLeague(ctx context.Context, leagueID string) ([]Fixture, error)
	GetByID(ctx context.Context, id int64) (Fixture, bool, error)
	UpsertMany(ctx context.Context, items []Fixture) error
	// UpdateLiveState replaces the mutable match state of one fixture.
	// Finalized may only transition false -> true.
	UpdateLiveState(ctx context.Context, item Fixture) error
}
