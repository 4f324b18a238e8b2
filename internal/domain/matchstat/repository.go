package matchstat

import "context"

type Repository interface {
	// ReplaceForFixture deletes every stat row of the fixture and writes
	// the given rows in one transaction.
	ReplaceForFixture(ctx context.Context, fixtureID int64, players []MatchStat, teams []TeamMatchStat) error
	ListByLeague(ctx context.Context, leagueID string) ([]MatchStat, []TeamMatchStat, error)
}
