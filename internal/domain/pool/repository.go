package pool

import "context"

type Repository interface {
	ListByLeague(ctx context.Context, leagueID string) ([]Entry, error)
	UpsertMany(ctx context.Context, items []Entry) error
	// ReplaceStageScores overwrites one stage's score for every pool entry
	// of the league. Assets missing from the maps are reset to zero for
	// that stage.
	ReplaceStageScores(ctx context.Context, leagueID, stage string, playerPoints map[int64]int, teamPoints map[int64]int) error
}
