package memory

import (
	"context"
	"testing"

	"github.com/draftball/draft-league/internal/domain/pool"
)

func TestPoolRepository_ReplaceStageScores_RoutesByAssetKind(t *testing.T) {
	t.Parallel()

	repo := NewPoolRepository()
	ctx := context.Background()

	// Player 10 and team 10 share a numeric id; each must read from its
	// own points map.
	err := repo.UpsertMany(ctx, []pool.Entry{
		{ID: "lg-1:player:10", LeagueID: "lg-1", PlayerID: 10, TeamID: 20, Name: "Ana"},
		{ID: "lg-1:team:10", LeagueID: "lg-1", TeamID: 10, IsTeamDefense: true, Name: "Reds"},
		{ID: "lg-1:player:11", LeagueID: "lg-1", PlayerID: 11, TeamID: 10, Name: "Bo", Scores: map[string]int{"group": 8}},
	})
	if err != nil {
		t.Fatalf("seed entries: %v", err)
	}

	err = repo.ReplaceStageScores(ctx, "lg-1", "group",
		map[int64]int{10: 5},
		map[int64]int{10: 3},
	)
	if err != nil {
		t.Fatalf("replace stage scores: %v", err)
	}

	entries, err := repo.ListByLeague(ctx, "lg-1")
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}

	got := make(map[string]int, len(entries))
	for _, entry := range entries {
		got[entry.ID] = entry.Scores["group"]
	}

	if got["lg-1:player:10"] != 5 {
		t.Fatalf("expected player 10 to score 5, got %d", got["lg-1:player:10"])
	}
	if got["lg-1:team:10"] != 3 {
		t.Fatalf("expected team defense 10 to score 3, got %d", got["lg-1:team:10"])
	}
	// Entries absent from the maps are reset for the stage.
	if got["lg-1:player:11"] != 0 {
		t.Fatalf("expected player 11 to reset to 0, got %d", got["lg-1:player:11"])
	}
}
