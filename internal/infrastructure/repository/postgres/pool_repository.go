package postgres

import (
	"context"
	"fmt"
	"sort"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/draftball/draft-league/internal/domain/pool"
)

type PoolRepository struct {
	db *sqlx.DB
}

func NewPoolRepository(db *sqlx.DB) *PoolRepository {
	return &PoolRepository{db: db}
}

func (r *PoolRepository) ListByLeague(ctx context.Context, leagueID string) ([]pool.Entry, error) {
	query, args, err := psql.Select("*").
		From("player_pool").
		Where(sq.Eq{"league_id": leagueID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select pool entries query: %w", err)
	}

	var rows []poolEntryTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select pool entries by league: %w", err)
	}

	out := make([]pool.Entry, 0, len(rows))
	for _, row := range rows {
		entry, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

// UpsertMany refreshes the roster facts of each entry. Draft assignments
// and accumulated scores are never touched by a roster sync.
func (r *PoolRepository) UpsertMany(ctx context.Context, items []pool.Entry) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert pool entries: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, item := range items {
		query, args, err := psql.Insert("player_pool").
			Columns("id", "league_id", "player_id", "team_id", "is_team_defense", "name", "position", "country", "drafted_by", "scores").
			Values(item.ID, item.LeagueID, item.PlayerID, item.TeamID, item.IsTeamDefense, item.Name, item.Position, item.Country, item.DraftedBy, []byte("{}")).
			Suffix(`ON CONFLICT (id) DO UPDATE SET
    player_id = EXCLUDED.player_id,
    team_id = EXCLUDED.team_id,
    is_team_defense = EXCLUDED.is_team_defense,
    name = EXCLUDED.name,
    position = EXCLUDED.position,
    country = EXCLUDED.country`).
			ToSql()
		if err != nil {
			return fmt.Errorf("build upsert pool entry query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert pool entry %s: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert pool entries tx: %w", err)
	}
	return nil
}

// ReplaceStageScores overwrites the stage's score for every pool entry of
// the league. Assets missing from the maps end up at zero.
func (r *PoolRepository) ReplaceStageScores(ctx context.Context, leagueID, stage string, playerPoints, teamPoints map[int64]int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx replace stage scores: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	path := pq.Array([]string{stage})

	resetQuery := `UPDATE player_pool
SET scores = jsonb_set(COALESCE(scores, '{}'::jsonb), $2, '0'::jsonb)
WHERE league_id = $1`
	if _, err := tx.ExecContext(ctx, resetQuery, leagueID, path); err != nil {
		return fmt.Errorf("reset stage scores league=%s stage=%s: %w", leagueID, stage, err)
	}

	playerQuery := `UPDATE player_pool
SET scores = jsonb_set(COALESCE(scores, '{}'::jsonb), $2, to_jsonb($3::int))
WHERE league_id = $1 AND is_team_defense = FALSE AND player_id = $4`
	for _, playerID := range sortedAssetIDs(playerPoints) {
		if _, err := tx.ExecContext(ctx, playerQuery, leagueID, path, playerPoints[playerID], playerID); err != nil {
			return fmt.Errorf("set stage score league=%s player=%d: %w", leagueID, playerID, err)
		}
	}

	teamQuery := `UPDATE player_pool
SET scores = jsonb_set(COALESCE(scores, '{}'::jsonb), $2, to_jsonb($3::int))
WHERE league_id = $1 AND is_team_defense = TRUE AND team_id = $4`
	for _, teamID := range sortedAssetIDs(teamPoints) {
		if _, err := tx.ExecContext(ctx, teamQuery, leagueID, path, teamPoints[teamID], teamID); err != nil {
			return fmt.Errorf("set stage score league=%s team=%d: %w", leagueID, teamID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace stage scores tx: %w", err)
	}
	return nil
}

func sortedAssetIDs(points map[int64]int) []int64 {
	ids := make([]int64, 0, len(points))
	for id := range points {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
