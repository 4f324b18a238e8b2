package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/draftball/draft-league/internal/domain/matchstat"
)

type MatchStatRepository struct {
	db *sqlx.DB
}

func NewMatchStatRepository(db *sqlx.DB) *MatchStatRepository {
	return &MatchStatRepository{db: db}
}

// ReplaceForFixture deletes and rewrites every stat row of the fixture in
// one transaction, so a settle pass never merges with stale rows.
func (r *MatchStatRepository) ReplaceForFixture(ctx context.Context, fixtureID int64, players []matchstat.MatchStat, teams []matchstat.TeamMatchStat) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx replace fixture stats: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, table := range []string{"match_stats", "team_match_stats"} {
		query, args, err := psql.Delete(table).Where(sq.Eq{"fixture_id": fixtureID}).ToSql()
		if err != nil {
			return fmt.Errorf("build delete %s query: %w", table, err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("delete %s for fixture %d: %w", table, fixtureID, err)
		}
	}

	for _, row := range players {
		breakdown, err := encodeBreakdown(row.Breakdown)
		if err != nil {
			return fmt.Errorf("encode breakdown for player %d: %w", row.PlayerID, err)
		}
		query, args, err := psql.Insert("match_stats").
			Columns("fixture_id", "league_id", "stage", "player_id", "player_name", "team_id", "points", "breakdown").
			Values(row.FixtureID, row.LeagueID, row.Stage, row.PlayerID, row.PlayerName, row.TeamID, row.Points, breakdown).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert match stat query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert match stat fixture=%d player=%d: %w", row.FixtureID, row.PlayerID, err)
		}
	}

	for _, row := range teams {
		breakdown, err := encodeBreakdown(row.Breakdown)
		if err != nil {
			return fmt.Errorf("encode breakdown for team %d: %w", row.TeamID, err)
		}
		query, args, err := psql.Insert("team_match_stats").
			Columns("fixture_id", "league_id", "stage", "team_id", "team_name", "points", "breakdown").
			Values(row.FixtureID, row.LeagueID, row.Stage, row.TeamID, row.TeamName, row.Points, breakdown).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert team match stat query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert team match stat fixture=%d team=%d: %w", row.FixtureID, row.TeamID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace fixture stats tx: %w", err)
	}
	return nil
}

func (r *MatchStatRepository) ListByLeague(ctx context.Context, leagueID string) ([]matchstat.MatchStat, []matchstat.TeamMatchStat, error) {
	playerQuery, playerArgs, err := psql.Select("*").
		From("match_stats").
		Where(sq.Eq{"league_id": leagueID}).
		OrderBy("fixture_id", "player_id").
		ToSql()
	if err != nil {
		return nil, nil, fmt.Errorf("build select match stats query: %w", err)
	}

	var playerRows []matchStatTableModel
	if err := r.db.SelectContext(ctx, &playerRows, playerQuery, playerArgs...); err != nil {
		return nil, nil, fmt.Errorf("select match stats by league: %w", err)
	}

	teamQuery, teamArgs, err := psql.Select("*").
		From("team_match_stats").
		Where(sq.Eq{"league_id": leagueID}).
		OrderBy("fixture_id", "team_id").
		ToSql()
	if err != nil {
		return nil, nil, fmt.Errorf("build select team match stats query: %w", err)
	}

	var teamRows []teamMatchStatTableModel
	if err := r.db.SelectContext(ctx, &teamRows, teamQuery, teamArgs...); err != nil {
		return nil, nil, fmt.Errorf("select team match stats by league: %w", err)
	}

	players := make([]matchstat.MatchStat, 0, len(playerRows))
	for _, row := range playerRows {
		item, err := row.toDomain()
		if err != nil {
			return nil, nil, err
		}
		players = append(players, item)
	}

	teams := make([]matchstat.TeamMatchStat, 0, len(teamRows))
	for _, row := range teamRows {
		item, err := row.toDomain()
		if err != nil {
			return nil, nil, err
		}
		teams = append(teams, item)
	}

	return players, teams, nil
}
