package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/draftball/draft-league/internal/domain/fixture"
)

type FixtureRepository struct {
	db *sqlx.DB
}

func NewFixtureRepository(db *sqlx.DB) *FixtureRepository {
	return &FixtureRepository{db: db}
}

func (r *FixtureRepository) ListByLeague(ctx context.Context, leagueID string) ([]fixture.Fixture, error) {
	query, args, err := psql.Select("*").
		From("fixtures").
		Where(sq.Eq{"league_id": leagueID}).
		OrderBy("kickoff_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select fixtures by league query: %w", err)
	}

	var rows []fixtureTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select fixtures by league: %w", err)
	}

	out := make([]fixture.Fixture, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *FixtureRepository) GetByID(ctx context.Context, id int64) (fixture.Fixture, bool, error) {
	query, args, err := psql.Select("*").
		From("fixtures").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fixture.Fixture{}, false, fmt.Errorf("build select fixture query: %w", err)
	}

	var row fixtureTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return fixture.Fixture{}, false, nil
		}
		return fixture.Fixture{}, false, fmt.Errorf("select fixture %d: %w", id, err)
	}

	return row.toDomain(), true, nil
}

func (r *FixtureRepository) UpsertMany(ctx context.Context, items []fixture.Fixture) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert fixtures: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, item := range items {
		query, args, err := psql.Insert("fixtures").
			Columns(
				"id", "league_id", "competition_id", "season", "stage",
				"home_team_id", "away_team_id", "home_team_name", "away_team_name",
				"kickoff_at", "status", "elapsed",
				"home_goals", "away_goals", "home_penalties", "away_penalties", "finalized",
			).
			Values(
				item.ID, item.LeagueID, item.CompetitionID, item.Season, item.Stage,
				item.HomeTeamID, item.AwayTeamID, item.HomeTeamName, item.AwayTeamName,
				item.KickoffAt, fixture.NormalizeStatus(item.Status), item.Elapsed,
				item.HomeGoals, item.AwayGoals, intPtrToNullInt64(item.HomePenalties), intPtrToNullInt64(item.AwayPenalties), item.Finalized,
			).
			Suffix(`ON CONFLICT (id) DO UPDATE SET
    league_id = EXCLUDED.league_id,
    competition_id = EXCLUDED.competition_id,
    season = EXCLUDED.season,
    stage = EXCLUDED.stage,
    home_team_id = EXCLUDED.home_team_id,
    away_team_id = EXCLUDED.away_team_id,
    home_team_name = EXCLUDED.home_team_name,
    away_team_name = EXCLUDED.away_team_name,
    kickoff_at = EXCLUDED.kickoff_at,
    status = EXCLUDED.status,
    elapsed = EXCLUDED.elapsed,
    home_goals = EXCLUDED.home_goals,
    away_goals = EXCLUDED.away_goals,
    home_penalties = EXCLUDED.home_penalties,
    away_penalties = EXCLUDED.away_penalties,
    finalized = fixtures.finalized OR EXCLUDED.finalized`).
			ToSql()
		if err != nil {
			return fmt.Errorf("build upsert fixture query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert fixture %d: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert fixtures tx: %w", err)
	}
	return nil
}

// UpdateLiveState writes the poller-owned match state of one fixture.
// The finalized column can only move from false to true.
func (r *FixtureRepository) UpdateLiveState(ctx context.Context, item fixture.Fixture) error {
	query, args, err := psql.Update("fixtures").
		Set("status", fixture.NormalizeStatus(item.Status)).
		Set("elapsed", item.Elapsed).
		Set("home_goals", item.HomeGoals).
		Set("away_goals", item.AwayGoals).
		Set("home_penalties", intPtrToNullInt64(item.HomePenalties)).
		Set("away_penalties", intPtrToNullInt64(item.AwayPenalties)).
		Set("finalized", sq.Expr("fixtures.finalized OR ?", item.Finalized)).
		Where(sq.Eq{"id": item.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update fixture live state query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update fixture %d live state: %w", item.ID, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("fixture %d not found", item.ID)
	}
	return nil
}
