package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/draftball/draft-league/internal/domain/league"
)

type LeagueRepository struct {
	db *sqlx.DB
}

func NewLeagueRepository(db *sqlx.DB) *LeagueRepository {
	return &LeagueRepository{db: db}
}

func (r *LeagueRepository) GetByID(ctx context.Context, id string) (league.League, bool, error) {
	query, args, err := psql.Select("*").
		From("leagues").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return league.League{}, false, fmt.Errorf("build select league query: %w", err)
	}

	var row leagueTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return league.League{}, false, nil
		}
		return league.League{}, false, fmt.Errorf("select league %s: %w", id, err)
	}

	return row.toDomain(), true, nil
}

func (r *LeagueRepository) ListActive(ctx context.Context) ([]league.League, error) {
	query, args, err := psql.Select("*").
		From("leagues").
		Where(sq.Eq{"draft_state": []string{league.DraftStateActive, league.DraftStateComplete}}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select active leagues query: %w", err)
	}

	var rows []leagueTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select active leagues: %w", err)
	}

	out := make([]league.League, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
