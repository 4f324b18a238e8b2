package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/draftball/draft-league/internal/domain/rawdata"
)

type RawDataRepository struct {
	db *sqlx.DB
}

func NewRawDataRepository(db *sqlx.DB) *RawDataRepository {
	return &RawDataRepository{db: db}
}

func (r *RawDataRepository) UpsertMany(ctx context.Context, items []rawdata.Payload) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert raw payloads: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, item := range items {
		query, args, err := psql.Insert("raw_payloads").
			Columns("source", "endpoint", "entity_key", "league_id", "fixture_id", "payload", "payload_hash", "fetched_at").
			Values(item.Source, item.Endpoint, item.EntityKey, item.LeagueID, item.FixtureID, item.PayloadJSON, item.PayloadHash, item.FetchedAt).
			Suffix(`ON CONFLICT (source, entity_key) DO UPDATE SET
    endpoint = EXCLUDED.endpoint,
    league_id = EXCLUDED.league_id,
    fixture_id = EXCLUDED.fixture_id,
    payload = EXCLUDED.payload,
    payload_hash = EXCLUDED.payload_hash,
    fetched_at = EXCLUDED.fetched_at`).
			ToSql()
		if err != nil {
			return fmt.Errorf("build upsert raw payload query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert raw payload key=%s: %w", item.EntityKey, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert raw payloads tx: %w", err)
	}
	return nil
}
