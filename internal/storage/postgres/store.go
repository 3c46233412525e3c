package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"crocPlanner/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS crocplan_pools (
	chain_id BIGINT NOT NULL,
	base TEXT NOT NULL,
	quote TEXT NOT NULL,
	pool_idx BIGINT NOT NULL,
	grid_size INTEGER NOT NULL,
	sqrt_price NUMERIC NOT NULL,
	tick INTEGER NOT NULL,
	observed_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (chain_id, base, quote, pool_idx)
);
CREATE TABLE IF NOT EXISTS crocplan_plans (
	id BIGSERIAL PRIMARY KEY,
	chain_id BIGINT NOT NULL,
	kind TEXT NOT NULL,
	base TEXT NOT NULL,
	quote TEXT NOT NULL,
	pool_idx BIGINT NOT NULL,
	sender TEXT NOT NULL,
	to_address TEXT NOT NULL,
	value NUMERIC NOT NULL,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS crocplan_plans_kind_idx ON crocplan_plans (chain_id, kind, created_at DESC);
`

// Store persists plans and observed pool state in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the plan and pool tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// InsertPlans appends plan records in one batch.
func (s *Store) InsertPlans(ctx context.Context, records []model.PlanRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range records {
		createdAt, err := time.Parse(time.RFC3339, r.CreatedAt)
		if err != nil {
			return fmt.Errorf("plan %s created_at: %w", r.Kind, err)
		}
		value := r.Value
		if value == "" {
			value = "0"
		}
		batch.Queue(`
			INSERT INTO crocplan_plans (
				chain_id, kind, base, quote, pool_idx, sender, to_address, value, payload, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric, $9::jsonb, $10)
		`,
			int64(r.ChainID),
			r.Kind,
			r.Base,
			r.Quote,
			int64(r.PoolIdx),
			r.Sender,
			r.To,
			value,
			string(r.Payload),
			createdAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// UpsertPools records the latest observed state of each pool.
func (s *Store) UpsertPools(ctx context.Context, pools []model.Pool) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, pool := range pools {
		batch.Queue(`
			INSERT INTO crocplan_pools (
				chain_id, base, quote, pool_idx, grid_size, sqrt_price, tick, observed_at
			) VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8)
			ON CONFLICT (chain_id, base, quote, pool_idx)
			DO UPDATE SET
				grid_size = EXCLUDED.grid_size,
				sqrt_price = EXCLUDED.sqrt_price,
				tick = EXCLUDED.tick,
				observed_at = GREATEST(crocplan_pools.observed_at, EXCLUDED.observed_at)
		`,
			int64(pool.ChainID),
			pool.Base,
			pool.Quote,
			int64(pool.PoolIdx),
			pool.GridSize,
			pool.SqrtPrice,
			pool.Tick,
			pool.ObservedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range pools {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadPool returns the last observed state of a pool.
func (s *Store) LoadPool(ctx context.Context, chainID uint64, base, quote string, poolIdx uint64) (model.Pool, bool, error) {
	pool := model.Pool{ChainID: chainID, Base: base, Quote: quote, PoolIdx: poolIdx}
	row := s.pool.QueryRow(ctx, `
		SELECT grid_size, sqrt_price::text, tick, observed_at
		FROM crocplan_pools
		WHERE chain_id=$1 AND base=$2 AND quote=$3 AND pool_idx=$4
	`, int64(chainID), base, quote, int64(poolIdx))
	if err := row.Scan(&pool.GridSize, &pool.SqrtPrice, &pool.Tick, &pool.ObservedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Pool{}, false, nil
		}
		return model.Pool{}, false, err
	}
	return pool, true, nil
}

// RecentPlans lists the newest plans of a chain, optionally of one kind.
func (s *Store) RecentPlans(ctx context.Context, chainID uint64, kind string, limit int) ([]model.PlanRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT kind, base, quote, pool_idx, sender, to_address, value::text, payload::text, created_at
		FROM crocplan_plans
		WHERE chain_id=$1 AND ($2 = '' OR kind=$2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, int64(chainID), kind, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PlanRecord
	for rows.Next() {
		var (
			r         model.PlanRecord
			poolIdx   int64
			payload   string
			createdAt time.Time
		)
		if err := rows.Scan(&r.Kind, &r.Base, &r.Quote, &poolIdx, &r.Sender, &r.To, &r.Value, &payload, &createdAt); err != nil {
			return nil, err
		}
		r.ChainID = chainID
		r.PoolIdx = uint64(poolIdx)
		r.Payload = []byte(payload)
		r.CreatedAt = createdAt.UTC().Format(time.RFC3339)
		out = append(out, r)
	}
	return out, rows.Err()
}
