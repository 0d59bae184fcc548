package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fundingScope/internal/model"
)

// Store provides Postgres persistence for replayed steps and activity counts.
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

// PutSteps implements storage.StepSink.
func (s *Store) PutSteps(ctx context.Context, steps []model.EnrichedStep) error {
	if len(steps) == 0 {
		return nil
	}
	if err := s.UpsertSteps(ctx, steps); err != nil {
		return fmt.Errorf("upsert steps: %w", err)
	}
	if err := s.ReplaceStepEvents(ctx, steps); err != nil {
		return fmt.Errorf("replace step events: %w", err)
	}
	return nil
}

// UpsertSteps inserts or updates one row per transaction step.
func (s *Store) UpsertSteps(ctx context.Context, steps []model.EnrichedStep) error {
	batch := &pgx.Batch{}
	queued := 0
	for _, step := range steps {
		if step.Hash == "" {
			continue
		}

		var hookFrom, hookTo, hookReason *string
		if step.CrossContractHook != nil {
			from := string(step.CrossContractHook.From)
			to := string(step.CrossContractHook.To)
			hookFrom, hookTo, hookReason = &from, &to, &step.CrossContractHook.Reason
		}
		data, err := marshalNullable(step.Data)
		if err != nil {
			return fmt.Errorf("marshal step data: %w", err)
		}

		batch.Queue(`
			INSERT INTO steps (
				tx_hash, label, source_contract, fn, block_number, block_ts,
				event_count, hero_count, hook_from, hook_to, hook_reason, data, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,now(),now())
			ON CONFLICT (tx_hash)
			DO UPDATE SET
				label = EXCLUDED.label,
				source_contract = EXCLUDED.source_contract,
				fn = EXCLUDED.fn,
				block_number = EXCLUDED.block_number,
				block_ts = EXCLUDED.block_ts,
				event_count = EXCLUDED.event_count,
				hero_count = EXCLUDED.hero_count,
				hook_from = EXCLUDED.hook_from,
				hook_to = EXCLUDED.hook_to,
				hook_reason = EXCLUDED.hook_reason,
				data = EXCLUDED.data,
				updated_at = now()
		`,
			step.Hash,
			step.Step,
			string(step.SourceContract),
			step.Fn,
			int64(step.BlockNumber),
			int64(step.Timestamp),
			len(step.Events),
			step.HeroCount(),
			hookFrom,
			hookTo,
			hookReason,
			data,
		)
		queued++
	}

	return s.sendBatch(ctx, batch, queued)
}

// ReplaceStepEvents rewrites the decoded events of each step, keyed by
// transaction hash and position in the step.
func (s *Store) ReplaceStepEvents(ctx context.Context, steps []model.EnrichedStep) error {
	batch := &pgx.Batch{}
	queued := 0
	for _, step := range steps {
		if step.Hash == "" {
			continue
		}
		batch.Queue(`DELETE FROM step_events WHERE tx_hash = $1`, step.Hash)
		queued++
		for position, event := range step.Events {
			args, err := json.Marshal(event.Args)
			if err != nil {
				return fmt.Errorf("marshal args: %w", err)
			}
			batch.Queue(`
				INSERT INTO step_events (tx_hash, position, contract, event_name, args, is_hero, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, now())
			`,
				step.Hash,
				position,
				string(event.Contract),
				event.Event,
				args,
				event.IsHero,
			)
			queued++
		}
	}

	return s.sendBatch(ctx, batch, queued)
}

// upsertEventWindowCountSQL keeps the smallest known first block. A zero
// block means the step carried no block number and never wins LEAST.
const upsertEventWindowCountSQL = `
	INSERT INTO event_window_counts (
		contract, event_name, window_size_seconds, window_start_ts, window_end_ts,
		event_count, hero_count, step_count, first_block, last_block, created_at, updated_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,now(),now())
	ON CONFLICT (contract, event_name, window_size_seconds, window_start_ts)
	DO UPDATE SET
		window_end_ts = EXCLUDED.window_end_ts,
		event_count = EXCLUDED.event_count,
		hero_count = EXCLUDED.hero_count,
		step_count = EXCLUDED.step_count,
		first_block = COALESCE(LEAST(NULLIF(event_window_counts.first_block, 0), NULLIF(EXCLUDED.first_block, 0)), 0),
		last_block = GREATEST(event_window_counts.last_block, EXCLUDED.last_block),
		updated_at = now()
`

// UpsertEventWindowCounts inserts or updates windowed activity counts.
func (s *Store) UpsertEventWindowCounts(ctx context.Context, counts []model.EventWindowCount) error {
	if len(counts) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, c := range counts {
		batch.Queue(upsertEventWindowCountSQL,
			string(c.Contract),
			c.EventName,
			c.WindowSizeSecs,
			c.WindowStart,
			c.WindowEnd,
			int64(c.EventCount),
			int64(c.HeroCount),
			int64(c.StepCount),
			int64(c.FirstBlock),
			int64(c.LastBlock),
		)
	}

	return s.sendBatch(ctx, batch, len(counts))
}

// LoadState returns the last processed position stored under name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var last int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed FROM replay_state WHERE name=$1`, name)
	if err := row.Scan(&last); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(last), true, nil
}

// SaveState upserts the last processed position for name.
func (s *Store) SaveState(ctx context.Context, name string, last uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO replay_state (name, last_processed, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed = EXCLUDED.last_processed, updated_at = now()
	`, name, int64(last))
	return err
}

func (s *Store) sendBatch(ctx context.Context, batch *pgx.Batch, queued int) error {
	if queued == 0 {
		return nil
	}
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < queued; i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func marshalNullable(data map[string]interface{}) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	return json.Marshal(data)
}
