package backends

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tidewatch/tidewatch"
	"github.com/tidewatch/tidewatch/log"
)

// Postgres stores values as single rows keyed by the logical key. A row
// upsert is atomic on the server, so a concurrent reader sees the previous
// complete value or the new one; the future decouples the caller from the
// round trip the same way the filesystem backend decouples it from the disk.
type Postgres struct {
	mu     sync.RWMutex
	pool   *pgxpool.Pool
	closed bool

	log       *log.Logger
	telemetry *tidewatch.Telemetry
}

// NewPostgres connects to connString (a standard PostgreSQL URL) and ensures
// the state table exists.
func NewPostgres(ctx context.Context, connString string, opts ...Option) (*Postgres, error) {
	options := newDefaultOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("invalid connection string: %w", err)
	}

	// Avoid prepared-statement cache collisions across pooled connections
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	backend := &Postgres{
		pool:      pool,
		log:       options.Logger,
		telemetry: options.Telemetry,
	}

	if err := backend.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return backend, nil
}

func (b *Postgres) initSchema(ctx context.Context) error {
	_, err := b.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS durable_state (
			key TEXT PRIMARY KEY,
			value BYTEA NOT NULL,
			updated_at BIGINT NOT NULL
		)`)
	return err
}

func (b *Postgres) ListKeys(ctx context.Context) ([]string, error) {
	if err := b.guard(); err != nil {
		return nil, err
	}

	rows, err := b.pool.Query(ctx, `SELECT key FROM durable_state ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (b *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	if err := b.guard(); err != nil {
		return nil, err
	}

	var value []byte
	err := b.pool.QueryRow(ctx, `SELECT value FROM durable_state WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", tidewatch.ErrNotExist, key)
		}
		return nil, err
	}
	return value, nil
}

func (b *Postgres) Put(ctx context.Context, key string, value []byte) tidewatch.PutFuture {
	if err := b.guard(); err != nil {
		return tidewatch.ResolvedFuture(err)
	}

	future, resolve := tidewatch.Promise()

	go func() {
		_, err := b.pool.Exec(ctx, `
			INSERT INTO durable_state (key, value, updated_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (key) DO UPDATE SET
				value = EXCLUDED.value,
				updated_at = EXCLUDED.updated_at`,
			key, value, time.Now().UnixNano())
		if err != nil {
			b.log.Error("put %s: %v", key, err)
		}
		b.telemetry.PutCompleted("postgres", err)
		resolve(err)
	}()

	return future
}

func (b *Postgres) Remove(ctx context.Context, key string) error {
	if err := b.guard(); err != nil {
		return err
	}

	tag, err := b.pool.Exec(ctx, `DELETE FROM durable_state WHERE key = $1`, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", tidewatch.ErrNotExist, key)
	}
	return nil
}

// Close releases the connection pool. Operations after Close fail with
// ErrClosed.
func (b *Postgres) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	b.pool.Close()
}

func (b *Postgres) guard() error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return tidewatch.ErrClosed
	}
	return nil
}
