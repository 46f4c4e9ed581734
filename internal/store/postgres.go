package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geolocate/internal/db"
	"github.com/sells-group/geolocate/internal/identifier"
	"github.com/sells-group/geolocate/internal/model"
	"github.com/sells-group/geolocate/internal/resilience"
)

// PostgresStore implements Store using pgxpool. Every call is retried on
// transient errors and guarded by a per-dataset circuit breaker.
type PostgresStore struct {
	pool     db.Pool
	closeFn  func()
	retry    resilience.RetryConfig
	breakers *resilience.Breakers
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithRetry sets the retry policy for store calls.
func WithRetry(cfg resilience.RetryConfig) PostgresOption {
	return func(s *PostgresStore) { s.retry = cfg }
}

// WithCircuitBreaker sets the breaker policy for store calls.
func WithCircuitBreaker(cfg resilience.CircuitBreakerConfig) PostgresOption {
	return func(s *PostgresStore) { s.breakers = resilience.NewBreakers(cfg) }
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig, opts ...PostgresOption) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, storageErr("parse config", "", err)
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			pgxCfg.MaxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			pgxCfg.MinConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, storageErr("create pool", "", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, storageErr("ping", "", err)
	}
	s := newPostgresStore(pool, opts...)
	s.closeFn = pool.Close
	return s, nil
}

func newPostgresStore(pool db.Pool, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{
		pool:     pool,
		retry:    resilience.DefaultRetryConfig(),
		breakers: resilience.NewBreakers(resilience.FromCircuitConfig(0, 0)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.retry.OnRetry == nil {
		s.retry.OnRetry = resilience.RetryLogger("store", "postgres")
	}
	return s
}

// Migrate creates the telemetry tables.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema("BYTEA", "TIMESTAMPTZ"))
	return storageErr("migrate", "", err)
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// call runs fn under the dataset's breaker with retries on transient errors.
func call[T any](ctx context.Context, s *PostgresStore, op string, ds Dataset, fn func(ctx context.Context) (T, error)) (T, error) {
	name := string(ds)
	if name == "" {
		name = "wifi"
	}
	cb := s.breakers.Get(name)
	val, err := resilience.DoVal(ctx, s.retry, func(ctx context.Context) (T, error) {
		return resilience.ExecuteVal(ctx, cb, fn)
	})
	if err != nil {
		zap.L().Debug("postgres: store call failed",
			zap.String("op", op),
			zap.String("dataset", name),
			zap.Error(err),
		)
	}
	return val, storageErr(op, ds, err)
}

func (s *PostgresStore) Cells(ctx context.Context, ds Dataset, ids []identifier.CellID) ([]model.Cell, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := fmt.Sprintf("SELECT %s FROM %s WHERE cellid = ANY($1)", cellColumns, ds.cellTable())
	return call(ctx, s, "cells", ds, func(ctx context.Context) ([]model.Cell, error) {
		return pgSelect(ctx, s.pool, q, cellKeys(ids), scanCell)
	})
}

func (s *PostgresStore) CellAreas(ctx context.Context, ds Dataset, ids []identifier.CellAreaID) ([]model.CellArea, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := fmt.Sprintf("SELECT %s FROM %s WHERE areaid = ANY($1)", areaColumns, ds.areaTable())
	return call(ctx, s, "cell areas", ds, func(ctx context.Context) ([]model.CellArea, error) {
		return pgSelect(ctx, s.pool, q, areaKeys(ids), scanArea)
	})
}

func (s *PostgresStore) CellsInAreas(ctx context.Context, ds Dataset, ids []identifier.CellAreaID) ([]model.Cell, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := fmt.Sprintf("SELECT %s FROM %s WHERE areaid = ANY($1) ORDER BY cellid", cellColumns, ds.cellTable())
	return call(ctx, s, "cells in areas", ds, func(ctx context.Context) ([]model.Cell, error) {
		return pgSelect(ctx, s.pool, q, areaKeys(ids), scanCell)
	})
}

func (s *PostgresStore) Wifis(ctx context.Context, macs []string) ([]model.Wifi, error) {
	keys := macKeys(macs)
	if len(keys) == 0 {
		return nil, nil
	}
	q := fmt.Sprintf("SELECT %s FROM wifi WHERE mac = ANY($1)", wifiColumns)
	return call(ctx, s, "wifis", "", func(ctx context.Context) ([]model.Wifi, error) {
		return pgSelect(ctx, s.pool, q, keys, scanWifi)
	})
}

func (s *PostgresStore) UpsertCells(ctx context.Context, ds Dataset, cells []model.Cell) (int64, error) {
	rows := make([][]any, len(cells))
	for i, c := range cells {
		rows[i] = cellRow(c)
	}
	return s.upsert(ctx, "upsert cells", ds, ds.cellTable(), cellColumns, "cellid", rows)
}

func (s *PostgresStore) UpsertCellAreas(ctx context.Context, ds Dataset, areas []model.CellArea) (int64, error) {
	rows := make([][]any, len(areas))
	for i, a := range areas {
		rows[i] = areaRow(a)
	}
	return s.upsert(ctx, "upsert cell areas", ds, ds.areaTable(), areaColumns, "areaid", rows)
}

func (s *PostgresStore) UpsertWifis(ctx context.Context, wifis []model.Wifi) (int64, error) {
	rows := make([][]any, 0, len(wifis))
	for _, w := range wifis {
		row, err := wifiRow(w)
		if err != nil {
			return 0, storageErr("upsert wifis", "", err)
		}
		rows = append(rows, row)
	}
	return s.upsert(ctx, "upsert wifis", "", "wifi", wifiColumns, "mac", rows)
}

func (s *PostgresStore) upsert(ctx context.Context, op string, ds Dataset, table, columns, key string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	cfg := db.UpsertConfig{
		Table:        table,
		Columns:      strings.Split(columns, ", "),
		ConflictKeys: []string{key},
	}
	return call(ctx, s, op, ds, func(ctx context.Context) (int64, error) {
		return db.BulkUpsert(ctx, s.pool, cfg, rows)
	})
}

func pgSelect[T any](ctx context.Context, pool db.Pool, query string, keys [][]byte, scan func(scannable) (T, error)) ([]T, error) {
	rows, err := pool.Query(ctx, query, keys)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query")
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres")
		}
		out = append(out, v)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate")
}
