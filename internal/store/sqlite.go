package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/geolocate/internal/identifier"
	"github.com/sells-group/geolocate/internal/model"
)

// sqliteMaxParams keeps IN lists well below SQLite's variable limit.
const sqliteMaxParams = 500

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, storageErr("open", "", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, storageErr("open", "", eris.Wrapf(err, "exec %s", pragma))
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Migrate creates the telemetry tables.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema("BLOB", "DATETIME"))
	return storageErr("migrate", "", err)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Cells(ctx context.Context, ds Dataset, ids []identifier.CellID) ([]model.Cell, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE cellid IN (%%s)", cellColumns, ds.cellTable())
	cells, err := sqliteSelect(ctx, s.db, q, cellKeys(ids), scanCell)
	return cells, storageErr("cells", ds, err)
}

func (s *SQLiteStore) CellAreas(ctx context.Context, ds Dataset, ids []identifier.CellAreaID) ([]model.CellArea, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE areaid IN (%%s)", areaColumns, ds.areaTable())
	areas, err := sqliteSelect(ctx, s.db, q, areaKeys(ids), scanArea)
	return areas, storageErr("cell areas", ds, err)
}

func (s *SQLiteStore) CellsInAreas(ctx context.Context, ds Dataset, ids []identifier.CellAreaID) ([]model.Cell, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE areaid IN (%%s) ORDER BY cellid", cellColumns, ds.cellTable())
	cells, err := sqliteSelect(ctx, s.db, q, areaKeys(ids), scanCell)
	return cells, storageErr("cells in areas", ds, err)
}

func (s *SQLiteStore) Wifis(ctx context.Context, macs []string) ([]model.Wifi, error) {
	q := fmt.Sprintf("SELECT %s FROM wifi WHERE mac IN (%%s)", wifiColumns)
	wifis, err := sqliteSelect(ctx, s.db, q, macKeys(macs), scanWifi)
	return wifis, storageErr("wifis", "", err)
}

func (s *SQLiteStore) UpsertCells(ctx context.Context, ds Dataset, cells []model.Cell) (int64, error) {
	rows := make([][]any, len(cells))
	for i, c := range cells {
		rows[i] = cellRow(c)
	}
	n, err := s.upsert(ctx, ds.cellTable(), cellColumns, "cellid", rows)
	return n, storageErr("upsert cells", ds, err)
}

func (s *SQLiteStore) UpsertCellAreas(ctx context.Context, ds Dataset, areas []model.CellArea) (int64, error) {
	rows := make([][]any, len(areas))
	for i, a := range areas {
		rows[i] = areaRow(a)
	}
	n, err := s.upsert(ctx, ds.areaTable(), areaColumns, "areaid", rows)
	return n, storageErr("upsert cell areas", ds, err)
}

func (s *SQLiteStore) UpsertWifis(ctx context.Context, wifis []model.Wifi) (int64, error) {
	rows := make([][]any, 0, len(wifis))
	for _, w := range wifis {
		row, err := wifiRow(w)
		if err != nil {
			return 0, storageErr("upsert wifis", "", err)
		}
		rows = append(rows, row)
	}
	n, err := s.upsert(ctx, "wifi", wifiColumns, "mac", rows)
	return n, storageErr("upsert wifis", "", err)
}

func (s *SQLiteStore) upsert(ctx context.Context, table, columns, key string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	cols := strings.Split(columns, ", ")
	sets := make([]string, 0, len(cols)-1)
	for _, c := range cols {
		if c != key {
			sets = append(sets, fmt.Sprintf("%s = excluded.%s", c, c))
		}
	}
	stmtSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(%s) DO UPDATE SET %s",
		table, columns, placeholders(len(cols)), key, strings.Join(sets, ", "))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		return 0, eris.Wrapf(err, "prepare upsert %s", table)
	}
	defer stmt.Close() //nolint:errcheck

	var n int64
	for _, row := range rows {
		res, err := stmt.ExecContext(ctx, row...)
		if err != nil {
			return 0, eris.Wrapf(err, "upsert %s", table)
		}
		affected, _ := res.RowsAffected()
		n += affected
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "commit tx")
	}
	return n, nil
}

// sqliteSelect runs query once per chunk of keys, substituting the IN list
// placeholder.
func sqliteSelect[T any](ctx context.Context, db *sql.DB, query string, keys [][]byte, scan func(scannable) (T, error)) ([]T, error) {
	var out []T
	for start := 0; start < len(keys); start += sqliteMaxParams {
		chunk := keys[start:min(start+sqliteMaxParams, len(keys))]
		args := make([]any, len(chunk))
		for i, k := range chunk {
			args[i] = k
		}
		rows, err := db.QueryContext(ctx, fmt.Sprintf(query, placeholders(len(chunk))), args...)
		if err != nil {
			return nil, eris.Wrap(err, "query")
		}
		for rows.Next() {
			v, err := scan(rows)
			if err != nil {
				rows.Close() //nolint:errcheck
				return nil, err
			}
			out = append(out, v)
		}
		err = rows.Err()
		rows.Close() //nolint:errcheck
		if err != nil {
			return nil, eris.Wrap(err, "iterate")
		}
	}
	return out, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
