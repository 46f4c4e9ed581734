// Package store persists the telemetry the location sources read: cells,
// cell areas and wifi access points, for the crowd-sourced dataset and the
// OpenCellID dataset.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geolocate/internal/identifier"
	"github.com/sells-group/geolocate/internal/model"
)

// Dataset selects which cell tables a call reads or writes.
type Dataset string

const (
	// Internal is the crowd-sourced dataset.
	Internal Dataset = "internal"
	// OCID is the OpenCellID dataset.
	OCID Dataset = "ocid"
)

// ParseDataset parses a dataset name.
func ParseDataset(s string) (Dataset, error) {
	switch Dataset(s) {
	case Internal, OCID:
		return Dataset(s), nil
	}
	return "", eris.Errorf("store: unknown dataset %q", s)
}

func (d Dataset) cellTable() string {
	if d == OCID {
		return "cell_ocid"
	}
	return "cell"
}

func (d Dataset) areaTable() string {
	if d == OCID {
		return "cell_area_ocid"
	}
	return "cell_area"
}

// Store is the telemetry store. Lookups of unknown keys return an empty
// slice, never an error. Every failed call returns a *StorageError.
type Store interface {
	Cells(ctx context.Context, ds Dataset, ids []identifier.CellID) ([]model.Cell, error)
	CellAreas(ctx context.Context, ds Dataset, ids []identifier.CellAreaID) ([]model.CellArea, error)
	CellsInAreas(ctx context.Context, ds Dataset, ids []identifier.CellAreaID) ([]model.Cell, error)
	Wifis(ctx context.Context, macs []string) ([]model.Wifi, error)

	UpsertCells(ctx context.Context, ds Dataset, cells []model.Cell) (int64, error)
	UpsertCellAreas(ctx context.Context, ds Dataset, areas []model.CellArea) (int64, error)
	UpsertWifis(ctx context.Context, wifis []model.Wifi) (int64, error)

	Migrate(ctx context.Context) error
	Close() error
}

// ErrStorageUnavailable is matched by every *StorageError.
var ErrStorageUnavailable = eris.New("storage unavailable")

// StorageError reports a failed store call.
type StorageError struct {
	Op      string
	Dataset Dataset
	Err     error
}

func (e *StorageError) Error() string {
	if e.Dataset == "" {
		return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store: %s %s: %v", e.Op, e.Dataset, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrStorageUnavailable) hold for any StorageError.
func (e *StorageError) Is(target error) bool { return target == ErrStorageUnavailable }

func storageErr(op string, ds Dataset, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Dataset: ds, Err: err}
}

const (
	cellColumns = "cellid, areaid, radio, mcc, mnc, lac, cid, lat, lon, radius, samples, region, created, last_seen"
	areaColumns = "areaid, radio, mcc, mnc, lac, num_cells, lat, lon, radius, samples, region, created, last_seen"
	wifiColumns = "mac, lat, lon, radius, samples, region, created, last_seen"
)

type scannable interface {
	Scan(dest ...any) error
}

func scanCell(row scannable) (model.Cell, error) {
	var c model.Cell
	var id, area []byte
	var radio int
	err := row.Scan(&id, &area, &radio, &c.MCC, &c.MNC, &c.LAC, &c.CID,
		&c.Lat, &c.Lon, &c.Radius, &c.Samples, &c.Region, &c.Created, &c.LastSeen)
	if err != nil {
		return c, eris.Wrap(err, "scan cell")
	}
	c.Radio = identifier.Radio(radio)
	if c.ID, err = identifier.DecodeCellID(id); err != nil {
		return c, eris.Wrap(err, "decode cell id")
	}
	return c, nil
}

func scanArea(row scannable) (model.CellArea, error) {
	var a model.CellArea
	var id []byte
	var radio int
	err := row.Scan(&id, &radio, &a.MCC, &a.MNC, &a.LAC, &a.NumCells,
		&a.Lat, &a.Lon, &a.Radius, &a.Samples, &a.Region, &a.Created, &a.LastSeen)
	if err != nil {
		return a, eris.Wrap(err, "scan cell area")
	}
	a.Radio = identifier.Radio(radio)
	if a.ID, err = identifier.DecodeCellAreaID(id); err != nil {
		return a, eris.Wrap(err, "decode area id")
	}
	return a, nil
}

func scanWifi(row scannable) (model.Wifi, error) {
	var w model.Wifi
	var mac []byte
	err := row.Scan(&mac, &w.Lat, &w.Lon, &w.Radius, &w.Samples, &w.Region, &w.Created, &w.LastSeen)
	if err != nil {
		return w, eris.Wrap(err, "scan wifi")
	}
	if w.MAC, err = identifier.DecodeMAC(mac, identifier.Raw); err != nil {
		return w, eris.Wrap(err, "decode mac")
	}
	return w, nil
}

func cellRow(c model.Cell) []any {
	return []any{c.ID.Bytes(), c.AreaID().Bytes(), int(c.Radio), c.MCC, c.MNC, c.LAC, c.CID,
		c.Lat, c.Lon, c.Radius, c.Samples, c.Region, c.Created.UTC(), c.LastSeen.UTC()}
}

func areaRow(a model.CellArea) []any {
	return []any{a.ID.Bytes(), int(a.Radio), a.MCC, a.MNC, a.LAC, a.NumCells,
		a.Lat, a.Lon, a.Radius, a.Samples, a.Region, a.Created.UTC(), a.LastSeen.UTC()}
}

func wifiRow(w model.Wifi) ([]any, error) {
	mac, err := identifier.EncodeMAC(w.MAC, identifier.Raw)
	if err != nil {
		return nil, err
	}
	return []any{mac, w.Lat, w.Lon, w.Radius, w.Samples, w.Region, w.Created.UTC(), w.LastSeen.UTC()}, nil
}

func cellKeys(ids []identifier.CellID) [][]byte {
	keys := make([][]byte, len(ids))
	for i, id := range ids {
		keys[i] = id.Bytes()
	}
	return keys
}

func areaKeys(ids []identifier.CellAreaID) [][]byte {
	keys := make([][]byte, len(ids))
	for i, id := range ids {
		keys[i] = id.Bytes()
	}
	return keys
}

// macKeys encodes the valid MACs; invalid ones cannot be stored and are skipped.
func macKeys(macs []string) [][]byte {
	keys := make([][]byte, 0, len(macs))
	for _, m := range macs {
		if raw, err := identifier.EncodeMAC(m, identifier.Raw); err == nil {
			keys = append(keys, raw)
		}
	}
	return keys
}
