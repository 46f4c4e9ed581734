package ocid

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geolocate/internal/identifier"
	"github.com/sells-group/geolocate/internal/model"
	"github.com/sells-group/geolocate/internal/store"
)

// DefaultBatchSize is the number of cells written per upsert.
const DefaultBatchSize = 1000

// Writer is the part of store.Store the importer uses.
type Writer interface {
	UpsertCells(ctx context.Context, ds store.Dataset, cells []model.Cell) (int64, error)
	CellsInAreas(ctx context.Context, ds store.Dataset, ids []identifier.CellAreaID) ([]model.Cell, error)
	UpsertCellAreas(ctx context.Context, ds store.Dataset, areas []model.CellArea) (int64, error)
}

// Stats summarizes one import run.
type Stats struct {
	RunID    string        `json:"run_id"`
	Rows     int           `json:"rows"`
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Areas    int           `json:"areas"`
	Duration time.Duration `json:"duration"`
}

// Importer loads cell exports into one dataset.
type Importer struct {
	store     Writer
	dataset   store.Dataset
	batchSize int
	regionOf  func(lat, lon float64) string
}

// Option configures an Importer.
type Option func(*Importer)

// WithBatchSize sets the number of cells per upsert.
func WithBatchSize(n int) Option {
	return func(im *Importer) {
		if n > 0 {
			im.batchSize = n
		}
	}
}

// WithRegions names the region of every imported cell and area.
func WithRegions(regionOf func(lat, lon float64) string) Option {
	return func(im *Importer) { im.regionOf = regionOf }
}

// NewImporter creates an Importer writing to ds.
func NewImporter(w Writer, ds store.Dataset, opts ...Option) *Importer {
	im := &Importer{store: w, dataset: ds, batchSize: DefaultBatchSize}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Import streams r, plain or gzip compressed, into the store. Invalid rows
// are counted and skipped. Once all cells are written, every touched area
// is rebuilt from its stored cells.
func (im *Importer) Import(ctx context.Context, r io.Reader) (Stats, error) {
	start := time.Now()
	stats := Stats{RunID: uuid.NewString()}
	log := zap.L().With(zap.String("run_id", stats.RunID), zap.String("dataset", string(im.dataset)))

	input, closeInput, err := decompress(r)
	if err != nil {
		return stats, err
	}
	defer closeInput() //nolint:errcheck

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	rowCh, errCh := streamRows(ctx, input)

	var touched []identifier.CellAreaID
	seen := make(map[identifier.CellAreaID]bool)
	batch := make([]model.Cell, 0, im.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := im.store.UpsertCells(ctx, im.dataset, batch)
		if err != nil {
			return eris.Wrap(err, "ocid: upsert cells")
		}
		stats.Imported += int(n)
		batch = batch[:0]
		return nil
	}

	for row := range rowCh {
		stats.Rows++
		c, err := parseRow(row, im.regionOf)
		if err != nil {
			stats.Skipped++
			log.Debug("ocid: skipping row", zap.Int("row", stats.Rows), zap.Error(err))
			continue
		}
		if area := c.AreaID(); !seen[area] {
			seen[area] = true
			touched = append(touched, area)
		}
		batch = append(batch, c)
		if len(batch) >= im.batchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	if err := <-errCh; err != nil {
		return stats, err
	}
	if err := flush(); err != nil {
		return stats, err
	}

	areas, err := im.rebuildAreas(ctx, touched)
	stats.Areas = areas
	stats.Duration = time.Since(start)
	if err != nil {
		return stats, err
	}

	log.Info("ocid: import complete",
		zap.Int("rows", stats.Rows),
		zap.Int("imported", stats.Imported),
		zap.Int("skipped", stats.Skipped),
		zap.Int("areas", stats.Areas),
		zap.Duration("duration", stats.Duration),
	)
	return stats, nil
}

// rebuildAreas aggregates the stored cells of every id, batchSize areas at
// a time, and returns the number of areas written.
func (im *Importer) rebuildAreas(ctx context.Context, ids []identifier.CellAreaID) (int, error) {
	var written int
	for start := 0; start < len(ids); start += im.batchSize {
		chunk := ids[start:min(start+im.batchSize, len(ids))]
		cells, err := im.store.CellsInAreas(ctx, im.dataset, chunk)
		if err != nil {
			return written, eris.Wrap(err, "ocid: load area cells")
		}
		areas := model.AggregateAreas(cells, im.regionOf)
		if _, err := im.store.UpsertCellAreas(ctx, im.dataset, areas); err != nil {
			return written, eris.Wrap(err, "ocid: upsert cell areas")
		}
		written += len(areas)
	}
	return written, nil
}
