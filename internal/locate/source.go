package locate

import (
	"context"
	"sort"
	"time"

	"github.com/sells-group/geolocate/internal/identifier"
	"github.com/sells-group/geolocate/internal/model"
	"github.com/sells-group/geolocate/internal/store"
	"github.com/sells-group/geolocate/pkg/geocode"
	"github.com/sells-group/geolocate/pkg/geoip"
)

// Source produces candidates for one kind of result.
//
// ShouldSearch must not perform I/O. Search returns an empty list when it
// finds nothing and an error only when a collaborator failed.
type Source interface {
	Name() string
	Kind() Kind
	ShouldSearch(q *Query, results ResultList) bool
	Search(ctx context.Context, q *Query) (ResultList, error)
}

// CellStore is the part of store.Store the cell sources read.
type CellStore interface {
	Cells(ctx context.Context, ds store.Dataset, ids []identifier.CellID) ([]model.Cell, error)
	CellAreas(ctx context.Context, ds store.Dataset, ids []identifier.CellAreaID) ([]model.CellArea, error)
}

// WifiStore is the part of store.Store the wifi source reads.
type WifiStore interface {
	Wifis(ctx context.Context, macs []string) ([]model.Wifi, error)
}

// RegionGeocoder resolves country codes and regions.
type RegionGeocoder interface {
	RegionsForMCC(mcc int) []*geocode.Region
	RegionContains(lat, lon float64, code string) bool
}

// IPDatabase looks up network addresses.
type IPDatabase interface {
	Lookup(ip string) *geoip.Record
}

var (
	_ CellStore      = store.Store(nil)
	_ WifiStore      = store.Store(nil)
	_ RegionGeocoder = (*geocode.Geocoder)(nil)
	_ IPDatabase     = geoip.DB(nil)
)

// scoring holds the score function and clock shared by the stored-data
// sources.
type scoring struct {
	score model.ScoreFunc
	now   func() time.Time
}

func newScoring(score model.ScoreFunc) scoring {
	if score == nil {
		score = model.DecayScore(model.DefaultDecayConfig())
	}
	return scoring{score: score, now: time.Now}
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}

// sortByOrder orders records by the position of their key in the query.
func sortByOrder[T any](records []T, position func(T) int) {
	sort.SliceStable(records, func(i, j int) bool {
		return position(records[i]) < position(records[j])
	})
}
