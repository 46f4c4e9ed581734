package locate

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geolocate/internal/model"
)

// State is the progress of one fusion pass.
type State int

const (
	Pending State = iota
	Searching
	Satisfied
	Exhausted
)

var stateNames = [...]string{"pending", "searching", "satisfied", "exhausted"}

func (s State) String() string {
	if s < Pending || s > Exhausted {
		return "unknown"
	}
	return stateNames[s]
}

// SearchOutcome describes a finished fusion pass.
type SearchOutcome struct {
	Result    Result
	Results   ResultList
	State     State
	Consulted []string
}

// Searcher consults its sources in priority order until the accumulated
// candidates satisfy the query. A Searcher holds no per-query state and is
// safe for concurrent use when its sources are.
type Searcher struct {
	kind    Kind
	sources []Source
}

// NewPositionSearcher returns a Searcher over position sources.
func NewPositionSearcher(sources ...Source) (*Searcher, error) {
	return newSearcher(PositionKind, sources)
}

// NewRegionSearcher returns a Searcher over region sources.
func NewRegionSearcher(sources ...Source) (*Searcher, error) {
	return newSearcher(RegionKind, sources)
}

func newSearcher(kind Kind, sources []Source) (*Searcher, error) {
	for _, src := range sources {
		if src.Kind() != kind {
			return nil, eris.Wrapf(ErrKindMismatch, "source %s in %s searcher", src.Name(), kind)
		}
	}
	return &Searcher{kind: kind, sources: append([]Source(nil), sources...)}, nil
}

// Kind is the kind of result the searcher produces.
func (s *Searcher) Kind() Kind { return s.kind }

// Search returns the best result for q. Finding nothing is not an error;
// the result is then empty.
func (s *Searcher) Search(ctx context.Context, q *Query) (Result, error) {
	out, err := s.Run(ctx, q)
	if err != nil {
		return nil, err
	}
	return out.Result, nil
}

// Run performs one fusion pass. A source error ends the pass and is
// returned wrapped with the source name.
func (s *Searcher) Run(ctx context.Context, q *Query) (SearchOutcome, error) {
	out := SearchOutcome{State: Pending, Results: NewResultList(s.kind)}
	if q.Kind() != s.kind {
		return out, eris.Wrapf(ErrKindMismatch, "%s query in %s searcher", q.Kind(), s.kind)
	}

	out.State = Searching
	for _, src := range s.sources {
		if !src.ShouldSearch(q, out.Results) {
			continue
		}
		out.Consulted = append(out.Consulted, src.Name())

		found, err := src.Search(ctx, q)
		if err != nil {
			return out, eris.Wrapf(err, "locate: %s source", src.Name())
		}
		if err := out.Results.Extend(found); err != nil {
			return out, eris.Wrapf(err, "locate: %s source", src.Name())
		}

		best := out.Results.Best(q.ExpectedAccuracy())
		status := "miss"
		if found != nil && found.Len() > 0 {
			status = "hit"
		}
		zap.L().Debug("locate: source searched",
			zap.String("source", src.Name()),
			zap.String("kind", s.kind.String()),
			zap.String("status", status),
			zap.String("accuracy", best.DataAccuracy().String()),
		)

		if out.Results.Satisfies(q) {
			out.State = Satisfied
			break
		}
	}
	if out.State != Satisfied {
		out.State = Exhausted
	}
	out.Result = out.Results.Best(q.ExpectedAccuracy())
	return out, nil
}

// TelemetryStore is the store read by the default sources.
type TelemetryStore interface {
	CellStore
	WifiStore
}

// Sources are the collaborators of the default searchers.
type Sources struct {
	Store    TelemetryStore
	Geocoder RegionGeocoder
	GeoIP    IPDatabase
	Score    model.ScoreFunc

	// OCID adds the OpenCellID dataset after the crowd-sourced cells.
	OCID bool
}

// NewDefaultPositionSearcher consults wifi, cells, OpenCellID cells when
// enabled, then the IP database.
func NewDefaultPositionSearcher(d Sources) *Searcher {
	sources := []Source{
		NewWifiPositionSource(d.Store, d.Score),
		NewCellPositionSource(d.Store, d.Score),
	}
	if d.OCID {
		sources = append(sources, NewOCIDPositionSource(d.Store, d.Score))
	}
	if d.GeoIP != nil {
		sources = append(sources, NewGeoIPPositionSource(d.GeoIP))
	}
	return &Searcher{kind: PositionKind, sources: sources}
}

// NewDefaultRegionSearcher consults country codes, then the IP database.
func NewDefaultRegionSearcher(d Sources) *Searcher {
	sources := []Source{NewMCCRegionSource(d.Geocoder, d.Store, d.Score)}
	if d.GeoIP != nil {
		sources = append(sources, NewGeoIPRegionSource(d.GeoIP))
	}
	return &Searcher{kind: RegionKind, sources: sources}
}
