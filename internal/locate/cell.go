package locate

import (
	"context"
	"sort"
	"time"

	"github.com/sells-group/geolocate/internal/geo"
	"github.com/sells-group/geolocate/internal/identifier"
	"github.com/sells-group/geolocate/internal/model"
	"github.com/sells-group/geolocate/internal/store"
)

// CellPositionSource locates a query from stored cells, falling back to
// the smallest stored cell area when no cell matches.
type CellPositionSource struct {
	name    string
	store   CellStore
	dataset store.Dataset
	source  DataSource
	scoring
}

// NewCellPositionSource reads the crowd-sourced cell tables.
func NewCellPositionSource(st CellStore, score model.ScoreFunc) *CellPositionSource {
	return &CellPositionSource{name: "cell", store: st, dataset: store.Internal, source: Internal, scoring: newScoring(score)}
}

// NewOCIDPositionSource reads the OpenCellID cell tables.
func NewOCIDPositionSource(st CellStore, score model.ScoreFunc) *CellPositionSource {
	return &CellPositionSource{name: "ocid", store: st, dataset: store.OCID, source: OCID, scoring: newScoring(score)}
}

// WithNow sets a fixed time for scoring.
func (s *CellPositionSource) WithNow(t time.Time) *CellPositionSource {
	s.now = func() time.Time { return t }
	return s
}

func (s *CellPositionSource) Name() string { return s.name }
func (s *CellPositionSource) Kind() Kind { return PositionKind }

func (s *CellPositionSource) usable(q *Query) bool {
	return len(q.cells) > 0 || (q.areaFallback && len(q.areas) > 0)
}

func (s *CellPositionSource) ShouldSearch(q *Query, results ResultList) bool {
	return s.usable(q) && !results.Satisfies(q)
}

func (s *CellPositionSource) Search(ctx context.Context, q *Query) (ResultList, error) {
	results := NewPositionList()
	if !s.usable(q) {
		return results, nil
	}
	now := s.now()

	if len(q.cells) > 0 {
		ids := make([]identifier.CellID, len(q.cells))
		for i, c := range q.cells {
			ids[i] = c.ID
		}
		cells, err := s.store.Cells(ctx, s.dataset, ids)
		if err != nil {
			return nil, err
		}
		if len(cells) > 0 {
			results.results = s.cellPositions(cells, now)
			return results, nil
		}
	}

	if !q.areaFallback || len(q.areas) == 0 {
		return results, nil
	}
	ids := make([]identifier.CellAreaID, len(q.areas))
	for i, a := range q.areas {
		ids[i] = a.ID
	}
	areas, err := s.store.CellAreas(ctx, s.dataset, ids)
	if err != nil {
		return nil, err
	}
	if p, ok := s.areaPosition(areas, now); ok {
		results.results = append(results.results, p)
	}
	return results, nil
}

// cellPositions groups matched cells by area and reduces every group to
// one position.
func (s *CellPositionSource) cellPositions(cells []model.Cell, now time.Time) []Position {
	index := make(map[identifier.CellAreaID]int)
	var groups [][]model.Cell
	for _, c := range cells {
		area := c.AreaID()
		i, ok := index[area]
		if !ok {
			i = len(groups)
			index[area] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], c)
	}

	positions := make([]Position, 0, len(groups))
	for _, group := range groups {
		points := make([]geo.Point, len(group))
		circles := make([]geo.Circle, len(group))
		var score float64
		for i, c := range group {
			points[i] = geo.Point{Lat: c.Lat, Lon: c.Lon, Weight: float64(c.Samples)}
			circles[i] = geo.Circle{Lat: c.Lat, Lon: c.Lon, Radius: c.Radius}
			score += s.score(c.Station, now)
		}
		lat, lon, ok := geo.WeightedCentroid(points)
		if !ok {
			continue
		}
		accuracy := clamp(geo.CircleRadius(lat, lon, circles), CellMinAccuracy, CellMaxAccuracy)
		positions = append(positions, newPosition(lat, lon, accuracy, score, s.source, NoFallback))
	}
	return positions
}

// areaPosition answers from the stored area with the smallest radius.
func (s *CellPositionSource) areaPosition(areas []model.CellArea, now time.Time) (Position, bool) {
	if len(areas) == 0 {
		return Position{}, false
	}
	sort.SliceStable(areas, func(i, j int) bool {
		if areas[i].Radius != areas[j].Radius {
			return areas[i].Radius < areas[j].Radius
		}
		return areas[i].ID.Compare(areas[j].ID) < 0
	})
	a := areas[0]
	accuracy := max(a.Radius, CellAreaMinAccuracy)
	return newPosition(a.Lat, a.Lon, accuracy, s.score(a.Station, now), s.source, AreaFallback), true
}
