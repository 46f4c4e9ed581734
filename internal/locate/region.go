package locate

import (
	"context"
	"time"

	"github.com/sells-group/geolocate/internal/identifier"
	"github.com/sells-group/geolocate/internal/model"
	"github.com/sells-group/geolocate/internal/store"
	"github.com/sells-group/geolocate/pkg/geocode"
)

// MCCRegionSource answers region queries from the country codes of the
// observed cells. A code used by a single region names it with certainty.
// A code shared by N regions gives each 1/N, plus the score of every stored
// cell area of the query located in that region.
type MCCRegionSource struct {
	geocoder RegionGeocoder
	store    CellStore
	scoring
}

// NewMCCRegionSource builds the source. The store is only read for
// ambiguous country codes.
func NewMCCRegionSource(geocoder RegionGeocoder, st CellStore, score model.ScoreFunc) *MCCRegionSource {
	return &MCCRegionSource{geocoder: geocoder, store: st, scoring: newScoring(score)}
}

// WithNow sets a fixed time for scoring.
func (s *MCCRegionSource) WithNow(t time.Time) *MCCRegionSource {
	s.now = func() time.Time { return t }
	return s
}

func (s *MCCRegionSource) Name() string { return "mcc" }
func (s *MCCRegionSource) Kind() Kind { return RegionKind }

func (s *MCCRegionSource) ShouldSearch(q *Query, results ResultList) bool {
	return len(q.areas) > 0 && !results.Satisfies(q)
}

func (s *MCCRegionSource) Search(ctx context.Context, q *Query) (ResultList, error) {
	results := NewRegionList()
	ambiguous := make(map[int][]*geocode.Region)
	seen := make(map[int]bool)
	var areaIDs []identifier.CellAreaID

	for _, a := range q.areas {
		if seen[a.MCC] {
			if _, ok := ambiguous[a.MCC]; ok {
				areaIDs = append(areaIDs, a.ID)
			}
			continue
		}
		seen[a.MCC] = true

		regions := s.geocoder.RegionsForMCC(a.MCC)
		switch len(regions) {
		case 0:
			continue
		case 1:
			r := regions[0]
			results.results = append(results.results, newRegion(r.Code, r.Name, r.Radius(), UniqueMCCScore, Internal, NoFallback))
			continue
		}
		share := 1 / float64(len(regions))
		for _, r := range regions {
			results.results = append(results.results, newRegion(r.Code, r.Name, r.Radius(), share, Internal, NoFallback))
		}
		ambiguous[a.MCC] = regions
		areaIDs = append(areaIDs, a.ID)
	}

	if len(areaIDs) == 0 {
		return results, nil
	}
	areas, err := s.store.CellAreas(ctx, store.Internal, areaIDs)
	if err != nil {
		return nil, err
	}
	order := make(map[identifier.CellAreaID]int, len(areaIDs))
	for i, id := range areaIDs {
		order[id] = i
	}
	sortByOrder(areas, func(a model.CellArea) int { return order[a.ID] })

	now := s.now()
	for _, area := range areas {
		r := s.locateArea(area, ambiguous[area.MCC])
		if r == nil {
			continue
		}
		results.results = append(results.results, newRegion(r.Code, r.Name, r.Radius(), s.score(area.Station, now), Internal, NoFallback))
	}
	return results, nil
}

// locateArea returns the candidate region holding the area: its stored
// region if it is a candidate, else the smallest candidate containing it.
func (s *MCCRegionSource) locateArea(area model.CellArea, candidates []*geocode.Region) *geocode.Region {
	if area.Region != "" {
		for _, r := range candidates {
			if r.Code == area.Region {
				return r
			}
		}
		return nil
	}
	var best *geocode.Region
	for _, r := range candidates {
		if !s.geocoder.RegionContains(area.Lat, area.Lon, r.Code) {
			continue
		}
		if best == nil || r.Smaller(best) {
			best = r
		}
	}
	return best
}
