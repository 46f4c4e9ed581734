package locate

import "context"

// GeoIPPositionSource answers position queries from the IP database. It
// is a fallback and only runs when IP fallback is allowed.
type GeoIPPositionSource struct {
	db IPDatabase
}

// NewGeoIPPositionSource builds the source.
func NewGeoIPPositionSource(db IPDatabase) *GeoIPPositionSource {
	return &GeoIPPositionSource{db: db}
}

func (s *GeoIPPositionSource) Name() string { return "geoip" }
func (s *GeoIPPositionSource) Kind() Kind { return PositionKind }

func (s *GeoIPPositionSource) ShouldSearch(q *Query, results ResultList) bool {
	return ipUsable(q) && !results.Satisfies(q)
}

func (s *GeoIPPositionSource) Search(_ context.Context, q *Query) (ResultList, error) {
	results := NewPositionList()
	if !ipUsable(q) {
		return results, nil
	}
	if rec := s.db.Lookup(q.ip); rec != nil {
		results.results = append(results.results, newPosition(rec.Lat, rec.Lon, rec.Radius, rec.Score, GeoIP, IPFallback))
	}
	return results, nil
}

// GeoIPRegionSource answers region queries from the IP database.
type GeoIPRegionSource struct {
	db IPDatabase
}

// NewGeoIPRegionSource builds the source.
func NewGeoIPRegionSource(db IPDatabase) *GeoIPRegionSource {
	return &GeoIPRegionSource{db: db}
}

func (s *GeoIPRegionSource) Name() string { return "geoip" }
func (s *GeoIPRegionSource) Kind() Kind { return RegionKind }

func (s *GeoIPRegionSource) ShouldSearch(q *Query, results ResultList) bool {
	return ipUsable(q) && !results.Satisfies(q)
}

func (s *GeoIPRegionSource) Search(_ context.Context, q *Query) (ResultList, error) {
	results := NewRegionList()
	if !ipUsable(q) {
		return results, nil
	}
	if rec := s.db.Lookup(q.ip); rec != nil {
		results.results = append(results.results, newRegion(rec.RegionCode, rec.RegionName, rec.RegionRadius, rec.Score, GeoIP, IPFallback))
	}
	return results, nil
}

func ipUsable(q *Query) bool {
	return q.ip != "" && q.ipFallback
}
