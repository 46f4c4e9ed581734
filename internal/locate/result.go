package locate

import (
	"fmt"
	"math"
)

// Kind distinguishes position results from region results.
type Kind int

const (
	PositionKind Kind = iota
	RegionKind
)

func (k Kind) String() string {
	if k == RegionKind {
		return "region"
	}
	return "position"
}

// DataSource records which dataset produced a result.
type DataSource string

const (
	Internal DataSource = "internal"
	OCID     DataSource = "ocid"
	GeoIP    DataSource = "geoip"
)

// Fallback tags results produced by a fallback lookup.
type Fallback string

const (
	NoFallback   Fallback = ""
	AreaFallback Fallback = "lacf"
	IPFallback   Fallback = "ipf"
)

// Result is a single candidate answer. It is implemented only by Position
// and Region.
type Result interface {
	Kind() Kind
	// Empty reports whether a required field is unset.
	Empty() bool
	DataAccuracy() DataAccuracy
	Satisfies(q *Query) bool
	Accuracy() float64
	Score() float64
	Source() DataSource
	Fallback() Fallback

	sealed()
}

func round(v float64) float64 {
	const scale = 1e7 // 10^DegreeDecimalPlaces
	return math.Round(v*scale) / scale
}

func roundPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := round(*v)
	return &r
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// PositionParams holds the fields of a Position. Nil pointers are unset.
type PositionParams struct {
	Lat      *float64
	Lon      *float64
	Accuracy *float64
	Score    float64
	Source   DataSource
	Fallback Fallback
}

// Position is an immutable point estimate.
type Position struct {
	lat, lon, accuracy *float64
	score              float64
	source             DataSource
	fallback           Fallback
}

// NewPosition builds a Position, rounding coordinates and accuracy to
// DegreeDecimalPlaces.
func NewPosition(p PositionParams) Position {
	return Position{
		lat:      roundPtr(p.Lat),
		lon:      roundPtr(p.Lon),
		accuracy: roundPtr(p.Accuracy),
		score:    p.Score,
		source:   p.Source,
		fallback: p.Fallback,
	}
}

func newPosition(lat, lon, accuracy, score float64, source DataSource, fallback Fallback) Position {
	return NewPosition(PositionParams{
		Lat: &lat, Lon: &lon, Accuracy: &accuracy,
		Score: score, Source: source, Fallback: fallback,
	})
}

func (p Position) Kind() Kind { return PositionKind }
func (p Position) Lat() float64 { return deref(p.lat) }
func (p Position) Lon() float64 { return deref(p.lon) }
func (p Position) Accuracy() float64 { return deref(p.accuracy) }
func (p Position) Score() float64 { return p.score }
func (p Position) Source() DataSource { return p.source }
func (p Position) Fallback() Fallback { return p.fallback }
func (p Position) sealed() {}
func (p Position) Empty() bool { return p.lat == nil || p.lon == nil || p.accuracy == nil }

func (p Position) String() string {
	if p.Empty() {
		return "position<empty>"
	}
	return fmt.Sprintf("position<%v,%v accuracy=%v score=%v source=%s>", *p.lat, *p.lon, *p.accuracy, p.score, p.source)
}

func (p Position) DataAccuracy() DataAccuracy {
	if p.Empty() {
		return None
	}
	return FromAccuracy(*p.accuracy)
}

// Satisfies reports whether the position is at least as accurate as the
// query expects.
func (p Position) Satisfies(q *Query) bool {
	return p.DataAccuracy() <= q.ExpectedAccuracy()
}

// RegionParams holds the fields of a Region. Empty strings and nil
// pointers are unset.
type RegionParams struct {
	Code     string
	Name     string
	Accuracy *float64
	Score    float64
	Source   DataSource
	Fallback Fallback
}

// Region is an immutable region estimate.
type Region struct {
	code, name string
	accuracy   *float64
	score      float64
	source     DataSource
	fallback   Fallback
}

// NewRegion builds a Region, rounding its accuracy to DegreeDecimalPlaces.
func NewRegion(p RegionParams) Region {
	return Region{
		code:     p.Code,
		name:     p.Name,
		accuracy: roundPtr(p.Accuracy),
		score:    p.Score,
		source:   p.Source,
		fallback: p.Fallback,
	}
}

func newRegion(code, name string, accuracy, score float64, source DataSource, fallback Fallback) Region {
	return NewRegion(RegionParams{
		Code: code, Name: name, Accuracy: &accuracy,
		Score: score, Source: source, Fallback: fallback,
	})
}

func (r Region) Kind() Kind { return RegionKind }
func (r Region) Code() string { return r.code }
func (r Region) Name() string { return r.name }
func (r Region) Accuracy() float64 { return deref(r.accuracy) }
func (r Region) Score() float64 { return r.score }
func (r Region) Source() DataSource { return r.source }
func (r Region) Fallback() Fallback { return r.fallback }
func (r Region) sealed() {}
func (r Region) Empty() bool { return r.code == "" || r.name == "" || r.accuracy == nil }

func (r Region) String() string {
	if r.Empty() {
		return "region<empty>"
	}
	return fmt.Sprintf("region<%s accuracy=%v score=%v source=%s>", r.code, *r.accuracy, r.score, r.source)
}

func (r Region) DataAccuracy() DataAccuracy {
	if r.Empty() {
		return None
	}
	return FromAccuracy(*r.accuracy)
}

// Satisfies reports whether the region is known. Region answers are not
// gated on accuracy.
func (r Region) Satisfies(*Query) bool {
	return !r.Empty()
}
