// Package geocode resolves mobile country codes and coordinates to regions
// using an embedded table of region bounding boxes.
package geocode

import (
	_ "embed"
	"sort"
	"strings"

	"github.com/golang/geo/s2"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/geolocate/internal/geo"
)

//go:embed regions.yaml
var regionsYAML []byte

type regionDef struct {
	Code  string      `yaml:"code"`
	Name  string      `yaml:"name"`
	MCCs  []int       `yaml:"mccs"`
	Boxes [][]float64 `yaml:"boxes"`
}

// Region is a named region with one or more bounding boxes.
type Region struct {
	Code string
	Name string
	MCCs []int

	boxes  []*geom.Bounds
	area   float64
	radius float64
}

// Radius is the distance in meters from the region centre to its farthest
// box corner.
func (r *Region) Radius() float64 { return r.radius }

// Smaller orders regions by total box area, then by code.
func (r *Region) Smaller(o *Region) bool {
	if r.area != o.area {
		return r.area < o.area
	}
	return r.Code < o.Code
}

// Contains reports whether any of the region's boxes contains the point.
func (r *Region) Contains(lat, lon float64) bool {
	pt := geom.Coord{lon, lat}
	for _, b := range r.boxes {
		if b.OverlapsPoint(geom.XY, pt) {
			return true
		}
	}
	return false
}

// Geocoder answers region questions. It is immutable and safe for
// concurrent use.
type Geocoder struct {
	regions []*Region
	byCode  map[string]*Region
	byMCC   map[int][]*Region
}

// New loads the embedded region table.
func New() (*Geocoder, error) {
	return Load(regionsYAML)
}

// Load parses a region table in the embedded YAML format.
func Load(data []byte) (*Geocoder, error) {
	var defs []regionDef
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, eris.Wrap(err, "geocode: parse regions")
	}

	g := &Geocoder{
		byCode: make(map[string]*Region, len(defs)),
		byMCC:  make(map[int][]*Region),
	}
	for _, d := range defs {
		r, err := newRegion(d)
		if err != nil {
			return nil, err
		}
		if _, dup := g.byCode[r.Code]; dup {
			return nil, eris.Errorf("geocode: duplicate region %s", r.Code)
		}
		g.regions = append(g.regions, r)
		g.byCode[r.Code] = r
		for _, mcc := range r.MCCs {
			g.byMCC[mcc] = append(g.byMCC[mcc], r)
		}
	}
	return g, nil
}

func newRegion(d regionDef) (*Region, error) {
	code := strings.ToUpper(strings.TrimSpace(d.Code))
	if code == "" || len(d.Boxes) == 0 {
		return nil, eris.Errorf("geocode: region %q needs a code and a box", d.Code)
	}
	r := &Region{Code: code, Name: d.Name, MCCs: d.MCCs}

	minLat, minLon, maxLat, maxLon := 90.0, 180.0, -90.0, -180.0
	for _, box := range d.Boxes {
		if len(box) != 4 || box[0] > box[2] || box[1] > box[3] || !geo.Valid(box[0], box[1]) || !geo.Valid(box[2], box[3]) {
			return nil, eris.Errorf("geocode: region %s has invalid box %v", code, box)
		}
		b := geom.NewBounds(geom.XY).Set(box[1], box[0], box[3], box[2])
		r.boxes = append(r.boxes, b)
		r.area += (box[2] - box[0]) * (box[3] - box[1])
		minLat, minLon = min(minLat, box[0]), min(minLon, box[1])
		maxLat, maxLon = max(maxLat, box[2]), max(maxLon, box[3])
	}

	centre := s2.LatLngFromDegrees((minLat+maxLat)/2, (minLon+maxLon)/2)
	for _, b := range r.boxes {
		for _, corner := range [][2]float64{
			{b.Min(1), b.Min(0)}, {b.Min(1), b.Max(0)}, {b.Max(1), b.Min(0)}, {b.Max(1), b.Max(0)},
		} {
			d := centre.Distance(s2.LatLngFromDegrees(corner[0], corner[1])).Radians() * geo.EarthRadius
			if d > r.radius {
				r.radius = d
			}
		}
	}
	return r, nil
}

// Regions returns every region in table order.
func (g *Geocoder) Regions() []*Region {
	return append([]*Region(nil), g.regions...)
}

// RegionsForMCC returns the regions a mobile country code is used in, in
// table order. Unknown codes return nil.
func (g *Geocoder) RegionsForMCC(mcc int) []*Region {
	return append([]*Region(nil), g.byMCC[mcc]...)
}

// RegionForCode looks a region up by its code, case-insensitively.
func (g *Geocoder) RegionForCode(code string) (*Region, bool) {
	r, ok := g.byCode[strings.ToUpper(code)]
	return r, ok
}

// RegionContains reports whether the named region contains the point.
// Unknown codes contain nothing.
func (g *Geocoder) RegionContains(lat, lon float64, code string) bool {
	r, ok := g.RegionForCode(code)
	return ok && r.Contains(lat, lon)
}

// RegionAt returns the smallest region containing the point.
func (g *Geocoder) RegionAt(lat, lon float64) (*Region, bool) {
	if !geo.Valid(lat, lon) {
		return nil, false
	}
	var matches []*Region
	for _, r := range g.regions {
		if r.Contains(lat, lon) {
			matches = append(matches, r)
		}
	}
	if len(matches) == 0 {
		return nil, false
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Smaller(matches[j])
	})
	return matches[0], true
}

// RegionCode returns the code of RegionAt, or "" outside every region.
func (g *Geocoder) RegionCode(lat, lon float64) string {
	if r, ok := g.RegionAt(lat, lon); ok {
		return r.Code
	}
	return ""
}

// AnyRegion reports whether the point is inside some region.
func (g *Geocoder) AnyRegion(lat, lon float64) bool {
	_, ok := g.RegionAt(lat, lon)
	return ok
}
