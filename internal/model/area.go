package model

import (
	"github.com/sells-group/geolocate/internal/geo"
	"github.com/sells-group/geolocate/internal/identifier"
)

// AggregateAreas builds one CellArea per distinct area key found in cells.
// The area centre is the mean of its cell positions and its radius encloses
// every cell's own circle. Areas are returned in the order their first cell
// appears. regionOf may be nil; otherwise it names the region at the centre.
func AggregateAreas(cells []Cell, regionOf func(lat, lon float64) string) []CellArea {
	type group struct {
		first Cell
		cells []Cell
	}
	var order []identifier.CellAreaID
	groups := make(map[identifier.CellAreaID]*group)
	for _, c := range cells {
		id := c.AreaID()
		g, ok := groups[id]
		if !ok {
			g = &group{first: c}
			groups[id] = g
			order = append(order, id)
		}
		g.cells = append(g.cells, c)
	}

	areas := make([]CellArea, 0, len(order))
	for _, id := range order {
		g := groups[id]
		points := make([]geo.Point, len(g.cells))
		circles := make([]geo.Circle, len(g.cells))
		area := CellArea{
			ID:       id,
			Radio:    g.first.Radio,
			MCC:      g.first.MCC,
			MNC:      g.first.MNC,
			LAC:      g.first.LAC,
			NumCells: len(g.cells),
		}
		for i, c := range g.cells {
			points[i] = geo.Point{Lat: c.Lat, Lon: c.Lon, Weight: 1}
			circles[i] = geo.Circle{Lat: c.Lat, Lon: c.Lon, Radius: c.Radius}
			area.Samples += c.Samples
			if area.Created.IsZero() || (!c.Created.IsZero() && c.Created.Before(area.Created)) {
				area.Created = c.Created
			}
			if c.LastSeen.After(area.LastSeen) {
				area.LastSeen = c.LastSeen
			}
		}
		area.Lat, area.Lon, _ = geo.WeightedCentroid(points)
		area.Radius = geo.CircleRadius(area.Lat, area.Lon, circles)
		if regionOf != nil {
			area.Region = regionOf(area.Lat, area.Lon)
		}
		areas = append(areas, area)
	}
	return areas
}
