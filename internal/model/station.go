// Package model defines the stored telemetry records consulted by the
// location sources.
package model

import (
	"time"

	"github.com/sells-group/geolocate/internal/identifier"
)

// Station is the part common to every stored observation: a position
// estimate with its radius, sample count and recency.
type Station struct {
	Lat      float64   `json:"lat"`
	Lon      float64   `json:"lon"`
	Radius   float64   `json:"radius"` // meters
	Samples  int       `json:"samples"`
	Region   string    `json:"region,omitempty"`
	Created  time.Time `json:"created"`
	LastSeen time.Time `json:"last_seen"`
}

// Cell is a single stored cell tower.
type Cell struct {
	ID    identifier.CellID `json:"-"`
	Radio identifier.Radio  `json:"radio"`
	MCC   int               `json:"mcc"`
	MNC   int               `json:"mnc"`
	LAC   int               `json:"lac"`
	CID   int               `json:"cid"`
	Station
}

// NewCell builds a Cell, deriving its key from the component tuple.
func NewCell(radio identifier.Radio, mcc, mnc, lac, cid int, st Station) (Cell, error) {
	id, err := identifier.EncodeCellID(radio, mcc, mnc, lac, cid)
	if err != nil {
		return Cell{}, err
	}
	return Cell{ID: id, Radio: radio, MCC: mcc, MNC: mnc, LAC: lac, CID: cid, Station: st}, nil
}

// AreaID returns the key of the area containing the cell.
func (c Cell) AreaID() identifier.CellAreaID {
	return c.ID.Area()
}

// CellArea aggregates all cells sharing radio, mcc, mnc and lac.
type CellArea struct {
	ID       identifier.CellAreaID `json:"-"`
	Radio    identifier.Radio      `json:"radio"`
	MCC      int                   `json:"mcc"`
	MNC      int                   `json:"mnc"`
	LAC      int                   `json:"lac"`
	NumCells int                   `json:"num_cells"`
	Station
}

// Wifi is a stored wifi access point keyed by its normalized MAC.
type Wifi struct {
	MAC string `json:"mac"`
	Station
}
