package ocid

import (
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geolocate/internal/geo"
	"github.com/sells-group/geolocate/internal/identifier"
	"github.com/sells-group/geolocate/internal/model"
)

// Column positions of an export row:
// radio,mcc,net,area,cell,unit,lon,lat,range,samples,changeable,created,updated,averageSignal
const (
	colRadio = iota
	colMCC
	colMNC
	colLAC
	colCID
	colUnit
	colLon
	colLat
	colRange
	colSamples
	colChangeable
	colCreated
	colUpdated
	colSignal

	minColumns = colUpdated + 1
)

// ErrInvalidRow marks rows that cannot become a cell.
var ErrInvalidRow = eris.New("ocid: invalid row")

// parseRow converts an export row into a cell. regionOf may be nil.
func parseRow(row []string, regionOf func(lat, lon float64) string) (model.Cell, error) {
	if len(row) < minColumns {
		return model.Cell{}, eris.Wrapf(ErrInvalidRow, "%d columns", len(row))
	}
	radio, err := identifier.ParseRadio(row[colRadio])
	if err != nil {
		return model.Cell{}, eris.Wrapf(ErrInvalidRow, "radio %q", row[colRadio])
	}

	var ints [4]int
	for i, col := range []int{colMCC, colMNC, colLAC, colCID} {
		if ints[i], err = strconv.Atoi(row[col]); err != nil {
			return model.Cell{}, eris.Wrapf(ErrInvalidRow, "column %d: %q", col, row[col])
		}
	}

	var floats [3]float64
	for i, col := range []int{colLon, colLat, colRange} {
		if floats[i], err = strconv.ParseFloat(row[col], 64); err != nil {
			return model.Cell{}, eris.Wrapf(ErrInvalidRow, "column %d: %q", col, row[col])
		}
	}
	lon, lat, radius := floats[0], floats[1], floats[2]
	if !geo.Valid(lat, lon) || radius < 0 {
		return model.Cell{}, eris.Wrapf(ErrInvalidRow, "position %v,%v radius %v", lat, lon, radius)
	}

	samples, err := strconv.Atoi(row[colSamples])
	if err != nil || samples < 0 {
		return model.Cell{}, eris.Wrapf(ErrInvalidRow, "samples %q", row[colSamples])
	}
	created, err := parseEpoch(row[colCreated])
	if err != nil {
		return model.Cell{}, err
	}
	updated, err := parseEpoch(row[colUpdated])
	if err != nil {
		return model.Cell{}, err
	}

	st := model.Station{
		Lat:      lat,
		Lon:      lon,
		Radius:   radius,
		Samples:  samples,
		Created:  created,
		LastSeen: updated,
	}
	if regionOf != nil {
		st.Region = regionOf(lat, lon)
	}
	c, err := model.NewCell(radio, ints[0], ints[1], ints[2], ints[3], st)
	if err != nil {
		return model.Cell{}, eris.Wrap(ErrInvalidRow, err.Error())
	}
	return c, nil
}

func parseEpoch(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, eris.Wrapf(ErrInvalidRow, "timestamp %q", s)
	}
	return time.Unix(secs, 0).UTC(), nil
}
