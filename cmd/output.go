package main

import (
	"encoding/json"
	"io"

	geohash "github.com/TomiHiltunen/geohash-golang"
	"github.com/rotisserie/eris"

	"github.com/sells-group/geolocate/internal/locate"
)

const (
	statusOK       = "ok"
	statusNotFound = "not_found"
	statusError    = "error"
)

// response is the JSON form of a fusion result.
type response struct {
	Status string `json:"status"`

	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
	Geohash string   `json:"geohash,omitempty"`

	RegionCode string `json:"region_code,omitempty"`
	RegionName string `json:"region_name,omitempty"`

	Accuracy *float64 `json:"accuracy,omitempty"`
	Score    *float64 `json:"score,omitempty"`
	Source   string   `json:"source,omitempty"`
	Fallback string   `json:"fallback,omitempty"`

	Error string `json:"error,omitempty"`
}

func newResponse(res locate.Result) response {
	if res == nil || res.Empty() {
		return response{Status: statusNotFound}
	}
	accuracy, score := res.Accuracy(), res.Score()
	out := response{
		Status:   statusOK,
		Accuracy: &accuracy,
		Score:    &score,
		Source:   string(res.Source()),
		Fallback: string(res.Fallback()),
	}
	switch r := res.(type) {
	case locate.Position:
		lat, lon := r.Lat(), r.Lon()
		out.Lat, out.Lon = &lat, &lon
		out.Geohash = geohash.Encode(lat, lon)
	case locate.Region:
		out.RegionCode, out.RegionName = r.Code(), r.Name()
	}
	return out
}

func errorResponse(err error) response {
	return response{Status: statusError, Error: err.Error()}
}

func writeJSON(w io.Writer, v any) error {
	return eris.Wrap(json.NewEncoder(w).Encode(v), "write output")
}
