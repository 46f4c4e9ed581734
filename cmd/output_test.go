package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/geolocate/internal/locate"
)

func fp(v float64) *float64 { return &v }

func TestNewResponse_Position(t *testing.T) {
	res := locate.NewPosition(locate.PositionParams{
		Lat: fp(51.5074), Lon: fp(-0.1278), Accuracy: fp(1000),
		Score: 2.5, Source: locate.Internal, Fallback: locate.AreaFallback,
	})

	out := newResponse(res)
	assert.Equal(t, statusOK, out.Status)
	require.NotNil(t, out.Lat)
	assert.InDelta(t, 51.5074, *out.Lat, 1e-9)
	assert.InDelta(t, -0.1278, *out.Lon, 1e-9)
	assert.Equal(t, 1000.0, *out.Accuracy)
	assert.Equal(t, 2.5, *out.Score)
	assert.Equal(t, "internal", out.Source)
	assert.Equal(t, "lacf", out.Fallback)
	assert.Len(t, out.Geohash, 12)
	assert.Equal(t, "gcpv", out.Geohash[:4])
	assert.Empty(t, out.RegionCode)
}

func TestNewResponse_Region(t *testing.T) {
	res := locate.NewRegion(locate.RegionParams{
		Code: "GB", Name: "United Kingdom", Accuracy: fp(600000),
		Score: 1, Source: locate.GeoIP, Fallback: locate.IPFallback,
	})

	out := newResponse(res)
	assert.Equal(t, statusOK, out.Status)
	assert.Equal(t, "GB", out.RegionCode)
	assert.Equal(t, "United Kingdom", out.RegionName)
	assert.Equal(t, "ipf", out.Fallback)
	assert.Nil(t, out.Lat)
	assert.Empty(t, out.Geohash)
}

func TestNewResponse_NotFound(t *testing.T) {
	assert.Equal(t, response{Status: statusNotFound}, newResponse(nil))
	assert.Equal(t, response{Status: statusNotFound}, newResponse(locate.Position{}))
	assert.Equal(t, response{Status: statusNotFound}, newResponse(locate.Region{}))
}

func TestWriteJSON_NotFound(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, newResponse(nil)))
	assert.JSONEq(t, `{"status":"not_found"}`, buf.String())
}

func TestWriteJSON_Position(t *testing.T) {
	res := locate.NewPosition(locate.PositionParams{
		Lat: fp(1.5), Lon: fp(2.5), Accuracy: fp(10), Source: locate.Internal,
	})

	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, newResponse(res)))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "ok", got["status"])
	assert.Equal(t, 1.5, got["lat"])
	assert.Equal(t, 2.5, got["lon"])
	assert.Equal(t, 10.0, got["accuracy"])
	assert.NotContains(t, got, "fallback")
	assert.NotContains(t, got, "region_code")
}
