package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/geolocate/internal/identifier"
	"github.com/sells-group/geolocate/internal/locate"
)

func TestParseCellFlag(t *testing.T) {
	obs, err := parseCellFlag("lte:234:30:2:1000:-70")
	require.NoError(t, err)
	require.NotNil(t, obs.Radio)
	assert.Equal(t, identifier.LTE, *obs.Radio)
	assert.Equal(t, 234, *obs.MCC)
	assert.Equal(t, 30, *obs.MNC)
	assert.Equal(t, 2, *obs.LAC)
	assert.Equal(t, 1000, *obs.CID)
	assert.Equal(t, -70, *obs.Signal)
}

func TestParseCellFlag_AreaOnly(t *testing.T) {
	obs, err := parseCellFlag("umts:234:30:2")
	require.NoError(t, err)
	assert.Equal(t, identifier.WCDMA, *obs.Radio)
	assert.Nil(t, obs.CID)
	assert.Nil(t, obs.Signal)
}

func TestParseCellFlag_EmptyCIDWithSignal(t *testing.T) {
	obs, err := parseCellFlag("gsm:234:30:2::-80")
	require.NoError(t, err)
	assert.Nil(t, obs.CID)
	assert.Equal(t, -80, *obs.Signal)
}

func TestParseCellFlag_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"too few fields", "gsm:234:30"},
		{"too many fields", "gsm:234:30:2:1:2:3"},
		{"unknown radio", "nr:234:30:2:1"},
		{"non numeric", "gsm:234:abc:2:1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseCellFlag(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestParseWifiFlag(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		mac    string
		signal *int
	}{
		{"plain", "0123456789ab", "0123456789ab", nil},
		{"colons", "01:23:45:67:89:ab", "01:23:45:67:89:ab", nil},
		{"plain with signal", "0123456789ab:-65", "0123456789ab", intp(-65)},
		{"colons with signal", "01:23:45:67:89:ab:-65", "01:23:45:67:89:ab", intp(-65)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs, err := parseWifiFlag(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.mac, obs.MAC)
			assert.Equal(t, tt.signal, obs.Signal)
		})
	}
}

func TestParseWifiFlag_Invalid(t *testing.T) {
	for _, input := range []string{"", "zz", "0123456789ab:loud", "0123:-65"} {
		_, err := parseWifiFlag(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestQueryFlags_Params(t *testing.T) {
	f := queryFlags{
		cells:  []string{"gsm:234:30:2:1000"},
		wifis:  []string{"0123456789ab", "0123456789ac:-50"},
		ip:     "81.2.69.142",
		apiKey: "test",
		noLACF: true,
	}
	p, err := f.params(locate.RegionKind)
	require.NoError(t, err)
	assert.Equal(t, locate.RegionKind, p.Kind)
	assert.Len(t, p.Cells, 1)
	assert.Len(t, p.Wifis, 2)
	assert.Equal(t, "81.2.69.142", p.IP)
	assert.Equal(t, "test", p.APIKey)
	assert.True(t, p.NoAreaFallback)
	assert.False(t, p.NoIPFallback)

	f.cells = append(f.cells, "bad")
	_, err = f.params(locate.RegionKind)
	assert.Error(t, err)
}

func TestParseKind(t *testing.T) {
	k, err := parseKind("position")
	require.NoError(t, err)
	assert.Equal(t, locate.PositionKind, k)

	k, err = parseKind("Region")
	require.NoError(t, err)
	assert.Equal(t, locate.RegionKind, k)

	_, err = parseKind("country")
	assert.Error(t, err)
}

func intp(v int) *int { return &v }
