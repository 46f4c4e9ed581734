package locate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/geolocate/internal/identifier"
)

func TestNewQuery_Empty(t *testing.T) {
	q := NewQuery(QueryParams{})
	assert.True(t, q.Empty())
	assert.Equal(t, None, q.ExpectedAccuracy())
	assert.Equal(t, PositionKind, q.Kind())
	assert.True(t, q.IPFallback())
	assert.True(t, q.AreaFallback())
}

func TestNewQuery_DropsInvalid(t *testing.T) {
	q := NewQuery(QueryParams{
		Cells: []CellObservation{
			cellObs(identifier.GSM, 0, 1, 1, 1),
			cellObs(identifier.GSM, 234, 1, 70000, 1),
			{MCC: intp(234), MNC: intp(1), LAC: intp(1)},
			cellObs(identifier.Radio(9), 234, 1, 1, 1),
			// Invalid cid keeps the area.
			cellObs(identifier.LTE, 234, 30, 1, 0),
		},
		Wifis: []WifiObservation{{MAC: "not-a-mac"}, {MAC: "0123456789"}},
	})
	assert.Empty(t, q.Cells())
	require.Len(t, q.Areas(), 1)
	assert.Equal(t, 234, q.Areas()[0].MCC)
	assert.Empty(t, q.Wifis())
}

func TestNewQuery_CellDuplicatesKeepBetter(t *testing.T) {
	far := cellObs(identifier.LTE, 234, 30, 1, 100)
	far.TA = intp(10)
	near := cellObs(identifier.LTE, 234, 30, 1, 100)
	near.TA = intp(2)
	other := cellObs(identifier.LTE, 234, 30, 1, 101)

	q := NewQuery(QueryParams{Cells: []CellObservation{far, other, near}})
	cells := q.Cells()
	require.Len(t, cells, 2)
	assert.Equal(t, 100, cells[0].CID)
	assert.Equal(t, 2, *cells[0].TA)
	assert.Equal(t, 101, cells[1].CID)

	require.Len(t, q.Areas(), 1)
}

func TestSignals_BetterThan(t *testing.T) {
	tests := []struct {
		name string
		a, b Signals
		want bool
	}{
		{"lower ta", Signals{TA: intp(1)}, Signals{TA: intp(3)}, true},
		{"higher ta", Signals{TA: intp(3)}, Signals{TA: intp(1)}, false},
		{"known ta", Signals{TA: intp(3)}, Signals{}, true},
		{"stronger signal", Signals{Signal: intp(-60)}, Signals{Signal: intp(-90)}, true},
		{"weaker signal", Signals{Signal: intp(-90)}, Signals{Signal: intp(-60)}, false},
		{"ta before signal", Signals{TA: intp(1), Signal: intp(-100)}, Signals{TA: intp(2), Signal: intp(-50)}, true},
		{"higher asu", Signals{ASU: intp(30)}, Signals{ASU: intp(10)}, true},
		{"equal", Signals{Signal: intp(-70)}, Signals{Signal: intp(-70)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.betterThan(tt.b))
		})
	}
}

func TestNewQuery_WifiNormalization(t *testing.T) {
	q := NewQuery(QueryParams{Wifis: []WifiObservation{
		{MAC: "AB:CD:EF:12:34:56", Signal: intp(-90)},
		{MAC: "ab-cd-ef-12-34-56", Signal: intp(-50)},
		{MAC: "abcdef123457"},
	}})
	wifis := q.Wifis()
	require.Len(t, wifis, 2)
	assert.Equal(t, "abcdef123456", wifis[0].MAC)
	assert.Equal(t, -50, *wifis[0].Signal)
	assert.Equal(t, "abcdef123457", wifis[1].MAC)
}

func TestNewQuery_ExpectedAccuracy(t *testing.T) {
	twoWifis := []WifiObservation{{MAC: "abcdef123456"}, {MAC: "abcdef123457"}}
	cell := []CellObservation{cellObs(identifier.GSM, 234, 30, 1, 1)}
	area := []CellObservation{areaObs(identifier.GSM, 234, 30, 1)}
	low := Low

	tests := []struct {
		name   string
		params QueryParams
		want   DataAccuracy
	}{
		{"wifis", QueryParams{Wifis: twoWifis, Cells: cell}, High},
		{"single wifi", QueryParams{Wifis: twoWifis[:1]}, None},
		{"cell", QueryParams{Cells: cell}, Medium},
		{"area", QueryParams{Cells: area}, Low},
		{"area without fallback", QueryParams{Cells: area, NoAreaFallback: true}, None},
		{"ip", QueryParams{IP: "81.2.69.142"}, Low},
		{"ip without fallback", QueryParams{IP: "81.2.69.142", NoIPFallback: true}, None},
		{"region", QueryParams{Kind: RegionKind, Cells: cell}, Low},
		{"empty region", QueryParams{Kind: RegionKind}, None},
		{"explicit", QueryParams{Cells: cell, ExpectedAccuracy: &low}, Low},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewQuery(tt.params).ExpectedAccuracy())
		})
	}
}

func TestQuery_AccessorsReturnCopies(t *testing.T) {
	q := NewQuery(QueryParams{
		Cells:  []CellObservation{cellObs(identifier.GSM, 234, 30, 1, 1)},
		IP:     " 81.2.69.142 ",
		APIKey: "test",
	})
	cells := q.Cells()
	cells[0].CID = 99
	assert.Equal(t, 1, q.Cells()[0].CID)
	assert.Equal(t, "81.2.69.142", q.IP())
	assert.Equal(t, "test", q.APIKey())
}
