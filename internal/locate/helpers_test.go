package locate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/geolocate/internal/identifier"
	"github.com/sells-group/geolocate/internal/model"
	"github.com/sells-group/geolocate/internal/store"
	"github.com/sells-group/geolocate/pkg/geoip"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func intp(v int) *int { return &v }

func radiop(r identifier.Radio) *identifier.Radio { return &r }

func cellObs(radio identifier.Radio, mcc, mnc, lac, cid int) CellObservation {
	return CellObservation{Radio: radiop(radio), MCC: intp(mcc), MNC: intp(mnc), LAC: intp(lac), CID: intp(cid)}
}

func areaObs(radio identifier.Radio, mcc, mnc, lac int) CellObservation {
	return CellObservation{Radio: radiop(radio), MCC: intp(mcc), MNC: intp(mnc), LAC: intp(lac)}
}

func station(lat, lon, radius float64, samples int) model.Station {
	return model.Station{Lat: lat, Lon: lon, Radius: radius, Samples: samples, Created: now.AddDate(-1, 0, 0), LastSeen: now}
}

func mustCell(t *testing.T, radio identifier.Radio, mcc, mnc, lac, cid int, st model.Station) model.Cell {
	t.Helper()
	c, err := model.NewCell(radio, mcc, mnc, lac, cid, st)
	require.NoError(t, err)
	return c
}

func mustArea(t *testing.T, radio identifier.Radio, mcc, mnc, lac int, st model.Station) model.CellArea {
	t.Helper()
	id, err := identifier.EncodeCellAreaID(radio, mcc, mnc, lac)
	require.NoError(t, err)
	return model.CellArea{ID: id, Radio: radio, MCC: mcc, MNC: mnc, LAC: lac, NumCells: 1, Station: st}
}

// fakeStore is an in-memory TelemetryStore counting its calls.
type fakeStore struct {
	cells map[store.Dataset][]model.Cell
	areas map[store.Dataset][]model.CellArea
	wifis []model.Wifi
	err   error
	calls map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		cells: make(map[store.Dataset][]model.Cell),
		areas: make(map[store.Dataset][]model.CellArea),
		calls: make(map[string]int),
	}
}

func (f *fakeStore) totalCalls() int {
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeStore) Cells(_ context.Context, ds store.Dataset, ids []identifier.CellID) ([]model.Cell, error) {
	f.calls["cells:"+string(ds)]++
	if f.err != nil {
		return nil, &store.StorageError{Op: "cells", Dataset: ds, Err: f.err}
	}
	want := make(map[identifier.CellID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []model.Cell
	for _, c := range f.cells[ds] {
		if want[c.ID] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) CellAreas(_ context.Context, ds store.Dataset, ids []identifier.CellAreaID) ([]model.CellArea, error) {
	f.calls["areas:"+string(ds)]++
	if f.err != nil {
		return nil, &store.StorageError{Op: "cell areas", Dataset: ds, Err: f.err}
	}
	want := make(map[identifier.CellAreaID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []model.CellArea
	for _, a := range f.areas[ds] {
		if want[a.ID] {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) Wifis(_ context.Context, macs []string) ([]model.Wifi, error) {
	f.calls["wifis"]++
	if f.err != nil {
		return nil, &store.StorageError{Op: "wifis", Err: f.err}
	}
	want := make(map[string]bool, len(macs))
	for _, m := range macs {
		want[m] = true
	}
	var out []model.Wifi
	for _, w := range f.wifis {
		if want[w.MAC] {
			out = append(out, w)
		}
	}
	return out, nil
}

// fakeIPDB answers every lookup with rec.
type fakeIPDB struct {
	rec   *geoip.Record
	calls int
}

func (f *fakeIPDB) Lookup(string) *geoip.Record {
	f.calls++
	return f.rec
}

// stubSource returns fixed results and counts searches.
type stubSource struct {
	name    string
	kind    Kind
	results []Result
	err     error
	calls   int
}

func (s *stubSource) Name() string { return s.name }
func (s *stubSource) Kind() Kind { return s.kind }

func (s *stubSource) ShouldSearch(q *Query, results ResultList) bool {
	return !q.Empty() && !results.Satisfies(q)
}

func (s *stubSource) Search(context.Context, *Query) (ResultList, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	list := NewResultList(s.kind)
	if err := list.Add(s.results...); err != nil {
		return nil, err
	}
	return list, nil
}

var errConnRefused = errors.New("connection refused")
