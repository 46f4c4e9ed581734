package locate

import (
	"strings"

	"github.com/sells-group/geolocate/internal/identifier"
)

// Signals are the optional radio measurements of an observation.
type Signals struct {
	Signal *int `json:"signal,omitempty"` // dBm
	TA     *int `json:"ta,omitempty"`     // timing advance
	ASU    *int `json:"asu,omitempty"`
}

// betterThan reports whether s is a better observation than o: lower timing
// advance, then stronger signal, then higher asu.
func (s Signals) betterThan(o Signals) bool {
	if c := prefer(s.TA, o.TA, true); c != 0 {
		return c > 0
	}
	if c := prefer(s.Signal, o.Signal, false); c != 0 {
		return c > 0
	}
	return prefer(s.ASU, o.ASU, false) > 0
}

// prefer compares two optional values. A known value beats an unknown one.
func prefer(a, b *int, lowerWins bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case b == nil:
		return 1
	case a == nil:
		return -1
	case *a == *b:
		return 0
	case (*a < *b) == lowerWins:
		return 1
	}
	return -1
}

// CellObservation is a cell seen by the device. A missing CID makes it an
// area-only observation.
type CellObservation struct {
	Radio *identifier.Radio `json:"radio"`
	MCC   *int              `json:"mcc"`
	MNC   *int              `json:"mnc"`
	LAC   *int              `json:"lac"`
	CID   *int              `json:"cid,omitempty"`
	Signals
}

// WifiObservation is a wifi network seen by the device.
type WifiObservation struct {
	MAC    string `json:"mac"`
	Signal *int   `json:"signal,omitempty"`
}

// QueryParams is the raw input of a query.
type QueryParams struct {
	Cells  []CellObservation `json:"cells,omitempty"`
	Wifis  []WifiObservation `json:"wifis,omitempty"`
	IP     string            `json:"ip,omitempty"`
	APIKey string            `json:"api_key,omitempty"`
	Kind   Kind              `json:"-"`

	NoIPFallback   bool `json:"no_ipf,omitempty"`
	NoAreaFallback bool `json:"no_lacf,omitempty"`

	// ExpectedAccuracy overrides the tier derived from the observations.
	ExpectedAccuracy *DataAccuracy `json:"-"`
}

// QueryCell is a validated cell observation.
type QueryCell struct {
	ID                 identifier.CellID
	Radio              identifier.Radio
	MCC, MNC, LAC, CID int
	Signals
}

// QueryArea is a validated cell area observation.
type QueryArea struct {
	ID            identifier.CellAreaID
	Radio         identifier.Radio
	MCC, MNC, LAC int
	Signals
}

// QueryWifi is a validated wifi observation with a normalized MAC.
type QueryWifi struct {
	MAC    string
	Signal *int
}

// Query is an immutable, validated location request. Invalid observations
// are dropped and duplicates collapse into the better observation, in
// first-seen order.
type Query struct {
	cells        []QueryCell
	areas        []QueryArea
	wifis        []QueryWifi
	ip           string
	apiKey       string
	kind         Kind
	ipFallback   bool
	areaFallback bool
	expected     DataAccuracy
}

// NewQuery validates p into a Query.
func NewQuery(p QueryParams) *Query {
	q := &Query{
		ip:           strings.TrimSpace(p.IP),
		apiKey:       p.APIKey,
		kind:         p.Kind,
		ipFallback:   !p.NoIPFallback,
		areaFallback: !p.NoAreaFallback,
	}
	q.cells, q.areas = normalizeCells(p.Cells)
	q.wifis = normalizeWifis(p.Wifis)
	if p.ExpectedAccuracy != nil {
		q.expected = *p.ExpectedAccuracy
	} else {
		q.expected = q.deriveAccuracy()
	}
	return q
}

func normalizeCells(obs []CellObservation) ([]QueryCell, []QueryArea) {
	var cells []QueryCell
	var areas []QueryArea
	cellIndex := make(map[identifier.CellID]int)
	areaIndex := make(map[identifier.CellAreaID]int)

	for _, o := range obs {
		if o.Radio == nil || o.MCC == nil || o.MNC == nil || o.LAC == nil {
			continue
		}
		areaID, err := identifier.EncodeCellAreaID(*o.Radio, *o.MCC, *o.MNC, *o.LAC)
		if err != nil {
			continue
		}

		if o.CID != nil {
			if id, err := identifier.EncodeCellID(*o.Radio, *o.MCC, *o.MNC, *o.LAC, *o.CID); err == nil {
				c := QueryCell{ID: id, Radio: *o.Radio, MCC: *o.MCC, MNC: *o.MNC, LAC: *o.LAC, CID: *o.CID, Signals: o.Signals}
				if i, ok := cellIndex[id]; !ok {
					cellIndex[id] = len(cells)
					cells = append(cells, c)
				} else if c.betterThan(cells[i].Signals) {
					cells[i] = c
				}
			}
		}

		a := QueryArea{ID: areaID, Radio: *o.Radio, MCC: *o.MCC, MNC: *o.MNC, LAC: *o.LAC, Signals: o.Signals}
		if i, ok := areaIndex[areaID]; !ok {
			areaIndex[areaID] = len(areas)
			areas = append(areas, a)
		} else if a.betterThan(areas[i].Signals) {
			areas[i] = a
		}
	}
	return cells, areas
}

func normalizeWifis(obs []WifiObservation) []QueryWifi {
	var wifis []QueryWifi
	index := make(map[string]int)
	for _, o := range obs {
		mac, err := identifier.NormalizeMAC(o.MAC)
		if err != nil {
			continue
		}
		w := QueryWifi{MAC: mac, Signal: o.Signal}
		if i, ok := index[mac]; !ok {
			index[mac] = len(wifis)
			wifis = append(wifis, w)
		} else if prefer(w.Signal, wifis[i].Signal, false) > 0 {
			wifis[i] = w
		}
	}
	return wifis
}

// deriveAccuracy returns the strictest tier the observations could support.
func (q *Query) deriveAccuracy() DataAccuracy {
	fallbackData := (q.areaFallback && len(q.areas) > 0) || (q.ipFallback && q.ip != "")
	if q.kind == RegionKind {
		if len(q.cells) > 0 || len(q.areas) > 0 || fallbackData {
			return Low
		}
		return None
	}
	switch {
	case len(q.wifis) >= MinWifisInQuery:
		return High
	case len(q.cells) > 0:
		return Medium
	case fallbackData:
		return Low
	}
	return None
}

func (q *Query) Cells() []QueryCell { return append([]QueryCell(nil), q.cells...) }
func (q *Query) Areas() []QueryArea { return append([]QueryArea(nil), q.areas...) }
func (q *Query) Wifis() []QueryWifi { return append([]QueryWifi(nil), q.wifis...) }
func (q *Query) IP() string { return q.ip }
func (q *Query) APIKey() string { return q.apiKey }
func (q *Query) Kind() Kind { return q.kind }

// IPFallback reports whether IP based fallback answers are allowed.
func (q *Query) IPFallback() bool { return q.ipFallback }

// AreaFallback reports whether cell area fallback answers are allowed.
func (q *Query) AreaFallback() bool { return q.areaFallback }

// ExpectedAccuracy is the tier a result must reach to satisfy the query.
func (q *Query) ExpectedAccuracy() DataAccuracy { return q.expected }

// Empty reports whether the query carries nothing any source can use.
func (q *Query) Empty() bool {
	return len(q.cells) == 0 && len(q.areas) == 0 && len(q.wifis) == 0 && q.ip == ""
}
