package locate

import (
	"context"
	"time"

	"github.com/sells-group/geolocate/internal/geo"
	"github.com/sells-group/geolocate/internal/model"
)

// WifiPositionSource locates a query from stored wifi networks. Networks
// within MaxWifiClusterDistance of each other form a cluster and every
// cluster of at least MinWifisInQuery networks yields a position.
type WifiPositionSource struct {
	store WifiStore
	scoring
}

// NewWifiPositionSource reads the wifi table.
func NewWifiPositionSource(st WifiStore, score model.ScoreFunc) *WifiPositionSource {
	return &WifiPositionSource{store: st, scoring: newScoring(score)}
}

// WithNow sets a fixed time for scoring.
func (s *WifiPositionSource) WithNow(t time.Time) *WifiPositionSource {
	s.now = func() time.Time { return t }
	return s
}

func (s *WifiPositionSource) Name() string { return "wifi" }
func (s *WifiPositionSource) Kind() Kind { return PositionKind }

func (s *WifiPositionSource) ShouldSearch(q *Query, results ResultList) bool {
	return len(q.wifis) >= MinWifisInQuery && !results.Satisfies(q)
}

func (s *WifiPositionSource) Search(ctx context.Context, q *Query) (ResultList, error) {
	results := NewPositionList()
	if len(q.wifis) < MinWifisInQuery {
		return results, nil
	}

	order := make(map[string]int, len(q.wifis))
	macs := make([]string, len(q.wifis))
	for i, w := range q.wifis {
		macs[i] = w.MAC
		order[w.MAC] = i
	}
	wifis, err := s.store.Wifis(ctx, macs)
	if err != nil {
		return nil, err
	}
	if len(wifis) < MinWifisInQuery {
		return results, nil
	}
	sortByOrder(wifis, func(w model.Wifi) int { return order[w.MAC] })

	now := s.now()
	for _, cluster := range clusterWifis(wifis) {
		if len(cluster) < MinWifisInQuery {
			continue
		}
		points := make([]geo.Point, len(cluster))
		circles := make([]geo.Circle, len(cluster))
		var score float64
		for i, w := range cluster {
			points[i] = geo.Point{Lat: w.Lat, Lon: w.Lon, Weight: float64(w.Samples)}
			circles[i] = geo.Circle{Lat: w.Lat, Lon: w.Lon, Radius: w.Radius}
			score += s.score(w.Station, now)
		}
		lat, lon, _ := geo.WeightedCentroid(points)
		accuracy := clamp(geo.CircleRadius(lat, lon, circles), WifiMinAccuracy, WifiMaxAccuracy)
		results.results = append(results.results, newPosition(lat, lon, accuracy, score, Internal, NoFallback))
	}
	return results, nil
}

// clusterWifis links networks closer than MaxWifiClusterDistance. Clusters
// are returned in the order of their first member.
func clusterWifis(wifis []model.Wifi) [][]model.Wifi {
	parent := make([]int, len(wifis))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}

	for i := range wifis {
		for j := i + 1; j < len(wifis); j++ {
			if geo.Distance(wifis[i].Lat, wifis[i].Lon, wifis[j].Lat, wifis[j].Lon) > MaxWifiClusterDistance {
				continue
			}
			a, b := find(i), find(j)
			if a == b {
				continue
			}
			if b < a {
				a, b = b, a
			}
			parent[b] = a
		}
	}

	index := make(map[int]int)
	var clusters [][]model.Wifi
	for i, w := range wifis {
		root := find(i)
		c, ok := index[root]
		if !ok {
			c = len(clusters)
			index[root] = c
			clusters = append(clusters, nil)
		}
		clusters[c] = append(clusters[c], w)
	}
	return clusters
}
