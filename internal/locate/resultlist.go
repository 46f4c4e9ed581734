package locate

import (
	"sort"

	"github.com/rotisserie/eris"
)

// ErrKindMismatch is returned when position and region values are mixed.
var ErrKindMismatch = eris.New("locate: result kind mismatch")

// ResultList accumulates the candidates of one kind.
type ResultList interface {
	Kind() Kind
	Len() int
	At(i int) Result
	Add(results ...Result) error
	Extend(other ResultList) error
	// Satisfies reports whether any candidate satisfies the query.
	Satisfies(q *Query) bool
	// Best reduces the candidates to a single answer. It never returns nil.
	Best(expected DataAccuracy) Result
}

// NewResultList returns an empty list for kind.
func NewResultList(kind Kind) ResultList {
	if kind == RegionKind {
		return NewRegionList()
	}
	return NewPositionList()
}

func mismatch(want Kind, got Result) error {
	return eris.Wrapf(ErrKindMismatch, "add %s to %s list", got.Kind(), want)
}

// PositionList is a ResultList of Position values.
type PositionList struct {
	results []Position
}

// NewPositionList returns a list holding results.
func NewPositionList(results ...Position) *PositionList {
	return &PositionList{results: append([]Position(nil), results...)}
}

func (l *PositionList) Kind() Kind { return PositionKind }
func (l *PositionList) Len() int { return len(l.results) }
func (l *PositionList) At(i int) Result { return l.results[i] }
func (l *PositionList) Position(i int) Position { return l.results[i] }

func (l *PositionList) Add(results ...Result) error {
	for _, r := range results {
		p, ok := r.(Position)
		if !ok {
			return mismatch(PositionKind, r)
		}
		l.results = append(l.results, p)
	}
	return nil
}

func (l *PositionList) Extend(other ResultList) error {
	if other == nil {
		return nil
	}
	for i := 0; i < other.Len(); i++ {
		if err := l.Add(other.At(i)); err != nil {
			return err
		}
	}
	return nil
}

func (l *PositionList) Satisfies(q *Query) bool {
	for _, p := range l.results {
		if p.Satisfies(q) {
			return true
		}
	}
	return false
}

// Best picks the highest scoring candidate among those meeting expected,
// falling back to those missing it. Equal scores prefer the smaller
// accuracy radius, then insertion order.
func (l *PositionList) Best(expected DataAccuracy) Result {
	var matches, misses, empty []Position
	for _, p := range l.results {
		switch {
		case p.Empty():
			empty = append(empty, p)
		case p.DataAccuracy() <= expected:
			matches = append(matches, p)
		default:
			misses = append(misses, p)
		}
	}

	candidates := matches
	if len(candidates) == 0 {
		candidates = misses
	}
	switch len(candidates) {
	case 0:
		if len(empty) > 0 {
			return empty[0]
		}
		return Position{}
	case 1:
		return candidates[0]
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score() != b.Score() {
			return a.Score() > b.Score()
		}
		return a.Accuracy() < b.Accuracy()
	})
	return candidates[0]
}

// RegionList is a ResultList of Region values.
type RegionList struct {
	results []Region
}

// NewRegionList returns a list holding results.
func NewRegionList(results ...Region) *RegionList {
	return &RegionList{results: append([]Region(nil), results...)}
}

func (l *RegionList) Kind() Kind { return RegionKind }
func (l *RegionList) Len() int { return len(l.results) }
func (l *RegionList) At(i int) Result { return l.results[i] }
func (l *RegionList) Region(i int) Region { return l.results[i] }

func (l *RegionList) Add(results ...Result) error {
	for _, r := range results {
		reg, ok := r.(Region)
		if !ok {
			return mismatch(RegionKind, r)
		}
		l.results = append(l.results, reg)
	}
	return nil
}

func (l *RegionList) Extend(other ResultList) error {
	if other == nil {
		return nil
	}
	for i := 0; i < other.Len(); i++ {
		if err := l.Add(other.At(i)); err != nil {
			return err
		}
	}
	return nil
}

func (l *RegionList) Satisfies(q *Query) bool {
	for _, r := range l.results {
		if r.Satisfies(q) {
			return true
		}
	}
	return false
}

type regionGroup struct {
	first Region
	score float64
}

// Best groups candidates by region code and returns the first member of
// the group with the highest summed score. Equal sums prefer the larger
// accuracy radius, then the lower region code.
func (l *RegionList) Best(DataAccuracy) Result {
	index := make(map[string]int)
	var groups []regionGroup
	for _, r := range l.results {
		if r.Empty() {
			continue
		}
		i, ok := index[r.code]
		if !ok {
			i = len(groups)
			index[r.code] = i
			groups = append(groups, regionGroup{first: r})
		}
		groups[i].score += r.score
	}
	if len(groups) == 0 {
		return Region{}
	}

	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.first.Accuracy() != b.first.Accuracy() {
			return a.first.Accuracy() > b.first.Accuracy()
		}
		return a.first.code < b.first.code
	})
	return groups[0].first
}

// Scores returns the summed score of every region code in the list.
func (l *RegionList) Scores() map[string]float64 {
	scores := make(map[string]float64)
	for _, r := range l.results {
		if !r.Empty() {
			scores[r.code] += r.score
		}
	}
	return scores
}
