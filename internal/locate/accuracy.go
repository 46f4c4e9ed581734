package locate

// DataAccuracy is a coarse accuracy tier. Lower values are stricter, so a
// result satisfies an expected tier when its own tier is less or equal.
type DataAccuracy int

// Accuracy tiers.
const (
	High DataAccuracy = iota
	Medium
	Low
	None
)

var accuracyNames = [...]string{"high", "medium", "low", "none"}

func (a DataAccuracy) String() string {
	if a < High || a > None {
		return "unknown"
	}
	return accuracyNames[a]
}

// FromAccuracy classifies an accuracy radius in meters.
func FromAccuracy(meters float64) DataAccuracy {
	switch {
	case meters <= highAccuracyMax:
		return High
	case meters <= mediumAccuracyMax:
		return Medium
	}
	return Low
}

// ParseDataAccuracy parses a tier name.
func ParseDataAccuracy(s string) (DataAccuracy, bool) {
	for i, name := range accuracyNames {
		if name == s {
			return DataAccuracy(i), true
		}
	}
	return None, false
}
