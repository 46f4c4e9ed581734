// Package locate fuses candidate positions and regions from several
// location sources into a single best answer per query.
package locate

// DegreeDecimalPlaces is the precision coordinates and accuracies are
// rounded to when a result is built.
const DegreeDecimalPlaces = 7

// Accuracy bounds in meters.
const (
	WifiMinAccuracy     = 10.0
	WifiMaxAccuracy     = 500.0
	CellMinAccuracy     = 1000.0
	CellMaxAccuracy     = 40000.0
	CellAreaMinAccuracy = 50000.0
)

// Tier boundaries in meters.
const (
	highAccuracyMax   = 500.0
	mediumAccuracyMax = 40000.0
)

// MinWifisInQuery is the number of wifi networks needed before a query may
// be answered from wifi data.
const MinWifisInQuery = 2

// MaxWifiClusterDistance joins networks closer than this (meters) into one
// cluster.
const MaxWifiClusterDistance = 500.0

// UniqueMCCScore is the score of the only region of a country code.
const UniqueMCCScore = 1.0
