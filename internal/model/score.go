package model

import (
	"math"
	"time"
)

// ScoreFunc computes the confidence of a stored observation at a point in
// time. Sources sum these scores when several records corroborate each other.
type ScoreFunc func(st Station, now time.Time) float64

// DecayConfig controls DecayScore.
type DecayConfig struct {
	HalfLifeDays     int     `yaml:"half_life_days" mapstructure:"half_life_days"`
	Floor            float64 `yaml:"floor" mapstructure:"floor"`
	SampleSaturation int     `yaml:"sample_saturation" mapstructure:"sample_saturation"`
}

// DefaultDecayConfig returns the decay used when none is configured.
func DefaultDecayConfig() DecayConfig {
	return DecayConfig{HalfLifeDays: 365, Floor: 0.05, SampleSaturation: 10}
}

// DecayScore returns a ScoreFunc weighting a record by its sample count and
// halving that weight every HalfLifeDays since it was last seen.
// Formula: max(floor, min(samples/saturation, 1) * 2^(-ageDays / halfLifeDays))
// A record without samples scores 0.
func DecayScore(cfg DecayConfig) ScoreFunc {
	if cfg.HalfLifeDays <= 0 {
		cfg.HalfLifeDays = 365
	}
	if cfg.SampleSaturation <= 0 {
		cfg.SampleSaturation = 1
	}
	return func(st Station, now time.Time) float64 {
		if st.Samples <= 0 {
			return 0
		}
		weight := math.Min(float64(st.Samples)/float64(cfg.SampleSaturation), 1)
		if st.LastSeen.IsZero() {
			return weight
		}

		ageDays := now.Sub(st.LastSeen).Hours() / 24
		if ageDays <= 0 {
			return weight
		}

		decayed := weight * math.Pow(2, -ageDays/float64(cfg.HalfLifeDays))
		if decayed < cfg.Floor {
			return cfg.Floor
		}
		return decayed
	}
}

// ConstantScore scores every record with samples as value. Useful in tests
// and for datasets without recency information.
func ConstantScore(value float64) ScoreFunc {
	return func(st Station, _ time.Time) float64 {
		if st.Samples <= 0 {
			return 0
		}
		return value
	}
}
