package scoring

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Weights is the scoring policy. Component weights are relative; NewCalculator
// rescales them so a perfect candidate scores 100.
type Weights struct {
	Proximity float64 `yaml:"proximity"`
	Intent    float64 `yaml:"intent"`
	Interests float64 `yaml:"interests"`
	Recency   float64 `yaml:"recency"`

	// RecencyHalfLifeHours is how long after last activity the recency credit halves
	RecencyHalfLifeHours float64 `yaml:"recency_half_life_hours"`
	// MissingDataCredit is the share of a component granted when its input is missing,
	// so that empty new profiles still get seen
	MissingDataCredit float64 `yaml:"missing_data_credit"`
	// IntentPartialCredit is granted when either side is unsure or unset
	IntentPartialCredit float64 `yaml:"intent_partial_credit"`
	// DefaultRadiusKm is used when neither side has a match radius
	DefaultRadiusKm float64 `yaml:"default_radius_km"`
}

// DefaultWeights is the production policy
var DefaultWeights = Weights{
	Proximity:            40,
	Intent:               20,
	Interests:            25,
	Recency:              15,
	RecencyHalfLifeHours: 72,
	MissingDataCredit:    0.3,
	IntentPartialCredit:  0.5,
	DefaultRadiusKm:      50,
}

// Validate rejects weights that could push a score out of [0,100]
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"proximity": w.Proximity,
		"intent":    w.Intent,
		"interests": w.Interests,
		"recency":   w.Recency,
	} {
		if v < 0 {
			return fmt.Errorf("weight %s must not be negative, got %v", name, v)
		}
	}
	if w.Proximity+w.Intent+w.Interests+w.Recency == 0 {
		return fmt.Errorf("at least one component weight must be positive")
	}
	if w.RecencyHalfLifeHours <= 0 {
		return fmt.Errorf("recency_half_life_hours must be positive, got %v", w.RecencyHalfLifeHours)
	}
	if w.MissingDataCredit < 0 || w.MissingDataCredit > 1 {
		return fmt.Errorf("missing_data_credit must be within [0,1], got %v", w.MissingDataCredit)
	}
	if w.IntentPartialCredit < 0 || w.IntentPartialCredit > 1 {
		return fmt.Errorf("intent_partial_credit must be within [0,1], got %v", w.IntentPartialCredit)
	}
	if w.DefaultRadiusKm <= 0 {
		return fmt.Errorf("default_radius_km must be positive, got %v", w.DefaultRadiusKm)
	}
	return nil
}

// LoadWeights reads a YAML file on top of DefaultWeights. Keys missing from the
// file keep their default.
func LoadWeights(path string) (Weights, error) {
	w := DefaultWeights
	data, err := os.ReadFile(path)
	if err != nil {
		return Weights{}, fmt.Errorf("read scoring weights: %w", err)
	}
	if err := yaml.Unmarshal(data, &w); err != nil {
		return Weights{}, fmt.Errorf("parse scoring weights: %w", err)
	}
	if err := w.Validate(); err != nil {
		return Weights{}, err
	}
	return w, nil
}
