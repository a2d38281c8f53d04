package domain

import (
	"errors"
	"fmt"
	"math"
)

// Thresholds are the strict lower bounds of the Medium and Critical tiers.
type Thresholds struct {
	Critical float64 `yaml:"critical"`
	Medium   float64 `yaml:"medium"`
}

// Palette maps each tier to its display color.
type Palette struct {
	Critical string `yaml:"critical"`
	Medium   string `yaml:"medium"`
	Safe     string `yaml:"safe"`
}

// AudienceMessage is a headline and description written for one audience.
type AudienceMessage struct {
	Message     string `yaml:"message" json:"message"`
	Description string `yaml:"description" json:"description"`
}

// RecommendationBundle is the static remediation guidance attached to a tier.
type RecommendationBundle struct {
	Action    string          `yaml:"action" json:"action"`
	CostRange string          `yaml:"cost_range" json:"cost_range"`
	Species   []string        `yaml:"species" json:"species"`
	Manager   AudienceMessage `yaml:"manager" json:"manager"`
	Public    AudienceMessage `yaml:"public" json:"public"`
}

// For returns the message pair for the given audience.
func (b RecommendationBundle) For(a Audience) AudienceMessage {
	if a == AudiencePublic {
		return b.Public
	}
	return b.Manager
}

// Recommendations holds one bundle per tier.
type Recommendations struct {
	Critical RecommendationBundle `yaml:"critical"`
	Medium   RecommendationBundle `yaml:"medium"`
	Safe     RecommendationBundle `yaml:"safe"`
}

// Classifier derives criticality, tier, color and recommendations for zones.
// It holds only immutable configuration and is safe for concurrent use.
type Classifier struct {
	thresholds      Thresholds
	palette         Palette
	recommendations Recommendations
}

// NewClassifier validates the configuration and returns a Classifier.
func NewClassifier(th Thresholds, p Palette, r Recommendations) (*Classifier, error) {
	if math.IsNaN(th.Critical) || math.IsNaN(th.Medium) {
		return nil, errors.New("classifier thresholds must be numbers")
	}
	if th.Medium >= th.Critical {
		return nil, fmt.Errorf("medium threshold %g must be below critical threshold %g", th.Medium, th.Critical)
	}
	return &Classifier{thresholds: th, palette: p, recommendations: r}, nil
}

// DefaultClassifier uses DefaultThresholds, DefaultPalette and DefaultRecommendations.
func DefaultClassifier() *Classifier {
	return &Classifier{
		thresholds:      DefaultThresholds,
		palette:         DefaultPalette,
		recommendations: DefaultRecommendations,
	}
}

// Thresholds returns the configured tier thresholds.
func (c *Classifier) Thresholds() Thresholds { return c.thresholds }

// CriticalityIndex is temperature minus ten times the vegetation index, unrounded.
func CriticalityIndex(temperature, vegetationIndex float64) float64 {
	return temperature - vegetationIndex*10
}

// TierFor maps a criticality index to a tier using strict greater-than comparisons.
func (c *Classifier) TierFor(index float64) Tier {
	switch {
	case index > c.thresholds.Critical:
		return TierCritical
	case index > c.thresholds.Medium:
		return TierMedium
	default:
		return TierSafe
	}
}

// Classify recomputes the derived fields of z from its temperature and
// vegetation index. When either input is missing the index is left undefined
// and the zone is classified Safe.
func (c *Classifier) Classify(z Zone) Zone {
	if z.HasMissing(FieldTemperature) || z.HasMissing(FieldVegetationIndex) {
		z.CriticalityIndex = nil
		z.Tier = TierSafe
	} else {
		index := CriticalityIndex(z.Temperature, z.VegetationIndex)
		z.CriticalityIndex = &index
		z.Tier = c.TierFor(index)
	}
	z.Color = c.Color(z.Tier)
	return z
}

// Color returns the display color for t, or "" for an unknown tier.
func (c *Classifier) Color(t Tier) string {
	switch t {
	case TierCritical:
		return c.palette.Critical
	case TierMedium:
		return c.palette.Medium
	case TierSafe:
		return c.palette.Safe
	default:
		return ""
	}
}

// Recommendation returns the bundle for t. An unknown tier yields an empty bundle.
func (c *Classifier) Recommendation(t Tier) RecommendationBundle {
	switch t {
	case TierCritical:
		return c.recommendations.Critical
	case TierMedium:
		return c.recommendations.Medium
	case TierSafe:
		return c.recommendations.Safe
	default:
		return RecommendationBundle{}
	}
}
