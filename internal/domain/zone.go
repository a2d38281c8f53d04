package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Tier is the discrete heat-risk classification of a zone.
// The zero value is TierSafe so an unclassified zone never reads as an alarm.
type Tier int

const (
	TierSafe Tier = iota
	TierMedium
	TierCritical
)

// Tiers lists every tier in ascending risk order.
var Tiers = []Tier{TierSafe, TierMedium, TierCritical}

func (t Tier) String() string {
	switch t {
	case TierSafe:
		return "Safe"
	case TierMedium:
		return "Medium"
	case TierCritical:
		return "Critical"
	default:
		return fmt.Sprintf("Tier(%d)", int(t))
	}
}

// Valid reports whether t is one of the three known tiers.
func (t Tier) Valid() bool {
	return t >= TierSafe && t <= TierCritical
}

// ParseTier resolves a tier label. English names are matched case-insensitively;
// the Portuguese labels used by the original dataset tooling are also accepted.
func ParseTier(s string) (Tier, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical", "crítica", "critica":
		return TierCritical, true
	case "medium", "média", "media":
		return TierMedium, true
	case "safe", "segura":
		return TierSafe, true
	default:
		return TierSafe, false
	}
}

func (t Tier) MarshalJSON() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("marshal tier: unknown value %d", int(t))
	}
	return json.Marshal(t.String())
}

func (t *Tier) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("unmarshal tier: %w", err)
	}
	parsed, ok := ParseTier(s)
	if !ok {
		return fmt.Errorf("unmarshal tier: unknown label %q", s)
	}
	*t = parsed
	return nil
}

// Zone is one neighborhood record after loading and classification.
//
// CriticalityIndex is nil when temperature or vegetation index could not be
// coerced from the source; such zones are always TierSafe.
type Zone struct {
	ID                int      `json:"id"`
	Name              string   `json:"nome"`
	Region            string   `json:"regiao"`
	Latitude          float64  `json:"latitude"`
	Longitude         float64  `json:"longitude"`
	Temperature       float64  `json:"temperatura"`
	VegetationIndex   float64  `json:"ndvi"`
	PopulationDensity int      `json:"densidade_populacional"`
	CriticalityIndex  *float64 `json:"indice_criticidade"`
	Tier              Tier     `json:"classificacao"`
	Color             string   `json:"cor"`

	// Missing lists the source columns whose cell could not be coerced.
	Missing []string `json:"missing,omitempty"`
}

// HasMissing reports whether the named column was missing for this zone.
func (z Zone) HasMissing(field string) bool {
	for _, f := range z.Missing {
		if f == field {
			return true
		}
	}
	return false
}

// Statistics is an aggregate snapshot over a ZoneSet. Values are unrounded.
type Statistics struct {
	TotalZones          int     `json:"total_zones"`
	CriticalZones       int     `json:"critical_zones"`
	MediumZones         int     `json:"medium_zones"`
	SafeZones           int     `json:"safe_zones"`
	AvgTemperature      float64 `json:"avg_temperature"`
	AvgVegetationIndex  float64 `json:"avg_ndvi"`
	AvgCriticalityIndex float64 `json:"avg_criticity"`
}

// ReportRow is the flattened zone view consumed by the report layer.
type ReportRow struct {
	ZoneID            int      `json:"id"`
	Neighborhood      string   `json:"bairro"`
	Region            string   `json:"regiao"`
	Temperature       float64  `json:"temperatura"`
	VegetationIndex   float64  `json:"ndvi"`
	PopulationDensity int      `json:"densidade"`
	CriticalityIndex  *float64 `json:"criticidade"`
	Tier              Tier     `json:"classificacao"`
}
