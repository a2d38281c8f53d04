package domain

import "strings"

// DefaultRegion is used when the source has no regiao column or a blank cell.
const DefaultRegion = "São Paulo"

var DefaultThresholds = Thresholds{Critical: 35, Medium: 25}

var DefaultPalette = Palette{
	Critical: "#FF4444",
	Medium:   "#FFA500",
	Safe:     "#44FF44",
}

var DefaultRecommendations = Recommendations{
	Critical: RecommendationBundle{
		Action:    "HIGH PRIORITY: urgent tree planting and creation of green areas",
		CostRange: "R$ 50.000 - R$ 100.000",
		Species:   []string{"Ipê", "Sibipiruna", "Flamboyant", "Tipuana"},
		Manager: AudienceMessage{
			Message:     "Critical zone: schedule intervention in the next planting cycle",
			Description: "High surface temperature combined with low vegetation cover. Prioritize budget and field teams here.",
		},
		Public: AudienceMessage{
			Message:     "Critical zone: urgent need for trees",
			Description: "This area is hot and has little vegetation. Avoid long sun exposure and support local planting efforts.",
		},
	},
	Medium: RecommendationBundle{
		Action:    "MEDIUM PRIORITY: expand green areas and adopt green roofs",
		CostRange: "R$ 20.000 - R$ 50.000",
		Species:   []string{"Resedá", "Quaresmeira", "Palmeira", "Jambolão"},
		Manager: AudienceMessage{
			Message:     "Medium zone: plan incremental greening",
			Description: "Moderate heat risk. Green roofs and street trees will keep the zone from becoming critical.",
		},
		Public: AudienceMessage{
			Message:     "Medium zone: could improve with more trees",
			Description: "This area would benefit from more vegetation. Every contribution helps.",
		},
	},
	Safe: RecommendationBundle{
		Action:    "MAINTENANCE: preserve existing green areas",
		CostRange: "R$ 5.000 - R$ 15.000",
		Species:   []string{"Maintenance of existing vegetation"},
		Manager: AudienceMessage{
			Message:     "Safe zone: maintain current coverage",
			Description: "Vegetation cover keeps the heat risk low. Budget for routine maintenance only.",
		},
		Public: AudienceMessage{
			Message:     "Safe zone: well preserved green",
			Description: "This area is well cared for, but it can always get better.",
		},
	},
}

// Audience selects which recommendation messages a caller sees.
type Audience int

const (
	AudienceManager Audience = iota
	AudiencePublic
)

func (a Audience) String() string {
	if a == AudiencePublic {
		return "public"
	}
	return "manager"
}

// ParseAudience accepts "manager"/"gestor" and "public"/"civil"/"voluntario".
// Anything else falls back to the manager audience with ok=false.
func ParseAudience(s string) (Audience, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "manager", "gestor":
		return AudienceManager, true
	case "public", "civil", "voluntario":
		return AudiencePublic, true
	default:
		return AudienceManager, false
	}
}
