package domain

import (
	"fmt"
	"slices"
	"time"
)

// ZoneSet is an immutable, fully classified dataset with its statistics.
// A reload builds a new ZoneSet; existing instances are never modified, so a
// *ZoneSet can be shared freely between goroutines.
type ZoneSet struct {
	zones      []Zone
	byID       map[int]int
	stats      Statistics
	warnings   []CoercionWarning
	classifier *Classifier
	source     string
	loadedAt   time.Time
}

// NewZoneSet classifies zones in order and aggregates their statistics.
// When ids repeat, lookups resolve to the first occurrence.
func NewZoneSet(source string, zones []Zone, warnings []CoercionWarning, c *Classifier) *ZoneSet {
	classified := make([]Zone, len(zones))
	byID := make(map[int]int, len(zones))
	for i, z := range zones {
		classified[i] = c.Classify(z)
		if _, dup := byID[z.ID]; !dup {
			byID[z.ID] = i
		}
	}

	return &ZoneSet{
		zones:      classified,
		byID:       byID,
		stats:      ComputeStatistics(classified),
		warnings:   slices.Clone(warnings),
		classifier: c,
		source:     source,
		loadedAt:   clock.Now(),
	}
}

// EmptyZoneSet is the state before the first successful load.
func EmptyZoneSet(c *Classifier) *ZoneSet {
	return &ZoneSet{byID: map[int]int{}, classifier: c}
}

// Len returns the number of zones.
func (s *ZoneSet) Len() int { return len(s.zones) }

// Source names where the zones were loaded from.
func (s *ZoneSet) Source() string { return s.source }

// LoadedAt is zero for an empty set that was never loaded.
func (s *ZoneSet) LoadedAt() time.Time { return s.loadedAt }

// Warnings returns the coercion warnings raised while loading.
func (s *ZoneSet) Warnings() []CoercionWarning { return slices.Clone(s.warnings) }

// Statistics returns the aggregate computed when the set was built.
func (s *ZoneSet) Statistics() Statistics { return s.stats }

// All returns every zone in source order. The result is never nil.
func (s *ZoneSet) All() []Zone {
	out := make([]Zone, len(s.zones))
	copy(out, s.zones)
	return out
}

// ByID returns the zone with the given id or ErrNotFound.
func (s *ZoneSet) ByID(id int) (Zone, error) {
	i, ok := s.byID[id]
	if !ok {
		return Zone{}, fmt.Errorf("zone %d: %w", id, ErrNotFound)
	}
	return s.zones[i], nil
}

// ByTier returns the zones classified as t in source order. An unknown tier
// yields an empty, non-nil slice.
func (s *ZoneSet) ByTier(t Tier) []Zone {
	out := []Zone{}
	for _, z := range s.zones {
		if z.Tier == t {
			out = append(out, z)
		}
	}
	return out
}

// ZoneDetail is a zone with the recommendation bundle of its tier, narrowed
// to the messages of one audience.
type ZoneDetail struct {
	Zone
	Action      string   `json:"acao_sugerida"`
	CostRange   string   `json:"custo_estimado"`
	Species     []string `json:"especies_recomendadas"`
	Audience    string   `json:"audience"`
	Message     string   `json:"message"`
	Description string   `json:"description"`
}

// Detail looks up a zone and attaches its tier recommendation for audience a.
func (s *ZoneSet) Detail(id int, a Audience) (ZoneDetail, error) {
	z, err := s.ByID(id)
	if err != nil {
		return ZoneDetail{}, err
	}
	rec := s.classifier.Recommendation(z.Tier)
	msg := rec.For(a)
	return ZoneDetail{
		Zone:        z,
		Action:      rec.Action,
		CostRange:   rec.CostRange,
		Species:     slices.Clone(rec.Species),
		Audience:    a.String(),
		Message:     msg.Message,
		Description: msg.Description,
	}, nil
}

// ReportRows returns the report view of the set, most critical first.
func (s *ZoneSet) ReportRows() []ReportRow {
	return BuildReportRows(s.zones)
}

// ComputeStatistics aggregates counts per tier and means over every zone.
// Missing inputs count as their coerced zero value, and a zone without a
// criticality index contributes zero to its mean. An empty input yields
// all-zero statistics.
func ComputeStatistics(zones []Zone) Statistics {
	st := Statistics{TotalZones: len(zones)}
	if len(zones) == 0 {
		return st
	}

	var sumTemp, sumVeg, sumCrit float64
	for _, z := range zones {
		switch z.Tier {
		case TierCritical:
			st.CriticalZones++
		case TierMedium:
			st.MediumZones++
		case TierSafe:
			st.SafeZones++
		default:
			panic(fmt.Sprintf("zone %d has unknown tier %d", z.ID, int(z.Tier)))
		}
		sumTemp += z.Temperature
		sumVeg += z.VegetationIndex
		if z.CriticalityIndex != nil {
			sumCrit += *z.CriticalityIndex
		}
	}

	n := float64(len(zones))
	st.AvgTemperature = sumTemp / n
	st.AvgVegetationIndex = sumVeg / n
	st.AvgCriticalityIndex = sumCrit / n
	return st
}

// BuildReportRows flattens zones and sorts them by criticality index,
// descending. Ties keep load order, and zones without an index go last.
func BuildReportRows(zones []Zone) []ReportRow {
	rows := make([]ReportRow, len(zones))
	for i, z := range zones {
		rows[i] = ReportRow{
			ZoneID:            z.ID,
			Neighborhood:      z.Name,
			Region:            z.Region,
			Temperature:       z.Temperature,
			VegetationIndex:   z.VegetationIndex,
			PopulationDensity: z.PopulationDensity,
			CriticalityIndex:  z.CriticalityIndex,
			Tier:              z.Tier,
		}
	}

	slices.SortStableFunc(rows, func(a, b ReportRow) int {
		switch {
		case a.CriticalityIndex == nil && b.CriticalityIndex == nil:
			return 0
		case a.CriticalityIndex == nil:
			return 1
		case b.CriticalityIndex == nil:
			return -1
		case *a.CriticalityIndex > *b.CriticalityIndex:
			return -1
		case *a.CriticalityIndex < *b.CriticalityIndex:
			return 1
		default:
			return 0
		}
	})
	return rows
}
