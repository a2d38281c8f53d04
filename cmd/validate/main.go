// Command validate checks a zone dataset offline. It loads the CSV with the
// same loader and classifier as the service, prints coercion warnings, tier
// counts and the most critical zones, and verifies classification invariants.
// With -expected it also compares the result against a JSON fixture written
// by genmock.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -csv data/sp_zones_data.csv \
//	  -expected data/mock/sp_zones_classified.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/climavida/heatzone-service/internal/adapter/source"
	"github.com/climavida/heatzone-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	csvPath := flag.String("csv", "", "path to the zone CSV to validate")
	expected := flag.String("expected", "", "optional JSON fixture of classified zones to compare against")
	region := flag.String("default-region", domain.DefaultRegion, "region used when the regiao column is absent or blank")
	strict := flag.Bool("strict", false, "treat coercion warnings as failures")
	top := flag.Int("top", 10, "number of report rows to print")
	flag.Parse()

	if *csvPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*csvPath, *expected, *region, *strict, *top))
}

func run(csvPath, expectedPath, region string, strict bool, top int) int {
	// Fixed clock matching genmock so timestamps are reproducible.
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	fmt.Println("=== Heat Zone Dataset Validation ===")
	fmt.Println()

	tbl, err := source.NewFileSource(csvPath).Fetch(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	zones, warnings, err := domain.ParseTable(tbl, region)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	classifier := domain.DefaultClassifier()
	set := domain.NewZoneSet(csvPath, zones, warnings, classifier)

	phases := []*phase{
		validateCoercion(warnings, strict),
		validateClassification(set, classifier),
		validateStatistics(set),
	}
	if expectedPath != "" {
		phases = append(phases, validateFixture(set, expectedPath))
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	printSummary(set, warnings, top)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func printSummary(set *domain.ZoneSet, warnings []domain.CoercionWarning, top int) {
	st := set.Statistics()
	fmt.Println()
	fmt.Printf("Zones: %d (critical %d, medium %d, safe %d)\n", st.TotalZones, st.CriticalZones, st.MediumZones, st.SafeZones)
	fmt.Printf("Means: temperature %.1f, ndvi %.2f, criticality %.2f\n", st.AvgTemperature, st.AvgVegetationIndex, st.AvgCriticalityIndex)

	if len(warnings) > 0 {
		fmt.Printf("\nCoercion warnings (%d):\n", len(warnings))
		for _, w := range warnings {
			fmt.Printf("  %s\n", w)
		}
	}

	rows := set.ReportRows()
	if top > len(rows) {
		top = len(rows)
	}
	fmt.Printf("\nTop %d zones by criticality:\n", top)
	for _, r := range rows[:top] {
		index := "n/a"
		if r.CriticalityIndex != nil {
			index = fmt.Sprintf("%.2f", *r.CriticalityIndex)
		}
		fmt.Printf("  %4d  %-28s %-10s %8s  %s\n", r.ZoneID, r.Neighborhood, r.Region, index, r.Tier)
	}
}

// ── Phase 1: Coercion ──

func validateCoercion(warnings []domain.CoercionWarning, strict bool) *phase {
	p := &phase{name: "Phase 1: Cell coercion"}
	if !strict {
		return p
	}
	for _, w := range warnings {
		p.errorf("%s", w)
	}
	return p
}

// ── Phase 2: Classification ──
// Recomputes every zone's index and tier independently of the stored values.

func validateClassification(set *domain.ZoneSet, c *domain.Classifier) *phase {
	p := &phase{name: "Phase 2: Classification invariants"}
	th := c.Thresholds()
	for _, z := range set.All() {
		if z.HasMissing(domain.FieldTemperature) || z.HasMissing(domain.FieldVegetationIndex) {
			if z.CriticalityIndex != nil || z.Tier != domain.TierSafe {
				p.errorf("zone %d: missing inputs must yield no index and tier Safe, got %v", z.ID, z.Tier)
			}
			continue
		}
		if z.CriticalityIndex == nil {
			p.errorf("zone %d: criticality index is undefined", z.ID)
			continue
		}
		want := z.Temperature - z.VegetationIndex*10
		if math.Abs(*z.CriticalityIndex-want) > 1e-9 {
			p.errorf("zone %d: index %g, want %g", z.ID, *z.CriticalityIndex, want)
		}
		var tier domain.Tier
		switch {
		case want > th.Critical:
			tier = domain.TierCritical
		case want > th.Medium:
			tier = domain.TierMedium
		default:
			tier = domain.TierSafe
		}
		if z.Tier != tier {
			p.errorf("zone %d: tier %s, want %s", z.ID, z.Tier, tier)
		}
		if z.Color != c.Color(z.Tier) {
			p.errorf("zone %d: color %s does not match tier %s", z.ID, z.Color, z.Tier)
		}
	}
	return p
}

// ── Phase 3: Statistics and report ──

func validateStatistics(set *domain.ZoneSet) *phase {
	p := &phase{name: "Phase 3: Statistics and report order"}
	st := set.Statistics()
	if st.CriticalZones+st.MediumZones+st.SafeZones != st.TotalZones {
		p.errorf("tier counts %d+%d+%d do not sum to %d", st.CriticalZones, st.MediumZones, st.SafeZones, st.TotalZones)
	}
	if st.TotalZones != set.Len() {
		p.errorf("total %d does not match %d loaded zones", st.TotalZones, set.Len())
	}

	rows := set.ReportRows()
	for i := 1; i < len(rows); i++ {
		prev, cur := rows[i-1].CriticalityIndex, rows[i].CriticalityIndex
		switch {
		case prev == nil && cur != nil:
			p.errorf("report row %d (zone %d) has an index after an undefined one", i, rows[i].ZoneID)
		case prev != nil && cur != nil && *cur > *prev:
			p.errorf("report row %d (zone %d) is out of order: %g > %g", i, rows[i].ZoneID, *cur, *prev)
		}
	}
	return p
}

// ── Phase 4: Fixture parity ──

func validateFixture(set *domain.ZoneSet, path string) *phase {
	p := &phase{name: "Phase 4: Fixture parity (JSON)"}
	data, err := os.ReadFile(path)
	if err != nil {
		p.errorf("read fixture: %v", err)
		return p
	}
	var want []domain.Zone
	if err := json.Unmarshal(data, &want); err != nil {
		p.errorf("parse fixture: %v", err)
		return p
	}
	if len(want) != set.Len() {
		p.errorf("fixture has %d zones, dataset has %d", len(want), set.Len())
	}
	for _, w := range want {
		got, err := set.ByID(w.ID)
		if err != nil {
			p.errorf("zone %d: missing from dataset", w.ID)
			continue
		}
		if got.Tier != w.Tier {
			p.errorf("zone %d: tier %s, fixture %s", w.ID, got.Tier, w.Tier)
		}
		if (got.CriticalityIndex == nil) != (w.CriticalityIndex == nil) ||
			(got.CriticalityIndex != nil && math.Abs(*got.CriticalityIndex-*w.CriticalityIndex) > 1e-9) {
			p.errorf("zone %d: criticality index differs from fixture", w.ID)
		}
		if got.Region != w.Region {
			p.errorf("zone %d: region %q, fixture %q", w.ID, got.Region, w.Region)
		}
	}
	return p
}
