// Command genmock writes a deterministic São Paulo zone dataset and the
// matching classified JSON fixture. The fixture is produced by the service's
// own loader and classifier so it always reflects real behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -csv-out data/sp_zones_data.csv \
//	  -json-out data/mock/sp_zones_classified.json \
//	  -zones 40 -seed 7
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/climavida/heatzone-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

var header = []string{
	domain.FieldID, domain.FieldName, domain.FieldLatitude, domain.FieldLongitude,
	domain.FieldTemperature, domain.FieldVegetationIndex, domain.FieldPopulationDensity, domain.FieldRegion,
}

// anchors are fixed rows with known tiers: Critical, Safe and Medium.
var anchors = [][]string{
	{"1", "Centro", "-23.5505", "-46.6333", "38.0", "0.10", "15000", "Centro"},
	{"2", "Moema", "-23.6010", "-46.6650", "22.0", "0.70", "12000", "Sul"},
	{"3", "Lapa", "-23.5200", "-46.7000", "30.0", "0.20", "9000", "Oeste"},
}

type district struct {
	name   string
	region string
	lat    float64
	lon    float64
}

var districts = []district{
	{"Sé", "Centro", -23.5503, -46.6340},
	{"República", "Centro", -23.5442, -46.6425},
	{"Bela Vista", "Centro", -23.5614, -46.6500},
	{"Brás", "Leste", -23.5432, -46.6159},
	{"Mooca", "Leste", -23.5584, -46.5994},
	{"Tatuapé", "Leste", -23.5405, -46.5766},
	{"Itaquera", "Leste", -23.5361, -46.4560},
	{"São Mateus", "Leste", -23.6095, -46.4765},
	{"Santana", "Norte", -23.5024, -46.6253},
	{"Tucuruvi", "Norte", -23.4801, -46.6036},
	{"Brasilândia", "Norte", -23.4676, -46.6878},
	{"Pinheiros", "Oeste", -23.5674, -46.6919},
	{"Butantã", "Oeste", -23.5718, -46.7088},
	{"Perdizes", "Oeste", -23.5367, -46.6760},
	{"Vila Mariana", "Sul", -23.5890, -46.6345},
	{"Ipiranga", "Sul", -23.5930, -46.6100},
	{"Santo Amaro", "Sul", -23.6540, -46.7100},
	{"Campo Limpo", "Sul", -23.6330, -46.7590},
	{"Grajaú", "Sul", -23.7580, -46.6970},
	{"Parelheiros", "Sul", -23.8170, -46.7290},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	csvOut := flag.String("csv-out", "", "output path for the zone CSV")
	jsonOut := flag.String("json-out", "", "output path for the classified JSON fixture")
	zones := flag.Int("zones", 40, "total number of zones, including the three anchor rows")
	seed := flag.Uint64("seed", 7, "random seed")
	gaps := flag.Bool("gaps", false, "blank out a few measurements to exercise coercion warnings")
	flag.Parse()

	if *csvOut == "" || *jsonOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -csv-out, -json-out")
	}
	if *zones < len(anchors) {
		return fmt.Errorf("-zones must be at least %d", len(anchors))
	}

	// Fixed clock so the fixture is byte-identical across runs.
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	records := generate(*zones, *seed, *gaps)
	if err := writeCSV(*csvOut, records); err != nil {
		return fmt.Errorf("writing CSV: %w", err)
	}
	log.Printf("wrote %d zones: %s", len(records), *csvOut)

	parsed, warnings, err := domain.ParseTable(domain.Table{Header: header, Records: records}, domain.DefaultRegion)
	if err != nil {
		return fmt.Errorf("loading generated rows: %w", err)
	}
	set := domain.NewZoneSet(*csvOut, parsed, warnings, domain.DefaultClassifier())

	if err := writeJSON(*jsonOut, set.All()); err != nil {
		return fmt.Errorf("writing JSON fixture: %w", err)
	}
	log.Printf("wrote classified fixture: %s", *jsonOut)

	printStats(set)
	return nil
}

func generate(n int, seed uint64, gaps bool) [][]string {
	rng := rand.New(rand.NewPCG(seed, seed^0x5a5a))
	records := make([][]string, 0, n)
	records = append(records, anchors...)

	for id := len(anchors) + 1; id <= n; id++ {
		d := districts[(id-len(anchors)-1)%len(districts)]
		name := d.name
		if round := (id - len(anchors) - 1) / len(districts); round > 0 {
			name = fmt.Sprintf("%s %d", d.name, round+1)
		}

		// Hotter zones tend to have less vegetation.
		temp := 20 + rng.Float64()*20
		ndvi := clamp(0.85-(temp-20)/25+rng.NormFloat64()*0.1, -0.1, 0.9)
		density := 3000 + rng.IntN(25000)
		region := d.region
		if id%11 == 0 {
			region = ""
		}

		rec := []string{
			strconv.Itoa(id),
			name,
			strconv.FormatFloat(d.lat+rng.Float64()*0.01, 'f', 4, 64),
			strconv.FormatFloat(d.lon+rng.Float64()*0.01, 'f', 4, 64),
			strconv.FormatFloat(temp, 'f', 1, 64),
			strconv.FormatFloat(ndvi, 'f', 2, 64),
			strconv.Itoa(density),
			region,
		}
		if gaps && id%13 == 0 {
			rec[4] = ""
		}
		if gaps && id%17 == 0 {
			rec[5] = "n/a"
		}
		records = append(records, rec)
	}
	return records
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}

func writeCSV(path string, records [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(records); err != nil {
		return err
	}
	return f.Close()
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(set *domain.ZoneSet) {
	st := set.Statistics()

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d\n", st.TotalZones)
	fmt.Printf("By tier: critical=%d, medium=%d, safe=%d\n", st.CriticalZones, st.MediumZones, st.SafeZones)
	fmt.Printf("Means: temperature=%.4f, ndvi=%.4f, criticality=%.4f\n",
		st.AvgTemperature, st.AvgVegetationIndex, st.AvgCriticalityIndex)
	fmt.Printf("Coercion warnings: %d\n", len(set.Warnings()))

	rows := set.ReportRows()
	fmt.Println("Top 5 by criticality:")
	for _, r := range rows[:min(5, len(rows))] {
		fmt.Printf("  %d %s (%s)\n", r.ZoneID, r.Neighborhood, r.Tier)
	}
}
