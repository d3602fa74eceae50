// Command genmock generates a synthetic incident CSV fixture for local
// development and test suites. It writes the same column layout the city
// portal exports, including a configurable share of malformed dates and
// withheld coordinates so fixtures exercise the loader's tolerance rules.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock/incidents.csv -rows 5000 -seed 42
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"time"
)

var primaryTypes = []string{
	"THEFT", "BATTERY", "CRIMINAL DAMAGE", "NARCOTICS", "ASSAULT",
	"BURGLARY", "MOTOR VEHICLE THEFT", "ROBBERY", "DECEPTIVE PRACTICE",
	"CRIMINAL TRESPASS", "WEAPONS VIOLATION", "OFFENSE INVOLVING CHILDREN",
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output CSV path")
	rows := flag.Int("rows", 5000, "number of incident rows to generate")
	seed := flag.Uint64("seed", 1, "RNG seed for reproducible output")
	startYear := flag.Int("start-year", 2015, "first incident year")
	endYear := flag.Int("end-year", 2025, "last incident year")
	badDateRate := flag.Float64("bad-date-rate", 0.02, "fraction of rows with an unparsable date")
	missingCoordRate := flag.Float64("missing-coord-rate", 0.05, "fraction of rows with withheld coordinates")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if *startYear > *endYear {
		return fmt.Errorf("-start-year %d exceeds -end-year %d", *startYear, *endYear)
	}

	rng := rand.New(rand.NewPCG(*seed, *seed^0xda3e39cb94b95bdb))

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	// "Description" stands in for the extra portal columns the loader ignores.
	header := []string{"Date", "Primary Type", "Description", "District", "Community Area", "Latitude", "Longitude", "Arrest"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	yearCounts := make(map[int]int)
	typeCounts := make(map[string]int)
	badDates, missingCoords := 0, 0

	for i := 0; i < *rows; i++ {
		year := *startYear + rng.IntN(*endYear-*startYear+1)
		ts := time.Date(year, time.Month(1+rng.IntN(12)), 1+rng.IntN(28),
			rng.IntN(24), rng.IntN(60), rng.IntN(60), 0, time.UTC)

		dateCell := ts.Format("01/02/2006 03:04:05 PM")
		if rng.Float64() < *badDateRate {
			dateCell = "NOT A DATE"
			badDates++
		} else {
			yearCounts[year]++
		}

		primaryType := primaryTypes[rng.IntN(len(primaryTypes))]
		typeCounts[primaryType]++

		lat := fmt.Sprintf("%.6f", 41.6+rng.Float64()*0.4)
		lon := fmt.Sprintf("%.6f", -87.9+rng.Float64()*0.4)
		if rng.Float64() < *missingCoordRate {
			lat, lon = "", ""
			missingCoords++
		}

		arrest := "false"
		if rng.Float64() < 0.2 {
			arrest = "true"
		}

		record := []string{
			dateCell,
			primaryType,
			"SYNTHETIC",
			fmt.Sprintf("%03d", 1+rng.IntN(25)),
			fmt.Sprintf("%d", 1+rng.IntN(77)),
			lat,
			lon,
			arrest,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	log.Printf("wrote %d rows to %s (bad dates: %d, missing coords: %d)", *rows, *out, badDates, missingCoords)
	printStats(yearCounts, typeCounts)
	return nil
}

func printStats(yearCounts map[int]int, typeCounts map[string]int) {
	years := make([]int, 0, len(yearCounts))
	for y := range yearCounts {
		years = append(years, y)
	}
	sort.Ints(years)
	log.Println("rows per year (parsable dates):")
	for _, y := range years {
		log.Printf("  %d: %d", y, yearCounts[y])
	}

	types := make([]string, 0, len(typeCounts))
	for t := range typeCounts {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return typeCounts[types[i]] > typeCounts[types[j]] })
	log.Println("rows per primary type:")
	for _, t := range types {
		log.Printf("  %-28s %d", t, typeCounts[t])
	}
}
