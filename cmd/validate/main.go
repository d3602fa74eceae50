// Command validate runs data-integrity checks over an incident CSV source:
// it loads the file through the real loader, then verifies the derivation
// invariants, the year-filter properties, and the shape of every aggregate
// the service exposes. Exits non-zero if any phase fails.
//
// Usage:
//
//	go run ./cmd/validate -source data/mock/incidents.csv -min-year 2015 -max-year 2025
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/couchcryptid/incident-analytics/internal/analytics"
	"github.com/couchcryptid/incident-analytics/internal/dataset"
	"github.com/couchcryptid/incident-analytics/internal/domain"
	"github.com/couchcryptid/incident-analytics/internal/observability"
)

// phase tracks pass/fail for one validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	source := flag.String("source", "", "incident CSV path or URL")
	minYear := flag.Int("min-year", 2015, "filter range lower bound")
	maxYear := flag.Int("max-year", 2025, "filter range upper bound")
	flag.Parse()

	if *source == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*source, domain.YearRange{Min: *minYear, Max: *maxYear}); code != 0 {
		os.Exit(code)
	}
}

func run(source string, yr domain.YearRange) int {
	fmt.Println("=== Incident Dataset Integrity Validation ===")
	fmt.Println()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	metrics := observability.NewMetrics()
	loader := dataset.NewCSVLoader(60*time.Second, 3, logger, metrics)

	ctx := context.Background()
	table, err := loader.Load(ctx, source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load source: %v\n", err)
		return 1
	}
	fmt.Printf("loaded %d rows from %s\n\n", table.Len(), source)

	phases := []*phase{
		checkDerivation(table),
		checkFilter(table, yr),
		checkAggregates(table, yr),
	}

	failed := 0
	for _, p := range phases {
		if p.passed() {
			fmt.Printf("PASS  %s\n", p.name)
			continue
		}
		failed++
		fmt.Printf("FAIL  %s\n", p.name)
		for _, e := range p.errors {
			fmt.Printf("      - %s\n", e)
		}
	}

	fmt.Println()
	if failed > 0 {
		fmt.Printf("%d of %d phases failed\n", failed, len(phases))
		return 1
	}
	fmt.Printf("all %d phases passed\n", len(phases))
	return 0
}

// checkDerivation verifies the per-row feature invariants: derived fields are
// present exactly when Date parsed, and TimePeriod is one of the four bucket
// labels or unknown.
func checkDerivation(table *dataset.Table) *phase {
	p := &phase{name: "derivation invariants"}

	validPeriods := map[string]bool{}
	for _, period := range domain.Periods {
		validPeriods[period] = true
	}

	for i, row := range table.Rows() {
		if (row.Date == nil) != (row.Year == nil) || (row.Date == nil) != (row.Hour == nil) {
			p.errorf("row %d: derived fields inconsistent with Date", i)
			continue
		}
		if row.Hour == nil {
			if row.TimePeriod != "" {
				p.errorf("row %d: TimePeriod %q without an Hour", i, row.TimePeriod)
			}
			continue
		}
		if *row.Hour < 0 || *row.Hour > 23 {
			p.errorf("row %d: Hour %d out of range", i, *row.Hour)
		}
		if !validPeriods[row.TimePeriod] {
			p.errorf("row %d: unexpected TimePeriod %q", i, row.TimePeriod)
		}
		if row.TimePeriod != domain.TimePeriodForHour(*row.Hour) {
			p.errorf("row %d: TimePeriod %q does not match hour %d", i, row.TimePeriod, *row.Hour)
		}
	}
	return p
}

// checkFilter verifies the year-filter contract: no unknown years in the
// result, idempotence, and monotonicity against the widest range.
func checkFilter(table *dataset.Table, yr domain.YearRange) *phase {
	p := &phase{name: "year filter properties"}

	filtered := table.FilterByYear(yr)
	for i, row := range filtered.Rows() {
		if row.Year == nil {
			p.errorf("filtered row %d has unknown year", i)
		} else if !yr.Contains(*row.Year) {
			p.errorf("filtered row %d year %d outside %d..%d", i, *row.Year, yr.Min, yr.Max)
		}
	}

	if again := filtered.FilterByYear(yr); again.Len() != filtered.Len() {
		p.errorf("filter not idempotent: %d then %d rows", filtered.Len(), again.Len())
	}

	wide := table.FilterByYear(domain.YearRange{Min: yr.Min - 10, Max: yr.Max + 10})
	if wide.Len() < filtered.Len() {
		p.errorf("widening the range dropped rows: %d < %d", wide.Len(), filtered.Len())
	}
	return p
}

// checkAggregates verifies the shape and bounds of each aggregate view.
func checkAggregates(table *dataset.Table, yr domain.YearRange) *phase {
	p := &phase{name: "aggregate shapes"}

	rows := table.FilterByYear(yr).Rows()

	counts := analytics.YearlyCounts(rows)
	sum := 0
	for i, yc := range counts {
		sum += yc.Count
		if i > 0 && counts[i-1].Year >= yc.Year {
			p.errorf("yearly counts not ascending at index %d", i)
		}
	}
	if sum != len(rows) {
		p.errorf("yearly counts sum %d != filtered rows %d", sum, len(rows))
	}

	districts := analytics.TopDistricts(rows, 15)
	if len(districts) > 15 {
		p.errorf("top districts returned %d entries", len(districts))
	}
	seen := map[string]bool{}
	for i, d := range districts {
		if seen[d.District] {
			p.errorf("duplicate district %q", d.District)
		}
		seen[d.District] = true
		if i > 0 && districts[i-1].Count < d.Count {
			p.errorf("top districts not descending at index %d", i)
		}
	}

	for _, rate := range analytics.ArrestRateByPeriod(rows) {
		if rate.ArrestRate < 0 || rate.ArrestRate > 100 {
			p.errorf("arrest rate %.2f for %q outside [0,100]", rate.ArrestRate, rate.Period)
		}
	}

	sample := analytics.GeoSample(rows, 20000, rand.New(rand.NewPCG(1, 2)))
	if len(sample) > 20000 {
		p.errorf("geo sample returned %d points", len(sample))
	}

	crosstab := analytics.TypePeriodCrosstab(rows, 10)
	if len(crosstab.RowLabels) > 10 {
		p.errorf("crosstab has %d type rows", len(crosstab.RowLabels))
	}
	if len(crosstab.RowLabels) > 0 && len(crosstab.ColLabels) != len(domain.Periods) {
		p.errorf("crosstab has %d period columns", len(crosstab.ColLabels))
	}
	for i, cells := range crosstab.Cells {
		if len(cells) != len(crosstab.ColLabels) {
			p.errorf("crosstab row %d is ragged", i)
		}
	}

	corr := analytics.CooccurrenceMatrix(rows)
	if len(corr.Cells) != len(corr.Labels) {
		p.errorf("correlation matrix has %d rows for %d labels", len(corr.Cells), len(corr.Labels))
	}
	for i, cells := range corr.Cells {
		if len(cells) != len(corr.Labels) {
			p.errorf("correlation row %d is ragged", i)
		}
		for j, c := range cells {
			if c != nil && (*c < -1.000001 || *c > 1.000001) {
				p.errorf("correlation cell (%d,%d) = %f outside [-1,1]", i, j, *c)
			}
		}
	}
	return p
}
