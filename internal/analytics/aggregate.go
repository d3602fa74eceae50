// Package analytics derives the summary views the dashboard renders from a
// filtered incident table: yearly counts, district rankings, geo samples,
// arrest rates, the type/period crosstab, and the co-occurrence correlation
// matrix. Every aggregator is side-effect free and returns an empty result
// for an empty input.
package analytics

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/couchcryptid/incident-analytics/internal/domain"
)

// YearCount is one (year, incident count) pair.
type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// DistrictCount is one (district, incident count) pair.
type DistrictCount struct {
	District string `json:"district"`
	Count    int    `json:"count"`
}

// GeoPoint is one mappable incident location.
type GeoPoint struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	PrimaryType string  `json:"primary_type,omitempty"`
}

// PeriodRate is the arrest percentage for one time period.
type PeriodRate struct {
	Period     string  `json:"period"`
	ArrestRate float64 `json:"arrest_rate"`
}

// CountMatrix is a labeled 2D count table (crosstab).
type CountMatrix struct {
	RowLabels []string `json:"row_labels"`
	ColLabels []string `json:"col_labels"`
	Cells     [][]int  `json:"cells"`
}

// CorrelationMatrix is a square labeled matrix of pairwise Pearson
// coefficients. A nil cell means the coefficient is undefined (one of the
// count series has zero variance); it serializes as JSON null.
type CorrelationMatrix struct {
	Labels []string     `json:"labels"`
	Cells  [][]*float64 `json:"cells"`
}

// YearlyCounts groups rows by derived Year and returns counts in ascending
// year order. Rows with an unknown Year are skipped; the remaining counts sum
// to the number of year-bearing rows.
func YearlyCounts(rows []domain.Incident) []YearCount {
	counts := make(map[int]int)
	for _, row := range rows {
		if row.Year == nil {
			continue
		}
		counts[*row.Year]++
	}

	result := make([]YearCount, 0, len(counts))
	for year, n := range counts {
		result = append(result, YearCount{Year: year, Count: n})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Year < result[j].Year })
	return result
}

// TopDistricts counts rows per district and returns at most n districts in
// descending count order. Ties break by first-encounter order in the input,
// so the ranking is deterministic for a fixed table. Rows with an unknown
// district are excluded.
func TopDistricts(rows []domain.Incident, n int) []DistrictCount {
	if n <= 0 {
		return []DistrictCount{}
	}

	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	for i, row := range rows {
		if row.District == "" {
			continue
		}
		if _, ok := counts[row.District]; !ok {
			firstSeen[row.District] = i
		}
		counts[row.District]++
	}

	result := make([]DistrictCount, 0, len(counts))
	for district, c := range counts {
		result = append(result, DistrictCount{District: district, Count: c})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return firstSeen[result[i].District] < firstSeen[result[j].District]
	})

	if len(result) > n {
		result = result[:n]
	}
	return result
}

// GeoSample returns the mappable rows (both coordinates present), uniformly
// sampled down to max points when more remain. The caller supplies the RNG so
// samples are reproducible under a fixed seed.
func GeoSample(rows []domain.Incident, max int, rng *rand.Rand) []GeoPoint {
	if max <= 0 {
		return []GeoPoint{}
	}

	points := make([]GeoPoint, 0, len(rows))
	for _, row := range rows {
		if !row.HasCoordinates() {
			continue
		}
		points = append(points, GeoPoint{
			Latitude:    *row.Latitude,
			Longitude:   *row.Longitude,
			PrimaryType: row.PrimaryType,
		})
	}

	if len(points) <= max {
		return points
	}

	sampled := make([]GeoPoint, 0, max)
	for _, idx := range rng.Perm(len(points))[:max] {
		sampled = append(sampled, points[idx])
	}
	return sampled
}

// ArrestRateByPeriod groups rows by TimePeriod and returns mean(Arrest)*100
// per period, in canonical day order. Rows with an unknown period are
// excluded; periods with no rows are omitted.
func ArrestRateByPeriod(rows []domain.Incident) []PeriodRate {
	totals := make(map[string]int)
	arrests := make(map[string]int)
	for _, row := range rows {
		if row.TimePeriod == "" {
			continue
		}
		totals[row.TimePeriod]++
		if row.Arrest {
			arrests[row.TimePeriod]++
		}
	}

	result := make([]PeriodRate, 0, len(totals))
	for _, period := range domain.Periods {
		total := totals[period]
		if total == 0 {
			continue
		}
		result = append(result, PeriodRate{
			Period:     period,
			ArrestRate: float64(arrests[period]) / float64(total) * 100,
		})
	}
	return result
}

// TypePeriodCrosstab builds a contingency table over the topTypes most
// frequent primary types: one row per type in descending frequency order
// (first-encounter tie-break), one column per time period in canonical day
// order. Cell (i, j) counts rows with that (type, period) pair. Returns an
// empty matrix when no typed rows exist.
func TypePeriodCrosstab(rows []domain.Incident, topTypes int) CountMatrix {
	types := rankTypes(rows, topTypes)
	if len(types) == 0 {
		return CountMatrix{RowLabels: []string{}, ColLabels: []string{}, Cells: [][]int{}}
	}

	typeIdx := make(map[string]int, len(types))
	for i, t := range types {
		typeIdx[t] = i
	}
	periodIdx := make(map[string]int, len(domain.Periods))
	for j, p := range domain.Periods {
		periodIdx[p] = j
	}

	cells := make([][]int, len(types))
	for i := range cells {
		cells[i] = make([]int, len(domain.Periods))
	}
	for _, row := range rows {
		i, ok := typeIdx[row.PrimaryType]
		if !ok || row.TimePeriod == "" {
			continue
		}
		cells[i][periodIdx[row.TimePeriod]]++
	}

	return CountMatrix{
		RowLabels: types,
		ColLabels: append([]string(nil), domain.Periods...),
		Cells:     cells,
	}
}

// rankTypes returns the topTypes most frequent primary types by raw count,
// descending, ties broken by first-encounter order.
func rankTypes(rows []domain.Incident, topTypes int) []string {
	if topTypes <= 0 {
		return nil
	}

	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	for i, row := range rows {
		if row.PrimaryType == "" {
			continue
		}
		if _, ok := counts[row.PrimaryType]; !ok {
			firstSeen[row.PrimaryType] = i
		}
		counts[row.PrimaryType]++
	}

	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		if counts[types[i]] != counts[types[j]] {
			return counts[types[i]] > counts[types[j]]
		}
		return firstSeen[types[i]] < firstSeen[types[j]]
	})

	if len(types) > topTypes {
		types = types[:topTypes]
	}
	return types
}

// CooccurrenceMatrix pivots the rows into per-type count series indexed by
// (community area, hour) buckets, with missing combinations filled as zero,
// then computes the pairwise Pearson correlation between every pair of type
// series. Type labels are sorted for a deterministic layout. A series with
// zero variance across the pivot index yields nil (undefined) against every
// type, including itself.
func CooccurrenceMatrix(rows []domain.Incident) CorrelationMatrix {
	type bucket struct {
		area string
		hour int
	}

	bucketIdx := make(map[bucket]int)
	typeSet := make(map[string]struct{})
	type cellKey struct {
		b bucket
		t string
	}
	cellCounts := make(map[cellKey]int)

	for _, row := range rows {
		if row.CommunityArea == "" || row.Hour == nil || row.PrimaryType == "" {
			continue
		}
		b := bucket{area: row.CommunityArea, hour: *row.Hour}
		if _, ok := bucketIdx[b]; !ok {
			bucketIdx[b] = len(bucketIdx)
		}
		typeSet[row.PrimaryType] = struct{}{}
		cellCounts[cellKey{b: b, t: row.PrimaryType}]++
	}

	if len(typeSet) == 0 {
		return CorrelationMatrix{Labels: []string{}, Cells: [][]*float64{}}
	}

	labels := make([]string, 0, len(typeSet))
	for t := range typeSet {
		labels = append(labels, t)
	}
	sort.Strings(labels)

	// One count vector per type across the shared pivot index.
	series := make([][]float64, len(labels))
	for i, t := range labels {
		vec := make([]float64, len(bucketIdx))
		for b, idx := range bucketIdx {
			vec[idx] = float64(cellCounts[cellKey{b: b, t: t}])
		}
		series[i] = vec
	}

	cells := make([][]*float64, len(labels))
	for i := range labels {
		cells[i] = make([]*float64, len(labels))
		for j := range labels {
			r := stat.Correlation(series[i], series[j], nil)
			if math.IsNaN(r) {
				continue
			}
			v := r
			cells[i][j] = &v
		}
	}

	return CorrelationMatrix{Labels: labels, Cells: cells}
}
