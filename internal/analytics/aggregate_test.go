package analytics

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/incident-analytics/internal/domain"
)

func incident(t *testing.T, date string, mutate func(*domain.Incident)) domain.Incident {
	t.Helper()
	inc := domain.Incident{}
	if date != "" {
		ts, err := time.Parse("2006-01-02T15:04", date)
		require.NoError(t, err)
		inc.Date = &ts
	}
	inc = domain.DeriveFeatures(inc)
	if mutate != nil {
		mutate(&inc)
	}
	return inc
}

func testRNG() *rand.Rand {
	return rand.New(rand.NewPCG(7, 11))
}

func TestYearlyCounts(t *testing.T) {
	t.Run("scenario: three rows, one unparsable date", func(t *testing.T) {
		rows := []domain.Incident{
			incident(t, "2020-01-01T02:00", func(i *domain.Incident) { i.Arrest = true }),
			incident(t, "2020-06-15T14:00", nil),
			incident(t, "", func(i *domain.Incident) { i.Arrest = true }),
		}

		got := YearlyCounts(rows)

		assert.Equal(t, []YearCount{{Year: 2020, Count: 2}}, got)
	})

	t.Run("sorted ascending and sums to year-bearing rows", func(t *testing.T) {
		rows := []domain.Incident{
			incident(t, "2022-03-01T10:00", nil),
			incident(t, "2018-03-01T10:00", nil),
			incident(t, "2022-07-01T10:00", nil),
			incident(t, "2020-03-01T10:00", nil),
			incident(t, "2022-11-01T10:00", nil),
		}

		got := YearlyCounts(rows)

		require.Equal(t, []YearCount{{2018, 1}, {2020, 1}, {2022, 3}}, got)
		sum := 0
		for _, yc := range got {
			sum += yc.Count
		}
		assert.Equal(t, len(rows), sum)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, YearlyCounts(nil))
	})
}

func TestTopDistricts(t *testing.T) {
	district := func(d string) domain.Incident {
		return incident(t, "2020-01-01T10:00", func(i *domain.Incident) { i.District = d })
	}

	t.Run("descending by count, capped at n", func(t *testing.T) {
		rows := []domain.Incident{
			district("001"), district("002"), district("002"),
			district("003"), district("003"), district("003"),
			district("004"),
		}

		got := TopDistricts(rows, 2)

		assert.Equal(t, []DistrictCount{{"003", 3}, {"002", 2}}, got)
	})

	t.Run("ties break by first encounter", func(t *testing.T) {
		rows := []domain.Incident{
			district("B"), district("A"), district("B"), district("A"), district("C"),
		}

		got := TopDistricts(rows, 3)

		assert.Equal(t, []DistrictCount{{"B", 2}, {"A", 2}, {"C", 1}}, got)
	})

	t.Run("no duplicates, unknown district excluded", func(t *testing.T) {
		rows := []domain.Incident{district("001"), district(""), district("001")}

		got := TopDistricts(rows, 15)

		assert.Equal(t, []DistrictCount{{"001", 2}}, got)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, TopDistricts(nil, 15))
	})
}

func TestGeoSample(t *testing.T) {
	point := func(lat, lon float64) domain.Incident {
		return incident(t, "2020-01-01T10:00", func(i *domain.Incident) {
			i.Latitude = &lat
			i.Longitude = &lon
		})
	}

	t.Run("returns all when under the cap", func(t *testing.T) {
		rows := []domain.Incident{point(41.1, -87.1), point(41.2, -87.2)}

		got := GeoSample(rows, 100, testRNG())

		assert.Len(t, got, 2)
	})

	t.Run("rows missing either coordinate are dropped", func(t *testing.T) {
		lat := 41.5
		rows := []domain.Incident{
			point(41.1, -87.1),
			incident(t, "2020-01-01T10:00", func(i *domain.Incident) { i.Latitude = &lat }),
			incident(t, "2020-01-01T10:00", nil),
		}

		got := GeoSample(rows, 100, testRNG())

		require.Len(t, got, 1)
		assert.InDelta(t, 41.1, got[0].Latitude, 1e-9)
	})

	t.Run("samples down to max without replacement", func(t *testing.T) {
		rows := make([]domain.Incident, 0, 50)
		for i := 0; i < 50; i++ {
			rows = append(rows, point(41.0+float64(i), -87.0-float64(i)))
		}

		got := GeoSample(rows, 10, testRNG())

		require.Len(t, got, 10)
		seen := make(map[float64]bool)
		for _, pt := range got {
			assert.False(t, seen[pt.Latitude], "duplicate point sampled")
			seen[pt.Latitude] = true
		}
	})

	t.Run("deterministic for a fixed seed", func(t *testing.T) {
		rows := make([]domain.Incident, 0, 50)
		for i := 0; i < 50; i++ {
			rows = append(rows, point(41.0+float64(i), -87.0-float64(i)))
		}

		assert.Equal(t, GeoSample(rows, 10, testRNG()), GeoSample(rows, 10, testRNG()))
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, GeoSample(nil, 100, testRNG()))
	})
}

func TestArrestRateByPeriod(t *testing.T) {
	t.Run("scenario: three rows, one unparsable date", func(t *testing.T) {
		rows := []domain.Incident{
			incident(t, "2020-01-01T02:00", func(i *domain.Incident) { i.Arrest = true }),
			incident(t, "2020-06-15T14:00", nil),
			incident(t, "", func(i *domain.Incident) { i.Arrest = true }),
		}

		got := ArrestRateByPeriod(rows)

		assert.Equal(t, []PeriodRate{
			{Period: domain.PeriodEarlyMorning, ArrestRate: 100.0},
			{Period: domain.PeriodAfternoon, ArrestRate: 0.0},
		}, got)
	})

	t.Run("rates stay within [0,100]", func(t *testing.T) {
		rows := []domain.Incident{
			incident(t, "2020-01-01T07:00", func(i *domain.Incident) { i.Arrest = true }),
			incident(t, "2020-01-01T08:00", nil),
			incident(t, "2020-01-01T09:00", func(i *domain.Incident) { i.Arrest = true }),
			incident(t, "2020-01-01T19:00", nil),
		}

		got := ArrestRateByPeriod(rows)

		require.Len(t, got, 2)
		assert.Equal(t, domain.PeriodMorning, got[0].Period)
		assert.InDelta(t, 66.666, got[0].ArrestRate, 0.01)
		assert.Equal(t, domain.PeriodNight, got[1].Period)
		assert.InDelta(t, 0.0, got[1].ArrestRate, 1e-9)
		for _, rate := range got {
			assert.GreaterOrEqual(t, rate.ArrestRate, 0.0)
			assert.LessOrEqual(t, rate.ArrestRate, 100.0)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, ArrestRateByPeriod(nil))
	})
}

func TestTypePeriodCrosstab(t *testing.T) {
	typed := func(primaryType, date string) domain.Incident {
		return incident(t, date, func(i *domain.Incident) { i.PrimaryType = primaryType })
	}

	t.Run("counts by type and period", func(t *testing.T) {
		rows := []domain.Incident{
			typed("THEFT", "2020-01-01T02:00"),
			typed("THEFT", "2020-01-01T03:00"),
			typed("THEFT", "2020-01-01T14:00"),
			typed("BATTERY", "2020-01-01T20:00"),
		}

		got := TypePeriodCrosstab(rows, 10)

		require.Equal(t, []string{"THEFT", "BATTERY"}, got.RowLabels)
		require.Equal(t, domain.Periods, got.ColLabels)
		assert.Equal(t, [][]int{
			{2, 0, 1, 0},
			{0, 0, 0, 1},
		}, got.Cells)
	})

	t.Run("restricted to most frequent types by raw frequency", func(t *testing.T) {
		rows := []domain.Incident{
			typed("ASSAULT", "2020-01-01T10:00"),
			typed("THEFT", "2020-01-01T10:00"),
			typed("THEFT", "2020-01-01T11:00"),
			typed("BATTERY", "2020-01-01T12:00"),
			typed("BATTERY", "2020-01-01T13:00"),
			typed("BATTERY", "2020-01-01T14:00"),
		}

		got := TypePeriodCrosstab(rows, 2)

		assert.Equal(t, []string{"BATTERY", "THEFT"}, got.RowLabels)
	})

	t.Run("frequency ties break by first encounter", func(t *testing.T) {
		rows := []domain.Incident{
			typed("B", "2020-01-01T10:00"),
			typed("A", "2020-01-01T10:00"),
		}

		got := TypePeriodCrosstab(rows, 2)

		assert.Equal(t, []string{"B", "A"}, got.RowLabels)
	})

	t.Run("unknown period rows are not counted", func(t *testing.T) {
		rows := []domain.Incident{
			typed("THEFT", "2020-01-01T02:00"),
			typed("THEFT", ""),
		}

		got := TypePeriodCrosstab(rows, 10)

		require.Equal(t, []string{"THEFT"}, got.RowLabels)
		assert.Equal(t, [][]int{{1, 0, 0, 0}}, got.Cells)
	})

	t.Run("empty input yields empty matrix", func(t *testing.T) {
		got := TypePeriodCrosstab(nil, 10)

		assert.Empty(t, got.RowLabels)
		assert.Empty(t, got.ColLabels)
		assert.Empty(t, got.Cells)
	})
}

func TestCooccurrenceMatrix(t *testing.T) {
	occur := func(primaryType, area string, hour int) domain.Incident {
		date := time.Date(2020, 1, 1, hour, 0, 0, 0, time.UTC)
		inc := domain.DeriveFeatures(domain.Incident{Date: &date})
		inc.PrimaryType = primaryType
		inc.CommunityArea = area
		return inc
	}

	t.Run("perfectly co-occurring types correlate at 1", func(t *testing.T) {
		// THEFT and BATTERY counts move together across three buckets.
		var rows []domain.Incident
		for bucketSize, area := range map[int]string{1: "1", 2: "2", 3: "3"} {
			for k := 0; k < bucketSize; k++ {
				rows = append(rows,
					occur("THEFT", area, 10),
					occur("BATTERY", area, 10),
				)
			}
		}

		got := CooccurrenceMatrix(rows)

		require.Equal(t, []string{"BATTERY", "THEFT"}, got.Labels)
		require.Len(t, got.Cells, 2)
		for i := 0; i < 2; i++ {
			for j := 0; j < 2; j++ {
				require.NotNil(t, got.Cells[i][j])
				assert.InDelta(t, 1.0, *got.Cells[i][j], 1e-9)
			}
		}
	})

	t.Run("opposed types correlate at -1", func(t *testing.T) {
		rows := []domain.Incident{
			occur("THEFT", "1", 10), occur("THEFT", "1", 10),
			occur("BATTERY", "1", 10),
			occur("THEFT", "2", 10),
			occur("BATTERY", "2", 10), occur("BATTERY", "2", 10),
		}

		got := CooccurrenceMatrix(rows)

		require.Equal(t, []string{"BATTERY", "THEFT"}, got.Labels)
		require.NotNil(t, got.Cells[0][1])
		assert.InDelta(t, -1.0, *got.Cells[0][1], 1e-9)
		require.NotNil(t, got.Cells[1][0])
		assert.InDelta(t, -1.0, *got.Cells[1][0], 1e-9)
	})

	t.Run("zero-variance series yields undefined cells, not a crash", func(t *testing.T) {
		// CONSTANT appears exactly once in every pivot bucket, so its count
		// series has zero variance.
		rows := []domain.Incident{
			occur("THEFT", "1", 10), occur("THEFT", "1", 10),
			occur("THEFT", "2", 10),
			occur("CONSTANT", "1", 10),
			occur("CONSTANT", "2", 10),
		}

		got := CooccurrenceMatrix(rows)

		require.Equal(t, []string{"CONSTANT", "THEFT"}, got.Labels)
		assert.Nil(t, got.Cells[0][0])
		assert.Nil(t, got.Cells[0][1])
		assert.Nil(t, got.Cells[1][0])
		require.NotNil(t, got.Cells[1][1])
		assert.InDelta(t, 1.0, *got.Cells[1][1], 1e-9)
	})

	t.Run("single pivot bucket leaves every cell undefined", func(t *testing.T) {
		rows := []domain.Incident{
			occur("THEFT", "1", 10),
			occur("BATTERY", "1", 10),
		}

		got := CooccurrenceMatrix(rows)

		require.Len(t, got.Labels, 2)
		for _, row := range got.Cells {
			for _, cell := range row {
				assert.Nil(t, cell)
			}
		}
	})

	t.Run("rows missing pivot fields are excluded", func(t *testing.T) {
		noHour := incident(t, "", func(i *domain.Incident) {
			i.PrimaryType = "THEFT"
			i.CommunityArea = "1"
		})
		rows := []domain.Incident{
			occur("THEFT", "1", 10),
			occur("THEFT", "", 10), // no community area
			occur("", "1", 10),     // no primary type
			noHour,
		}

		got := CooccurrenceMatrix(rows)

		assert.Equal(t, []string{"THEFT"}, got.Labels)
	})

	t.Run("empty input yields empty matrix", func(t *testing.T) {
		got := CooccurrenceMatrix(nil)

		assert.Empty(t, got.Labels)
		assert.Empty(t, got.Cells)
	})
}
