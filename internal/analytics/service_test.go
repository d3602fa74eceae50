package analytics

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/incident-analytics/internal/dataset"
	"github.com/couchcryptid/incident-analytics/internal/domain"
	"github.com/couchcryptid/incident-analytics/internal/observability"
)

// stubLoader serves a fixed row set and counts loads.
type stubLoader struct {
	rows  []domain.Incident
	err   error
	calls atomic.Int32
}

func (l *stubLoader) Load(_ context.Context, source string) (*dataset.Table, error) {
	l.calls.Add(1)
	if l.err != nil {
		return nil, l.err
	}
	return dataset.NewTable(source, l.rows), nil
}

func serviceRow(t *testing.T, date, district, primaryType string, arrest bool) domain.Incident {
	t.Helper()
	ts, err := time.Parse("2006-01-02T15:04", date)
	require.NoError(t, err)
	inc := domain.DeriveFeatures(domain.Incident{Date: &ts})
	inc.District = district
	inc.PrimaryType = primaryType
	inc.Arrest = arrest
	return inc
}

func newTestService(t *testing.T, loader dataset.Loader) *Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	metrics := observability.NewMetricsForTesting()
	cache := dataset.NewCache(loader, 4, logger, metrics)
	return NewService(cache, ServiceConfig{
		Source:       "test.csv",
		GeoSampleMax: 100,
		TopDistricts: 15,
		TopTypes:     10,
		Seed:         7,
	}, logger, metrics)
}

func TestService_QueriesAreMemoized(t *testing.T) {
	loader := &stubLoader{rows: []domain.Incident{
		serviceRow(t, "2020-01-01T02:00", "001", "THEFT", true),
		serviceRow(t, "2021-06-15T14:00", "002", "BATTERY", false),
	}}
	svc := newTestService(t, loader)
	ctx := context.Background()
	yr := domain.YearRange{Min: 2015, Max: 2025}

	_, err := svc.YearlyCounts(ctx, yr)
	require.NoError(t, err)
	_, err = svc.TopDistricts(ctx, yr, 0)
	require.NoError(t, err)
	_, err = svc.ArrestRateByPeriod(ctx, yr)
	require.NoError(t, err)
	_, err = svc.TypePeriodCrosstab(ctx, yr, 0)
	require.NoError(t, err)
	_, err = svc.CooccurrenceMatrix(ctx, yr)
	require.NoError(t, err)
	_, err = svc.GeoSample(ctx, yr, 0)
	require.NoError(t, err)

	assert.Equal(t, int32(1), loader.calls.Load(), "repeated queries must not re-fetch")
}

func TestService_YearRangeFiltersAllQueries(t *testing.T) {
	loader := &stubLoader{rows: []domain.Incident{
		serviceRow(t, "2018-01-01T02:00", "001", "THEFT", true),
		serviceRow(t, "2020-01-01T02:00", "002", "BATTERY", false),
		serviceRow(t, "2022-01-01T02:00", "003", "ASSAULT", false),
	}}
	svc := newTestService(t, loader)
	ctx := context.Background()

	counts, err := svc.YearlyCounts(ctx, domain.YearRange{Min: 2019, Max: 2021})
	require.NoError(t, err)
	assert.Equal(t, []YearCount{{Year: 2020, Count: 1}}, counts)

	districts, err := svc.TopDistricts(ctx, domain.YearRange{Min: 2019, Max: 2021}, 0)
	require.NoError(t, err)
	assert.Equal(t, []DistrictCount{{District: "002", Count: 1}}, districts)
}

func TestService_InvalidRange(t *testing.T) {
	loader := &stubLoader{}
	svc := newTestService(t, loader)

	_, err := svc.YearlyCounts(context.Background(), domain.YearRange{Min: 2025, Max: 2015})

	var invalid *domain.InvalidRangeError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, int32(0), loader.calls.Load(), "invalid range must not trigger a load")
}

func TestService_Readiness(t *testing.T) {
	loader := &stubLoader{rows: []domain.Incident{
		serviceRow(t, "2020-01-01T02:00", "001", "THEFT", true),
	}}
	svc := newTestService(t, loader)
	ctx := context.Background()

	require.Error(t, svc.CheckReadiness(ctx), "not ready before first load")

	require.NoError(t, svc.Warm(ctx))
	assert.NoError(t, svc.CheckReadiness(ctx))
}

func TestService_LoadFailurePropagates(t *testing.T) {
	loader := &stubLoader{err: &dataset.DataUnavailableError{Source: "test.csv", Err: assert.AnError}}
	svc := newTestService(t, loader)
	ctx := context.Background()

	_, err := svc.YearlyCounts(ctx, domain.YearRange{Min: 2015, Max: 2025})

	require.Error(t, err)
	assert.True(t, dataset.IsDataUnavailable(err))
	assert.Error(t, svc.CheckReadiness(ctx), "failed load must not mark the service ready")
}

func TestService_RefreshReloads(t *testing.T) {
	loader := &stubLoader{rows: []domain.Incident{
		serviceRow(t, "2020-01-01T02:00", "001", "THEFT", true),
	}}
	svc := newTestService(t, loader)
	ctx := context.Background()

	require.NoError(t, svc.Warm(ctx))
	require.NoError(t, svc.Refresh(ctx))

	assert.Equal(t, int32(2), loader.calls.Load())
}

func TestService_DefaultKnobs(t *testing.T) {
	rows := make([]domain.Incident, 0, 30)
	for i := 0; i < 30; i++ {
		lat, lon := 41.0+float64(i), -87.0-float64(i)
		inc := serviceRow(t, "2020-01-01T02:00", "001", "THEFT", false)
		inc.Latitude = &lat
		inc.Longitude = &lon
		rows = append(rows, inc)
	}
	loader := &stubLoader{rows: rows}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	metrics := observability.NewMetricsForTesting()
	cache := dataset.NewCache(loader, 4, logger, metrics)
	svc := NewService(cache, ServiceConfig{
		Source:       "test.csv",
		GeoSampleMax: 5,
		TopDistricts: 15,
		TopTypes:     10,
		Seed:         7,
	}, logger, metrics)

	points, err := svc.GeoSample(context.Background(), domain.YearRange{Min: 2015, Max: 2025}, 0)
	require.NoError(t, err)
	assert.Len(t, points, 5, "maxPoints <= 0 falls back to the configured cap")
}
