package analytics

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/incident-analytics/internal/dataset"
	"github.com/couchcryptid/incident-analytics/internal/domain"
	"github.com/couchcryptid/incident-analytics/internal/observability"
)

// ServiceConfig carries the query-side knobs for a Service.
type ServiceConfig struct {
	// Source is the identity of the CSV resource queries run against.
	Source string
	// GeoSampleMax caps the geo sample when the caller does not ask for a
	// specific size.
	GeoSampleMax int
	// TopDistricts is the default district ranking length.
	TopDistricts int
	// TopTypes is the default number of crosstab rows.
	TopTypes int
	// Seed fixes the sampling RNG; 0 seeds from the global source.
	Seed uint64
}

// Service answers dashboard queries against the cached incident table. Every
// query filters the immutable table by year range and runs one side-effect
// free aggregator, so queries are safe to execute concurrently and never
// re-fetch the source.
type Service struct {
	cache   *dataset.Cache
	cfg     ServiceConfig
	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool

	// rng guards sampling; math/rand/v2 sources are not safe for concurrent use.
	mu  sync.Mutex
	rng *rand.Rand
}

// NewService creates a query service over the given table cache.
func NewService(cache *dataset.Cache, cfg ServiceConfig, logger *slog.Logger, metrics *observability.Metrics) *Service {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Service{
		cache:   cache,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// CheckReadiness returns nil once the dataset has been loaded at least once,
// or an error describing why the service is not yet ready.
func (s *Service) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("dataset has not been loaded yet")
	}
	return nil
}

// Warm loads the dataset into the cache ahead of the first query.
func (s *Service) Warm(ctx context.Context) error {
	_, err := s.table(ctx)
	return err
}

// Refresh discards the cached table and reloads it from the source.
func (s *Service) Refresh(ctx context.Context) error {
	s.cache.Invalidate(s.cfg.Source)
	_, err := s.table(ctx)
	return err
}

// YearlyCounts returns incident counts per year, ascending.
func (s *Service) YearlyCounts(ctx context.Context, r domain.YearRange) ([]YearCount, error) {
	defer s.observe("yearly_counts")()
	rows, err := s.filtered(ctx, r)
	if err != nil {
		return nil, err
	}
	return YearlyCounts(rows), nil
}

// TopDistricts returns the n busiest districts; n <= 0 uses the configured
// default.
func (s *Service) TopDistricts(ctx context.Context, r domain.YearRange, n int) ([]DistrictCount, error) {
	defer s.observe("top_districts")()
	if n <= 0 {
		n = s.cfg.TopDistricts
	}
	rows, err := s.filtered(ctx, r)
	if err != nil {
		return nil, err
	}
	return TopDistricts(rows, n), nil
}

// GeoSample returns up to maxPoints mappable incidents; maxPoints <= 0 uses
// the configured default.
func (s *Service) GeoSample(ctx context.Context, r domain.YearRange, maxPoints int) ([]GeoPoint, error) {
	defer s.observe("geo_sample")()
	if maxPoints <= 0 {
		maxPoints = s.cfg.GeoSampleMax
	}
	rows, err := s.filtered(ctx, r)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return GeoSample(rows, maxPoints, s.rng), nil
}

// ArrestRateByPeriod returns arrest percentages per time period.
func (s *Service) ArrestRateByPeriod(ctx context.Context, r domain.YearRange) ([]PeriodRate, error) {
	defer s.observe("arrest_rate_by_period")()
	rows, err := s.filtered(ctx, r)
	if err != nil {
		return nil, err
	}
	return ArrestRateByPeriod(rows), nil
}

// TypePeriodCrosstab returns the type/period contingency table over the
// topTypes most frequent types; topTypes <= 0 uses the configured default.
func (s *Service) TypePeriodCrosstab(ctx context.Context, r domain.YearRange, topTypes int) (CountMatrix, error) {
	defer s.observe("type_period_crosstab")()
	if topTypes <= 0 {
		topTypes = s.cfg.TopTypes
	}
	rows, err := s.filtered(ctx, r)
	if err != nil {
		return CountMatrix{}, err
	}
	return TypePeriodCrosstab(rows, topTypes), nil
}

// CooccurrenceMatrix returns the pairwise Pearson correlation matrix between
// primary-type count series over (community area, hour) buckets.
func (s *Service) CooccurrenceMatrix(ctx context.Context, r domain.YearRange) (CorrelationMatrix, error) {
	defer s.observe("cooccurrence_matrix")()
	rows, err := s.filtered(ctx, r)
	if err != nil {
		return CorrelationMatrix{}, err
	}
	return CooccurrenceMatrix(rows), nil
}

// filtered validates the range and returns the year-filtered view of the
// cached table.
func (s *Service) filtered(ctx context.Context, r domain.YearRange) ([]domain.Incident, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	table, err := s.table(ctx)
	if err != nil {
		return nil, err
	}
	return table.FilterByYear(r).Rows(), nil
}

func (s *Service) table(ctx context.Context) (*dataset.Table, error) {
	table, err := s.cache.GetOrLoad(ctx, s.cfg.Source)
	if err != nil {
		return nil, err
	}
	if s.ready.CompareAndSwap(false, true) {
		s.metrics.DatasetReady.Set(1)
	}
	return table, nil
}

func (s *Service) observe(query string) func() {
	start := time.Now()
	return func() {
		s.metrics.QueryDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
	}
}
