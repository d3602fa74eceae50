package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/incident-analytics/internal/domain"
	"github.com/couchcryptid/incident-analytics/internal/observability"
)

// Loader reads a raw incident source into a derived table.
type Loader interface {
	Load(ctx context.Context, source string) (*Table, error)
}

// Required source columns, by exact header name.
var requiredColumns = []string{
	"Date",
	"Primary Type",
	"District",
	"Community Area",
	"Latitude",
	"Longitude",
	"Arrest",
}

// CSVLoader loads incident tables from a CSV resource, either an http(s) URL
// or a filesystem path. Transport failures, unreadable CSV, and missing
// required columns all classify as DataUnavailableError; per-row field
// problems become unknown markers on the retained record.
type CSVLoader struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
	maxRetries int
}

// NewCSVLoader creates a loader with the given fetch timeout and bounded
// retry count for transport errors.
func NewCSVLoader(fetchTimeout time.Duration, maxRetries int, logger *slog.Logger, metrics *observability.Metrics) *CSVLoader {
	return &CSVLoader{
		httpClient: &http.Client{
			Timeout: fetchTimeout,
		},
		logger:     logger,
		metrics:    metrics,
		maxRetries: maxRetries,
	}
}

// Load fetches and parses the source into a derived table.
func (l *CSVLoader) Load(ctx context.Context, source string) (*Table, error) {
	start := time.Now()

	body, err := l.open(ctx, source)
	if err != nil {
		l.metrics.DatasetLoads.WithLabelValues("error").Inc()
		return nil, &DataUnavailableError{Source: source, Err: err}
	}
	defer body.Close()

	rows, stats, err := l.parse(body)
	if err != nil {
		l.metrics.DatasetLoads.WithLabelValues("error").Inc()
		return nil, &DataUnavailableError{Source: source, Err: err}
	}

	l.metrics.DatasetLoads.WithLabelValues("success").Inc()
	l.metrics.RowsLoaded.Add(float64(len(rows)))
	l.metrics.DateParseFailures.Add(float64(stats.badDates))
	l.metrics.DatasetLoadDuration.Observe(time.Since(start).Seconds())

	l.logger.Info("dataset loaded",
		"source", source,
		"rows", len(rows),
		"bad_dates", stats.badDates,
		"missing_coordinates", stats.missingCoords,
		"duration", time.Since(start),
	)

	return NewTable(source, rows), nil
}

// open returns the raw byte stream for the source. URLs are fetched with
// bounded exponential-backoff retry; anything else is treated as a file path.
func (l *CSVLoader) open(ctx context.Context, source string) (io.ReadCloser, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return l.fetch(ctx, source)
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("open source file: %w", err)
	}
	return f, nil
}

// fetch GETs the source URL. Transport errors and 5xx responses are retried
// with exponential backoff (200ms doubling, capped at 5s); 4xx responses are
// permanent.
func (l *CSVLoader) fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	var lastErr error
	for attempt := 0; attempt <= l.maxRetries; attempt++ {
		if attempt > 0 {
			l.logger.Warn("retrying dataset fetch", "url", url, "attempt", attempt, "error", lastErr)
			if !sleepWithContext(ctx, backoff) {
				return nil, ctx.Err()
			}
			backoff = nextBackoff(backoff, maxBackoff)
		}

		body, retryable, err := l.fetchOnce(ctx, url)
		if err == nil {
			return body, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("fetch failed after %d attempts: %w", l.maxRetries+1, lastErr)
}

func (l *CSVLoader) fetchOnce(ctx context.Context, url string) (io.ReadCloser, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, fmt.Errorf("fetch source: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		err := fmt.Errorf("source returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
		return nil, resp.StatusCode >= 500, err
	}

	return resp.Body, false, nil
}

// loadStats summarizes per-field tolerance during one parse.
type loadStats struct {
	badDates      int
	missingCoords int
}

// parse reads the CSV stream into derived incident rows. The header row must
// contain every required column; extra columns are ignored. Short rows are
// padded with empty cells so a truncated record still yields a retained
// incident with unknown markers.
func (l *CSVLoader) parse(r io.Reader) ([]domain.Incident, loadStats, error) {
	reader := csv.NewReader(r)
	// Variable-length rows are tolerated; cell() pads short records with
	// empty cells downstream.
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, loadStats{}, errors.New("empty source: no header row")
		}
		return nil, loadStats{}, fmt.Errorf("read header: %w", err)
	}

	colIdx := make(map[string]int, len(header))
	for i, name := range header {
		colIdx[strings.TrimSpace(name)] = i
	}
	var missing []string
	for _, name := range requiredColumns {
		if _, ok := colIdx[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, loadStats{}, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	cell := func(record []string, name string) string {
		idx := colIdx[name]
		if idx >= len(record) {
			return ""
		}
		return record[idx]
	}

	var rows []domain.Incident
	var stats loadStats
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, loadStats{}, fmt.Errorf("read row %d: %w", len(rows)+2, err)
		}

		inc := domain.ParseIncident(domain.RawIncidentRecord{
			Date:          cell(record, "Date"),
			PrimaryType:   cell(record, "Primary Type"),
			District:      cell(record, "District"),
			CommunityArea: cell(record, "Community Area"),
			Latitude:      cell(record, "Latitude"),
			Longitude:     cell(record, "Longitude"),
			Arrest:        cell(record, "Arrest"),
		})
		if inc.Date == nil {
			stats.badDates++
		}
		if !inc.HasCoordinates() {
			stats.missingCoords++
		}
		rows = append(rows, inc)
	}

	return rows, stats, nil
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
