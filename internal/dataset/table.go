package dataset

import (
	"time"

	"github.com/couchcryptid/incident-analytics/internal/domain"
)

// Table is an immutable set of derived incident records from one load of one
// source. Rows are never mutated after construction; filters return new
// tables over copied row values, so views can never diverge from their
// source.
type Table struct {
	rows     []domain.Incident
	source   string
	loadedAt time.Time
}

// NewTable builds a table from derived rows, stamped with the source identity
// and the current clock time.
func NewTable(source string, rows []domain.Incident) *Table {
	return &Table{
		rows:     rows,
		source:   source,
		loadedAt: clock.Now(),
	}
}

// Rows returns the backing row slice. Callers must treat it as read-only.
func (t *Table) Rows() []domain.Incident { return t.rows }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Source returns the identity of the resource this table was loaded from.
func (t *Table) Source() string { return t.source }

// LoadedAt returns when the table was loaded.
func (t *Table) LoadedAt() time.Time { return t.loadedAt }

// FilterByYear returns the subset of rows whose derived Year lies inside the
// inclusive range. Rows with an unknown Year cannot satisfy a numeric range
// test and are excluded. Input row order is preserved. The caller is
// expected to have validated the range.
func (t *Table) FilterByYear(r domain.YearRange) *Table {
	filtered := make([]domain.Incident, 0, len(t.rows))
	for _, row := range t.rows {
		if row.Year != nil && r.Contains(*row.Year) {
			filtered = append(filtered, row)
		}
	}
	return &Table{rows: filtered, source: t.source, loadedAt: t.loadedAt}
}
