package domain

import "time"

// TimePeriod labels. The four buckets partition the 24-hour day:
// [0,6) Early Morning, [6,12) Morning, [12,18) Afternoon, [18,24) Night.
const (
	PeriodEarlyMorning = "Early Morning"
	PeriodMorning      = "Morning"
	PeriodAfternoon    = "Afternoon"
	PeriodNight        = "Night"
)

// Periods lists the four time-period buckets in canonical day order.
// Aggregation output columns follow this order.
var Periods = []string{PeriodEarlyMorning, PeriodMorning, PeriodAfternoon, PeriodNight}

// RawIncidentRecord is one CSV row before parsing. All fields are the raw
// cell strings; empty cells stay empty.
type RawIncidentRecord struct {
	Date          string
	PrimaryType   string
	District      string
	CommunityArea string
	Latitude      string
	Longitude     string
	Arrest        string
}

// Incident is the parsed, feature-derived form of one record. Nil pointers
// and empty strings are explicit "unknown" markers: a record with an
// unparsable date keeps its other fields and is simply excluded from any
// aggregation keyed on the missing value.
type Incident struct {
	Date          *time.Time `json:"date,omitempty"`
	PrimaryType   string     `json:"primary_type,omitempty"`
	District      string     `json:"district,omitempty"`
	CommunityArea string     `json:"community_area,omitempty"`
	Latitude      *float64   `json:"latitude,omitempty"`
	Longitude     *float64   `json:"longitude,omitempty"`
	Arrest        bool       `json:"arrest"`

	// Derived once from Date, immutable thereafter.
	Year       *int   `json:"year,omitempty"`
	Hour       *int   `json:"hour,omitempty"`
	TimePeriod string `json:"time_period,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are present.
func (i Incident) HasCoordinates() bool {
	return i.Latitude != nil && i.Longitude != nil
}

// YearRange is an inclusive filter over the derived Year field.
type YearRange struct {
	Min int `json:"min_year"`
	Max int `json:"max_year"`
}

// Validate reports whether the range is well-formed (Min <= Max).
func (r YearRange) Validate() error {
	if r.Min > r.Max {
		return &InvalidRangeError{Range: r}
	}
	return nil
}

// Contains reports whether year falls inside the inclusive range.
func (r YearRange) Contains(year int) bool {
	return year >= r.Min && year <= r.Max
}
