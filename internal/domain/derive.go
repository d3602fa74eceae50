package domain

import (
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order when parsing the Date column. The city data
// portal exports "01/02/2006 03:04:05 PM"; the remaining layouts cover ISO
// exports seen in re-published copies of the dataset.
var dateLayouts = []string{
	"01/02/2006 03:04:05 PM",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	time.RFC3339,
	"2006-01-02",
}

// ParseIncident converts a raw CSV record into an Incident and derives its
// temporal features. It never fails: each field that cannot be parsed becomes
// a nil/empty marker on the returned record.
func ParseIncident(raw RawIncidentRecord) Incident {
	inc := Incident{
		Date:          ParseDate(raw.Date),
		PrimaryType:   strings.TrimSpace(raw.PrimaryType),
		District:      strings.TrimSpace(raw.District),
		CommunityArea: strings.TrimSpace(raw.CommunityArea),
		Latitude:      parseFloatOrNil(raw.Latitude),
		Longitude:     parseFloatOrNil(raw.Longitude),
		Arrest:        parseBool(raw.Arrest),
	}
	return DeriveFeatures(inc)
}

// DeriveFeatures computes Year, Hour, and TimePeriod from the record's Date.
// Pure and row-independent: a nil Date yields nil derived fields and the
// record is otherwise untouched.
func DeriveFeatures(inc Incident) Incident {
	if inc.Date == nil {
		inc.Year = nil
		inc.Hour = nil
		inc.TimePeriod = ""
		return inc
	}

	year := inc.Date.Year()
	hour := inc.Date.Hour()
	inc.Year = &year
	inc.Hour = &hour
	inc.TimePeriod = TimePeriodForHour(hour)
	return inc
}

// ParseDate parses a Date cell using the tolerant layout list.
// Returns nil for empty or unparsable values.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// TimePeriodForHour maps an hour of day to its bucket label:
//
//	[0,6)   → Early Morning
//	[6,12)  → Morning
//	[12,18) → Afternoon
//	[18,24) → Night
//
// Hours outside [0,24) return "" (unknown).
func TimePeriodForHour(hour int) string {
	switch {
	case hour >= 0 && hour < 6:
		return PeriodEarlyMorning
	case hour >= 6 && hour < 12:
		return PeriodMorning
	case hour >= 12 && hour < 18:
		return PeriodAfternoon
	case hour >= 18 && hour < 24:
		return PeriodNight
	default:
		return ""
	}
}

// parseFloatOrNil parses a coordinate cell, returning nil for empty or
// malformed values.
func parseFloatOrNil(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseBool parses the Arrest flag. The portal exports "true"/"false";
// "Y"/"N" and "1"/"0" appear in older extracts. Anything unrecognized is false.
func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "y", "yes", "1":
		return true
	default:
		return false
	}
}
