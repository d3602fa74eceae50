// Package domain models municipal crime-incident records.
//
// # Data Source
//
// Records come from the city open-data portal's reported-incident extract, a
// single CSV covering roughly a decade of reports. Each row describes one
// reported event. The columns this service reads:
//
//	Date            incident timestamp, portal format "01/02/2006 03:04:05 PM"
//	Primary Type    offense category label, e.g. "THEFT", "BATTERY"
//	District        police district identifier
//	Community Area  community-area identifier
//	Latitude        WGS-84 latitude, blank when the location was withheld
//	Longitude       WGS-84 longitude, blank when the location was withheld
//	Arrest          "true"/"false" flag for whether an arrest was made
//
// Extra columns are permitted and ignored.
//
// # Missing values
//
// The extract is messy: dates can be blank or malformed and coordinates are
// withheld for a few percent of rows. A field that fails to parse becomes an
// explicit unknown marker (nil pointer or empty string) on the record; the
// record itself is always retained. Aggregations keyed on a missing field
// skip the affected rows. A single bad row never aborts a load.
//
// # Derived features
//
// Year, Hour, and TimePeriod are computed once per record from Date and are
// immutable afterwards. TimePeriod is a four-way bucketing of the hour of
// day (Early Morning [0,6), Morning [6,12), Afternoon [12,18), Night [18,24))
// that partitions the day with no gaps or overlaps. Records with
// an unknown Date get unknown derived features. See [TimePeriodForHour].
package domain
