package quandify

import "time"

// Granularity selects the aggregation bucket the consumption API uses.
type Granularity string

const (
	GranularityDay  Granularity = "day"
	GranularityHour Granularity = "hour"
)

// Reading is an aggregated water consumption total for a time window.
type Reading struct {
	VolumeLiters float64
	From         time.Time
	To           time.Time
	Granularity  Granularity
}

// dayWindow returns the window from local midnight up to now.
func dayWindow(now time.Time) (time.Time, time.Time) {
	year, month, day := now.Date()
	midnight := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
	return midnight, now
}

// hourWindow returns the sliding window covering the last hour.
func hourWindow(now time.Time) (time.Time, time.Time) {
	return now.Add(-time.Hour), now
}
