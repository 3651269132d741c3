package weather

import "time"

// ForecastHorizonDays is the maximum number of future days the provider
// delivers forecast data for.
const ForecastHorizonDays = 5

// NormalizeDaily collapses sub-daily forecast samples into at most one
// entry per UTC calendar day, capped at maxDays.
//
// The representative sample for a day is the first sample encountered for
// that date in input order. Days are emitted in order of first appearance,
// which for the provider's chronological feed is ascending date order.
// Fewer raw days than maxDays yields a shorter result, never padding.
func NormalizeDaily(samples []ForecastSample, maxDays int) []DailyForecastEntry {
	if maxDays <= 0 || len(samples) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, maxDays)
	var days []DailyForecastEntry
	for _, s := range samples {
		date := time.Unix(s.Timestamp, 0).UTC().Format(time.DateOnly)
		if _, ok := seen[date]; ok {
			continue
		}
		seen[date] = struct{}{}
		days = append(days, DailyForecastEntry{Date: date, Sample: s})
		if len(days) == maxDays {
			break
		}
	}
	return days
}
