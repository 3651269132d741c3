package weather

import (
	"reflect"
	"testing"
	"time"
)

func makeSample(ts int64, temp float64) ForecastSample {
	return ForecastSample{
		Timestamp:     ts,
		TemperatureC:  temp,
		FeelsLikeC:    temp - 1,
		HumidityPct:   60,
		WindSpeedMps:  3.5,
		ConditionCode: 800,
		Condition:     "Clear",
		Description:   "clear sky",
		Icon:          "01d",
	}
}

// threeHourSamples builds n samples at 3-hour spacing starting at start.
func threeHourSamples(start time.Time, n int) []ForecastSample {
	samples := make([]ForecastSample, 0, n)
	for i := 0; i < n; i++ {
		ts := start.Add(time.Duration(i) * 3 * time.Hour)
		samples = append(samples, makeSample(ts.Unix(), 10+float64(i)))
	}
	return samples
}

func TestNormalizeDaily_FiveDayScenario(t *testing.T) {
	// 40 samples at 3-hour spacing spanning 5 UTC days from 2024-01-01T00:00Z.
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	samples := threeHourSamples(start, 40)

	days := NormalizeDaily(samples, 5)

	if len(days) != 5 {
		t.Fatalf("len = %d, want 5", len(days))
	}
	for i, want := range []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05"} {
		if days[i].Date != want {
			t.Errorf("days[%d].Date = %q, want %q", i, days[i].Date, want)
		}
		// Representative is the day's first (earliest) sample: 8 samples per day.
		if got, want := days[i].Sample.Timestamp, samples[i*8].Timestamp; got != want {
			t.Errorf("days[%d].Sample.Timestamp = %d, want %d", i, got, want)
		}
	}
}

func TestNormalizeDaily_DatesAscendingAndUnique(t *testing.T) {
	start := time.Date(2023, 6, 10, 9, 0, 0, 0, time.UTC)
	days := NormalizeDaily(threeHourSamples(start, 25), 10)

	seen := make(map[string]bool)
	prev := ""
	for _, d := range days {
		if seen[d.Date] {
			t.Errorf("duplicate date %q", d.Date)
		}
		seen[d.Date] = true
		if prev != "" && d.Date <= prev {
			t.Errorf("dates not strictly ascending: %q after %q", d.Date, prev)
		}
		prev = d.Date
	}
}

func TestNormalizeDaily_TruncatesToMaxDays(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	samples := threeHourSamples(start, 56) // 7 days

	if got := NormalizeDaily(samples, 3); len(got) != 3 {
		t.Errorf("len = %d, want 3", len(got))
	}
	if got := NormalizeDaily(samples, 7); len(got) != 7 {
		t.Errorf("len = %d, want 7", len(got))
	}
}

func TestNormalizeDaily_FewerDaysThanMax(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	samples := threeHourSamples(start, 8) // one day

	days := NormalizeDaily(samples, 5)
	if len(days) != 1 {
		t.Fatalf("len = %d, want 1 (never padded)", len(days))
	}
}

func TestNormalizeDaily_FirstSampleWins(t *testing.T) {
	day := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)
	samples := []ForecastSample{
		makeSample(day.Add(6*time.Hour).Unix(), 11),
		makeSample(day.Add(12*time.Hour).Unix(), 17),
		makeSample(day.Add(18*time.Hour).Unix(), 14),
	}

	days := NormalizeDaily(samples, 5)
	if len(days) != 1 {
		t.Fatalf("len = %d, want 1", len(days))
	}
	if days[0].Sample.TemperatureC != 11 {
		t.Errorf("representative temp = %v, want 11 (first sample of the day)", days[0].Sample.TemperatureC)
	}
}

func TestNormalizeDaily_MidnightBoundary(t *testing.T) {
	// 23:00Z and 01:00Z the next day land on different calendar dates.
	samples := []ForecastSample{
		makeSample(time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC).Unix(), 5),
		makeSample(time.Date(2024, 1, 2, 1, 0, 0, 0, time.UTC).Unix(), 6),
	}

	days := NormalizeDaily(samples, 5)
	if len(days) != 2 {
		t.Fatalf("len = %d, want 2", len(days))
	}
	if days[0].Date != "2024-01-01" || days[1].Date != "2024-01-02" {
		t.Errorf("dates = %q, %q", days[0].Date, days[1].Date)
	}
}

func TestNormalizeDaily_EmptyInput(t *testing.T) {
	for _, maxDays := range []int{0, 1, 5} {
		if got := NormalizeDaily(nil, maxDays); len(got) != 0 {
			t.Errorf("NormalizeDaily(nil, %d) = %v, want empty", maxDays, got)
		}
	}
}

func TestNormalizeDaily_ZeroMaxDays(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if got := NormalizeDaily(threeHourSamples(start, 8), 0); len(got) != 0 {
		t.Errorf("maxDays=0 produced %d entries, want 0", len(got))
	}
}

func TestNormalizeDaily_Idempotent(t *testing.T) {
	start := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	samples := threeHourSamples(start, 40)

	first := NormalizeDaily(samples, 5)
	second := NormalizeDaily(samples, 5)
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated normalization of the same input differs")
	}
}
