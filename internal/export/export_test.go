package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/chikamichka/weatherlogd/internal/store"
)

func sampleLogs() []store.WeatherLog {
	return []store.WeatherLog{
		{
			ID:              "log-1",
			Location:        "Paris",
			Latitude:        48.8566,
			Longitude:       2.3522,
			StartDate:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			EndDate:         time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
			CreatedAt:       time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
			ForecastPayload: []byte(`{"list":[]}`),
		},
		{
			ID:              "log-2",
			Location:        "Osaka, JP",
			Latitude:        34.6937,
			Longitude:       135.5023,
			StartDate:       time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
			EndDate:         time.Date(2024, 2, 12, 0, 0, 0, 0, time.UTC),
			CreatedAt:       time.Date(2024, 2, 10, 9, 30, 0, 0, time.UTC),
			ForecastPayload: []byte(`{"list":[{"dt":1707523200}]}`),
		},
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleLogs()); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var decoded []store.WeatherLog
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("len = %d, want 2", len(decoded))
	}
	if decoded[0].ID != "log-1" || decoded[1].Location != "Osaka, JP" {
		t.Errorf("decoded = %+v", decoded)
	}
	if string(decoded[1].ForecastPayload) != `{"list":[{"dt":1707523200}]}` {
		t.Errorf("payload = %s", decoded[1].ForecastPayload)
	}
}

func TestWriteJSON_NilLogsIsEmptyArray(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, nil); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "[]" {
		t.Errorf("output = %q, want []", got)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleLogs()); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}

	wantHeader := []string{
		"id", "location", "latitude", "longitude",
		"start_date", "end_date", "created_at", "forecast_payload",
	}
	for i, col := range wantHeader {
		if rows[0][i] != col {
			t.Errorf("header[%d] = %q, want %q", i, rows[0][i], col)
		}
	}

	// Locations with commas must survive the round trip.
	if rows[2][1] != "Osaka, JP" {
		t.Errorf("location = %q, want Osaka, JP", rows[2][1])
	}
	if rows[1][4] != "2024-01-01T00:00:00Z" {
		t.Errorf("start_date = %q", rows[1][4])
	}
	if rows[1][7] != `{"list":[]}` {
		t.Errorf("payload column = %q", rows[1][7])
	}
}

func TestWriteCSV_EmptyStillHasHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "id,location,") {
		t.Errorf("output = %q, want header row", buf.String())
	}
}

func TestWrite_UnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, "xml", nil); err == nil {
		t.Error("expected error for unsupported format")
	}
}
