// Package export renders stored weather logs as JSON or CSV documents.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/chikamichka/weatherlogd/internal/store"
)

// Formats accepted by the export surfaces.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Write renders logs in the given format.
func Write(w io.Writer, format string, logs []store.WeatherLog) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, logs)
	case FormatCSV:
		return WriteCSV(w, logs)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// WriteJSON renders logs as an indented JSON array.
func WriteJSON(w io.Writer, logs []store.WeatherLog) error {
	if logs == nil {
		logs = []store.WeatherLog{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(logs); err != nil {
		return fmt.Errorf("encoding logs: %w", err)
	}
	return nil
}

// WriteCSV renders logs as flat rows. The forecast payload is kept as a
// single JSON string column rather than flattened.
func WriteCSV(w io.Writer, logs []store.WeatherLog) error {
	cw := csv.NewWriter(w)

	header := []string{
		"id", "location", "latitude", "longitude",
		"start_date", "end_date", "created_at", "forecast_payload",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, log := range logs {
		row := []string{
			log.ID,
			log.Location,
			strconv.FormatFloat(log.Latitude, 'f', -1, 64),
			strconv.FormatFloat(log.Longitude, 'f', -1, 64),
			log.StartDate.UTC().Format(time.RFC3339),
			log.EndDate.UTC().Format(time.RFC3339),
			log.CreatedAt.UTC().Format(time.RFC3339),
			string(log.ForecastPayload),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}
