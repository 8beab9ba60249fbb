package recorder

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"wingwatch/internal/models"
)

// ReadEvents parses the detections log back into events, in file order.
// A missing log yields an empty slice. Image paths and run IDs recorded
// by older versions without those columns come back empty.
func ReadEvents(csvPath string) ([]models.Event, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var events []models.Event
	first := true
	line := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if first {
			first = false
			if len(record) > 0 && record[0] == csvHeader[0] {
				continue
			}
		}
		if len(record) < 3 {
			return nil, fmt.Errorf("detections log line %d: %d fields", line, len(record))
		}

		ts, err := time.Parse(time.RFC3339Nano, record[0])
		if err != nil {
			return nil, fmt.Errorf("detections log line %d: %w", line, err)
		}
		confidence, err := strconv.ParseFloat(record[2], 64)
		if err != nil {
			return nil, fmt.Errorf("detections log line %d: %w", line, err)
		}

		event := models.Event{
			Timestamp:  ts,
			Label:      record[1],
			Confidence: confidence,
		}
		if len(record) > 3 {
			event.ImagePath = record[3]
		}
		events = append(events, event)
	}

	return events, nil
}
