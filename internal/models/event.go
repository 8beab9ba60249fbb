package models

import "time"

// Event represents one durable detection event. Timestamp, Label, Confidence
// and ImagePath mirror the columns of the detections log; ID and RunID exist
// only in the queryable index.
type Event struct {
	ID         int64     `json:"id"`
	RunID      string    `json:"run_id"`
	Timestamp  time.Time `json:"timestamp"`
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	ImagePath  string    `json:"image_path"`
}
