package dto

import "time"

// EventStats contains aggregate statistics about indexed detection events.
type EventStats struct {
	TotalEvents int            `json:"total_events"`
	PerLabel    map[string]int `json:"per_label"`
	LastEvent   time.Time      `json:"last_event"`
}
