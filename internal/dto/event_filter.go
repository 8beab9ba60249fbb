package dto

import "time"

// EventFilter describes user-provided filters to narrow an event listing.
type EventFilter struct {
	Label         string
	Since         time.Time
	Until         time.Time
	MinConfidence float64
	RunID         string
	Limit         int
}
