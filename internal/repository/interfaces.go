package repository

import (
	"wingwatch/internal/dto"
	"wingwatch/internal/models"
)

// EventRepository defines the interface for detection-event index operations.
// The index is derived data: the pipeline only inserts, query surfaces only
// read, and nothing ever deletes or rewrites events.
type EventRepository interface {
	// Create operations
	Insert(event *models.Event) (int64, error)

	// Read operations
	GetAll(filter *dto.EventFilter) ([]models.Event, error)
	GetTotalCount() (int, error)
	GetStats() (*dto.EventStats, error)
	GetLabels() ([]string, error)
}
