package sqlite

import (
	"database/sql"
	"fmt"

	"wingwatch/internal/dto"
	"wingwatch/internal/models"
)

// EventRepository implements repository.EventRepository for SQLite.
type EventRepository struct {
	db *DB
}

// NewEventRepository creates a new SQLite event repository.
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// Insert adds a new event record to the database.
func (r *EventRepository) Insert(event *models.Event) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO events (run_id, created_at, label, confidence, image_path)
		VALUES (?, ?, ?, ?, ?)
	`, event.RunID, event.Timestamp, event.Label, event.Confidence, event.ImagePath)
	if err != nil {
		return 0, fmt.Errorf("failed to insert event: %w", err)
	}

	return result.LastInsertId()
}

// InsertBatch inserts multiple events in a single transaction and returns
// the number inserted. Rows that fail to insert are skipped.
func (r *EventRepository) InsertBatch(events []models.Event) (int, error) {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO events (run_id, created_at, label, confidence, image_path)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, event := range events {
		if _, err := stmt.Exec(event.RunID, event.Timestamp, event.Label, event.Confidence, event.ImagePath); err != nil {
			continue
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return inserted, nil
}

// GetAll retrieves events based on filter criteria.
func (r *EventRepository) GetAll(filter *dto.EventFilter) ([]models.Event, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query := `
		SELECT id, run_id, created_at, label, confidence, image_path
		FROM events
		WHERE 1=1
	`
	args := []interface{}{}

	if filter.Label != "" {
		query += " AND label = ?"
		args = append(args, filter.Label)
	}

	if filter.RunID != "" {
		query += " AND run_id = ?"
		args = append(args, filter.RunID)
	}

	if !filter.Since.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, filter.Since)
	}

	if !filter.Until.IsZero() {
		query += " AND created_at <= ?"
		args = append(args, filter.Until)
	}

	if filter.MinConfidence > 0 {
		query += " AND confidence >= ?"
		args = append(args, filter.MinConfidence)
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var event models.Event
		if err := rows.Scan(&event.ID, &event.RunID, &event.Timestamp, &event.Label, &event.Confidence, &event.ImagePath); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}

	return events, nil
}

// GetTotalCount returns the total number of indexed events.
func (r *EventRepository) GetTotalCount() (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM events`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}

	return count, nil
}

// GetStats returns statistics about indexed events.
func (r *EventRepository) GetStats() (*dto.EventStats, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	stats := &dto.EventStats{
		PerLabel: make(map[string]int),
	}

	// Total event count
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM events`).Scan(&stats.TotalEvents); err != nil {
		return nil, err
	}

	// Most recent event
	var last sql.NullTime
	if err := r.db.Conn().QueryRow(`SELECT MAX(created_at) FROM events`).Scan(&last); err != nil {
		return nil, err
	}
	if last.Valid {
		stats.LastEvent = last.Time
	}

	// Events per label
	rows, err := r.db.Conn().Query(`SELECT label, COUNT(*) FROM events GROUP BY label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var label string
		var count int
		if err := rows.Scan(&label, &count); err != nil {
			return nil, err
		}
		stats.PerLabel[label] = count
	}

	return stats, nil
}

// GetLabels returns a list of all unique event labels.
func (r *EventRepository) GetLabels() ([]string, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`SELECT DISTINCT label FROM events ORDER BY label`)
	if err != nil {
		return nil, fmt.Errorf("failed to query labels: %w", err)
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("failed to scan label: %w", err)
		}
		labels = append(labels, label)
	}

	return labels, nil
}
