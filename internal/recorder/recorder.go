// Package recorder persists accepted detections: an append-only CSV log that
// is the durable record, JPEG evidence artifacts, and an optional queryable
// index.
package recorder

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"wingwatch/internal/config"
	"wingwatch/internal/logger"
	"wingwatch/internal/models"
	"wingwatch/internal/repository"
)

var (
	// ErrArtifact reports a failed evidence save. The event was still logged
	// with an empty image reference; the pipeline may continue.
	ErrArtifact = errors.New("evidence artifact not saved")
	// ErrAppend reports a failed detections-log append. No durable record
	// exists for the event, so the pipeline must stop.
	ErrAppend = errors.New("detections log append failed")
)

var csvHeader = []string{"timestamp", "label", "confidence", "image_path"}

// Recorder appends detection events to the CSV log and saves evidence
// images. It is owned by the single pipeline goroutine; concurrent readers
// only ever see whole rows because each row is one write call.
type Recorder struct {
	log       *logger.Logger
	csvPath   string
	imagesDir string
	runID     string
	file      *os.File
	seq       uint64
	events    repository.EventRepository
}

// NewRecorder opens (or creates) the detections log and ensures the artifact
// directory exists. A nil events repository disables the index.
func NewRecorder(cfg *config.Config, log *logger.Logger, runID string, events repository.EventRepository) (*Recorder, error) {
	if err := os.MkdirAll(cfg.ImageDirectory, 0755); err != nil {
		return nil, fmt.Errorf("create image directory: %w", err)
	}
	if dir := filepath.Dir(cfg.DetectionsLog); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
	}

	file, err := os.OpenFile(cfg.DetectionsLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open detections log: %w", err)
	}

	r := &Recorder{
		log:       log,
		csvPath:   cfg.DetectionsLog,
		imagesDir: cfg.ImageDirectory,
		runID:     runID,
		file:      file,
		events:    events,
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat detections log: %w", err)
	}
	if info.Size() == 0 {
		if err := r.writeRow(csvHeader); err != nil {
			file.Close()
			return nil, fmt.Errorf("write log header: %w", err)
		}
	}

	return r, nil
}

// Record persists one event. When a frame is supplied its JPEG bytes are
// saved as an evidence artifact before the log row referencing it is
// appended, so the log never points at a missing file. A returned error
// matching ErrAppend is fatal; ErrArtifact means the event was logged
// without evidence.
func (r *Recorder) Record(event models.Event, frame *models.Frame) (models.Event, error) {
	event.RunID = r.runID

	var artifactErr error
	if frame != nil && len(frame.JPEG) > 0 {
		path, err := r.saveArtifact(event.Timestamp, frame.JPEG)
		if err != nil {
			artifactErr = fmt.Errorf("%w: %v", ErrArtifact, err)
			event.ImagePath = ""
		} else {
			event.ImagePath = path
		}
	}

	if err := r.writeRow([]string{
		event.Timestamp.Format(time.RFC3339Nano),
		event.Label,
		strconv.FormatFloat(event.Confidence, 'f', -1, 64),
		event.ImagePath,
	}); err != nil {
		return event, fmt.Errorf("%w: %v", ErrAppend, err)
	}

	if r.events != nil {
		id, err := r.events.Insert(&event)
		if err != nil {
			r.log.Warning("Event index insert failed: %v", err)
		} else {
			event.ID = id
		}
	}

	return event, artifactErr
}

// EventCount returns how many artifacts this process has attempted to save.
func (r *Recorder) EventCount() uint64 {
	return r.seq
}

// Close syncs and closes the detections log.
func (r *Recorder) Close() error {
	if r.file == nil {
		return nil
	}
	syncErr := r.file.Sync()
	closeErr := r.file.Close()
	r.file = nil
	if syncErr != nil {
		return fmt.Errorf("sync detections log: %w", syncErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close detections log: %w", closeErr)
	}
	return nil
}

// writeRow formats one CSV row and appends it with a single write call.
func (r *Recorder) writeRow(fields []string) error {
	if r.file == nil {
		return errors.New("detections log closed")
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(fields); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	_, err := r.file.Write(buf.Bytes())
	return err
}

// saveArtifact writes the JPEG under a timestamp-derived name. The sequence
// suffix keeps names unique when events share a timestamp.
func (r *Recorder) saveArtifact(ts time.Time, jpeg []byte) (string, error) {
	r.seq++
	filename := fmt.Sprintf("%s_%06d.jpg", ts.Format("2006-01-02_15-04-05"), r.seq)
	fullpath := filepath.Join(r.imagesDir, filename)

	if err := os.WriteFile(fullpath, jpeg, 0644); err != nil {
		return "", err
	}
	return fullpath, nil
}
