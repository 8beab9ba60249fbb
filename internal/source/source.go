// Package source acquires frames for the pipeline, either from a local
// capture device or from a camera pushing JPEG frames over a websocket.
package source

import (
	"context"
	"fmt"

	"wingwatch/internal/config"
	"wingwatch/internal/logger"
	"wingwatch/internal/models"
)

// Source delivers frames one at a time. Acquire blocks until a frame is
// available, the context ends, or the source fails.
type Source interface {
	Acquire(ctx context.Context) (*models.Frame, error)
	Close() error
}

// New builds the source selected by FRAME_SOURCE.
func New(cfg *config.Config, log *logger.Logger) (Source, error) {
	switch cfg.FrameSource {
	case config.SourceDevice:
		return NewCameraSource(cfg.CameraIndex, log)
	case config.SourceStream:
		return NewStreamSource(cfg.StreamURL, log)
	default:
		return nil, fmt.Errorf("unknown frame source %q", cfg.FrameSource)
	}
}
