// Package inference turns captured frames into candidate detections. Engines
// report every candidate the model produced; confidence and label filtering
// happen downstream.
package inference

import (
	"context"
	"fmt"

	"wingwatch/internal/config"
	"wingwatch/internal/logger"
	"wingwatch/internal/models"
)

// Engine runs object detection on a single frame.
type Engine interface {
	Infer(ctx context.Context, frame *models.Frame) ([]models.Detection, error)
	Close() error
}

// New builds the engine selected by INFERENCE_BACKEND.
func New(cfg *config.Config, log *logger.Logger) (Engine, error) {
	switch cfg.InferenceBackend {
	case config.BackendDNN:
		return NewDNNEngine(cfg, log)
	case config.BackendRemote:
		return NewRemoteEngine(cfg.InferenceURL, cfg.InferenceTimeout), nil
	default:
		return nil, fmt.Errorf("unknown inference backend %q", cfg.InferenceBackend)
	}
}
