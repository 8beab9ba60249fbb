package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"wingwatch/internal/config"
	"wingwatch/internal/inference"
	"wingwatch/internal/logger"
	"wingwatch/internal/motion"
	"wingwatch/internal/pipeline"
	"wingwatch/internal/recorder"
	"wingwatch/internal/repository"
	"wingwatch/internal/repository/sqlite"
	"wingwatch/internal/source"
	"wingwatch/internal/trigger"
)

// App wires the capture pipeline together from configuration. Components
// are opened in dependency order and closed in reverse by Close.
type App struct {
	config   *config.Config
	logger   *logger.Logger
	runID    string
	db       *sqlite.DB
	events   repository.EventRepository
	source   source.Source
	engine   inference.Engine
	recorder *recorder.Recorder
	driver   *pipeline.Driver
}

func NewApp() (*App, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &App{
		config: cfg,
		logger: logger.NewLogger(cfg.LogDirectory),
		runID:  uuid.NewString(),
	}
	a.logger.CleanLogs(cfg.LogRetentionDays)
	a.logger.Info("Run %s starting", a.runID)

	if cfg.DBPath != "" {
		db, err := sqlite.New(cfg.DBPath)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open event index: %w", err)
		}
		a.db = db
		a.events = sqlite.NewEventRepository(db)
	}

	src, err := source.New(cfg, a.logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open frame source: %w", err)
	}
	a.source = src

	engine, err := inference.New(cfg, a.logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open inference engine: %w", err)
	}
	a.engine = engine

	if remote, ok := engine.(*inference.RemoteEngine); ok {
		if err := remote.CheckHealth(); err != nil {
			a.logger.Warning("Inference service health check failed: %v", err)
		}
	}

	rec, err := recorder.NewRecorder(cfg, a.logger, a.runID, a.events)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open event recorder: %w", err)
	}
	a.recorder = rec

	detector, err := motion.New(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	policy := trigger.NewPolicy(cfg.CooldownDuration)
	a.driver = pipeline.NewDriver(cfg, a.logger, a.source, detector, policy, a.engine, a.recorder)

	return a, nil
}

// Run drives the pipeline until ctx is cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	fmt.Printf("🦜 WingWatch\n")
	fmt.Printf("📹 Source: %s\n", a.describeSource())
	fmt.Printf("🧠 Inference: %s\n", a.describeEngine())
	fmt.Printf("📁 Images: %s\n", a.config.ImageDirectory)
	fmt.Printf("📄 Detections: %s\n", a.config.DetectionsLog)

	return a.driver.Run(ctx)
}

// Close releases components in reverse construction order. Safe to call on
// a partially constructed App.
func (a *App) Close() {
	if a.recorder != nil {
		if err := a.recorder.Close(); err != nil {
			a.logger.Warning("Closing recorder: %v", err)
		}
	}
	if a.engine != nil {
		if err := a.engine.Close(); err != nil {
			a.logger.Warning("Closing inference engine: %v", err)
		}
	}
	if a.source != nil {
		if err := a.source.Close(); err != nil {
			a.logger.Warning("Closing frame source: %v", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warning("Closing event index: %v", err)
		}
	}
	if a.logger != nil {
		a.logger.Close()
	}
}

func (a *App) describeSource() string {
	if a.config.FrameSource == config.SourceDevice {
		return fmt.Sprintf("camera %d", a.config.CameraIndex)
	}
	return a.config.StreamURL
}

func (a *App) describeEngine() string {
	if a.config.InferenceBackend == config.BackendDNN {
		return a.config.ModelPath
	}
	return a.config.InferenceURL
}
