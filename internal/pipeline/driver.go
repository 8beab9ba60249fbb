// Package pipeline runs the capture-to-record loop: acquire a frame, gate it
// on motion, infer when the trigger fires, filter, and persist what remains.
// The loop is strictly sequential; one frame is fully handled before the next
// is acquired.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wingwatch/internal/config"
	"wingwatch/internal/filter"
	"wingwatch/internal/inference"
	"wingwatch/internal/logger"
	"wingwatch/internal/models"
	"wingwatch/internal/motion"
	"wingwatch/internal/recorder"
	"wingwatch/internal/source"
	"wingwatch/internal/trigger"
)

type Driver struct {
	cfg      *config.Config
	log      *logger.Logger
	source   source.Source
	detector motion.Detector
	policy   *trigger.Policy
	engine   inference.Engine
	recorder *recorder.Recorder

	now func() time.Time

	framesSeen          uint64
	framesInferred      uint64
	eventsRecorded      uint64
	consecutiveFailures int
}

func NewDriver(cfg *config.Config, log *logger.Logger, src source.Source, detector motion.Detector, policy *trigger.Policy, engine inference.Engine, rec *recorder.Recorder) *Driver {
	return &Driver{
		cfg:      cfg,
		log:      log,
		source:   src,
		detector: detector,
		policy:   policy,
		engine:   engine,
		recorder: rec,
		now:      time.Now,
	}
}

// Run drives the loop until the context ends or the detections log becomes
// unwritable. Cancellation is observed between cycles; the frame in flight is
// always finished first.
func (d *Driver) Run(ctx context.Context) error {
	d.log.Info("🎬 Pipeline started (detector=%s, cooldown=%s, interval=%s)",
		d.cfg.DetectorMode, d.cfg.CooldownDuration, d.cfg.FrameInterval)

	for {
		select {
		case <-ctx.Done():
			d.logSummary()
			return nil
		default:
		}

		cycleStart := d.now()
		if err := d.cycle(ctx); err != nil {
			d.log.Error("Stopping pipeline: %v", err)
			d.logSummary()
			return err
		}
		d.pace(ctx, cycleStart)
	}
}

// cycle handles one frame end to end. All failures are absorbed here except
// a detections log append failure, which is the one error worth dying for.
func (d *Driver) cycle(ctx context.Context) error {
	frame, err := d.acquire(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		d.log.Error("Skipping cycle: %v", err)
		return nil
	}

	d.framesSeen++
	d.heartbeat()

	signal, err := d.detector.Observe(frame)
	if err != nil {
		d.log.Error("Motion detection failed on frame %d: %v", frame.Seq, err)
		return nil
	}

	if !d.policy.ShouldInfer(signal, d.now()) {
		return nil
	}

	d.log.Info("Motion gate opened on frame %d (%.2f%% of pixels changed)", frame.Seq, signal.ChangedFraction*100)
	d.framesInferred++

	detections, err := d.inferWithTimeout(ctx, frame)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		d.reportInferenceFailure(err)
		return nil
	}
	d.consecutiveFailures = 0

	accepted := filter.Accept(detections, d.cfg.ConfidenceThreshold, d.cfg.AllowedLabels)
	if len(accepted) == 0 {
		d.log.Info("Frame %d: %d candidates, none accepted", frame.Seq, len(detections))
		return nil
	}

	for _, det := range accepted {
		event := models.Event{
			Timestamp:  frame.Timestamp,
			Label:      det.Label,
			Confidence: det.Confidence,
		}

		recorded, err := d.recorder.Record(event, frame)
		if err != nil {
			if errors.Is(err, recorder.ErrAppend) {
				return err
			}
			d.log.Warning("Event for %q kept without evidence: %v", det.Label, err)
		}

		d.eventsRecorded++
		if recorded.ImagePath != "" {
			d.log.Info("🐦 Recorded %s (confidence %.2f) -> %s", recorded.Label, recorded.Confidence, recorded.ImagePath)
		} else {
			d.log.Info("🐦 Recorded %s (confidence %.2f)", recorded.Label, recorded.Confidence)
		}
	}

	return nil
}

// acquire asks the source for a frame, retrying a bounded number of times.
func (d *Driver) acquire(ctx context.Context) (*models.Frame, error) {
	attempts := d.cfg.RetryCount + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			timer := time.NewTimer(d.cfg.RetryDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		frame, err := d.source.Acquire(ctx)
		if err == nil {
			return frame, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err
		d.log.Warning("Frame acquisition attempt %d/%d failed: %v", attempt, attempts, err)
	}

	return nil, fmt.Errorf("frame acquisition failed after %d attempts: %w", attempts, lastErr)
}

// inferWithTimeout bounds a single inference call. The engine call keeps
// running in its goroutine if it overruns; engines serialize internally, so a
// straggler delays the next inference rather than racing it.
func (d *Driver) inferWithTimeout(ctx context.Context, frame *models.Frame) ([]models.Detection, error) {
	inferCtx, cancel := context.WithTimeout(ctx, d.cfg.InferenceTimeout)
	defer cancel()

	type result struct {
		detections []models.Detection
		err        error
	}

	results := make(chan result, 1)
	go func() {
		detections, err := d.engine.Infer(inferCtx, frame)
		results <- result{detections, err}
	}()

	select {
	case res := <-results:
		return res.detections, res.err
	case <-inferCtx.Done():
		if errors.Is(inferCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("inference timed out after %s", d.cfg.InferenceTimeout)
		}
		return nil, inferCtx.Err()
	}
}

// reportInferenceFailure tracks back-to-back failures and escalates once they
// reach the configured threshold.
func (d *Driver) reportInferenceFailure(err error) {
	d.consecutiveFailures++
	if d.consecutiveFailures%d.cfg.FailureReportThreshold == 0 {
		d.log.Error("Inference failed %d times in a row: %v", d.consecutiveFailures, err)
		return
	}
	d.log.Warning("Inference failed: %v", err)
}

// heartbeat emits a progress line every HeartbeatEvery acquired frames.
func (d *Driver) heartbeat() {
	if d.cfg.HeartbeatEvery <= 0 {
		return
	}
	if d.framesSeen%uint64(d.cfg.HeartbeatEvery) == 0 {
		d.log.Info("📊 Processed %d frames (%d inferences, %d events)",
			d.framesSeen, d.framesInferred, d.eventsRecorded)
	}
}

// pace sleeps out the rest of the frame interval, waking early on shutdown.
func (d *Driver) pace(ctx context.Context, cycleStart time.Time) {
	if d.cfg.FrameInterval <= 0 {
		return
	}

	remaining := d.cfg.FrameInterval - d.now().Sub(cycleStart)
	if remaining <= 0 {
		return
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (d *Driver) logSummary() {
	d.log.Info("🛑 Pipeline stopped: %d frames, %d inferences, %d events recorded",
		d.framesSeen, d.framesInferred, d.eventsRecorded)
}
