package pipeline

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"wingwatch/internal/config"
	"wingwatch/internal/logger"
	"wingwatch/internal/models"
	"wingwatch/internal/motion"
	"wingwatch/internal/recorder"
	"wingwatch/internal/trigger"
)

// driverStep is one scripted source response.
type driverStep struct {
	frame *models.Frame
	err   error
}

// scriptedSource plays back steps one per cycle, advancing the shared clock
// by one second per call. When the script runs out it cancels the run.
type scriptedSource struct {
	steps  []driverStep
	idx    int
	cursor *time.Time
	cancel context.CancelFunc
}

func (s *scriptedSource) Acquire(ctx context.Context) (*models.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.idx >= len(s.steps) {
		s.cancel()
		return nil, ctx.Err()
	}

	step := s.steps[s.idx]
	s.idx++
	*s.cursor = s.cursor.Add(time.Second)

	if step.err != nil {
		return nil, step.err
	}
	step.frame.Timestamp = *s.cursor
	return step.frame, nil
}

func (s *scriptedSource) Close() error { return nil }

type fakeEngine struct {
	detections []models.Detection
	err        error
	delay      time.Duration
	calls      int
}

func (e *fakeEngine) Infer(ctx context.Context, frame *models.Frame) ([]models.Detection, error) {
	e.calls++
	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if e.err != nil {
		return nil, e.err
	}
	return e.detections, nil
}

func (e *fakeEngine) Close() error { return nil }

func grayFrame(seq uint64, value byte) *models.Frame {
	gray := make([]byte, 100*100)
	for i := range gray {
		gray[i] = value
	}
	return &models.Frame{
		Seq:    seq,
		Width:  100,
		Height: 100,
		Gray:   gray,
		JPEG:   []byte{0xFF, 0xD8, byte(seq), 0xFF, 0xD9},
	}
}

// paintRegion overwrites a rectangle of the frame's gray plane.
func paintRegion(frame *models.Frame, x0, y0, w, h int, value byte) {
	for y := y0; y < y0+h; y++ {
		for x := x0; x < x0+w; x++ {
			frame.Gray[y*frame.Width+x] = value
		}
	}
}

func driverConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		DetectorMode:           config.ModeDiff,
		PixelThreshold:         30,
		MotionThreshold:        0.01,
		WarmupDuration:         30 * time.Second,
		LearningRate:           0.05,
		CooldownDuration:       5 * time.Second,
		ConfidenceThreshold:    0.10,
		FrameInterval:          0,
		RetryCount:             2,
		RetryDelay:             time.Millisecond,
		InferenceTimeout:       50 * time.Millisecond,
		FailureReportThreshold: 3,
		ImageDirectory:         filepath.Join(dir, "images"),
		DetectionsLog:          filepath.Join(dir, "detections.csv"),
		LogDirectory:           filepath.Join(dir, "logs"),
	}
}

type harness struct {
	driver *Driver
	ctx    context.Context
	source *scriptedSource
	rec    *recorder.Recorder
}

func newHarness(t *testing.T, cfg *config.Config, steps []driverStep, engine *fakeEngine) *harness {
	t.Helper()

	log := logger.NewLogger(cfg.LogDirectory)
	t.Cleanup(func() { log.Close() })

	detector, err := motion.New(cfg)
	if err != nil {
		t.Fatalf("motion.New: %v", err)
	}

	rec, err := recorder.NewRecorder(cfg, log, "test-run", nil)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}
	t.Cleanup(func() { rec.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cursor := new(time.Time)
	*cursor = time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)

	src := &scriptedSource{steps: steps, cursor: cursor, cancel: cancel}

	driver := NewDriver(cfg, log, src, detector, trigger.NewPolicy(cfg.CooldownDuration), engine, rec)
	driver.now = func() time.Time { return *cursor }

	return &harness{driver: driver, ctx: ctx, source: src, rec: rec}
}

func frames(list ...*models.Frame) []driverStep {
	steps := make([]driverStep, len(list))
	for i, f := range list {
		steps[i] = driverStep{frame: f}
	}
	return steps
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open detections log: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse detections log: %v", err)
	}
	return rows
}

func readLog(t *testing.T, dir string) string {
	t.Helper()

	matches, _ := filepath.Glob(filepath.Join(dir, "*.log"))
	if len(matches) == 0 {
		t.Fatalf("no log file in %s", dir)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	return string(data)
}

func TestRunStaticSceneSkipsInference(t *testing.T) {
	cfg := driverConfig(t)
	engine := &fakeEngine{detections: []models.Detection{{Label: "bird", Confidence: 0.9}}}

	h := newHarness(t, cfg, frames(
		grayFrame(1, 80),
		grayFrame(2, 80),
		grayFrame(3, 80),
		grayFrame(4, 80),
		grayFrame(5, 80),
	), engine)

	if err := h.driver.Run(h.ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if engine.calls != 0 {
		t.Errorf("engine called %d times for a static scene, want 0", engine.calls)
	}

	rows := readRows(t, cfg.DetectionsLog)
	if len(rows) != 1 {
		t.Errorf("detections log has %d rows, want header only", len(rows))
	}
	if h.driver.framesSeen != 5 {
		t.Errorf("framesSeen = %d, want 5", h.driver.framesSeen)
	}
}

func TestRunRecordsAcceptedDetection(t *testing.T) {
	cfg := driverConfig(t)
	engine := &fakeEngine{detections: []models.Detection{
		{Label: "bird", Confidence: 0.82},
		{Label: "squirrel", Confidence: 0.05},
	}}

	moving := grayFrame(2, 0)
	paintRegion(moving, 10, 10, 50, 10, 255) // 500 of 10000 pixels

	h := newHarness(t, cfg, frames(grayFrame(1, 0), moving), engine)

	if err := h.driver.Run(h.ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if engine.calls != 1 {
		t.Fatalf("engine called %d times, want 1", engine.calls)
	}

	rows := readRows(t, cfg.DetectionsLog)
	if len(rows) != 2 {
		t.Fatalf("detections log has %d rows, want header plus one", len(rows))
	}

	row := rows[1]
	if row[1] != "bird" {
		t.Errorf("label = %q, want %q", row[1], "bird")
	}
	if row[2] != "0.82" {
		t.Errorf("confidence = %q, want %q", row[2], "0.82")
	}
	if row[3] == "" {
		t.Fatal("image_path is empty")
	}
	if _, err := os.Stat(row[3]); err != nil {
		t.Errorf("artifact missing: %v", err)
	}
}

func TestRunInferenceTimeoutLeavesNoRow(t *testing.T) {
	cfg := driverConfig(t)
	engine := &fakeEngine{
		detections: []models.Detection{{Label: "bird", Confidence: 0.9}},
		delay:      300 * time.Millisecond,
	}

	moving := grayFrame(2, 0)
	paintRegion(moving, 0, 0, 100, 50, 200)

	h := newHarness(t, cfg, frames(
		grayFrame(1, 0),
		moving,
		grayFrame(3, 0),
		grayFrame(4, 0),
	), engine)

	if err := h.driver.Run(h.ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if engine.calls != 1 {
		t.Errorf("engine called %d times, want 1", engine.calls)
	}

	rows := readRows(t, cfg.DetectionsLog)
	if len(rows) != 1 {
		t.Errorf("detections log has %d rows, want header only", len(rows))
	}

	if got := readLog(t, cfg.LogDirectory); !strings.Contains(got, "timed out") {
		t.Error("log does not mention the timeout")
	}
	if h.driver.framesSeen != 4 {
		t.Errorf("framesSeen = %d, want 4 (pipeline should continue)", h.driver.framesSeen)
	}
}

func TestRunCooldownLimitsInferences(t *testing.T) {
	cfg := driverConfig(t)
	engine := &fakeEngine{}

	// Ten seconds of sustained motion at one frame per second.
	steps := []driverStep{{frame: grayFrame(1, 0)}}
	for i := 2; i <= 11; i++ {
		var value byte
		if i%2 == 0 {
			value = 255
		}
		steps = append(steps, driverStep{frame: grayFrame(uint64(i), value)})
	}

	h := newHarness(t, cfg, steps, engine)

	if err := h.driver.Run(h.ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if engine.calls != 2 {
		t.Errorf("engine called %d times over 10s of motion with 5s cooldown, want 2", engine.calls)
	}
}

func TestRunAppendFailureStopsPipeline(t *testing.T) {
	cfg := driverConfig(t)
	engine := &fakeEngine{detections: []models.Detection{{Label: "bird", Confidence: 0.9}}}

	moving := grayFrame(2, 0)
	paintRegion(moving, 0, 0, 100, 50, 200)

	h := newHarness(t, cfg, frames(grayFrame(1, 0), moving, grayFrame(3, 0)), engine)

	// Make the log unwritable before the pipeline reaches the record step.
	if err := h.rec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	err := h.driver.Run(h.ctx)
	if err == nil {
		t.Fatal("Run succeeded with an unwritable detections log")
	}
	if !errors.Is(err, recorder.ErrAppend) {
		t.Errorf("Run error = %v, want ErrAppend", err)
	}

	// The failing frame was the second of three; the pipeline must not have
	// moved past it.
	if h.source.idx != 2 {
		t.Errorf("source consumed %d steps, want 2", h.source.idx)
	}
}

func TestRunKeepsRowWhenArtifactFails(t *testing.T) {
	cfg := driverConfig(t)
	engine := &fakeEngine{detections: []models.Detection{{Label: "bird", Confidence: 0.82}}}

	moving := grayFrame(2, 0)
	paintRegion(moving, 0, 0, 100, 50, 200)

	h := newHarness(t, cfg, frames(grayFrame(1, 0), moving), engine)

	// Replace the artifact directory with a file so saves fail.
	if err := os.RemoveAll(cfg.ImageDirectory); err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}
	if err := os.WriteFile(cfg.ImageDirectory, []byte("blocked"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := h.driver.Run(h.ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	rows := readRows(t, cfg.DetectionsLog)
	if len(rows) != 2 {
		t.Fatalf("detections log has %d rows, want header plus one", len(rows))
	}
	if rows[1][3] != "" {
		t.Errorf("image_path = %q, want empty after artifact failure", rows[1][3])
	}
}

func TestRunRetriesAcquisition(t *testing.T) {
	cfg := driverConfig(t)
	engine := &fakeEngine{}

	h := newHarness(t, cfg, []driverStep{
		{err: errors.New("device busy")},
		{err: errors.New("device busy")},
		{frame: grayFrame(1, 80)},
	}, engine)

	if err := h.driver.Run(h.ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if h.driver.framesSeen != 1 {
		t.Errorf("framesSeen = %d, want 1", h.driver.framesSeen)
	}
	if h.source.idx != 3 {
		t.Errorf("source consumed %d steps, want 3", h.source.idx)
	}

	if got := readLog(t, cfg.LogDirectory); !strings.Contains(got, "attempt 1/3 failed") {
		t.Error("log does not mention the failed attempt")
	}
}

func TestRunSurvivesExhaustedRetries(t *testing.T) {
	cfg := driverConfig(t)
	engine := &fakeEngine{}

	h := newHarness(t, cfg, []driverStep{
		{err: errors.New("device gone")},
		{err: errors.New("device gone")},
		{err: errors.New("device gone")},
	}, engine)

	if err := h.driver.Run(h.ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if h.driver.framesSeen != 0 {
		t.Errorf("framesSeen = %d, want 0", h.driver.framesSeen)
	}
	if got := readLog(t, cfg.LogDirectory); !strings.Contains(got, "Skipping cycle") {
		t.Error("log does not mention the skipped cycle")
	}
}

func TestRunEscalatesRepeatedInferenceFailures(t *testing.T) {
	cfg := driverConfig(t)
	cfg.CooldownDuration = 0
	engine := &fakeEngine{err: errors.New("model exploded")}

	steps := []driverStep{{frame: grayFrame(1, 0)}}
	for i := 2; i <= 7; i++ {
		var value byte
		if i%2 == 0 {
			value = 255
		}
		steps = append(steps, driverStep{frame: grayFrame(uint64(i), value)})
	}

	h := newHarness(t, cfg, steps, engine)

	if err := h.driver.Run(h.ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if engine.calls != 6 {
		t.Errorf("engine called %d times, want 6", engine.calls)
	}
	if h.driver.consecutiveFailures != 6 {
		t.Errorf("consecutiveFailures = %d, want 6", h.driver.consecutiveFailures)
	}

	got := readLog(t, cfg.LogDirectory)
	if !strings.Contains(got, "failed 3 times in a row") {
		t.Error("log does not contain the first escalation")
	}
	if !strings.Contains(got, "failed 6 times in a row") {
		t.Error("log does not contain the second escalation")
	}
}

func TestRunFilterDropsEverything(t *testing.T) {
	cfg := driverConfig(t)
	cfg.AllowedLabels = []string{"bird"}
	engine := &fakeEngine{detections: []models.Detection{
		{Label: "cat", Confidence: 0.95},
		{Label: "dog", Confidence: 0.88},
	}}

	moving := grayFrame(2, 0)
	paintRegion(moving, 0, 0, 100, 50, 200)

	h := newHarness(t, cfg, frames(grayFrame(1, 0), moving), engine)

	if err := h.driver.Run(h.ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if engine.calls != 1 {
		t.Errorf("engine called %d times, want 1", engine.calls)
	}
	rows := readRows(t, cfg.DetectionsLog)
	if len(rows) != 1 {
		t.Errorf("detections log has %d rows, want header only", len(rows))
	}
}
