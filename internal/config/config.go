package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Detector modes.
const (
	ModeDiff       = "diff"
	ModeBackground = "background"
)

// Frame source kinds.
const (
	SourceDevice = "device"
	SourceStream = "stream"
)

// Inference backends.
const (
	BackendDNN    = "dnn"
	BackendRemote = "remote"
)

type Config struct {
	// Motion gate
	DetectorMode    string
	PixelThreshold  int     // grayscale difference a pixel must exceed, 0-255
	MotionThreshold float64 // fraction of changed pixels that flips the gate, 0-1
	WarmupDuration  time.Duration
	LearningRate    float64
	BlurSize        int // odd box-blur kernel, 0 disables smoothing

	// Trigger
	CooldownDuration time.Duration

	// Filter
	ConfidenceThreshold float64
	AllowedLabels       []string // empty accepts any label

	// Frame source
	FrameSource   string
	CameraIndex   int // negative scans indices 0-3
	StreamURL     string
	FrameInterval time.Duration
	RetryCount    int
	RetryDelay    time.Duration

	// Inference
	InferenceBackend       string
	ModelPath              string
	ModelConfigPath        string
	LabelsPath             string
	InferenceURL           string
	InferenceTimeout       time.Duration
	FailureReportThreshold int

	// Storage
	DataDir           string
	ImageDirectory    string
	DetectionsLog     string
	DBPath            string // empty disables the event index
	PIDPath           string
	MaxImageDirSizeGB int64

	// Logging and loop pacing
	LogDirectory     string
	LogRetentionDays int
	HeartbeatEvery   int // frames between status log lines, 0 disables
}

// Load reads configuration from the environment, honoring a .env file in the
// working directory when one exists.
func Load() *Config {
	_ = godotenv.Load()

	dataDir := getEnv("DATA_DIR", filepath.Join(".", "data"))

	// DB_PATH distinguishes unset (use the default) from explicitly empty
	// (run without the event index), so it cannot go through getEnv.
	dbPath := filepath.Join(dataDir, "wingwatch.db")
	if value, ok := os.LookupEnv("DB_PATH"); ok {
		dbPath = value
	}

	return &Config{
		DetectorMode:    getEnv("DETECTOR_MODE", ModeDiff),
		PixelThreshold:  getEnvAsInt("PIXEL_THRESHOLD", 30),
		MotionThreshold: getEnvAsFloat("MOTION_THRESHOLD", 0.01),
		WarmupDuration:  getEnvAsDuration("WARMUP_DURATION", 30*time.Second),
		LearningRate:    getEnvAsFloat("LEARNING_RATE", 0.05),
		BlurSize:        getEnvAsInt("BLUR_SIZE", 0),

		CooldownDuration: getEnvAsDuration("COOLDOWN_DURATION", 5*time.Second),

		ConfidenceThreshold: getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.10),
		AllowedLabels:       getEnvAsList("ALLOWED_LABELS"),

		FrameSource:   getEnv("FRAME_SOURCE", SourceDevice),
		CameraIndex:   getEnvAsInt("CAMERA_INDEX", -1),
		StreamURL:     getEnv("STREAM_URL", ""),
		FrameInterval: getEnvAsDuration("FRAME_INTERVAL", time.Second),
		RetryCount:    getEnvAsInt("RETRY_COUNT", 3),
		RetryDelay:    getEnvAsDuration("RETRY_DELAY", 200*time.Millisecond),

		InferenceBackend:       getEnv("INFERENCE_BACKEND", BackendDNN),
		ModelPath:              getEnv("MODEL_PATH", ""),
		ModelConfigPath:        getEnv("MODEL_CONFIG_PATH", ""),
		LabelsPath:             getEnv("LABELS_PATH", ""),
		InferenceURL:           getEnv("INFERENCE_URL", ""),
		InferenceTimeout:       getEnvAsDuration("INFERENCE_TIMEOUT", 10*time.Second),
		FailureReportThreshold: getEnvAsInt("FAILURE_REPORT_THRESHOLD", 3),

		DataDir:           dataDir,
		ImageDirectory:    getEnv("IMAGE_DIR", filepath.Join(dataDir, "images")),
		DetectionsLog:     getEnv("DETECTIONS_LOG", filepath.Join(dataDir, "detections.csv")),
		DBPath:            dbPath,
		PIDPath:           getEnv("PID_PATH", filepath.Join(dataDir, "wingwatch.pid")),
		MaxImageDirSizeGB: getEnvAsInt64("MAX_IMAGE_DIR_SIZE_GB", 2),

		LogDirectory:     getEnv("LOG_DIR", filepath.Join(".", "logs")),
		LogRetentionDays: getEnvAsInt("LOG_RETENTION_DAYS", 7),
		HeartbeatEvery:   getEnvAsInt("HEARTBEAT_EVERY", 100),
	}
}

// Validate rejects unusable configuration before the pipeline starts.
func (c *Config) Validate() error {
	if c.DetectorMode != ModeDiff && c.DetectorMode != ModeBackground {
		return fmt.Errorf("invalid DETECTOR_MODE %q (want %s or %s)", c.DetectorMode, ModeDiff, ModeBackground)
	}
	if c.PixelThreshold < 0 || c.PixelThreshold > 255 {
		return fmt.Errorf("PIXEL_THRESHOLD %d outside 0-255", c.PixelThreshold)
	}
	if c.MotionThreshold < 0 || c.MotionThreshold > 1 {
		return fmt.Errorf("MOTION_THRESHOLD %g outside 0-1", c.MotionThreshold)
	}
	if c.WarmupDuration <= 0 {
		return fmt.Errorf("WARMUP_DURATION %s must be positive", c.WarmupDuration)
	}
	if c.LearningRate <= 0 || c.LearningRate > 1 {
		return fmt.Errorf("LEARNING_RATE %g outside (0,1]", c.LearningRate)
	}
	if c.BlurSize < 0 || (c.BlurSize > 0 && c.BlurSize%2 == 0) {
		return fmt.Errorf("BLUR_SIZE %d must be 0 or an odd kernel size", c.BlurSize)
	}
	if c.CooldownDuration < 0 {
		return fmt.Errorf("COOLDOWN_DURATION %s must not be negative", c.CooldownDuration)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("CONFIDENCE_THRESHOLD %g outside 0-1", c.ConfidenceThreshold)
	}
	if c.FrameSource != SourceDevice && c.FrameSource != SourceStream {
		return fmt.Errorf("invalid FRAME_SOURCE %q (want %s or %s)", c.FrameSource, SourceDevice, SourceStream)
	}
	if c.FrameSource == SourceStream && c.StreamURL == "" {
		return fmt.Errorf("FRAME_SOURCE %s requires STREAM_URL", SourceStream)
	}
	if c.FrameInterval < 0 {
		return fmt.Errorf("FRAME_INTERVAL %s must not be negative", c.FrameInterval)
	}
	if c.RetryCount < 0 {
		return fmt.Errorf("RETRY_COUNT %d must not be negative", c.RetryCount)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("RETRY_DELAY %s must not be negative", c.RetryDelay)
	}
	switch c.InferenceBackend {
	case BackendDNN:
		if c.ModelPath == "" {
			return fmt.Errorf("INFERENCE_BACKEND %s requires MODEL_PATH", BackendDNN)
		}
	case BackendRemote:
		if c.InferenceURL == "" {
			return fmt.Errorf("INFERENCE_BACKEND %s requires INFERENCE_URL", BackendRemote)
		}
	default:
		return fmt.Errorf("invalid INFERENCE_BACKEND %q (want %s or %s)", c.InferenceBackend, BackendDNN, BackendRemote)
	}
	if c.InferenceTimeout <= 0 {
		return fmt.Errorf("INFERENCE_TIMEOUT %s must be positive", c.InferenceTimeout)
	}
	if c.FailureReportThreshold < 1 {
		return fmt.Errorf("FAILURE_REPORT_THRESHOLD %d must be at least 1", c.FailureReportThreshold)
	}
	if c.HeartbeatEvery < 0 {
		return fmt.Errorf("HEARTBEAT_EVERY %d must not be negative", c.HeartbeatEvery)
	}
	if c.LogRetentionDays < 0 {
		return fmt.Errorf("LOG_RETENTION_DAYS %d must not be negative", c.LogRetentionDays)
	}
	if c.MaxImageDirSizeGB < 0 {
		return fmt.Errorf("MAX_IMAGE_DIR_SIZE_GB %d must not be negative", c.MaxImageDirSizeGB)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable into trimmed, lower-cased
// entries. An unset or empty variable yields nil.
func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	list := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			list = append(list, p)
		}
	}
	return list
}
