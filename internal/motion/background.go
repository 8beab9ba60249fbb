package motion

import (
	"math"
	"time"

	"wingwatch/internal/config"
	"wingwatch/internal/models"
)

type bgState int

const (
	stateWarming bgState = iota
	stateActive
)

// varianceBand scales the per-pixel standard deviation when deciding whether
// a deviation counts as foreground; noisy pixels get a wider band.
const varianceBand = 2.5

// BackgroundDetector maintains a per-pixel running mean and variance of the
// scene. While warming up it only learns and always reports Changed=false;
// once active, pixels deviating from the model beyond both the pixel
// threshold and a variance-scaled band count as changed, and the model keeps
// learning with a small rate so gradual lighting drift is absorbed.
type BackgroundDetector struct {
	pixelThreshold  float64
	motionThreshold float64
	blurSize        int
	warmup          time.Duration
	learningRate    float64

	state     bgState
	warmStart time.Time
	samples   int
	mean      []float64
	variance  []float64
	width     int
	height    int
}

func NewBackgroundDetector(cfg *config.Config) *BackgroundDetector {
	return &BackgroundDetector{
		pixelThreshold:  float64(cfg.PixelThreshold),
		motionThreshold: cfg.MotionThreshold,
		blurSize:        cfg.BlurSize,
		warmup:          cfg.WarmupDuration,
		learningRate:    cfg.LearningRate,
	}
}

// Observe tests the frame against the background model, then folds the frame
// into the model. Warm-up progress is measured by frame timestamps, so a
// paused source does not silently "complete" warming.
func (d *BackgroundDetector) Observe(frame *models.Frame) (models.MotionSignal, error) {
	signal := models.MotionSignal{Timestamp: frame.Timestamp}

	if err := validateFrame(frame); err != nil {
		return signal, err
	}

	gray := frame.Gray
	if d.blurSize > 1 {
		gray = boxBlur(gray, frame.Width, frame.Height, d.blurSize)
	}

	if d.mean == nil || d.width != frame.Width || d.height != frame.Height {
		d.reinit(frame.Width, frame.Height, frame.Timestamp)
	}

	if d.state == stateWarming && d.samples > 0 && frame.Timestamp.Sub(d.warmStart) >= d.warmup {
		d.state = stateActive
	}

	if d.state == stateActive {
		changed := 0
		for i := range gray {
			dev := math.Abs(float64(gray[i]) - d.mean[i])
			band := varianceBand * math.Sqrt(d.variance[i])
			if band < d.pixelThreshold {
				band = d.pixelThreshold
			}
			if dev > band {
				changed++
			}
		}
		signal.ChangedFraction = float64(changed) / float64(len(gray))
		signal.Changed = signal.ChangedFraction > d.motionThreshold
	}

	d.learn(gray)
	return signal, nil
}

// Reset discards the model; the next Observe restarts warm-up.
func (d *BackgroundDetector) Reset() {
	d.mean = nil
	d.variance = nil
	d.width = 0
	d.height = 0
	d.samples = 0
	d.state = stateWarming
}

func (d *BackgroundDetector) reinit(width, height int, ts time.Time) {
	n := width * height
	d.mean = make([]float64, n)
	d.variance = make([]float64, n)
	d.width = width
	d.height = height
	d.samples = 0
	d.state = stateWarming
	d.warmStart = ts
}

// learn folds the frame into the mean/variance model. During warm-up the
// effective rate is 1/n, giving a cumulative average; once active the
// configured learning rate takes over.
func (d *BackgroundDetector) learn(gray []byte) {
	alpha := d.learningRate
	if d.state == stateWarming {
		alpha = 1.0 / float64(d.samples+1)
	}
	for i := range gray {
		delta := float64(gray[i]) - d.mean[i]
		d.mean[i] += alpha * delta
		d.variance[i] = (1-alpha)*d.variance[i] + alpha*delta*delta
	}
	d.samples++
}
