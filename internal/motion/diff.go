package motion

import (
	"wingwatch/internal/config"
	"wingwatch/internal/models"
)

// DiffDetector compares each frame against the immediately preceding one:
// pixels whose absolute grayscale difference exceeds the pixel threshold are
// counted, and the changed fraction is tested against the motion threshold.
type DiffDetector struct {
	pixelThreshold  int
	motionThreshold float64
	blurSize        int

	prev   []byte
	width  int
	height int
}

func NewDiffDetector(cfg *config.Config) *DiffDetector {
	return &DiffDetector{
		pixelThreshold:  cfg.PixelThreshold,
		motionThreshold: cfg.MotionThreshold,
		blurSize:        cfg.BlurSize,
	}
}

// Observe compares the frame against the stored reference, then advances the
// reference to the current frame. The first frame, and the first frame after
// a resolution change, yields Changed=false.
func (d *DiffDetector) Observe(frame *models.Frame) (models.MotionSignal, error) {
	signal := models.MotionSignal{Timestamp: frame.Timestamp}

	if err := validateFrame(frame); err != nil {
		return signal, err
	}

	gray := frame.Gray
	if d.blurSize > 1 {
		gray = boxBlur(gray, frame.Width, frame.Height, d.blurSize)
	}

	if d.prev == nil || d.width != frame.Width || d.height != frame.Height {
		d.storeReference(gray, frame.Width, frame.Height)
		return signal, nil
	}

	changed := 0
	for i := range gray {
		diff := int(gray[i]) - int(d.prev[i])
		if diff < 0 {
			diff = -diff
		}
		if diff > d.pixelThreshold {
			changed++
		}
	}

	signal.ChangedFraction = float64(changed) / float64(len(gray))
	signal.Changed = signal.ChangedFraction > d.motionThreshold

	d.storeReference(gray, frame.Width, frame.Height)
	return signal, nil
}

// Reset forgets the reference frame; the next Observe starts over.
func (d *DiffDetector) Reset() {
	d.prev = nil
	d.width = 0
	d.height = 0
}

// storeReference copies the grayscale data so no frame memory is retained
// past its cycle.
func (d *DiffDetector) storeReference(gray []byte, width, height int) {
	if len(d.prev) != len(gray) {
		d.prev = make([]byte, len(gray))
	}
	copy(d.prev, gray)
	d.width = width
	d.height = height
}
