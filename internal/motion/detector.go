// Package motion decides, per frame, whether the scene changed enough to be
// worth running inference on.
package motion

import (
	"fmt"

	"wingwatch/internal/config"
	"wingwatch/internal/models"
)

// Detector turns successive frames into motion signals. Implementations own a
// mutable reference model and are not safe for concurrent use; the pipeline
// drives exactly one goroutine through Observe.
type Detector interface {
	Observe(frame *models.Frame) (models.MotionSignal, error)
	Reset()
}

// New builds the detector selected by DETECTOR_MODE.
func New(cfg *config.Config) (Detector, error) {
	switch cfg.DetectorMode {
	case config.ModeDiff:
		return NewDiffDetector(cfg), nil
	case config.ModeBackground:
		return NewBackgroundDetector(cfg), nil
	default:
		return nil, fmt.Errorf("unknown detector mode %q", cfg.DetectorMode)
	}
}

// validateFrame rejects frames the pixel math cannot run on.
func validateFrame(frame *models.Frame) error {
	if frame.Width <= 0 || frame.Height <= 0 {
		return fmt.Errorf("frame has no pixels: %dx%d", frame.Width, frame.Height)
	}
	if len(frame.Gray) != frame.PixelCount() {
		return fmt.Errorf("frame %dx%d carries %d gray bytes, want %d",
			frame.Width, frame.Height, len(frame.Gray), frame.PixelCount())
	}
	return nil
}

// boxBlur smooths a grayscale image with a separable k x k box kernel,
// clamping at the edges. k must be odd and > 1.
func boxBlur(gray []byte, width, height, k int) []byte {
	radius := k / 2
	tmp := make([]int, len(gray))
	out := make([]byte, len(gray))

	// Horizontal pass.
	for y := 0; y < height; y++ {
		row := y * width
		for x := 0; x < width; x++ {
			sum, n := 0, 0
			for dx := -radius; dx <= radius; dx++ {
				xx := x + dx
				if xx < 0 || xx >= width {
					continue
				}
				sum += int(gray[row+xx])
				n++
			}
			tmp[row+x] = sum / n
		}
	}

	// Vertical pass.
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			sum, n := 0, 0
			for dy := -radius; dy <= radius; dy++ {
				yy := y + dy
				if yy < 0 || yy >= height {
					continue
				}
				sum += tmp[yy*width+x]
				n++
			}
			out[y*width+x] = byte(sum / n)
		}
	}
	return out
}
