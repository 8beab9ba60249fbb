package source

import (
	"context"
	"fmt"
	"time"

	"gocv.io/x/gocv"

	"wingwatch/internal/logger"
	"wingwatch/internal/models"
)

// scanLimit bounds the device scan when no camera index is configured.
const scanLimit = 4

// CameraSource captures frames from a local video device.
type CameraSource struct {
	capture *gocv.VideoCapture
	logger  *logger.Logger
	index   int
	seq     uint64
}

// NewCameraSource opens the configured device. A negative index scans devices
// 0 through 3 and keeps the first one that delivers a frame.
func NewCameraSource(index int, log *logger.Logger) (*CameraSource, error) {
	if index >= 0 {
		capture, err := openCamera(index)
		if err != nil {
			return nil, err
		}
		log.Info("Camera %d opened", index)
		return &CameraSource{capture: capture, logger: log, index: index}, nil
	}

	for i := 0; i < scanLimit; i++ {
		capture, err := openCamera(i)
		if err != nil {
			log.Warning("Camera %d unavailable: %v", i, err)
			continue
		}
		log.Info("Camera %d opened", i)
		return &CameraSource{capture: capture, logger: log, index: i}, nil
	}

	return nil, fmt.Errorf("no usable camera found on indices 0-%d", scanLimit-1)
}

// openCamera opens a device and probes one frame so a dead device fails at
// startup rather than mid-run.
func openCamera(index int) (*gocv.VideoCapture, error) {
	capture, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %d: %w", index, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("camera %d is not available", index)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, 640)
	capture.Set(gocv.VideoCaptureFrameHeight, 480)

	probe := gocv.NewMat()
	defer probe.Close()
	if ok := capture.Read(&probe); !ok || probe.Empty() {
		capture.Close()
		return nil, fmt.Errorf("camera %d opened but produced no frame", index)
	}

	return capture, nil
}

// Acquire reads one frame, converts it to grayscale, and re-encodes the
// original as JPEG for downstream artifact storage.
func (s *CameraSource) Acquire(ctx context.Context) (*models.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat := gocv.NewMat()
	defer mat.Close()

	if ok := s.capture.Read(&mat); !ok || mat.Empty() {
		return nil, fmt.Errorf("camera %d returned no frame", s.index)
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if err := gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray); err != nil {
		return nil, fmt.Errorf("failed to convert frame to grayscale: %v", err)
	}

	pix, err := gray.ToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to read grayscale data: %v", err)
	}

	buf, err := gocv.IMEncode(".jpg", mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %v", err)
	}
	defer buf.Close()
	encoded := make([]byte, len(buf.GetBytes()))
	copy(encoded, buf.GetBytes())

	s.seq++
	return &models.Frame{
		Seq:       s.seq,
		Timestamp: time.Now(),
		Width:     gray.Cols(),
		Height:    gray.Rows(),
		Gray:      pix,
		JPEG:      encoded,
	}, nil
}

// Close releases the capture device.
func (s *CameraSource) Close() error {
	return s.capture.Close()
}
