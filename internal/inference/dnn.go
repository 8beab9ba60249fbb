package inference

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"wingwatch/internal/config"
	"wingwatch/internal/logger"
	"wingwatch/internal/models"
)

// DNNEngine runs an SSD COCO network in-process through OpenCV's DNN module.
type DNNEngine struct {
	net    gocv.Net
	labels Labels
	logger *logger.Logger
	mutex  sync.Mutex
}

// NewDNNEngine loads the network and label map. The engine serializes
// inference calls; gocv networks are not safe for concurrent use.
func NewDNNEngine(cfg *config.Config, log *logger.Logger) (*DNNEngine, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}
	if cfg.ModelConfigPath != "" {
		if _, err := os.Stat(cfg.ModelConfigPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("model config file not found: %s", cfg.ModelConfigPath)
		}
	}

	labels, err := LoadLabels(cfg.LabelsPath)
	if err != nil {
		return nil, err
	}

	net := gocv.ReadNet(cfg.ModelPath, cfg.ModelConfigPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network from %s", cfg.ModelPath)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set preferable backend or target")
	}

	log.Info("Detection network initialized from %s", cfg.ModelPath)

	return &DNNEngine{
		net:    net,
		labels: labels,
		logger: log,
	}, nil
}

// Infer decodes the frame's JPEG bytes and runs the network over it. Every
// candidate the model reports comes back; thresholding is the caller's job.
func (e *DNNEngine) Infer(ctx context.Context, frame *models.Frame) ([]models.Detection, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(frame.JPEG) == 0 {
		return nil, fmt.Errorf("frame %d carries no encoded image", frame.Seq)
	}

	mat, err := gocv.IMDecode(frame.JPEG, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %v", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("decoded image is empty")
	}

	// Blob parameters match the ssd coco net input.
	blob := gocv.BlobFromImage(mat, 1.0/127.5, image.Pt(300, 300), gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	e.net.SetInput(blob, "")

	output := e.net.Forward("")
	defer output.Close()

	var results []models.Detection

	// Output rows are [ batch_id, class_id, confidence, x1, y1, x2, y2 ].
	outputReshaped := output.Reshape(1, output.Total()/7)
	defer outputReshaped.Close()

	for i := 0; i < outputReshaped.Rows(); i++ {
		confidence := float64(outputReshaped.GetFloatAt(i, 2))
		if confidence <= 0 {
			continue
		}

		classID := int(outputReshaped.GetFloatAt(i, 1))
		x := int(outputReshaped.GetFloatAt(i, 3) * float32(mat.Cols()))
		y := int(outputReshaped.GetFloatAt(i, 4) * float32(mat.Rows()))
		width := int(outputReshaped.GetFloatAt(i, 5)*float32(mat.Cols())) - x
		height := int(outputReshaped.GetFloatAt(i, 6)*float32(mat.Rows())) - y

		results = append(results, models.Detection{
			Label:      e.labels.Lookup(classID),
			Confidence: confidence,
			Box: &models.Box{
				X:      x,
				Y:      y,
				Width:  width,
				Height: height,
			},
		})
	}

	return results, nil
}

// Close releases the network.
func (e *DNNEngine) Close() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.net.Close()
}
