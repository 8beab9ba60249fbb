package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"wingwatch/internal/models"
)

// RemoteEngine delegates inference to an external HTTP detection service.
// The service receives the frame as a multipart upload and answers with a
// JSON detection list.
type RemoteEngine struct {
	inferenceURL string
	client       *http.Client
}

// NewRemoteEngine creates an engine targeting the given service URL.
func NewRemoteEngine(inferenceURL string, timeout time.Duration) *RemoteEngine {
	return &RemoteEngine{
		inferenceURL: inferenceURL,
		client:       &http.Client{Timeout: timeout},
	}
}

// Infer uploads the frame and decodes the service's detections.
func (e *RemoteEngine) Infer(ctx context.Context, frame *models.Frame) ([]models.Detection, error) {
	if len(frame.JPEG) == 0 {
		return nil, fmt.Errorf("frame %d carries no encoded image", frame.Seq)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(frame.JPEG); err != nil {
		return nil, fmt.Errorf("copy image data: %w", err)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.inferenceURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Detections []models.Detection `json:"detections"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return result.Detections, nil
}

// CheckHealth probes the service's health endpoint.
func (e *RemoteEngine) CheckHealth() error {
	resp, err := e.client.Get(e.inferenceURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("detection service unhealthy: %d", resp.StatusCode)
	}

	return nil
}

// Close releases pooled connections.
func (e *RemoteEngine) Close() error {
	e.client.CloseIdleConnections()
	return nil
}
