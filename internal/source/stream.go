package source

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"wingwatch/internal/logger"
	"wingwatch/internal/models"
)

// StreamSource reads JPEG frames pushed by a camera over a websocket. Each
// binary message is expected to carry one complete frame.
type StreamSource struct {
	conn      *websocket.Conn
	logger    *logger.Logger
	streamURL string
	seq       uint64
}

// NewStreamSource connects to the camera's websocket endpoint.
func NewStreamSource(streamURL string, log *logger.Logger) (*StreamSource, error) {
	conn, _, err := websocket.DefaultDialer.Dial(streamURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to stream %s: %w", streamURL, err)
	}

	log.Info("Connected to frame stream at %s", streamURL)

	return &StreamSource{
		conn:      conn,
		logger:    log,
		streamURL: streamURL,
	}, nil
}

// Acquire waits for the next complete frame. Messages that are not binary or
// do not carry both JPEG markers are discarded.
func (s *StreamSource) Acquire(ctx context.Context) (*models.Frame, error) {
	if deadline, ok := ctx.Deadline(); ok {
		s.conn.SetReadDeadline(deadline)
	} else {
		s.conn.SetReadDeadline(time.Time{})
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("stream read failed: %w", err)
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		if !ValidJPEG(data) {
			s.logger.Warning("Discarding malformed frame (%d bytes)", len(data))
			continue
		}

		frame, err := FrameFromJPEG(s.seq+1, time.Now(), data)
		if err != nil {
			s.logger.Warning("Discarding undecodable frame: %v", err)
			continue
		}

		s.seq++
		return frame, nil
	}
}

// Close closes the websocket connection.
func (s *StreamSource) Close() error {
	return s.conn.Close()
}
