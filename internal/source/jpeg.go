package source

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"time"

	"wingwatch/internal/models"
)

var (
	jpegHeader = []byte{0xFF, 0xD8}
	jpegFooter = []byte{0xFF, 0xD9}
)

// ValidJPEG reports whether data carries both JPEG frame markers.
func ValidJPEG(data []byte) bool {
	return len(data) >= 4 && bytes.HasPrefix(data, jpegHeader) && bytes.HasSuffix(data, jpegFooter)
}

// FrameFromJPEG decodes a complete JPEG image into a pipeline frame, keeping
// the encoded bytes alongside the extracted luminance plane.
func FrameFromJPEG(seq uint64, ts time.Time, data []byte) (*models.Frame, error) {
	if !ValidJPEG(data) {
		return nil, fmt.Errorf("data is not a complete jpeg frame (%d bytes)", len(data))
	}

	gray, width, height, err := decodeGray(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}

	encoded := make([]byte, len(data))
	copy(encoded, data)

	return &models.Frame{
		Seq:       seq,
		Timestamp: ts,
		Width:     width,
		Height:    height,
		Gray:      gray,
		JPEG:      encoded,
	}, nil
}

// decodeGray extracts the luminance plane of an encoded image. JPEG decoding
// usually yields YCbCr, whose Y plane is the luminance directly; other color
// models fall back to an averaged-channel conversion.
func decodeGray(data []byte) ([]byte, int, int, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, err
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	pix := make([]byte, width*height)

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < height; y++ {
			copy(pix[y*width:(y+1)*width], src.Pix[y*src.Stride:y*src.Stride+width])
		}
	case *image.YCbCr:
		for y := 0; y < height; y++ {
			copy(pix[y*width:(y+1)*width], src.Y[y*src.YStride:y*src.YStride+width])
		}
	default:
		i := 0
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				r, g, b, _ := img.At(x, y).RGBA()
				pix[i] = byte(((r + g + b) / 3) >> 8)
				i++
			}
		}
	}

	return pix, width, height, nil
}
