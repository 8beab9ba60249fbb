package models

import "time"

// Frame is one captured image: a grayscale working copy used for motion
// analysis plus the original JPEG bytes kept for evidence saving.
// Gray is row-major, len(Gray) == Width*Height.
type Frame struct {
	Seq       uint64
	Timestamp time.Time
	Width     int
	Height    int
	Gray      []byte
	JPEG      []byte
}

// PixelCount returns the number of grayscale pixels in the frame.
func (f *Frame) PixelCount() int {
	return f.Width * f.Height
}
