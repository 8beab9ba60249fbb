package models

import "time"

// MotionSignal is the per-frame output of a motion detector.
// ChangedFraction is the share of pixels considered different from the
// reference model, in [0,1].
type MotionSignal struct {
	Changed         bool
	ChangedFraction float64
	Timestamp       time.Time
}
