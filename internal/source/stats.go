package source

import (
	"math"
	"time"
)

// fpsStabilityThreshold is the maximum allowed FPS standard deviation as a
// fraction of the mean. A source delivering 10 FPS counts as stable while its
// stddev stays under 1.5 FPS.
const fpsStabilityThreshold = 0.15

// CaptureStats summarizes the delivery rate observed over a probe run.
type CaptureStats struct {
	FramesReceived int
	Duration       time.Duration
	FPSMean        float64
	FPSStdDev      float64
	FPSMin         float64
	FPSMax         float64
	IsStable       bool
}

// CalculateCaptureStats derives rate statistics from frame arrival times.
func CalculateCaptureStats(frameTimes []time.Time, totalDuration time.Duration) *CaptureStats {
	n := len(frameTimes)
	if n == 0 || totalDuration <= 0 {
		return &CaptureStats{Duration: totalDuration}
	}

	fpsMean := float64(n) / totalDuration.Seconds()

	instantaneous := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		interval := frameTimes[i].Sub(frameTimes[i-1]).Seconds()
		if interval > 0 {
			instantaneous = append(instantaneous, 1.0/interval)
		}
	}

	if len(instantaneous) == 0 {
		return &CaptureStats{
			FramesReceived: n,
			Duration:       totalDuration,
			FPSMean:        fpsMean,
		}
	}

	fpsMin := instantaneous[0]
	fpsMax := instantaneous[0]
	for _, fps := range instantaneous {
		if fps < fpsMin {
			fpsMin = fps
		}
		if fps > fpsMax {
			fpsMax = fps
		}
	}

	var sumSquares float64
	for _, fps := range instantaneous {
		diff := fps - fpsMean
		sumSquares += diff * diff
	}
	fpsStdDev := math.Sqrt(sumSquares / float64(len(instantaneous)))

	return &CaptureStats{
		FramesReceived: n,
		Duration:       totalDuration,
		FPSMean:        fpsMean,
		FPSStdDev:      fpsStdDev,
		FPSMin:         fpsMin,
		FPSMax:         fpsMax,
		IsStable:       fpsStdDev < fpsMean*fpsStabilityThreshold,
	}
}
