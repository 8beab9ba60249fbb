package main

import (
	"fmt"
	"os"
	"time"

	"wingwatch/internal/config"
	"wingwatch/internal/logger"
	"wingwatch/internal/source"

	"github.com/spf13/cobra"
)

// newCaptureCmd creates the "wingwatch capture" subcommand.
func newCaptureCmd() *cobra.Command {
	var (
		count    int
		savePath string
	)

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Probe the frame source and report capture statistics",
		Long:  "Acquires a burst of frames from the configured source and reports\nframe rate and stability, to verify the camera before a long run.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			log := logger.NewLogger(cfg.LogDirectory)
			defer log.Close()

			src, err := source.New(cfg, log)
			if err != nil {
				return fmt.Errorf("open frame source: %w", err)
			}
			defer src.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Capturing %d frames...\n", count)

			var (
				frameTimes []time.Time
				firstJPEG  []byte
				width      int
				height     int
			)
			start := time.Now()
			for i := 0; i < count; i++ {
				frame, err := src.Acquire(cmd.Context())
				if err != nil {
					return fmt.Errorf("acquire frame %d: %w", i+1, err)
				}
				frameTimes = append(frameTimes, time.Now())
				if i == 0 {
					firstJPEG = frame.JPEG
					width, height = frame.Width, frame.Height
				}
			}
			elapsed := time.Since(start)

			stats := source.CalculateCaptureStats(frameTimes, elapsed)
			fmt.Fprintf(out, "Frames: %d (%dx%d) in %s\n",
				stats.FramesReceived, width, height, elapsed.Round(time.Millisecond))
			fmt.Fprintf(out, "FPS: mean %.1f, min %.1f, max %.1f, stddev %.2f\n",
				stats.FPSMean, stats.FPSMin, stats.FPSMax, stats.FPSStdDev)
			if stats.IsStable {
				fmt.Fprintln(out, "Capture is stable")
			} else {
				fmt.Fprintln(out, "⚠️  Capture is unstable (frame rate varies by more than 15% of the mean)")
			}

			if savePath != "" && len(firstJPEG) > 0 {
				if err := os.WriteFile(savePath, firstJPEG, 0o644); err != nil {
					return fmt.Errorf("save probe frame: %w", err)
				}
				fmt.Fprintf(out, "Saved probe frame to %s\n", savePath)
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&count, "frames", 30, "number of frames to capture")
	cmd.Flags().StringVar(&savePath, "save", "", "write the first captured frame to this path")

	return cmd
}
