package main

import (
	"fmt"
	"sort"
	"time"

	"wingwatch/internal/config"
	"wingwatch/internal/recorder"
	"wingwatch/internal/repository/sqlite"

	"github.com/spf13/cobra"
)

// newStatusCmd creates the "wingwatch status" subcommand.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show pipeline state and recorded detections",
		Long:  "Displays whether the pipeline is running, how many detections have\nbeen recorded per label, and how much disk the evidence images use.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			out := cmd.OutOrStdout()

			status, pid, err := DaemonStatus(cfg.PIDPath)
			if err != nil {
				return err
			}
			switch status {
			case StatusRunning:
				fmt.Fprintf(out, "● pipeline running (PID %d)\n", pid)
			case StatusStale:
				fmt.Fprintf(out, "● pipeline dead (stale PID file for %d)\n", pid)
			case StatusStopped:
				fmt.Fprintln(out, "● pipeline stopped")
			}

			stats, err := recorder.Summarize(cfg.DetectionsLog)
			if err != nil {
				return fmt.Errorf("summarize detections log: %w", err)
			}

			fmt.Fprintf(out, "\nDetections: %d recorded\n", stats.Rows)
			labels := make([]string, 0, len(stats.PerLabel))
			for label := range stats.PerLabel {
				labels = append(labels, label)
			}
			sort.Strings(labels)
			for _, label := range labels {
				fmt.Fprintf(out, "  %-12s %d\n", label, stats.PerLabel[label])
			}

			size, err := recorder.DirSize(cfg.ImageDirectory)
			if err != nil {
				return fmt.Errorf("measure image directory: %w", err)
			}
			fmt.Fprintf(out, "Images: %s in %s\n", formatBytes(size), cfg.ImageDirectory)
			if cfg.MaxImageDirSizeGB > 0 && size > cfg.MaxImageDirSizeGB<<30 {
				fmt.Fprintf(out, "⚠️  image directory exceeds the %d GB cap\n", cfg.MaxImageDirSizeGB)
			}

			if cfg.DBPath != "" {
				db, err := sqlite.New(cfg.DBPath)
				if err != nil {
					return fmt.Errorf("open event index: %w", err)
				}
				defer db.Close()

				indexStats, err := sqlite.NewEventRepository(db).GetStats()
				if err != nil {
					return fmt.Errorf("event index stats: %w", err)
				}
				fmt.Fprintf(out, "\nIndex: %d events", indexStats.TotalEvents)
				if !indexStats.LastEvent.IsZero() {
					fmt.Fprintf(out, ", last at %s", indexStats.LastEvent.Format(time.RFC3339))
				}
				fmt.Fprintln(out)
			}

			return nil
		},
	}
}

// formatBytes renders a byte count with a binary unit suffix.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
