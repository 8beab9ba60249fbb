package main

import (
	"fmt"
	"time"

	"wingwatch/internal/config"

	"github.com/spf13/cobra"
)

// stopWaitTimeout is how long to wait for the pipeline to exit after SIGTERM.
// Closing a camera device and flushing the detections log can take a moment.
const stopWaitTimeout = 15 * time.Second

// newStopCmd creates the "wingwatch stop" subcommand.
func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the background capture pipeline",
		Long:  "Sends SIGTERM to the pipeline process and waits for it to finish the\ncurrent cycle and exit.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()

			status, pid, err := DaemonStatus(cfg.PIDPath)
			if err != nil {
				return err
			}

			switch status {
			case StatusStopped:
				fmt.Fprintln(cmd.OutOrStdout(), "pipeline is not running")
				return nil
			case StatusStale:
				fmt.Fprintln(cmd.OutOrStdout(), "removing stale PID file (process already dead)")
				return RemovePIDFile(cfg.PIDPath)
			case StatusRunning:
				fmt.Fprintf(cmd.OutOrStdout(), "sending SIGTERM to pipeline (PID %d)\n", pid)
				if err := StopDaemon(cfg.PIDPath); err != nil {
					return err
				}

				deadline := time.Now().Add(stopWaitTimeout)
				for time.Now().Before(deadline) {
					if !IsProcessAlive(pid) {
						fmt.Fprintln(cmd.OutOrStdout(), "pipeline stopped")
						return nil
					}
					time.Sleep(pidPollInterval)
				}
				return fmt.Errorf("pipeline (PID %d) still running after %s", pid, stopWaitTimeout)
			}

			return nil
		},
	}
}
