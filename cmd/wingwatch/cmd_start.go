package main

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"wingwatch/internal/config"

	"github.com/spf13/cobra"
)

// pidPollTimeout is the maximum time to wait for the pipeline to come up.
// Opening a camera device can take a few seconds.
const pidPollTimeout = 10 * time.Second

// pidPollInterval is how often to check for the PID file.
const pidPollInterval = 100 * time.Millisecond

// newStartCmd creates the "wingwatch start" subcommand.
func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the capture pipeline in the background",
		Long:  "Spawns a background pipeline process and waits until it has opened\nits frame source and written its PID file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()

			status, pid, err := DaemonStatus(cfg.PIDPath)
			if err != nil {
				return err
			}
			switch status {
			case StatusRunning:
				fmt.Fprintf(cmd.OutOrStdout(), "pipeline already running (PID %d)\n", pid)
				return nil
			case StatusStale:
				_ = RemovePIDFile(cfg.PIDPath)
			case StatusStopped:
			}

			child := exec.Command(os.Args[0], "run") //nolint:gosec // intentionally re-executing self
			child.Stdout = os.Stdout
			child.Stderr = os.Stderr
			if err := child.Start(); err != nil {
				return fmt.Errorf("spawn pipeline: %w", err)
			}
			// Reap the child if it dies during startup so a failed start does
			// not leave a zombie behind.
			go func() { _ = child.Wait() }()

			deadline := time.Now().Add(pidPollTimeout)
			for time.Now().Before(deadline) {
				st, pid, statusErr := DaemonStatus(cfg.PIDPath)
				if statusErr == nil && st == StatusRunning {
					fmt.Fprintf(cmd.OutOrStdout(), "pipeline started (PID %d)\n", pid)
					return nil
				}
				if !IsProcessAlive(child.Process.Pid) {
					return fmt.Errorf("pipeline process exited during startup")
				}
				time.Sleep(pidPollInterval)
			}
			return fmt.Errorf("pipeline not ready after %s", pidPollTimeout)
		},
	}
}
