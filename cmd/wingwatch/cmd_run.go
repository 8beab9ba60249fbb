package main

import (
	"fmt"
	"os"

	"wingwatch/internal/app"
	"wingwatch/internal/config"

	"github.com/spf13/cobra"
)

// newRunCmd creates the "wingwatch run" subcommand.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the capture pipeline in the foreground",
		Long:  "Opens the frame source and inference engine, then processes frames\nuntil interrupted. Ctrl-C shuts the pipeline down cleanly.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()

			status, pid, err := DaemonStatus(cfg.PIDPath)
			if err != nil {
				return err
			}
			switch status {
			case StatusRunning:
				return fmt.Errorf("pipeline already running (PID %d)", pid)
			case StatusStale:
				_ = RemovePIDFile(cfg.PIDPath)
			case StatusStopped:
			}

			a, err := app.NewApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := WritePIDFile(cfg.PIDPath, os.Getpid()); err != nil {
				return err
			}

			ctx, cleanup := SetupSignalHandler(cmd.Context(), cfg.PIDPath)
			defer cleanup()

			return a.Run(ctx)
		},
	}
}
