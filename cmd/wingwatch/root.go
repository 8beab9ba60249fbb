package main

import (
	"github.com/spf13/cobra"
)

const version = "0.3.1"

// newRootCmd creates the root wingwatch command with all subcommands attached.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "wingwatch",
		Short:         "Motion-gated wildlife camera pipeline",
		Long:          "wingwatch watches a camera feed, runs object detection when the scene\nchanges, and appends every accepted sighting to a detections log.",
		Version:       "wingwatch " + version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("{{.Version}}\n")

	cmd.AddCommand(
		newRunCmd(),
		newStartCmd(),
		newStopCmd(),
		newStatusCmd(),
		newQueryCmd(),
		newLogsCmd(),
		newCaptureCmd(),
	)

	return cmd
}
