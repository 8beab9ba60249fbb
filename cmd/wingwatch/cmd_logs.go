package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"wingwatch/internal/config"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// logsConfig holds the flag values for the logs command.
type logsConfig struct {
	tail   int
	follow bool
}

// newLogsCmd creates the "wingwatch logs" subcommand.
func newLogsCmd() *cobra.Command {
	var lc logsConfig

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the pipeline log",
		Long:  "Prints the tail of the most recent pipeline log file and optionally\nfollows it as new entries arrive.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()

			path, err := latestLogFile(cfg.LogDirectory)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			size, err := printTail(w, path, lc.tail)
			if err != nil {
				return err
			}

			if !lc.follow {
				return nil
			}
			return followLog(cmd.Context(), w, path, size)
		},
	}

	cmd.Flags().IntVar(&lc.tail, "tail", 20, "number of recent lines to show")
	cmd.Flags().BoolVarP(&lc.follow, "follow", "f", false, "keep watching for new entries")

	return cmd
}

// latestLogFile returns the newest dated log file in the log directory.
func latestLogFile(logDir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(logDir, "wingwatch_*.log"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no log files in %s", logDir)
	}
	// Names embed the date, so lexicographic order is chronological.
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

// printTail prints the last n lines of the file and returns its size, so a
// follower can pick up where the tail ended.
func printTail(w io.Writer, path string, n int) (int64, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read log file: %w", err)
	}

	lines := strings.Split(string(content), "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	start := 0
	if len(lines) > n {
		start = len(lines) - n
	}
	for _, line := range lines[start:] {
		fmt.Fprintln(w, line)
	}

	return int64(len(content)), nil
}

// followLog watches the log file and prints new bytes as they are written.
// If the watcher cannot be set up it falls back to polling.
func followLog(ctx context.Context, w io.Writer, path string, lastSize int64) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return pollLog(ctx, w, path, lastSize)
	}
	defer watcher.Close()

	// Watch the directory rather than the file so rotation does not drop
	// the watch.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return pollLog(ctx, w, path, lastSize)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) || !event.Has(fsnotify.Write) {
				continue
			}
			if lastSize, err = copyNewBytes(w, path, lastSize); err != nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch log file: %w", err)
		}
	}
}

// pollLog checks the file for growth on a fixed interval.
func pollLog(ctx context.Context, w io.Writer, path string, lastSize int64) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			var err error
			if lastSize, err = copyNewBytes(w, path, lastSize); err != nil {
				return err
			}
		}
	}
}

// copyNewBytes writes any bytes appended since lastSize and returns the new
// offset. A shrunken file is treated as rotated and read from the top.
func copyNewBytes(w io.Writer, path string, lastSize int64) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return lastSize, nil
		}
		return lastSize, err
	}

	size := info.Size()
	if size < lastSize {
		lastSize = 0
	}
	if size == lastSize {
		return lastSize, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return lastSize, err
	}
	defer f.Close()

	if _, err := f.Seek(lastSize, io.SeekStart); err != nil {
		return lastSize, err
	}
	n, err := io.Copy(w, f)
	if err != nil {
		return lastSize, err
	}
	return lastSize + n, nil
}
