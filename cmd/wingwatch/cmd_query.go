package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"wingwatch/internal/config"
	"wingwatch/internal/dto"
	"wingwatch/internal/models"
	"wingwatch/internal/recorder"
	"wingwatch/internal/repository/sqlite"

	"github.com/spf13/cobra"
)

// queryConfig holds the flag values for the query command.
type queryConfig struct {
	label         string
	since         string
	until         string
	minConfidence float64
	runID         string
	limit         int
	asJSON        bool
}

// newQueryCmd creates the "wingwatch query" subcommand.
func newQueryCmd() *cobra.Command {
	var qc queryConfig

	cmd := &cobra.Command{
		Use:   "query",
		Short: "List recorded detection events",
		Long:  "Lists events newest first, filtered by label, time range, confidence\nor run. Uses the SQLite index when configured, otherwise scans the\ndetections log.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()

			filter := &dto.EventFilter{
				Label:         qc.label,
				MinConfidence: qc.minConfidence,
				RunID:         qc.runID,
				Limit:         qc.limit,
			}
			var err error
			if qc.since != "" {
				if filter.Since, err = parseTimeFlag(qc.since); err != nil {
					return err
				}
			}
			if qc.until != "" {
				if filter.Until, err = parseTimeFlag(qc.until); err != nil {
					return err
				}
			}

			events, err := loadEvents(cfg, filter)
			if err != nil {
				return err
			}

			return printEvents(cmd.OutOrStdout(), events, qc.asJSON)
		},
	}

	cmd.Flags().StringVar(&qc.label, "label", "", "only events with this label")
	cmd.Flags().StringVar(&qc.since, "since", "", "only events at or after this time (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&qc.until, "until", "", "only events at or before this time (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().Float64Var(&qc.minConfidence, "min-confidence", 0, "only events at or above this confidence")
	cmd.Flags().StringVar(&qc.runID, "run", "", "only events from this run")
	cmd.Flags().IntVar(&qc.limit, "limit", 50, "maximum number of events to show (0 for all)")
	cmd.Flags().BoolVar(&qc.asJSON, "json", false, "print events as JSON")

	return cmd
}

// loadEvents reads events from the SQLite index when one is configured and
// falls back to scanning the detections log otherwise.
func loadEvents(cfg *config.Config, filter *dto.EventFilter) ([]models.Event, error) {
	if cfg.DBPath != "" {
		db, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open event index: %w", err)
		}
		defer db.Close()
		return sqlite.NewEventRepository(db).GetAll(filter)
	}

	all, err := recorder.ReadEvents(cfg.DetectionsLog)
	if err != nil {
		return nil, fmt.Errorf("read detections log: %w", err)
	}

	// The log is chronological; walk it backwards so output is newest first.
	var events []models.Event
	for i := len(all) - 1; i >= 0; i-- {
		if !matchEvent(all[i], filter) {
			continue
		}
		events = append(events, all[i])
		if filter.Limit > 0 && len(events) >= filter.Limit {
			break
		}
	}
	return events, nil
}

// matchEvent applies the filter to a single event read from the log.
func matchEvent(event models.Event, filter *dto.EventFilter) bool {
	if filter.Label != "" && event.Label != filter.Label {
		return false
	}
	if filter.RunID != "" && event.RunID != filter.RunID {
		return false
	}
	if !filter.Since.IsZero() && event.Timestamp.Before(filter.Since) {
		return false
	}
	if !filter.Until.IsZero() && event.Timestamp.After(filter.Until) {
		return false
	}
	if filter.MinConfidence > 0 && event.Confidence < filter.MinConfidence {
		return false
	}
	return true
}

// printEvents writes events as a table or as a JSON array.
func printEvents(w io.Writer, events []models.Event, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if events == nil {
			events = []models.Event{}
		}
		return enc.Encode(events)
	}

	if len(events) == 0 {
		fmt.Fprintln(w, "no events found")
		return nil
	}
	for _, event := range events {
		fmt.Fprintf(w, "%s | %-12s | %4.2f | %s\n",
			event.Timestamp.Format(time.RFC3339), event.Label, event.Confidence, event.ImagePath)
	}
	return nil
}

// parseTimeFlag accepts either a full RFC3339 timestamp or a bare date.
func parseTimeFlag(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: want RFC3339 or YYYY-MM-DD", value)
	}
	return t, nil
}
