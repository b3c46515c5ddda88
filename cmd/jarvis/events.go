package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/types"
)

var (
	eventTypeFilter string
	eventStepFilter string
)

var eventsCmd = &cobra.Command{
	Use:   "events <run-id>",
	Short: "Replay a run's event log in append order",
	Args:  cobra.ExactArgs(1),
	RunE:  runEvents,
}

func runEvents(cmd *cobra.Command, args []string) error {
	runID, err := types.ParseID(args[0])
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", args[0], err)
	}

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	events, err := a.events.Replay(cmd.Context(), runID)
	if err != nil {
		return err
	}

	for _, event := range events {
		if eventTypeFilter != "" && string(event.Type) != eventTypeFilter {
			continue
		}
		if eventStepFilter != "" && event.StepID != eventStepFilter {
			continue
		}
		cmd.Printf("%6d  %s  %-8s  %-10s  %s\n",
			event.Seq,
			event.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			event.Type,
			event.Status,
			event.StepID,
		)
	}
	return nil
}

func init() {
	eventsCmd.Flags().StringVar(&eventTypeFilter, "type", "", "Filter by event type (start, complete, error)")
	eventsCmd.Flags().StringVar(&eventStepFilter, "step", "", "Filter by step id")
}
