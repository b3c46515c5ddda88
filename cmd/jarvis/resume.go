package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/types"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <run-id>",
	Short: "Resume an interrupted run, skipping already-succeeded steps",
	Args:  cobra.ExactArgs(1),
	RunE:  runResume,
}

func runResume(cmd *cobra.Command, args []string) error {
	runID, err := types.ParseID(args[0])
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", args[0], err)
	}

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.orch.ResumeMission(cmd.Context(), runID)
	if err != nil {
		return err
	}

	printRunResult(cmd, result)
	printPendingApprovals(cmd, a)
	if !result.Succeeded {
		return fmt.Errorf("mission finished with %d failed task(s)", result.Failed)
	}
	return nil
}
