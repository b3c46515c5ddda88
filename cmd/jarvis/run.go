package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/mission"
	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/workflow"
)

var runCmd = &cobra.Command{
	Use:   "run <definition.yaml>",
	Short: "Submit a mission definition and run it to completion",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	def, err := mission.ParseDefinition(args[0])
	if err != nil {
		return err
	}
	m, err := def.Build()
	if err != nil {
		return err
	}

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.orch.RunMission(cmd.Context(), m)
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

// printRunResult renders the final per-task table, step IDs sorted for
// stable output.
func printRunResult(cmd *cobra.Command, result *workflow.RunResult) {
	cmd.Printf("Run %s\n", result.RunID)

	ids := make([]string, 0, len(result.Tasks))
	for id := range result.Tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		report := result.Tasks[id]
		line := fmt.Sprintf("  %-20s %-10s %s", report.StepID, report.State, report.Capability)
		if report.Error != "" {
			line += "  (" + report.Error + ")"
		}
		cmd.Println(line)
	}
	cmd.Printf("Completed: %d  Failed: %d\n", result.Completed, result.Failed)
}

// printPendingApprovals reminds the operator of parked escalations.
func printPendingApprovals(cmd *cobra.Command, a *app) {
	pending := a.orch.Approvals().Pending()
	if len(pending) == 0 {
		return
	}
	cmd.Printf("\n%d artifact(s) awaiting human review:\n", len(pending))
	for _, approval := range pending {
		cmd.Printf("  approval %s  step %s  risk %.2f\n",
			approval.ID, approval.StepID, approval.Verdict.Risk)
	}
}
