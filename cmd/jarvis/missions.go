package main

import (
	"github.com/spf13/cobra"
)

var missionsCmd = &cobra.Command{
	Use:   "missions",
	Short: "List persisted missions with their progress",
	Args:  cobra.NoArgs,
	RunE:  runMissions,
}

func runMissions(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	missions, err := a.store.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(missions) == 0 {
		cmd.Println("No missions found")
		return nil
	}

	for _, m := range missions {
		p := m.Progress()
		cmd.Printf("%s  %-30s  %s  %d/%d done (%d failed)\n",
			m.ID, m.Title, m.RiskLevel, p.Succeeded, p.TotalNodes, p.Failed)
	}
	return nil
}
