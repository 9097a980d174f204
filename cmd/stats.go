package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/config"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show face and person statistics",
	Long: `Print aggregate statistics: total faces, how many are assigned and
confirmed, and a per-person breakdown. Numbers are recomputed from the
database on every call.`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().Bool("json", false, "Output as JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	cfg := config.Load()

	svc, store, err := openIdentity(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := svc.Stats(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(stats)
	}

	fmt.Printf("Total faces:      %d\n", stats.TotalFaces)
	fmt.Printf("Assigned faces:   %d\n", stats.AssignedFaces)
	fmt.Printf("Confirmed faces:  %d\n", stats.ConfirmedFaces)
	fmt.Printf("Unassigned faces: %d\n", stats.UnassignedFaces)
	fmt.Printf("Persons:          %d\n", len(stats.Persons))
	return nil
}
