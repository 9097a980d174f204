package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/config"
	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/identity"
)

var facesClusterNewCmd = &cobra.Command{
	Use:   "cluster-new",
	Short: "Cluster only faces without an assignment",
	Long: `Incrementally cluster faces that have no person yet. Centroids of
persons with confirmed faces act as fixed anchors: a new face within
eps of an anchor joins that person directly. The remaining faces are
clustered among themselves and reconciled against known persons.

The pass repeats until no new assignments are made or the iteration
limit is reached. Existing assignments are never changed.

Examples:
  # Incremental clustering with configured defaults
  photo-tool faces cluster-new

  # Single pass only
  photo-tool faces cluster-new --max-iterations 1`,
	RunE: runFacesClusterNew,
}

func init() {
	facesCmd.AddCommand(facesClusterNewCmd)

	facesClusterNewCmd.Flags().Float64("eps", 0, "Maximum cosine distance between neighbors (0 = configured default)")
	facesClusterNewCmd.Flags().Int("min-samples", 0, "Minimum neighborhood size for a core point (0 = configured default)")
	facesClusterNewCmd.Flags().Float64("match-threshold", 0, "Maximum centroid distance to join an existing person (0 = configured default)")
	facesClusterNewCmd.Flags().Int("max-iterations", 0, "Maximum number of passes (0 = configured default)")
}

func runFacesClusterNew(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	svc, store, err := openIdentity(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Println("Running incremental clustering...")
	summary, err := svc.RunIncrementalLoop(ctx, identity.IncrementalOptions{
		Eps:            mustGetFloat64(cmd, "eps"),
		MinSamples:     mustGetInt(cmd, "min-samples"),
		MatchThreshold: mustGetFloat64(cmd, "match-threshold"),
		MaxIterations:  mustGetInt(cmd, "max-iterations"),
	})
	if err != nil {
		return err
	}

	printRunSummary(summary)
	return nil
}
