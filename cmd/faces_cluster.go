package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/config"
	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/identity"
)

var facesClusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Re-cluster all unconfirmed faces from scratch",
	Long: `Run a full DBSCAN clustering over every unconfirmed face. Existing
unconfirmed assignments are discarded and rebuilt; confirmed faces and
their persons are never touched. Clusters close to a confirmed person
are routed to that person instead of creating a duplicate.

Examples:
  # Cluster with configured defaults
  photo-tool faces cluster

  # Tighter clusters
  photo-tool faces cluster --eps 0.3 --min-samples 20`,
	RunE: runFacesCluster,
}

func init() {
	facesCmd.AddCommand(facesClusterCmd)

	facesClusterCmd.Flags().Float64("eps", 0, "Maximum cosine distance between neighbors (0 = configured default)")
	facesClusterCmd.Flags().Int("min-samples", 0, "Minimum neighborhood size for a core point (0 = configured default)")
	facesClusterCmd.Flags().Float64("match-threshold", 0, "Maximum centroid distance to join an existing person (0 = configured default)")
}

func runFacesCluster(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	svc, store, err := openIdentity(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Println("Running full re-cluster...")
	summary, err := svc.RunFullRecluster(ctx, identity.FullOptions{
		Eps:            mustGetFloat64(cmd, "eps"),
		MinSamples:     mustGetInt(cmd, "min-samples"),
		MatchThreshold: mustGetFloat64(cmd, "match-threshold"),
	})
	if err != nil {
		return err
	}

	printRunSummary(summary)
	return nil
}

func printRunSummary(s *identity.RunSummary) {
	fmt.Printf("\nFaces considered:  %d\n", s.FacesConsidered)
	fmt.Printf("Clusters formed:   %d\n", s.ClustersFormed)
	fmt.Printf("Noise faces:       %d\n", s.Noise)
	fmt.Printf("Persons created:   %d\n", s.PersonsCreated)
	fmt.Printf("Persons matched:   %d\n", s.PersonsMatched)
	fmt.Printf("Faces assigned:    %d\n", s.FacesAssigned)
	if s.Iterations > 0 {
		fmt.Printf("Iterations:        %d\n", s.Iterations)
	}
}
