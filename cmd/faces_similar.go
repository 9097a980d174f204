package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/config"
)

var facesSimilarCmd = &cobra.Command{
	Use:   "similar <face-id>",
	Short: "Find the most similar faces to a given face",
	Long: `Search the face index for the nearest neighbors of a face by cosine
distance. Useful for checking who a face probably belongs to before
confirming it.

Examples:
  # Ten nearest faces to face 42
  photo-tool faces similar 42

  # More neighbors, as JSON
  photo-tool faces similar 42 --limit 25 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runFacesSimilar,
}

func init() {
	facesCmd.AddCommand(facesSimilarCmd)

	facesSimilarCmd.Flags().Int("limit", 10, "Number of neighbors to return")
	facesSimilarCmd.Flags().Bool("json", false, "Output as JSON")
}

func runFacesSimilar(cmd *cobra.Command, args []string) error {
	faceID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid face ID %q", args[0])
	}
	limit := mustGetInt(cmd, "limit")
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	cfg := config.Load()

	svc, store, err := openIdentity(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	similar, err := svc.SimilarFaces(ctx, faceID, limit)
	if err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(similar)
	}

	if len(similar) == 0 {
		fmt.Println("No similar faces found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FACE\tDISTANCE\tIMAGE\tPERSON\tCONFIRMED")
	fmt.Fprintln(w, "----\t--------\t-----\t------\t---------")
	for _, s := range similar {
		person := "-"
		if s.Face.PersonID != nil {
			person = strconv.FormatInt(*s.Face.PersonID, 10)
		}
		fmt.Fprintf(w, "%d\t%.4f\t%s\t%s\t%t\n",
			s.Face.ID, s.Distance, s.Face.ImageID, person, s.Face.Confirmed)
	}
	w.Flush()
	return nil
}
