package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/config"
	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/extract"
	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/fingerprint"
)

var facesExtractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Detect and store face embeddings for all library images",
	Long: `Walk the photo library, detect faces in every image, and store their
embeddings in PostgreSQL. Each face is stored with its embedding
(512 dimensions), bounding box, and detection score.

The process can be stopped and resumed - already processed images are skipped.

Examples:
  # Detect faces in all images (5 concurrent workers)
  photo-tool faces extract

  # Use different concurrency
  photo-tool faces extract --concurrency 3

  # Reprocess everything, including images already done
  photo-tool faces extract --force`,
	RunE: runFacesExtract,
}

func init() {
	facesCmd.AddCommand(facesExtractCmd)

	facesExtractCmd.Flags().Int("concurrency", 5, "Number of parallel workers")
	facesExtractCmd.Flags().Bool("force", false, "Reprocess images already marked as processed")
	facesExtractCmd.Flags().Float64("min-score", 0, "Minimum detection score (0 = use configured default)")
}

func runFacesExtract(cmd *cobra.Command, args []string) error {
	concurrency := mustGetInt(cmd, "concurrency")
	force := mustGetBool(cmd, "force")
	minScore := mustGetFloat64(cmd, "min-score")

	ctx := context.Background()
	cfg := config.Load()

	if cfg.Library.Root == "" {
		return errors.New("LIBRARY_ROOT environment variable is required")
	}

	fmt.Println("Connecting to PostgreSQL...")
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	faceCount, _ := store.CountFaces(ctx)
	fmt.Printf("Faces in database: %d\n", faceCount)

	detector := fingerprint.NewClient(cfg.Embedding.URL, cfg.Embedding.Model)
	source := &extract.DirSource{
		Root:         cfg.Library.Root,
		HEICProxyDir: cfg.Library.HEICProxyDir,
		RawProxyDir:  cfg.Library.RawProxyDir,
	}

	if minScore == 0 {
		minScore = cfg.Embedding.MinScore
	}

	svc := extract.NewService(source, detector, store)
	summary, err := svc.Run(ctx, extract.Options{
		Concurrency: concurrency,
		MinScore:    minScore,
		MaxSize:     cfg.Embedding.MaxSize,
		Force:       force,
		Progress:    true,
	})
	if err != nil {
		return err
	}

	fmt.Printf("\nCompleted: %d images processed, %d skipped, %d errors\n",
		summary.ImagesProcessed, summary.ImagesSkipped, len(summary.Failures))
	fmt.Printf("Faces found: %d (%d newly stored)\n", summary.FacesFound, summary.FacesStored)

	for _, f := range summary.Failures {
		fmt.Printf("  Failed: %v\n", f)
	}

	finalCount, _ := store.CountFaces(ctx)
	fmt.Printf("Total faces in database: %d\n", finalCount)
	return nil
}
