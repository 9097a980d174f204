package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/config"
)

var facesClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all unconfirmed faces",
	Long: `Delete every face that has not been confirmed. Confirmed faces are
kept. Use this to start over after changing detection settings; the
next extraction run will repopulate the deleted faces.

Requires --confirm to actually delete.`,
	RunE: runFacesClear,
}

func init() {
	facesCmd.AddCommand(facesClearCmd)

	facesClearCmd.Flags().Bool("confirm", false, "Actually delete the faces")
}

func runFacesClear(cmd *cobra.Command, args []string) error {
	if !mustGetBool(cmd, "confirm") {
		return errors.New("refusing to delete without --confirm")
	}

	ctx := context.Background()
	cfg := config.Load()

	svc, store, err := openIdentity(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	deleted, err := svc.DeleteUnconfirmedFaces(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %d unconfirmed faces\n", deleted)
	return nil
}
