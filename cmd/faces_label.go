package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/config"
)

var facesLabelCmd = &cobra.Command{
	Use:   "label <face-id>",
	Short: "Confirm a face as belonging to a person",
	Long: `Confirm a face assignment. Confirmed faces are locked: clustering runs
never move them, and re-labeling requires --force.

Use --name to label by person name. Names are matched after
normalization, so "Jiri Novak" and "jiří-novák" refer to the same
person; a new person is created when the name is unknown.

Use --person to confirm the face into an existing person by ID.

Examples:
  # Confirm face 42 as Alice (creates the person if needed)
  photo-tool faces label 42 --name "Alice"

  # Confirm face 42 into person 7
  photo-tool faces label 42 --person 7

  # Move an already confirmed face
  photo-tool faces label 42 --name "Bob" --force`,
	Args: cobra.ExactArgs(1),
	RunE: runFacesLabel,
}

func init() {
	facesCmd.AddCommand(facesLabelCmd)

	facesLabelCmd.Flags().String("name", "", "Person name to confirm the face as")
	facesLabelCmd.Flags().Int("person", 0, "Existing person ID to confirm the face into")
	facesLabelCmd.Flags().Bool("force", false, "Allow re-labeling an already confirmed face")
}

func runFacesLabel(cmd *cobra.Command, args []string) error {
	faceID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid face ID %q", args[0])
	}

	name := mustGetString(cmd, "name")
	personID := mustGetInt(cmd, "person")
	force := mustGetBool(cmd, "force")

	if name == "" && personID == 0 {
		return errors.New("either --name or --person is required")
	}
	if name != "" && personID != 0 {
		return errors.New("--name and --person are mutually exclusive")
	}

	ctx := context.Background()
	cfg := config.Load()

	svc, store, err := openIdentity(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if name != "" {
		pid, err := svc.ConfirmAs(ctx, faceID, name, force)
		if err != nil {
			return err
		}
		fmt.Printf("Face %d confirmed as %q (person %d)\n", faceID, name, pid)
		return nil
	}

	if err := svc.Confirm(ctx, faceID, int64(personID), force); err != nil {
		return err
	}
	fmt.Printf("Face %d confirmed into person %d\n", faceID, personID)
	return nil
}
