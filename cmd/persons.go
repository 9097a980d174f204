package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/config"
)

var personsCmd = &cobra.Command{
	Use:   "persons",
	Short: "List, rename, and clean up persons",
}

var personsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all persons with face counts",
	RunE:  runPersonsList,
}

var personsRenameCmd = &cobra.Command{
	Use:   "rename <person-id> <name>",
	Short: "Name or rename a person",
	Long: `Set a person's name. When another person already carries the same name
(after normalization) the two are merged and the faces move to the
existing person.

Examples:
  photo-tool persons rename 7 "Alice Smith"`,
	Args: cobra.ExactArgs(2),
	RunE: runPersonsRename,
}

var personsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete persons without any confirmed face",
	Long: `Delete every person that has no confirmed face. Member faces keep
their rows and embeddings; only the assignment is cleared, so the next
clustering run can group them again.

Requires --confirm to actually delete.`,
	RunE: runPersonsClear,
}

func init() {
	rootCmd.AddCommand(personsCmd)
	personsCmd.AddCommand(personsListCmd)
	personsCmd.AddCommand(personsRenameCmd)
	personsCmd.AddCommand(personsClearCmd)

	personsListCmd.Flags().Bool("json", false, "Output as JSON")
	personsClearCmd.Flags().Bool("confirm", false, "Actually delete the persons")
}

func runPersonsList(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	cfg := config.Load()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.PersonStats(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(stats)
	}

	if len(stats) == 0 {
		fmt.Println("No persons yet. Run 'photo-tool faces cluster' first.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tFACES\tCONFIRMED\tIMAGES\tAVG SCORE")
	fmt.Fprintln(w, "--\t----\t-----\t---------\t------\t---------")
	for _, p := range stats {
		name := "-"
		if p.Name != nil {
			name = *p.Name
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\t%.2f\n",
			p.PersonID, name, p.FaceCount, p.Confirmed, p.ImageCount, p.MeanDetScore)
	}
	w.Flush()
	return nil
}

func runPersonsRename(cmd *cobra.Command, args []string) error {
	personID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid person ID %q", args[0])
	}
	name := args[1]

	ctx := context.Background()
	cfg := config.Load()

	svc, store, err := openIdentity(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	survivor, err := svc.Rename(ctx, personID, name)
	if err != nil {
		return err
	}
	if survivor != personID {
		fmt.Printf("Person %d merged into existing person %d (%q)\n", personID, survivor, name)
		return nil
	}
	fmt.Printf("Person %d renamed to %q\n", personID, name)
	return nil
}

func runPersonsClear(cmd *cobra.Command, args []string) error {
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

	deleted, err := svc.DeleteUnconfirmedPersons(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %d unconfirmed persons\n", deleted)
	return nil
}
