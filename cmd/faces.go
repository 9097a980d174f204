package cmd

import (
	"github.com/spf13/cobra"
)

var facesCmd = &cobra.Command{
	Use:   "faces",
	Short: "Detect, cluster, and label faces",
	Long: `Commands for working with faces: detect them in the library, cluster
them into identities, confirm labels, and inspect similar faces.`,
}

func init() {
	rootCmd.AddCommand(facesCmd)
}
