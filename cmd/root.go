package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "photo-tool",
	Short: "A CLI tool for organizing a personal photo library by the people in it",
	Long: `Photo Tool scans a local photo library, detects faces with an embedding
service, clusters them into identities, and lets you confirm and name the
people it finds. Confirmed labels survive every later re-clustering run.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
