// Package cmd implements the facescan command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "facescan",
	Short: "Match face photos against a reference gallery",
	Long: `facescan extracts a face descriptor from a probe image and ranks the
identities of a reference gallery by cosine similarity. It runs as a web
service with per-account scan history and reports, or as a one-shot CLI.

Settings come from the environment. A .env file in the working directory
(or the file named by --env-file) is loaded first and never overrides
variables that are already set.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadEnvFile(mustFlag("env-file", cmd.Flags().GetString))
	},
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("env-file", "", "Environment file to load (default: .env if present)")
}

// loadEnvFile loads path, or .env when path is empty. Only an explicitly
// named file is required to exist.
func loadEnvFile(path string) error {
	if path == "" {
		_ = godotenv.Load()
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}
