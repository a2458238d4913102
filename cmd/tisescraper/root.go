package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "1.0.0"

	// Global flags
	configFile string
	logLevel   string
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "tisescraper",
	Short: "Incrementally mirror Tise profile listings to local storage",
	Long: `tisescraper monitors Tise.com marketplace profiles and mirrors their
listings to local storage: it discovers new listings since the last check,
downloads their images and metadata, and never re-downloads a listing it has
already seen.

Listings are deduplicated against a local SQLite database, so repeated runs
are idempotent. Images are normalized (WEBP converted to JPEG, oversized
images downscaled) and laid out per profile.`,
	Version: version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}
