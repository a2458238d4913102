package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tisescraper/pkg/tise"
)

var addCmd = &cobra.Command{
	Use:   "add <profile-url-or-handle>",
	Short: "Add a profile to monitor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		arg := strings.TrimSpace(args[0])
		profileURL := arg
		if !strings.Contains(arg, "/") {
			profileURL = tise.ProfileURL(a.cfg.Tise.SiteURL, arg)
		}
		handle := tise.HandleFromProfileURL(profileURL)

		created, err := a.store.AddProfile(profileURL, handle)
		if err != nil {
			return fmt.Errorf("failed to add profile: %w", err)
		}
		if created {
			fmt.Printf("Added profile: %s\n", profileURL)
		} else {
			fmt.Printf("Profile already monitored: %s\n", profileURL)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
}
