package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show scraping and download statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		stats, err := a.monitor.CollectStats()
		if err != nil {
			return err
		}

		fmt.Println("==================================================")
		fmt.Println("TISE MIRROR STATISTICS")
		fmt.Println("==================================================")
		fmt.Printf("Active profiles:       %d\n", stats.Store.ActiveProfiles)
		fmt.Printf("Total listings:        %d\n", stats.Store.TotalListings)
		fmt.Printf("Downloaded listings:   %d\n", stats.Store.DownloadedListings)
		fmt.Printf("Recent listings (24h): %d\n", stats.Store.RecentListings)
		fmt.Printf("Download rate:         %.1f%%\n", stats.Store.DownloadPercent)
		fmt.Printf("Files on disk:         %d\n", stats.FileCount)
		fmt.Printf("Total size:            %.1f MB\n", stats.TotalMB)
		fmt.Printf("Downloads folder:      %s\n", stats.Root)
		fmt.Println("==================================================")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
