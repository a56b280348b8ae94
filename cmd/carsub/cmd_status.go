package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show ledger stats and recent attempts",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		if statusJSON {
			data, err := e.store.ExportJSON()
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		stats, err := e.store.Stats()
		if err != nil {
			return err
		}
		fmt.Printf("Ledger: %d submitted, %d pending, %d failed, %d skipped (%d attempts)\n",
			stats.Submitted, stats.Pending, stats.Failed, stats.Skipped, stats.Total())

		entries, err := e.store.Entries()
		if err != nil {
			return err
		}
		tail := entries
		if len(tail) > 10 {
			tail = tail[len(tail)-10:]
		}
		if len(tail) > 0 {
			fmt.Println("\nRecent attempts:")
			for _, entry := range tail {
				fmt.Printf("  %s  %-22s %s\n",
					entry.Timestamp.Format("2006-01-02 15:04"), entry.Status, entry.URL)
			}
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "emit the full logical ledger as JSON")
}
