package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kstephens0331/carsub/internal/schedule"
)

var preflightCmd = &cobra.Command{
	Use:   "preflight",
	Short: "Show whether a session may start right now",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		loc, err := e.cfg.Location()
		if err != nil {
			return err
		}
		scheduler := schedule.New(e.cfg.Scheduler, loc, e.store)

		verdict, err := scheduler.Check()
		if err != nil {
			return err
		}
		if verdict.CanRun {
			fmt.Printf("OK: up to %d submissions may start now\n", verdict.Allowance)
		} else {
			fmt.Printf("Blocked: %s\n", verdict.Reason)
		}

		plan, err := scheduler.WeeklyPlan()
		if err != nil {
			return err
		}
		fmt.Println("\nRemaining weekly plan:")
		for _, day := range plan {
			fmt.Printf("  %s  %d\n", day.Date.Format("Mon Jan 02"), day.Count)
		}
		return nil
	},
}
