package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var planFull bool

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the campaign plan and this week's batch",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		week, err := e.planner.CurrentWeek()
		if err != nil {
			return err
		}
		plan := e.planner.BuildFullPlan()

		if planFull {
			for _, wb := range plan.Weeks {
				fmt.Printf("Week %2d  %-20s %d directories\n",
					wb.WeekNumber, wb.Phase, len(wb.Directories))
			}
			if len(plan.Unscheduled) > 0 {
				fmt.Printf("\nUnscheduled beyond week %d: %d directories\n",
					len(plan.Weeks), len(plan.Unscheduled))
			}
		}

		batch, err := e.planner.ThisWeeksBatch()
		if err != nil {
			return err
		}
		fmt.Printf("\nCurrent week: %d (%s)\n", week, batch.Phase)
		if batch.WeekDone() {
			fmt.Println("This week's batch is complete (ahead of schedule).")
			return nil
		}
		fmt.Printf("Remaining this week (%d done):\n", batch.Completed)
		for _, d := range batch.Remaining {
			fmt.Printf("  DR %3d  %-30s %s\n", d.DomainRating, d.Name, d.URL)
		}
		return nil
	},
}

func init() {
	planCmd.Flags().BoolVar(&planFull, "full", false, "print all 30 weeks")
}
