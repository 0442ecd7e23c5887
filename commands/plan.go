package commands

import (
	"github.com/spf13/cobra"

	"shower-scraper/services"
)

func init() {
	rootCmd.AddCommand(planCmd)
}

var planCmd = &cobra.Command{
	Use:   "plan [region]",
	Short: "Prints the searches a run would issue, without opening a browser.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := load(args)
		if err != nil {
			return err
		}
		planner := services.NewPlanner()
		insights := services.NewInsightService(s.logger)
		for _, r := range s.regions {
			insights.PrintPlan(cmd.OutOrStdout(), r, planner.Plan(r))
		}
		return nil
	},
}
