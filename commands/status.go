package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"shower-scraper/services"
	"shower-scraper/storage"
)

var errUnreadableDataset = errors.New("some datasets could not be read")

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status [region]",
	Short: "Summarises the persisted datasets.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := load(args)
		if err != nil {
			return err
		}
		store, err := storage.NewJSONStore(s.cfg.DataDir, s.logger)
		if err != nil {
			return err
		}

		insights := services.NewInsightService(s.logger)
		var sums []services.DatasetSummary
		failed := false
		for _, r := range s.regions {
			ds, err := store.Load(r.ID)
			if err != nil {
				s.logger.Error("%s: %v", r.ID, err)
				failed = true
				continue
			}
			sums = append(sums, insights.Summarise(ds))
		}
		insights.PrintDatasets(cmd.OutOrStdout(), sums)
		if failed {
			return errUnreadableDataset
		}
		return nil
	},
}
