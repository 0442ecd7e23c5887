package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"shower-scraper/config"
	"shower-scraper/crawler"
	"shower-scraper/models"
	"shower-scraper/scraper/gmaps"
	"shower-scraper/services"
	"shower-scraper/storage"
	"shower-scraper/utils"
)

var errRegionFailed = errors.New("at least one region failed")

var (
	regionsFile string
	dataDir     string
	concurrency int
)

var rootCmd = &cobra.Command{
	Use:   "shower-scraper [region]",
	Short: "Discovers and verifies public shower facilities per region.",
	Long: "Runs every configured region, or only the named one, through search, review " +
		"verification and de-duplication, and merges the results into <data-dir>/<region>.json.",
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRegions,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&regionsFile, "regions", "", "region definitions file (json5 or toml), overrides REGIONS_FILE")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "output directory for region datasets, overrides DATA_DIR")
	rootCmd.Flags().IntVar(&concurrency, "concurrency", 0, "regions processed in parallel, overrides MAX_CONCURRENCY")
}

// ExecuteContext runs the command line and returns its error, leaving the
// exit status to the caller.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

type settings struct {
	cfg     *config.Config
	regions []models.Region
	logger  *utils.Logger
}

// load reads the environment and region file, applies flag overrides and
// narrows the regions to args[0] when given.
func load(args []string) (*settings, error) {
	cfg := config.Load()
	if regionsFile != "" {
		cfg.RegionsFile = regionsFile
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if concurrency > 0 {
		cfg.MaxConcurrency = concurrency
	}

	logger := utils.NewLogger()
	logger.SetLevel(utils.ParseLevel(cfg.LogLevel))

	regions, err := config.ReadRegions(cfg.RegionsFile)
	if err != nil {
		return nil, fmt.Errorf("load regions: %w", err)
	}
	if len(args) == 1 {
		region, err := config.SelectRegion(regions, args[0])
		if err != nil {
			return nil, err
		}
		regions = []models.Region{region}
	}
	return &settings{cfg: cfg, regions: regions, logger: logger}, nil
}

func runRegions(cmd *cobra.Command, args []string) error {
	s, err := load(args)
	if err != nil {
		return err
	}
	cfg, logger := s.cfg, s.logger

	logger.Info("=== Shower scraper starting ===")
	logger.Info("Config: %d region(s) | concurrency: %d | results/query: %d | reviews/place: %d (%s) | delay: %v-%v",
		len(s.regions), cfg.MaxConcurrency, cfg.MaxResultsPerQuery, cfg.ReviewSampleSize, cfg.ReviewOrder, cfg.DelayMin, cfg.DelayMax)

	store, err := storage.NewJSONStore(cfg.DataDir, logger)
	if err != nil {
		return err
	}

	var opts []crawler.Option
	audit, err := storage.NewCSVWriter(cfg.AuditCSVPath)
	if err != nil {
		logger.Warn("Audit log disabled: %v", err)
	} else {
		defer audit.Close()
		opts = append(opts, crawler.WithAudit(audit))
	}

	if cfg.PostgresMirror {
		mirror, err := storage.NewPostgresWriter(cfg.DSN())
		if err != nil {
			logger.Error("Failed to connect to PostgreSQL: %v", err)
			return err
		}
		defer mirror.Close()
		opts = append(opts, crawler.WithMirror(mirror))
	}

	sessions := gmaps.Factory(gmaps.OptionsFromConfig(cfg), logger)
	orch := crawler.New(crawler.ConfigFrom(cfg), store, sessions, logger, opts...)
	report := orch.Run(cmd.Context(), s.regions)

	insights := services.NewInsightService(logger)
	out := cmd.OutOrStdout()
	insights.PrintReport(out, report)

	var sums []services.DatasetSummary
	for _, r := range s.regions {
		ds, err := store.Load(r.ID)
		if err != nil {
			continue
		}
		sums = append(sums, insights.Summarise(ds))
	}
	if len(sums) > 0 {
		insights.PrintDatasets(out, sums)
	}

	if report.Failed() {
		return errRegionFailed
	}
	return nil
}
