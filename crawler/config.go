package crawler

import (
	"time"

	"shower-scraper/config"
	"shower-scraper/scraper"
	"shower-scraper/services"
	"shower-scraper/utils"
)

// ConfigFrom maps the environment configuration onto the pipeline stages.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Paginator: scraper.PaginatorConfig{
			MaxResults:    cfg.MaxResultsPerQuery,
			ScrollRetries: cfg.ScrollRetries,
		},
		Extractor: scraper.ExtractorConfig{
			ReviewSampleSize:    cfg.ReviewSampleSize,
			ReviewOrder:         cfg.ReviewOrder,
			ReviewScrollRetries: cfg.ReviewScrollRetries,
		},
		Verifier: services.VerifierConfig{
			MinReviewsForRejection: cfg.MinReviewsForRejection,
		},
		Dedup: services.DedupConfig{
			DistanceMeters: cfg.DedupDistanceMeters,
			NameSimilarity: cfg.NameSimilarity,
			Source:         cfg.SourceTag,
		},
		MaxReviews:          cfg.ReviewSampleSize,
		MaxConcurrency:      cfg.MaxConcurrency,
		RegionStartInterval: cfg.RegionStartInterval,
		QueryDelay:          utils.Jitter{Min: cfg.DelayMin, Max: cfg.DelayMax},
		QueryRetry: utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   cfg.RetryBaseDelay,
			MaxDelay:    2 * time.Minute,
		},
	}
}
