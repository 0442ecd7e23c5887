package scraper

import (
	"context"
	"fmt"
	"strings"

	"shower-scraper/models"
	"shower-scraper/utils"
)

// Review sampling orders.
const (
	ReviewOrderNewest   = "newest"
	ReviewOrderRelevant = "relevant"
)

// ExtractorConfig controls how much of a place is read.
type ExtractorConfig struct {
	// ReviewSampleSize is the maximum number of review texts kept.
	ReviewSampleSize int
	// ReviewOrder is ReviewOrderNewest (sort the panel first) or
	// ReviewOrderRelevant (keep the source's default order).
	ReviewOrder         string
	ReviewScrollRetries int
	Retry               *utils.RetryConfig
}

// Extractor reads a candidate's detail view and review sample.
type Extractor struct {
	cfg    ExtractorConfig
	logger *utils.Logger
}

// NewExtractor creates an Extractor. A nil Retry means a single navigation attempt.
func NewExtractor(cfg ExtractorConfig, logger *utils.Logger) *Extractor {
	if cfg.Retry == nil {
		cfg.Retry = &utils.RetryConfig{MaxAttempts: 1}
	}
	if cfg.ReviewScrollRetries < 1 {
		cfg.ReviewScrollRetries = 1
	}
	return &Extractor{cfg: cfg, logger: logger.With("extractor")}
}

// Extract fills in name, address, category, coordinates and the review
// sample for ref. Missing coordinates or reviews are not failures; a
// missing name or an unreachable page is an *ExtractionFailure.
func (e *Extractor) Extract(ctx context.Context, sess Session, ref models.CandidatePlace) (models.CandidatePlace, error) {
	place := ref
	fail := func(err error) (models.CandidatePlace, error) {
		return ref, &ExtractionFailure{ExternalID: ref.ExternalID, URL: ref.URL, Err: err}
	}

	retry := *e.cfg.Retry
	retry.Retryable = IsNavigation
	var page PageHandle
	err := retry.Do(ctx, "open place "+ref.ExternalID, func(int) error {
		var err error
		page, err = sess.Open(ctx, ref.URL)
		return err
	})
	if err != nil {
		return fail(err)
	}

	name := e.first(ctx, sess, IntentPlaceName)
	if name == "" {
		return fail(&ExtractionError{Intent: IntentPlaceName, Err: fmt.Errorf("no place name on %s", page.URL)})
	}
	place.Name = name
	place.Address = e.first(ctx, sess, IntentPlaceAddress)
	place.Category = e.first(ctx, sess, IntentPlaceCategory)

	if place.Coordinates == nil {
		place.Coordinates = PlaceCoordinates(page.URL)
	}
	if place.Coordinates == nil {
		if current := e.first(ctx, sess, IntentPageURL); current != "" {
			place.Coordinates = PlaceCoordinates(current)
		}
	}
	if place.Coordinates == nil {
		e.logger.Debug("%s: no coordinates available", place.Name)
	}

	place.Reviews = e.reviews(ctx, sess, place.Name)
	return place, nil
}

func (e *Extractor) reviews(ctx context.Context, sess Session, name string) []string {
	n := e.cfg.ReviewSampleSize
	if n <= 0 {
		return nil
	}

	clicked, err := sess.Click(ctx, IntentReviewsTab)
	if err != nil || clicked == 0 {
		e.logger.Debug("%s: no reviews tab (%v)", name, err)
		return nil
	}

	if e.cfg.ReviewOrder == ReviewOrderNewest {
		if opened, err := sess.Click(ctx, IntentReviewsSortMenu); err == nil && opened > 0 {
			if _, err := sess.Click(ctx, IntentReviewsNewest); err != nil {
				e.logger.Debug("%s: could not sort reviews by newest: %v", name, err)
			}
		}
	}

	enough := func(ctx context.Context) (bool, error) {
		texts, err := sess.ExtractText(ctx, IntentReviewTexts)
		if err != nil {
			return false, nil
		}
		return len(texts) >= n, nil
	}
	if ok, err := enough(ctx); err == nil && !ok {
		if _, err := sess.ScrollUntil(ctx, IntentReviewsPanel, enough, e.cfg.ReviewScrollRetries); err != nil {
			e.logger.Debug("%s: review panel scroll failed: %v", name, err)
		}
	}

	if _, err := sess.Click(ctx, IntentReviewExpanders); err != nil {
		e.logger.Debug("%s: could not expand reviews: %v", name, err)
	}

	texts, err := sess.ExtractText(ctx, IntentReviewTexts)
	if err != nil {
		e.logger.Debug("%s: no review texts: %v", name, err)
		return nil
	}

	sample := make([]string, 0, n)
	for _, t := range texts {
		if t = utils.NormaliseText(t); t == "" {
			continue
		}
		sample = append(sample, t)
		if len(sample) == n {
			break
		}
	}
	return sample
}

// first returns the first non-blank value for intent, or "".
func (e *Extractor) first(ctx context.Context, sess Session, intent Intent) string {
	values, err := sess.ExtractText(ctx, intent)
	if err != nil {
		return ""
	}
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
