package services

import (
	"strings"

	"shower-scraper/models"
	"shower-scraper/utils"
)

// Cleaner tidies an extracted candidate before verification.
type Cleaner struct {
	logger     *utils.Logger
	maxReviews int
}

// NewCleaner creates a Cleaner that keeps at most maxReviews review texts
// (zero keeps all).
func NewCleaner(maxReviews int, logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger.With("cleaner"), maxReviews: maxReviews}
}

// Clean normalises whitespace in the text fields, drops blank and repeated
// reviews and caps the sample. It reports false when the candidate has no
// usable name and must be dropped.
func (c *Cleaner) Clean(p models.CandidatePlace) (models.CandidatePlace, bool) {
	p.Name = utils.NormaliseText(p.Name)
	if p.Name == "" {
		c.logger.Warn("Dropping candidate without a name: %s", p.URL)
		return p, false
	}
	p.Address = utils.NormaliseText(p.Address)
	p.Category = utils.NormaliseText(p.Category)
	p.ExternalID = strings.TrimSpace(p.ExternalID)
	p.URL = strings.TrimSpace(p.URL)

	seen := make(map[string]struct{}, len(p.Reviews))
	reviews := make([]string, 0, len(p.Reviews))
	for _, r := range p.Reviews {
		r = utils.NormaliseText(r)
		if r == "" {
			continue
		}
		key := utils.NormaliseKey(r)
		if _, dup := seen[key]; dup {
			c.logger.Debug("Duplicate review skipped for %s", p.Name)
			continue
		}
		seen[key] = struct{}{}
		reviews = append(reviews, r)
		if c.maxReviews > 0 && len(reviews) == c.maxReviews {
			break
		}
	}
	p.Reviews = reviews
	return p, true
}
