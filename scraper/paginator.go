package scraper

import (
	"context"
	"iter"
	"strings"

	"shower-scraper/models"
	"shower-scraper/utils"
)

// PaginatorConfig bounds a single query's result walk.
type PaginatorConfig struct {
	// MaxResults caps yielded candidates; zero means no cap.
	MaxResults int
	// ScrollRetries is the number of consecutive scrolls without new
	// entries after which the source counts as exhausted.
	ScrollRetries int
	// URLFor renders the search URL; defaults to BuildSearchURL.
	URLFor func(models.Query) string
}

// Paginator walks a search results list.
type Paginator struct {
	cfg    PaginatorConfig
	logger *utils.Logger
}

// NewPaginator creates a Paginator.
func NewPaginator(cfg PaginatorConfig, logger *utils.Logger) *Paginator {
	if cfg.ScrollRetries < 1 {
		cfg.ScrollRetries = 1
	}
	if cfg.URLFor == nil {
		cfg.URLFor = BuildSearchURL
	}
	return &Paginator{cfg: cfg, logger: logger.With("paginator")}
}

// Paginate returns the lazy sequence of candidate references for q. Each
// iteration re-issues the query from the first result. A navigation failure
// is yielded once as the error and ends the sequence; malformed entries are
// skipped.
func (p *Paginator) Paginate(ctx context.Context, sess Session, q models.Query) iter.Seq2[models.CandidatePlace, error] {
	return func(yield func(models.CandidatePlace, error) bool) {
		page, err := sess.Open(ctx, p.cfg.URLFor(q))
		if err != nil {
			yield(models.CandidatePlace{}, err)
			return
		}

		// The search surface jumps straight to the place when there is a single hit.
		if IsPlaceURL(page.URL) {
			yield(p.candidate(page.URL, 0, q), nil)
			return
		}

		w := &resultWalk{p: p, sess: sess, query: q, seen: utils.NewSeenSet()}
		if err := w.collect(ctx); err != nil {
			if names, nerr := sess.ExtractText(ctx, IntentPlaceName); nerr == nil && len(names) > 0 {
				yield(p.candidate(page.URL, 0, q), nil)
				return
			}
			yield(models.CandidatePlace{}, err)
			return
		}

		yielded := 0
		for {
			for len(w.pending) > 0 {
				if p.capped(yielded) {
					return
				}
				next := w.pending[0]
				w.pending = w.pending[1:]
				yielded++
				if !yield(next, nil) {
					return
				}
			}
			if p.capped(yielded) || w.ended(ctx) {
				return
			}

			grew, err := sess.ScrollUntil(ctx, IntentResultsFeed, func(ctx context.Context) (bool, error) {
				if err := w.collect(ctx); err != nil {
					return false, err
				}
				return len(w.pending) > 0, nil
			}, p.cfg.ScrollRetries)
			if err != nil {
				if IsNavigation(err) {
					yield(models.CandidatePlace{}, err)
					return
				}
				p.logger.Warn("%q: results list stopped responding after %d entries: %v", q.SearchText, yielded, err)
				return
			}
			if !grew {
				p.logger.Debug("%q: exhausted after %d entries", q.SearchText, yielded)
				return
			}
		}
	}
}

func (p *Paginator) capped(yielded int) bool {
	return p.cfg.MaxResults > 0 && yielded >= p.cfg.MaxResults
}

func (p *Paginator) candidate(link string, position int, q models.Query) models.CandidatePlace {
	return models.CandidatePlace{
		ExternalID:  PlaceExternalID(link),
		URL:         link,
		Coordinates: PlaceCoordinates(link),
		Position:    position,
		Query:       q.SearchText,
	}
}

// resultWalk holds the per-call state: entries seen so far and those not yet yielded.
type resultWalk struct {
	p       *Paginator
	sess    Session
	query   models.Query
	seen    *utils.SeenSet
	pending []models.CandidatePlace
}

func (w *resultWalk) collect(ctx context.Context) error {
	links, err := w.sess.ExtractText(ctx, IntentResultLinks)
	if err != nil {
		return err
	}
	for i, link := range links {
		link = strings.TrimSpace(link)
		if !IsPlaceURL(link) {
			w.p.logger.Debug("%q: skipping malformed entry #%d %q", w.query.SearchText, i, link)
			continue
		}
		id := PlaceExternalID(link)
		if !w.seen.Add(id) {
			continue
		}
		w.pending = append(w.pending, w.p.candidate(link, w.seen.Size()-1, w.query))
	}
	return nil
}

func (w *resultWalk) ended(ctx context.Context) bool {
	marker, err := w.sess.ExtractText(ctx, IntentResultsEnd)
	return err == nil && len(marker) > 0
}
