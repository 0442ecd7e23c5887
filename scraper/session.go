// Package scraper drives a browser session through the mapping service's
// search results and place pages.
package scraper

import "context"

// Intent names a piece of page structure independently of the selectors a
// concrete Session uses to find it.
type Intent string

const (
	// Search results
	IntentResultsFeed Intent = "results-feed"
	IntentResultLinks Intent = "result-links"
	IntentResultsEnd  Intent = "results-end"

	// Place detail view
	IntentPlaceName     Intent = "place-name"
	IntentPlaceAddress  Intent = "place-address"
	IntentPlaceCategory Intent = "place-category"
	IntentPageURL       Intent = "page-url"

	// Reviews panel
	IntentReviewsTab      Intent = "reviews-tab"
	IntentReviewsSortMenu Intent = "reviews-sort-menu"
	IntentReviewsNewest   Intent = "reviews-sort-newest"
	IntentReviewsPanel    Intent = "reviews-panel"
	IntentReviewExpanders Intent = "review-expanders"
	IntentReviewTexts     Intent = "review-texts"
)

// PageHandle describes the page a successful Open landed on.
type PageHandle struct {
	RequestedURL string
	URL          string
}

// Predicate is evaluated after each scroll attempt.
type Predicate func(ctx context.Context) (bool, error)

// Session is one automated browser. Operations are not idempotent: after a
// failed Open the page is in an unknown state and the next call must be Open.
type Session interface {
	// Open navigates a fresh page to url. Fails with *NavigationError.
	Open(ctx context.Context, url string) (PageHandle, error)
	// ExtractText returns the text (or link) values for intent on the current
	// page. Fails with *ExtractionError when the structure is absent.
	ExtractText(ctx context.Context, intent Intent) ([]string, error)
	// ScrollUntil scrolls the container for intent until pred holds, at most
	// maxAttempts times. It reports whether pred was satisfied.
	ScrollUntil(ctx context.Context, intent Intent, pred Predicate, maxAttempts int) (bool, error)
	// Click clicks every element matching intent and returns how many were clicked.
	Click(ctx context.Context, intent Intent) (int, error)
	// Close releases the browser. Safe to call more than once.
	Close() error
}

// SessionFactory launches a new Session. Each region worker owns one.
type SessionFactory func(ctx context.Context) (Session, error)
