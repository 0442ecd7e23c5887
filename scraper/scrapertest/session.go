// Package scrapertest provides a scripted in-memory scraper.Session.
package scrapertest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"shower-scraper/models"
	"shower-scraper/scraper"
)

// ErrUnreachable is the cause of navigation failures produced by the fake.
var ErrUnreachable = errors.New("unreachable")

// Page scripts what the fake shows at one URL.
type Page struct {
	// LandingURL is reported by Open; defaults to the requested URL.
	LandingURL string
	// Values answers ExtractText for static intents (name, address, ...).
	Values map[scraper.Intent][]string
	// Batches are result links. Batches[0] is visible after Open and each
	// scroll of the results feed reveals the next one. A nil Batches means
	// the page has no results feed.
	Batches [][]string
	// EndMarker shows the end-of-list marker once every batch is revealed.
	EndMarker bool
	// Reviews are shown after the reviews tab is clicked.
	Reviews []string
}

// Session is a fake scraper.Session. It is safe for concurrent use.
type Session struct {
	mu sync.Mutex

	pages    map[string]*Page
	failures map[string]int

	current     *Page
	currentURL  string
	revealed    int
	reviewsOpen bool

	Opens   []string
	Scrolls int
	Clicks  []scraper.Intent
	Closed  bool
}

// NewSession creates an empty fake.
func NewSession() *Session {
	return &Session{
		pages:    make(map[string]*Page),
		failures: make(map[string]int),
	}
}

// AddPage scripts the page served at rawURL.
func (s *Session) AddPage(rawURL string, p *Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[rawURL] = p
}

// FailOpen makes the next n opens of rawURL fail with a NavigationError.
// A negative n fails every open.
func (s *Session) FailOpen(rawURL string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[rawURL] = n
}

// Factory returns a SessionFactory that always hands out s.
func (s *Session) Factory() scraper.SessionFactory {
	return func(context.Context) (scraper.Session, error) {
		s.mu.Lock()
		s.Closed = false
		s.mu.Unlock()
		return s, nil
	}
}

// OpenCount returns how often rawURL was opened.
func (s *Session) OpenCount(rawURL string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, u := range s.Opens {
		if u == rawURL {
			n++
		}
	}
	return n
}

func (s *Session) Open(ctx context.Context, rawURL string) (scraper.PageHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Opens = append(s.Opens, rawURL)
	s.current, s.currentURL, s.revealed, s.reviewsOpen = nil, "", 0, false

	if err := ctx.Err(); err != nil {
		return scraper.PageHandle{}, &scraper.NavigationError{URL: rawURL, Err: err}
	}
	if n, ok := s.failures[rawURL]; ok && n != 0 {
		if n > 0 {
			s.failures[rawURL] = n - 1
		}
		return scraper.PageHandle{}, &scraper.NavigationError{URL: rawURL, Err: ErrUnreachable}
	}
	p, ok := s.pages[rawURL]
	if !ok {
		return scraper.PageHandle{}, &scraper.NavigationError{URL: rawURL, Err: fmt.Errorf("no page scripted: %w", ErrUnreachable)}
	}

	s.current = p
	s.currentURL = rawURL
	if p.LandingURL != "" {
		s.currentURL = p.LandingURL
	}
	if len(p.Batches) > 0 {
		s.revealed = 1
	}
	return scraper.PageHandle{RequestedURL: rawURL, URL: s.currentURL}, nil
}

func (s *Session) ExtractText(_ context.Context, intent scraper.Intent) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.current
	if p == nil {
		return nil, &scraper.ExtractionError{Intent: intent, Err: errors.New("no page open")}
	}

	switch intent {
	case scraper.IntentPageURL:
		return []string{s.currentURL}, nil
	case scraper.IntentResultLinks:
		if p.Batches == nil {
			return nil, &scraper.ExtractionError{Intent: intent}
		}
		var links []string
		for _, b := range p.Batches[:s.revealed] {
			links = append(links, b...)
		}
		return links, nil
	case scraper.IntentResultsEnd:
		if p.EndMarker && s.revealed == len(p.Batches) {
			return []string{"You've reached the end of the list."}, nil
		}
		return nil, &scraper.ExtractionError{Intent: intent}
	case scraper.IntentReviewTexts:
		if !s.reviewsOpen || len(p.Reviews) == 0 {
			return nil, &scraper.ExtractionError{Intent: intent}
		}
		return append([]string(nil), p.Reviews...), nil
	}

	if v, ok := p.Values[intent]; ok {
		return append([]string(nil), v...), nil
	}
	return nil, &scraper.ExtractionError{Intent: intent}
}

func (s *Session) ScrollUntil(ctx context.Context, intent scraper.Intent, pred scraper.Predicate, maxAttempts int) (bool, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		s.mu.Lock()
		if s.current == nil {
			s.mu.Unlock()
			return false, &scraper.ExtractionError{Intent: intent, Err: errors.New("no page open")}
		}
		s.Scrolls++
		if intent == scraper.IntentResultsFeed && s.revealed < len(s.current.Batches) {
			s.revealed++
		}
		s.mu.Unlock()

		ok, err := pred(ctx)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (s *Session) Click(_ context.Context, intent scraper.Intent) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Clicks = append(s.Clicks, intent)
	if s.current == nil {
		return 0, &scraper.ExtractionError{Intent: intent, Err: errors.New("no page open")}
	}
	if intent == scraper.IntentReviewsTab {
		if len(s.current.Reviews) == 0 {
			return 0, nil
		}
		s.reviewsOpen = true
		return 1, nil
	}
	if s.reviewsOpen {
		return 1, nil
	}
	return 0, nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}

// SearchURL is the URL the paginator opens for an unbiased query.
func SearchURL(text string) string {
	return scraper.BuildSearchURL(models.Query{SearchText: text})
}

// PlaceURL renders a place URL carrying a feature id and pin coordinates.
func PlaceURL(name string, id int, lat, lng float64) string {
	return fmt.Sprintf("https://www.google.com/maps/place/%s/data=!4m7!3m6!1s0x%x:0x%x!8m2!3d%f!4d%f",
		url.PathEscape(name), id, id, lat, lng)
}

// PlaceURLNoCoords renders a place URL without pin coordinates.
func PlaceURLNoCoords(name string, id int) string {
	return fmt.Sprintf("https://www.google.com/maps/place/%s/data=!4m2!3m1!1s0x%x:0x%x",
		url.PathEscape(name), id, id)
}

// AddPlace scripts a place page with a name, an optional address and reviews.
func (s *Session) AddPlace(placeURL, name, address string, reviews ...string) {
	values := map[scraper.Intent][]string{
		scraper.IntentPlaceName: {name},
	}
	if address != "" {
		values[scraper.IntentPlaceAddress] = []string{address}
	}
	s.AddPage(placeURL, &Page{Values: values, Reviews: reviews})
}
