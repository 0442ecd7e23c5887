package scraper_test

import (
	"context"
	"errors"
	"testing"

	"shower-scraper/models"
	"shower-scraper/scraper"
	"shower-scraper/scraper/scrapertest"
	"shower-scraper/utils"
)

const beachQuery = "beach showers sydney"

func collect(t *testing.T, p *scraper.Paginator, sess scraper.Session, q string) ([]models.CandidatePlace, error) {
	t.Helper()
	var out []models.CandidatePlace
	for c, err := range p.Paginate(context.Background(), sess, models.Query{SearchText: q}) {
		if err != nil {
			return out, err
		}
		out = append(out, c)
	}
	return out, nil
}

func places(n, from int) []string {
	links := make([]string, 0, n)
	for i := 0; i < n; i++ {
		links = append(links, scrapertest.PlaceURL("Place", from+i, -33.8, 151.2))
	}
	return links
}

func TestPaginatorStopsWhenNothingNewAppears(t *testing.T) {
	sess := scrapertest.NewSession()
	sess.AddPage(scrapertest.SearchURL(beachQuery), &scrapertest.Page{Batches: [][]string{places(4, 1)}})

	p := scraper.NewPaginator(scraper.PaginatorConfig{ScrollRetries: 3}, utils.NewNopLogger())
	got, err := collect(t, p, sess, beachQuery)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 4 {
		t.Errorf("candidates: got %d, want 4", len(got))
	}
	if sess.Scrolls != 3 {
		t.Errorf("scroll attempts: got %d, want 3", sess.Scrolls)
	}
}

func TestPaginatorFollowsScrollBatchesWithoutRepeats(t *testing.T) {
	first := places(3, 1)
	// Reflow re-renders earlier entries alongside the new ones.
	second := append(append([]string{}, first[1:]...), places(2, 4)...)
	third := places(1, 6)

	sess := scrapertest.NewSession()
	sess.AddPage(scrapertest.SearchURL(beachQuery), &scrapertest.Page{
		Batches:   [][]string{first, second, third},
		EndMarker: true,
	})

	p := scraper.NewPaginator(scraper.PaginatorConfig{ScrollRetries: 3}, utils.NewNopLogger())
	got, err := collect(t, p, sess, beachQuery)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 6 {
		t.Fatalf("candidates: got %d, want 6", len(got))
	}
	ids := map[string]bool{}
	for i, c := range got {
		if ids[c.ExternalID] {
			t.Errorf("candidate %s yielded twice", c.ExternalID)
		}
		ids[c.ExternalID] = true
		if c.Position != i {
			t.Errorf("position of %s: got %d, want %d", c.ExternalID, c.Position, i)
		}
		if c.Query != beachQuery {
			t.Errorf("query: got %q", c.Query)
		}
		if c.Coordinates == nil {
			t.Errorf("%s: expected coordinates from the link", c.ExternalID)
		}
	}
	// The end marker stops the walk without spending the retry budget.
	if sess.Scrolls != 2 {
		t.Errorf("scroll attempts: got %d, want 2", sess.Scrolls)
	}
}

func TestPaginatorRespectsMaxResults(t *testing.T) {
	sess := scrapertest.NewSession()
	sess.AddPage(scrapertest.SearchURL(beachQuery), &scrapertest.Page{
		Batches: [][]string{places(5, 1), places(5, 6)},
	})

	p := scraper.NewPaginator(scraper.PaginatorConfig{MaxResults: 3, ScrollRetries: 3}, utils.NewNopLogger())
	got, err := collect(t, p, sess, beachQuery)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("candidates: got %d, want 3", len(got))
	}
	if sess.Scrolls != 0 {
		t.Errorf("scrolled %d times past the cap", sess.Scrolls)
	}
}

func TestPaginatorSkipsMalformedEntries(t *testing.T) {
	links := []string{
		scrapertest.PlaceURL("Good", 1, -33.8, 151.2),
		"https://www.google.com/search?q=ad",
		"",
		scrapertest.PlaceURL("Also Good", 2, -33.8, 151.2),
	}
	sess := scrapertest.NewSession()
	sess.AddPage(scrapertest.SearchURL(beachQuery), &scrapertest.Page{Batches: [][]string{links}, EndMarker: true})

	p := scraper.NewPaginator(scraper.PaginatorConfig{ScrollRetries: 2}, utils.NewNopLogger())
	got, err := collect(t, p, sess, beachQuery)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("candidates: got %d, want 2", len(got))
	}
}

func TestPaginatorYieldsNavigationError(t *testing.T) {
	sess := scrapertest.NewSession()
	sess.FailOpen(scrapertest.SearchURL(beachQuery), -1)

	p := scraper.NewPaginator(scraper.PaginatorConfig{ScrollRetries: 3}, utils.NewNopLogger())
	got, err := collect(t, p, sess, beachQuery)
	if len(got) != 0 {
		t.Errorf("expected no candidates, got %d", len(got))
	}
	if !scraper.IsNavigation(err) {
		t.Fatalf("expected navigation error, got %v", err)
	}
	if !errors.Is(err, scrapertest.ErrUnreachable) {
		t.Errorf("expected the cause to be preserved, got %v", err)
	}
}

func TestPaginatorSingleHitLandsOnPlace(t *testing.T) {
	placeURL := scrapertest.PlaceURL("Bondi Icebergs", 42, -33.8949, 151.2744)
	sess := scrapertest.NewSession()
	sess.AddPage(scrapertest.SearchURL(beachQuery), &scrapertest.Page{LandingURL: placeURL})

	p := scraper.NewPaginator(scraper.PaginatorConfig{ScrollRetries: 3}, utils.NewNopLogger())
	got, err := collect(t, p, sess, beachQuery)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("candidates: got %d, want 1", len(got))
	}
	if got[0].ExternalID != "0x2a:0x2a" {
		t.Errorf("external id: got %q", got[0].ExternalID)
	}
}

func TestPaginatorMissingFeedIsExtractionError(t *testing.T) {
	sess := scrapertest.NewSession()
	sess.AddPage(scrapertest.SearchURL(beachQuery), &scrapertest.Page{})

	p := scraper.NewPaginator(scraper.PaginatorConfig{ScrollRetries: 3}, utils.NewNopLogger())
	_, err := collect(t, p, sess, beachQuery)
	if !scraper.IsExtraction(err) {
		t.Fatalf("expected extraction error, got %v", err)
	}
}

func TestPaginatorEmptyFeedYieldsNothing(t *testing.T) {
	sess := scrapertest.NewSession()
	sess.AddPage(scrapertest.SearchURL(beachQuery), &scrapertest.Page{Batches: [][]string{{}}})

	p := scraper.NewPaginator(scraper.PaginatorConfig{ScrollRetries: 2}, utils.NewNopLogger())
	got, err := collect(t, p, sess, beachQuery)
	if err != nil {
		t.Fatalf("a search without results is not an error, got %v", err)
	}
	if len(got) != 0 {
		t.Errorf("candidates: got %d, want 0", len(got))
	}
}

func TestPaginatorIsRestartable(t *testing.T) {
	sess := scrapertest.NewSession()
	sess.AddPage(scrapertest.SearchURL(beachQuery), &scrapertest.Page{Batches: [][]string{places(2, 1)}, EndMarker: true})

	p := scraper.NewPaginator(scraper.PaginatorConfig{ScrollRetries: 1}, utils.NewNopLogger())
	for run := 0; run < 2; run++ {
		got, err := collect(t, p, sess, beachQuery)
		if err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
		if len(got) != 2 {
			t.Errorf("run %d: got %d candidates, want 2", run, len(got))
		}
	}
	if n := sess.OpenCount(scrapertest.SearchURL(beachQuery)); n != 2 {
		t.Errorf("opens: got %d, want 2", n)
	}
}
