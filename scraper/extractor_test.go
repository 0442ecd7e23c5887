package scraper_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"shower-scraper/models"
	"shower-scraper/scraper"
	"shower-scraper/scraper/scrapertest"
	"shower-scraper/utils"
)

func newExtractor(sample int, order string) *scraper.Extractor {
	return scraper.NewExtractor(scraper.ExtractorConfig{
		ReviewSampleSize:    sample,
		ReviewOrder:         order,
		ReviewScrollRetries: 2,
		Retry:               &utils.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond},
	}, utils.NewNopLogger())
}

func ref(link string) models.CandidatePlace {
	return models.CandidatePlace{
		ExternalID:  scraper.PlaceExternalID(link),
		URL:         link,
		Coordinates: scraper.PlaceCoordinates(link),
		Query:       beachQuery,
	}
}

func TestExtractorReadsPlace(t *testing.T) {
	link := scrapertest.PlaceURL("Bronte Beach", 7, -33.9036, 151.2685)
	sess := scrapertest.NewSession()
	sess.AddPlace(link, "Bronte Beach", "Bronte Rd, Bronte NSW 2024",
		"Great  outdoor shower\n after a swim",
		"   ",
		"Parking is hard",
		"Kiosk sells coffee",
	)

	got, err := newExtractor(2, scraper.ReviewOrderNewest).Extract(context.Background(), sess, ref(link))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Bronte Beach" || got.Address != "Bronte Rd, Bronte NSW 2024" {
		t.Errorf("name/address: got %q / %q", got.Name, got.Address)
	}
	if got.Coordinates == nil || got.Coordinates.Lat != -33.9036 {
		t.Errorf("coordinates: got %+v", got.Coordinates)
	}
	want := []string{"Great outdoor shower after a swim", "Parking is hard"}
	if len(got.Reviews) != len(want) {
		t.Fatalf("reviews: got %q, want %q", got.Reviews, want)
	}
	for i := range want {
		if got.Reviews[i] != want[i] {
			t.Errorf("review %d: got %q, want %q", i, got.Reviews[i], want[i])
		}
	}

	sorted := false
	for _, c := range sess.Clicks {
		if c == scraper.IntentReviewsNewest {
			sorted = true
		}
	}
	if !sorted {
		t.Error("expected the review panel to be sorted by newest")
	}
}

func TestExtractorRelevantOrderDoesNotSort(t *testing.T) {
	link := scrapertest.PlaceURL("Clovelly", 8, -33.91, 151.26)
	sess := scrapertest.NewSession()
	sess.AddPlace(link, "Clovelly", "", "nice showers")

	if _, err := newExtractor(5, scraper.ReviewOrderRelevant).Extract(context.Background(), sess, ref(link)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range sess.Clicks {
		if c == scraper.IntentReviewsSortMenu || c == scraper.IntentReviewsNewest {
			t.Errorf("unexpected click on %s", c)
		}
	}
}

func TestExtractorNoReviewsIsNotAFailure(t *testing.T) {
	link := scrapertest.PlaceURLNoCoords("Quiet Park", 9)
	sess := scrapertest.NewSession()
	sess.AddPlace(link, "Quiet Park", "1 Park St")

	got, err := newExtractor(5, scraper.ReviewOrderNewest).Extract(context.Background(), sess, ref(link))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Reviews) != 0 {
		t.Errorf("reviews: got %q, want none", got.Reviews)
	}
	if got.Coordinates != nil {
		t.Errorf("coordinates: got %+v, want nil", got.Coordinates)
	}
}

func TestExtractorCoordinatesFromLandingURL(t *testing.T) {
	link := scrapertest.PlaceURLNoCoords("Manly Beach", 10)
	sess := scrapertest.NewSession()
	sess.AddPage(link, &scrapertest.Page{
		LandingURL: scrapertest.PlaceURL("Manly Beach", 10, -33.797, 151.288),
		Values:     map[scraper.Intent][]string{scraper.IntentPlaceName: {"Manly Beach"}},
	})

	got, err := newExtractor(5, scraper.ReviewOrderNewest).Extract(context.Background(), sess, ref(link))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Coordinates == nil || got.Coordinates.Lng != 151.288 {
		t.Errorf("coordinates: got %+v", got.Coordinates)
	}
}

func TestExtractorMissingNameFails(t *testing.T) {
	link := scrapertest.PlaceURL("Nameless", 11, -33.8, 151.2)
	sess := scrapertest.NewSession()
	sess.AddPage(link, &scrapertest.Page{})

	_, err := newExtractor(5, scraper.ReviewOrderNewest).Extract(context.Background(), sess, ref(link))
	var failure *scraper.ExtractionFailure
	if !errors.As(err, &failure) {
		t.Fatalf("expected ExtractionFailure, got %v", err)
	}
	if failure.ExternalID != "0xb:0xb" {
		t.Errorf("external id: got %q", failure.ExternalID)
	}
}

func TestExtractorRetriesNavigation(t *testing.T) {
	link := scrapertest.PlaceURL("Coogee", 12, -33.92, 151.25)
	sess := scrapertest.NewSession()
	sess.AddPlace(link, "Coogee", "")
	sess.FailOpen(link, 2)

	got, err := newExtractor(5, scraper.ReviewOrderNewest).Extract(context.Background(), sess, ref(link))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Coogee" {
		t.Errorf("name: got %q", got.Name)
	}
	if n := sess.OpenCount(link); n != 3 {
		t.Errorf("opens: got %d, want 3", n)
	}
}

func TestExtractorGivesUpAfterRetries(t *testing.T) {
	link := scrapertest.PlaceURL("Gone", 13, -33.92, 151.25)
	sess := scrapertest.NewSession()
	sess.FailOpen(link, -1)

	_, err := newExtractor(5, scraper.ReviewOrderNewest).Extract(context.Background(), sess, ref(link))
	var failure *scraper.ExtractionFailure
	if !errors.As(err, &failure) {
		t.Fatalf("expected ExtractionFailure, got %v", err)
	}
	if !scraper.IsNavigation(err) {
		t.Errorf("expected the navigation cause to be kept, got %v", err)
	}
}
