package services

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"shower-scraper/models"
)

func queryTexts(qs []models.Query) []string {
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = q.SearchText
	}
	return out
}

func TestPlannerExpandsTermsAcrossLocalities(t *testing.T) {
	region := models.Region{
		ID:         "au-nsw-sydney",
		Queries:    []string{"public showers Sydney", "  Public Showers   sydney "},
		Terms:      []string{"outdoor shower", "rinse station"},
		Localities: []string{"Bondi", "Manly"},
	}

	got := queryTexts(NewPlanner().Plan(region))
	want := []string{
		"public showers Sydney",
		"outdoor shower in Bondi",
		"outdoor shower in Manly",
		"rinse station in Bondi",
		"rinse station in Manly",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Plan texts mismatch (-want +got):\n%s", diff)
	}
}

func TestPlannerBareTermsWithoutLocalities(t *testing.T) {
	region := models.Region{ID: "x", Terms: []string{"beach shower", "BEACH SHOWER"}}

	got := NewPlanner().Plan(region)
	if len(got) != 1 || got[0].SearchText != "beach shower" {
		t.Fatalf("got %v, want [beach shower]", queryTexts(got))
	}
	if got[0].Bias != nil {
		t.Errorf("expected no bias without a scope, got %+v", got[0].Bias)
	}
}

func TestPlannerIsDeterministic(t *testing.T) {
	region := models.Region{
		ID:                "au-qld-gold-coast",
		Queries:           []string{"beach showers Gold Coast"},
		Terms:             []string{"public shower"},
		Localities:        []string{"Burleigh Heads", "Coolangatta"},
		Scope:             models.Scope{BBox: &models.BBox{South: -28.2, West: 153.3, North: -27.8, East: 153.5}},
		SweepRadiusMeters: 8000,
	}

	p := NewPlanner()
	first := p.Plan(region)
	second := p.Plan(region)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Plan is not deterministic (-first +second):\n%s", diff)
	}
}

func TestPlannerBiasFromCenter(t *testing.T) {
	center := models.Coordinates{Lat: -33.8688, Lng: 151.2093}
	region := models.Region{
		ID:      "au-nsw-sydney",
		Queries: []string{"public showers Sydney"},
		Scope:   models.Scope{Center: &center, RadiusMeters: 25000},
	}

	got := NewPlanner().Plan(region)
	if len(got) != 1 {
		t.Fatalf("queries: got %d, want 1", len(got))
	}
	if got[0].Bias == nil || got[0].Bias.Center != center {
		t.Errorf("bias: got %+v, want center %+v", got[0].Bias, center)
	}
}

func TestPlannerSweepAddsPanPositions(t *testing.T) {
	region := models.Region{
		ID:                "au-qld-gold-coast",
		Queries:           []string{"beach showers Gold Coast", "public shower Gold Coast"},
		Scope:             models.Scope{BBox: &models.BBox{South: -28.2, West: 153.3, North: -27.8, East: 153.5}},
		SweepRadiusMeters: 8000,
	}

	got := NewPlanner().Plan(region)
	if len(got) != 2*9 {
		t.Fatalf("queries: got %d, want 18", len(got))
	}
	center := got[0].Bias.Center
	if math.Abs(center.Lat+28.0) > 1e-9 {
		t.Errorf("center latitude: got %v, want -28.0", center.Lat)
	}
	// Second query is the northern pan position.
	north := got[1].Bias.Center
	if north.Lat <= center.Lat {
		t.Errorf("first pan should be north of the center: %v vs %v", north.Lat, center.Lat)
	}
	for i, q := range got[:9] {
		if q.SearchText != "beach showers Gold Coast" {
			t.Errorf("query %d: got %q", i, q.SearchText)
		}
	}
}
