package services

import (
	"testing"

	"shower-scraper/models"
	"shower-scraper/utils"
)

func newTestLogger() *utils.Logger { return utils.NewNopLogger() }

func TestCleanerNormalisesFields(t *testing.T) {
	c := NewCleaner(10, newTestLogger())

	got, ok := c.Clean(models.CandidatePlace{
		ExternalID: " 0x1:0x2 ",
		Name:       "  Bondi   Beach\tShowers ",
		Address:    "Queen Elizabeth Dr,\n Bondi Beach",
		Category:   " Public bath ",
	})
	if !ok {
		t.Fatal("expected candidate to be kept")
	}

	tests := []struct {
		field, got, want string
	}{
		{"ExternalID", got.ExternalID, "0x1:0x2"},
		{"Name", got.Name, "Bondi Beach Showers"},
		{"Address", got.Address, "Queen Elizabeth Dr, Bondi Beach"},
		{"Category", got.Category, "Public bath"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q; want %q", tt.field, tt.got, tt.want)
		}
	}
}

func TestCleanerDropsEmptyName(t *testing.T) {
	c := NewCleaner(10, newTestLogger())

	if _, ok := c.Clean(models.CandidatePlace{Name: "   ", URL: "https://www.google.com/maps/place/x"}); ok {
		t.Error("expected candidate without a name to be dropped")
	}
}

func TestCleanerDeduplicatesReviews(t *testing.T) {
	c := NewCleaner(10, newTestLogger())

	got, _ := c.Clean(models.CandidatePlace{
		Name:    "Manly",
		Reviews: []string{"Great showers!", "great   showers", "", "  ", "Windy"},
	})
	if len(got.Reviews) != 2 {
		t.Errorf("expected 2 reviews after dedup, got %d: %q", len(got.Reviews), got.Reviews)
	}
}

func TestCleanerCapsReviews(t *testing.T) {
	c := NewCleaner(2, newTestLogger())

	got, _ := c.Clean(models.CandidatePlace{Name: "Manly", Reviews: []string{"a", "b", "c"}})
	if len(got.Reviews) != 2 || got.Reviews[1] != "b" {
		t.Errorf("expected first 2 reviews, got %q", got.Reviews)
	}
}
