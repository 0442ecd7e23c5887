package scraper

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"shower-scraper/models"
)

const searchBaseURL = "https://www.google.com/maps/search/"

var (
	featureIDRegexp = regexp.MustCompile(`!1s(0x[0-9a-fA-F]+:0x[0-9a-fA-F]+)`)
	placeIDRegexp   = regexp.MustCompile(`!19s(ChIJ[^!?&/]+)`)
	pinRegexp       = regexp.MustCompile(`!3d(-?\d+(?:\.\d+)?)!4d(-?\d+(?:\.\d+)?)`)
	viewportRegexp  = regexp.MustCompile(`@(-?\d+(?:\.\d+)?),(-?\d+(?:\.\d+)?)`)
)

// BuildSearchURL renders the search URL for a query, pinned to its bias
// viewport when one is set. hl=en keeps the UI strings the selectors expect.
func BuildSearchURL(q models.Query) string {
	base := searchBaseURL + url.QueryEscape(q.SearchText)
	if q.Bias != nil {
		base += fmt.Sprintf("/@%f,%f,%dz", q.Bias.Center.Lat, q.Bias.Center.Lng, q.Bias.Zoom)
	}
	return base + "?hl=en"
}

// PlaceExternalID derives the source's place identifier from a place URL,
// falling back to the URL without its query string.
func PlaceExternalID(rawURL string) string {
	if m := featureIDRegexp.FindStringSubmatch(rawURL); len(m) == 2 {
		return strings.ToLower(m[1])
	}
	if m := placeIDRegexp.FindStringSubmatch(rawURL); len(m) == 2 {
		return m[1]
	}
	trimmed := strings.TrimSpace(rawURL)
	if i := strings.IndexByte(trimmed, '?'); i >= 0 {
		trimmed = trimmed[:i]
	}
	return trimmed
}

// PlaceCoordinates reads the place pin (!3d…!4d…) from a place URL, then the
// viewport center (@lat,lng). Returns nil when neither is present or valid.
func PlaceCoordinates(rawURL string) *models.Coordinates {
	if c := coordsFromMatch(pinRegexp.FindStringSubmatch(rawURL)); c != nil {
		return c
	}
	return coordsFromMatch(viewportRegexp.FindStringSubmatch(rawURL))
}

func coordsFromMatch(m []string) *models.Coordinates {
	if len(m) != 3 {
		return nil
	}
	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	lng, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return nil
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil
	}
	return &models.Coordinates{Lat: lat, Lng: lng}
}

// IsPlaceURL reports whether rawURL points at a single place page.
func IsPlaceURL(rawURL string) bool {
	return strings.Contains(rawURL, "/maps/place/")
}
