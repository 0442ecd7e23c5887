package services

import (
	"strings"

	"shower-scraper/models"
	"shower-scraper/utils"
)

// compassBearings are the pan directions of a sweep, clockwise from north.
var compassBearings = []float64{0, 45, 90, 135, 180, 225, 270, 315}

// Planner expands a region into its ordered search queries.
type Planner struct{}

func NewPlanner() *Planner {
	return &Planner{}
}

// Plan returns the region's queries. The result depends only on the region.
//
// Texts come from the explicit queries first, then each term crossed with
// each locality ("<term> in <locality>", or the bare term without
// localities), de-duplicated case-insensitively in first-seen order. Every
// text is biased towards the scope center; with a sweep radius it is also
// issued at eight pan positions around it. Overlapping results are expected.
func (p *Planner) Plan(region models.Region) []models.Query {
	texts := p.texts(region)
	center, zoom, ok := scopeBias(region.Scope)

	queries := make([]models.Query, 0, len(texts))
	for _, text := range texts {
		if !ok {
			queries = append(queries, models.Query{SearchText: text})
			continue
		}
		queries = append(queries, models.Query{
			SearchText: text,
			Bias:       &models.Bias{Center: center, Zoom: zoom},
		})
		if region.SweepRadiusMeters <= 0 {
			continue
		}
		panZoom := utils.ZoomForRadius(region.SweepRadiusMeters, center.Lat)
		for _, bearing := range compassBearings {
			queries = append(queries, models.Query{
				SearchText: text,
				Bias: &models.Bias{
					Center: utils.OffsetCoordinate(center, region.SweepRadiusMeters, bearing),
					Zoom:   panZoom,
				},
			})
		}
	}
	return queries
}

func (p *Planner) texts(region models.Region) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(text string) {
		text = utils.NormaliseText(text)
		if text == "" {
			return
		}
		key := strings.ToLower(text)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, text)
	}

	for _, q := range region.Queries {
		add(q)
	}
	for _, term := range region.Terms {
		if len(region.Localities) == 0 {
			add(term)
			continue
		}
		for _, loc := range region.Localities {
			add(term + " in " + loc)
		}
	}
	return out
}

// scopeBias picks the viewport for a scope. A center wins over a bbox.
func scopeBias(s models.Scope) (models.Coordinates, int, bool) {
	switch {
	case s.Center != nil:
		return *s.Center, utils.ZoomForRadius(s.RadiusMeters, s.Center.Lat), true
	case s.BBox != nil:
		center, radius := utils.BBoxCenter(*s.BBox)
		return center, utils.ZoomForRadius(radius, center.Lat), true
	}
	return models.Coordinates{}, 0, false
}
