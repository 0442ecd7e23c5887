package models

// Coordinates is a WGS84 point. A nil *Coordinates means the source did not expose one.
type Coordinates struct {
	Lat float64 `json:"lat" toml:"lat"`
	Lng float64 `json:"lng" toml:"lng"`
}

// BBox is a south/west/north/east bounding box in degrees.
type BBox struct {
	South float64 `json:"south" toml:"south"`
	West  float64 `json:"west" toml:"west"`
	North float64 `json:"north" toml:"north"`
	East  float64 `json:"east" toml:"east"`
}

// Scope is the geographic extent a region's searches are biased towards.
// Either Center+RadiusMeters or BBox may be given; both may be empty.
type Scope struct {
	Center       *Coordinates `json:"center,omitempty" toml:"center,omitempty"`
	RadiusMeters float64      `json:"radiusMeters,omitempty" toml:"radius_meters,omitempty"`
	BBox         *BBox        `json:"bbox,omitempty" toml:"bbox,omitempty"`
}

// Region is one scraping unit with its own queries and output file.
// Regions are loaded once at start-up and never mutated.
type Region struct {
	ID         string   `json:"id" toml:"id"`
	Name       string   `json:"name" toml:"name"`
	Country    string   `json:"country,omitempty" toml:"country,omitempty"`
	Queries    []string `json:"queries,omitempty" toml:"queries,omitempty"`
	Terms      []string `json:"terms,omitempty" toml:"terms,omitempty"`
	Localities []string `json:"localities,omitempty" toml:"localities,omitempty"`
	Scope      Scope    `json:"scope" toml:"scope"`

	// SweepRadiusMeters, when positive, repeats every query at pan
	// positions this far from the scope center.
	SweepRadiusMeters float64 `json:"sweepRadiusMeters,omitempty" toml:"sweep_radius_meters,omitempty"`
}

// Bias positions the map viewport for a search.
type Bias struct {
	Center Coordinates
	Zoom   int
}

// Query is a single search issued against the results surface.
type Query struct {
	SearchText string
	Bias       *Bias
}

// String renders the query for logs and error reports.
func (q Query) String() string {
	if q.Bias == nil {
		return q.SearchText
	}
	return q.SearchText + " @" + formatCoord(q.Bias.Center.Lat) + "," + formatCoord(q.Bias.Center.Lng)
}
