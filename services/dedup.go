package services

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/antzucaro/matchr"
	"github.com/google/uuid"

	"shower-scraper/models"
	"shower-scraper/utils"
)

// facilityNamespace scopes the v5 ids of facilities.
var facilityNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("shower-scraper/facility"))

// DedupConfig holds the identity thresholds and provenance of new facilities.
type DedupConfig struct {
	// DistanceMeters is the largest pin distance at which two same-named
	// places are one facility.
	DistanceMeters float64
	// NameSimilarity below 1 accepts names whose Jaro-Winkler similarity
	// reaches it; 1 (or 0) requires normalised equality.
	NameSimilarity float64
	Source         string
	RunID          string
	Now            func() time.Time
}

// Identity is the subset of a place that decides whether two records are the same facility.
type Identity struct {
	Name        string
	Address     string
	Coordinates *models.Coordinates
}

// Deduplicator decides how a verified candidate merges into a dataset.
type Deduplicator struct {
	cfg    DedupConfig
	logger *utils.Logger
}

func NewDeduplicator(cfg DedupConfig, logger *utils.Logger) *Deduplicator {
	if cfg.DistanceMeters <= 0 {
		cfg.DistanceMeters = 150
	}
	if cfg.NameSimilarity <= 0 || cfg.NameSimilarity > 1 {
		cfg.NameSimilarity = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Deduplicator{cfg: cfg, logger: logger.With("dedup")}
}

// SameFacility reports whether a and b describe one facility: matching names
// AND either pins within DistanceMeters or, when either pin is missing, equal
// non-empty normalised addresses.
func (d *Deduplicator) SameFacility(a, b Identity) bool {
	if !d.sameName(a.Name, b.Name) {
		return false
	}
	if a.Coordinates != nil && b.Coordinates != nil {
		return utils.DistanceMeters(*a.Coordinates, *b.Coordinates) <= d.cfg.DistanceMeters
	}
	addrA, addrB := utils.NormaliseKey(a.Address), utils.NormaliseKey(b.Address)
	return addrA != "" && addrA == addrB
}

func (d *Deduplicator) sameName(a, b string) bool {
	na, nb := utils.NormaliseKey(a), utils.NormaliseKey(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	return d.cfg.NameSimilarity < 1 && matchr.JaroWinkler(na, nb, false) >= d.cfg.NameSimilarity
}

// StableID derives a facility id from its identity, independent of the
// source's place id. Coordinates are rounded to 4 decimals (~11 m).
func StableID(id Identity) string {
	key := utils.NormaliseKey(id.Name)
	if id.Coordinates != nil {
		key += fmt.Sprintf("|%.4f,%.4f", roundTo(id.Coordinates.Lat, 4), roundTo(id.Coordinates.Lng, 4))
	} else {
		key += "|" + utils.NormaliseKey(id.Address)
	}
	return uuid.NewSHA1(facilityNamespace, []byte(key)).String()
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	r := math.Round(v*p) / p
	if r == 0 {
		return 0
	}
	return r
}

// Merge compares a verified candidate with ds and returns the decision.
// A CONFIRMED facility is never downgraded, and a free/paid flag is only
// ever filled in, never overwritten.
func (d *Deduplicator) Merge(ds *models.Dataset, c models.CandidatePlace, res models.VerificationResult) models.MergeDecision {
	now := d.cfg.Now().UTC()
	ident := Identity{Name: c.Name, Address: c.Address, Coordinates: c.Coordinates}
	existing := d.nearest(ds, ident)

	dec := models.MergeDecision{Verdict: res.Verdict, At: now}

	if existing == nil {
		if res.Verdict == models.VerdictRejected {
			dec.Kind = models.DecisionSkip
			dec.Reason = models.SkipRejected
			return dec
		}
		dec.Kind = models.DecisionInsert
		dec.Facility = d.newFacility(ds.Region, c, res, now)
		return dec
	}

	dec.FacilityID = existing.ID
	skip := func(reason models.SkipReason, touch bool) models.MergeDecision {
		dec.Kind = models.DecisionSkip
		dec.Reason = reason
		dec.Touch = touch
		return dec
	}
	update := func(changes models.FacilityChanges) models.MergeDecision {
		changes.LastVerified = &now
		changes.RunID = d.cfg.RunID
		changes.ExternalID = c.ExternalID
		changes.URL = c.URL
		if res.Evidence != nil {
			changes.Evidence = res.Evidence
		}
		dec.Kind = models.DecisionUpdate
		dec.Changes = changes
		return dec
	}

	switch existing.Verdict {
	case models.VerdictConfirmed:
		if res.Verdict != models.VerdictConfirmed {
			return skip(models.SkipNoDowngrade, false)
		}
		changes, changed := refresh(existing, c, res)
		if !changed {
			return skip(models.SkipDuplicate, true)
		}
		return update(changes)

	case models.VerdictUncertain:
		switch res.Verdict {
		case models.VerdictConfirmed, models.VerdictRejected:
			changes, _ := refresh(existing, c, res)
			v := res.Verdict
			changes.Verdict = &v
			return update(changes)
		}
		return skip(models.SkipDuplicate, false)

	default:
		if res.Verdict == models.VerdictConfirmed {
			changes, _ := refresh(existing, c, res)
			v := models.VerdictConfirmed
			changes.Verdict = &v
			return update(changes)
		}
		return skip(models.SkipDuplicate, false)
	}
}

// nearest returns the matching facility closest to ident, or nil. A facility
// already holding ident's stable id always matches.
func (d *Deduplicator) nearest(ds *models.Dataset, ident Identity) *models.Facility {
	if f := ds.Get(StableID(ident)); f != nil {
		return f
	}

	var best *models.Facility
	bestDist := math.Inf(1)
	for _, f := range ds.Facilities() {
		other := Identity{Name: f.Name, Address: f.Address, Coordinates: f.Coordinates}
		if !d.SameFacility(ident, other) {
			continue
		}
		dist := 0.0
		if ident.Coordinates != nil && f.Coordinates != nil {
			dist = utils.DistanceMeters(*ident.Coordinates, *f.Coordinates)
		}
		if dist < bestDist {
			best, bestDist = f, dist
		}
	}
	return best
}

// refresh lists what a new sighting adds to an existing facility: a changed
// address, missing coordinates, or a missing free/paid flag.
func refresh(f *models.Facility, c models.CandidatePlace, res models.VerificationResult) (models.FacilityChanges, bool) {
	var changes models.FacilityChanges
	changed := false

	if addr := strings.TrimSpace(c.Address); addr != "" && utils.NormaliseKey(addr) != utils.NormaliseKey(f.Address) {
		changes.Address = &addr
		changed = true
	}
	if f.Coordinates == nil && c.Coordinates != nil {
		coords := *c.Coordinates
		changes.Coordinates = &coords
		changed = true
	}
	if f.Free == nil && res.Free != nil {
		free := *res.Free
		changes.Free = &free
		changed = true
	}
	return changes, changed
}

func (d *Deduplicator) newFacility(region string, c models.CandidatePlace, res models.VerificationResult, now time.Time) *models.Facility {
	f := &models.Facility{
		ID:         StableID(Identity{Name: c.Name, Address: c.Address, Coordinates: c.Coordinates}),
		Name:       c.Name,
		Address:    c.Address,
		Verdict:    res.Verdict,
		Region:     region,
		FirstSeen:  now,
		Source:     d.cfg.Source,
		RunID:      d.cfg.RunID,
		ExternalID: c.ExternalID,
		URL:        c.URL,
		Evidence:   res.Evidence,
	}
	if c.Coordinates != nil {
		coords := *c.Coordinates
		f.Coordinates = &coords
	}
	if res.Free != nil {
		free := *res.Free
		f.Free = &free
	}
	if res.Verdict == models.VerdictConfirmed {
		f.LastVerified = &now
	}
	return f
}
