package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrDuplicateID     = errors.New("facility id already present in dataset")
	ErrUnknownFacility = errors.New("facility not found in dataset")
)

// Facility is the persisted, durable record of a shower facility.
// The JSON layout is the contract with downstream consumers.
type Facility struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Address      string       `json:"address"`
	Coordinates  *Coordinates `json:"coordinates"`
	Free         *bool        `json:"free"`
	Verdict      Verdict      `json:"verdict"`
	Region       string       `json:"region"`
	FirstSeen    time.Time    `json:"firstSeen"`
	LastVerified *time.Time   `json:"lastVerified"`
	Source       string       `json:"source"`
	RunID        string       `json:"runId"`
	ExternalID   string       `json:"externalId,omitempty"`
	URL          string       `json:"url,omitempty"`
	Evidence     []string     `json:"evidence,omitempty"`
}

func (f *Facility) clone() *Facility {
	c := *f
	if f.Coordinates != nil {
		coords := *f.Coordinates
		c.Coordinates = &coords
	}
	if f.Free != nil {
		free := *f.Free
		c.Free = &free
	}
	if f.LastVerified != nil {
		lv := *f.LastVerified
		c.LastVerified = &lv
	}
	c.Evidence = append([]string(nil), f.Evidence...)
	return &c
}

// DatasetCounts is the per-verdict summary written alongside the facilities.
type DatasetCounts struct {
	Total     int `json:"total"`
	Confirmed int `json:"confirmed"`
	Uncertain int `json:"uncertain"`
	Rejected  int `json:"rejected"`
	Free      int `json:"free"`
	Paid      int `json:"paid"`
}

// Dataset is the ordered facility collection of one region file.
// No two entries share an ID; insertion order is preserved.
type Dataset struct {
	Region      string
	LastScraped time.Time
	LastRunID   string

	facilities []*Facility
	index      map[string]int
}

// NewDataset builds a dataset, rejecting duplicate ids.
func NewDataset(region string, facilities []*Facility) (*Dataset, error) {
	d := &Dataset{
		Region:     region,
		facilities: make([]*Facility, 0, len(facilities)),
		index:      make(map[string]int, len(facilities)),
	}
	for _, f := range facilities {
		if f == nil {
			continue
		}
		if err := d.insert(f); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Facilities returns the facilities in insertion order. Callers must not mutate them.
func (d *Dataset) Facilities() []*Facility {
	return d.facilities
}

func (d *Dataset) Len() int {
	return len(d.facilities)
}

// Get returns the facility with the given id, or nil.
func (d *Dataset) Get(id string) *Facility {
	i, ok := d.index[id]
	if !ok {
		return nil
	}
	return d.facilities[i]
}

// Clone returns a deep copy that can be mutated independently.
func (d *Dataset) Clone() *Dataset {
	c := &Dataset{
		Region:      d.Region,
		LastScraped: d.LastScraped,
		LastRunID:   d.LastRunID,
		facilities:  make([]*Facility, len(d.facilities)),
		index:       make(map[string]int, len(d.index)),
	}
	for i, f := range d.facilities {
		c.facilities[i] = f.clone()
		c.index[f.ID] = i
	}
	return c
}

// Counts summarises the dataset by verdict and free/paid flag.
func (d *Dataset) Counts() DatasetCounts {
	var c DatasetCounts
	for _, f := range d.facilities {
		c.Total++
		switch f.Verdict {
		case VerdictConfirmed:
			c.Confirmed++
		case VerdictUncertain:
			c.Uncertain++
		case VerdictRejected:
			c.Rejected++
		}
		if f.Free != nil {
			if *f.Free {
				c.Free++
			} else {
				c.Paid++
			}
		}
	}
	return c
}

// Apply mutates the dataset according to a merge decision.
func (d *Dataset) Apply(dec MergeDecision) error {
	switch dec.Kind {
	case DecisionInsert:
		if dec.Facility == nil {
			return fmt.Errorf("insert decision without facility")
		}
		return d.insert(dec.Facility.clone())

	case DecisionUpdate:
		f := d.Get(dec.FacilityID)
		if f == nil {
			return fmt.Errorf("update %s: %w", dec.FacilityID, ErrUnknownFacility)
		}
		dec.Changes.applyTo(f)
		return nil

	case DecisionSkip:
		if !dec.Touch {
			return nil
		}
		f := d.Get(dec.FacilityID)
		if f == nil {
			return fmt.Errorf("touch %s: %w", dec.FacilityID, ErrUnknownFacility)
		}
		at := dec.At
		f.LastVerified = &at
		return nil
	}
	return fmt.Errorf("unknown decision kind %q", dec.Kind)
}

func (d *Dataset) insert(f *Facility) error {
	if d.index == nil {
		d.index = make(map[string]int)
	}
	if _, exists := d.index[f.ID]; exists {
		return fmt.Errorf("insert %s: %w", f.ID, ErrDuplicateID)
	}
	d.index[f.ID] = len(d.facilities)
	d.facilities = append(d.facilities, f)
	return nil
}

// DecisionKind is the outcome of comparing a candidate with the dataset.
type DecisionKind string

const (
	DecisionInsert DecisionKind = "INSERT"
	DecisionUpdate DecisionKind = "UPDATE"
	DecisionSkip   DecisionKind = "SKIP"
)

// SkipReason explains a SKIP decision.
type SkipReason string

const (
	SkipDuplicate   SkipReason = "duplicate"
	SkipNoDowngrade SkipReason = "confirmed facility is never downgraded"
	SkipRejected    SkipReason = "rejected candidate with no existing facility"
)

// FacilityChanges lists the fields an UPDATE rewrites. Nil fields are left untouched.
type FacilityChanges struct {
	Verdict      *Verdict
	Address      *string
	Coordinates  *Coordinates
	Free         *bool
	LastVerified *time.Time
	Evidence     []string
	ExternalID   string
	URL          string
	RunID        string
}

func (c FacilityChanges) applyTo(f *Facility) {
	if c.Verdict != nil {
		f.Verdict = *c.Verdict
	}
	if c.Address != nil {
		f.Address = *c.Address
	}
	if c.Coordinates != nil {
		coords := *c.Coordinates
		f.Coordinates = &coords
	}
	if c.Free != nil {
		free := *c.Free
		f.Free = &free
	}
	if c.LastVerified != nil {
		lv := *c.LastVerified
		f.LastVerified = &lv
	}
	if c.Evidence != nil {
		f.Evidence = append([]string(nil), c.Evidence...)
	}
	if c.ExternalID != "" {
		f.ExternalID = c.ExternalID
	}
	if c.URL != "" {
		f.URL = c.URL
	}
	if c.RunID != "" {
		f.RunID = c.RunID
	}
}

// MergeDecision is INSERT(Facility), UPDATE(FacilityID, Changes) or SKIP(Reason).
// A SKIP with Touch set bumps the matched facility's last-verified time to At.
type MergeDecision struct {
	Kind       DecisionKind
	Facility   *Facility
	FacilityID string
	Changes    FacilityChanges
	Reason     SkipReason
	Touch      bool
	At         time.Time
	Verdict    Verdict
}

// PersistStats counts the decisions applied by one persist call.
type PersistStats struct {
	Inserted int
	Updated  int
	Skipped  int
	Total    int
}
