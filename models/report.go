package models

import "time"

// RegionState tracks a region through a run.
type RegionState string

const (
	StatePlanned   RegionState = "PLANNED"
	StateRunning   RegionState = "RUNNING"
	StateCompleted RegionState = "COMPLETED"
	StatePartial   RegionState = "PARTIAL"
	StateFailed    RegionState = "FAILED"
)

// ErrorKind classifies non-fatal errors collected during a run.
type ErrorKind string

const (
	ErrorNavigation ErrorKind = "navigation"
	ErrorExtraction ErrorKind = "extraction"
	ErrorCorrupt    ErrorKind = "corrupt-data"
	ErrorBrowser    ErrorKind = "browser"
	ErrorPersist    ErrorKind = "persist"
	ErrorCanceled   ErrorKind = "canceled"
	ErrorOther      ErrorKind = "other"
)

// RunError is one recorded failure.
type RunError struct {
	Region  string
	Query   string
	Kind    ErrorKind
	Message string
}

// RegionReport holds per-region counters.
type RegionReport struct {
	Region        string
	State         RegionState
	Queries       int
	QueriesFailed int
	Found         int
	Confirmed     int
	Rejected      int
	Uncertain     int
	Inserted      int
	Updated       int
	Duplicates    int
	ErrorCount    int
	Errors        []RunError
	StartedAt     time.Time
	FinishedAt    time.Time
}

// AddError records err against the region.
func (r *RegionReport) AddError(query string, kind ErrorKind, err error) {
	r.ErrorCount++
	r.Errors = append(r.Errors, RunError{
		Region:  r.Region,
		Query:   query,
		Kind:    kind,
		Message: err.Error(),
	})
}

// RunReport aggregates region reports for one run.
type RunReport struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Regions    []*RegionReport
}

// Totals sums the counters of all regions. State is left empty.
func (r *RunReport) Totals() RegionReport {
	var t RegionReport
	t.Region = "TOTAL"
	for _, rr := range r.Regions {
		if rr == nil {
			continue
		}
		t.Queries += rr.Queries
		t.QueriesFailed += rr.QueriesFailed
		t.Found += rr.Found
		t.Confirmed += rr.Confirmed
		t.Rejected += rr.Rejected
		t.Uncertain += rr.Uncertain
		t.Inserted += rr.Inserted
		t.Updated += rr.Updated
		t.Duplicates += rr.Duplicates
		t.ErrorCount += rr.ErrorCount
		t.Errors = append(t.Errors, rr.Errors...)
	}
	return t
}

// Failed reports whether any region ended FAILED.
func (r *RunReport) Failed() bool {
	for _, rr := range r.Regions {
		if rr != nil && rr.State == StateFailed {
			return true
		}
	}
	return false
}
