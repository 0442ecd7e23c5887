package models

import (
	"errors"
	"testing"
	"time"
)

func TestNewDatasetRejectsDuplicateIDs(t *testing.T) {
	_, err := NewDataset("r", []*Facility{{ID: "a"}, {ID: "b"}, {ID: "a"}})
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
}

func TestDatasetApplyInsertKeepsOrder(t *testing.T) {
	ds, _ := NewDataset("r", []*Facility{{ID: "a", Verdict: VerdictConfirmed}})

	f := &Facility{ID: "b", Verdict: VerdictUncertain}
	if err := ds.Apply(MergeDecision{Kind: DecisionInsert, Facility: f}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	f.Name = "mutated after insert"

	if ds.Len() != 2 || ds.Facilities()[1].ID != "b" {
		t.Fatalf("unexpected facilities: %+v", ds.Facilities())
	}
	if ds.Get("b").Name != "" {
		t.Error("dataset must hold its own copy of an inserted facility")
	}
	if err := ds.Apply(MergeDecision{Kind: DecisionInsert, Facility: &Facility{ID: "a"}}); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("second insert of a: got %v", err)
	}
}

func TestDatasetApplyUpdate(t *testing.T) {
	paid := false
	ds, _ := NewDataset("r", []*Facility{{ID: "a", Address: "old", Verdict: VerdictUncertain, Free: &paid, Evidence: []string{"toilet"}}})

	confirmed := VerdictConfirmed
	addr := "new"
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	err := ds.Apply(MergeDecision{Kind: DecisionUpdate, FacilityID: "a", Changes: FacilityChanges{
		Verdict:      &confirmed,
		Address:      &addr,
		LastVerified: &at,
		Evidence:     []string{"shower"},
		RunID:        "run-2",
	}})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	f := ds.Get("a")
	if f.Verdict != VerdictConfirmed || f.Address != "new" || f.RunID != "run-2" {
		t.Errorf("update not applied: %+v", f)
	}
	if f.Free == nil || *f.Free {
		t.Error("fields without a change must be left alone")
	}
	if len(f.Evidence) != 1 || f.Evidence[0] != "shower" {
		t.Errorf("evidence: got %q", f.Evidence)
	}

	if err := ds.Apply(MergeDecision{Kind: DecisionUpdate, FacilityID: "zzz"}); !errors.Is(err, ErrUnknownFacility) {
		t.Errorf("update of unknown id: got %v", err)
	}
}

func TestDatasetApplySkip(t *testing.T) {
	ds, _ := NewDataset("r", []*Facility{{ID: "a", Verdict: VerdictConfirmed}})
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	if err := ds.Apply(MergeDecision{Kind: DecisionSkip, FacilityID: "a", Reason: SkipNoDowngrade}); err != nil {
		t.Fatalf("skip: %v", err)
	}
	if ds.Get("a").LastVerified != nil {
		t.Error("skip without touch must not change the facility")
	}

	if err := ds.Apply(MergeDecision{Kind: DecisionSkip, FacilityID: "a", Reason: SkipDuplicate, Touch: true, At: at}); err != nil {
		t.Fatalf("touch: %v", err)
	}
	if lv := ds.Get("a").LastVerified; lv == nil || !lv.Equal(at) {
		t.Errorf("touch: got %v", lv)
	}
}

func TestDatasetCloneIsDeep(t *testing.T) {
	free := true
	ds, _ := NewDataset("r", []*Facility{{ID: "a", Free: &free, Coordinates: &Coordinates{Lat: 1, Lng: 2}, Evidence: []string{"shower"}}})

	c := ds.Clone()
	*c.Get("a").Free = false
	c.Get("a").Coordinates.Lat = 9
	c.Get("a").Evidence[0] = "changed"
	if err := c.Apply(MergeDecision{Kind: DecisionInsert, Facility: &Facility{ID: "b"}}); err != nil {
		t.Fatal(err)
	}

	orig := ds.Get("a")
	if !*orig.Free || orig.Coordinates.Lat != 1 || orig.Evidence[0] != "shower" {
		t.Errorf("clone shares state with the original: %+v", orig)
	}
	if ds.Len() != 1 || ds.Get("b") != nil {
		t.Error("insert into the clone leaked into the original")
	}
}

func TestDatasetCounts(t *testing.T) {
	free, paid := true, false
	ds, _ := NewDataset("r", []*Facility{
		{ID: "a", Verdict: VerdictConfirmed, Free: &free},
		{ID: "b", Verdict: VerdictConfirmed, Free: &paid},
		{ID: "c", Verdict: VerdictUncertain},
		{ID: "d", Verdict: VerdictRejected},
	})

	want := DatasetCounts{Total: 4, Confirmed: 2, Uncertain: 1, Rejected: 1, Free: 1, Paid: 1}
	if got := ds.Counts(); got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestRunReportTotalsAndFailed(t *testing.T) {
	a := &RegionReport{Region: "a", State: StateCompleted, Queries: 2, Inserted: 3}
	b := &RegionReport{Region: "b", State: StatePartial, Queries: 1, QueriesFailed: 1}
	b.AddError("q", ErrorNavigation, errors.New("timeout"))
	r := &RunReport{Regions: []*RegionReport{a, b}}

	tot := r.Totals()
	if tot.Queries != 3 || tot.Inserted != 3 || tot.QueriesFailed != 1 || tot.ErrorCount != 1 || len(tot.Errors) != 1 {
		t.Errorf("totals: %+v", tot)
	}
	if tot.Errors[0].Region != "b" {
		t.Errorf("error region: got %q", tot.Errors[0].Region)
	}
	if r.Failed() {
		t.Error("partial is not failed")
	}
	b.State = StateFailed
	if !r.Failed() {
		t.Error("failed region not reported")
	}
}

func TestQueryString(t *testing.T) {
	q := Query{SearchText: "beach showers"}
	if q.String() != "beach showers" {
		t.Errorf("got %q", q.String())
	}
	q.Bias = &Bias{Center: Coordinates{Lat: -33.8688, Lng: 151.2093}, Zoom: 12}
	if q.String() != "beach showers @-33.86880,151.20930" {
		t.Errorf("got %q", q.String())
	}
}
