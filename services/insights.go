package services

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"shower-scraper/models"
	"shower-scraper/utils"
)

// DatasetSummary describes one region file after a run.
type DatasetSummary struct {
	Region      string
	Counts      models.DatasetCounts
	LastScraped time.Time
	// TopEvidence ranks the keywords behind confirmed facilities.
	TopEvidence []string
}

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger.With("insights")}
}

// Summarise counts a dataset and ranks its confirming evidence.
func (s *InsightService) Summarise(ds *models.Dataset) DatasetSummary {
	sum := DatasetSummary{Region: ds.Region, Counts: ds.Counts(), LastScraped: ds.LastScraped}

	freq := make(map[string]int)
	for _, f := range ds.Facilities() {
		if f.Verdict != models.VerdictConfirmed {
			continue
		}
		for _, e := range f.Evidence {
			freq[e]++
		}
	}
	for e := range freq {
		sum.TopEvidence = append(sum.TopEvidence, e)
	}
	sort.Slice(sum.TopEvidence, func(i, j int) bool {
		a, b := sum.TopEvidence[i], sum.TopEvidence[j]
		if freq[a] != freq[b] {
			return freq[a] > freq[b]
		}
		return a < b
	})
	if len(sum.TopEvidence) > 3 {
		sum.TopEvidence = sum.TopEvidence[:3]
	}
	return sum
}

// PrintReport renders the per-region outcome of a run and its errors.
func (s *InsightService) PrintReport(w io.Writer, r *models.RunReport) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Run %s (%s)", r.RunID, r.FinishedAt.Sub(r.StartedAt).Round(time.Second))
	t.AppendHeader(table.Row{"Region", "State", "Queries", "Failed", "Found", "Confirmed", "Rejected", "Uncertain", "Inserted", "Updated", "Duplicates", "Errors"})
	for _, rr := range r.Regions {
		t.AppendRow(reportRow(rr, string(rr.State)))
	}
	totals := r.Totals()
	t.AppendFooter(reportRow(&totals, ""))
	t.SetStyle(table.StyleRounded)
	t.Render()

	if totals.ErrorCount == 0 {
		return
	}
	e := table.NewWriter()
	e.SetOutputMirror(w)
	e.AppendHeader(table.Row{"Region", "Query", "Kind", "Error"})
	for _, re := range totals.Errors {
		e.AppendRow(table.Row{re.Region, truncate(re.Query, 40), re.Kind, truncate(re.Message, 80)})
	}
	e.SetStyle(table.StyleRounded)
	e.Render()
}

func reportRow(rr *models.RegionReport, state string) table.Row {
	return table.Row{
		rr.Region, state, rr.Queries, rr.QueriesFailed, rr.Found, rr.Confirmed, rr.Rejected,
		rr.Uncertain, rr.Inserted, rr.Updated, rr.Duplicates, rr.ErrorCount,
	}
}

// PrintDatasets renders dataset summaries.
func (s *InsightService) PrintDatasets(w io.Writer, sums []DatasetSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Region", "Total", "Confirmed", "Uncertain", "Rejected", "Free", "Paid", "Last scraped", "Top evidence"})
	for _, sum := range sums {
		last := "never"
		if !sum.LastScraped.IsZero() {
			last = sum.LastScraped.Format(time.RFC3339)
		}
		c := sum.Counts
		t.AppendRow(table.Row{sum.Region, c.Total, c.Confirmed, c.Uncertain, c.Rejected, c.Free, c.Paid, last, strings.Join(sum.TopEvidence, ", ")})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

// PrintPlan renders the queries a region would issue.
func (s *InsightService) PrintPlan(w io.Writer, region models.Region, queries []models.Query) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("%s (%d queries)", region.ID, len(queries))
	t.AppendHeader(table.Row{"#", "Search", "Bias"})
	for i, q := range queries {
		bias := "-"
		if q.Bias != nil {
			bias = fmt.Sprintf("%.5f,%.5f z%d", q.Bias.Center.Lat, q.Bias.Center.Lng, q.Bias.Zoom)
		}
		t.AppendRow(table.Row{i + 1, q.SearchText, bias})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
