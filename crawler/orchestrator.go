// Package crawler drives regions through planning, scraping, verification
// and persistence.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"shower-scraper/models"
	"shower-scraper/scraper"
	"shower-scraper/services"
	"shower-scraper/storage"
	"shower-scraper/utils"
)

var errPersist = errors.New("persist failed")

// Config gathers the knobs of every pipeline stage.
type Config struct {
	Paginator scraper.PaginatorConfig
	Extractor scraper.ExtractorConfig
	Verifier  services.VerifierConfig
	Dedup     services.DedupConfig

	MaxReviews          int
	MaxConcurrency      int
	RegionStartInterval time.Duration
	// QueryDelay is slept between two queries of a region.
	QueryDelay utils.Jitter
	// QueryRetry retries a query whose results page cannot be reached.
	QueryRetry utils.RetryConfig
}

// Orchestrator runs regions through the pipeline. Each region owns one
// session and processes its queries one at a time.
type Orchestrator struct {
	cfg      Config
	store    storage.DatasetStore
	sessions scraper.SessionFactory
	audit    storage.AuditWriter
	mirror   storage.FacilityMirror

	planner   *services.Planner
	cleaner   *services.Cleaner
	verifier  *services.Verifier
	paginator *scraper.Paginator
	extractor *scraper.Extractor

	logger *utils.Logger
	now    func() time.Time
	runID  func() string
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithAudit records every verification.
func WithAudit(w storage.AuditWriter) Option {
	return func(o *Orchestrator) { o.audit = w }
}

// WithMirror copies each persisted dataset to a secondary backend.
func WithMirror(m storage.FacilityMirror) Option {
	return func(o *Orchestrator) { o.mirror = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithRunID overrides the random run id.
func WithRunID(id string) Option {
	return func(o *Orchestrator) { o.runID = func() string { return id } }
}

func New(cfg Config, store storage.DatasetStore, sessions scraper.SessionFactory, logger *utils.Logger, opts ...Option) *Orchestrator {
	if cfg.Extractor.Retry == nil {
		retry := cfg.QueryRetry
		cfg.Extractor.Retry = &retry
	}
	o := &Orchestrator{
		cfg:       cfg,
		store:     store,
		sessions:  sessions,
		planner:   services.NewPlanner(),
		cleaner:   services.NewCleaner(cfg.MaxReviews, logger),
		verifier:  services.NewVerifier(cfg.Verifier, logger),
		paginator: scraper.NewPaginator(cfg.Paginator, logger),
		extractor: scraper.NewExtractor(cfg.Extractor, logger),
		logger:    logger.With("crawler"),
		now:       time.Now,
		runID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run processes regions on a pool of MaxConcurrency workers and returns the
// report once all of them have settled. Regions not started before ctx is
// done stay PLANNED.
func (o *Orchestrator) Run(ctx context.Context, regions []models.Region) *models.RunReport {
	report := &models.RunReport{RunID: o.runID(), StartedAt: o.now()}
	o.logger.Info("Run %s: %d region(s), concurrency %d", report.RunID, len(regions), o.cfg.MaxConcurrency)

	dedupCfg := o.cfg.Dedup
	dedupCfg.RunID = report.RunID
	if dedupCfg.Now == nil {
		dedupCfg.Now = o.now
	}
	dedup := services.NewDeduplicator(dedupCfg, o.logger)

	pool := utils.NewWorkerPool(o.cfg.MaxConcurrency, o.cfg.RegionStartInterval)
	for _, region := range regions {
		rr := &models.RegionReport{Region: region.ID, State: models.StatePlanned}
		report.Regions = append(report.Regions, rr)

		r := &regionRun{o: o, region: region, report: rr, dedup: dedup, runID: report.RunID}
		if err := pool.Submit(ctx, func() { r.run(ctx) }); err != nil {
			rr.AddError("", models.ErrorCanceled, err)
			o.logger.Warn("%s: not started: %v", region.ID, err)
		}
	}
	pool.Wait()

	report.FinishedAt = o.now()
	totals := report.Totals()
	o.logger.Info("Run %s finished in %s: %d found, %d inserted, %d updated, %d error(s)",
		report.RunID, report.FinishedAt.Sub(report.StartedAt).Round(time.Second),
		totals.Found, totals.Inserted, totals.Updated, totals.ErrorCount)
	return report
}

// regionRun is the state owned by one region's worker.
type regionRun struct {
	o      *Orchestrator
	region models.Region
	report *models.RegionReport
	dedup  *services.Deduplicator
	runID  string
	logger *utils.Logger

	ds   *models.Dataset
	seen *utils.SeenSet
}

func (r *regionRun) run(ctx context.Context) {
	rr := r.report
	r.logger = r.o.logger.With(r.region.ID)
	rr.StartedAt = r.o.now()
	defer func() {
		rr.FinishedAt = r.o.now()
		r.logger.Info("%s after %d queries (%d failed): %d found, %d confirmed, %d inserted, %d updated",
			rr.State, rr.Queries, rr.QueriesFailed, rr.Found, rr.Confirmed, rr.Inserted, rr.Updated)
	}()

	ds, err := r.o.store.Load(r.region.ID)
	if err != nil {
		r.fail("", err)
		return
	}
	r.ds = ds
	r.seen = utils.NewSeenSet()

	sess, err := r.o.sessions(ctx)
	if err != nil {
		r.fail("", err)
		return
	}
	defer func() {
		if err := sess.Close(); err != nil {
			r.logger.Warn("Closing session: %v", err)
		}
	}()

	rr.State = models.StateRunning
	queries := r.o.planner.Plan(r.region)
	r.logger.Info("Running %d queries against %d known facilities", len(queries), ds.Len())

	canceled := false
	for i, q := range queries {
		if i > 0 {
			if err := utils.Sleep(ctx, r.o.cfg.QueryDelay.Next()); err != nil {
				canceled = true
			}
		}
		if canceled || ctx.Err() != nil {
			rr.AddError(q.String(), models.ErrorCanceled,
				fmt.Errorf("run canceled, %d of %d queries not started: %w", len(queries)-i, len(queries), context.Cause(ctx)))
			canceled = true
			break
		}

		rr.Queries++
		// The query finishes even when the run is canceled meanwhile.
		err := r.query(context.WithoutCancel(ctx), sess, q)
		if errors.Is(err, errPersist) {
			r.fail(q.String(), err)
			return
		}
		if err != nil {
			rr.QueriesFailed++
			rr.AddError(q.String(), errorKind(err), err)
			r.logger.Warn("Query %q abandoned: %v", q.String(), err)
		}
	}

	if rr.QueriesFailed > 0 || canceled {
		rr.State = models.StatePartial
	} else {
		rr.State = models.StateCompleted
	}
}

func (r *regionRun) fail(query string, err error) {
	r.report.State = models.StateFailed
	r.report.AddError(query, errorKind(err), err)
	r.logger.Error("Region failed: %v", err)
}

// query collects the result references, then reads and verifies each one.
// Decisions are staged on a clone so later candidates see earlier inserts;
// the region dataset only changes through the store.
func (r *regionRun) query(ctx context.Context, sess scraper.Session, q models.Query) error {
	refs, err := r.collect(ctx, sess, q)
	if err != nil {
		return err
	}
	r.logger.Debug("%q: %d result(s)", q.String(), len(refs))

	staged := r.ds.Clone()
	var decisions []models.MergeDecision
	var audit []storage.AuditRecord

	for _, ref := range refs {
		r.report.Found++
		if ref.ExternalID != "" && r.seen.Contains(ref.ExternalID) {
			r.report.Duplicates++
			continue
		}

		place, err := r.o.extractor.Extract(ctx, sess, ref)
		if err != nil {
			r.report.AddError(q.String(), errorKind(err), err)
			r.logger.Warn("Skipping %s: %v", ref.URL, err)
			continue
		}
		// Only a place that was actually read counts as seen; a later query may retry it.
		if ref.ExternalID != "" {
			r.seen.Add(ref.ExternalID)
		}
		place, ok := r.o.cleaner.Clean(place)
		if !ok {
			continue
		}

		res := r.o.verifier.Verify(place)
		switch res.Verdict {
		case models.VerdictConfirmed:
			r.report.Confirmed++
		case models.VerdictRejected:
			r.report.Rejected++
		default:
			r.report.Uncertain++
		}

		dec := r.dedup.Merge(staged, place, res)
		if err := staged.Apply(dec); err != nil {
			r.report.AddError(q.String(), models.ErrorOther, err)
			continue
		}
		decisions = append(decisions, dec)
		if dec.Kind == models.DecisionSkip && dec.Reason == models.SkipDuplicate {
			r.report.Duplicates++
		}
		audit = append(audit, r.auditRecord(q, place, res, dec))
	}

	stats, err := r.o.store.ApplyAndPersist(r.ds, decisions, r.runID)
	if err != nil {
		return fmt.Errorf("%w: %w", errPersist, err)
	}
	r.report.Inserted += stats.Inserted
	r.report.Updated += stats.Updated

	if r.o.audit != nil && len(audit) > 0 {
		if err := r.o.audit.WriteAudit(audit); err != nil {
			r.logger.Warn("Audit log: %v", err)
		}
	}
	if r.o.mirror != nil {
		if err := r.o.mirror.Mirror(ctx, r.ds); err != nil {
			r.report.AddError(q.String(), models.ErrorOther, err)
			r.logger.Warn("Mirror: %v", err)
		}
	}
	return nil
}

// collect drains the paginator. A navigation failure restarts the query
// from the first result with exponential backoff.
func (r *regionRun) collect(ctx context.Context, sess scraper.Session, q models.Query) ([]models.CandidatePlace, error) {
	retry := r.o.cfg.QueryRetry
	retry.Retryable = scraper.IsNavigation
	retry.Logger = r.logger

	var refs []models.CandidatePlace
	err := retry.Do(ctx, "query "+q.String(), func(int) error {
		refs = refs[:0]
		for ref, err := range r.o.paginator.Paginate(ctx, sess, q) {
			if err != nil {
				return err
			}
			refs = append(refs, ref)
		}
		return nil
	})
	return refs, err
}

func (r *regionRun) auditRecord(q models.Query, c models.CandidatePlace, res models.VerificationResult, dec models.MergeDecision) storage.AuditRecord {
	rec := storage.AuditRecord{
		At:         r.o.now().UTC(),
		RunID:      r.runID,
		Region:     r.region.ID,
		Query:      q.String(),
		ExternalID: c.ExternalID,
		Name:       c.Name,
		Address:    c.Address,
		Verdict:    string(res.Verdict),
		Evidence:   res.Evidence,
		Decision:   string(dec.Kind),
		Reason:     string(dec.Reason),
		FacilityID: dec.FacilityID,
	}
	if dec.Facility != nil {
		rec.FacilityID = dec.Facility.ID
	}
	return rec
}

func errorKind(err error) models.ErrorKind {
	var corrupt *storage.CorruptDataError
	var launch *scraper.BrowserLaunchError
	switch {
	case errors.As(err, &corrupt):
		return models.ErrorCorrupt
	case errors.As(err, &launch):
		return models.ErrorBrowser
	case errors.Is(err, errPersist):
		return models.ErrorPersist
	case scraper.IsNavigation(err):
		return models.ErrorNavigation
	case scraper.IsExtraction(err):
		return models.ErrorExtraction
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return models.ErrorCanceled
	}
	return models.ErrorOther
}
