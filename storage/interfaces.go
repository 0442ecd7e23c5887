package storage

import (
	"context"

	"shower-scraper/models"
)

// DatasetStore is the durable home of the per-region datasets.
type DatasetStore interface {
	// Load returns the region's dataset, empty when none was persisted yet.
	Load(regionID string) (*models.Dataset, error)
	// ApplyAndPersist applies decisions to ds and atomically replaces the
	// region file. ds is only changed when the write succeeds.
	ApplyAndPersist(ds *models.Dataset, decisions []models.MergeDecision, runID string) (models.PersistStats, error)
}

// FacilityMirror copies a persisted dataset to a secondary backend.
type FacilityMirror interface {
	Mirror(ctx context.Context, ds *models.Dataset) error
	Close() error
}

// AuditWriter records every verification for later review.
type AuditWriter interface {
	WriteAudit(records []AuditRecord) error
	Close() error
}
