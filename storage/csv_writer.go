package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

var auditHeader = []string{
	"verified_at", "run_id", "region", "query", "external_id", "name", "address",
	"verdict", "evidence", "decision", "reason", "facility_id",
}

// AuditRecord is one verification outcome and what the merge did with it.
type AuditRecord struct {
	At         time.Time
	RunID      string
	Region     string
	Query      string
	ExternalID string
	Name       string
	Address    string
	Verdict    string
	Evidence   []string
	Decision   string
	Reason     string
	FacilityID string
}

// CSVWriter appends audit records to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

var _ AuditWriter = (*CSVWriter)(nil)

// NewCSVWriter opens (or creates) the CSV file at the given path for
// appending. The header row is written only to a new, empty file.
// Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("csv: open file %q: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: stat %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(auditHeader); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("csv: write header: %w", err)
		}
		w.Flush()
	}

	return &CSVWriter{file: f, writer: w}, nil
}

// WriteAudit appends records and flushes them.
func (c *CSVWriter) WriteAudit(records []AuditRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, r := range records {
		row := []string{
			r.At.UTC().Format(time.RFC3339),
			r.RunID,
			r.Region,
			r.Query,
			r.ExternalID,
			r.Name,
			r.Address,
			r.Verdict,
			strings.Join(r.Evidence, "; "),
			r.Decision,
			r.Reason,
			r.FacilityID,
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writer.Flush()
	return c.file.Close()
}
