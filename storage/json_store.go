package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"shower-scraper/models"
	"shower-scraper/utils"
)

// CorruptDataError means a persisted dataset exists but cannot be trusted.
// The region must not continue with an empty dataset in its place.
type CorruptDataError struct {
	Path string
	Err  error
}

func (e *CorruptDataError) Error() string {
	return fmt.Sprintf("corrupt dataset %s: %v", e.Path, e.Err)
}

func (e *CorruptDataError) Unwrap() error { return e.Err }

// datasetFile is the on-disk layout consumed downstream.
type datasetFile struct {
	Region      string               `json:"region"`
	LastScraped *time.Time           `json:"lastScraped"`
	LastRunID   string               `json:"lastRunId,omitempty"`
	Counts      models.DatasetCounts `json:"counts"`
	Facilities  []*models.Facility   `json:"facilities"`
}

// JSONStore keeps one JSON file per region under a data directory.
type JSONStore struct {
	dir    string
	logger *utils.Logger
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	// beforeRename runs after the temp file is synced; tests use it to
	// simulate a crash mid-write.
	beforeRename func(tmpPath string) error
}

var _ DatasetStore = (*JSONStore)(nil)

// NewJSONStore creates the data directory if needed.
func NewJSONStore(dir string, logger *utils.Logger) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("json store: create data dir: %w", err)
	}
	return &JSONStore{
		dir:    dir,
		logger: logger.With("store"),
		now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

// Path returns the file backing a region.
func (s *JSONStore) Path(regionID string) string {
	return filepath.Join(s.dir, regionID+".json")
}

func (s *JSONStore) lock(path string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[path]
	if !ok {
		l = &sync.Mutex{}
		s.locks[path] = l
	}
	return l
}

func (s *JSONStore) Load(regionID string) (*models.Dataset, error) {
	path := s.Path(regionID)
	l := s.lock(path)
	l.Lock()
	defer l.Unlock()

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Info("No dataset for %s yet, starting empty", regionID)
		return models.NewDataset(regionID, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("json store: read %s: %w", path, err)
	}

	var file datasetFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, &CorruptDataError{Path: path, Err: err}
	}
	if file.Region != "" && file.Region != regionID {
		return nil, &CorruptDataError{Path: path, Err: fmt.Errorf("file belongs to region %q", file.Region)}
	}
	for i, f := range file.Facilities {
		if f == nil || f.ID == "" {
			return nil, &CorruptDataError{Path: path, Err: fmt.Errorf("facility #%d has no id", i)}
		}
		if !f.Verdict.Valid() {
			return nil, &CorruptDataError{Path: path, Err: fmt.Errorf("facility %s has unknown verdict %q", f.ID, f.Verdict)}
		}
	}

	ds, err := models.NewDataset(regionID, file.Facilities)
	if err != nil {
		return nil, &CorruptDataError{Path: path, Err: err}
	}
	if file.LastScraped != nil {
		ds.LastScraped = *file.LastScraped
	}
	ds.LastRunID = file.LastRunID

	s.logger.Debug("Loaded %d facilities for %s", ds.Len(), regionID)
	return ds, nil
}

func (s *JSONStore) ApplyAndPersist(ds *models.Dataset, decisions []models.MergeDecision, runID string) (models.PersistStats, error) {
	var stats models.PersistStats
	path := s.Path(ds.Region)
	l := s.lock(path)
	l.Lock()
	defer l.Unlock()

	next := ds.Clone()
	for _, dec := range decisions {
		if err := next.Apply(dec); err != nil {
			return stats, fmt.Errorf("json store: apply %s decision: %w", dec.Kind, err)
		}
		switch dec.Kind {
		case models.DecisionInsert:
			stats.Inserted++
		case models.DecisionUpdate:
			stats.Updated++
		default:
			stats.Skipped++
		}
	}
	next.LastScraped = s.now().UTC()
	next.LastRunID = runID
	stats.Total = next.Len()

	if err := s.write(path, next); err != nil {
		return models.PersistStats{}, err
	}

	*ds = *next
	s.logger.Debug("Persisted %s: +%d ~%d =%d (total %d)", ds.Region, stats.Inserted, stats.Updated, stats.Skipped, stats.Total)
	return stats, nil
}

// write replaces path atomically: temp file in the same directory, fsync,
// rename. On any failure the previous file is untouched and the temp file
// is removed.
func (s *JSONStore) write(path string, ds *models.Dataset) (err error) {
	lastScraped := ds.LastScraped
	file := datasetFile{
		Region:      ds.Region,
		LastScraped: &lastScraped,
		LastRunID:   ds.LastRunID,
		Counts:      ds.Counts(),
		Facilities:  ds.Facilities(),
	}
	if file.Facilities == nil {
		file.Facilities = []*models.Facility{}
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("json store: encode %s: %w", ds.Region, err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("json store: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("json store: write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("json store: sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("json store: close temp file: %w", err)
	}
	if s.beforeRename != nil {
		if err = s.beforeRename(tmpPath); err != nil {
			return fmt.Errorf("json store: %w", err)
		}
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("json store: replace %s: %w", path, err)
	}

	if d, derr := os.Open(dir); derr == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
