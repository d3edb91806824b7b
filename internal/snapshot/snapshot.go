// Package snapshot writes every schedule entry to a flat JSON file and reads
// it back, so a deployment without a database can survive restarts.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BTreeMap/LineSchedule/internal/models"
	"github.com/BTreeMap/LineSchedule/internal/store"
)

// DefaultFileName is the snapshot file created in the state directory.
const DefaultFileName = "schedules.json"

// Version is written into every snapshot.
const Version = 1

// File is the on-disk snapshot document.
type File struct {
	Version    int                    `json:"version"`
	ExportedAt time.Time              `json:"exported_at"`
	Entries    []models.ScheduleEntry `json:"entries"`
}

// Exporter rewrites the snapshot file from the store.
type Exporter struct {
	source store.Exporter
	path   string
	mu     sync.Mutex
}

// NewExporter creates an Exporter writing to path.
func NewExporter(source store.Exporter, path string) *Exporter {
	return &Exporter{source: source, path: path}
}

// Path returns the snapshot file location.
func (e *Exporter) Path() string {
	return e.path
}

// Export writes all entries to a temporary file in the target directory and
// renames it over the snapshot, so readers never observe a partial file.
func (e *Exporter) Export(ctx context.Context) error {
	entries, err := e.source.AllScheduleEntries(ctx)
	if err != nil {
		return fmt.Errorf("snapshot: read entries: %w", err)
	}
	if entries == nil {
		entries = []models.ScheduleEntry{}
	}
	data, err := json.MarshalIndent(File{Version: Version, ExportedAt: time.Now().UTC(), Entries: entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot: encode: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	dir := filepath.Dir(e.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("snapshot: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(e.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("snapshot: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("snapshot: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("snapshot: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("snapshot: close: %w", err)
	}
	if err := os.Rename(tmpName, e.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("snapshot: rename: %w", err)
	}
	slog.Debug("Exporter.Export: snapshot written", "path", e.path, "entries", len(entries))
	return nil
}

// Load reads a snapshot file. A missing file yields no entries and no error.
func Load(path string) ([]models.ScheduleEntry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("snapshot.Load: no snapshot file", "path", path)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: read %s: %w", path, err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("snapshot: decode %s: %w", path, err)
	}
	if f.Version != Version {
		return nil, fmt.Errorf("snapshot: unsupported version %d", f.Version)
	}
	slog.Debug("snapshot.Load: snapshot read", "path", path, "entries", len(f.Entries))
	return f.Entries, nil
}
