package snapshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BTreeMap/LineSchedule/internal/models"
	"github.com/BTreeMap/LineSchedule/internal/store"
	"github.com/BTreeMap/LineSchedule/internal/timewindow"
)

type failingSource struct{}

func (failingSource) AllScheduleEntries(ctx context.Context) ([]models.ScheduleEntry, error) {
	return nil, errors.New("store offline")
}

func TestExportAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state", DefaultFileName)
	src := store.NewInMemoryStore()
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, timewindow.DefaultLocation)
	if _, err := src.AddScheduleEntry(context.Background(), models.ScheduleEntry{OwnerID: "U1", Text: "Dentist", ScheduledAt: at}); err != nil {
		t.Fatalf("AddScheduleEntry failed: %v", err)
	}

	exp := NewExporter(src, path)
	if err := exp.Export(context.Background()); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	entries, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Text != "Dentist" || !entries[0].ScheduledAt.Equal(at) {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	restored := store.NewInMemoryStore()
	restored.Restore(entries)
	got, _ := restored.ListScheduleEntries(context.Background(), "U1", at.Add(-time.Hour), at.Add(time.Hour))
	if len(got) != 1 || got[0].ID != entries[0].ID {
		t.Errorf("restore did not keep the entry: %+v", got)
	}
}

func TestExportLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	exp := NewExporter(store.NewInMemoryStore(), filepath.Join(dir, DefaultFileName))
	for i := 0; i < 3; i++ {
		if err := exp.Export(context.Background()); err != nil {
			t.Fatalf("Export failed: %v", err)
		}
	}
	files, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(files) != 1 || files[0].Name() != DefaultFileName {
		t.Errorf("expected only the snapshot file, got %v", files)
	}
}

func TestExportKeepsPreviousSnapshotOnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFileName)
	if err := os.WriteFile(path, []byte(`{"version":1,"entries":[]}`), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := NewExporter(failingSource{}, path).Export(context.Background()); err == nil {
		t.Fatal("expected export error")
	}
	data, _ := os.ReadFile(path)
	if string(data) != `{"version":1,"entries":[]}` {
		t.Errorf("previous snapshot was modified: %s", data)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	entries, err := Load(filepath.Join(dir, "missing.json"))
	if err != nil || entries != nil {
		t.Errorf("missing file: expected nil, nil; got %v, %v", entries, err)
	}

	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte("not json"), 0644)
	if _, err := Load(bad); err == nil {
		t.Error("expected decode error")
	}

	future := filepath.Join(dir, "future.json")
	os.WriteFile(future, []byte(`{"version":99,"entries":[]}`), 0644)
	if _, err := Load(future); err == nil {
		t.Error("expected version error")
	}
}
