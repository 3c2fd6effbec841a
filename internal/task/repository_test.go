package task

import (
	"testing"
	"time"

	"ytdlp-panel/internal/database"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := database.Init(t.TempDir())
	if err != nil {
		t.Fatalf("database.Init failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo, err := NewRepository(db)
	if err != nil {
		t.Fatalf("NewRepository failed: %v", err)
	}
	return repo
}

func TestRepositorySaveUpserts(t *testing.T) {
	repo := newTestRepository(t)
	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	snap := Snapshot{ID: 1, URL: "https://a", Status: StatusDownloading, StartTime: start, OutputDir: "/tmp/dl"}
	if err := repo.Save("session-1", snap); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	snap.Status = StatusCompleted
	snap.Progress = 100
	snap.EndTime = start.Add(time.Minute)
	snap.File = &FileInfo{Name: "a.mp4", Size: 2048, Path: "/tmp/dl/a.mp4"}
	if err := repo.Save("session-1", snap); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	records, err := repo.List(10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected upsert to keep one row, got %d", len(records))
	}
	rec := records[0]
	if rec.Status != StatusCompleted || rec.Progress != 100 {
		t.Errorf("unexpected status/progress: %s %v", rec.Status, rec.Progress)
	}
	if rec.FileName != "a.mp4" || rec.FileSize != 2048 || rec.FilePath != "/tmp/dl/a.mp4" {
		t.Errorf("unexpected file fields: %+v", rec)
	}
	if rec.EndTime == nil || !rec.EndTime.Equal(start.Add(time.Minute)) {
		t.Errorf("unexpected end time: %v", rec.EndTime)
	}
	if !rec.StartTime.Equal(start) {
		t.Errorf("unexpected start time: %v", rec.StartTime)
	}
}

func TestRepositorySessionsDoNotCollide(t *testing.T) {
	repo := newTestRepository(t)
	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	repo.Save("old", Snapshot{ID: 1, URL: "https://old", Status: StatusFailed, StartTime: start})
	repo.Save("new", Snapshot{ID: 1, URL: "https://new", Status: StatusDownloading, StartTime: start.Add(time.Hour)})

	records, err := repo.List(10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(records))
	}
	if records[0].URL != "https://new" {
		t.Errorf("expected newest first, got %s", records[0].URL)
	}
	if records[1].EndTime != nil {
		t.Errorf("expected nil end time, got %v", records[1].EndTime)
	}
}

func TestRepositoryListLimitAndClear(t *testing.T) {
	repo := newTestRepository(t)
	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	for i := int64(1); i <= 5; i++ {
		repo.Save("s", Snapshot{ID: i, URL: "https://x", Status: StatusCompleted, StartTime: start.Add(time.Duration(i) * time.Second)})
	}

	records, err := repo.List(3)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 3 || records[0].TaskID != 5 {
		t.Fatalf("unexpected records: %+v", records)
	}

	if err := repo.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	records, _ = repo.List(3)
	if len(records) != 0 {
		t.Errorf("expected empty history, got %d", len(records))
	}
}
