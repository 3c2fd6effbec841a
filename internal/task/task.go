package task

import (
	"time"
)

// Status is the lifecycle state of a download task.
//
// Lifecycle: downloading -> completed | failed | cancelled
type Status string

const (
	StatusDownloading Status = "downloading"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusCancelled   Status = "cancelled"
)

func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further progress updates are expected.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Progress is one parsed observation of a running download. Empty strings
// and a false HasPercent mean "not present on this line".
type Progress struct {
	Percent    float64
	HasPercent bool
	TotalSize  string
	Speed      string
	ETA        string
}

// FileInfo describes the file a completed download produced.
type FileInfo struct {
	Name string
	Size int64
	Path string
}

// Task is the registry's mutable record. Only the registry touches it;
// callers receive Snapshot copies.
type Task struct {
	ID          int64
	URL         string
	Format      string
	Status      Status
	Progress    float64
	Speed       string
	ETA         string
	TotalSize   string
	Output      string // accumulated stdout
	Error       string // accumulated stderr and failure messages
	OutputDir   string
	Destination string
	StartTime   time.Time
	EndTime     time.Time
	File        *FileInfo

	handle *Handle
}

// Snapshot is a point-in-time copy of a Task, safe to read without locks.
type Snapshot struct {
	ID          int64
	URL         string
	Format      string
	Status      Status
	Progress    float64
	Speed       string
	ETA         string
	TotalSize   string
	Output      string
	Error       string
	OutputDir   string
	Destination string
	StartTime   time.Time
	EndTime     time.Time
	File        *FileInfo
}

func (t *Task) snapshot() Snapshot {
	s := Snapshot{
		ID:          t.ID,
		URL:         t.URL,
		Format:      t.Format,
		Status:      t.Status,
		Progress:    t.Progress,
		Speed:       t.Speed,
		ETA:         t.ETA,
		TotalSize:   t.TotalSize,
		Output:      t.Output,
		Error:       t.Error,
		OutputDir:   t.OutputDir,
		Destination: t.Destination,
		StartTime:   t.StartTime,
		EndTime:     t.EndTime,
	}
	if t.File != nil {
		f := *t.File
		s.File = &f
	}
	return s
}

// Elapsed is the running time so far, or the total time once terminal.
func (s Snapshot) Elapsed(now time.Time) time.Duration {
	if s.Status.IsTerminal() && !s.EndTime.IsZero() {
		return s.EndTime.Sub(s.StartTime)
	}
	return now.Sub(s.StartTime)
}
