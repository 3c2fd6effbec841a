package task

import (
	"errors"
	"sync"
	"time"
)

var ErrNotFound = errors.New("task not found")

// Registry is the in-memory source of truth for task state. Tasks are kept
// for the life of the process; there is no eviction.
type Registry struct {
	mu     sync.Mutex
	nextID int64
	tasks  map[int64]*Task
	order  []int64 // insertion order for stable iteration
	now    func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		tasks: make(map[int64]*Task),
		now:   time.Now,
	}
}

// Create allocates a new task in downloading state and returns its id.
// Ids start at 1 and are never reused.
func (r *Registry) Create(url, format string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	t := &Task{
		ID:        r.nextID,
		URL:       url,
		Format:    format,
		Status:    StatusDownloading,
		StartTime: r.now(),
	}
	r.tasks[t.ID] = t
	r.order = append(r.order, t.ID)
	return t.ID
}

func (r *Registry) Get(id int64) (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return Snapshot{}, false
	}
	return t.snapshot(), true
}

// List returns every task in creation order.
func (r *Registry) List() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Snapshot, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.tasks[id].snapshot())
	}
	return out
}

// Active counts tasks still downloading.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.tasks {
		if t.Status == StatusDownloading {
			n++
		}
	}
	return n
}

// SetOutputDir records the resolved destination directory.
func (r *Registry) SetOutputDir(id int64, dir string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tasks[id]; ok {
		t.OutputDir = dir
	}
}

// Attach transfers ownership of a subprocess handle to the task.
func (r *Registry) Attach(id int64, h *Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return false
	}
	t.handle = h
	return true
}

// UpdateProgress applies p only while the task is downloading. Fields absent
// from p keep their previous value; present fields overwrite.
func (r *Registry) UpdateProgress(id int64, p Progress) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok || t.Status != StatusDownloading {
		return false
	}
	if p.HasPercent {
		t.Progress = p.Percent
	}
	if p.TotalSize != "" {
		t.TotalSize = p.TotalSize
	}
	if p.Speed != "" {
		t.Speed = p.Speed
	}
	if p.ETA != "" {
		t.ETA = p.ETA
	}
	return true
}

func (r *Registry) SetDestination(id int64, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tasks[id]; ok {
		t.Destination = path
	}
}

func (r *Registry) AppendOutput(id int64, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tasks[id]; ok {
		t.Output += text
	}
}

func (r *Registry) AppendError(id int64, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tasks[id]; ok {
		t.Error += text
	}
}

// MarkTerminal moves a downloading task to status. Only the first terminal
// transition wins; later calls return false and change nothing.
func (r *Registry) MarkTerminal(id int64, status Status, at time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return false
	}
	return markTerminal(t, status, at)
}

func markTerminal(t *Task, status Status, at time.Time) bool {
	if !status.IsTerminal() || t.Status.IsTerminal() {
		return false
	}
	t.Status = status
	t.EndTime = at
	return true
}

// Complete marks a task completed at 100% with the optional output file.
func (r *Registry) Complete(id int64, file *FileInfo, at time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok || !markTerminal(t, StatusCompleted, at) {
		return false
	}
	t.Progress = 100
	if file != nil {
		f := *file
		t.File = &f
	}
	t.handle = nil
	return true
}

// Fail marks a task failed. msg is appended to the error text when the task
// has not collected any stderr, so the cause is never empty.
func (r *Registry) Fail(id int64, msg string, at time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok || !markTerminal(t, StatusFailed, at) {
		return false
	}
	if t.Error == "" {
		t.Error = msg
	}
	t.handle = nil
	return true
}

// Cancel stops a downloading task and releases its process. Cancelling a
// task that is already terminal is a successful no-op (changed == false).
func (r *Registry) Cancel(id int64) (changed bool, err error) {
	r.mu.Lock()
	t, ok := r.tasks[id]
	if !ok {
		r.mu.Unlock()
		return false, ErrNotFound
	}
	if !markTerminal(t, StatusCancelled, r.now()) {
		r.mu.Unlock()
		return false, nil
	}
	h := t.handle
	t.handle = nil
	r.mu.Unlock()

	if h != nil {
		if err := h.Release(); err != nil {
			return true, err
		}
	}
	return true, nil
}

// CancelAll cancels every downloading task and returns their ids.
func (r *Registry) CancelAll() []int64 {
	r.mu.Lock()
	var ids []int64
	for _, id := range r.order {
		if r.tasks[id].Status == StatusDownloading {
			ids = append(ids, id)
		}
	}
	r.mu.Unlock()

	var cancelled []int64
	for _, id := range ids {
		if changed, _ := r.Cancel(id); changed {
			cancelled = append(cancelled, id)
		}
	}
	return cancelled
}
