package task

import (
	"errors"
	"os"
	"sync"
)

// Process is the part of an OS process a Handle needs. *os.Process satisfies it.
type Process interface {
	Kill() error
}

// Handle owns a subprocess on behalf of a task. It is released exactly once,
// either by Release (kill) or Reap (natural exit); later calls are no-ops.
type Handle struct {
	mu       sync.Mutex
	proc     Process
	released bool
}

func NewHandle(p Process) *Handle {
	return &Handle{proc: p}
}

// Release kills the process unless the handle was already released.
// Killing a process that has already exited is not an error.
func (h *Handle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil
	}
	h.released = true
	if h.proc == nil {
		return nil
	}
	if err := h.proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

// Reap records that the process exited on its own.
func (h *Handle) Reap() {
	h.mu.Lock()
	h.released = true
	h.mu.Unlock()
}
