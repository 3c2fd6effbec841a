// Package logstore keeps a bounded, queryable buffer of structured log entries
// and mirrors every entry to the console.
package logstore

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Level string

const (
	LevelError Level = "error"
	LevelWarn  Level = "warn"
	LevelInfo  Level = "info"
	LevelDebug Level = "debug"
)

// Levels lists every accepted level in severity order.
var Levels = []Level{LevelError, LevelWarn, LevelInfo, LevelDebug}

// Common source tags.
const (
	SourceServer = "SERVER"
	SourceAPI    = "API"
	SourceYtDlp  = "YT-DLP"
	SourceClient = "CLIENT"
)

const (
	DefaultMaxEntries = 1000
	DefaultQueryLimit = 100
)

var (
	ErrInvalidLevel   = errors.New("invalid log level")
	ErrMissingMessage = errors.New("log message is required")
)

// ParseLevel validates a level name.
func ParseLevel(s string) (Level, error) {
	l := Level(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Levels {
		if l == known {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidLevel, s)
}

type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	Source    string    `json:"source"`
	Details   string    `json:"details,omitempty"`
}

type Filter struct {
	Level  string // "" or "all" matches every level
	Search string
	Limit  int
}

type Stats struct {
	Total   int            `json:"total"`
	Error   int            `json:"error"`
	Warn    int            `json:"warn"`
	Info    int            `json:"info"`
	Debug   int            `json:"debug"`
	Sources map[string]int `json:"sources"`
}

// Store is a capped, append-only sequence of entries. Once the cap is
// exceeded the oldest entries are dropped in bulk.
type Store struct {
	mu      sync.Mutex
	entries []Entry
	max     int
	console *log.Logger
	color   bool
	now     func() time.Time
}

// New creates a store holding at most max entries (DefaultMaxEntries when
// max <= 0). Entries are mirrored to console; pass io.Discard to silence.
func New(max int, console io.Writer, color bool) *Store {
	if max <= 0 {
		max = DefaultMaxEntries
	}
	if console == nil {
		console = io.Discard
	}
	return &Store{
		max:     max,
		console: log.New(console, "", 0),
		color:   color,
		now:     time.Now,
	}
}

// Append records an entry. It never fails.
func (s *Store) Append(level Level, message, source, details string) Entry {
	if source == "" {
		source = SourceServer
	}
	ts := s.now().UTC().Truncate(time.Millisecond)
	entry := Entry{
		ID:        newID(ts),
		Timestamp: ts,
		Level:     level,
		Message:   message,
		Source:    source,
		Details:   details,
	}

	s.mu.Lock()
	s.entries = append(s.entries, entry)
	if over := len(s.entries) - s.max; over > 0 {
		kept := make([]Entry, s.max)
		copy(kept, s.entries[over:])
		s.entries = kept
	}
	s.mu.Unlock()

	s.mirror(entry)
	return entry
}

func (s *Store) Errorf(source, details, format string, args ...any) Entry {
	return s.Append(LevelError, fmt.Sprintf(format, args...), source, details)
}

func (s *Store) Warnf(source, details, format string, args ...any) Entry {
	return s.Append(LevelWarn, fmt.Sprintf(format, args...), source, details)
}

func (s *Store) Infof(source, format string, args ...any) Entry {
	return s.Append(LevelInfo, fmt.Sprintf(format, args...), source, "")
}

func (s *Store) Debugf(source, format string, args ...any) Entry {
	return s.Append(LevelDebug, fmt.Sprintf(format, args...), source, "")
}

// Query returns the most recent Limit matching entries, oldest first.
// The buffer is kept in insertion order, so entries sharing a timestamp
// keep the order they were appended in.
func (s *Store) Query(f Filter) []Entry {
	matched := s.filter(f)

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	if len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return matched
}

func (s *Store) filter(f Filter) []Entry {
	level := strings.ToLower(strings.TrimSpace(f.Level))
	search := strings.ToLower(f.Search)

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if level != "" && level != "all" && string(e.Level) != level {
			continue
		}
		if search != "" && !e.contains(search) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (e Entry) contains(lowerNeedle string) bool {
	return strings.Contains(strings.ToLower(e.Message), lowerNeedle) ||
		strings.Contains(strings.ToLower(e.Source), lowerNeedle) ||
		strings.Contains(strings.ToLower(e.Details), lowerNeedle)
}

// Clear drops every entry and records the clearing itself.
func (s *Store) Clear() {
	s.mu.Lock()
	s.entries = nil
	s.mu.Unlock()
	s.Append(LevelInfo, "Logs cleared", SourceServer, "")
}

func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{Total: len(s.entries), Sources: make(map[string]int)}
	for _, e := range s.entries {
		switch e.Level {
		case LevelError:
			st.Error++
		case LevelWarn:
			st.Warn++
		case LevelInfo:
			st.Info++
		case LevelDebug:
			st.Debug++
		}
		st.Sources[e.Source]++
	}
	return st
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// newID joins the millisecond timestamp with a random tie-breaker.
func newID(ts time.Time) string {
	return fmt.Sprintf("%d-%s", ts.UnixMilli(), uuid.NewString()[:8])
}
