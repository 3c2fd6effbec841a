package ytdlp

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultDirPermissions is used when creating download directories.
const DefaultDirPermissions = 0755

// PathError reports a destination directory that could not be resolved,
// created, or written to.
type PathError struct {
	Original string
	Resolved string
	Err      error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("cannot create or access download directory: %v", e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

// Details is the diagnostic line returned to API clients.
func (e *PathError) Details() string {
	return fmt.Sprintf("original path: %s, resolved path: %s", e.Original, e.Resolved)
}

// PathKind classifies a user supplied destination hint.
type PathKind string

const (
	PathDefault  PathKind = "default"
	PathAbsolute PathKind = "absolute"
	PathRelative PathKind = "relative"
	PathOther    PathKind = "other"
)

// PathResolver turns destination hints into absolute directories.
type PathResolver struct {
	// DownloadsDir is used for an empty hint.
	DownloadsDir func() (string, error)
	// WorkingDir anchors hints beginning with "./" or "../".
	WorkingDir func() (string, error)
}

// NewPathResolver returns a resolver bound to the user's Downloads folder
// and the process working directory.
func NewPathResolver() *PathResolver {
	return &PathResolver{
		DownloadsDir: UserDownloadsDir,
		WorkingDir:   os.Getwd,
	}
}

// UserDownloadsDir returns <home>/Downloads.
func UserDownloadsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, "Downloads"), nil
}

// Classify reports which resolution rule applies to hint.
func Classify(hint string) PathKind {
	switch {
	case hint == "":
		return PathDefault
	case filepath.IsAbs(hint):
		return PathAbsolute
	case hasRelativeMarker(hint):
		return PathRelative
	default:
		return PathOther
	}
}

func hasRelativeMarker(p string) bool {
	for _, prefix := range []string{"./", "../", `.\`, `..\`} {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// Resolve maps hint to an absolute directory without touching the filesystem.
func (r *PathResolver) Resolve(hint string) (string, PathKind, error) {
	kind := Classify(hint)
	var (
		dir string
		err error
	)
	switch kind {
	case PathDefault:
		dir, err = r.DownloadsDir()
	case PathAbsolute:
		dir = hint
	case PathRelative:
		var wd string
		wd, err = r.WorkingDir()
		if err == nil {
			dir = filepath.Join(wd, hint)
		}
	default:
		dir, err = filepath.Abs(hint)
	}
	if err == nil && dir == "" {
		err = fmt.Errorf("resolved path is empty")
	}
	return dir, kind, err
}

// Ensure resolves hint, creates the directory if missing and verifies it is
// writable. Any failure is a *PathError.
func (r *PathResolver) Ensure(hint string) (dir string, kind PathKind, created bool, err error) {
	dir, kind, err = r.Resolve(hint)
	if err != nil {
		return "", kind, false, &PathError{Original: hint, Resolved: dir, Err: err}
	}

	info, statErr := os.Stat(dir)
	switch {
	case os.IsNotExist(statErr):
		if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
			return "", kind, false, &PathError{Original: hint, Resolved: dir, Err: err}
		}
		created = true
	case statErr != nil:
		return "", kind, false, &PathError{Original: hint, Resolved: dir, Err: statErr}
	case !info.IsDir():
		return "", kind, false, &PathError{Original: hint, Resolved: dir, Err: fmt.Errorf("not a directory: %s", dir)}
	}

	if err := checkWritable(dir); err != nil {
		return "", kind, created, &PathError{Original: hint, Resolved: dir, Err: err}
	}
	return dir, kind, created, nil
}

// checkWritable creates and removes a probe file in dir.
func checkWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".ytdlp-panel-write-*")
	if err != nil {
		return fmt.Errorf("directory is not writable: %s", dir)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
