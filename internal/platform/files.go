package platform

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// Operating system constants
const (
	OSDarwin  = "darwin"
	OSWindows = "windows"
	OSLinux   = "linux"
)

// Command constants
const (
	OpenCommand     = "open"
	ExplorerCommand = "explorer"
	XDGOpenCommand  = "xdg-open"
)

// Command parameters
const (
	MacOSSelectFlag    = "-R"
	WindowsSelectParam = "/select,"
)

// LinuxFileManagers are tried in order when xdg-open fails.
var LinuxFileManagers = []string{"nautilus", "dolphin", "thunar", "nemo", "pcmanfm"}

var ErrFileNotFound = errors.New("file does not exist")

// Revealer opens the system file manager at a file.
type Revealer struct {
	GOOS string
	// Run executes a command and waits for it.
	Run func(name string, args ...string) error
	// LookPath reports whether a program is installed.
	LookPath func(file string) (string, error)
}

func NewRevealer() *Revealer {
	return &Revealer{
		GOOS:     runtime.GOOS,
		Run:      runCommand,
		LookPath: exec.LookPath,
	}
}

func runCommand(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

// Reveal shows filePath in the file manager, selecting it where the
// platform supports selection. On Linux the parent directory is opened.
func (r *Revealer) Reveal(filePath string) error {
	if _, err := os.Stat(filePath); err != nil {
		return fmt.Errorf("%w: %s", ErrFileNotFound, filePath)
	}
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	switch r.GOOS {
	case OSDarwin:
		return r.Run(OpenCommand, MacOSSelectFlag, absPath)
	case OSWindows:
		// explorer exits non-zero even when it succeeds
		r.Run(ExplorerCommand, WindowsSelectParam+absPath)
		return nil
	default:
		return r.openDirLinux(filepath.Dir(absPath))
	}
}

// openDirLinux opens dir with xdg-open, falling back to common file managers.
func (r *Revealer) openDirLinux(dir string) error {
	if err := r.Run(XDGOpenCommand, dir); err == nil {
		return nil
	}
	for _, fm := range LinuxFileManagers {
		if _, err := r.LookPath(fm); err == nil {
			return r.Run(fm, dir)
		}
	}
	return fmt.Errorf("no suitable file manager found")
}
