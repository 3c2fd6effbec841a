package platform

import (
	"fmt"
	"os"
	"path/filepath"
)

// SystemPaths are the directories offered to the UI as download targets.
type SystemPaths struct {
	Home      string `json:"home"`
	Desktop   string `json:"desktop"`
	Downloads string `json:"downloads"`
	Documents string `json:"documents"`
	Current   string `json:"current"`
	Temp      string `json:"temp"`
}

// GetSystemPaths resolves the well-known directories for the current user.
// The directories are not required to exist.
func GetSystemPaths() (SystemPaths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return SystemPaths{}, fmt.Errorf("failed to get user home directory: %w", err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return SystemPaths{}, fmt.Errorf("failed to get working directory: %w", err)
	}
	return SystemPaths{
		Home:      home,
		Desktop:   filepath.Join(home, "Desktop"),
		Downloads: filepath.Join(home, "Downloads"),
		Documents: filepath.Join(home, "Documents"),
		Current:   cwd,
		Temp:      os.TempDir(),
	}, nil
}
