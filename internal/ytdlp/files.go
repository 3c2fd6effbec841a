package ytdlp

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"ytdlp-panel/internal/task"
)

// MediaExtensions are considered when scanning for a finished download.
var MediaExtensions = []string{".mp4", ".mkv", ".webm", ".mp3", ".m4a", ".opus", ".flv", ".mov", ".ogg", ".wav"}

// SkippedExtensions mark partial or bookkeeping files.
var SkippedExtensions = []string{".part", ".ytdl", ".temp", ".tmp"}

// modTimeSlack tolerates coarse filesystem timestamps.
const modTimeSlack = 2 * time.Second

// LocateOutput finds the file a finished download produced. The destination
// announced by yt-dlp wins when it exists; otherwise the newest media file in
// dir modified since startedAt is used. It returns nil when nothing matches.
func LocateOutput(dir, destination string, startedAt time.Time) *task.FileInfo {
	if destination != "" {
		path := destination
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return &task.FileInfo{Name: filepath.Base(path), Size: info.Size(), Path: path}
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var (
		best     *task.FileInfo
		bestTime time.Time
	)
	cutoff := startedAt.Add(-modTimeSlack)
	for _, entry := range entries {
		if entry.IsDir() || !isMediaFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !startedAt.IsZero() && info.ModTime().Before(cutoff) {
			continue
		}
		if best == nil || info.ModTime().After(bestTime) {
			best = &task.FileInfo{
				Name: entry.Name(),
				Size: info.Size(),
				Path: filepath.Join(dir, entry.Name()),
			}
			bestTime = info.ModTime()
		}
	}
	return best
}

func isMediaFile(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range SkippedExtensions {
		if strings.HasSuffix(lower, ext) {
			return false
		}
	}
	ext := filepath.Ext(lower)
	for _, m := range MediaExtensions {
		if ext == m {
			return true
		}
	}
	return false
}
