// Package cache stores proxied remote images on disk so repeated thumbnail
// requests are served locally.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// metaSuffix names the sidecar file holding an entry's content type.
const metaSuffix = ".type"

type Manager struct {
	dir string
}

// New returns a cache rooted at dir, creating it if needed.
func New(dir string) (*Manager, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", abs, err)
	}
	return &Manager{dir: abs}, nil
}

// Key derives the cache key for a URL.
func Key(url string) string {
	hash := md5.Sum([]byte(url))
	return hex.EncodeToString(hash[:])
}

func (m *Manager) Dir() string {
	return m.dir
}

// FilePath returns where the entry for url is stored.
func (m *Manager) FilePath(url string) string {
	return filepath.Join(m.dir, Key(url))
}

// FileExists checks if url has a complete cache entry.
func (m *Manager) FileExists(url string) bool {
	info, err := os.Stat(m.FilePath(url))
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// Lookup returns the stored file and content type for url.
func (m *Manager) Lookup(url string) (path, contentType string, ok bool) {
	if !m.FileExists(url) {
		return "", "", false
	}
	path = m.FilePath(url)
	if b, err := os.ReadFile(path + metaSuffix); err == nil {
		contentType = strings.TrimSpace(string(b))
	}
	return path, contentType, true
}

// Store copies r into the cache entry for url. The entry becomes visible
// only once fully written.
func (m *Manager) Store(url, contentType string, r io.Reader) (int64, error) {
	final := m.FilePath(url)
	tmp, err := os.CreateTemp(m.dir, Key(url)+".*.part")
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return n, err
	}
	if contentType != "" {
		if err := os.WriteFile(final+metaSuffix, []byte(contentType), 0644); err != nil {
			os.Remove(tmp.Name())
			return n, err
		}
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		os.Remove(tmp.Name())
		return n, err
	}
	return n, nil
}
