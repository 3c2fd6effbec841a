package cache

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestKeyIsStable(t *testing.T) {
	a := Key("https://i.example/a.jpg")
	if a != Key("https://i.example/a.jpg") {
		t.Fatal("key must be deterministic")
	}
	if a == Key("https://i.example/b.jpg") {
		t.Fatal("different urls must not collide")
	}
	if len(a) != 32 {
		t.Errorf("expected md5 hex key, got %q", a)
	}
}

func TestStoreAndLookup(t *testing.T) {
	m, err := New(filepath.Join(t.TempDir(), "images"))
	if err != nil {
		t.Fatal(err)
	}
	url := "https://i.example/thumb.jpg"

	if _, _, ok := m.Lookup(url); ok {
		t.Fatal("empty cache should miss")
	}
	n, err := m.Store(url, "image/jpeg", strings.NewReader("jpegdata"))
	if err != nil || n != 8 {
		t.Fatalf("Store = %d, %v", n, err)
	}

	path, ct, ok := m.Lookup(url)
	if !ok || ct != "image/jpeg" {
		t.Fatalf("Lookup = %q %q %v", path, ct, ok)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "jpegdata" {
		t.Errorf("cached bytes = %q, %v", data, err)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestStoreFailureLeavesNoEntry(t *testing.T) {
	m, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	url := "https://i.example/broken.png"
	if _, err := m.Store(url, "image/png", failingReader{}); err == nil {
		t.Fatal("expected error")
	}
	if m.FileExists(url) {
		t.Error("partial download must not be cached")
	}
	entries, _ := os.ReadDir(m.Dir())
	if len(entries) != 0 {
		t.Errorf("temporary files left behind: %v", entries)
	}
}
