package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bradleysepos/aws-ddns/internal/metrics"
	"github.com/bradleysepos/aws-ddns/internal/provider"
)

func testStore(t *testing.T) Store {
	t.Helper()
	s, err := Open(t.TempDir(), metrics.New(false))
	if err != nil {
		t.Fatalf("Open failed: %s", err)
	}
	return s
}

func testIdentity() provider.Identity {
	return provider.NewIdentity("Z1", "host.example.com", provider.TypeA)
}

func TestOpenCreatesScaffolding(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")
	if _, err := Open(dir, metrics.New(false)); err != nil {
		t.Fatalf("Open failed: %s", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("Expected cache dir to exist; err=%v", err)
	}
}

func TestOpenUnavailable(t *testing.T) {
	// A regular file in the path makes MkdirAll fail even when running as root.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Open(filepath.Join(blocker, "cache"), metrics.New(false))
	if !errors.Is(err, ErrCacheUnavailable) {
		t.Fatalf("Expected ErrCacheUnavailable; got %v", err)
	}
}

func TestLoadAbsent(t *testing.T) {
	s := testStore(t)
	cached, err := s.Load(testIdentity())
	if err != nil {
		t.Fatalf("Load failed: %s", err)
	}
	if cached != nil {
		t.Fatalf("Expected nil for absent cache; got %+v", cached)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := testStore(t)
	id := testIdentity()

	if err := s.Save(id, "93.184.216.34", 300); err != nil {
		t.Fatalf("Save failed: %s", err)
	}
	cached, err := s.Load(id)
	if err != nil {
		t.Fatalf("Load failed: %s", err)
	}
	if cached == nil || cached.Value != "93.184.216.34" || cached.TTL != 300 {
		t.Fatalf("Unexpected cached state: %+v", cached)
	}

	// Overwrite, not append.
	if err := s.Save(id, "93.184.216.40", 600); err != nil {
		t.Fatalf("Save failed: %s", err)
	}
	cached, err = s.Load(id)
	if err != nil {
		t.Fatalf("Load failed: %s", err)
	}
	if cached.Value != "93.184.216.40" || cached.TTL != 600 {
		t.Fatalf("Unexpected cached state after overwrite: %+v", cached)
	}
}

func TestCacheFileFormat(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, metrics.New(false))
	if err != nil {
		t.Fatalf("Open failed: %s", err)
	}
	id := testIdentity()
	if err := s.Save(id, "93.184.216.34", 300); err != nil {
		t.Fatalf("Save failed: %s", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, id.Key()))
	if err != nil {
		t.Fatalf("ReadFile failed: %s", err)
	}
	if string(b) != "93.184.216.34 300\n" {
		t.Fatalf("Unexpected cache file contents: %q", string(b))
	}
}

func TestAppendLogTruncates(t *testing.T) {
	s := testStore(t)
	id := testIdentity()

	for i := 0; i < 130; i++ {
		if err := s.AppendLog(id, fmt.Sprintf("entry %d", i)); err != nil {
			t.Fatalf("AppendLog failed: %s", err)
		}
	}

	b, err := os.ReadFile(s.LogPath(id))
	if err != nil {
		t.Fatalf("ReadFile failed: %s", err)
	}
	lines := strings.Split(strings.TrimRight(string(b), "\n"), "\n")
	if len(lines) != maxLogLines {
		t.Fatalf("Expected %d lines; got %d", maxLogLines, len(lines))
	}
	if lines[0] != "entry 30" {
		t.Fatalf("Expected oldest surviving line to be entry 30; got %q", lines[0])
	}
	if lines[len(lines)-1] != "entry 129" {
		t.Fatalf("Expected newest line to be entry 129; got %q", lines[len(lines)-1])
	}
}

func TestMalformedCacheEntry(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, metrics.New(false))
	if err != nil {
		t.Fatalf("Open failed: %s", err)
	}
	id := testIdentity()
	if err := os.WriteFile(filepath.Join(dir, id.Key()), []byte("only-one-field\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(id); err == nil {
		t.Fatal("Expected error for malformed cache entry; got nil")
	}
}
