// Package state persists the last-applied record value per identity along
// with an append-only log of authority transcripts.
package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bradleysepos/aws-ddns/internal/metrics"
	"github.com/bradleysepos/aws-ddns/internal/provider"
)

// ErrCacheUnavailable indicates the cache directory could not be prepared or
// written. It is raised before any network activity.
var ErrCacheUnavailable = errors.New("cache unavailable")

// maxLogLines bounds the operation log; older entries are pruned from the head.
const maxLogLines = 100

// Cached is the last-applied value and TTL for one identity.
type Cached struct {
	Value string
	TTL   int64
}

type Store interface {
	Load(id provider.Identity) (*Cached, error)
	Save(id provider.Identity, value string, ttl int64) error
	AppendLog(id provider.Identity, entry string) error
	LogPath(id provider.Identity) string
}

type fileStore struct {
	dir     string
	metrics *metrics.Metrics
}

// Open prepares dir and verifies it is writable. The probe happens up front
// so a run fails before wasting network round trips it could not record.
func Open(dir string, metrics *metrics.Metrics) (Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create %s: %v", ErrCacheUnavailable, dir, err)
	}
	probe := filepath.Join(dir, ".probe")
	if err := os.WriteFile(probe, []byte("ok\n"), 0o644); err != nil {
		return nil, fmt.Errorf("%w: write probe in %s: %v", ErrCacheUnavailable, dir, err)
	}
	if _, err := os.ReadFile(probe); err != nil {
		return nil, fmt.Errorf("%w: read probe in %s: %v", ErrCacheUnavailable, dir, err)
	}
	if err := os.Remove(probe); err != nil {
		return nil, fmt.Errorf("%w: remove probe in %s: %v", ErrCacheUnavailable, dir, err)
	}
	return &fileStore{dir: dir, metrics: metrics}, nil
}

func (s *fileStore) cachePath(id provider.Identity) string {
	return filepath.Join(s.dir, id.Key())
}

// LogPath returns the operation log location for id. Fatal errors point the
// operator here for the raw request/response evidence.
func (s *fileStore) LogPath(id provider.Identity) string {
	return s.cachePath(id) + ".log"
}

// Load reads the cached state for id. A missing cache file is not an error;
// it returns nil, meaning no update has been recorded yet.
func (s *fileStore) Load(id provider.Identity) (*Cached, error) {
	b, err := os.ReadFile(s.cachePath(id))
	if errors.Is(err, os.ErrNotExist) {
		s.metrics.IncCacheRequest("read", true)
		return nil, nil
	}
	if err != nil {
		s.metrics.IncCacheRequest("read", false)
		return nil, fmt.Errorf("read cache: %w", err)
	}
	line, _, _ := strings.Cut(string(b), "\n")
	fields := strings.Fields(line)
	if len(fields) != 2 {
		s.metrics.IncCacheRequest("read", false)
		return nil, fmt.Errorf("malformed cache entry %q", line)
	}
	ttl, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		s.metrics.IncCacheRequest("read", false)
		return nil, fmt.Errorf("malformed cache ttl %q: %w", fields[1], err)
	}
	s.metrics.IncCacheRequest("read", true)
	return &Cached{Value: fields[0], TTL: ttl}, nil
}

// Save overwrites the cached state for id atomically.
func (s *fileStore) Save(id provider.Identity, value string, ttl int64) error {
	line := fmt.Sprintf("%s %d\n", value, ttl)
	err := writeAtomic(s.cachePath(id), []byte(line))
	s.metrics.IncCacheRequest("update", err == nil)
	if err != nil {
		return fmt.Errorf("save cache: %w", err)
	}
	return nil
}

// AppendLog appends entry to the operation log for id, then truncates the
// log to the newest maxLogLines lines.
func (s *fileStore) AppendLog(id provider.Identity, entry string) error {
	path := s.LogPath(id)
	b, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		s.metrics.IncCacheRequest("update", false)
		return fmt.Errorf("read operation log: %w", err)
	}
	lines := splitLines(string(b))
	lines = append(lines, strings.TrimRight(entry, "\n"))
	if len(lines) > maxLogLines {
		lines = lines[len(lines)-maxLogLines:]
	}
	err = writeAtomic(path, []byte(strings.Join(lines, "\n")+"\n"))
	s.metrics.IncCacheRequest("update", err == nil)
	if err != nil {
		return fmt.Errorf("write operation log: %w", err)
	}
	return nil
}

func splitLines(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
