package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"teamfee/internal/kv"
)

var (
	_ kv.Store       = (*Store)(nil)
	_ kv.BatchSetter = (*Store)(nil)
)

// Store keeps values in process memory. A store opened with NewFromDir also
// writes every value to <dir>/<key>.json, so it survives restarts.
type Store struct {
	mu     sync.Mutex
	values map[string][]byte
	dir    string
}

func New() *Store {
	return &Store{values: map[string][]byte{}}
}

// NewFromDir seeds the store from <base>/<key>.json for every known key and
// writes later changes back to the same files. Missing or unreadable files
// are skipped.
func NewFromDir(base string) *Store {
	s := New()
	s.dir = base
	for _, key := range []string{kv.KeyTeams, kv.KeyPeople, kv.KeyGlobalFee} {
		if b := readFile(filepath.Join(base, key+".json")); len(b) > 0 {
			s.values[key] = b
		}
	}
	return s
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persist(key, value); err != nil {
		return err
	}
	s.values[key] = append([]byte(nil), value...)
	return nil
}

// SetMany writes all entries under one lock. Keys are written in sorted
// order and the first file error stops the batch.
func (s *Store) SetMany(_ context.Context, entries map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := s.persist(k, entries[k]); err != nil {
			return err
		}
		s.values[k] = append([]byte(nil), entries[k]...)
	}
	return nil
}

// persist replaces <dir>/<key>.json through a temp file and rename, so a
// crash never leaves a half-written file behind.
func (s *Store) persist(key string, value []byte) error {
	if s.dir == "" {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", key, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", key, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, key+".json")); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", key, err)
	}
	return nil
}

// Keys lists stored keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.values))
	for k := range s.values {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func readFile(path string) []byte {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return b
}
