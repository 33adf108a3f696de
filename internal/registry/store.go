package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotFound is returned by a Store when no model is saved under a key.
var ErrNotFound = errors.New("model not found")

// Store persists serialised models, one entry per key.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Keys(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) error
}

// tmpSuffix marks files being written. They are ignored by Keys and Clear.
const tmpSuffix = ".tmp"

// DirStore keeps one file per key in a directory. The file name is the key.
type DirStore struct {
	dir string
}

// NewDirStore creates the directory if needed and returns a store over it.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create model dir: %w", err)
	}
	return &DirStore{dir: dir}, nil
}

// Dir returns the backing directory.
func (s *DirStore) Dir() string { return s.dir }

func (s *DirStore) path(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, key), nil
}

// Put writes the model atomically: a reader never observes a partial file.
func (s *DirStore) Put(_ context.Context, key string, data []byte) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	tmp := path + tmpSuffix
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write model %s: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write model %s: %w", key, err)
	}
	return nil
}

func (s *DirStore) Get(_ context.Context, key string) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", key, err)
	}
	return data, nil
}

// Keys lists saved keys in sorted order.
func (s *DirStore) Keys(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	var keys []string
	for _, e := range entries {
		if e.Type().IsRegular() && !strings.HasSuffix(e.Name(), tmpSuffix) {
			keys = append(keys, e.Name())
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Clear removes every saved model. Subdirectories are left alone.
func (s *DirStore) Clear(ctx context.Context) error {
	keys, err := s.Keys(ctx)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := os.Remove(filepath.Join(s.dir, k)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove model %s: %w", k, err)
		}
	}
	return nil
}
