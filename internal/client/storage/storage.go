// Package storage provides durable client-side storage for the terminal
// front-end: a JSON file holding the session keys, plus interactive prompts.
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// LocalStorage is a Store backed by a single JSON file. Every write replaces
// the file atomically (write to a temporary file, then rename).
type LocalStorage struct {
	Values  map[string]string `json:"values"`
	Version int64             `json:"version"`
	mu      sync.Mutex
	path    string
}

var _ Store = (*LocalStorage)(nil)

// Open loads the storage file at path. A missing file yields empty storage;
// the file and its directory are created on the first write.
func Open(path string) (*LocalStorage, error) {
	ls := &LocalStorage{path: path}
	if err := ls.Load(); err != nil {
		return nil, err
	}
	return ls, nil
}

// Load (re)reads the storage file.
func (ls *LocalStorage) Load() error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	f, err := os.Open(ls.path)
	if err != nil {
		if os.IsNotExist(err) {
			ls.Values = map[string]string{}
			ls.Version = 0
			return nil
		}
		return errors.Wrapf(err, "open storage %s", ls.path)
	}
	defer f.Close()

	var disk struct {
		Values  map[string]string `json:"values"`
		Version int64             `json:"version"`
	}
	if err := json.NewDecoder(f).Decode(&disk); err != nil {
		return errors.Wrapf(err, "decode storage %s", ls.path)
	}
	ls.Values = disk.Values
	if ls.Values == nil {
		ls.Values = map[string]string{}
	}
	ls.Version = disk.Version
	return nil
}

// Path returns the location of the storage file.
func (ls *LocalStorage) Path() string { return ls.path }

func (ls *LocalStorage) Get(key string) (string, bool, error) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	v, ok := ls.Values[key]
	return v, ok, nil
}

func (ls *LocalStorage) Put(values map[string]string) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	next := ls.copyValues()
	for k, v := range values {
		next[k] = v
	}
	return ls.commit(next)
}

func (ls *LocalStorage) Delete(keys ...string) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	next := ls.copyValues()
	for _, k := range keys {
		delete(next, k)
	}
	return ls.commit(next)
}

func (ls *LocalStorage) copyValues() map[string]string {
	next := make(map[string]string, len(ls.Values))
	for k, v := range ls.Values {
		next[k] = v
	}
	return next
}

// commit writes next to disk and only then makes it the in-memory state.
func (ls *LocalStorage) commit(next map[string]string) error {
	version := time.Now().UnixNano()
	if err := ls.save(next, version); err != nil {
		return err
	}
	ls.Values = next
	ls.Version = version
	return nil
}

func (ls *LocalStorage) save(values map[string]string, version int64) error {
	dir := filepath.Dir(ls.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrapf(err, "create storage dir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.json")
	if err != nil {
		return errors.Wrap(err, "create temp storage file")
	}
	defer os.Remove(tmp.Name())

	payload := struct {
		Values  map[string]string `json:"values"`
		Version int64             `json:"version"`
	}{values, version}
	if err := json.NewEncoder(tmp).Encode(payload); err != nil {
		tmp.Close()
		return errors.Wrap(err, "encode storage")
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return errors.Wrap(err, "chmod storage")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp storage file")
	}
	if err := os.Rename(tmp.Name(), ls.path); err != nil {
		return errors.Wrapf(err, "replace storage %s", ls.path)
	}
	return nil
}
