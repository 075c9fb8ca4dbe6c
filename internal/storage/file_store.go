// Package storage persists the allowlist to a JSON file.
package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"grimm.is/firegate/internal/allowlist"
	"grimm.is/firegate/internal/logging"
)

// FileName is the state file inside the data folder.
const FileName = "iptable.json"

// FileStore reads and writes the whole allowlist as one JSON document.
type FileStore struct {
	path   string
	mu     sync.Mutex
	logger *logging.Logger
}

// NewFileStore creates a store for <folder>/iptable.json.
func NewFileStore(folder string, logger *logging.Logger) *FileStore {
	if logger == nil {
		logger = logging.Default()
	}
	return &FileStore{
		path:   filepath.Join(folder, FileName),
		logger: logger.WithComponent("store"),
	}
}

// Path returns the state file location.
func (s *FileStore) Path() string {
	return s.path
}

// Read decodes the state file without touching it. A missing file is an
// empty allowlist; an unreadable or corrupt one is an ErrPersistence error.
func (s *FileStore) Read() (allowlist.Allowlist, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return allowlist.Allowlist{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", allowlist.ErrPersistence, err)
	}
	var a allowlist.Allowlist
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: %s is corrupt: %v", allowlist.ErrPersistence, s.path, err)
	}
	if a == nil {
		a = allowlist.Allowlist{}
	}
	return a, nil
}

// Load reads the allowlist and repairs the state file. A missing or
// unreadable file is replaced by an empty allowlist, which is written back
// immediately. A corrupt file is kept next to the new one with a .corrupt
// suffix.
func (s *FileStore) Load() (allowlist.Allowlist, error) {
	a, err := s.Read()
	if err == nil {
		if _, serr := os.Stat(s.path); serr == nil {
			return a, nil
		}
		s.logger.Warn("state file not found, creating it", "path", s.path)
	} else {
		s.logger.Warn("state file unusable, starting empty", "path", s.path, "error", err)
		if rerr := os.Rename(s.path, s.path+".corrupt"); rerr != nil {
			s.logger.Warn("could not keep corrupt state file", "error", rerr)
		}
	}

	empty := allowlist.Allowlist{}
	if err := s.Save(empty); err != nil {
		return nil, err
	}
	return empty, nil
}

// Save replaces the state file atomically: the document is written to a
// temporary file, synced, and renamed over the previous one.
func (s *FileStore) Save(a allowlist.Allowlist) error {
	if a == nil {
		a = allowlist.Allowlist{}
	}
	data, err := Encode(a)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", allowlist.ErrPersistence, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return fmt.Errorf("%w: %v", allowlist.ErrPersistence, err)
	}
	if err := writeAtomic(s.path, data, 0640); err != nil {
		return fmt.Errorf("%w: %v", allowlist.ErrPersistence, err)
	}
	return nil
}

// Encode renders the allowlist in the on-disk layout: 4-space indent and
// zones in sorted order.
func Encode(a allowlist.Allowlist) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(a); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func writeAtomic(path string, data []byte, perm os.FileMode) error {
	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}
