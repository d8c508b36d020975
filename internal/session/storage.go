package session

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// Storage keys. The session store is the only writer of either.
const (
	KeyCurrentUser = "currentUser"
	KeyAuthToken   = "authToken"
)

// KV is the durable string-keyed storage the session survives restarts in.
type KV interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string) error
}

type MemKV struct {
	mu sync.RWMutex
	m  map[string]string
}

func NewMemKV() *MemKV {
	return &MemKV{m: make(map[string]string)}
}

func (s *MemKV) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	return v, ok
}

func (s *MemKV) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

func (s *MemKV) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

// FileKV is a write-through KV backed by a single JSON file, loaded once at
// open. Writes go through a temp file and rename so a crashed write never
// leaves a half-written store behind.
type FileKV struct {
	mu   sync.Mutex
	path string
	m    map[string]string
}

func OpenFileKV(path string) (*FileKV, error) {
	kv := &FileKV{path: path, m: make(map[string]string)}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return kv, nil
	case err != nil:
		return nil, err
	}

	if err := json.Unmarshal(raw, &kv.m); err != nil {
		// A corrupt store behaves like an empty one; the next write
		// replaces it.
		kv.m = make(map[string]string)
	}
	return kv, nil
}

func (s *FileKV) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok
}

func (s *FileKV) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return s.flushLocked()
}

func (s *FileKV) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return s.flushLocked()
}

func (s *FileKV) flushLocked() error {
	raw, err := json.Marshal(s.m)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
