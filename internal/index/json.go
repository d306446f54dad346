package index

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/On-Jun9/ShutterOrient/pkg/types"
)

// JSONStore keeps the whole index in memory and rewrites the file on every change.
type JSONStore struct {
	mu       sync.RWMutex
	filePath string
	Entries  map[types.ImageRef]types.IndexEntry `json:"entries"`
}

func NewJSON(filePath string) *JSONStore {
	return &JSONStore{
		filePath: filePath,
		Entries:  make(map[types.ImageRef]types.IndexEntry),
	}
}

func LoadJSON(filePath string) (*JSONStore, error) {
	s := NewJSON(filePath)

	data, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}
	if s.Entries == nil {
		s.Entries = make(map[types.ImageRef]types.IndexEntry)
	}

	return s, nil
}

func (s *JSONStore) save() error {
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	// Atomic write: write to temp file then rename
	tmpFile := s.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmpFile, s.filePath); err != nil {
		os.Remove(tmpFile)
		return err
	}
	return nil
}

func (s *JSONStore) Lookup(ref types.ImageRef) (int, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.Entries[ref]; ok {
		return e.Raw, true, nil
	}
	return 0, false, nil
}

func (s *JSONStore) Set(ref types.ImageRef, raw int) error {
	if err := validate(ref, raw); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.Entries[ref]
	s.Entries[ref] = types.IndexEntry{
		Ref:       ref,
		Raw:       raw,
		UpdatedAt: time.Now(),
	}
	if err := s.save(); err != nil {
		if had {
			s.Entries[ref] = prev
		} else {
			delete(s.Entries, ref)
		}
		return err
	}
	return nil
}

func (s *JSONStore) Delete(ref types.ImageRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.Entries[ref]
	if !ok {
		return nil
	}
	delete(s.Entries, ref)
	if err := s.save(); err != nil {
		s.Entries[ref] = prev
		return err
	}
	return nil
}

func (s *JSONStore) List() ([]types.IndexEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]types.IndexEntry, 0, len(s.Entries))
	for _, e := range s.Entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Ref < entries[j].Ref })
	return entries, nil
}

func (s *JSONStore) Close() error {
	return nil
}
