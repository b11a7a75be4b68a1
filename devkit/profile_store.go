package devkit

import (
	"context"
	"strings"
	"sync"

	"github.com/goliatone/go-crmquery/core"
)

// MemoryProfileStore keeps customer attributes in memory. SetErr, when set,
// is returned by SetAttribute instead of persisting.
type MemoryProfileStore struct {
	mu     sync.Mutex
	values map[string]map[string]string
	gets   int
	sets   int
	SetErr error
}

func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{values: map[string]map[string]string{}}
}

// Seed stores an attribute without counting it as a write.
func (s *MemoryProfileStore) Seed(customerID string, name string, value string) *MemoryProfileStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(customerID, name, value)
	return s
}

func (s *MemoryProfileStore) GetAttribute(_ context.Context, customerID string, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	return s.values[strings.TrimSpace(customerID)][strings.TrimSpace(name)], nil
}

func (s *MemoryProfileStore) SetAttribute(_ context.Context, customerID string, name string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets++
	if s.SetErr != nil {
		return s.SetErr
	}
	s.put(customerID, name, value)
	return nil
}

func (s *MemoryProfileStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets
}

func (s *MemoryProfileStore) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets
}

func (s *MemoryProfileStore) put(customerID string, name string, value string) {
	customerID = strings.TrimSpace(customerID)
	attrs, ok := s.values[customerID]
	if !ok {
		attrs = map[string]string{}
		s.values[customerID] = attrs
	}
	attrs[strings.TrimSpace(name)] = value
}

var _ core.ProfileStore = (*MemoryProfileStore)(nil)
