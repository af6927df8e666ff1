package sheets

import (
	"context"
	"fmt"
	"sync"
)

type MemorySource struct {
	mu   sync.RWMutex
	tabs map[string][][]string
}

func NewMemorySource() *MemorySource {
	return &MemorySource{
		tabs: make(map[string][][]string),
	}
}

// SetRows replaces the content of tab.
func (s *MemorySource) SetRows(tab string, rows [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tabs[tab] = copyRows(rows)
}

func (s *MemorySource) ReadRows(_ context.Context, tab string) ([][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, ok := s.tabs[tab]
	if !ok {
		return nil, fmt.Errorf("read tab %q: %w", tab, ErrTabNotFound)
	}
	return copyRows(rows), nil
}

// AppendRows creates the tab when it does not exist yet.
func (s *MemorySource) AppendRows(_ context.Context, tab string, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tabs[tab] = append(s.tabs[tab], copyRows(rows)...)
	return nil
}

func copyRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = append([]string(nil), row...)
	}
	return out
}
