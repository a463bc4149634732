package runstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"comfybridge/pkg/types"
)

// MemoryStore is an in-memory Store. Suitable for single-worker deployments
// and testing. Data is lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*types.JobRecord
	order   []string // insertion order, oldest first
	config  *Config
}

// NewMemoryStore creates a new in-memory Store.
func NewMemoryStore(cfg *Config) *MemoryStore {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &MemoryStore{
		records: make(map[string]*types.JobRecord),
		config:  cfg,
	}
}

func (s *MemoryStore) Create(ctx context.Context, rec *types.JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.ID]; exists {
		return fmt.Errorf("job %s already exists", rec.ID)
	}

	cp := *rec
	s.records[rec.ID] = &cp
	s.order = append(s.order, rec.ID)

	// Evict oldest records beyond the cap.
	if max := s.config.MaxRecords; max > 0 {
		for len(s.order) > max {
			oldest := s.order[0]
			s.order = s.order[1:]
			delete(s.records, oldest)
		}
	}
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, rec *types.JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.ID]; !exists {
		return ErrJobNotFound
	}
	cp := *rec
	s.records[rec.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*types.JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*types.JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.JobRecord, 0, len(s.records))
	for _, rec := range s.records {
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
