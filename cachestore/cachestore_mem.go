package cachestore

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemResultStore keeps results in a size-bounded, expiring LRU. Invalidation removes the dataset's entries outright, so there is no side state for eviction to lose.
type MemResultStore struct {
	Results *expirable.LRU[string, []byte]
}

var _ ResultStore = (*MemResultStore)(nil)

func NewMemResultStore(capacity int, ttl time.Duration) *MemResultStore {
	return &MemResultStore{
		Results: expirable.NewLRU[string, []byte](capacity, nil, ttl),
	}
}

func memDatasetPrefix(datasetFP string) string {
	return datasetFP + "/"
}

func (s *MemResultStore) Load(ctx context.Context, datasetFP, runKey string) ([]byte, bool, error) {
	v, ok := s.Results.Get(memDatasetPrefix(datasetFP) + runKey)
	return v, ok, nil
}

func (s *MemResultStore) Save(ctx context.Context, datasetFP, runKey string, val []byte) error {
	s.Results.Add(memDatasetPrefix(datasetFP)+runKey, val)
	return nil
}

func (s *MemResultStore) Invalidate(ctx context.Context, datasetFP string) error {
	prefix := memDatasetPrefix(datasetFP)
	for _, k := range s.Results.Keys() {
		if strings.HasPrefix(k, prefix) {
			s.Results.Remove(k)
		}
	}
	return nil
}
