package cachestore

import (
	"context"
	"encoding/json"
)

// ResultCache JSON-encodes results in to a ResultStore.
type ResultCache struct {
	Store ResultStore
}

func NewResultCache(store ResultStore) *ResultCache {
	return &ResultCache{Store: store}
}

// Load decodes a cached result in to out. It returns false on a miss; an entry which no longer decodes (eg, written by an older version) is also a miss, and is overwritten by the next Save.
func (rc *ResultCache) Load(ctx context.Context, datasetFP, runKey string, out any) (bool, error) {
	b, found, err := rc.Store.Load(ctx, datasetFP, runKey)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return false, nil
	}
	return true, nil
}

func (rc *ResultCache) Save(ctx context.Context, datasetFP, runKey string, val any) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return rc.Store.Save(ctx, datasetFP, runKey, b)
}

// Invalidate drops every cached result for the dataset, regardless of configuration.
func (rc *ResultCache) Invalidate(ctx context.Context, datasetFP string) error {
	return rc.Store.Invalidate(ctx, datasetFP)
}
