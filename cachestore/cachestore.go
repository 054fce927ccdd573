package cachestore

import (
	"context"
)

// ResultStore holds encoded analysis results. Load reports a miss with found=false and a nil error.
type ResultStore interface {
	Load(ctx context.Context, datasetFP, runKey string) (val []byte, found bool, err error)
	Save(ctx context.Context, datasetFP, runKey string, val []byte) error
	// Invalidate makes every result stored for the dataset unreachable, whatever its run key.
	Invalidate(ctx context.Context, datasetFP string) error
}
