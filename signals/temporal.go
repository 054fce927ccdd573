package signals

import (
	"context"
	"fmt"
	"time"

	"github.com/bluesky-social/starling/config"
	"github.com/bluesky-social/starling/dataset"
)

// TemporalSignals links accounts which repeatedly post related content within temporal_window_seconds of each other. Posts are related when they share a hashtag or their text similarity exceeds content_similarity_threshold.
//
// Each related post pair inside the window is one co-occurrence; strength is n/(n+1) for n co-occurrences.
func TemporalSignals(ctx context.Context, in *Input) ([]Signal, error) {
	window := time.Duration(in.Config.TemporalWindowSeconds * float64(time.Second))
	posts := in.OriginalPosts()

	pairs := map[[2]string]*pairAccumulator{}
	for i, a := range posts {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if a.Timestamp.IsZero() {
			continue
		}
		for j := i + 1; j < len(posts); j++ {
			b := posts[j]
			if b.Timestamp.Sub(a.Timestamp) > window {
				break
			}
			if a.AuthorID == b.AuthorID || !in.related(a, b) {
				continue
			}
			key := orderedPair(a.AuthorID, b.AuthorID)
			acc, ok := pairs[key]
			if !ok {
				acc = &pairAccumulator{}
				pairs[key] = acc
			}
			acc.observe(0, a.Timestamp, b.Timestamp)
		}
	}

	var out []Signal
	for _, key := range sortedPairs(pairs) {
		acc := pairs[key]
		n := float64(acc.count)
		out = append(out, Signal{
			Type:     config.SignalTemporal,
			Users:    []string{key[0], key[1]},
			Strength: n / (n + 1),
			Evidence: Evidence{
				Description: fmt.Sprintf("%d related posts within %s of each other", acc.count, window),
				Occurrences: acc.count,
				First:       acc.first,
				Last:        acc.last,
			},
		})
	}
	return out, nil
}

func (in *Input) related(a, b *dataset.Post) bool {
	for _, x := range a.Hashtags {
		for _, y := range b.Hashtags {
			if x == y {
				return true
			}
		}
	}
	return in.TextSimilarity(a, b) > in.Config.ContentSimilarityThreshold
}
