package signals

import (
	"context"
	"fmt"

	"github.com/bluesky-social/starling/config"
	"github.com/bluesky-social/starling/dataset"

	"golang.org/x/sync/errgroup"
)

// ContentSignals links accounts which posted near-identical text. Every cross-author pair of original posts is compared by tf-idf cosine similarity, and account pairs whose best match exceeds content_similarity_threshold are emitted with that similarity as strength.
//
// Comparisons are split across workers by row; each worker keeps its own pair map and the maps are merged after all workers finish.
func ContentSignals(ctx context.Context, in *Input) ([]Signal, error) {
	threshold := in.Config.ContentSimilarityThreshold
	var posts []*dataset.Post
	for _, p := range in.OriginalPosts() {
		if p.Text != "" {
			posts = append(posts, p)
		}
	}
	// build shared vectors before fanning out
	in.textIndex()

	workers := in.workers()
	partials := make([]map[[2]string]*pairAccumulator, workers)
	eg, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		partials[w] = map[[2]string]*pairAccumulator{}
		eg.Go(func() error {
			local := partials[w]
			for i := w; i < len(posts); i += workers {
				if err := ctx.Err(); err != nil {
					return err
				}
				a := posts[i]
				for j := i + 1; j < len(posts); j++ {
					b := posts[j]
					if a.AuthorID == b.AuthorID {
						continue
					}
					sim := in.TextSimilarity(a, b)
					if sim <= threshold {
						continue
					}
					key := orderedPair(a.AuthorID, b.AuthorID)
					acc, ok := local[key]
					if !ok {
						acc = &pairAccumulator{}
						local[key] = acc
					}
					acc.observe(sim, a.Timestamp, b.Timestamp)
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	merged := map[[2]string]*pairAccumulator{}
	for _, part := range partials {
		for key, acc := range part {
			if prev, ok := merged[key]; ok {
				prev.merge(acc)
			} else {
				merged[key] = acc
			}
		}
	}

	var out []Signal
	for _, key := range sortedPairs(merged) {
		acc := merged[key]
		out = append(out, Signal{
			Type:     config.SignalContent,
			Users:    []string{key[0], key[1]},
			Strength: acc.best,
			Evidence: Evidence{
				Description: fmt.Sprintf("%d post pairs with text similarity above %.2f", acc.count, threshold),
				Occurrences: acc.count,
				First:       acc.first,
				Last:        acc.last,
			},
		})
	}
	return out, nil
}
