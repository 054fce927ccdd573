package signals

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bluesky-social/starling/config"
	"github.com/bluesky-social/starling/fusion"
)

// HashtagSignals links accounts whose hashtag usage sets are nearly identical, by Jaccard similarity of the sets. Accounts with no hashtags are never linked, and only pairs sharing at least one hashtag are considered.
func HashtagSignals(ctx context.Context, in *Input) ([]Signal, error) {
	threshold := in.Config.HashtagJaccardThreshold

	tagsByUser := map[string]map[string]bool{}
	usersByTag := map[string][]string{}
	for _, p := range in.Posts {
		for _, tag := range p.Hashtags {
			if tagsByUser[p.AuthorID] == nil {
				tagsByUser[p.AuthorID] = map[string]bool{}
			}
			if !tagsByUser[p.AuthorID][tag] {
				tagsByUser[p.AuthorID][tag] = true
				usersByTag[tag] = append(usersByTag[tag], p.AuthorID)
			}
		}
	}

	candidates := map[[2]string]bool{}
	for _, users := range usersByTag {
		for i := 0; i < len(users); i++ {
			for j := i + 1; j < len(users); j++ {
				candidates[orderedPair(users[i], users[j])] = true
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	keys := make([][2]string, 0, len(candidates))
	for k := range candidates {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] == keys[j][0] {
			return keys[i][1] < keys[j][1]
		}
		return keys[i][0] < keys[j][0]
	})

	var out []Signal
	for _, key := range keys {
		a, b := tagsByUser[key[0]], tagsByUser[key[1]]
		sim := fusion.Jaccard(a, b)
		if sim < threshold {
			continue
		}
		var shared []string
		for t := range a {
			if b[t] {
				shared = append(shared, t)
			}
		}
		sort.Strings(shared)
		out = append(out, Signal{
			Type:     config.SignalHashtag,
			Users:    []string{key[0], key[1]},
			Strength: sim,
			Evidence: Evidence{
				Description: fmt.Sprintf("hashtag sets overlap: #%s", strings.Join(shared, " #")),
				Occurrences: len(shared),
			},
		})
	}
	return out, nil
}
