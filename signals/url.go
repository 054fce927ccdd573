package signals

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bluesky-social/starling/config"
	"github.com/bluesky-social/starling/textsim"
)

type urlShare struct {
	author string
	ts     time.Time
}

// URLSignals links accounts which posted the same (canonicalized) link within url_time_delta_seconds of each other. Strength decays with the smallest gap between their shares: 1 / (1 + gap / (delta/2)).
func URLSignals(ctx context.Context, in *Input) ([]Signal, error) {
	delta := time.Duration(in.Config.URLTimeDeltaSeconds * float64(time.Second))
	half := delta.Seconds() / 2

	shares := map[string][]urlShare{}
	for _, p := range in.OriginalPosts() {
		if p.Timestamp.IsZero() {
			continue
		}
		seen := map[string]bool{}
		for _, raw := range p.URLs {
			u := textsim.CanonicalURL(raw)
			if u == "" || seen[u] {
				continue
			}
			seen[u] = true
			shares[u] = append(shares[u], urlShare{author: p.AuthorID, ts: p.Timestamp})
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type pairURL struct {
		gap  time.Duration
		urls map[string]bool
		acc  pairAccumulator
	}
	pairs := map[[2]string]*pairURL{}
	for u, list := range shares {
		// OriginalPosts is time-ordered, so list is too
		for i, a := range list {
			for j := i + 1; j < len(list); j++ {
				b := list[j]
				gap := b.ts.Sub(a.ts)
				if gap > delta {
					break
				}
				if a.author == b.author {
					continue
				}
				key := orderedPair(a.author, b.author)
				p, ok := pairs[key]
				if !ok {
					p = &pairURL{gap: gap, urls: map[string]bool{}}
					pairs[key] = p
				}
				if gap < p.gap {
					p.gap = gap
				}
				p.urls[u] = true
				p.acc.observe(0, a.ts, b.ts)
			}
		}
	}

	keys := make([][2]string, 0, len(pairs))
	for k := range pairs {
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
		p := pairs[key]
		strength := 1.0
		if half > 0 {
			strength = 1 / (1 + p.gap.Seconds()/half)
		}
		out = append(out, Signal{
			Type:     config.SignalURL,
			Users:    []string{key[0], key[1]},
			Strength: strength,
			Evidence: Evidence{
				Description: fmt.Sprintf("shared %d links, closest %s apart", len(p.urls), p.gap),
				Occurrences: p.acc.count,
				First:       p.acc.first,
				Last:        p.acc.last,
			},
		})
	}
	return out, nil
}
