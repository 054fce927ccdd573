package misinfo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bluesky-social/starling/dataset"
	"github.com/bluesky-social/starling/textsim"
)

type cascade struct {
	key       string
	origin    *dataset.Post
	resharers map[string]bool
	posts     []string
	last      time.Time
	velocity  float64
}

// resharers per minute from the origin post to the latest reshare, with at least one second elapsed
func (c *cascade) computeVelocity() {
	elapsed := c.last.Sub(c.origin.Timestamp).Minutes()
	if elapsed < 1.0/60 {
		elapsed = 1.0 / 60
	}
	c.velocity = float64(len(c.resharers)) / elapsed
}

func (c *cascade) add(p *dataset.Post) {
	c.posts = append(c.posts, p.ID)
	if p.AuthorID != c.origin.AuthorID {
		c.resharers[p.AuthorID] = true
	}
	if p.Timestamp.After(c.last) {
		c.last = p.Timestamp
	}
}

func (c *cascade) members() []string {
	out := []string{c.origin.AuthorID}
	for r := range c.resharers {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// buildCascades groups reshares by root post (following parent chains) and by canonical shared link.
func buildCascades(in *Input) []*cascade {
	idx := in.Dataset.PostIndex()
	byKey := map[string]*cascade{}

	posts := make([]*dataset.Post, len(in.Dataset.Posts))
	for i := range in.Dataset.Posts {
		posts[i] = &in.Dataset.Posts[i]
	}
	dataset.SortPosts(posts)

	for _, p := range posts {
		if p.ParentID == "" {
			continue
		}
		rootID := dataset.RootPostID(idx, p.ID)
		if rootID == p.ID {
			continue
		}
		root := idx[rootID]
		key := "post:" + rootID
		c, ok := byKey[key]
		if !ok {
			c = &cascade{key: key, origin: root, resharers: map[string]bool{}, posts: []string{root.ID}, last: root.Timestamp}
			byKey[key] = c
		}
		c.add(p)
	}

	for _, p := range posts {
		seen := map[string]bool{}
		for _, raw := range p.URLs {
			u := textsim.CanonicalURL(raw)
			if u == "" || seen[u] {
				continue
			}
			seen[u] = true
			key := "url:" + u
			c, ok := byKey[key]
			if !ok {
				// posts are time-ordered, so the first sharer is the origin
				byKey[key] = &cascade{key: key, origin: p, resharers: map[string]bool{}, posts: []string{p.ID}, last: p.Timestamp}
				continue
			}
			c.add(p)
		}
	}

	out := make([]*cascade, 0, len(byKey))
	for _, c := range byKey {
		c.computeVelocity()
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].key < out[j].key
	})
	return out
}

// RapidSpreadClusters flags cascades whose resharing velocity (distinct resharing accounts per minute) exceeds velocity_threshold. Only cascades with at least min_cascade_size resharers are considered, and risk is the velocity's percentile rank among them.
func RapidSpreadClusters(ctx context.Context, in *Input) ([]Cluster, error) {
	cfg := in.Config
	var eligible []*cascade
	for _, c := range buildCascades(in) {
		if len(c.resharers) >= cfg.MinCascadeSize {
			eligible = append(eligible, c)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	velocities := make([]float64, len(eligible))
	for i, c := range eligible {
		velocities[i] = c.velocity
	}
	sort.Float64s(velocities)

	var out []Cluster
	for _, c := range eligible {
		if c.velocity <= cfg.VelocityThreshold {
			continue
		}
		atOrBelow := sort.Search(len(velocities), func(i int) bool { return velocities[i] > c.velocity })
		rank := float64(atOrBelow) / float64(len(velocities))

		posts := append([]string(nil), c.posts...)
		sort.Strings(posts)
		out = append(out, Cluster{
			Members:    c.members(),
			Posts:      posts,
			Indicators: []string{RapidSpread},
			Risk:       rank,
			Evidence: []string{
				fmt.Sprintf("cascade %s: %d resharers at %.2f per minute", c.key, len(c.resharers), c.velocity),
			},
		})
	}
	return out, nil
}
