package misinfo

import (
	"context"
	"fmt"

	"github.com/bluesky-social/starling/coordination"
	"github.com/bluesky-social/starling/fusion"
)

type community struct {
	key     string
	index   int
	members []string
	posts   []string
	avg     float64
	risk    float64
}

// lowVeracityCommunities finds partition communities of at least min_cluster_size accounts whose posts average below veracity_threshold. Posts without a score are ignored; communities with no scored posts are skipped.
func lowVeracityCommunities(ctx context.Context, in *Input) ([]community, error) {
	cfg := in.Config
	var out []community
	for _, part := range in.Partitions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i, members := range part.Communities() {
			if len(members) < cfg.MinClusterSize {
				continue
			}
			posts := in.memberPosts(members, true)
			avg, _, ok := in.averageVeracity(posts)
			if !ok || avg >= cfg.VeracityThreshold {
				continue
			}
			out = append(out, community{
				key:     part.Key(),
				index:   i,
				members: members,
				posts:   posts,
				avg:     avg,
				risk:    fusion.Clamp01(1 - avg),
			})
		}
	}
	return out, nil
}

// LowVeracityClusters flags partition communities whose members' posts have a low average veracity. Risk is 1 - average.
func LowVeracityClusters(ctx context.Context, in *Input) ([]Cluster, error) {
	comms, err := lowVeracityCommunities(ctx, in)
	if err != nil {
		return nil, err
	}
	var out []Cluster
	for _, c := range comms {
		avg := c.avg
		out = append(out, Cluster{
			Members:     c.members,
			Posts:       c.posts,
			Indicators:  []string{LowVeracity},
			AvgVeracity: &avg,
			Risk:        c.risk,
			Evidence: []string{
				fmt.Sprintf("%s community %d: average veracity %.3f over %d posts", c.key, c.index, c.avg, len(c.posts)),
			},
		})
	}
	return out, nil
}

// CoordinatedMisinfoClusters intersects coordinated groups with low veracity communities; an intersection of at least min_group_size accounts is flagged with risk max(group confidence, community risk). A coordinated group whose own posts average below veracity_threshold is flagged as a whole.
func CoordinatedMisinfoClusters(ctx context.Context, in *Input) ([]Cluster, error) {
	cfg := in.Config
	comms, err := lowVeracityCommunities(ctx, in)
	if err != nil {
		return nil, err
	}

	var out []Cluster
	for _, g := range in.Groups {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, c := range comms {
			shared := fusion.Intersect(g.Members, c.members)
			if len(shared) < cfg.MinGroupSize {
				continue
			}
			out = append(out, Cluster{
				Members:    shared,
				Posts:      in.memberPosts(shared, true),
				Indicators: []string{CoordinatedMisinfo},
				Risk:       fusion.Clamp01(max(g.Confidence, c.risk)),
				Evidence: []string{
					fmt.Sprintf("coordinated group %s shares %d accounts with %s community %d (average veracity %.3f)", g.ID, len(shared), c.key, c.index, c.avg),
				},
			})
		}

		if c, ok := groupOwnVeracity(in, g); ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func groupOwnVeracity(in *Input, g coordination.Group) (Cluster, bool) {
	posts := in.memberPosts(g.Members, true)
	avg, n, ok := in.averageVeracity(posts)
	if !ok || avg >= in.Config.VeracityThreshold {
		return Cluster{}, false
	}
	return Cluster{
		Members:    append([]string(nil), g.Members...),
		Posts:      posts,
		Indicators: []string{CoordinatedMisinfo},
		Risk:       fusion.Clamp01(max(g.Confidence, 1-avg)),
		Evidence: []string{
			fmt.Sprintf("coordinated group %s posts average veracity %.3f over %d posts", g.ID, avg, n),
		},
	}, true
}
