package misinfo

import (
	"context"
	"fmt"
	"sort"

	"github.com/bluesky-social/starling/dataset"
	"github.com/bluesky-social/starling/fusion"
	"github.com/bluesky-social/starling/netgraph"
	"github.com/bluesky-social/starling/textsim"
)

// BotFeatures are the per-account behavioral measurements behind the bot_cluster indicator.
type BotFeatures struct {
	PostsPerDay     float64
	AccountAgeDays  float64
	HasAge          bool
	FollowerRatio   float64
	HasRatio        bool
	DuplicationRate float64
	// number of thresholds crossed, out of four
	Crossed int
}

func (f BotFeatures) Score() float64 {
	return float64(f.Crossed) / 4
}

// botFeatures measures every account in the snapshot. Posting rate is measured over the snapshot's time span (at least one day). When an account's following count is zero, its follow-layer out-degree is used instead.
func botFeatures(in *Input) map[string]BotFeatures {
	cfg := in.Config
	ds := in.Dataset

	spanDays := 1.0
	if start, end := ds.TimeRange(); !start.IsZero() {
		if d := end.Sub(start).Hours() / 24; d > spanDays {
			spanDays = d
		}
	}

	fpCount := map[string]int{}
	for _, p := range ds.Posts {
		if p.IsRetweet {
			continue
		}
		if fp := textsim.TextFingerprint(p.Text); fp != "" {
			fpCount[fp]++
		}
	}

	var follow *netgraph.Layer
	if in.Graph != nil {
		follow, _ = in.Graph.Layer(dataset.LayerFollow)
	}

	out := make(map[string]BotFeatures, len(ds.Users))
	for _, u := range ds.Users {
		posts := in.PostsBy(u.ID)
		f := BotFeatures{
			PostsPerDay: float64(len(posts)) / spanDays,
		}
		if u.AccountAgeDays != nil {
			f.AccountAgeDays = *u.AccountAgeDays
			f.HasAge = true
		}

		following := float64(u.FollowingCount)
		if following == 0 && follow != nil {
			following = float64(len(follow.Successors(u.ID)))
		}
		if following > 0 {
			f.FollowerRatio = float64(u.FollowerCount) / following
			f.HasRatio = true
		}

		// retweets repeat their parent's text by construction
		dup, originals := 0, 0
		for _, p := range posts {
			if p.IsRetweet {
				continue
			}
			originals++
			if fp := textsim.TextFingerprint(p.Text); fp != "" && fpCount[fp] > 1 {
				dup++
			}
		}
		if originals > 0 {
			f.DuplicationRate = float64(dup) / float64(originals)
		}

		if f.PostsPerDay >= cfg.BotPostsPerDay {
			f.Crossed++
		}
		if f.HasAge && f.AccountAgeDays < cfg.BotMaxAccountAgeDays {
			f.Crossed++
		}
		if f.HasRatio && f.FollowerRatio < cfg.BotMinFollowerRatio {
			f.Crossed++
		}
		if originals > 0 && f.DuplicationRate >= cfg.BotDuplicationRate {
			f.Crossed++
		}
		out[u.ID] = f
	}
	return out
}

// BotClusters groups bot-like accounts which are adjacent in the combined graph. An unverified account is bot-like when at least bot_min_indicators of its four features cross their thresholds. Groups of at least min_cluster_size accounts are flagged, with risk equal to the mean bot score.
func BotClusters(ctx context.Context, in *Input) ([]Cluster, error) {
	cfg := in.Config
	feats := botFeatures(in)
	users := in.Dataset.UserIndex()

	var likely []string
	for id, f := range feats {
		if users[id].Verified || f.Crossed < cfg.BotMinIndicators {
			continue
		}
		likely = append(likely, id)
	}
	sort.Strings(likely)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	isLikely := make(map[string]bool, len(likely))
	for _, id := range likely {
		isLikely[id] = true
	}
	combined := in.Combined()
	uf := fusion.NewUnionFind()
	for _, id := range likely {
		uf.Add(id)
		for _, nb := range combined.Neighbors(id) {
			if isLikely[nb] {
				uf.Union(id, nb)
			}
		}
	}

	var out []Cluster
	for _, members := range uf.Components() {
		if len(members) < cfg.MinClusterSize {
			continue
		}
		sum := 0.0
		for _, m := range members {
			sum += feats[m].Score()
		}
		risk := sum / float64(len(members))
		out = append(out, Cluster{
			Members:    members,
			Posts:      in.memberPosts(members, false),
			Indicators: []string{BotCluster},
			Risk:       fusion.Clamp01(risk),
			Evidence: []string{
				fmt.Sprintf("%d adjacent bot-like accounts, mean bot score %.3f", len(members), risk),
			},
		})
	}
	return out, nil
}
