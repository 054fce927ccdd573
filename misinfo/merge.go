package misinfo

import (
	"sort"

	"github.com/bluesky-social/starling/config"
	"github.com/bluesky-social/starling/fusion"
)

// Merge combines clusters whose memberships overlap by at least threshold (as a fraction of the smaller cluster), repeating until no pair qualifies. Merged clusters take the union of members, posts, indicators and evidence. Risk is the maximum of the inputs, or their member-weighted average under the weighted_average policy.
//
// The result is ordered by risk, highest first, with ties broken by smallest member.
func Merge(clusters []Cluster, threshold float64, policy string) []Cluster {
	in := append([]Cluster(nil), clusters...)
	sortClusters(in)

	merged := fusion.MergeOverlapping(in, func(c Cluster) []string { return c.Members }, threshold, func(a, b Cluster) Cluster {
		risk := max(a.Risk, b.Risk)
		if policy == config.MergeWeightedAverage {
			na, nb := float64(len(a.Members)), float64(len(b.Members))
			risk = (a.Risk*na + b.Risk*nb) / (na + nb)
		}
		return Cluster{
			Members:    fusion.SortedUnion(a.Members, b.Members),
			Posts:      fusion.SortedUnion(a.Posts, b.Posts),
			Indicators: fusion.SortedUnion(a.Indicators, b.Indicators),
			Risk:       risk,
			Evidence:   append(append([]string(nil), a.Evidence...), b.Evidence...),
		}
	})
	sortClusters(merged)
	return merged
}

func sortClusters(cs []Cluster) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Risk != cs[j].Risk {
			return cs[i].Risk > cs[j].Risk
		}
		a, b := cs[i].Members, cs[j].Members
		if len(a) > 0 && len(b) > 0 && a[0] != b[0] {
			return a[0] < b[0]
		}
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return cs[i].Indicators[0] < cs[j].Indicators[0]
	})
}
