package misinfo

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"github.com/bluesky-social/starling/netgraph"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

type communityFeatures struct {
	clustering    float64
	externalRatio float64
}

// localClustering is the fraction of an account's neighbor pairs which are themselves linked, ignoring direction.
func localClustering(l *netgraph.Layer, id string) float64 {
	nbrs := l.Neighbors(id)
	k := len(nbrs)
	if k < 2 {
		return 0
	}
	links := 0
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			if l.HasEdgeBetween(nbrs[i], nbrs[j]) {
				links++
			}
		}
	}
	return float64(links) / (float64(k) * float64(k-1) / 2)
}

func featuresOf(l *netgraph.Layer, members []string) communityFeatures {
	in := make(map[string]bool, len(members))
	for _, m := range members {
		in[m] = true
	}
	var f communityFeatures
	internal, external := 0, 0
	for _, m := range members {
		f.clustering += localClustering(l, m)
		for _, nb := range l.Neighbors(m) {
			if in[nb] {
				internal++
			} else {
				external++
			}
		}
	}
	f.clustering /= float64(len(members))
	if internal+external > 0 {
		f.externalRatio = float64(external) / float64(internal+external)
	}
	return f
}

// StructuralAnomalyClusters compares each community's average clustering coefficient and external-degree ratio (on the combined graph) against the other communities of the same partition. A community whose largest absolute z-score exceeds anomaly_zscore_threshold is flagged, with risk |z| / (|z| + threshold).
//
// Features are computed in parallel across communities.
func StructuralAnomalyClusters(ctx context.Context, in *Input) ([]Cluster, error) {
	cfg := in.Config
	combined := in.Combined()
	thr := cfg.AnomalyZScoreThreshold
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var out []Cluster
	for _, part := range in.Partitions {
		var comms [][]string
		var indexes []int
		for i, c := range part.Communities() {
			if len(c) >= cfg.MinClusterSize {
				comms = append(comms, c)
				indexes = append(indexes, i)
			}
		}
		// z-scores need a population
		if len(comms) < 3 {
			continue
		}

		feats := make([]communityFeatures, len(comms))
		eg, ectx := errgroup.WithContext(ctx)
		eg.SetLimit(workers)
		for i := range comms {
			eg.Go(func() error {
				if err := ectx.Err(); err != nil {
					return err
				}
				feats[i] = featuresOf(combined, comms[i])
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}

		clustering := make([]float64, len(feats))
		external := make([]float64, len(feats))
		for i, f := range feats {
			clustering[i] = f.clustering
			external[i] = f.externalRatio
		}
		cMean, cStd := stat.MeanStdDev(clustering, nil)
		eMean, eStd := stat.MeanStdDev(external, nil)

		for i, members := range comms {
			zc, ze := 0.0, 0.0
			if cStd > 0 {
				zc = stat.StdScore(clustering[i], cMean, cStd)
			}
			if eStd > 0 {
				ze = stat.StdScore(external[i], eMean, eStd)
			}
			z := math.Max(math.Abs(zc), math.Abs(ze))
			if z <= thr {
				continue
			}
			out = append(out, Cluster{
				Members:    members,
				Posts:      in.memberPosts(members, false),
				Indicators: []string{StructuralAnomaly},
				Risk:       z / (z + thr),
				Evidence: []string{
					fmt.Sprintf("%s community %d: clustering %.3f (z=%.2f), external ratio %.3f (z=%.2f)", part.Key(), indexes[i], clustering[i], zc, external[i], ze),
				},
			})
		}
	}
	return out, nil
}
