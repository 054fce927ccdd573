package signals

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/bluesky-social/starling/config"
)

// StructuralSignals flags amplification stars: a hub account linked to many accounts that are barely linked to each other, in any of the configured structural_layers.
//
// For a hub with k distinct neighbors whose pairwise interconnect density is d, the star is flagged when k >= structural_min_hub_degree and k/(1+k*d) >= structural_hub_ratio. Strength is (1-d) * min(1, k/structural_degree_saturation).
func StructuralSignals(ctx context.Context, in *Input) ([]Signal, error) {
	cfg := in.Config
	var out []Signal
	for _, name := range cfg.StructuralLayers {
		layer, ok := in.Graph.Layer(name)
		if !ok {
			continue
		}
		for _, hub := range layer.Nodes() {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			leaves := layer.Neighbors(hub)
			k := len(leaves)
			if k < cfg.StructuralMinHubDegree || k < 2 {
				continue
			}
			links := 0
			for i := 0; i < k; i++ {
				for j := i + 1; j < k; j++ {
					if layer.HasEdgeBetween(leaves[i], leaves[j]) {
						links++
					}
				}
			}
			d := float64(links) / (float64(k) * float64(k-1) / 2)
			if float64(k)/(1+float64(k)*d) < cfg.StructuralHubRatio {
				continue
			}
			strength := (1 - d) * math.Min(1, float64(k)/cfg.StructuralDegreeSaturation)

			members := append([]string{hub}, leaves...)
			sort.Strings(members)
			out = append(out, Signal{
				Type:     config.SignalStructural,
				Users:    members,
				Hub:      hub,
				Strength: strength,
				Evidence: Evidence{
					Description: fmt.Sprintf("%s layer star: %d leaves, leaf density %.3f", name, k, d),
					Occurrences: k,
				},
			})
		}
	}
	return out, nil
}
