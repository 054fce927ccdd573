package netgraph

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph/topo"
)

// Layer combination modes.
const (
	CombineUnion        = "union"
	CombineIntersection = "intersection"
)

// CombineLayers merges the named layers into a single view.
//
// In union mode the node set is the union of all inputs and edge weights are summed across layers. In intersection mode only edges present in every input survive, weighted by the minimum, over nodes present in every input. The result is directed only when every input is directed; otherwise directed edges are folded on to undirected pairs first. An empty names list selects every layer.
func (mg *MultiLayerGraph) CombineLayers(names []string, mode string) (*Layer, error) {
	if mode != CombineUnion && mode != CombineIntersection {
		return nil, fmt.Errorf("unknown layer combination mode: %q", mode)
	}
	if len(names) == 0 {
		names = mg.Names()
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no layers to combine")
	}
	names = append([]string(nil), names...)
	sort.Strings(names)

	layers := make([]*Layer, 0, len(names))
	directed := true
	for _, n := range names {
		l, ok := mg.Layers[n]
		if !ok {
			return nil, fmt.Errorf("unknown layer: %q", n)
		}
		if !l.Directed {
			directed = false
		}
		layers = append(layers, l)
	}

	// per-input edge weights, keyed in the output's orientation
	type key struct{ a, b string }
	orient := func(a, b string) key {
		if !directed && b < a {
			return key{b, a}
		}
		return key{a, b}
	}
	perLayer := make([]map[key]float64, len(layers))
	for i, l := range layers {
		m := map[key]float64{}
		for _, e := range l.Edges() {
			m[orient(e.Source, e.Target)] += e.Weight
		}
		perLayer[i] = m
	}

	out := NewLayer(mode+":"+strings.Join(names, "+"), directed)
	switch mode {
	case CombineUnion:
		for _, l := range layers {
			for _, n := range l.Nodes() {
				out.AcquireNode(n)
			}
		}
		sum := map[key]float64{}
		for _, m := range perLayer {
			for k, w := range m {
				sum[k] += w
			}
		}
		for _, k := range sortedKeys(sum, func(k key) (string, string) { return k.a, k.b }) {
			out.AddEdge(k.a, k.b, sum[k])
		}
	case CombineIntersection:
		for _, n := range layers[0].Nodes() {
			inAll := true
			for _, l := range layers[1:] {
				if !l.HasNode(n) {
					inAll = false
					break
				}
			}
			if inAll {
				out.AcquireNode(n)
			}
		}
		common := map[key]float64{}
		for k, w := range perLayer[0] {
			min, inAll := w, true
			for _, m := range perLayer[1:] {
				other, ok := m[k]
				if !ok {
					inAll = false
					break
				}
				if other < min {
					min = other
				}
			}
			if inAll {
				common[k] = min
			}
		}
		for _, k := range sortedKeys(common, func(k key) (string, string) { return k.a, k.b }) {
			out.AddEdge(k.a, k.b, common[k])
		}
	}
	return out, nil
}

func sortedKeys[K comparable](m map[K]float64, parts func(K) (string, string)) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ai, bi := parts(keys[i])
		aj, bj := parts(keys[j])
		if ai == aj {
			return bi < bj
		}
		return ai < aj
	})
	return keys
}

// Stats summarizes one layer.
type Stats struct {
	Name       string  `json:"name"`
	Directed   bool    `json:"directed"`
	Nodes      int     `json:"nodes"`
	Edges      int     `json:"edges"`
	Density    float64 `json:"density"`
	AvgDegree  float64 `json:"avg_degree"`
	MaxDegree  int     `json:"max_degree"`
	Components int     `json:"components"`
}

// LayerStats computes size and connectivity figures. Components are weakly connected components for directed layers.
func LayerStats(l *Layer) Stats {
	s := Stats{
		Name:     l.Name,
		Directed: l.Directed,
		Nodes:    l.NodeCount(),
		Edges:    l.EdgeCount(),
	}
	if s.Nodes == 0 {
		return s
	}
	if s.Nodes > 1 {
		possible := float64(s.Nodes) * float64(s.Nodes-1)
		if !l.Directed {
			possible /= 2
		}
		s.Density = float64(s.Edges) / possible
	}
	total := 0
	for _, id := range l.ids {
		d := l.Degree(id)
		total += d
		if d > s.MaxDegree {
			s.MaxDegree = d
		}
	}
	s.AvgDegree = float64(total) / float64(s.Nodes)
	s.Components = len(topo.ConnectedComponents(l.Undirected()))
	return s
}

// Stats for every layer, ordered by name.
func (mg *MultiLayerGraph) Stats() []Stats {
	out := make([]Stats, 0, len(mg.Layers))
	for _, n := range mg.Names() {
		out = append(out, LayerStats(mg.Layers[n]))
	}
	return out
}

// LayerAttributes describes one account within one layer.
type LayerAttributes struct {
	Degree    int      `json:"degree"`
	Neighbors []string `json:"neighbors"`
}

// NodeAttributes reports the account's degree and neighbors in every layer it belongs to.
func (mg *MultiLayerGraph) NodeAttributes(id string) map[string]LayerAttributes {
	out := map[string]LayerAttributes{}
	for name, l := range mg.Layers {
		if !l.HasNode(id) {
			continue
		}
		out[name] = LayerAttributes{
			Degree:    l.Degree(id),
			Neighbors: l.Neighbors(id),
		}
	}
	return out
}
