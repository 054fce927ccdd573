// In-memory multi-layer interaction graph.
//
// Each Layer is a weighted graph over account ids for one interaction type. Account ids are interned to dense int64 node ids on insert, which is also the id space of the gonum graph views used by partitioners and connectivity checks.
//
// Layers are built once per analysis run and are read-only afterwards; they are safe for concurrent readers.
package netgraph

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
)

// Edge is one aggregated (deduplicated) edge in a layer. For undirected layers Source < Target.
type Edge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight"`
}

type Layer struct {
	Name     string
	Directed bool

	// account id <-> node id
	nid map[string]int64
	ids []string

	// out[a][b] holds the aggregated weight of a->b. Undirected edges are stored in both directions.
	out map[int64]map[int64]float64
	in  map[int64]map[int64]float64
}

func NewLayer(name string, directed bool) *Layer {
	return &Layer{
		Name:     name,
		Directed: directed,
		nid:      map[string]int64{},
		out:      map[int64]map[int64]float64{},
		in:       map[int64]map[int64]float64{},
	}
}

// AcquireNode links an account id to a node id, creating a new node if necessary.
func (l *Layer) AcquireNode(id string) int64 {
	n, ok := l.nid[id]
	if !ok {
		n = int64(len(l.ids))
		l.nid[id] = n
		l.ids = append(l.ids, id)
	}
	return n
}

func (l *Layer) HasNode(id string) bool {
	_, ok := l.nid[id]
	return ok
}

// NodeID returns the dense node id for an account, as used by Undirected.
func (l *Layer) NodeID(id string) (int64, bool) {
	n, ok := l.nid[id]
	return n, ok
}

// AccountID is the inverse of NodeID.
func (l *Layer) AccountID(n int64) string {
	if n < 0 || n >= int64(len(l.ids)) {
		return ""
	}
	return l.ids[n]
}

// AddEdge adds weight to the src->dst edge, creating both nodes if needed. Self-loops are ignored.
func (l *Layer) AddEdge(src, dst string, weight float64) {
	if src == dst {
		l.AcquireNode(src)
		return
	}
	if !l.Directed && dst < src {
		src, dst = dst, src
	}
	a, b := l.AcquireNode(src), l.AcquireNode(dst)
	l.link(l.out, a, b, weight)
	l.link(l.in, b, a, weight)
	if !l.Directed {
		l.link(l.out, b, a, weight)
		l.link(l.in, a, b, weight)
	}
}

func (l *Layer) link(m map[int64]map[int64]float64, a, b int64, w float64) {
	adj, ok := m[a]
	if !ok {
		adj = map[int64]float64{}
		m[a] = adj
	}
	adj[b] += w
}

// Weight of the src->dst edge. Direction is ignored on undirected layers.
func (l *Layer) Weight(src, dst string) (float64, bool) {
	a, ok := l.nid[src]
	if !ok {
		return 0, false
	}
	b, ok := l.nid[dst]
	if !ok {
		return 0, false
	}
	w, ok := l.out[a][b]
	return w, ok
}

// HasEdgeBetween ignores direction.
func (l *Layer) HasEdgeBetween(x, y string) bool {
	if _, ok := l.Weight(x, y); ok {
		return true
	}
	_, ok := l.Weight(y, x)
	return ok
}

// Nodes lists all account ids in the layer, sorted.
func (l *Layer) Nodes() []string {
	out := append([]string(nil), l.ids...)
	sort.Strings(out)
	return out
}

func (l *Layer) NodeCount() int {
	return len(l.ids)
}

// Edges lists every aggregated edge, sorted by source then target.
func (l *Layer) Edges() []Edge {
	var out []Edge
	for a, adj := range l.out {
		for b, w := range adj {
			src, dst := l.ids[a], l.ids[b]
			if !l.Directed && dst < src {
				continue
			}
			out = append(out, Edge{Source: src, Target: dst, Weight: w})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source == out[j].Source {
			return out[i].Target < out[j].Target
		}
		return out[i].Source < out[j].Source
	})
	return out
}

func (l *Layer) EdgeCount() int {
	n := 0
	for _, adj := range l.out {
		n += len(adj)
	}
	if !l.Directed {
		n /= 2
	}
	return n
}

func (l *Layer) sortedIDs(set map[int64]float64) []string {
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, l.ids[n])
	}
	sort.Strings(out)
	return out
}

// Successors lists the accounts id points at, sorted. For undirected layers this equals Neighbors.
func (l *Layer) Successors(id string) []string {
	n, ok := l.nid[id]
	if !ok {
		return nil
	}
	return l.sortedIDs(l.out[n])
}

// Predecessors lists the accounts pointing at id, sorted.
func (l *Layer) Predecessors(id string) []string {
	n, ok := l.nid[id]
	if !ok {
		return nil
	}
	return l.sortedIDs(l.in[n])
}

// Neighbors lists adjacent accounts in either direction, sorted.
func (l *Layer) Neighbors(id string) []string {
	n, ok := l.nid[id]
	if !ok {
		return nil
	}
	set := map[int64]float64{}
	for m := range l.out[n] {
		set[m] = 1
	}
	for m := range l.in[n] {
		set[m] = 1
	}
	return l.sortedIDs(set)
}

// Degree is the number of distinct neighbors, ignoring direction.
func (l *Layer) Degree(id string) int {
	n, ok := l.nid[id]
	if !ok {
		return 0
	}
	if !l.Directed {
		return len(l.out[n])
	}
	d := len(l.out[n])
	for m := range l.in[n] {
		if _, dup := l.out[n][m]; !dup {
			d++
		}
	}
	return d
}

// Undirected returns a gonum view of the layer with direction dropped. Reciprocal directed edges are folded together and their weights summed. Node ids match NodeID.
func (l *Layer) Undirected() *simple.WeightedUndirectedGraph {
	g := simple.NewWeightedUndirectedGraph(0, 0)
	for n := range l.ids {
		g.AddNode(simple.Node(n))
	}
	for a, adj := range l.out {
		for b, w := range adj {
			if !l.Directed {
				if a < b {
					g.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(a), T: simple.Node(b), W: w})
				}
				continue
			}
			if prev, ok := g.Weight(a, b); ok {
				w += prev
			}
			g.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(a), T: simple.Node(b), W: w})
		}
	}
	return g
}
