package fusion

import (
	"sort"
)

// UnionFind is a disjoint-set forest over string ids. The zero value is not usable; use NewUnionFind.
type UnionFind struct {
	parent map[string]string
	rank   map[string]int
}

func NewUnionFind() *UnionFind {
	return &UnionFind{
		parent: make(map[string]string),
		rank:   make(map[string]int),
	}
}

// Add registers an id as its own singleton set, if not already present.
func (uf *UnionFind) Add(id string) {
	if _, ok := uf.parent[id]; !ok {
		uf.parent[id] = id
	}
}

func (uf *UnionFind) Find(id string) string {
	uf.Add(id)
	root := id
	for uf.parent[root] != root {
		root = uf.parent[root]
	}
	// path compression
	for uf.parent[id] != root {
		next := uf.parent[id]
		uf.parent[id] = root
		id = next
	}
	return root
}

func (uf *UnionFind) Union(a, b string) {
	ra, rb := uf.Find(a), uf.Find(b)
	if ra == rb {
		return
	}
	switch {
	case uf.rank[ra] < uf.rank[rb]:
		uf.parent[ra] = rb
	case uf.rank[ra] > uf.rank[rb]:
		uf.parent[rb] = ra
	default:
		uf.parent[rb] = ra
		uf.rank[ra]++
	}
}

// Components returns every set as a sorted member list. Sets are ordered by their smallest member.
func (uf *UnionFind) Components() [][]string {
	byRoot := make(map[string][]string)
	for id := range uf.parent {
		r := uf.Find(id)
		byRoot[r] = append(byRoot[r], id)
	}
	out := make([][]string, 0, len(byRoot))
	for _, members := range byRoot {
		sort.Strings(members)
		out = append(out, members)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i][0] < out[j][0]
	})
	return out
}
