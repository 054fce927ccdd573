package netgraph

import (
	"errors"
	"testing"
	"time"

	"github.com/bluesky-social/starling/config"
	"github.com/bluesky-social/starling/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func users(ids ...string) []dataset.User {
	out := make([]dataset.User, len(ids))
	for i, id := range ids {
		out[i] = dataset.User{ID: id, AccountAgeDays: dataset.Float64(100)}
	}
	return out
}

func TestBuildLayer(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	edges := []dataset.InteractionEdge{
		{Source: "a", Target: "b", Layer: "retweet", Weight: 1},
		{Source: "a", Target: "b", Layer: "retweet", Weight: 2},
		{Source: "b", Target: "a", Layer: "retweet", Weight: 1},
		{Source: "a", Target: "a", Layer: "retweet", Weight: 5},
		{Source: "c", Target: "a", Layer: "mention", Weight: 1},
		{Source: "c", Target: "d", Layer: "retweet", Weight: 0.5},
	}
	l, err := BuildLayer("retweet", users("a", "b", "c", "d"), edges, BuildOptions{Directed: true, WeightThreshold: 1})
	require.NoError(err)
	assert.Equal([]string{"a", "b", "c", "d"}, l.Nodes())
	assert.Equal([]Edge{
		{Source: "a", Target: "b", Weight: 3},
		{Source: "b", Target: "a", Weight: 1},
	}, l.Edges())
	assert.Equal(2, l.EdgeCount())
	assert.Equal(1, l.Degree("a"))
	assert.Equal([]string{"b"}, l.Successors("a"))
	assert.Equal([]string{"b"}, l.Predecessors("a"))
	assert.Equal(0, l.Degree("d"))

	// implicit node creation
	l, err = BuildLayer("mention", users("a"), edges, BuildOptions{Directed: true})
	require.NoError(err)
	assert.True(l.HasNode("c"))

	_, err = BuildLayer("mention", users("a"), edges, BuildOptions{Directed: true, Strict: true})
	var verr *dataset.ValidationError
	assert.True(errors.As(err, &verr))
	assert.Equal("source", verr.Field)
}

func TestUndirectedLayer(t *testing.T) {
	assert := assert.New(t)

	l := NewLayer("x", false)
	l.AddEdge("b", "a", 1)
	l.AddEdge("a", "b", 2)
	assert.Equal([]Edge{{Source: "a", Target: "b", Weight: 3}}, l.Edges())
	w, ok := l.Weight("b", "a")
	assert.True(ok)
	assert.Equal(3.0, w)

	g := l.Undirected()
	na, _ := l.NodeID("a")
	nb, _ := l.NodeID("b")
	gw, ok := g.Weight(na, nb)
	assert.True(ok)
	assert.Equal(3.0, gw)
	assert.Equal("b", l.AccountID(nb))
}

func TestBuildHashtagLayer(t *testing.T) {
	assert := assert.New(t)

	posts := []dataset.Post{
		{ID: "1", AuthorID: "a", Timestamp: t0, Hashtags: []string{"x", "y"}},
		{ID: "2", AuthorID: "b", Timestamp: t0, Hashtags: []string{"x"}},
		{ID: "3", AuthorID: "b", Timestamp: t0, Hashtags: []string{"y", "z"}},
		{ID: "4", AuthorID: "c", Timestamp: t0, Hashtags: []string{"z"}},
	}
	l := BuildHashtagLayer(users("a", "b", "c"), posts, 2)
	assert.False(l.Directed)
	assert.Equal([]Edge{{Source: "a", Target: "b", Weight: 2}}, l.Edges())

	l = BuildHashtagLayer(users("a", "b", "c"), posts, 1)
	assert.Equal(2, l.EdgeCount())
}

func TestBuildDerivesEdges(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	ds := &dataset.Dataset{
		Users: users("a", "b", "c"),
		Posts: []dataset.Post{
			{ID: "p1", AuthorID: "a", Timestamp: t0, Text: "original", Mentions: []string{"c"}},
			{ID: "p2", AuthorID: "b", Timestamp: t0.Add(time.Minute), IsRetweet: true, ParentID: "p1"},
		},
		Edges: []dataset.InteractionEdge{
			{Source: "a", Target: "b", Layer: "follow", Weight: 1},
		},
	}
	mg, err := Build(ds, config.DefaultConfig())
	require.NoError(err)
	assert.Equal([]string{"follow", "hashtag", "mention", "reply", "retweet"}, mg.Names())

	rt, ok := mg.Layer("retweet")
	require.True(ok)
	assert.Equal([]Edge{{Source: "b", Target: "a", Weight: 1}}, rt.Edges())
	mn, _ := mg.Layer("mention")
	assert.Equal([]Edge{{Source: "a", Target: "c", Weight: 1}}, mn.Edges())

	cfg := config.DefaultConfig()
	cfg.Layers["reply"] = config.LayerConfig{Enabled: false}
	mg, err = Build(ds, cfg)
	require.NoError(err)
	_, ok = mg.Layer("reply")
	assert.False(ok)

	attrs := mg.NodeAttributes("a")
	assert.Equal(1, attrs["follow"].Degree)
	assert.Equal([]string{"b"}, attrs["retweet"].Neighbors)
}

func TestCombineLayers(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	follow := NewLayer("follow", true)
	follow.AddEdge("a", "b", 1)
	follow.AddEdge("b", "c", 1)
	retweet := NewLayer("retweet", true)
	retweet.AddEdge("a", "b", 2)
	retweet.AddEdge("c", "d", 1)
	mg := &MultiLayerGraph{Layers: map[string]*Layer{"follow": follow, "retweet": retweet}}

	union, err := mg.CombineLayers([]string{"follow", "retweet"}, CombineUnion)
	require.NoError(err)
	assert.True(union.Directed)
	assert.Equal([]string{"a", "b", "c", "d"}, union.Nodes())
	assert.Equal([]Edge{
		{Source: "a", Target: "b", Weight: 3},
		{Source: "b", Target: "c", Weight: 1},
		{Source: "c", Target: "d", Weight: 1},
	}, union.Edges())

	inter, err := mg.CombineLayers(nil, CombineIntersection)
	require.NoError(err)
	assert.Equal([]Edge{{Source: "a", Target: "b", Weight: 1}}, inter.Edges())
	assert.Equal([]string{"a", "b", "c"}, inter.Nodes())

	// a single layer combines to itself
	self, err := mg.CombineLayers([]string{"retweet"}, CombineUnion)
	require.NoError(err)
	assert.Equal(retweet.Edges(), self.Edges())
	self, err = mg.CombineLayers([]string{"retweet"}, CombineIntersection)
	require.NoError(err)
	assert.Equal(retweet.Edges(), self.Edges())

	_, err = mg.CombineLayers([]string{"nope"}, CombineUnion)
	assert.Error(err)
	_, err = mg.CombineLayers(nil, "xor")
	assert.Error(err)
}

func TestCombineDisjointLayers(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	one := NewLayer("follow", true)
	one.AddEdge("a", "b", 1)
	one.AddEdge("b", "c", 1)
	two := NewLayer("mention", true)
	two.AddEdge("x", "y", 1)
	two.AddEdge("y", "z", 1)
	two.AddEdge("z", "x", 1)
	mg := &MultiLayerGraph{Layers: map[string]*Layer{"follow": one, "mention": two}}

	inter, err := mg.CombineLayers(nil, CombineIntersection)
	require.NoError(err)
	assert.Equal(0, inter.EdgeCount())

	union, err := mg.CombineLayers(nil, CombineUnion)
	require.NoError(err)
	assert.Equal(one.EdgeCount()+two.EdgeCount(), union.EdgeCount())
}

func TestCombineMixedDirection(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	rt := NewLayer("retweet", true)
	rt.AddEdge("b", "a", 1)
	rt.AddEdge("a", "b", 1)
	ht := NewLayer("hashtag", false)
	ht.AddEdge("a", "b", 2)
	mg := &MultiLayerGraph{Layers: map[string]*Layer{"retweet": rt, "hashtag": ht}}

	union, err := mg.CombineLayers(nil, CombineUnion)
	require.NoError(err)
	assert.False(union.Directed)
	assert.Equal([]Edge{{Source: "a", Target: "b", Weight: 4}}, union.Edges())

	inter, err := mg.CombineLayers(nil, CombineIntersection)
	require.NoError(err)
	assert.Equal([]Edge{{Source: "a", Target: "b", Weight: 2}}, inter.Edges())
}

func TestLayerStats(t *testing.T) {
	assert := assert.New(t)

	l := NewLayer("follow", true)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		l.AcquireNode(id)
	}
	l.AddEdge("a", "b", 1)
	l.AddEdge("b", "a", 1)
	l.AddEdge("a", "c", 1)
	l.AddEdge("d", "e", 1)

	s := LayerStats(l)
	assert.Equal(5, s.Nodes)
	assert.Equal(4, s.Edges)
	assert.Equal(0.2, s.Density)
	assert.Equal(2, s.MaxDegree)
	assert.Equal(1.2, s.AvgDegree)
	assert.Equal(2, s.Components)

	empty := LayerStats(NewLayer("x", false))
	assert.Equal(0, empty.Nodes)
	assert.Equal(0.0, empty.Density)
}
