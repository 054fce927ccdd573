package signals

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bluesky-social/starling/config"
	"github.com/bluesky-social/starling/dataset"
	"github.com/bluesky-social/starling/netgraph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func at(sec int) time.Time {
	return t0.Add(time.Duration(sec) * time.Second)
}

func testInput(posts []dataset.Post, layers map[string]*netgraph.Layer) *Input {
	if layers == nil {
		layers = map[string]*netgraph.Layer{}
	}
	return NewInput(&netgraph.MultiLayerGraph{Layers: layers}, posts, config.DefaultConfig(), nil)
}

func TestSignalLinks(t *testing.T) {
	assert := assert.New(t)

	pair := Signal{Users: []string{"b", "a"}}
	assert.Equal([][2]string{{"a", "b"}}, pair.Links())

	set := Signal{Users: []string{"a", "b", "c"}}
	assert.Len(set.Links(), 3)

	star := Signal{Users: []string{"a", "h", "z"}, Hub: "h"}
	assert.Equal([][2]string{{"a", "h"}, {"h", "z"}}, star.Links())
}

func TestContentSignals(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	posts := []dataset.Post{
		{ID: "1", AuthorID: "a", Timestamp: at(0), Text: "The dam upstream has failed, evacuate now!"},
		{ID: "2", AuthorID: "b", Timestamp: at(5), Text: "The dam upstream has failed, evacuate now!"},
		{ID: "3", AuthorID: "c", Timestamp: at(9), Text: "Lovely weather for a picnic today"},
		{ID: "4", AuthorID: "a", Timestamp: at(20), Text: "The dam upstream has failed, evacuate now!"},
		{ID: "5", AuthorID: "d", Timestamp: at(30), Text: "The dam upstream has failed, evacuate now!", IsRetweet: true, ParentID: "1"},
	}
	sigs, err := ContentSignals(context.Background(), testInput(posts, nil))
	require.NoError(err)
	require.Len(sigs, 1)
	assert.Equal("content", sigs[0].Type)
	assert.Equal([]string{"a", "b"}, sigs[0].Users)
	assert.Equal(1.0, sigs[0].Strength)
	assert.Equal(2, sigs[0].Evidence.Occurrences)
	assert.Equal(at(0), sigs[0].Evidence.First)
	assert.Equal(at(20), sigs[0].Evidence.Last)
}

func TestContentMonotonic(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	texts := []string{
		"breaking news the dam has failed",
		"breaking news the dam has failed downstream",
		"breaking news dam failure reported",
		"news about the dam",
		"cats are great pets",
		"cats are great companions",
		"the election results are in",
		"election results are rigged",
	}
	var posts []dataset.Post
	for i, txt := range texts {
		posts = append(posts, dataset.Post{
			ID:        fmt.Sprintf("p%d", i),
			AuthorID:  fmt.Sprintf("u%d", i),
			Timestamp: at(i),
			Text:      txt,
		})
	}

	var prev map[[2]string]bool
	for _, th := range []float64{0.0, 0.1, 0.3, 0.5, 0.7, 0.9, 0.99} {
		in := testInput(posts, nil)
		in.Config.ContentSimilarityThreshold = th
		in.Config.Workers = 3
		sigs, err := ContentSignals(context.Background(), in)
		require.NoError(err)

		cur := map[[2]string]bool{}
		for _, s := range sigs {
			assert.Greater(s.Strength, th)
			assert.LessOrEqual(s.Strength, 1.0)
			cur[[2]string{s.Users[0], s.Users[1]}] = true
		}
		if prev != nil {
			assert.LessOrEqual(len(cur), len(prev))
			for k := range cur {
				assert.True(prev[k], "pair %v appeared when raising threshold to %f", k, th)
			}
		}
		prev = cur
	}
}

func TestTemporalSignals(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	posts := []dataset.Post{
		{ID: "1", AuthorID: "a", Timestamp: at(0), Text: "go team", Hashtags: []string{"vote"}},
		{ID: "2", AuthorID: "b", Timestamp: at(10), Text: "we win", Hashtags: []string{"vote"}},
		{ID: "3", AuthorID: "c", Timestamp: at(300), Text: "what", Hashtags: []string{"vote"}},
		{ID: "4", AuthorID: "a", Timestamp: at(600), Text: "go again", Hashtags: []string{"vote"}},
		{ID: "5", AuthorID: "b", Timestamp: at(610), Text: "winning", Hashtags: []string{"vote"}},
		{ID: "6", AuthorID: "d", Timestamp: at(611), Text: "winning", Hashtags: []string{"vote"}, IsRetweet: true},
		{ID: "7", AuthorID: "e", Timestamp: at(612), Text: "unrelated chatter"},
	}
	sigs, err := TemporalSignals(context.Background(), testInput(posts, nil))
	require.NoError(err)
	require.Len(sigs, 1)
	assert.Equal([]string{"a", "b"}, sigs[0].Users)
	assert.InDelta(2.0/3.0, sigs[0].Strength, 1e-9)
	assert.Equal(at(0), sigs[0].Evidence.First)
	assert.Equal(at(610), sigs[0].Evidence.Last)
}

func TestSimilarityThresholdIsStrict(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	posts := []dataset.Post{
		{ID: "1", AuthorID: "a", Timestamp: at(0), Text: "The bridge is closed, take the ferry"},
		{ID: "2", AuthorID: "b", Timestamp: at(5), Text: "The bridge is closed, take the ferry"},
	}
	for _, fix := range []struct {
		threshold float64
		want      int
	}{
		{1.0, 0},
		{0.99, 1},
	} {
		in := testInput(posts, nil)
		in.Config.ContentSimilarityThreshold = fix.threshold
		content, err := ContentSignals(context.Background(), in)
		require.NoError(err)
		temporal, err := TemporalSignals(context.Background(), in)
		require.NoError(err)
		assert.Len(content, fix.want, "content at %f", fix.threshold)
		assert.Len(temporal, fix.want, "temporal at %f", fix.threshold)
	}
}

func TestHashtagSignals(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	posts := []dataset.Post{
		{ID: "1", AuthorID: "a", Timestamp: at(0), Hashtags: []string{"x", "y"}},
		{ID: "2", AuthorID: "a", Timestamp: at(1), Hashtags: []string{"z"}},
		{ID: "3", AuthorID: "b", Timestamp: at(2), Hashtags: []string{"x", "y", "z"}},
		{ID: "4", AuthorID: "c", Timestamp: at(3), Hashtags: []string{"x"}},
		{ID: "5", AuthorID: "d", Timestamp: at(4)},
		{ID: "6", AuthorID: "e", Timestamp: at(5)},
	}
	sigs, err := HashtagSignals(context.Background(), testInput(posts, nil))
	require.NoError(err)
	require.Len(sigs, 1)
	assert.Equal([]string{"a", "b"}, sigs[0].Users)
	assert.Equal(1.0, sigs[0].Strength)
	assert.Equal(3, sigs[0].Evidence.Occurrences)
}

func TestURLSignals(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	posts := []dataset.Post{
		{ID: "1", AuthorID: "a", Timestamp: at(0), URLs: []string{"https://www.example.com/story?utm_source=x"}},
		{ID: "2", AuthorID: "b", Timestamp: at(150), URLs: []string{"https://example.com/story/"}},
		{ID: "3", AuthorID: "c", Timestamp: at(1000), URLs: []string{"https://example.com/story"}},
		{ID: "4", AuthorID: "a", Timestamp: at(1001), URLs: []string{"https://example.com/other"}},
	}
	sigs, err := URLSignals(context.Background(), testInput(posts, nil))
	require.NoError(err)
	require.Len(sigs, 1)
	assert.Equal([]string{"a", "b"}, sigs[0].Users)
	assert.InDelta(0.5, sigs[0].Strength, 1e-9)
}

func TestURLSignalsFromText(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	raw := `{
		"users": [{"id": "a"}, {"id": "b"}, {"id": "c"}],
		"posts": [
			{"id": "1", "author_id": "a", "timestamp": "2024-03-01T12:00:00Z", "text": "wow https://www.example.com/story?utm_source=tw"},
			{"id": "2", "author_id": "b", "timestamp": "2024-03-01T12:00:30Z", "text": "must read: https://example.com/story."},
			{"id": "3", "author_id": "c", "timestamp": "2024-03-01T12:00:40Z", "text": "no links here, just example.com"}
		]
	}`
	ds, err := dataset.ReadDataset(strings.NewReader(raw))
	require.NoError(err)

	sigs, err := URLSignals(context.Background(), testInput(ds.Posts, nil))
	require.NoError(err)
	require.Len(sigs, 1)
	assert.Equal([]string{"a", "b"}, sigs[0].Users)
	// 30s gap with the default 300s delta
	assert.InDelta(1/(1+30.0/150.0), sigs[0].Strength, 1e-9)
}

func TestStructuralSignals(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	star := netgraph.NewLayer("retweet", true)
	for i := 0; i < 6; i++ {
		star.AddEdge(fmt.Sprintf("leaf%d", i), "hub", 1)
	}
	// a dense clique is not a star
	clique := []string{"k0", "k1", "k2", "k3", "k4", "k5"}
	for i := range clique {
		for j := i + 1; j < len(clique); j++ {
			star.AddEdge(clique[i], clique[j], 1)
		}
	}

	sigs, err := StructuralSignals(context.Background(), testInput(nil, map[string]*netgraph.Layer{"retweet": star}))
	require.NoError(err)
	require.Len(sigs, 1)
	assert.Equal("hub", sigs[0].Hub)
	assert.Len(sigs[0].Users, 7)
	assert.InDelta(0.3, sigs[0].Strength, 1e-9)
	assert.Len(sigs[0].Links(), 6)
}

func TestDefaultExtractors(t *testing.T) {
	assert := assert.New(t)

	var names []string
	for _, ex := range DefaultExtractors() {
		names = append(names, ex.Name)
	}
	assert.Equal(config.SignalTypes, names)
}
