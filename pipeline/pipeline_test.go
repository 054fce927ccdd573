package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bluesky-social/starling/cachestore"
	"github.com/bluesky-social/starling/config"
	"github.com/bluesky-social/starling/dataset"
	"github.com/bluesky-social/starling/misinfo"
	"github.com/bluesky-social/starling/partition"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func account(id string) dataset.User {
	return dataset.User{ID: id, AccountAgeDays: dataset.Float64(400), FollowerCount: 10, FollowingCount: 10}
}

func copiedPosts() *dataset.Dataset {
	return &dataset.Dataset{
		Users: []dataset.User{account("alice"), account("bob"), account("carol")},
		Posts: []dataset.Post{
			{ID: "p1", AuthorID: "alice", Timestamp: t0, Text: "Polling stations moved to the old mill, tell everyone"},
			{ID: "p2", AuthorID: "bob", Timestamp: t0.Add(5 * time.Second), Text: "Polling stations moved to the old mill, tell everyone"},
			{ID: "p3", AuthorID: "carol", Timestamp: t0.Add(40 * time.Second), Text: "my tomatoes finally ripened"},
		},
		Edges: []dataset.InteractionEdge{
			{Source: "alice", Target: "bob", Layer: dataset.LayerFollow, Weight: 1},
			{Source: "bob", Target: "carol", Layer: dataset.LayerFollow, Weight: 1},
		},
	}
}

// five accounts posting false claims, five posting accurate ones, never close in time
func veracityDataset() (*dataset.Dataset, *partition.Partition) {
	ds := &dataset.Dataset{}
	assign := map[string]int{}
	for i := 1; i <= 5; i++ {
		for c, grp := range []struct {
			prefix   string
			veracity float64
		}{{"u", 0.1}, {"v", 0.9}} {
			id := fmt.Sprintf("%s%d", grp.prefix, i)
			ds.Users = append(ds.Users, account(id))
			ds.Posts = append(ds.Posts, dataset.Post{
				ID:        "post-" + id,
				AuthorID:  id,
				Timestamp: t0.Add(time.Duration(i)*time.Hour + time.Duration(c)*20*time.Minute),
				Text:      fmt.Sprintf("claim number %d from %s", i, id),
				Veracity:  dataset.Float64(grp.veracity),
			})
			assign[id] = c
		}
	}
	return ds, partition.Static("follow", "external", assign)
}

func TestRunCopiedPosts(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	a := NewAnalyzer(config.DefaultConfig(), nil)
	res, err := a.Run(context.Background(), copiedPosts(), Options{})
	require.NoError(err)
	require.NoError(res.Err())

	require.Len(res.Groups, 1)
	assert.Equal([]string{"alice", "bob"}, res.Groups[0].Members)
	assert.Contains(res.Groups[0].Signals, config.SignalContent)
	assert.Equal(1, res.Metadata.SignalCounts[config.SignalContent])
	assert.Empty(res.Metadata.Warnings)
	assert.False(res.Metadata.Cached)
	assert.Equal(3, res.Metadata.Users)
	assert.NotEmpty(res.Metadata.RunID)
	assert.Contains(res.Metadata.Partitions, "follow/louvain")
	assert.Len(res.Layers, len(dataset.AllLayers))
}

func TestRunIdempotent(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	cfg := config.DefaultConfig()
	cfg.VeracityThreshold = 0.5
	ds, part := veracityDataset()
	opts := Options{Partitions: []*partition.Partition{part}}

	a := NewAnalyzer(cfg, nil)
	first, err := a.Run(context.Background(), ds, opts)
	require.NoError(err)
	second, err := a.Run(context.Background(), ds, opts)
	require.NoError(err)

	assert.Equal(first.Groups, second.Groups)
	assert.Equal(first.Clusters, second.Clusters)
	assert.Equal(first.Layers, second.Layers)
	assert.Equal(first.Metadata.DatasetFingerprint, second.Metadata.DatasetFingerprint)

	require.Len(first.Clusters, 1)
	c := first.Clusters[0]
	assert.Equal([]string{"u1", "u2", "u3", "u4", "u5"}, c.Members)
	assert.Equal([]string{misinfo.LowVeracity}, c.Indicators)
	assert.InDelta(0.9, c.Risk, 1e-9)
	require.NotNil(c.AvgVeracity)
	assert.InDelta(0.1, *c.AvgVeracity, 1e-9)
	assert.Equal([]string{"follow/external"}, first.Metadata.Partitions)
	assert.Equal(1, first.Metadata.ProposedClusters[misinfo.LowVeracity])
}

func TestScoresInUnitInterval(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	ds, part := veracityDataset()
	other := copiedPosts()
	ds.Users = append(ds.Users, other.Users...)
	ds.Posts = append(ds.Posts, other.Posts...)
	ds.Edges = append(ds.Edges, other.Edges...)

	res, err := NewAnalyzer(config.DefaultConfig(), nil).Run(context.Background(), ds, Options{
		Partitions: []*partition.Partition{part},
	})
	require.NoError(err)
	for _, g := range res.Groups {
		assert.GreaterOrEqual(g.Confidence, 0.0)
		assert.LessOrEqual(g.Confidence, 1.0)
		assert.GreaterOrEqual(len(g.Members), 2)
	}
	for _, c := range res.Clusters {
		assert.GreaterOrEqual(c.Risk, 0.0)
		assert.LessOrEqual(c.Risk, 1.0)
		assert.NotEmpty(c.Indicators)
	}
}

func TestEmptyInput(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	a := NewAnalyzer(config.DefaultConfig(), nil)
	res, err := a.Run(context.Background(), &dataset.Dataset{Users: []dataset.User{account("alice")}}, Options{})
	require.NoError(err)
	assert.True(res.Metadata.Empty)
	assert.ErrorIs(res.Err(), ErrEmptyInput)
	assert.Empty(res.Groups)
	assert.Empty(res.Clusters)

	// a window which excludes every post is also empty
	res, err = a.Run(context.Background(), copiedPosts(), Options{Start: t0.Add(24 * time.Hour)})
	require.NoError(err)
	assert.True(res.Metadata.Empty)
}

func TestRunRejectsBadInput(t *testing.T) {
	assert := assert.New(t)

	ds := copiedPosts()
	ds.Users = append(ds.Users, account("alice"))
	_, err := NewAnalyzer(config.DefaultConfig(), nil).Run(context.Background(), ds, Options{})
	var verr *dataset.ValidationError
	assert.True(errors.As(err, &verr))

	cfg := config.DefaultConfig()
	cfg.ContentSimilarityThreshold = 1.5
	_, err = NewAnalyzer(cfg, nil).Run(context.Background(), copiedPosts(), Options{})
	var cerr *config.ConfigurationError
	assert.True(errors.As(err, &cerr))
	assert.Equal("content_similarity_threshold", cerr.Key)

	_, err = NewAnalyzer(config.DefaultConfig(), nil).Run(context.Background(), copiedPosts(), Options{Algorithms: []string{"bogus"}})
	assert.Error(err)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewAnalyzer(config.DefaultConfig(), nil).Run(ctx, copiedPosts(), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResultCache(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	a := NewAnalyzer(config.DefaultConfig(), nil)
	a.Cache = cachestore.NewResultCache(cachestore.NewMemResultStore(100, time.Hour))
	ds := copiedPosts()

	first, err := a.Run(ctx, ds, Options{})
	require.NoError(err)
	assert.False(first.Metadata.Cached)

	second, err := a.Run(ctx, ds, Options{})
	require.NoError(err)
	assert.True(second.Metadata.Cached)
	assert.Equal(first.Groups[0].Members, second.Groups[0].Members)
	assert.Equal(first.Groups[0].Confidence, second.Groups[0].Confidence)

	// different options miss
	third, err := a.Run(ctx, ds, Options{Algorithms: []string{"lpa"}})
	require.NoError(err)
	assert.False(third.Metadata.Cached)

	require.NoError(a.Invalidate(ctx, ds, Options{}))
	fourth, err := a.Run(ctx, ds, Options{})
	require.NoError(err)
	assert.False(fourth.Metadata.Cached)

	fifth, err := a.Run(ctx, ds, Options{NoCache: true})
	require.NoError(err)
	assert.False(fifth.Metadata.Cached)
}
