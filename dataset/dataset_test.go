package dataset

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func fixtureDataset() *Dataset {
	return &Dataset{
		Users: []User{
			{ID: "alice", FollowerCount: 10, FollowingCount: 5, AccountAgeDays: Float64(400)},
			{ID: "bob", FollowerCount: 2, FollowingCount: 900, AccountAgeDays: Float64(3)},
			{ID: "carol", FollowerCount: 50, FollowingCount: 50, AccountAgeDays: Float64(90), Verified: true},
		},
		Posts: []Post{
			{ID: "p1", AuthorID: "alice", Timestamp: t0, Text: "hello world", Hashtags: []string{"news"}},
			{ID: "p2", AuthorID: "bob", Timestamp: t0.Add(time.Minute), ParentID: "p1", IsRetweet: true},
			{ID: "p3", AuthorID: "carol", Timestamp: t0.Add(2 * time.Minute), ParentID: "p1", Mentions: []string{"alice", "carol"}},
		},
		Edges: []InteractionEdge{
			{Source: "bob", Target: "alice", Layer: LayerFollow, Weight: 1},
		},
	}
}

func TestValidate(t *testing.T) {
	assert := assert.New(t)

	assert.NoError(Validate(fixtureDataset(), true))

	fixtures := []struct {
		name   string
		mutate func(ds *Dataset)
		field  string
	}{
		{"duplicate user", func(ds *Dataset) { ds.Users = append(ds.Users, User{ID: "alice"}) }, "id"},
		{"negative followers", func(ds *Dataset) { ds.Users[0].FollowerCount = -1 }, "follower_count"},
		{"negative account age", func(ds *Dataset) { ds.Users[0].AccountAgeDays = Float64(-1) }, "account_age_days"},
		{"missing timestamp", func(ds *Dataset) { ds.Posts[0].Timestamp = time.Time{} }, "timestamp"},
		{"veracity out of range", func(ds *Dataset) { ds.Posts[0].Veracity = Float64(1.5) }, "veracity_score"},
		{"unknown layer", func(ds *Dataset) { ds.Edges[0].Layer = "like" }, "layer"},
		{"zero weight", func(ds *Dataset) { ds.Edges[0].Weight = 0 }, "weight"},
		{"unknown edge target", func(ds *Dataset) { ds.Edges[0].Target = "mallory" }, "target"},
		{"unknown author", func(ds *Dataset) { ds.Posts[0].AuthorID = "mallory" }, "author_id"},
	}

	for _, fix := range fixtures {
		ds := fixtureDataset()
		fix.mutate(ds)
		err := Validate(ds, true)
		var verr *ValidationError
		if assert.True(errors.As(err, &verr), fix.name) {
			assert.Equal(fix.field, verr.Field, fix.name)
		}
	}

	// dangling references are only rejected in strict mode
	ds := fixtureDataset()
	ds.Edges[0].Target = "mallory"
	assert.NoError(Validate(ds, false))

	// a known zero veracity is valid
	ds = fixtureDataset()
	ds.Posts[0].Veracity = Float64(0)
	assert.NoError(Validate(ds, true))
}

func TestReadDataset(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	raw := `{
		"users": [{"id": "a", "follower_count": 3}, {"id": "b"}],
		"posts": [
			{"id": "p1", "author_id": "a", "timestamp": "2024-03-01T12:00:00Z", "text": "x https://example.com/a", "hashtags": ["#News", "news", "Other"]},
			{"id": "p2", "author_id": "b", "timestamp": 1709294405, "veracity_score": 0.2, "text": "see https://example.com/b", "urls": []},
			{"id": "p3", "author_id": "b", "timestamp": "2024-03-01 12:00:10"}
		],
		"edges": [{"source": "a", "target": "b", "layer": "Follow"}]
	}`
	ds, err := ReadDataset(strings.NewReader(raw))
	require.NoError(err)

	assert.Equal([]string{"news", "other"}, ds.Posts[0].Hashtags)
	// links come from the text only when no url set was given
	assert.Equal([]string{"https://example.com/a"}, ds.Posts[0].URLs)
	assert.Empty(ds.Posts[1].URLs)
	assert.Equal(t0, ds.Posts[0].Timestamp)
	assert.Equal(t0.Add(5*time.Second), ds.Posts[1].Timestamp)
	assert.Equal(t0.Add(10*time.Second), ds.Posts[2].Timestamp)
	assert.Nil(ds.Posts[0].Veracity)
	require.NotNil(ds.Posts[1].Veracity)
	assert.Equal(0.2, *ds.Posts[1].Veracity)
	assert.Equal(1.0, ds.Edges[0].Weight)
	assert.Equal(LayerFollow, ds.Edges[0].Layer)

	_, err = ReadDataset(strings.NewReader(`{"posts": [{"id": "p1", "author_id": "a"}]}`))
	var verr *ValidationError
	assert.True(errors.As(err, &verr))
}

func TestWindow(t *testing.T) {
	assert := assert.New(t)

	ds := fixtureDataset()
	w := ds.Window(t0.Add(30*time.Second), t0.Add(2*time.Minute))
	assert.Len(w.Posts, 1)
	assert.Equal("p2", w.Posts[0].ID)
	// untimed follow edge is kept
	assert.Len(w.Edges, 1)
	assert.Len(w.Users, 3)
	assert.False(w.IsEmpty())

	empty := ds.Window(t0.Add(time.Hour), time.Time{})
	assert.Empty(empty.Posts)
	// the untimed follow edge survives, but is not activity
	assert.Len(empty.Edges, 1)
	assert.True(empty.IsEmpty())

	// a timed edge inside the window is
	ds.Edges = append(ds.Edges, InteractionEdge{Source: "carol", Target: "bob", Layer: LayerMention, Weight: 1, Timestamp: t0.Add(2 * time.Hour)})
	assert.False(ds.Window(t0.Add(time.Hour), time.Time{}).IsEmpty())

	start, end := ds.TimeRange()
	assert.Equal(t0, start)
	assert.Equal(t0.Add(2*time.Minute), end)
}

func TestDeriveEdges(t *testing.T) {
	assert := assert.New(t)

	edges := DeriveEdges(fixtureDataset().Posts)
	assert.ElementsMatch([]InteractionEdge{
		{Source: "bob", Target: "alice", Layer: LayerRetweet, Weight: 1, Timestamp: t0.Add(time.Minute)},
		{Source: "carol", Target: "alice", Layer: LayerReply, Weight: 1, Timestamp: t0.Add(2 * time.Minute)},
		{Source: "carol", Target: "alice", Layer: LayerMention, Weight: 1, Timestamp: t0.Add(2 * time.Minute)},
	}, edges)
}

func TestRootPostID(t *testing.T) {
	assert := assert.New(t)

	ds := fixtureDataset()
	ds.Posts = append(ds.Posts, Post{ID: "p4", AuthorID: "alice", Timestamp: t0, ParentID: "p2"})
	idx := ds.PostIndex()
	assert.Equal("p1", RootPostID(idx, "p4"))
	assert.Equal("p1", RootPostID(idx, "p1"))
	assert.Equal("zzz", RootPostID(idx, "zzz"))
}

func TestFingerprint(t *testing.T) {
	assert := assert.New(t)

	a := fixtureDataset()
	b := fixtureDataset()
	b.Posts[0], b.Posts[2] = b.Posts[2], b.Posts[0]
	assert.Equal(Fingerprint(a), Fingerprint(b))
	assert.Len(Fingerprint(a), 32)

	b.Posts[0].Text = "changed"
	assert.NotEqual(Fingerprint(a), Fingerprint(b))
}
