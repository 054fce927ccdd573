package runstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/bluesky-social/starling/coordination"
	"github.com/bluesky-social/starling/fusion"
	"github.com/bluesky-social/starling/misinfo"
	"github.com/bluesky-social/starling/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func testStore(t *testing.T) *Store {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "runs.sqlite")), &gorm.Config{SkipDefaultTransaction: true, TranslateError: true})
	require.NoError(t, err)
	s, err := New(db, nil)
	require.NoError(t, err)
	return s
}

func sampleResult(fp string) *pipeline.Result {
	return &pipeline.Result{
		Groups: []coordination.Group{
			{ID: "cg-1", Members: []string{"alice", "bob"}, Signals: []string{"content"}, Confidence: 1},
		},
		Clusters: []misinfo.Cluster{},
		Metadata: pipeline.Metadata{
			DatasetFingerprint: fp,
			ConfigFingerprint:  "cfg",
			Users:              3,
			Posts:              3,
			Warnings:           []fusion.Warning{{Stage: "signal", Name: "url", Message: "boom"}},
		},
	}
}

func TestArchiveAndLoad(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	s := testStore(t)

	run, err := s.Archive(ctx, sampleResult("ds1"))
	require.NoError(err)
	assert.NotEmpty(run.Name)
	assert.Equal(1, run.Groups)
	assert.Equal(1, run.Warnings)

	res, err := s.Load(ctx, run.Name)
	require.NoError(err)
	require.Len(res.Groups, 1)
	assert.Equal([]string{"alice", "bob"}, res.Groups[0].Members)
	assert.Equal("ds1", res.Metadata.DatasetFingerprint)

	_, err = s.Load(ctx, "no-such-run")
	assert.True(errors.Is(err, ErrRunNotFound))
}

func TestListAndDelete(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	s := testStore(t)

	var names []string
	for _, fp := range []string{"ds1", "ds2", "ds1"} {
		run, err := s.Archive(ctx, sampleResult(fp))
		require.NoError(err)
		names = append(names, run.Name)
	}

	runs, err := s.List(ctx, 10)
	require.NoError(err)
	require.Len(runs, 3)
	// most recent first
	assert.Equal(names[2], runs[0].Name)
	assert.Empty(runs[0].Result)

	same, err := s.ForDataset(ctx, "ds1")
	require.NoError(err)
	assert.Len(same, 2)

	require.NoError(s.Delete(ctx, names[0]))
	assert.True(errors.Is(s.Delete(ctx, names[0]), ErrRunNotFound))
	runs, err = s.List(ctx, 10)
	require.NoError(err)
	assert.Len(runs, 2)
}
