package fakedata

import (
	"context"
	"testing"

	"github.com/bluesky-social/starling/config"
	"github.com/bluesky-social/starling/dataset"
	"github.com/bluesky-social/starling/misinfo"
	"github.com/bluesky-social/starling/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallOptions() Options {
	opts := DefaultOptions()
	opts.Celebs = 3
	opts.Regulars = 60
	opts.MaxPosts = 6
	opts.MaxFollows = 10
	return opts
}

func TestGenerateDeterministic(t *testing.T) {
	assert := assert.New(t)

	a := Generate(smallOptions())
	b := Generate(smallOptions())
	assert.Equal(a.Dataset, b.Dataset)
	assert.Equal(a.Planted, b.Planted)

	opts := smallOptions()
	opts.Seed = 2
	c := Generate(opts)
	assert.NotEqual(dataset.Fingerprint(a.Dataset), dataset.Fingerprint(c.Dataset))
}

func TestGenerateValid(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	gen := Generate(smallOptions())
	require.NoError(dataset.Validate(gen.Dataset, true))
	assert.Len(gen.Dataset.Users, 3+60+2*5+6)
	require.Len(gen.Planted, 3)
	assert.Equal(KindCoordinatedRing, gen.Planted[0].Kind)
	assert.Len(gen.Planted[0].Members, 5)
	assert.Equal(KindLowVeracityCommunity, gen.Planted[2].Kind)

	idx := gen.Dataset.UserIndex()
	for _, p := range gen.Planted {
		for _, m := range p.Members {
			_, ok := idx[m]
			assert.True(ok, m)
		}
	}
}

func containsAll(set []string, members []string) bool {
	have := map[string]bool{}
	for _, s := range set {
		have[s] = true
	}
	for _, m := range members {
		if !have[m] {
			return false
		}
	}
	return true
}

func TestPlantedStructureDetected(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	gen := Generate(smallOptions())
	res, err := pipeline.NewAnalyzer(config.DefaultConfig(), nil).Run(context.Background(), gen.Dataset, pipeline.Options{})
	require.NoError(err)

	for _, p := range gen.Planted {
		switch p.Kind {
		case KindCoordinatedRing:
			found := false
			for _, g := range res.Groups {
				if containsAll(g.Members, p.Members) {
					found = true
					assert.Contains(g.Signals, config.SignalContent)
				}
			}
			assert.True(found, "ring %v not detected", p.Members)
		case KindLowVeracityCommunity:
			found := false
			for _, c := range res.Clusters {
				if containsAll(c.Members, p.Members) {
					found = true
					assert.Contains(c.Indicators, misinfo.LowVeracity)
				}
			}
			assert.True(found, "community %v not detected", p.Members)
		}
	}
}
