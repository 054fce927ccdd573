// Synthetic dataset generator for development, demos, and benchmarks.
//
// Generated snapshots contain an organic background population with planted coordinated rings and low-veracity communities, so detector output can be checked against known ground truth.
package fakedata

import (
	"fmt"
	"strings"

	"github.com/bluesky-social/starling/dataset"

	"github.com/brianvoe/gofakeit/v6"
)

// Kinds of planted structure.
const (
	KindCoordinatedRing      = "coordinated_ring"
	KindLowVeracityCommunity = "low_veracity_community"
)

// Planted is one piece of ground truth inserted in to a generated dataset.
type Planted struct {
	Kind    string   `json:"kind"`
	Members []string `json:"members"`
}

// AccountCatalog groups generated accounts by role.
type AccountCatalog struct {
	Celebs      []dataset.User
	Regulars    []dataset.User
	Rings       [][]dataset.User
	Communities [][]dataset.User
}

// Background returns celebrity and regular accounts; planted accounts are excluded.
func (ac *AccountCatalog) Background() []dataset.User {
	var out []dataset.User
	out = append(out, ac.Celebs...)
	out = append(out, ac.Regulars...)
	return out
}

func (ac *AccountCatalog) Combined() []dataset.User {
	out := ac.Background()
	for _, r := range ac.Rings {
		out = append(out, r...)
	}
	for _, c := range ac.Communities {
		out = append(out, c...)
	}
	return out
}

func accountID(f *gofakeit.Faker, idx int) string {
	name := strings.ToLower(f.Username())
	return fmt.Sprintf("%s-%04d", name, idx)
}

func genAccount(f *gofakeit.Faker, idx int, accountType string) dataset.User {
	u := dataset.User{ID: accountID(f, idx)}
	switch accountType {
	case "celebrity":
		u.AccountAgeDays = dataset.Float64(f.Float64Range(400, 4000))
		u.FollowerCount = int64(f.IntRange(50_000, 2_000_000))
		u.FollowingCount = int64(f.IntRange(50, 500))
		u.Verified = f.Float64Range(0, 1) < 0.8
	case "regular":
		u.AccountAgeDays = dataset.Float64(f.Float64Range(60, 3000))
		u.FollowerCount = int64(f.IntRange(20, 3000))
		u.FollowingCount = int64(f.IntRange(20, 800))
		u.Verified = f.Float64Range(0, 1) < 0.02
	case "ring":
		// young, unverified accounts that follow far more than they are followed
		u.AccountAgeDays = dataset.Float64(f.Float64Range(1, 20))
		u.FollowerCount = int64(f.IntRange(0, 5))
		u.FollowingCount = int64(f.IntRange(200, 900))
	case "community":
		u.AccountAgeDays = dataset.Float64(f.Float64Range(200, 2500))
		u.FollowerCount = int64(f.IntRange(100, 2000))
		u.FollowingCount = int64(f.IntRange(100, 800))
	default:
		panic(fmt.Sprintf("unhandled account type: %s", accountType))
	}
	return u
}

func genCatalog(f *gofakeit.Faker, opts *Options) *AccountCatalog {
	cat := &AccountCatalog{}
	idx := 0
	next := func(accountType string) dataset.User {
		u := genAccount(f, idx, accountType)
		idx++
		return u
	}
	for i := 0; i < opts.Celebs; i++ {
		cat.Celebs = append(cat.Celebs, next("celebrity"))
	}
	for i := 0; i < opts.Regulars; i++ {
		cat.Regulars = append(cat.Regulars, next("regular"))
	}
	for r := 0; r < opts.Rings; r++ {
		var ring []dataset.User
		for i := 0; i < opts.RingSize; i++ {
			ring = append(ring, next("ring"))
		}
		cat.Rings = append(cat.Rings, ring)
	}
	for c := 0; c < opts.Communities; c++ {
		var comm []dataset.User
		for i := 0; i < opts.CommunitySize; i++ {
			comm = append(comm, next("community"))
		}
		cat.Communities = append(cat.Communities, comm)
	}
	return cat
}

func ids(users []dataset.User) []string {
	out := make([]string, len(users))
	for i, u := range users {
		out[i] = u.ID
	}
	return out
}
