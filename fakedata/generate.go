package fakedata

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bluesky-social/starling/dataset"

	"github.com/brianvoe/gofakeit/v6"
)

type Options struct {
	// same seed and options always produce the same dataset
	Seed int64

	Celebs   int
	Regulars int
	// create up to this many posts for each background account; celebs do 2x
	MaxPosts int
	// create up to this many follows for each regular account
	MaxFollows int
	// fraction of background posts which mention another account
	FracMention float64
	// fraction of background posts which carry a topical hashtag
	FracHashtag float64
	// create up to this many retweets and replies for each background account
	MaxReshares int

	Rings         int
	RingSize      int
	CampaignPosts int

	Communities   int
	CommunitySize int

	Start time.Time
	Span  time.Duration
}

func DefaultOptions() Options {
	return Options{
		Seed:          1,
		Celebs:        5,
		Regulars:      100,
		MaxPosts:      10,
		MaxFollows:    20,
		FracMention:   0.2,
		FracHashtag:   0.3,
		MaxReshares:   3,
		Rings:         2,
		RingSize:      5,
		CampaignPosts: 4,
		Communities:   1,
		CommunitySize: 6,
		Start:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Span:          48 * time.Hour,
	}
}

// Generated is a synthetic dataset together with the structure planted in it.
type Generated struct {
	Dataset *dataset.Dataset
	Catalog *AccountCatalog
	Planted []Planted
}

type generator struct {
	f    *gofakeit.Faker
	opts *Options
	ds   *dataset.Dataset

	nextPost int
	follows  map[[2]string]bool
}

func (g *generator) postID() string {
	id := fmt.Sprintf("post-%06d", g.nextPost)
	g.nextPost++
	return id
}

func (g *generator) randomTime() time.Time {
	secs := int(g.opts.Span / time.Second)
	if secs <= 0 {
		return g.opts.Start
	}
	return g.opts.Start.Add(time.Duration(g.f.IntRange(0, secs-1)) * time.Second)
}

func (g *generator) follow(src, dst string) {
	if src == dst || g.follows[[2]string{src, dst}] {
		return
	}
	g.follows[[2]string{src, dst}] = true
	g.ds.Edges = append(g.ds.Edges, dataset.InteractionEdge{
		Source: src,
		Target: dst,
		Layer:  dataset.LayerFollow,
		Weight: 1,
	})
}

func (g *generator) text(words int) string {
	text := g.f.Sentence(words)
	if len(text) > 280 {
		text = text[:280]
	}
	return text
}

// Generate builds a synthetic snapshot. An unset window or planted group size takes its default; population sizes are used as given.
func Generate(opts Options) *Generated {
	opts = withDefaults(opts)
	g := &generator{
		f:       gofakeit.New(opts.Seed),
		opts:    &opts,
		ds:      &dataset.Dataset{},
		follows: map[[2]string]bool{},
	}

	cat := genCatalog(g.f, &opts)
	g.ds.Users = cat.Combined()

	g.genBackground(cat)
	var planted []Planted
	for i, ring := range cat.Rings {
		g.genRing(i, ring)
		planted = append(planted, Planted{Kind: KindCoordinatedRing, Members: sortedIDs(ring)})
	}
	for _, comm := range cat.Communities {
		g.genCommunity(comm)
		planted = append(planted, Planted{Kind: KindLowVeracityCommunity, Members: sortedIDs(comm)})
	}

	sort.SliceStable(g.ds.Posts, func(i, j int) bool {
		a, b := g.ds.Posts[i], g.ds.Posts[j]
		if a.Timestamp.Equal(b.Timestamp) {
			return a.ID < b.ID
		}
		return a.Timestamp.Before(b.Timestamp)
	})
	return &Generated{Dataset: g.ds, Catalog: cat, Planted: planted}
}

func withDefaults(opts Options) Options {
	def := DefaultOptions()
	if opts.Start.IsZero() {
		opts.Start = def.Start
	}
	if opts.Span <= 0 {
		opts.Span = def.Span
	}
	if opts.CampaignPosts <= 0 {
		opts.CampaignPosts = def.CampaignPosts
	}
	if opts.RingSize <= 1 {
		opts.RingSize = def.RingSize
	}
	if opts.CommunitySize <= 1 {
		opts.CommunitySize = def.CommunitySize
	}
	return opts
}

func sortedIDs(users []dataset.User) []string {
	out := ids(users)
	sort.Strings(out)
	return out
}

// genBackground creates the organic population: follows, original posts, and reshares. Background accounts never interact with planted accounts.
func (g *generator) genBackground(cat *AccountCatalog) {
	bg := cat.Background()
	if len(bg) < 2 {
		return
	}
	tags := make([]string, 25)
	for i := range tags {
		tags[i] = fmt.Sprintf("%s%d", strings.ToLower(g.f.Noun()), i)
	}

	for _, u := range cat.Regulars {
		n := g.f.IntRange(1, max(1, g.opts.MaxFollows))
		for i := 0; i < n; i++ {
			g.follow(u.ID, bg[g.f.IntRange(0, len(bg)-1)].ID)
		}
		// everybody follows a celeb or two
		if len(cat.Celebs) > 0 {
			g.follow(u.ID, cat.Celebs[g.f.IntRange(0, len(cat.Celebs)-1)].ID)
		}
	}

	var originals []int
	for i, u := range bg {
		count := 0
		if g.opts.MaxPosts > 0 {
			count = g.f.IntRange(0, g.opts.MaxPosts)
		}
		// celebrities make 2x the posts
		if i < len(cat.Celebs) {
			count *= 2
		}
		for n := 0; n < count; n++ {
			p := dataset.Post{
				ID:        g.postID(),
				AuthorID:  u.ID,
				Timestamp: g.randomTime(),
				Text:      g.text(12),
			}
			if g.f.Float64Range(0, 1) < g.opts.FracHashtag {
				p.Hashtags = []string{tags[g.f.IntRange(0, len(tags)-1)]}
			}
			if g.f.Float64Range(0, 1) < 0.1 {
				p.URLs = []string{g.f.URL()}
			}
			if g.f.Float64Range(0, 1) < g.opts.FracMention {
				tgt := bg[g.f.IntRange(0, len(bg)-1)]
				if tgt.ID != u.ID {
					p.Mentions = []string{tgt.ID}
					p.Text = "@" + tgt.ID + " " + p.Text
				}
			}
			if g.f.Float64Range(0, 1) < 0.4 {
				p.Veracity = dataset.Float64(g.f.Float64Range(0.55, 1))
			}
			originals = append(originals, len(g.ds.Posts))
			g.ds.Posts = append(g.ds.Posts, p)
		}
	}
	if len(originals) == 0 || g.opts.MaxReshares <= 0 {
		return
	}

	for _, u := range bg {
		count := g.f.IntRange(0, g.opts.MaxReshares)
		for n := 0; n < count; n++ {
			parent := g.ds.Posts[originals[g.f.IntRange(0, len(originals)-1)]]
			if parent.AuthorID == u.ID {
				continue
			}
			delay := time.Duration(g.f.IntRange(60, 6*3600)) * time.Second
			p := dataset.Post{
				ID:        g.postID(),
				AuthorID:  u.ID,
				Timestamp: parent.Timestamp.Add(delay),
				ParentID:  parent.ID,
			}
			if g.f.Bool() {
				p.IsRetweet = true
				p.Text = parent.Text
				p.Hashtags = parent.Hashtags
				p.URLs = parent.URLs
				p.Veracity = parent.Veracity
			} else {
				p.Text = g.text(8)
			}
			g.ds.Posts = append(g.ds.Posts, p)
		}
	}
}

// genRing plants a coordinated ring: members follow each other and post identical campaign messages within seconds, with shared hashtags and a shared link.
func (g *generator) genRing(idx int, ring []dataset.User) {
	for _, a := range ring {
		for _, b := range ring {
			g.follow(a.ID, b.ID)
		}
	}
	tags := []string{
		fmt.Sprintf("%sgate%d", strings.ToLower(g.f.Noun()), idx),
		fmt.Sprintf("wakeup%d", idx),
	}
	link := fmt.Sprintf("https://%s/campaign/%d", g.f.DomainName(), idx)
	for c := 0; c < g.opts.CampaignPosts; c++ {
		base := g.randomTime()
		text := g.text(14)
		for _, u := range ring {
			g.ds.Posts = append(g.ds.Posts, dataset.Post{
				ID:        g.postID(),
				AuthorID:  u.ID,
				Timestamp: base.Add(time.Duration(g.f.IntRange(0, 30)) * time.Second),
				Text:      text,
				Hashtags:  tags,
				URLs:      []string{link},
				Veracity:  dataset.Float64(g.f.Float64Range(0.05, 0.2)),
			})
		}
	}
}

// genCommunity plants a tight-knit community which repeatedly shares low-veracity content, without any coordinated timing.
func (g *generator) genCommunity(comm []dataset.User) {
	for _, a := range comm {
		for _, b := range comm {
			g.follow(a.ID, b.ID)
		}
	}
	for _, u := range comm {
		count := g.f.IntRange(3, 6)
		for n := 0; n < count; n++ {
			g.ds.Posts = append(g.ds.Posts, dataset.Post{
				ID:        g.postID(),
				AuthorID:  u.ID,
				Timestamp: g.randomTime(),
				Text:      g.text(12),
				Veracity:  dataset.Float64(g.f.Float64Range(0.05, 0.25)),
			})
		}
	}
}
