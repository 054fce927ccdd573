// Record types for one analysis snapshot: accounts, posts, and typed interaction edges.
//
// Records are loaded once per run and treated as read-only from then on. Validation happens here, at the input boundary; the detectors downstream assume well-formed records.
package dataset

import (
	"sort"
	"time"
)

// Interaction layer names.
const (
	LayerFollow  = "follow"
	LayerRetweet = "retweet"
	LayerMention = "mention"
	LayerReply   = "reply"
	LayerHashtag = "hashtag"
)

// AllLayers lists the recognized layers in canonical order.
var AllLayers = []string{LayerFollow, LayerRetweet, LayerMention, LayerReply, LayerHashtag}

type User struct {
	ID             string  `json:"id"`
	FollowerCount  int64   `json:"follower_count"`
	FollowingCount int64   `json:"following_count"`
	Verified       bool    `json:"verified"`
	// nil means unknown
	AccountAgeDays *float64 `json:"account_age_days,omitempty"`
}

type Post struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
	Hashtags  []string  `json:"hashtags,omitempty"`
	URLs      []string  `json:"urls,omitempty"`
	Mentions  []string  `json:"mentions,omitempty"`
	IsRetweet bool      `json:"is_retweet"`
	ParentID  string    `json:"parent_id,omitempty"`
	// nil means unknown; a known score of zero is a real "false" rating
	Veracity *float64 `json:"veracity_score,omitempty"`
}

type InteractionEdge struct {
	Source    string    `json:"source"`
	Target    string    `json:"target"`
	Layer     string    `json:"layer"`
	Weight    float64   `json:"weight"`
	Timestamp time.Time `json:"timestamp"`
}

// Dataset is a single immutable snapshot handed to the detectors.
type Dataset struct {
	Users []User            `json:"users"`
	Posts []Post            `json:"posts"`
	Edges []InteractionEdge `json:"edges"`
}

func (ds *Dataset) UserIndex() map[string]*User {
	idx := make(map[string]*User, len(ds.Users))
	for i := range ds.Users {
		idx[ds.Users[i].ID] = &ds.Users[i]
	}
	return idx
}

func (ds *Dataset) PostIndex() map[string]*Post {
	idx := make(map[string]*Post, len(ds.Posts))
	for i := range ds.Posts {
		idx[ds.Posts[i].ID] = &ds.Posts[i]
	}
	return idx
}

// PostsByAuthor groups posts by author id. Each slice is ordered by timestamp, then post id.
func (ds *Dataset) PostsByAuthor() map[string][]*Post {
	out := make(map[string][]*Post)
	for i := range ds.Posts {
		p := &ds.Posts[i]
		out[p.AuthorID] = append(out[p.AuthorID], p)
	}
	for _, posts := range out {
		SortPosts(posts)
	}
	return out
}

// IsEmpty is true when there is no activity to analyze: no posts and no timestamped interaction edges. Untimed edges (eg, follows) describe standing relationships, not activity, so they alone do not make a snapshot worth analyzing.
func (ds *Dataset) IsEmpty() bool {
	if len(ds.Posts) > 0 {
		return false
	}
	for _, e := range ds.Edges {
		if !e.Timestamp.IsZero() {
			return false
		}
	}
	return true
}

// TimeRange returns the earliest and latest timestamps across posts and edges.
func (ds *Dataset) TimeRange() (time.Time, time.Time) {
	var start, end time.Time
	observe := func(t time.Time) {
		if t.IsZero() {
			return
		}
		if start.IsZero() || t.Before(start) {
			start = t
		}
		if end.IsZero() || t.After(end) {
			end = t
		}
	}
	for _, p := range ds.Posts {
		observe(p.Timestamp)
	}
	for _, e := range ds.Edges {
		observe(e.Timestamp)
	}
	return start, end
}

// Window returns a new Dataset restricted to posts and edges with timestamps in [start, end). A zero bound is open. All users are kept, since edges may reference accounts which did not post inside the window.
func (ds *Dataset) Window(start, end time.Time) *Dataset {
	in := func(t time.Time) bool {
		if !start.IsZero() && t.Before(start) {
			return false
		}
		if !end.IsZero() && !t.Before(end) {
			return false
		}
		return true
	}
	out := &Dataset{
		Users: append([]User(nil), ds.Users...),
	}
	for _, p := range ds.Posts {
		if in(p.Timestamp) {
			out.Posts = append(out.Posts, p)
		}
	}
	for _, e := range ds.Edges {
		// edges without a timestamp (eg, follows) are not time-scoped
		if e.Timestamp.IsZero() || in(e.Timestamp) {
			out.Edges = append(out.Edges, e)
		}
	}
	return out
}

// SortPosts orders posts by timestamp, breaking ties on post id.
func SortPosts(posts []*Post) {
	sort.Slice(posts, func(i, j int) bool {
		if posts[i].Timestamp.Equal(posts[j].Timestamp) {
			return posts[i].ID < posts[j].ID
		}
		return posts[i].Timestamp.Before(posts[j].Timestamp)
	})
}

// Float64 is a helper for building optional veracity scores.
func Float64(v float64) *float64 {
	return &v
}
