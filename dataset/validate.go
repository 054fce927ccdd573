package dataset

import (
	"fmt"
	"math"
)

// ValidationError describes a malformed or out-of-range input record. It aborts the run.
type ValidationError struct {
	Kind   string // "user", "post", "edge"
	ID     string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("invalid %s record: %s: %s", e.Kind, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s record %q: %s: %s", e.Kind, e.ID, e.Field, e.Reason)
}

func IsKnownLayer(name string) bool {
	for _, l := range AllLayers {
		if l == name {
			return true
		}
	}
	return false
}

// Validate checks every record in the dataset, returning the first *ValidationError found.
//
// With strict set, posts and edges must reference users present in the dataset; otherwise dangling references are tolerated and the graph builder creates the missing nodes.
func Validate(ds *Dataset, strict bool) error {
	users := make(map[string]bool, len(ds.Users))
	for _, u := range ds.Users {
		if u.ID == "" {
			return &ValidationError{Kind: "user", Field: "id", Reason: "empty"}
		}
		if users[u.ID] {
			return &ValidationError{Kind: "user", ID: u.ID, Field: "id", Reason: "duplicate"}
		}
		users[u.ID] = true
		if u.FollowerCount < 0 {
			return &ValidationError{Kind: "user", ID: u.ID, Field: "follower_count", Reason: "negative"}
		}
		if u.FollowingCount < 0 {
			return &ValidationError{Kind: "user", ID: u.ID, Field: "following_count", Reason: "negative"}
		}
		if a := u.AccountAgeDays; a != nil && (*a < 0 || math.IsNaN(*a)) {
			return &ValidationError{Kind: "user", ID: u.ID, Field: "account_age_days", Reason: "must be a non-negative number"}
		}
	}

	posts := make(map[string]bool, len(ds.Posts))
	for _, p := range ds.Posts {
		if p.ID == "" {
			return &ValidationError{Kind: "post", Field: "id", Reason: "empty"}
		}
		if posts[p.ID] {
			return &ValidationError{Kind: "post", ID: p.ID, Field: "id", Reason: "duplicate"}
		}
		posts[p.ID] = true
		if p.AuthorID == "" {
			return &ValidationError{Kind: "post", ID: p.ID, Field: "author_id", Reason: "empty"}
		}
		if strict && !users[p.AuthorID] {
			return &ValidationError{Kind: "post", ID: p.ID, Field: "author_id", Reason: fmt.Sprintf("unknown user %q", p.AuthorID)}
		}
		if p.Timestamp.IsZero() {
			return &ValidationError{Kind: "post", ID: p.ID, Field: "timestamp", Reason: "missing"}
		}
		if p.Veracity != nil {
			v := *p.Veracity
			if math.IsNaN(v) || v < 0 || v > 1 {
				return &ValidationError{Kind: "post", ID: p.ID, Field: "veracity_score", Reason: fmt.Sprintf("%v outside [0,1]", v)}
			}
		}
		if p.ParentID == p.ID {
			return &ValidationError{Kind: "post", ID: p.ID, Field: "parent_id", Reason: "post is its own parent"}
		}
	}

	for i, e := range ds.Edges {
		id := fmt.Sprintf("#%d", i)
		if e.Source == "" || e.Target == "" {
			return &ValidationError{Kind: "edge", ID: id, Field: "source/target", Reason: "empty"}
		}
		if !IsKnownLayer(e.Layer) {
			return &ValidationError{Kind: "edge", ID: id, Field: "layer", Reason: fmt.Sprintf("unknown layer %q", e.Layer)}
		}
		if e.Weight < 1 || math.IsNaN(e.Weight) || math.IsInf(e.Weight, 0) {
			return &ValidationError{Kind: "edge", ID: id, Field: "weight", Reason: fmt.Sprintf("%v is less than 1", e.Weight)}
		}
		if strict {
			if !users[e.Source] {
				return &ValidationError{Kind: "edge", ID: id, Field: "source", Reason: fmt.Sprintf("unknown user %q", e.Source)}
			}
			if !users[e.Target] {
				return &ValidationError{Kind: "edge", ID: id, Field: "target", Reason: fmt.Sprintf("unknown user %q", e.Target)}
			}
		}
	}
	return nil
}
