package dataset

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/spaolacci/murmur3"
)

// DeriveEdges infers retweet, reply, and mention interactions from post records.
//
// A retweet or reply produces an edge from the resharing author to the parent post's author. Parents outside the snapshot are skipped. A mention produces an edge from the post author to each mentioned account. Self-interactions are dropped.
func DeriveEdges(posts []Post) []InteractionEdge {
	byID := make(map[string]*Post, len(posts))
	for i := range posts {
		byID[posts[i].ID] = &posts[i]
	}
	var out []InteractionEdge
	for _, p := range posts {
		if p.ParentID != "" {
			if parent, ok := byID[p.ParentID]; ok && parent.AuthorID != p.AuthorID {
				layer := LayerReply
				if p.IsRetweet {
					layer = LayerRetweet
				}
				out = append(out, InteractionEdge{
					Source:    p.AuthorID,
					Target:    parent.AuthorID,
					Layer:     layer,
					Weight:    1,
					Timestamp: p.Timestamp,
				})
			}
		}
		for _, m := range p.Mentions {
			if m == "" || m == p.AuthorID {
				continue
			}
			out = append(out, InteractionEdge{
				Source:    p.AuthorID,
				Target:    m,
				Layer:     LayerMention,
				Weight:    1,
				Timestamp: p.Timestamp,
			})
		}
	}
	return out
}

// RootPostID follows parent links up to the first post whose parent is absent from the index. Cycles terminate at the post where the cycle is detected.
func RootPostID(idx map[string]*Post, id string) string {
	seen := map[string]bool{}
	cur := id
	for {
		if seen[cur] {
			return cur
		}
		seen[cur] = true
		p, ok := idx[cur]
		if !ok || p.ParentID == "" {
			return cur
		}
		if _, ok := idx[p.ParentID]; !ok {
			return cur
		}
		cur = p.ParentID
	}
}

// Fingerprint returns a stable hash of the dataset contents, independent of record order. It is used as a cache key for analysis results.
func Fingerprint(ds *Dataset) string {
	lines := make([]string, 0, len(ds.Users)+len(ds.Posts)+len(ds.Edges))
	for _, u := range ds.Users {
		age := "-"
		if u.AccountAgeDays != nil {
			age = fmt.Sprintf("%g", *u.AccountAgeDays)
		}
		lines = append(lines, fmt.Sprintf("u|%s|%d|%d|%t|%s", u.ID, u.FollowerCount, u.FollowingCount, u.Verified, age))
	}
	for _, p := range ds.Posts {
		v := "-"
		if p.Veracity != nil {
			v = fmt.Sprintf("%g", *p.Veracity)
		}
		lines = append(lines, fmt.Sprintf("p|%s|%s|%d|%t|%s|%s|%q|%q|%q|%q",
			p.ID, p.AuthorID, p.Timestamp.UnixNano(), p.IsRetweet, p.ParentID, v, p.Text, p.Hashtags, p.URLs, p.Mentions))
	}
	for _, e := range ds.Edges {
		lines = append(lines, fmt.Sprintf("e|%s|%s|%s|%g|%d", e.Layer, e.Source, e.Target, e.Weight, e.Timestamp.UnixNano()))
	}
	sort.Strings(lines)

	h := murmur3.New128()
	var sep [8]byte
	binary.BigEndian.PutUint64(sep[:], math.MaxUint64)
	for _, l := range lines {
		h.Write([]byte(l))
		h.Write(sep[:])
	}
	hi, lo := h.Sum128()
	return fmt.Sprintf("%016x%016x", hi, lo)
}
