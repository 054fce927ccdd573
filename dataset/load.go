package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bluesky-social/starling/textsim"

	"github.com/araddon/dateparse"
)

// flexTime accepts RFC 3339 strings, most other common date formats, or unix seconds.
type flexTime struct {
	time.Time
}

func (ft *flexTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] != '"' {
		secs, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			return fmt.Errorf("timestamp: %w", err)
		}
		whole := int64(secs)
		ft.Time = time.Unix(whole, int64((secs-float64(whole))*1e9)).UTC()
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return fmt.Errorf("timestamp %q: %w", s, err)
	}
	ft.Time = t.UTC()
	return nil
}

type rawPost struct {
	ID        string   `json:"id"`
	AuthorID  string   `json:"author_id"`
	Timestamp flexTime `json:"timestamp"`
	Text      string   `json:"text"`
	Hashtags  []string `json:"hashtags"`
	URLs      []string `json:"urls"`
	Mentions  []string `json:"mentions"`
	IsRetweet bool     `json:"is_retweet"`
	ParentID  string   `json:"parent_id"`
	Veracity  *float64 `json:"veracity_score"`
}

type rawEdge struct {
	Source    string   `json:"source"`
	Target    string   `json:"target"`
	Layer     string   `json:"layer"`
	Weight    *float64 `json:"weight"`
	Timestamp flexTime `json:"timestamp"`
}

type rawDataset struct {
	Users []User    `json:"users"`
	Posts []rawPost `json:"posts"`
	Edges []rawEdge `json:"edges"`
}

// ReadDataset parses a JSON snapshot. Hashtags are normalized, posts without a urls field take their links from the text, missing edge weights default to 1, and the result is validated (non-strict) before being returned.
func ReadDataset(r io.Reader) (*Dataset, error) {
	var raw rawDataset
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding dataset: %w", err)
	}

	ds := &Dataset{
		Users: raw.Users,
		Posts: make([]Post, 0, len(raw.Posts)),
		Edges: make([]InteractionEdge, 0, len(raw.Edges)),
	}
	for _, rp := range raw.Posts {
		urls := rp.URLs
		if urls == nil {
			// no url set supplied; fall back to links in the text
			urls = textsim.ExtractTextURLs(rp.Text)
		}
		ds.Posts = append(ds.Posts, Post{
			ID:        rp.ID,
			AuthorID:  rp.AuthorID,
			Timestamp: rp.Timestamp.Time,
			Text:      rp.Text,
			Hashtags:  NormalizeHashtags(rp.Hashtags),
			URLs:      dedupeStrings(urls),
			Mentions:  dedupeStrings(rp.Mentions),
			IsRetweet: rp.IsRetweet,
			ParentID:  rp.ParentID,
			Veracity:  rp.Veracity,
		})
	}
	for _, re := range raw.Edges {
		w := 1.0
		if re.Weight != nil {
			w = *re.Weight
		}
		ds.Edges = append(ds.Edges, InteractionEdge{
			Source:    re.Source,
			Target:    re.Target,
			Layer:     strings.ToLower(re.Layer),
			Weight:    w,
			Timestamp: re.Timestamp.Time,
		})
	}

	if err := Validate(ds, false); err != nil {
		return nil, err
	}
	return ds, nil
}

func LoadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	ds, err := ReadDataset(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// WriteFile serializes the dataset as indented JSON.
func WriteFile(path string, ds *Dataset) error {
	b, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func NormalizeHashtag(raw string) string {
	return strings.ToLower(strings.TrimLeft(strings.TrimSpace(raw), "#"))
}

func NormalizeHashtags(in []string) []string {
	out := make([]string, 0, len(in))
	for _, h := range in {
		if n := NormalizeHashtag(h); n != "" {
			out = append(out, n)
		}
	}
	return dedupeStrings(out)
}

func dedupeStrings(in []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, v := range in {
		if !seen[v] {
			out = append(out, v)
			seen[v] = true
		}
	}
	return out
}
