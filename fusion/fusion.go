// Set and score helpers shared by the coordination and misinformation detectors: member-set union and overlap, disjoint-set grouping, and score normalization.
package fusion

import (
	"math"
	"sort"
)

// Clamp01 forces a score in to [0,1]. NaN becomes 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// RoundScore clamps and rounds a score to 4 decimal places, so that repeated runs report identical values.
func RoundScore(v float64) float64 {
	return math.Round(Clamp01(v)*1e4) / 1e4
}

// SortedUnion returns the sorted, de-duplicated union of the given id sets.
func SortedUnion(sets ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range sets {
		for _, v := range s {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Intersect returns the sorted ids present in both a and b.
func Intersect(a, b []string) []string {
	in := make(map[string]bool, len(a))
	for _, v := range a {
		in[v] = true
	}
	var out []string
	seen := make(map[string]bool)
	for _, v := range b {
		if in[v] && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

// OverlapFraction is |a ∩ b| divided by the size of the smaller set. Two clusters overlap fully when one contains the other.
func OverlapFraction(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := len(Intersect(a, b))
	smaller := len(SortedUnion(a))
	if n := len(SortedUnion(b)); n < smaller {
		smaller = n
	}
	return float64(shared) / float64(smaller)
}

// Jaccard similarity of two sets. Two empty sets have similarity 0: absence of evidence is not agreement.
func Jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for k := range a {
		if b[k] {
			shared++
		}
	}
	return float64(shared) / float64(len(a)+len(b)-shared)
}

// MergeOverlapping repeatedly merges any two items whose member sets overlap by at least threshold (see OverlapFraction), until no pair qualifies.
//
// Items are visited in the order given and merged results replace the earlier item, so the outcome is deterministic for a deterministic input order.
func MergeOverlapping[T any](items []T, members func(T) []string, threshold float64, merge func(a, b T) T) []T {
	out := append([]T(nil), items...)
	for {
		merged := false
		for i := 0; i < len(out) && !merged; i++ {
			for j := i + 1; j < len(out); j++ {
				if OverlapFraction(members(out[i]), members(out[j])) >= threshold {
					out[i] = merge(out[i], out[j])
					out = append(out[:j], out[j+1:]...)
					merged = true
					break
				}
			}
		}
		if !merged {
			return out
		}
	}
}
