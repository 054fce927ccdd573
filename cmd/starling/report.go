package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/bluesky-social/starling/netgraph"
	"github.com/bluesky-social/starling/partition"
	"github.com/bluesky-social/starling/pipeline"

	"github.com/xlab/treeprint"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func addLayerStats(tree treeprint.Tree, stats []netgraph.Stats) {
	for _, s := range stats {
		kind := "directed"
		if !s.Directed {
			kind = "undirected"
		}
		tree.AddMetaNode(s.Name, fmt.Sprintf("%s nodes=%d edges=%d density=%.4f avg_degree=%.2f max_degree=%d components=%d",
			kind, s.Nodes, s.Edges, s.Density, s.AvgDegree, s.MaxDegree, s.Components))
	}
}

// memberList abbreviates long member lists.
func memberList(members []string, limit int) string {
	if len(members) <= limit {
		return strings.Join(members, " ")
	}
	return strings.Join(members[:limit], " ") + fmt.Sprintf(" …(+%d)", len(members)-limit)
}

func renderResult(w io.Writer, res *pipeline.Result, verbose bool) {
	md := res.Metadata
	tree := treeprint.NewWithRoot(fmt.Sprintf("run %s", md.RunID))
	if md.Empty {
		tree.AddNode("empty input: nothing to analyze")
		fmt.Fprintln(w, tree.String())
		return
	}
	info := tree.AddBranch("input")
	info.AddMetaNode("users", md.Users)
	info.AddMetaNode("posts", md.Posts)
	info.AddMetaNode("edges", md.Edges)
	info.AddMetaNode("dataset", md.DatasetFingerprint)
	if md.Cached {
		info.AddNode("(cached result)")
	}

	addLayerStats(tree.AddBranch("layers"), res.Layers)

	limit := 8
	if verbose {
		limit = 1 << 20
	}
	groups := tree.AddBranch(fmt.Sprintf("coordinated groups (%d)", len(res.Groups)))
	for _, g := range res.Groups {
		br := groups.AddMetaBranch(g.ID, fmt.Sprintf("confidence=%.4f size=%d signals=%s", g.Confidence, g.Size(), strings.Join(g.Signals, ",")))
		br.AddMetaNode("members", memberList(g.Members, limit))
		if !g.Start.IsZero() {
			br.AddMetaNode("window", fmt.Sprintf("%s to %s", g.Start.Format("2006-01-02T15:04:05Z"), g.End.Format("2006-01-02T15:04:05Z")))
		}
	}

	clusters := tree.AddBranch(fmt.Sprintf("misinformation clusters (%d)", len(res.Clusters)))
	for _, c := range res.Clusters {
		veracity := "unknown"
		if c.AvgVeracity != nil {
			veracity = fmt.Sprintf("%.4f", *c.AvgVeracity)
		}
		br := clusters.AddMetaBranch(c.ID, fmt.Sprintf("risk=%.4f veracity=%s indicators=%s", c.Risk, veracity, strings.Join(c.Indicators, ",")))
		br.AddMetaNode("members", memberList(c.Members, limit))
		if verbose {
			for _, ev := range c.Evidence {
				br.AddNode(ev)
			}
		}
	}

	if len(md.Warnings) > 0 {
		warns := tree.AddBranch(fmt.Sprintf("warnings (%d)", len(md.Warnings)))
		for _, wn := range md.Warnings {
			warns.AddNode(wn.String())
		}
	}
	fmt.Fprintln(w, tree.String())
}

func renderPartition(w io.Writer, p *partition.Partition, minSize int) {
	comms := p.Communities()
	tree := treeprint.NewWithRoot(fmt.Sprintf("%s (%d communities, resolution %g)", p.Key(), len(comms), p.Resolution))
	for i, c := range comms {
		if len(c) < minSize {
			continue
		}
		tree.AddMetaNode(fmt.Sprintf("%d: %d members", i, len(c)), memberList(c, 12))
	}
	fmt.Fprintln(w, tree.String())
}
