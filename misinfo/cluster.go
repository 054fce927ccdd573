// Misinformation cluster detection.
//
// Independent indicators each propose risk-scored clusters of accounts (and their posts): low veracity communities, rapidly spreading cascades, coordinated groups pushing low veracity content, structurally anomalous communities, and clusters of bot-like accounts. Overlapping proposals are merged in to a final, ordered list.
package misinfo

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/bluesky-social/starling/config"
	"github.com/bluesky-social/starling/coordination"
	"github.com/bluesky-social/starling/dataset"
	"github.com/bluesky-social/starling/netgraph"
	"github.com/bluesky-social/starling/partition"
	"github.com/bluesky-social/starling/textsim"
)

// Indicator labels.
const (
	LowVeracity        = "low_veracity"
	RapidSpread        = "rapid_spread"
	CoordinatedMisinfo = "coordinated_misinfo"
	StructuralAnomaly  = "structural_anomaly"
	BotCluster         = "bot_cluster"
)

type Cluster struct {
	ID         string   `json:"id"`
	Members    []string `json:"members"`
	Posts      []string `json:"posts"`
	Indicators []string `json:"indicators"`
	// nil when none of the cluster's posts carry a veracity score
	AvgVeracity *float64 `json:"avg_veracity"`
	Risk        float64  `json:"risk_score"`
	Evidence    []string `json:"evidence"`
}

// ClusterID derives a stable identifier from the sorted member list.
func ClusterID(members []string) string {
	return "mc-" + textsim.HashOfString(strings.Join(members, ","))
}

// Input is the read-only snapshot shared by all indicators of one run.
type Input struct {
	Graph      *netgraph.MultiLayerGraph
	Dataset    *dataset.Dataset
	Partitions []*partition.Partition
	Groups     []coordination.Group
	Config     *config.Config
	Logger     *slog.Logger

	once     sync.Once
	combined *netgraph.Layer
	byAuthor map[string][]*dataset.Post
	posts    map[string]*dataset.Post
}

func (in *Input) init() {
	in.once.Do(func() {
		in.byAuthor = in.Dataset.PostsByAuthor()
		in.posts = in.Dataset.PostIndex()
		if in.Graph != nil && len(in.Graph.Layers) > 0 {
			l, err := in.Graph.CombineLayers(nil, netgraph.CombineUnion)
			if err == nil {
				in.combined = l
			}
		}
		if in.combined == nil {
			in.combined = netgraph.NewLayer("combined", false)
		}
	})
}

// Combined is the union of every layer, used for adjacency between accounts.
func (in *Input) Combined() *netgraph.Layer {
	in.init()
	return in.combined
}

// PostsBy returns the account's posts, ordered by time.
func (in *Input) PostsBy(account string) []*dataset.Post {
	in.init()
	return in.byAuthor[account]
}

func (in *Input) Post(id string) (*dataset.Post, bool) {
	in.init()
	p, ok := in.posts[id]
	return p, ok
}

// memberPosts lists post ids authored by any of members, sorted. With knownOnly, only posts carrying a veracity score are included.
func (in *Input) memberPosts(members []string, knownOnly bool) []string {
	var out []string
	for _, m := range members {
		for _, p := range in.PostsBy(m) {
			if knownOnly && p.Veracity == nil {
				continue
			}
			out = append(out, p.ID)
		}
	}
	sort.Strings(out)
	return out
}

// averageVeracity over the known scores of the given posts. ok is false when no post has a score.
func (in *Input) averageVeracity(postIDs []string) (avg float64, n int, ok bool) {
	sum := 0.0
	for _, id := range postIDs {
		p, found := in.Post(id)
		if !found || p.Veracity == nil {
			continue
		}
		sum += *p.Veracity
		n++
	}
	if n == 0 {
		return 0, 0, false
	}
	return sum / float64(n), n, true
}
