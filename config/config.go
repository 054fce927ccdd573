// Detection thresholds and weights for an analysis run.
//
// A Config is loaded and validated once, then shared read-only by any number of concurrent runs.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spaolacci/murmur3"
	"gopkg.in/yaml.v3"
)

// Coordination signal types.
const (
	SignalTemporal   = "temporal"
	SignalContent    = "content"
	SignalHashtag    = "hashtag"
	SignalURL        = "url"
	SignalStructural = "structural"
)

var SignalTypes = []string{SignalTemporal, SignalContent, SignalHashtag, SignalURL, SignalStructural}

// Cluster merge score policies.
const (
	MergeMax             = "max"
	MergeWeightedAverage = "weighted_average"
)

type LayerConfig struct {
	Enabled         bool    `yaml:"enabled"`
	WeightThreshold float64 `yaml:"weight_threshold"`
	Directed        bool    `yaml:"directed"`
}

type Config struct {
	// coordination signals
	TemporalWindowSeconds      float64 `yaml:"temporal_window_seconds"`
	ContentSimilarityThreshold float64 `yaml:"content_similarity_threshold"`
	HashtagJaccardThreshold    float64 `yaml:"hashtag_jaccard_threshold"`
	URLTimeDeltaSeconds        float64 `yaml:"url_time_delta_seconds"`

	StructuralLayers           []string `yaml:"structural_layers"`
	StructuralMinHubDegree     int      `yaml:"structural_min_hub_degree"`
	StructuralHubRatio         float64  `yaml:"structural_hub_ratio"`
	StructuralDegreeSaturation float64  `yaml:"structural_degree_saturation"`

	// fusion and group extraction
	SignalWeights      map[string]float64 `yaml:"signal_weights"`
	SignalThresholds   map[string]float64 `yaml:"signal_thresholds"`
	MinGroupSize       int                `yaml:"min_group_size"`
	MaxGroupSize       int                `yaml:"max_group_size"`
	MinGroupConfidence float64            `yaml:"min_group_confidence"`
	RepartitionStep    float64            `yaml:"repartition_step"`

	// misinformation indicators
	VeracityThreshold      float64 `yaml:"veracity_threshold"`
	VelocityThreshold      float64 `yaml:"velocity_threshold"`
	MinClusterSize         int     `yaml:"min_cluster_size"`
	MinCascadeSize         int     `yaml:"min_cascade_size"`
	AnomalyZScoreThreshold float64 `yaml:"anomaly_zscore_threshold"`

	BotPostsPerDay       float64 `yaml:"bot_posts_per_day"`
	BotMaxAccountAgeDays float64 `yaml:"bot_max_account_age_days"`
	BotMinFollowerRatio  float64 `yaml:"bot_min_follower_ratio"`
	BotDuplicationRate   float64 `yaml:"bot_duplication_rate"`
	BotMinIndicators     int     `yaml:"bot_min_indicators"`

	ClusterMergeOverlapThreshold float64 `yaml:"cluster_merge_overlap_threshold"`
	MergePolicy                  string  `yaml:"merge_policy"`

	// graph construction
	Layers                map[string]LayerConfig `yaml:"layers"`
	HashtagLayerMinWeight float64                `yaml:"hashtag_layer_min_weight"`
	StrictEdges           bool                   `yaml:"strict_edges"`

	// parallelism for batched pairwise work; zero means GOMAXPROCS
	Workers int `yaml:"workers"`
}

func DefaultConfig() *Config {
	return &Config{
		TemporalWindowSeconds:      60,
		ContentSimilarityThreshold: 0.9,
		HashtagJaccardThreshold:    0.7,
		URLTimeDeltaSeconds:        300,

		StructuralLayers:           []string{"retweet", "mention"},
		StructuralMinHubDegree:     5,
		StructuralHubRatio:         4,
		StructuralDegreeSaturation: 20,

		SignalWeights: map[string]float64{
			SignalTemporal:   0.6,
			SignalContent:    1.0,
			SignalHashtag:    0.5,
			SignalURL:        0.8,
			SignalStructural: 0.7,
		},
		// content and hashtag follow their extractor thresholds unless set here
		SignalThresholds: map[string]float64{
			SignalTemporal:   0.3,
			SignalURL:        0.2,
			SignalStructural: 0.2,
		},
		MinGroupSize:       2,
		MaxGroupSize:       200,
		MinGroupConfidence: 0.5,
		RepartitionStep:    0.1,

		VeracityThreshold:      0.3,
		VelocityThreshold:      1.0,
		MinClusterSize:         3,
		MinCascadeSize:         3,
		AnomalyZScoreThreshold: 2.0,

		BotPostsPerDay:       50,
		BotMaxAccountAgeDays: 30,
		BotMinFollowerRatio:  0.1,
		BotDuplicationRate:   0.5,
		BotMinIndicators:     2,

		ClusterMergeOverlapThreshold: 0.5,
		MergePolicy:                  MergeMax,

		Layers: map[string]LayerConfig{
			"follow":  {Enabled: true, WeightThreshold: 1, Directed: true},
			"retweet": {Enabled: true, WeightThreshold: 1, Directed: true},
			"mention": {Enabled: true, WeightThreshold: 1, Directed: true},
			"reply":   {Enabled: true, WeightThreshold: 1, Directed: true},
			"hashtag": {Enabled: true, WeightThreshold: 1, Directed: false},
		},
		HashtagLayerMinWeight: 2,
	}
}

// SignalThreshold is the minimum strength a signal of type typ needs to count toward fusion. An explicit signal_thresholds entry wins; otherwise content and hashtag signals use content_similarity_threshold and hashtag_jaccard_threshold, and other types have no floor.
func (c *Config) SignalThreshold(typ string) float64 {
	if v, ok := c.SignalThresholds[typ]; ok {
		return v
	}
	switch typ {
	case SignalContent:
		return c.ContentSimilarityThreshold
	case SignalHashtag:
		return c.HashtagJaccardThreshold
	}
	return 0
}

// MaxSignalWeight is the largest configured per-signal weight, used to normalize fused edge weights in to [0,1].
func (c *Config) MaxSignalWeight() float64 {
	max := 0.0
	for _, w := range c.SignalWeights {
		if w > max {
			max = w
		}
	}
	return max
}

// EnabledLayers returns the names of enabled layers, sorted.
func (c *Config) EnabledLayers() []string {
	var out []string
	for name, lc := range c.Layers {
		if lc.Enabled {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Clone returns a deep copy, so callers can derive a variant without mutating a shared config.
func (c *Config) Clone() *Config {
	out := *c
	out.StructuralLayers = append([]string(nil), c.StructuralLayers...)
	out.SignalWeights = make(map[string]float64, len(c.SignalWeights))
	for k, v := range c.SignalWeights {
		out.SignalWeights[k] = v
	}
	out.SignalThresholds = make(map[string]float64, len(c.SignalThresholds))
	for k, v := range c.SignalThresholds {
		out.SignalThresholds[k] = v
	}
	out.Layers = make(map[string]LayerConfig, len(c.Layers))
	for k, v := range c.Layers {
		out.Layers[k] = v
	}
	return &out
}

// Parse decodes YAML on top of DefaultConfig and validates the result. Unknown keys are rejected.
func Parse(b []byte) (*Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, &ConfigurationError{Key: "(file)", Reason: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(b)
}

// Fingerprint is a stable hash of the effective configuration, combined with a dataset fingerprint to key cached results.
func (c *Config) Fingerprint() string {
	// yaml.v3 emits map keys in sorted order, so the encoding is canonical
	b, err := yaml.Marshal(c)
	if err != nil {
		return ""
	}
	hi, lo := murmur3.Sum128(b)
	return fmt.Sprintf("%016x%016x", hi, lo)
}
