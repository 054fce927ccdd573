package config

import (
	"fmt"
	"math"
)

// ConfigurationError is returned for a threshold or option outside its valid domain. It is raised before any computation starts.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Key, e.Reason)
}

func unitInterval(key string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return &ConfigurationError{Key: key, Reason: fmt.Sprintf("%v outside [0,1]", v)}
	}
	return nil
}

func positive(key string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return &ConfigurationError{Key: key, Reason: fmt.Sprintf("%v must be positive", v)}
	}
	return nil
}

func nonNegative(key string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return &ConfigurationError{Key: key, Reason: fmt.Sprintf("%v must not be negative", v)}
	}
	return nil
}

// Validate checks every option, returning the first *ConfigurationError.
func (c *Config) Validate() error {
	checks := []error{
		positive("temporal_window_seconds", c.TemporalWindowSeconds),
		unitInterval("content_similarity_threshold", c.ContentSimilarityThreshold),
		unitInterval("hashtag_jaccard_threshold", c.HashtagJaccardThreshold),
		positive("url_time_delta_seconds", c.URLTimeDeltaSeconds),
		positive("structural_hub_ratio", c.StructuralHubRatio),
		positive("structural_degree_saturation", c.StructuralDegreeSaturation),
		unitInterval("min_group_confidence", c.MinGroupConfidence),
		unitInterval("veracity_threshold", c.VeracityThreshold),
		positive("velocity_threshold", c.VelocityThreshold),
		positive("anomaly_zscore_threshold", c.AnomalyZScoreThreshold),
		positive("bot_posts_per_day", c.BotPostsPerDay),
		nonNegative("bot_max_account_age_days", c.BotMaxAccountAgeDays),
		nonNegative("bot_min_follower_ratio", c.BotMinFollowerRatio),
		unitInterval("bot_duplication_rate", c.BotDuplicationRate),
		unitInterval("cluster_merge_overlap_threshold", c.ClusterMergeOverlapThreshold),
		nonNegative("hashtag_layer_min_weight", c.HashtagLayerMinWeight),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	if c.RepartitionStep <= 0 || c.RepartitionStep > 1 {
		return &ConfigurationError{Key: "repartition_step", Reason: fmt.Sprintf("%v outside (0,1]", c.RepartitionStep)}
	}
	if c.ClusterMergeOverlapThreshold == 0 {
		return &ConfigurationError{Key: "cluster_merge_overlap_threshold", Reason: "must be greater than zero"}
	}

	if c.MinGroupSize < 2 {
		return &ConfigurationError{Key: "min_group_size", Reason: fmt.Sprintf("%d is less than 2", c.MinGroupSize)}
	}
	if c.MaxGroupSize < c.MinGroupSize {
		return &ConfigurationError{Key: "max_group_size", Reason: fmt.Sprintf("%d is less than min_group_size (%d)", c.MaxGroupSize, c.MinGroupSize)}
	}
	if c.MinClusterSize < 1 {
		return &ConfigurationError{Key: "min_cluster_size", Reason: "must be at least 1"}
	}
	if c.MinCascadeSize < 1 {
		return &ConfigurationError{Key: "min_cascade_size", Reason: "must be at least 1"}
	}
	if c.StructuralMinHubDegree < 2 {
		return &ConfigurationError{Key: "structural_min_hub_degree", Reason: "must be at least 2"}
	}
	if c.BotMinIndicators < 1 || c.BotMinIndicators > 4 {
		return &ConfigurationError{Key: "bot_min_indicators", Reason: fmt.Sprintf("%d outside [1,4]", c.BotMinIndicators)}
	}
	if c.Workers < 0 {
		return &ConfigurationError{Key: "workers", Reason: "must not be negative"}
	}

	switch c.MergePolicy {
	case MergeMax, MergeWeightedAverage:
	default:
		return &ConfigurationError{Key: "merge_policy", Reason: fmt.Sprintf("unknown policy %q", c.MergePolicy)}
	}

	for _, st := range SignalTypes {
		w, ok := c.SignalWeights[st]
		if !ok {
			return &ConfigurationError{Key: "signal_weights." + st, Reason: "missing"}
		}
		if err := unitInterval("signal_weights."+st, w); err != nil {
			return err
		}
		if v, ok := c.SignalThresholds[st]; ok {
			if err := unitInterval("signal_thresholds."+st, v); err != nil {
				return err
			}
		}
	}
	for k := range c.SignalWeights {
		if !isSignalType(k) {
			return &ConfigurationError{Key: "signal_weights." + k, Reason: "unknown signal type"}
		}
	}
	for k := range c.SignalThresholds {
		if !isSignalType(k) {
			return &ConfigurationError{Key: "signal_thresholds." + k, Reason: "unknown signal type"}
		}
	}
	if c.MaxSignalWeight() == 0 {
		return &ConfigurationError{Key: "signal_weights", Reason: "at least one weight must be non-zero"}
	}

	for name, lc := range c.Layers {
		if !isLayerName(name) {
			return &ConfigurationError{Key: "layers." + name, Reason: "unknown layer"}
		}
		if err := nonNegative("layers."+name+".weight_threshold", lc.WeightThreshold); err != nil {
			return err
		}
	}
	for _, name := range c.StructuralLayers {
		if !isLayerName(name) {
			return &ConfigurationError{Key: "structural_layers", Reason: fmt.Sprintf("unknown layer %q", name)}
		}
	}
	return nil
}

func isSignalType(s string) bool {
	for _, st := range SignalTypes {
		if st == s {
			return true
		}
	}
	return false
}

// kept local to avoid an import cycle with the dataset package
func isLayerName(s string) bool {
	switch s {
	case "follow", "retweet", "mention", "reply", "hashtag":
		return true
	}
	return false
}
