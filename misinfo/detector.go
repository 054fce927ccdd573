package misinfo

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/bluesky-social/starling/config"
	"github.com/bluesky-social/starling/fusion"
)

type IndicatorFunc func(ctx context.Context, in *Input) ([]Cluster, error)

type Indicator struct {
	Name   string
	Detect IndicatorFunc
}

func DefaultIndicators() []Indicator {
	return []Indicator{
		{Name: LowVeracity, Detect: LowVeracityClusters},
		{Name: RapidSpread, Detect: RapidSpreadClusters},
		{Name: CoordinatedMisinfo, Detect: CoordinatedMisinfoClusters},
		{Name: StructuralAnomaly, Detect: StructuralAnomalyClusters},
		{Name: BotCluster, Detect: BotClusters},
	}
}

type Detection struct {
	Clusters []Cluster
	Warnings []fusion.Warning
	// clusters proposed per indicator, before merging
	Proposed map[string]int
}

type Detector struct {
	Logger     *slog.Logger
	Config     *config.Config
	Indicators []Indicator
}

func NewDetector(cfg *config.Config, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		Logger:     logger.With("component", "misinfo"),
		Config:     cfg,
		Indicators: DefaultIndicators(),
	}
}

// Detect runs each indicator in turn, then merges overlapping proposals. A failing indicator produces a warning and contributes nothing.
func (d *Detector) Detect(ctx context.Context, in *Input) (*Detection, error) {
	if in.Config == nil {
		in.Config = d.Config
	}
	if in.Logger == nil {
		in.Logger = d.Logger
	}

	out := &Detection{Proposed: map[string]int{}}
	var proposed []Cluster
	for _, ind := range d.Indicators {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		clusters, warn, err := fusion.Isolate(ctx, "indicator", ind.Name, func(ctx context.Context) ([]Cluster, error) {
			return ind.Detect(ctx, in)
		})
		if err != nil {
			return nil, err
		}
		if warn != nil {
			d.Logger.Warn("misinformation indicator failed", "indicator", ind.Name, "err", warn.Message)
			out.Warnings = append(out.Warnings, *warn)
			continue
		}
		for _, c := range clusters {
			if len(c.Members) == 0 {
				continue
			}
			if len(c.Indicators) == 0 {
				c.Indicators = []string{ind.Name}
			}
			proposed = append(proposed, c)
			out.Proposed[ind.Name]++
		}
		d.Logger.Debug("indicator finished", "indicator", ind.Name, "clusters", len(clusters), "duration", time.Since(start))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	merged := Merge(proposed, d.Config.ClusterMergeOverlapThreshold, d.Config.MergePolicy)
	for i := range merged {
		c := &merged[i]
		sort.Strings(c.Members)
		c.ID = ClusterID(c.Members)
		c.Risk = fusion.RoundScore(c.Risk)
		if avg, _, ok := in.averageVeracity(c.Posts); ok {
			v := fusion.RoundScore(avg)
			c.AvgVeracity = &v
		} else {
			c.AvgVeracity = nil
		}
	}
	// rounding may create new ties
	sortClusters(merged)
	out.Clusters = merged
	return out, nil
}
