// One end-to-end analysis run over a dataset snapshot: graph construction, partitioning, coordination detection, and misinformation clustering.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/bluesky-social/starling/cachestore"
	"github.com/bluesky-social/starling/config"
	"github.com/bluesky-social/starling/coordination"
	"github.com/bluesky-social/starling/dataset"
	"github.com/bluesky-social/starling/fusion"
	"github.com/bluesky-social/starling/misinfo"
	"github.com/bluesky-social/starling/netgraph"
	"github.com/bluesky-social/starling/partition"
	"github.com/bluesky-social/starling/signals"
	"github.com/bluesky-social/starling/textsim"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("pipeline")

// ErrEmptyInput marks a run whose dataset (after windowing) has no posts and no timestamped edges. Run does not return it; see Result.Err.
var ErrEmptyInput = errors.New("no posts or edges to analyze")

// Options scope a single run.
type Options struct {
	// optional time window, [Start, End); zero bounds are open
	Start time.Time
	End   time.Time

	// externally computed partitions; when empty, partitions are computed with the analyzer's registry
	Partitions []*partition.Partition

	// layers and algorithms to partition when none are supplied; default every built layer with louvain
	PartitionLayers []string
	Algorithms      []string
	Resolution      float64

	// skip the result cache for this run
	NoCache bool
}

func (o *Options) withDefaults() Options {
	out := *o
	if len(out.Algorithms) == 0 {
		out.Algorithms = []string{"louvain"}
	}
	if out.Resolution <= 0 {
		out.Resolution = 1.0
	}
	return out
}

// fingerprint covers every option which can change the output of a run.
func (o *Options) fingerprint() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "layers=%s;algos=%s;res=%g;", strings.Join(sortedCopy(o.PartitionLayers), ","), strings.Join(sortedCopy(o.Algorithms), ","), o.Resolution)
	for _, p := range o.Partitions {
		fmt.Fprintf(&sb, "part=%s/%g:", p.Key(), p.Resolution)
		ids := make([]string, 0, len(p.Assignments))
		for id := range p.Assignments {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Fprintf(&sb, "%s=%d,", id, p.Assignments[id])
		}
		sb.WriteString(";")
	}
	return textsim.HashOfString(sb.String())
}

func prefix(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[:n]
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

// Metadata describes how a Result was produced.
type Metadata struct {
	RunID              string           `json:"run_id"`
	DatasetFingerprint string           `json:"dataset_fingerprint"`
	ConfigFingerprint  string           `json:"config_fingerprint"`
	Empty              bool             `json:"empty"`
	Cached             bool             `json:"cached"`
	Users              int              `json:"users"`
	Posts              int              `json:"posts"`
	Edges              int              `json:"edges"`
	WindowStart        time.Time        `json:"window_start,omitempty"`
	WindowEnd          time.Time        `json:"window_end,omitempty"`
	Partitions         []string         `json:"partitions"`
	SignalCounts       map[string]int   `json:"signal_counts"`
	ProposedClusters   map[string]int   `json:"proposed_clusters"`
	Warnings           []fusion.Warning `json:"warnings"`
	StartedAt          time.Time        `json:"started_at"`
	DurationMs         int64            `json:"duration_ms"`
}

// Result is the output of one analysis run.
type Result struct {
	Groups   []coordination.Group `json:"coordinated_groups"`
	Clusters []misinfo.Cluster    `json:"misinformation_clusters"`
	Layers   []netgraph.Stats     `json:"layers"`
	Metadata Metadata             `json:"metadata"`
}

// Err returns ErrEmptyInput for a result produced from an empty dataset, and nil otherwise.
func (r *Result) Err() error {
	if r.Metadata.Empty {
		return ErrEmptyInput
	}
	return nil
}

// Analyzer runs the full detection pipeline. It holds no per-run state, so one Analyzer can serve concurrent runs.
type Analyzer struct {
	Logger       *slog.Logger
	Config       *config.Config
	Partitioners partition.Registry
	Extractors   []signals.Extractor
	Indicators   []misinfo.Indicator
	// optional
	Cache *cachestore.ResultCache
}

func NewAnalyzer(cfg *config.Config, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		Logger:       logger.With("component", "pipeline"),
		Config:       cfg,
		Partitioners: partition.DefaultRegistry(),
		Extractors:   signals.DefaultExtractors(),
		Indicators:   misinfo.DefaultIndicators(),
	}
}

// stage wraps one pipeline step in a span and records its duration.
func stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := tracer.Start(ctx, name)
	defer span.End()
	start := time.Now()
	err := fn(ctx)
	stageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// Run analyzes one dataset snapshot.
//
// Malformed records and invalid configuration abort the run with no partial output. A dataset with nothing to analyze yields an empty Result and a nil error. Cancelling ctx aborts the run with the context error.
func (a *Analyzer) Run(ctx context.Context, ds *dataset.Dataset, opts Options) (*Result, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	start := time.Now()
	res, err := a.run(ctx, ds, opts.withDefaults())
	status := "ok"
	switch {
	case err != nil && ctx.Err() != nil:
		status = "cancelled"
	case err != nil:
		status = "error"
	case res.Metadata.Empty:
		status = "empty"
	case res.Metadata.Cached:
		status = "cached"
	}
	runCount.WithLabelValues(status).Inc()
	runDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.String("status", status))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	res.Metadata.StartedAt = start
	res.Metadata.DurationMs = time.Since(start).Milliseconds()
	return res, nil
}

func (a *Analyzer) run(ctx context.Context, ds *dataset.Dataset, opts Options) (*Result, error) {
	cfg := a.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if ds == nil {
		ds = &dataset.Dataset{}
	}
	if err := dataset.Validate(ds, cfg.StrictEdges); err != nil {
		return nil, fmt.Errorf("invalid dataset: %w", err)
	}
	if !opts.Start.IsZero() || !opts.End.IsZero() {
		ds = ds.Window(opts.Start, opts.End)
	}

	meta := Metadata{
		DatasetFingerprint: dataset.Fingerprint(ds),
		ConfigFingerprint:  cfg.Fingerprint(),
		Users:              len(ds.Users),
		Posts:              len(ds.Posts),
		Edges:              len(ds.Edges),
		WindowStart:        opts.Start,
		WindowEnd:          opts.End,
		Partitions:         []string{},
		SignalCounts:       map[string]int{},
		ProposedClusters:   map[string]int{},
		Warnings:           []fusion.Warning{},
	}
	meta.RunID = prefix(meta.DatasetFingerprint, 12) + "-" + prefix(meta.ConfigFingerprint, 8)
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("run", meta.RunID)

	if ds.IsEmpty() {
		logger.Info("nothing to analyze", "users", meta.Users)
		meta.Empty = true
		return &Result{
			Groups:   []coordination.Group{},
			Clusters: []misinfo.Cluster{},
			Layers:   []netgraph.Stats{},
			Metadata: meta,
		}, nil
	}

	cacheKey := meta.ConfigFingerprint + "-" + opts.fingerprint()
	if a.Cache != nil && !opts.NoCache {
		var cached Result
		hit, err := a.Cache.Load(ctx, meta.DatasetFingerprint, cacheKey, &cached)
		if err != nil {
			logger.Warn("result cache lookup failed", "err", err)
		}
		if hit {
			cacheLookups.WithLabelValues("hit").Inc()
			logger.Info("returning cached result")
			cached.Metadata.Cached = true
			return &cached, nil
		}
		cacheLookups.WithLabelValues("miss").Inc()
	}

	logger.Info("starting analysis", "users", meta.Users, "posts", meta.Posts, "edges", meta.Edges)
	res := &Result{Metadata: meta}

	var mg *netgraph.MultiLayerGraph
	err := stage(ctx, "graph", func(ctx context.Context) error {
		var err error
		mg, err = netgraph.Build(ds, cfg)
		return err
	})
	if err != nil {
		return nil, err
	}
	res.Layers = mg.Stats()

	parts := opts.Partitions
	if len(parts) == 0 {
		err = stage(ctx, "partition", func(ctx context.Context) error {
			layers := opts.PartitionLayers
			if len(layers) == 0 {
				layers = mg.Names()
			}
			var err error
			parts, err = a.Partitioners.Run(ctx, mg, layers, opts.Algorithms, opts.Resolution)
			return err
		})
		if err != nil {
			return nil, err
		}
	}
	for _, p := range parts {
		res.Metadata.Partitions = append(res.Metadata.Partitions, p.Key())
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var coord *coordination.Detection
	err = stage(ctx, "coordination", func(ctx context.Context) error {
		det := coordination.NewDetector(cfg, logger)
		if a.Extractors != nil {
			det.Extractors = a.Extractors
		}
		var err error
		coord, err = det.Detect(ctx, signals.NewInput(mg, ds.Posts, cfg, logger))
		return err
	})
	if err != nil {
		return nil, err
	}
	res.Groups = coord.Groups
	res.Metadata.SignalCounts = coord.SignalCounts()
	res.Metadata.Warnings = append(res.Metadata.Warnings, coord.Warnings...)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var mis *misinfo.Detection
	err = stage(ctx, "misinfo", func(ctx context.Context) error {
		det := misinfo.NewDetector(cfg, logger)
		if a.Indicators != nil {
			det.Indicators = a.Indicators
		}
		var err error
		mis, err = det.Detect(ctx, &misinfo.Input{
			Graph:      mg,
			Dataset:    ds,
			Partitions: parts,
			Groups:     coord.Groups,
			Config:     cfg,
			Logger:     logger,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	res.Clusters = mis.Clusters
	res.Metadata.ProposedClusters = mis.Proposed
	res.Metadata.Warnings = append(res.Metadata.Warnings, mis.Warnings...)

	if res.Groups == nil {
		res.Groups = []coordination.Group{}
	}
	if res.Clusters == nil {
		res.Clusters = []misinfo.Cluster{}
	}

	for typ, n := range res.Metadata.SignalCounts {
		signalCount.WithLabelValues(typ).Add(float64(n))
	}
	for _, w := range res.Metadata.Warnings {
		warningCount.WithLabelValues(w.Stage, w.Name).Inc()
	}
	groupCount.Add(float64(len(res.Groups)))
	for _, c := range res.Clusters {
		for _, ind := range c.Indicators {
			clusterCount.WithLabelValues(ind).Inc()
		}
	}
	logger.Info("analysis complete", "groups", len(res.Groups), "clusters", len(res.Clusters), "warnings", len(res.Metadata.Warnings))

	if a.Cache != nil && !opts.NoCache {
		if err := a.Cache.Save(ctx, meta.DatasetFingerprint, cacheKey, res); err != nil {
			logger.Warn("failed to save result to cache", "err", err)
		}
	}
	return res, nil
}

// Invalidate drops every cached result for the dataset. Results are keyed by the windowed snapshot, so pass the same window used for Run.
func (a *Analyzer) Invalidate(ctx context.Context, ds *dataset.Dataset, opts Options) error {
	if a.Cache == nil {
		return nil
	}
	if !opts.Start.IsZero() || !opts.End.IsZero() {
		ds = ds.Window(opts.Start, opts.End)
	}
	return a.Cache.Invalidate(ctx, dataset.Fingerprint(ds))
}
