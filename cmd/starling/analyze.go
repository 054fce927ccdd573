package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bluesky-social/starling/cachestore"
	"github.com/bluesky-social/starling/dataset"
	"github.com/bluesky-social/starling/netgraph"
	"github.com/bluesky-social/starling/partition"
	"github.com/bluesky-social/starling/pipeline"
	"github.com/bluesky-social/starling/runstore"
	"github.com/bluesky-social/starling/util/cliutil"

	cli "github.com/urfave/cli/v2"
	"github.com/xlab/treeprint"
)

var datasetFlag = &cli.StringFlag{
	Name:     "dataset",
	Aliases:  []string{"d"},
	Usage:    "path to dataset JSON file",
	Required: true,
	EnvVars:  []string{"STARLING_DATASET"},
}

var windowFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "start",
		Usage: "only analyze records at or after this time",
	},
	&cli.StringFlag{
		Name:  "end",
		Usage: "only analyze records before this time",
	},
}

var databaseURLFlag = &cli.StringFlag{
	Name:    "database-url",
	Usage:   "database for the run archive (sqlite or postgres)",
	Value:   "sqlite://data/starling/runs.db",
	EnvVars: []string{"DATABASE_URL"},
}

func loadWindowedDataset(cctx *cli.Context) (*dataset.Dataset, error) {
	ds, err := dataset.LoadFile(cctx.String("dataset"))
	if err != nil {
		return nil, err
	}
	start, err := parseTimeFlag(cctx, "start")
	if err != nil {
		return nil, err
	}
	end, err := parseTimeFlag(cctx, "end")
	if err != nil {
		return nil, err
	}
	if !start.IsZero() || !end.IsZero() {
		ds = ds.Window(start, end)
	}
	return ds, nil
}

// signalContext is cancelled on SIGINT or SIGTERM, so a long analysis can be aborted cleanly.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

var analyzeCmd = &cli.Command{
	Name:      "analyze",
	Usage:     "run coordination and misinformation detection over a dataset",
	Flags: append([]cli.Flag{
		datasetFlag,
		&cli.StringFlag{
			Name:  "partitions",
			Usage: "JSON file of precomputed partitions (as written by 'partition --output'); skips partitioning",
		},
		&cli.StringSliceFlag{
			Name:  "partition-layer",
			Usage: "layer(s) to partition in to communities; defaults to every enabled layer",
		},
		&cli.StringSliceFlag{
			Name:  "algorithm",
			Usage: "community partitioning algorithm(s): louvain, lpa",
			Value: cli.NewStringSlice("louvain"),
		},
		&cli.Float64Flag{
			Name:  "resolution",
			Usage: "community partitioning resolution",
			Value: 1.0,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "write the full JSON result to this path ('-' for stdout)",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "include every member and all cluster evidence in the report",
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis server for the shared result cache; results are not cached when unset",
			EnvVars: []string{"STARLING_REDIS_URL", "REDIS_URL"},
		},
		&cli.DurationFlag{
			Name:    "cache-ttl",
			Usage:   "how long cached results are kept",
			Value:   24 * time.Hour,
			EnvVars: []string{"STARLING_CACHE_TTL"},
		},
		&cli.BoolFlag{
			Name:  "invalidate",
			Usage: "drop cached results for this dataset before running",
		},
		&cli.BoolFlag{
			Name:    "archive",
			Usage:   "save the result to the run archive",
			EnvVars: []string{"STARLING_ARCHIVE"},
		},
		databaseURLFlag,
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to serve prometheus metrics on while running",
			EnvVars: []string{"STARLING_METRICS_LISTEN"},
		},
	}, windowFlags...),
	Action: runAnalyze,
}

func runAnalyze(cctx *cli.Context) error {
	ctx, cancel := signalContext()
	defer cancel()
	logger := slog.Default().With("system", "starling")

	shutdown, err := configOTEL(ctx, "starling")
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}
	defer shutdown()

	if listen := cctx.String("metrics-listen"); listen != "" {
		srv := startMetrics(listen)
		defer srv.Close()
	}

	cfg, err := loadConfig(cctx)
	if err != nil {
		return err
	}
	ds, err := dataset.LoadFile(cctx.String("dataset"))
	if err != nil {
		return err
	}
	start, err := parseTimeFlag(cctx, "start")
	if err != nil {
		return err
	}
	end, err := parseTimeFlag(cctx, "end")
	if err != nil {
		return err
	}

	analyzer := pipeline.NewAnalyzer(cfg, logger)
	// a one-shot process can only ever hit a shared cache
	if redisURL := cctx.String("redis-url"); redisURL != "" {
		store, err := cachestore.NewRedisResultStore(ctx, redisURL, cctx.Duration("cache-ttl"))
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		analyzer.Cache = cachestore.NewResultCache(store)
	} else if cctx.Bool("invalidate") {
		return fmt.Errorf("--invalidate requires --redis-url")
	}

	opts := pipeline.Options{
		Start:           start,
		End:             end,
		PartitionLayers: cctx.StringSlice("partition-layer"),
		Algorithms:      cctx.StringSlice("algorithm"),
		Resolution:      cctx.Float64("resolution"),
	}
	if path := cctx.String("partitions"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(b, &opts.Partitions); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	if cctx.Bool("invalidate") {
		if err := analyzer.Invalidate(ctx, ds, opts); err != nil {
			return err
		}
	}

	res, err := analyzer.Run(ctx, ds, opts)
	if err != nil {
		return err
	}

	if out := cctx.String("output"); out != "" {
		if out == "-" {
			return writeJSON(os.Stdout, res)
		}
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := writeJSON(f, res); err != nil {
			return err
		}
		logger.Info("wrote result", "path", out)
	}
	renderResult(os.Stdout, res, cctx.Bool("verbose"))

	if cctx.Bool("archive") {
		db, err := cliutil.SetupDatabase(cctx.String("database-url"), 4)
		if err != nil {
			return err
		}
		runs, err := runstore.New(db, logger)
		if err != nil {
			return err
		}
		run, err := runs.Archive(ctx, res)
		if err != nil {
			return err
		}
		fmt.Printf("archived as %s\n", run.Name)
	}
	return nil
}

var layersCmd = &cli.Command{
	Name:  "layers",
	Usage: "build the interaction layers for a dataset and print their statistics",
	Flags: append([]cli.Flag{
		datasetFlag,
		&cli.StringSliceFlag{
			Name:  "combine",
			Usage: "also combine these layers (all layers when given as 'all')",
		},
		&cli.StringFlag{
			Name:  "mode",
			Usage: "layer combination mode: union or intersection",
			Value: netgraph.CombineUnion,
		},
		&cli.StringFlag{
			Name:  "node",
			Usage: "print per-layer degree and neighbors for this account",
		},
	}, windowFlags...),
	Action: func(cctx *cli.Context) error {
		cfg, err := loadConfig(cctx)
		if err != nil {
			return err
		}
		ds, err := loadWindowedDataset(cctx)
		if err != nil {
			return err
		}
		if err := dataset.Validate(ds, cfg.StrictEdges); err != nil {
			return err
		}
		mg, err := netgraph.Build(ds, cfg)
		if err != nil {
			return err
		}

		stats := mg.Stats()
		if names := cctx.StringSlice("combine"); len(names) > 0 {
			if len(names) == 1 && names[0] == "all" {
				names = nil
			}
			combined, err := mg.CombineLayers(names, cctx.String("mode"))
			if err != nil {
				return err
			}
			stats = append(stats, netgraph.LayerStats(combined))
		}
		tree := treeprint.NewWithRoot(fmt.Sprintf("layers (%d users, %d posts, %d edges)", len(ds.Users), len(ds.Posts), len(ds.Edges)))
		addLayerStats(tree, stats)

		if id := cctx.String("node"); id != "" {
			br := tree.AddBranch(id)
			for _, name := range mg.Names() {
				attrs, ok := mg.NodeAttributes(id)[name]
				if !ok {
					continue
				}
				br.AddMetaNode(name, fmt.Sprintf("degree=%d neighbors=%s", attrs.Degree, memberList(attrs.Neighbors, 12)))
			}
		}
		fmt.Println(tree.String())
		return nil
	},
}

var partitionCmd = &cli.Command{
	Name:  "partition",
	Usage: "partition a layer in to communities and print them",
	Flags: append([]cli.Flag{
		datasetFlag,
		&cli.StringSliceFlag{
			Name:  "layer",
			Usage: "layer(s) to partition",
			Value: cli.NewStringSlice(dataset.LayerFollow),
		},
		&cli.StringSliceFlag{
			Name:  "algorithm",
			Usage: "partitioning algorithm(s): louvain, lpa",
			Value: cli.NewStringSlice("louvain"),
		},
		&cli.Float64Flag{
			Name:  "resolution",
			Value: 1.0,
		},
		&cli.IntFlag{
			Name:  "min-size",
			Usage: "only print communities with at least this many members",
			Value: 2,
		},
		&cli.StringFlag{
			Name:  "output",
			Usage: "write partitions as JSON to this path",
		},
	}, windowFlags...),
	Action: func(cctx *cli.Context) error {
		ctx, cancel := signalContext()
		defer cancel()

		cfg, err := loadConfig(cctx)
		if err != nil {
			return err
		}
		ds, err := loadWindowedDataset(cctx)
		if err != nil {
			return err
		}
		if err := dataset.Validate(ds, cfg.StrictEdges); err != nil {
			return err
		}
		mg, err := netgraph.Build(ds, cfg)
		if err != nil {
			return err
		}
		parts, err := partition.DefaultRegistry().Run(ctx, mg, cctx.StringSlice("layer"), cctx.StringSlice("algorithm"), cctx.Float64("resolution"))
		if err != nil {
			return err
		}
		for _, p := range parts {
			renderPartition(os.Stdout, p, cctx.Int("min-size"))
		}
		if out := cctx.String("output"); out != "" {
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			return writeJSON(f, parts)
		}
		return nil
	},
}
