package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/bluesky-social/starling/dataset"
	"github.com/bluesky-social/starling/fakedata"

	cli "github.com/urfave/cli/v2"
)

var genDatasetCmd = &cli.Command{
	Name:  "gen-dataset",
	Usage: "generate a synthetic dataset with planted coordinated rings and low-veracity communities",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "file path to write dataset JSON to",
			Value:   "starling-dataset.json",
		},
		&cli.StringFlag{
			Name:  "planted-output",
			Usage: "file path to write the planted ground truth to",
		},
		&cli.Int64Flag{
			Name:  "seed",
			Value: 1,
		},
		&cli.IntFlag{
			Name:  "count-regulars",
			Usage: "number of regular accounts to create",
			Value: 100,
		},
		&cli.IntFlag{
			Name:  "count-celebrities",
			Usage: "number of 'celebrity' accounts to create",
			Value: 5,
		},
		&cli.IntFlag{
			Name:  "max-posts",
			Usage: "create up to this many posts for each account; celebs do 2x",
			Value: 10,
		},
		&cli.IntFlag{
			Name:  "max-follows",
			Usage: "create up to this many follows for each account",
			Value: 20,
		},
		&cli.Float64Flag{
			Name:  "frac-mention",
			Usage: "of posts created, fraction to include mentions in",
			Value: 0.2,
		},
		&cli.IntFlag{
			Name:  "rings",
			Usage: "number of coordinated rings to plant",
			Value: 2,
		},
		&cli.IntFlag{
			Name:  "ring-size",
			Value: 5,
		},
		&cli.IntFlag{
			Name:  "communities",
			Usage: "number of low-veracity communities to plant",
			Value: 1,
		},
		&cli.IntFlag{
			Name:  "community-size",
			Value: 6,
		},
	},
	Action: func(cctx *cli.Context) error {
		opts := fakedata.DefaultOptions()
		opts.Seed = cctx.Int64("seed")
		opts.Regulars = cctx.Int("count-regulars")
		opts.Celebs = cctx.Int("count-celebrities")
		opts.MaxPosts = cctx.Int("max-posts")
		opts.MaxFollows = cctx.Int("max-follows")
		opts.FracMention = cctx.Float64("frac-mention")
		opts.Rings = cctx.Int("rings")
		opts.RingSize = cctx.Int("ring-size")
		opts.Communities = cctx.Int("communities")
		opts.CommunitySize = cctx.Int("community-size")

		gen := fakedata.Generate(opts)
		out := cctx.String("output")
		if err := dataset.WriteFile(out, gen.Dataset); err != nil {
			return err
		}
		slog.Info("generated dataset", "path", out, "users", len(gen.Dataset.Users), "posts", len(gen.Dataset.Posts), "edges", len(gen.Dataset.Edges))

		if path := cctx.String("planted-output"); path != "" {
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()
			return writeJSON(f, gen.Planted)
		}
		for _, p := range gen.Planted {
			fmt.Printf("%s\t%s\n", p.Kind, memberList(p.Members, 1<<20))
		}
		return nil
	},
}
