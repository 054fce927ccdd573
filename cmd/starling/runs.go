package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bluesky-social/starling/runstore"
	"github.com/bluesky-social/starling/util/cliutil"

	cli "github.com/urfave/cli/v2"
)

func openRunStore(cctx *cli.Context) (*runstore.Store, error) {
	db, err := cliutil.SetupDatabase(cctx.String("database-url"), 4)
	if err != nil {
		return nil, err
	}
	return runstore.New(db, slog.Default())
}

var runsCmd = &cli.Command{
	Name:  "runs",
	Usage: "sub-commands for the archive of past analysis runs",
	Flags: []cli.Flag{
		databaseURLFlag,
	},
	Subcommands: []*cli.Command{
		&cli.Command{
			Name:  "list",
			Usage: "list recent runs",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "limit",
					Value: 25,
				},
				&cli.StringFlag{
					Name:  "dataset-fingerprint",
					Usage: "only runs over this dataset snapshot",
				},
			},
			Action: func(cctx *cli.Context) error {
				ctx := context.Background()
				store, err := openRunStore(cctx)
				if err != nil {
					return err
				}
				var runs []runstore.Run
				if fp := cctx.String("dataset-fingerprint"); fp != "" {
					runs, err = store.ForDataset(ctx, fp)
				} else {
					runs, err = store.List(ctx, cctx.Int("limit"))
				}
				if err != nil {
					return err
				}
				for _, r := range runs {
					fmt.Printf("%s\t%s\tdataset=%s\tgroups=%d\tclusters=%d\twarnings=%d\n",
						r.Name, r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"), r.DatasetFingerprint, r.Groups, r.Clusters, r.Warnings)
				}
				return nil
			},
		},
		&cli.Command{
			Name:      "show",
			Usage:     "print an archived run",
			ArgsUsage: "<name>",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "json",
					Usage: "print the full JSON result",
				},
				&cli.BoolFlag{
					Name:    "verbose",
					Aliases: []string{"v"},
				},
			},
			Action: func(cctx *cli.Context) error {
				name := cctx.Args().First()
				if name == "" {
					return fmt.Errorf("need to provide run name as an argument")
				}
				store, err := openRunStore(cctx)
				if err != nil {
					return err
				}
				res, err := store.Load(context.Background(), name)
				if err != nil {
					return err
				}
				if cctx.Bool("json") {
					return writeJSON(os.Stdout, res)
				}
				renderResult(os.Stdout, res, cctx.Bool("verbose"))
				return nil
			},
		},
		&cli.Command{
			Name:      "delete",
			Usage:     "remove a run from the archive",
			ArgsUsage: "<name>",
			Action: func(cctx *cli.Context) error {
				name := cctx.Args().First()
				if name == "" {
					return fmt.Errorf("need to provide run name as an argument")
				}
				store, err := openRunStore(cctx)
				if err != nil {
					return err
				}
				return store.Delete(context.Background(), name)
			},
		},
	},
}
