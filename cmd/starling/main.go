package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/bluesky-social/starling/config"
	"github.com/bluesky-social/starling/util/cliutil"

	"github.com/araddon/dateparse"
	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
	_ "go.uber.org/automaxprocs"
	"gopkg.in/yaml.v3"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "starling",
		Usage:   "coordinated behavior and misinformation cluster detection",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity level (eg: warn, info, debug)",
			EnvVars: []string{"STARLING_LOG_LEVEL", "LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "log output format: text or json",
			EnvVars: []string{"STARLING_LOG_FMT"},
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "path to YAML detection config; defaults are used when unset",
			EnvVars: []string{"STARLING_CONFIG"},
		},
	}
	app.Before = func(cctx *cli.Context) error {
		_, err := cliutil.SetupSlog(cliutil.LogOptions{
			LogLevel:  cctx.String("log-level"),
			LogFormat: cctx.String("log-format"),
		})
		return err
	}

	app.Commands = []*cli.Command{
		analyzeCmd,
		layersCmd,
		partitionCmd,
		genDatasetCmd,
		checkConfigCmd,
		runsCmd,
	}

	return app.Run(args)
}

func loadConfig(cctx *cli.Context) (*config.Config, error) {
	path := cctx.String("config")
	if path == "" {
		return config.DefaultConfig(), nil
	}
	return config.LoadFile(path)
}

// parseTimeFlag accepts most common date formats; an empty value is the zero time.
func parseTimeFlag(cctx *cli.Context, name string) (time.Time, error) {
	raw := cctx.String(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %w", name, err)
	}
	return t.UTC(), nil
}

var checkConfigCmd = &cli.Command{
	Name:  "check-config",
	Usage: "validate a detection config file and print its fingerprint",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "dump",
			Usage: "print the effective config, with defaults filled in",
		},
	},
	Action: func(cctx *cli.Context) error {
		cfg, err := loadConfig(cctx)
		if err != nil {
			return err
		}
		if cctx.Bool("dump") {
			b, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Print(string(b))
		}
		fmt.Printf("config ok: %s\n", cfg.Fingerprint())
		return nil
	},
}
