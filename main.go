package main

import (
	"fmt"
	"os"

	"github.com/carlmjohnson/versioninfo"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/iancoleman/strcase"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vesavlad/tiles/osm"
	"github.com/vesavlad/tiles/pack"
	"github.com/vesavlad/tiles/prepare"
	"github.com/vesavlad/tiles/server"
	"github.com/vesavlad/tiles/tiledb"
)

const (
	DB       = `db`
	PROFILE  = `profile`
	MAXZOOM  = `max-z`
	PORT     = `port`
	LOGLEVEL = `log-level`
)

type config struct {
	DBPath   string
	LogLevel string `default:"info"`
	Profile  string
	MaxZ     uint32 `default:"14" validate:"lte=20"`
	Port     int    `default:"8080" validate:"gte=1,lte=65535"`
}

func main() {
	app := cli.NewApp()
	app.Name = "tiles"
	app.Usage = "An OpenStreetMap vector tile pipeline"
	app.Version = versioninfo.Short()

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:     DB,
			Aliases:  []string{"d"},
			Usage:    "Path to the tile database",
			Required: true,
			EnvVars:  []string{tilesEnv(DB)},
		},
		&cli.StringFlag{
			Name:    LOGLEVEL,
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			EnvVars: []string{tilesEnv(LOGLEVEL)},
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:      "import",
			Usage:     "Ingest an OSM pbf extract into the feature store",
			ArgsUsage: "<osm-file>",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    PROFILE,
					Usage:   "JSON classification profile (built-in default when omitted)",
					EnvVars: []string{tilesEnv(PROFILE)},
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() != 1 {
					return cli.Exit("import needs exactly one <osm-file> argument", 1)
				}
				return withHandle(c, func(cfg *config, h *tiledb.Handle) error {
					profile := osm.DefaultProfile()
					if cfg.Profile != "" {
						var err error
						if profile, err = osm.LoadProfile(cfg.Profile); err != nil {
							return err
						}
					}
					return osm.NewImporter(h, profile).Run(c.Context, c.Args().First())
				})
			},
		},
		{
			Name:  "pack",
			Usage: "Rewrite raw feature lists into feature packs",
			Action: func(c *cli.Context) error {
				return withHandle(c, func(_ *config, h *tiledb.Handle) error {
					return pack.Run(h)
				})
			},
		},
		{
			Name:  "prepare",
			Usage: "Pre-render all tiles up to a zoom level",
			Flags: []cli.Flag{
				&cli.UintFlag{
					Name:    MAXZOOM,
					Aliases: []string{"z"},
					Usage:   "Deepest zoom level to prepare",
					Value:   14,
					EnvVars: []string{tilesEnv(MAXZOOM)},
				},
			},
			Action: func(c *cli.Context) error {
				return withHandle(c, func(cfg *config, h *tiledb.Handle) error {
					return prepare.Run(h, cfg.MaxZ)
				})
			},
		},
		{
			Name:  "serve",
			Usage: "Serve tiles over HTTP",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:    PORT,
					Aliases: []string{"p"},
					Usage:   "Listen port",
					Value:   8080,
					EnvVars: []string{tilesEnv(PORT)},
				},
			},
			Action: func(c *cli.Context) error {
				return withHandle(c, func(cfg *config, h *tiledb.Handle) error {
					return server.Run(h, cfg.Port)
				})
			},
		},
		{
			Name:  "stats",
			Usage: "Print database statistics",
			Action: func(c *cli.Context) error {
				return withHandle(c, func(_ *config, h *tiledb.Handle) error {
					return h.Stats(os.Stdout)
				})
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func tilesEnv(flag string) string {
	return "TILES_" + strcase.ToScreamingSnake(flag)
}

func loadConfig(c *cli.Context) (*config, error) {
	cfg := &config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, err
	}
	cfg.DBPath = c.String(DB)
	if v := c.String(LOGLEVEL); v != "" {
		cfg.LogLevel = v
	}
	cfg.Profile = c.String(PROFILE)
	if c.IsSet(MAXZOOM) {
		cfg.MaxZ = uint32(c.Uint(MAXZOOM))
	}
	if c.IsSet(PORT) {
		cfg.Port = c.Int(PORT)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func withHandle(c *cli.Context, fn func(cfg *config, h *tiledb.Handle) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	h, err := tiledb.Open(cfg.DBPath, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := h.Close(); err != nil {
			log.Error("closing database", zap.Error(err))
		}
	}()
	return fn(cfg, h)
}

func newLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	if level == "debug" {
		config.Development = true
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return config.Build()
}
