package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/roelfdiedericks/gointake/internal/config"
	. "github.com/roelfdiedericks/gointake/internal/logging"
)

const version = "0.1.0"

// Globals are flags shared by every command.
type Globals struct {
	Config   string `short:"c" help:"Config file (.json or .toml). Defaults to ./gointake.json or ~/.gointake/gointake.json." type:"path"`
	LogLevel string `name:"log-level" help:"Log level: trace, debug, info, warn, error." default:""`
	Schema   string `short:"s" help:"Schema file or http(s) URL, overriding the config."`

	cfg *config.Config
}

// CLI is the gointake command line.
type CLI struct {
	Globals

	Run     RunCmd     `cmd:"" default:"1" help:"Fill in the intake form (default)."`
	Check   CheckCmd   `cmd:"" help:"Load and lint a schema."`
	Review  ReviewCmd  `cmd:"" help:"Print a summary of the saved draft."`
	Export  ExportCmd  `cmd:"" help:"Print the saved draft as JSON."`
	Reset   ResetCmd   `cmd:"" help:"Discard the saved draft."`
	Version VersionCmd `cmd:"" help:"Print the version."`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("gointake"),
		kong.Description("Guided legal intake questionnaire with draft autosave."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	err := kctx.Run(&cli.Globals)
	stop()
	kctx.FatalIfErrorf(err)
}

// load initializes logging and reads the config once per process.
func (g *Globals) load() (*config.Config, error) {
	if g.cfg != nil {
		return g.cfg, nil
	}

	Init(&Config{Level: ParseLevel(g.LogLevel), TimeFormat: "15:04:05"})

	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}
	if g.LogLevel == "" {
		SetLevel(ParseLevel(cfg.Logging.Level))
	}
	if g.Schema != "" {
		if strings.HasPrefix(g.Schema, "http://") || strings.HasPrefix(g.Schema, "https://") {
			cfg.Schema.URL = g.Schema
		} else {
			cfg.Schema.URL = ""
			cfg.Schema.Path = g.Schema
		}
	}
	L_debug("main: config ready", "path", cfg.Path(), "schema", schemaLocation(cfg))
	g.cfg = cfg
	return cfg, nil
}

func schemaLocation(cfg *config.Config) string {
	if cfg.Schema.URL != "" {
		return cfg.Schema.URL
	}
	return cfg.Schema.Path
}

// VersionCmd prints the version.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("gointake %s\n", version)
	return nil
}
