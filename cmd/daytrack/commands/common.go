// Package commands implements the daytrack command line.
package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/daytrack/internal/config"
	"git.home.luguber.info/inful/daytrack/internal/service"
)

// Global carries process-wide collaborators into Run methods.
type Global struct {
	Out io.Writer
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"daytrack.yaml" env:"DAYTRACK_CONFIG"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Init        InitCmd        `cmd:"" help:"Initialize a new configuration file"`
	Default     DefaultCmd     `cmd:"" help:"Set (value > 0) or clear (value 0) a metric's recurring default"`
	Manual      ManualCmd      `cmd:"" help:"Record a value for a specific day (0 removes it)"`
	Reset       ResetCmd       `cmd:"" help:"Empty a day and exempt it from default materialization"`
	Materialize MaterializeCmd `cmd:"" help:"Write active defaults into today's records"`
	Show        ShowCmd        `cmd:"" help:"Show a user's defaults and recorded values"`
	History     HistoryCmd     `cmd:"" help:"Show a user's journaled changes"`
	Daemon      DaemonCmd      `cmd:"" help:"Run scheduled materialization with an admin HTTP server"`
}

// AfterApply runs after flag parsing; set up logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// loadConfig reads the configuration and switches logging to its settings.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(cfg.Monitoring.Logging.NewLogger(os.Stderr, c.Verbose))
	return cfg, nil
}

// openRuntime loads the configuration and opens the tracker it describes.
func (c *CLI) openRuntime() (*service.Runtime, *config.Config, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	rt, err := service.Open(cfg, nil, "cli")
	if err != nil {
		return nil, nil, err
	}
	return rt, cfg, nil
}
