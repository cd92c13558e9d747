// Package cli provides the penguindash command-line interface.
package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"penguindash/internal/config"
	"penguindash/internal/observability"
)

// Exit codes.
const (
	ExitSuccess = 0
	ExitFailure = 1
)

// Version information, set at build time.
var (
	Version   = "0.1.0"
	GitCommit = "dev"
	BuildDate = "unknown"
)

// CLI holds the command-line interface state.
type CLI struct {
	rootCmd *cobra.Command
	cfg     *config.Config
	logger  *slog.Logger

	configPath string
	source     string
	table      string
	logLevel   string
	logFormat  string
}

// New creates a CLI instance.
func New() *CLI {
	c := &CLI{}
	c.rootCmd = c.newRootCmd()
	return c
}

// Command returns the root command, for callers that set args and output.
func (c *CLI) Command() *cobra.Command { return c.rootCmd }

// Execute runs the CLI and returns the process exit code.
func (c *CLI) Execute() int {
	if err := c.rootCmd.Execute(); err != nil {
		fmt.Fprintf(c.rootCmd.ErrOrStderr(), "penguindash: %v\n", err)
		return ExitFailure
	}
	return ExitSuccess
}

func (c *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "penguindash",
		Short: "Palmer penguins dashboard",
		Long: `penguindash serves an interactive dashboard over the Palmer penguins
dataset: a species and body-mass filter driving summary value boxes, a bill
length/depth scatter plot and a filterable data grid.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.initConfig(cmd.ErrOrStderr())
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "config file (default: ./penguindash.yaml when present)")
	flags.StringVar(&c.source, "source", "", "dataset source URI (overrides dataset.source)")
	flags.StringVar(&c.table, "table", "", "dataset table for sqlite/postgres sources (overrides dataset.table)")
	flags.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&c.logFormat, "log-format", "", "log format: json or text")

	cmd.AddCommand(c.newServeCmd())
	cmd.AddCommand(c.newFilterCmd())
	cmd.AddCommand(c.newExportCmd())
	cmd.AddCommand(c.newSeedCmd())
	cmd.AddCommand(c.newVersionCmd())
	return cmd
}

func (c *CLI) initConfig(logOut io.Writer) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.source != "" {
		cfg.Dataset.Source = c.source
	}
	if c.table != "" {
		cfg.Dataset.Table = c.table
	}
	if c.logLevel != "" {
		cfg.Logging.Level = c.logLevel
	}
	if c.logFormat != "" {
		cfg.Logging.Format = c.logFormat
	}
	logger, err := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format, logOut)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = logger
	return nil
}
