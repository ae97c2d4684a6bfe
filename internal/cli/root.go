// Package cli implements the rtcontour command-line interface.
//
// Every command reads one to three radiotherapy documents (--in), merges
// them into a single patient record and writes its results under --out.
// All commands support --verbose (-v) for debug-level logging; the logger
// is passed to commands through their context.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"rtcontour/pkg/config"
	"rtcontour/pkg/engine"
)

var (
	version string
	commit  string
	date    string
)

// SetVersion sets the version information displayed by --version.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// DefaultConfigPath is read when --config is not given. A missing file
// means defaults.
const DefaultConfigPath = "rtcontour.yaml"

// CLI holds the state shared by all commands
type CLI struct {
	Out    io.Writer
	Err    io.Writer
	Config *config.Config

	configPath string
	verbose    bool
}

// New creates a CLI printing results to out and logs to errw.
func New(out, errw io.Writer) *CLI {
	return &CLI{Out: out, Err: errw, Config: config.DefaultConfig()}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "rtcontour",
		Short:        "rtcontour rotates, translates and expands radiotherapy structures",
		Long:         `rtcontour manipulates the contour data of radiotherapy structure sets without the imaging study: rigid rotations and translations of a named structure about an arbitrary origin, and per-slice margin expansion or contraction.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(c.configPath)
			if err != nil {
				return err
			}
			c.Config = cfg

			level := log.InfoLevel
			if c.verbose || cfg.Output.Verbose {
				level = log.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(c.Err, level)))
			return nil
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("rtcontour %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.SetOut(c.Out)
	root.SetErr(c.Err)
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", DefaultConfigPath, "configuration file (yaml or toml)")

	root.AddCommand(c.rotateCommand())
	root.AddCommand(c.translateCommand())
	root.AddCommand(c.marginCommand())
	root.AddCommand(c.applyCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.statsCommand())
	root.AddCommand(c.anonymizeCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.configCommand())

	return root
}

// engine builds a transform engine from the loaded configuration.
func (c *CLI) engine(ctx context.Context) *engine.Engine {
	return engine.New(
		engine.WithLimits(engine.Limits{
			MaxAngle: c.Config.Transform.MaxAngle,
			MaxDelta: c.Config.Transform.MaxDelta,
		}),
		engine.WithLogger(loggerFromContext(ctx)),
	)
}

// Execute runs the CLI on os.Args.
func Execute(ctx context.Context) error {
	return New(os.Stdout, os.Stderr).RootCommand().ExecuteContext(ctx)
}
