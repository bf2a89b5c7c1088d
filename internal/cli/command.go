package cli

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/idelchi/dirspace/internal/config"
	"github.com/idelchi/dirspace/internal/dirspace"
	"github.com/idelchi/dirspace/internal/integration"
)

// CLI represents the command-line interface.
type CLI struct {
	version string
}

// New creates a new CLI instance with the given version.
func New(version string) CLI {
	return CLI{version: version}
}

// Output formats.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
	OutputTree  = "tree"
)

// DefaultExcludes contains the default exclusion patterns.
//
//nolint:gochecknoglobals // Config constant
var DefaultExcludes = []string{`.*\.git/.*`, `.*node_modules/.*`}

// allowedOutputs lists the valid --output values.
//
//nolint:gochecknoglobals // Config constant
var allowedOutputs = []string{OutputTable, OutputJSON, OutputYAML, OutputTree}

// settings collects the parsed flags.
type settings struct {
	options     dirspace.Options
	output      string
	minSize     string
	configFile  string
	envFiles    []string
	debug       bool
	version     bool
	integration bool
}

// Command builds the root command.
func (c CLI) Command() *cobra.Command {
	var s settings

	cmd := &cobra.Command{
		Use:   "dirspace [flags] [path...]",
		Short: "Report disk usage per directory",
		Long: heredoc.Doc(`
			dirspace walks one or more directories and reports, for every directory,
			the cumulative size of all files below it.

			Positional Arguments:
			  path                   Directories to analyze. Defaults to the current directory.

			Engines:
			  stream   Scans directories from a work queue and streams events (default).
			  tree     Collects the full tree concurrently; required for '--output tree'.
			  fast     Uses fastwalk's parallel walker.

			Directories matching an exclusion pattern are not descended into;
			the defaults skip .git and node_modules.

			Settings are read from flags, then DIRSPACE_* environment variables
			(optionally from --env-file), then .dirspace.yaml (or --config).

			The '-i' flag prints a zsh integration that pipes the largest
			directories into 'fzf' and changes into the selection.
		`),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, args, &s)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&s.output, "output", "o", OutputTable, "Output format: table, json, yaml or tree")
	flags.IntVarP(&s.options.TopN, "top", "t", 10, "Number of top directories to display")
	flags.IntVarP(&s.options.Depth, "depth", "d", 0, "Maximum traversal depth (0=unlimited)")
	flags.Int64Var(&s.options.MaxEntries, "max-entries", 0, "Stop after this many entries (0=unlimited)")
	flags.StringVarP(&s.options.Engine, "engine", "e", dirspace.EngineStream, "Traversal engine: stream, tree or fast")
	flags.DurationVar(&s.options.Delay, "delay", 0, "Delay before scanning discovered directories (stream engine)")
	flags.StringSliceVarP(&s.options.Excludes, "exclude", "x", DefaultExcludes, "Regex patterns to exclude")
	flags.StringSliceVar(
		&s.options.Extensions,
		"ext",
		[]string{},
		"File suffixes to include (e.g., .go,.md). Use '!' prefix to exclude (e.g., !.log,!_test.go)",
	)
	flags.StringVar(&s.minSize, "min-size", "0B", "Minimum file size (e.g., 1KB)")
	flags.BoolVar(&s.options.SameSize, "same-size", false, "List files sharing the same size")
	flags.BoolVar(&s.options.Blocks, "blocks", false, "Count whole filesystem blocks instead of apparent sizes")
	flags.BoolVar(&s.options.Volume, "volume", false, "Report capacity of each root's volume")
	flags.StringVar(&s.configFile, "config", "", "Path to a config file (default ./"+config.FileName+")")
	flags.StringSliceVar(&s.envFiles, "env-file", nil, "Dotenv files with DIRSPACE_* settings")
	flags.BoolVar(&s.debug, "debug", false, "Enable debug output")
	flags.BoolVarP(&s.version, "version", "v", false, "Show version and exit")
	flags.BoolVarP(&s.integration, "init", "i", false, "Output init script for shell usage")

	flags.SortFlags = false

	return cmd
}

// Execute runs the CLI with the process arguments.
func (c CLI) Execute() error {
	return c.Command().Execute()
}

func (c CLI) run(cmd *cobra.Command, args []string, s *settings) error {
	out := cmd.OutOrStdout()

	if s.version {
		fmt.Fprintln(out, c.version)

		return nil
	}

	if s.integration {
		rendered, err := integration.Render()
		if err != nil {
			return fmt.Errorf("rendering integration script: %w", err)
		}

		fmt.Fprintln(out, rendered)

		return nil
	}

	if err := s.applyConfig(cmd.Flags()); err != nil {
		return err
	}

	if err := s.validate(cmd.Flags()); err != nil {
		return err
	}

	s.options.Paths = args
	if len(s.options.Paths) == 0 {
		s.options.Paths = []string{"."}
	}

	return logic(cmd.Context(), *s, out, cmd.ErrOrStderr())
}

// applyConfig fills every flag the user did not set from the environment
// and the config file, in that order of precedence.
//
//nolint:cyclop,gocognit // One branch per setting.
func (s *settings) applyConfig(flags *pflag.FlagSet) error {
	var (
		cfg *config.Config
		err error
	)

	if s.configFile != "" {
		cfg, err = config.Load(s.configFile)
	} else {
		var cwd string

		cwd, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("getting current directory: %w", err)
		}

		cfg, err = config.LoadDefault(cwd)
	}

	if err != nil {
		return err
	}

	env, err := config.Environ(s.envFiles...)
	if err != nil {
		return err
	}

	if err := cfg.ApplyEnv(env); err != nil {
		return err
	}

	unset := func(name string) bool { return !flags.Changed(name) }

	if cfg.Output != nil && unset("output") {
		s.output = *cfg.Output
	}

	if cfg.Engine != nil && unset("engine") {
		s.options.Engine = *cfg.Engine
	}

	if cfg.Top != nil && unset("top") {
		s.options.TopN = *cfg.Top
	}

	if cfg.Depth != nil && unset("depth") {
		s.options.Depth = *cfg.Depth
	}

	if cfg.MaxEntries != nil && unset("max-entries") {
		s.options.MaxEntries = *cfg.MaxEntries
	}

	if cfg.Delay != nil && unset("delay") {
		s.options.Delay = *cfg.Delay
	}

	if cfg.Excludes != nil && unset("exclude") {
		s.options.Excludes = cfg.Excludes
	}

	if cfg.Extensions != nil && unset("ext") {
		s.options.Extensions = cfg.Extensions
	}

	if cfg.MinSize != nil && unset("min-size") {
		s.minSize = *cfg.MinSize
	}

	if cfg.SameSize != nil && unset("same-size") {
		s.options.SameSize = *cfg.SameSize
	}

	if cfg.Blocks != nil && unset("blocks") {
		s.options.Blocks = *cfg.Blocks
	}

	if cfg.Volume != nil && unset("volume") {
		s.options.Volume = *cfg.Volume
	}

	if cfg.Debug != nil && unset("debug") {
		s.debug = *cfg.Debug
	}

	return nil
}

func (s *settings) validate(flags *pflag.FlagSet) error {
	if !slices.Contains(allowedOutputs, s.output) {
		return fmt.Errorf("invalid output format %q: must be one of %v", s.output, allowedOutputs)
	}

	if s.output == OutputTree {
		if flags.Changed("engine") && s.options.Engine != dirspace.EngineTree {
			return fmt.Errorf("output %q requires engine %q", OutputTree, dirspace.EngineTree)
		}

		s.options.Engine = dirspace.EngineTree
	}

	if !slices.Contains(dirspace.Engines, s.options.Engine) {
		return fmt.Errorf("invalid engine %q: must be one of %v", s.options.Engine, dirspace.Engines)
	}

	if s.options.Depth < 0 {
		return errors.New("depth cannot be negative")
	}

	if s.options.MaxEntries < 0 {
		return errors.New("max-entries cannot be negative")
	}

	if s.options.TopN < 0 {
		return errors.New("top cannot be negative")
	}

	// Parse minSize string to bytes
	if s.minSize != "" {
		size, err := humanize.ParseBytes(s.minSize)
		if err != nil {
			return fmt.Errorf("invalid min-size: %w", err)
		}

		s.options.MinSize = size
	}

	return nil
}
