// Package commands implements CLI command handlers for lattice.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/lattice/pkg/config"
	"github.com/Sumatoshi-tech/lattice/pkg/lattice"
	"github.com/Sumatoshi-tech/lattice/pkg/observability"
	"github.com/Sumatoshi-tech/lattice/pkg/source"
	"github.com/Sumatoshi-tech/lattice/pkg/version"
)

// stdinPath selects standard input as the row source.
const stdinPath = "-"

// ErrNoInput is returned when neither an argument nor input.path names a source.
var ErrNoInput = errors.New("no input: pass a file path, '-' for stdin, or set input.path")

// Globals holds the root persistent flags shared by every command.
type Globals struct {
	ConfigPath string
	EnvFiles   []string
	Verbose    bool
	Quiet      bool
}

// Register adds the persistent flags to the root command.
func (g *Globals) Register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&g.ConfigPath, "config", "", "Config file (default: lattice.yaml in ., ./config, /etc/lattice)")
	cmd.PersistentFlags().StringSliceVar(&g.EnvFiles, "env-file", nil, "Env files loaded before config (default: optional .env)")
	cmd.PersistentFlags().BoolVarP(&g.Verbose, "verbose", "v", false, "Verbose logging")
	cmd.PersistentFlags().BoolVarP(&g.Quiet, "quiet", "q", false, "Only log errors")
}

// initFunc builds observability providers; tests substitute it.
type initFunc func(observability.Config) (observability.Providers, error)

// session is the per-invocation environment: resolved config and telemetry.
type session struct {
	cfg       *config.Config
	providers observability.Providers
	logger    *slog.Logger
}

// flagOverride applies one changed command-line flag to the loaded config.
type flagOverride func(cmd *cobra.Command, cfg *config.Config)

func (g *Globals) open(cmd *cobra.Command, mode observability.AppMode, initFn initFunc, overrides ...flagOverride) (*session, error) {
	cfg, err := config.LoadConfig(g.ConfigPath, g.EnvFiles...)
	if err != nil {
		return nil, err
	}

	for _, apply := range overrides {
		apply(cmd, cfg)
	}

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}

	obsCfg, err := g.observabilityConfig(cfg, mode, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	providers, err := initFn(obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	return &session{cfg: cfg, providers: providers, logger: providers.Logger}, nil
}

func (g *Globals) observabilityConfig(cfg *config.Config, mode observability.AppMode, logOut io.Writer) (observability.Config, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return observability.Config{}, err
	}

	switch {
	case g.Verbose:
		level = slog.LevelDebug
	case g.Quiet:
		level = slog.LevelError
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Environment = cfg.Logging.Environment
	obsCfg.Mode = mode
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(cfg.Telemetry.OTLPHeaders)
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.SampleRatio = cfg.Telemetry.SampleRatio
	obsCfg.Prometheus = cfg.Telemetry.MetricsAddr != ""
	obsCfg.LogLevel = level
	obsCfg.LogJSON = cfg.Logging.JSON
	obsCfg.LogNoColor = cfg.Output.NoColor
	obsCfg.LogWriter = logOut

	return obsCfg, nil
}

func (s *session) close(ctx context.Context) {
	if s.providers.Shutdown == nil {
		return
	}

	err := s.providers.Shutdown(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "observability shutdown failed", "error", err)
	}
}

// openSource opens the configured input, narrowed to lattice.columns.
func (s *session) openSource(ctx context.Context, args []string, stdin io.Reader) (source.Source, error) {
	in := s.cfg.Input

	path := in.Path
	if len(args) > 0 {
		path = args[0]
	}

	var (
		src source.Source
		err error
	)

	switch resolveInputFormat(in.Format, path) {
	case config.InputPostgres:
		src, err = source.ConnectPostgres(ctx, in.DSN, in.Query)
	case config.InputJSON:
		src, err = openJSON(path, stdin)
	default:
		src, err = openCSV(path, stdin, source.CSVOptions{Delimiter: s.cfg.Delimiter(), KeepText: in.KeepText})
	}

	if err != nil {
		return nil, err
	}

	if in.OrdinalsFromNames {
		named, namedErr := source.WithOrdinalsFromNames(src)
		if namedErr != nil {
			src.Close()

			return nil, namedErr
		}

		src = named
	}

	proj, err := source.Project(src, s.cfg.Lattice.Columns)
	if err != nil {
		src.Close()

		return nil, err
	}

	return proj, nil
}

// resolveInputFormat lets a .json path override the default csv format.
func resolveInputFormat(configured, path string) string {
	if configured == config.InputCSV && strings.EqualFold(filepath.Ext(path), ".json") {
		return config.InputJSON
	}

	return configured
}

func openCSV(path string, stdin io.Reader, opts source.CSVOptions) (source.Source, error) {
	switch path {
	case "":
		return nil, ErrNoInput
	case stdinPath:
		return source.NewCSV(stdin, opts)
	default:
		return source.OpenCSV(path, opts)
	}
}

func openJSON(path string, stdin io.Reader) (source.Source, error) {
	switch path {
	case "":
		return nil, ErrNoInput
	case stdinPath:
		return source.NewJSON(stdin)
	default:
		return source.OpenJSON(path)
	}
}

// newLifter builds the lifter selected by lattice.mode for the source's bindings.
func (s *session) newLifter(bindings []lattice.Binding) (lattice.Lifter, error) {
	if s.cfg.Lattice.Mode == config.ModeExact {
		err := s.cfg.CheckSize(len(bindings))
		if err != nil {
			return nil, err
		}

		return lattice.NewExactLifter(bindings, s.cfg.Lattice.Size), nil
	}

	return lattice.NewPowerLifter(bindings)
}

// output opens output.path, or returns w when it is unset.
func (s *session) output(w io.Writer) (io.Writer, func() error, error) {
	if s.cfg.Output.Path == "" {
		return w, func() error { return nil }, nil
	}

	f, err := os.Create(s.cfg.Output.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}

	return f, f.Close, nil
}

// Common flag overrides.

func overrideColumns(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("columns") {
		cfg.Lattice.Columns, _ = cmd.Flags().GetStringSlice("columns")
	}
}

func overrideInput(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("input-format") {
		cfg.Input.Format, _ = cmd.Flags().GetString("input-format")
	}

	if cmd.Flags().Changed("delimiter") {
		cfg.Input.Delimiter, _ = cmd.Flags().GetString("delimiter")
	}

	if cmd.Flags().Changed("keep-text") {
		cfg.Input.KeepText, _ = cmd.Flags().GetBool("keep-text")
	}

	if cmd.Flags().Changed("ordinals-from-names") {
		cfg.Input.OrdinalsFromNames, _ = cmd.Flags().GetBool("ordinals-from-names")
	}

	if cmd.Flags().Changed("query") {
		cfg.Input.Query, _ = cmd.Flags().GetString("query")
	}
}

func registerInputFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("columns", nil, "Columns to lift, in order (default: all)")
	cmd.Flags().String("input-format", config.DefaultInputFormat, "Input format: csv, json, postgres")
	cmd.Flags().String("delimiter", config.DefaultInputDelimiter, "CSV field delimiter")
	cmd.Flags().Bool("keep-text", false, "Do not infer numbers and booleans from CSV text")
	cmd.Flags().Bool("ordinals-from-names", false, "Take column ordinals from col<N> names instead of positions")
	cmd.Flags().String("query", "", "SQL query for postgres input (dsn comes from input.dsn)")
}
