package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/lattice/pkg/config"
	"github.com/Sumatoshi-tech/lattice/pkg/observability"
	"github.com/Sumatoshi-tech/lattice/pkg/persist"
	"github.com/Sumatoshi-tech/lattice/pkg/profile"
	"github.com/Sumatoshi-tech/lattice/pkg/render"
	"github.com/Sumatoshi-tech/lattice/pkg/source"
)

const (
	stateFilePrefix       = "lattice-"
	diagnosticsCloseGrace = 5 * time.Second
)

// ProfileCommand counts lattice value frequencies over a whole input.
type ProfileCommand struct {
	globals   *Globals
	saveState bool
	initFn    initFunc
}

// NewProfileCommand creates the profile command.
func NewProfileCommand(g *Globals) *cobra.Command {
	return newProfileCommandWithDeps(g, observability.Init)
}

func newProfileCommandWithDeps(g *Globals, initFn initFunc) *cobra.Command {
	pc := &ProfileCommand{globals: g, initFn: initFn}

	cmd := &cobra.Command{
		Use:   "profile [path]",
		Short: "Count how often each lattice value occurs across all rows",
		Long: `Lift every input row and count, per lattice position, how often each hash
occurs. Rows are split into batches and counted in parallel partitions whose
tables are combined at the end; the result does not depend on --workers.

With --save-state the un-finalized partial state is written to state.dir so
that partial profiles of a split input can be combined with 'lattice merge'.`,
		Args: cobra.MaximumNArgs(1),
		RunE: pc.run,
	}

	registerInputFlags(cmd)
	registerOutputFlags(cmd)
	cmd.Flags().String("mode", config.DefaultLatticeMode, "Lattice: lift (power set) or exact (size-k subsets)")
	cmd.Flags().IntP("size", "k", config.DefaultLatticeSize, "Subset size k for exact mode")
	cmd.Flags().Int("workers", config.DefaultPipelineWorkers, "Parallel partitions (0 = one per CPU)")
	cmd.Flags().Int("batch-size", config.DefaultPipelineBatchSize, "Rows per dispatched batch")
	cmd.Flags().String("metrics-addr", "", "Serve /metrics and /healthz on this address while profiling")
	cmd.Flags().BoolVar(&pc.saveState, "save-state", false, "Write the partial state to state.dir")
	cmd.Flags().String("state-dir", config.DefaultStateDir, "Directory for saved partial states")
	cmd.Flags().Bool("compress", config.DefaultStateCompress, "LZ4-compress saved partial states")

	return cmd
}

func registerOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", config.DefaultOutputFormat, "Output format: json, yaml, text, plot")
	cmd.Flags().Int("top", config.DefaultOutputTop, "Most frequent values listed per position (0 = all)")
	cmd.Flags().String("out", "", "Write the report to this file instead of stdout")
	cmd.Flags().Bool("no-color", false, "Disable colored text output")
}

func overrideOutput(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("output") {
		cfg.Output.Format, _ = cmd.Flags().GetString("output")
	}

	if cmd.Flags().Changed("top") {
		cfg.Output.Top, _ = cmd.Flags().GetInt("top")
	}

	if cmd.Flags().Changed("out") {
		cfg.Output.Path, _ = cmd.Flags().GetString("out")
	}

	if cmd.Flags().Changed("no-color") {
		cfg.Output.NoColor, _ = cmd.Flags().GetBool("no-color")
	}
}

func overrideProfile(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("mode") {
		cfg.Lattice.Mode, _ = flags.GetString("mode")
	}

	if flags.Changed("size") {
		cfg.Lattice.Size, _ = flags.GetInt("size")
	}

	if flags.Changed("workers") {
		cfg.Pipeline.Workers, _ = flags.GetInt("workers")
	}

	if flags.Changed("batch-size") {
		cfg.Pipeline.BatchSize, _ = flags.GetInt("batch-size")
	}

	if flags.Changed("metrics-addr") {
		cfg.Telemetry.MetricsAddr, _ = flags.GetString("metrics-addr")
	}

	if flags.Changed("state-dir") {
		cfg.State.Dir, _ = flags.GetString("state-dir")
	}

	if flags.Changed("compress") {
		cfg.State.Compress, _ = flags.GetBool("compress")
	}
}

func (pc *ProfileCommand) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	sess, err := pc.globals.open(cmd, observability.ModeBatch, pc.initFn,
		overrideColumns, overrideInput, overrideOutput, overrideProfile)
	if err != nil {
		return err
	}
	defer sess.close(ctx)

	stopDiagnostics, err := sess.serveDiagnostics()
	if err != nil {
		return err
	}
	defer stopDiagnostics()

	src, err := sess.openSource(ctx, args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	defer src.Close()

	l, err := sess.newLifter(source.Bindings(src))
	if err != nil {
		return err
	}

	metrics, err := observability.NewProfileMetrics(sess.providers.Meter)
	if err != nil {
		return err
	}

	agg, err := profile.Collect(ctx, src, l, profile.Options{
		Workers:   sess.cfg.Pipeline.Workers,
		BatchSize: sess.cfg.Pipeline.BatchSize,
		Logger:    sess.logger,
		Tracer:    sess.providers.Tracer,
		Metrics:   metrics,
	})
	if err != nil {
		return err
	}

	if pc.saveState {
		err = sess.savePartial(ctx, agg)
		if err != nil {
			return err
		}
	}

	res, err := agg.Finalize()
	if err != nil {
		return err
	}

	return sess.writeReport(cmd.OutOrStdout(), res)
}

// serveDiagnostics starts the metrics endpoint when telemetry.metrics_addr is set.
func (s *session) serveDiagnostics() (func(), error) {
	addr := s.cfg.Telemetry.MetricsAddr
	if addr == "" || s.providers.MetricsHandler == nil {
		return func() {}, nil
	}

	srv, err := observability.NewDiagnosticsServer(addr, s.providers.MetricsHandler, s.logger)
	if err != nil {
		return nil, err
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), diagnosticsCloseGrace)
		defer cancel()

		err := srv.Close(ctx)
		if err != nil {
			s.logger.Warn("diagnostics server shutdown failed", "error", err)
		}
	}, nil
}

// stateCodec returns the codec selected by state.codec and state.compress.
func (s *session) stateCodec() persist.Codec {
	var codec persist.Codec = persist.NewGobCodec()
	if s.cfg.State.Codec == "json" {
		codec = persist.NewJSONCodec()
	}

	if s.cfg.State.Compress {
		codec = persist.NewLZ4Codec(codec)
	}

	return codec
}

func (s *session) savePartial(ctx context.Context, agg *profile.Aggregate) error {
	partial, err := agg.Partial()
	if err != nil {
		return err
	}

	path, err := persist.NewPersister[profile.Partial](s.stateCodec()).
		Save(s.cfg.State.Dir, stateFilePrefix+partial.RunID, &partial)
	if err != nil {
		return fmt.Errorf("save partial state: %w", err)
	}

	s.logger.InfoContext(ctx, "partial state saved", "run_id", partial.RunID, "path", path)

	return nil
}

func (s *session) writeReport(stdout io.Writer, res *profile.Result) error {
	format, err := render.ParseFormat(s.cfg.Output.Format)
	if err != nil {
		return err
	}

	out, closeOut, err := s.output(stdout)
	if err != nil {
		return err
	}

	err = render.Write(out, format, res, render.Options{Top: s.cfg.Output.Top, NoColor: s.cfg.Output.NoColor})

	return errors.Join(err, closeOut())
}
