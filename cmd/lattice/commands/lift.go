package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/lattice/pkg/config"
	"github.com/Sumatoshi-tech/lattice/pkg/lattice"
	"github.com/Sumatoshi-tech/lattice/pkg/observability"
	"github.com/Sumatoshi-tech/lattice/pkg/source"
	"github.com/Sumatoshi-tech/lattice/pkg/tuple"
)

// LiftCommand streams the lattice of every input row as JSON lines.
type LiftCommand struct {
	globals *Globals
	mode    string
	size    int
	trace   bool
	initFn  initFunc
}

// NewLiftCommand creates the lift command, which prints the full power-set
// lattice of every row.
func NewLiftCommand(g *Globals) *cobra.Command {
	return newLiftCommandWithDeps(g, config.ModeLift, observability.Init)
}

// NewExactCommand creates the exact command, which prints the size-k lattice
// of every row keyed by column ordinals.
func NewExactCommand(g *Globals) *cobra.Command {
	return newLiftCommandWithDeps(g, config.ModeExact, observability.Init)
}

func newLiftCommandWithDeps(g *Globals, mode string, initFn initFunc) *cobra.Command {
	lc := &LiftCommand{globals: g, mode: mode, initFn: initFn}

	cmd := &cobra.Command{
		Use:   mode + " [path]",
		Short: "Print the power-set lattice hashes of every row",
		Long: `Read rows from a CSV or JSON file ('-' for stdin) or a postgres query and
print one JSON array of lattice hashes per row, in depth-first subset order.
Absent rows print null.`,
		Args: cobra.MaximumNArgs(1),
		RunE: lc.run,
	}

	if mode == config.ModeExact {
		cmd.Short = "Print the size-k lattice hashes of every row"
		cmd.Long = `Read rows and print one JSON object per row mapping each size-k column
subset, written as its column ordinals, to its hash. Absent rows print null.`
		cmd.Flags().IntVarP(&lc.size, "size", "k", config.DefaultLatticeSize, "Subset size k")
	}

	cmd.Flags().BoolVar(&lc.trace, "trace", false, "Also print the string lattice of every row to stderr")
	registerInputFlags(cmd)

	return cmd
}

func (lc *LiftCommand) override(cmd *cobra.Command, cfg *config.Config) {
	cfg.Lattice.Mode = lc.mode

	if lc.mode == config.ModeExact && (cmd.Flags().Changed("size") || cfg.Lattice.Size == 0) {
		cfg.Lattice.Size = lc.size
	}
}

func (lc *LiftCommand) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	sess, err := lc.globals.open(cmd, observability.ModeCLI, lc.initFn, lc.override, overrideColumns, overrideInput)
	if err != nil {
		return err
	}
	defer sess.close(ctx)

	src, err := sess.openSource(ctx, args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	defer src.Close()

	l, err := sess.newLifter(source.Bindings(src))
	if err != nil {
		return err
	}

	out, closeOut, err := sess.output(cmd.OutOrStdout())
	if err != nil {
		return err
	}

	err = lc.stream(cmd, src, l, out)

	return errors.Join(err, closeOut())
}

func (lc *LiftCommand) stream(cmd *cobra.Command, src source.Source, l lattice.Lifter, out io.Writer) error {
	ctx := cmd.Context()
	enc := json.NewEncoder(out)
	traceEnc := json.NewEncoder(cmd.ErrOrStderr())

	for line := 1; ; line++ {
		row, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return err
		}

		value, err := liftRow(l, row)
		if err != nil {
			return fmt.Errorf("row %d: %w", line, err)
		}

		err = enc.Encode(value)
		if err != nil {
			return fmt.Errorf("write row %d: %w", line, err)
		}

		if !lc.trace || row == nil {
			continue
		}

		strs, err := l.Strings(row)
		if err != nil {
			return fmt.Errorf("row %d: %w", line, err)
		}

		err = traceEnc.Encode(strs)
		if err != nil {
			return fmt.Errorf("trace row %d: %w", line, err)
		}
	}
}

// liftRow returns the JSON value printed for one row.
func liftRow(l lattice.Lifter, row tuple.Tuple) (any, error) {
	if row == nil {
		return nil, nil
	}

	if exact, ok := l.(*lattice.ExactLifter); ok {
		return exact.Map(row)
	}

	return l.Hashes(row)
}
