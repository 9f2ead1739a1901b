package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/lattice/pkg/observability"
	"github.com/Sumatoshi-tech/lattice/pkg/persist"
	"github.com/Sumatoshi-tech/lattice/pkg/profile"
)

// MergeCommand combines saved partial states into one report.
type MergeCommand struct {
	globals *Globals
	initFn  initFunc
}

// NewMergeCommand creates the merge command.
func NewMergeCommand(g *Globals) *cobra.Command {
	return newMergeCommandWithDeps(g, observability.Init)
}

func newMergeCommandWithDeps(g *Globals, initFn initFunc) *cobra.Command {
	mc := &MergeCommand{globals: g, initFn: initFn}

	cmd := &cobra.Command{
		Use:   "merge <state-file>...",
		Short: "Combine partial states saved by 'profile --save-state'",
		Long: `Load partial states written by 'lattice profile --save-state', combine them
and render the finalized profile. Every partial must come from the same
lattice: same mode, columns and subset size. The codec of each file is picked
from its extension (.gob, .json, optionally followed by .lz4).`,
		Args: cobra.MinimumNArgs(1),
		RunE: mc.run,
	}

	registerOutputFlags(cmd)

	return cmd
}

func (mc *MergeCommand) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	sess, err := mc.globals.open(cmd, observability.ModeCLI, mc.initFn, overrideOutput)
	if err != nil {
		return err
	}
	defer sess.close(ctx)

	loader := persist.NewPersister[profile.Partial](sess.stateCodec())
	partials := make([]profile.Partial, 0, len(args))

	for _, path := range args {
		p, loadErr := loader.Load(path)
		if loadErr != nil {
			return fmt.Errorf("load %s: %w", path, loadErr)
		}

		sess.logger.DebugContext(ctx, "partial state loaded",
			"path", path, "run_id", p.RunID, "rows", p.State.Rows)

		partials = append(partials, *p)
	}

	agg, err := profile.Merge(partials)
	if err != nil {
		return err
	}

	sess.logger.InfoContext(ctx, "partial states merged",
		"run_id", agg.RunID.String(), "partials", len(partials), "rows", agg.State.Rows())

	res, err := agg.Finalize()
	if err != nil {
		return err
	}

	return sess.writeReport(cmd.OutOrStdout(), res)
}
