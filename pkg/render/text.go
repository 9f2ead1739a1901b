package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const percentageValue = 100

// textTop is the number of leading hashes shown per position when Options.Top is unset.
const textTop = 3

func writeText(w io.Writer, report Report, opts Options) error {
	title := color.New(color.FgCyan, color.Bold)
	muted := color.New(color.Faint)

	if opts.NoColor {
		title.DisableColor()
		muted.DisableColor()
	}

	header := fmt.Sprintf("%s lattice over %s", report.Lift, strings.Join(report.Columns, ", "))
	summary := fmt.Sprintf("run %s: %s rows, %s skipped, %d positions, %s",
		report.RunID, humanize.Comma(report.Rows), humanize.Comma(report.Skipped),
		len(report.Positions), report.Duration)

	_, err := fmt.Fprintf(w, "%s\n%s\n\n", title.Sprint(header), muted.Sprint(summary))
	if err != nil {
		return fmt.Errorf("write text: %w", err)
	}

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false
	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	tbl.AppendHeader(table.Row{"#", "Subset", "Distinct", "Top hash", "Count", "Share"})

	shown := opts.Top
	if shown <= 0 {
		shown = textTop
	}

	for _, p := range report.Positions {
		if len(p.Counts) == 0 {
			tbl.AppendRow(table.Row{p.Index, p.Subset, humanize.Comma(int64(p.Distinct)), "-", "-", "-"})

			continue
		}

		for i, c := range p.Counts[:min(shown, len(p.Counts))] {
			idx, subset, distinct := any(""), "", ""
			if i == 0 {
				idx, subset, distinct = p.Index, p.Subset, humanize.Comma(int64(p.Distinct))
			}

			tbl.AppendRow(table.Row{idx, subset, distinct, hexHash(c.Hash), humanize.Comma(c.Count), share(c.Count, report.Rows)})
		}
	}

	_, err = fmt.Fprintln(w, tbl.Render())
	if err != nil {
		return fmt.Errorf("write text: %w", err)
	}

	return nil
}

func hexHash(h uint64) string {
	return "0x" + strconv.FormatUint(h, 16)
}

func share(count, total int64) string {
	if total == 0 {
		return "-"
	}

	return strconv.FormatFloat(float64(count)*percentageValue/float64(total), 'f', 1, 64) + "%"
}
