// Package render writes profile results as JSON, YAML, a terminal table or
// an HTML chart.
package render

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/lattice/pkg/freq"
	"github.com/Sumatoshi-tech/lattice/pkg/profile"
)

// Format selects an output encoding.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatText Format = "text"
	FormatPlot Format = "plot"
)

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("render: unknown format")

// Formats lists every supported format.
func Formats() []Format {
	return []Format{FormatJSON, FormatYAML, FormatText, FormatPlot}
}

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	if slices.Contains(Formats(), f) {
		return f, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// Options tunes rendering.
type Options struct {
	// Top keeps only the most frequent hashes of every position. Zero keeps all.
	Top int
	// NoColor disables ANSI colors in text output.
	NoColor bool
}

// Count is one hash and how many rows produced it at a position.
type Count struct {
	Hash  uint64 `json:"hash"  yaml:"hash"`
	Count int64  `json:"count" yaml:"count"`
}

// Position is the frequency table of one lattice position.
type Position struct {
	Index    int     `json:"index"    yaml:"index"`
	Subset   string  `json:"subset"   yaml:"subset"`
	Distinct int     `json:"distinct" yaml:"distinct"`
	Counts   []Count `json:"counts"   yaml:"counts"`
}

// Report is the rendered view of a profile result.
type Report struct {
	RunID     string     `json:"run_id"    yaml:"run_id"`
	Lift      string     `json:"lift"      yaml:"lift"`
	Columns   []string   `json:"columns"   yaml:"columns"`
	Rows      int64      `json:"rows"      yaml:"rows"`
	Skipped   int64      `json:"skipped"   yaml:"skipped"`
	Duration  string     `json:"duration"  yaml:"duration"`
	Positions []Position `json:"positions" yaml:"positions"`
}

// NewReport orders every position's counts by descending count, then by
// hash, and keeps the top ones.
func NewReport(res *profile.Result, top int) Report {
	positions := make([]Position, len(res.Maps))

	for i, m := range res.Maps {
		label := strconv.Itoa(i)
		if i < len(res.Labels) {
			label = res.Labels[i]
		}

		positions[i] = Position{
			Index:    i,
			Subset:   label,
			Distinct: len(m),
			Counts:   topCounts(m, top),
		}
	}

	return Report{
		RunID:     res.RunID.String(),
		Lift:      res.Lift,
		Columns:   res.Columns,
		Rows:      res.Rows,
		Skipped:   res.Skipped,
		Duration:  res.Duration.String(),
		Positions: positions,
	}
}

func topCounts(m freq.Map, top int) []Count {
	counts := make([]Count, 0, len(m))
	for h, c := range m {
		counts = append(counts, Count{Hash: h, Count: c})
	}

	slices.SortFunc(counts, func(a, b Count) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}

		return cmp.Compare(a.Hash, b.Hash)
	})

	if top > 0 && len(counts) > top {
		counts = counts[:top]
	}

	return counts
}

// Write renders res to w in the given format.
func Write(w io.Writer, format Format, res *profile.Result, opts Options) error {
	report := NewReport(res, opts.Top)

	switch format {
	case FormatJSON:
		return writeJSON(w, report)
	case FormatYAML:
		return writeYAML(w, report)
	case FormatText:
		return writeText(w, report, opts)
	case FormatPlot:
		return writePlot(w, report)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
