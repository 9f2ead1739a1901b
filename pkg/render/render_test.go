package render_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/lattice/pkg/freq"
	"github.com/Sumatoshi-tech/lattice/pkg/profile"
	"github.com/Sumatoshi-tech/lattice/pkg/render"
)

func sampleResult() *profile.Result {
	return &profile.Result{
		RunID:   uuid.MustParse("6f1c1c1e-7d0b-4c39-9a57-2f7b9a0c9e11"),
		Lift:    profile.LiftPower,
		Columns: []string{"city", "zip"},
		Labels:  []string{"{city}", "{city,zip}", "{zip}"},
		Rows:    4,
		Skipped: 1,
		Maps: []freq.Map{
			{10: 3, 11: 1},
			{20: 1, 21: 1, 22: 2},
			{30: 4},
		},
		Duration: 1500 * time.Millisecond,
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	for _, f := range render.Formats() {
		got, err := render.ParseFormat(" " + strings.ToUpper(string(f)) + " ")
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}

	_, err := render.ParseFormat("xml")
	require.ErrorIs(t, err, render.ErrUnknownFormat)
}

func TestNewReport_OrdersAndTrims(t *testing.T) {
	t.Parallel()

	report := render.NewReport(sampleResult(), 2)

	require.Len(t, report.Positions, 3)

	p := report.Positions[1]
	assert.Equal(t, "{city,zip}", p.Subset)
	assert.Equal(t, 3, p.Distinct)
	assert.Equal(t, []render.Count{{Hash: 22, Count: 2}, {Hash: 20, Count: 1}}, p.Counts)

	assert.Equal(t, "1.5s", report.Duration)
	assert.Equal(t, "6f1c1c1e-7d0b-4c39-9a57-2f7b9a0c9e11", report.RunID)
}

func TestNewReport_MissingLabels(t *testing.T) {
	t.Parallel()

	res := sampleResult()
	res.Labels = nil

	report := render.NewReport(res, 0)
	assert.Equal(t, "2", report.Positions[2].Subset)
	assert.Len(t, report.Positions[1].Counts, 3)
}

func TestWrite_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, render.Write(&buf, render.FormatJSON, sampleResult(), render.Options{}))

	var got render.Report

	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, render.NewReport(sampleResult(), 0), got)
}

func TestWrite_YAML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, render.Write(&buf, render.FormatYAML, sampleResult(), render.Options{Top: 1}))

	var got render.Report

	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, render.NewReport(sampleResult(), 1), got)
}

func TestWrite_Text(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, render.Write(&buf, render.FormatText, sampleResult(), render.Options{NoColor: true}))

	out := buf.String()
	assert.Contains(t, out, "power lattice over city, zip")
	assert.Contains(t, out, "{city,zip}")
	assert.Contains(t, out, "0x16")
	assert.Contains(t, out, "100.0%")
	assert.Contains(t, out, "75.0%")
	assert.NotContains(t, out, "\x1b[")
}

func TestWrite_TextEmptyPosition(t *testing.T) {
	t.Parallel()

	res := sampleResult()
	res.Maps[0] = freq.Map{}

	var buf bytes.Buffer

	require.NoError(t, render.Write(&buf, render.FormatText, res, render.Options{NoColor: true}))
	assert.Contains(t, buf.String(), "{city}")
}

func TestWrite_Plot(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, render.Write(&buf, render.FormatPlot, sampleResult(), render.Options{}))

	out := buf.String()
	assert.Contains(t, out, "<html")
	assert.Contains(t, out, "echarts")
	assert.Contains(t, out, "Distinct values")
}

func TestWrite_UnknownFormat(t *testing.T) {
	t.Parallel()

	err := render.Write(&bytes.Buffer{}, render.Format("csv"), sampleResult(), render.Options{})
	require.ErrorIs(t, err, render.ErrUnknownFormat)
}
