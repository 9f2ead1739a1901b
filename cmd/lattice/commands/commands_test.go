package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/lattice/pkg/observability"
)

const peopleCSV = `id,region,active
1,eu,true
2,us,false
,,
3,eu,true
`

// stubInit replaces observability.Init so tests never export telemetry.
func stubInit(cfg observability.Config) (observability.Providers, error) {
	return observability.Providers{
		Tracer: nooptrace.NewTracerProvider().Tracer("test"),
		Meter:  noopmetric.NewMeterProvider().Meter("test"),
		Logger: slog.New(slog.NewTextHandler(cfg.LogWriter, &slog.HandlerOptions{Level: cfg.LogLevel})),
	}, nil
}

type cliResult struct {
	stdout string
	stderr string
}

// newTestRoot builds a root command wired like main, with telemetry stubbed
// and an empty config file so the working directory is never searched.
func newTestRoot(t *testing.T) *cobra.Command {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), "lattice.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("logging:\n  level: warn\n"), 0o600))

	envPath := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envPath, nil, 0o600))

	g := &Globals{}
	root := &cobra.Command{Use: "lattice", SilenceUsage: true, SilenceErrors: true}
	g.Register(root)
	g.ConfigPath = cfgPath
	g.EnvFiles = []string{envPath}

	root.AddCommand(
		newLiftCommandWithDeps(g, "lift", stubInit),
		newLiftCommandWithDeps(g, "exact", stubInit),
		newProfileCommandWithDeps(g, stubInit),
		newMergeCommandWithDeps(g, stubInit),
	)

	return root
}

func execute(t *testing.T, stdin string, args ...string) (cliResult, error) {
	t.Helper()

	root := newTestRoot(t)

	var stdout, stderr bytes.Buffer

	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())

	return cliResult{stdout: stdout.String(), stderr: stderr.String()}, err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

// jsonLines decodes one JSON value per output line.
func jsonLines[T any](t *testing.T, out string) []T {
	t.Helper()

	dec := json.NewDecoder(strings.NewReader(out))

	var values []T

	for {
		var v T

		err := dec.Decode(&v)
		if errors.Is(err, io.EOF) {
			return values
		}

		require.NoError(t, err)

		values = append(values, v)
	}
}
