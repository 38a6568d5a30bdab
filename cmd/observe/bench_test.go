package main

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunBench(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			p := Profile{
				Name:      "test",
				Depth:     3,
				Fanout:    3,
				Ticks:     10,
				Mutations: 5,
				Seed:      7,
				Backend:   backend,
			}
			require.NoError(t, p.Validate())

			reg := prometheus.NewRegistry()
			res, err := runBench(ctx, p, reg, slog.New(slog.DiscardHandler))
			require.NoError(t, err)

			assert.Equal(t, 13, res.Components)
			assert.Equal(t, 50, res.Mutations)
			assert.Zero(t, res.Errors)

			// every component renders once on mount, and at least the root rerenders
			assert.Greater(t, res.Renders, res.Components)

			flushes, err := testutil.GatherAndCount(reg, "observe_scheduler_flushes_total")
			require.NoError(t, err)
			assert.Equal(t, 1, flushes)
		})
	}
}

func TestBenchResultPrint(t *testing.T) {
	var buf bytes.Buffer

	BenchResult{
		Profile:    Profile{Name: "fast", Backend: "microtask", Ticks: 2},
		Components: 21,
		Mutations:  20,
		Renders:    40,
		Elapsed:    4 * time.Millisecond,
	}.Print(&buf)

	assert.Contains(t, buf.String(), "profile     fast (backend microtask)")
	assert.Contains(t, buf.String(), "renders     40")
	assert.Contains(t, buf.String(), "per tick    2ms")
}

func TestCommands(t *testing.T) {
	t.Run("probe", func(t *testing.T) {
		var out bytes.Buffer

		cmd := probeCmd()
		cmd.SetOut(&out)
		require.NoError(t, cmd.ExecuteContext(context.Background()))

		assert.Contains(t, out.String(), "HOST")
		assert.Regexp(t, `loop\s+microtask\s+true`, out.String())
		assert.Regexp(t, `observer\s+observer\s+true`, out.String())
		assert.Regexp(t, `immediate\s+immediate\s+false`, out.String())
		assert.Regexp(t, `timeout\s+timeout\s+false`, out.String())
	})

	t.Run("bench", func(t *testing.T) {
		var out, errOut bytes.Buffer

		cmd := benchCmd()
		cmd.SetOut(&out)
		cmd.SetErr(&errOut)
		cmd.SetArgs([]string{"--profile", "fast"})
		require.NoError(t, cmd.ExecuteContext(context.Background()))

		assert.Contains(t, out.String(), "components  21")
		assert.Contains(t, out.String(), "ticks       100")
	})

	t.Run("bench with an unknown profile", func(t *testing.T) {
		cmd := benchCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"--profile", "nope"})

		assert.ErrorContains(t, cmd.ExecuteContext(context.Background()), `unknown profile "nope"`)
	})

	t.Run("version", func(t *testing.T) {
		var out bytes.Buffer

		cmd := versionCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"--short"})
		require.NoError(t, cmd.Execute())

		assert.Equal(t, "dev\n", out.String())
	})
}
