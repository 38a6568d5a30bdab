package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"time"

	"github.com/AnatoleLucet/observe"
	"github.com/AnatoleLucet/observe/loop"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func benchCmd() *cobra.Command {
	var (
		configPath  string
		profileName string
		metricsAddr string
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Mutate a component tree and measure the flushes",
		Long: `Build a tree of render watchers, each with a computed value over its
subtree, then run ticks of random mutations on an event loop.

The run is described by a profile: one of the built-in profiles (fast,
standard, stress) or a YAML file passed with --config.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, ok := profiles[profileName]
			if !ok {
				return fmt.Errorf("unknown profile %q", profileName)
			}
			if configPath != "" {
				var err error
				if p, err = LoadProfile(configPath); err != nil {
					return err
				}
			}

			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector())

			ctx := cmd.Context()
			if metricsAddr != "" {
				stop, err := serveMetrics(metricsAddr, reg, logger)
				if err != nil {
					return err
				}
				defer stop()
			}

			res, err := runBench(ctx, p, reg, logger)
			if err != nil {
				return err
			}

			res.Print(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML profile file")
	cmd.Flags().StringVarP(&profileName, "profile", "p", "fast", "built-in profile (fast, standard, stress)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the run")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	return cmd
}

// BenchResult sums up a bench run.
type BenchResult struct {
	Profile    Profile
	Components int
	Mutations  int
	Renders    int
	Errors     int
	Elapsed    time.Duration
}

func (r BenchResult) Print(w io.Writer) {
	fmt.Fprintf(w, "profile     %s (backend %s)\n", r.Profile.Name, r.Profile.Backend)
	fmt.Fprintf(w, "components  %d\n", r.Components)
	fmt.Fprintf(w, "ticks       %d\n", r.Profile.Ticks)
	fmt.Fprintf(w, "mutations   %d\n", r.Mutations)
	fmt.Fprintf(w, "renders     %d\n", r.Renders)
	fmt.Fprintf(w, "errors      %d\n", r.Errors)
	fmt.Fprintf(w, "elapsed     %s\n", r.Elapsed.Round(time.Microsecond))

	if r.Profile.Ticks > 0 {
		fmt.Fprintf(w, "per tick    %s\n", (r.Elapsed / time.Duration(r.Profile.Ticks)).Round(time.Nanosecond))
	}
}

type component struct {
	state    *observe.Ref[int]
	total    *observe.Computed[int]
	render   *observe.Render[int]
	children []*component
}

// tree is only touched from the loop goroutine.
type tree struct {
	components []*component
	renders    int
	errors     int
}

func (t *tree) build(depth, fanout int) *component {
	c := &component{state: observe.NewRef(0)}
	t.components = append(t.components, c)

	if depth > 1 {
		for range fanout {
			c.children = append(c.children, t.build(depth-1, fanout))
		}
	}

	c.total = observe.NewComputed(func() int {
		sum := c.state.Get()
		for _, child := range c.children {
			sum += child.total.Get()
		}
		return sum
	})

	c.render = observe.Mount(func() int {
		return c.total.Get()
	}, func(prev, next int) {
		t.renders++
	})

	return c
}

func (t *tree) mutate(rng *rand.Rand, n int) {
	observe.Batch(func() {
		for range n {
			c := t.components[rng.IntN(len(t.components))]
			c.state.Update(func(v int) int { return v + 1 })
		}
	})
}

func runBench(ctx context.Context, p Profile, reg prometheus.Registerer, logger *slog.Logger) (BenchResult, error) {
	l := loop.New(logger)

	runErr := make(chan error, 1)
	go func() { runErr <- l.Run(ctx) }()
	defer func() {
		l.Stop()
		<-l.Done()
	}()

	host, err := hostFor(l, p.Backend)
	if err != nil {
		return BenchResult{}, err
	}

	t := &tree{}

	var installErr error
	err = l.Do(ctx, func() {
		opts := []observe.Option{
			observe.WithHost(host),
			observe.WithLogger(logger),
			observe.WithErrorHandler(func(err error) {
				t.errors++
				logger.Error("bench: reported error", "err", err)
			}),
		}
		if reg != nil {
			opts = append(opts, observe.WithMetrics(reg))
		}
		if p.MaxUpdateCount > 0 {
			opts = append(opts, observe.WithMaxUpdateCount(p.MaxUpdateCount))
		}

		if installErr = observe.Install(opts...); installErr != nil {
			return
		}

		t.build(p.Depth, p.Fanout)
	})
	if err = errors.Join(err, installErr); err != nil {
		return BenchResult{}, err
	}

	rng := rand.New(rand.NewPCG(uint64(p.Seed), uint64(p.Seed)))
	started := time.Now()

	for range p.Ticks {
		var ticked <-chan struct{}
		err := l.Do(ctx, func() {
			t.mutate(rng, p.Mutations)
			ticked = observe.NextTick(nil)
		})
		if err != nil {
			return BenchResult{}, err
		}

		select {
		case <-ticked:
		case err := <-runErr:
			return BenchResult{}, fmt.Errorf("loop stopped: %w", err)
		case <-ctx.Done():
			return BenchResult{}, ctx.Err()
		}
	}

	res := BenchResult{
		Profile:   p,
		Mutations: p.Ticks * p.Mutations,
		Elapsed:   time.Since(started),
	}

	err = l.Do(ctx, func() {
		res.Components = len(t.components)
		res.Renders = t.renders
		res.Errors = t.errors
	})

	return res, err
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("bench: metrics server failed", "err", err)
		}
	}()

	logger.Info("bench: serving metrics", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
