package internal

import (
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "observe"

type Config struct {
	// Async batches watcher updates into ticks, otherwise they flush synchronously
	Async bool

	// how many times a watcher may re-queue itself during one flush
	MaxUpdateCount int

	// Host provides the tick backend, nil uses the built-in checkpoint
	Host any

	// ErrorHandler receives the failures no owner caught, nil logs them
	ErrorHandler func(err error)

	Logger *slog.Logger

	// Registerer enables metrics when set
	Registerer prometheus.Registerer
	Namespace  string

	Tracer trace.Tracer
}

func DefaultConfig() Config {
	return Config{
		Async:          true,
		MaxUpdateCount: DefaultMaxUpdateCount,
		Namespace:      "observe",
	}
}

type Runtime struct {
	config Config
	logger *slog.Logger
	tracer trace.Tracer

	targets    *TargetStack
	batcher    *Batcher
	scheduler  *Scheduler
	ticker     *Ticker
	checkpoint *Checkpoint
	metrics    *Metrics

	currentOwner *Owner

	depIDs     uint64
	watcherIDs uint64
}

func NewRuntime(cfg Config) (*Runtime, error) {
	if cfg.MaxUpdateCount <= 0 {
		cfg.MaxUpdateCount = DefaultMaxUpdateCount
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "observe"
	}

	r := &Runtime{
		config: cfg,
		logger: cfg.Logger,
		tracer: cfg.Tracer,

		targets: NewTargetStack(),
		batcher: NewBatcher(),
	}

	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.tracer == nil {
		r.tracer = otel.Tracer(tracerName)
	}

	if cfg.Registerer != nil {
		m, err := NewMetrics(cfg.Registerer, cfg.Namespace)
		if err != nil {
			return nil, err
		}
		r.metrics = m
	}

	host := cfg.Host
	if host == nil {
		r.checkpoint = NewCheckpoint(func(err error) {
			r.report(&Error{Phase: PhaseNextTick, Err: err}, nil)
		})
		host = r.checkpoint
	}

	ticker, err := NewTicker(r, host)
	if err != nil {
		return nil, err
	}
	r.ticker = ticker
	r.scheduler = NewScheduler(r)

	r.logger.Debug("observe: tick backend selected",
		"backend", ticker.Backend().String(),
		"microtask", ticker.UsesMicrotask(),
	)

	return r, nil
}

// MustRuntime is NewRuntime for configurations that cannot fail.
func MustRuntime(cfg Config) *Runtime {
	r, err := NewRuntime(cfg)
	if err != nil {
		panic(err)
	}

	return r
}

func (r *Runtime) Config() Config          { return r.config }
func (r *Runtime) Targets() *TargetStack   { return r.targets }
func (r *Runtime) Scheduler() *Scheduler   { return r.scheduler }
func (r *Runtime) Ticker() *Ticker         { return r.ticker }
func (r *Runtime) Checkpoint() *Checkpoint { return r.checkpoint }
func (r *Runtime) CurrentTarget() *Watcher { return r.targets.Current() }
func (r *Runtime) CurrentOwner() *Owner    { return r.currentOwner }
func (r *Runtime) IsBatching() bool        { return r.batcher.IsBatching() }

// NextTick defers fn to the next tick, see Ticker.NextTick.
func (r *Runtime) NextTick(fn func()) <-chan struct{} {
	var done <-chan struct{}
	r.Batch(func() { done = r.ticker.NextTick(fn) })
	return done
}

// Untrack runs fn without a current target, reads inside it are not tracked.
func (r *Runtime) Untrack(fn func()) {
	r.targets.RunUntracked(fn)
}

// report hands err to the owner chain, then to the configured handler.
func (r *Runtime) report(err error, owner *Owner) {
	var e *Error
	if errors.As(err, &e) {
		r.metrics.reported(e.Phase)
	}

	for o := owner; o != nil; o = o.parent {
		if !o.capture(err) {
			return
		}
	}

	if r.config.ErrorHandler != nil {
		handled := safeCall(func() error {
			r.config.ErrorHandler(err)
			return nil
		})
		if handled == nil {
			return
		}

		r.logger.Error("observe: error handler failed", "err", handled)
	}

	r.logger.Error("observe: unhandled error", "err", err)
}
