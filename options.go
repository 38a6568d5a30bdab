package observe

import (
	"log/slog"

	"github.com/AnatoleLucet/observe/internal"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

type (
	Error = internal.Error
	Phase = internal.Phase
	Kind  = internal.Kind

	BackendKind = internal.BackendKind

	MicrotaskQueuer    = internal.MicrotaskQueuer
	MutationObserver   = internal.MutationObserver
	ImmediateScheduler = internal.ImmediateScheduler
	TimeoutScheduler   = internal.TimeoutScheduler
)

const (
	PhaseGetter   = internal.PhaseGetter
	PhaseCallback = internal.PhaseCallback
	PhaseBefore   = internal.PhaseBefore
	PhaseUpdated  = internal.PhaseUpdated
	PhaseFlush    = internal.PhaseFlush
	PhaseNextTick = internal.PhaseNextTick

	KindRender   = internal.KindRender
	KindComputed = internal.KindComputed
	KindUser     = internal.KindUser

	BackendMicrotask = internal.BackendMicrotask
	BackendObserver  = internal.BackendObserver
	BackendImmediate = internal.BackendImmediate
	BackendTimeout   = internal.BackendTimeout

	DefaultMaxUpdateCount = internal.DefaultMaxUpdateCount
)

var (
	ErrInfiniteUpdate = internal.ErrInfiniteUpdate
	ErrPanic          = internal.ErrPanic
	ErrNoBackend      = internal.ErrNoBackend
)

type Option func(*internal.Config)

// Install replaces the runtime of the calling goroutine with one built from opts.
// Reactive values created before belong to the previous runtime.
func Install(opts ...Option) error {
	cfg := internal.DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	rt, err := internal.NewRuntime(cfg)
	if err != nil {
		return err
	}

	internal.SetRuntime(rt)
	return nil
}

// WithHost schedules ticks on host, see MicrotaskQueuer, MutationObserver,
// ImmediateScheduler and TimeoutScheduler for the capabilities probed, in that order.
func WithHost(host any) Option {
	return func(c *internal.Config) { c.Host = host }
}

// WithSync flushes watchers right when they are queued instead of once per tick.
func WithSync() Option {
	return func(c *internal.Config) { c.Async = false }
}

// WithMaxUpdateCount sets how many times a watcher can queue itself again during one flush.
func WithMaxUpdateCount(n int) Option {
	return func(c *internal.Config) { c.MaxUpdateCount = n }
}

// WithErrorHandler receives the errors no owner caught.
func WithErrorHandler(fn func(error)) Option {
	return func(c *internal.Config) { c.ErrorHandler = fn }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *internal.Config) { c.Logger = logger }
}

// WithMetrics registers the scheduler metrics on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *internal.Config) { c.Registerer = reg }
}

// WithNamespace prefixes the metric names, "observe" by default.
func WithNamespace(namespace string) Option {
	return func(c *internal.Config) { c.Namespace = namespace }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(c *internal.Config) { c.Tracer = tracer }
}

type RefOption[T any] func(*internal.PropOptions)

// WithEqual replaces the change check of a ref.
func WithEqual[T any](equal func(a, b T) bool) RefOption[T] {
	return func(o *internal.PropOptions) {
		o.Equal = func(a, b any) bool { return equal(as[T](a), as[T](b)) }
	}
}

type WatchOption func(*internal.WatcherOptions)

func watchOptions(opts []WatchOption) internal.WatcherOptions {
	var o internal.WatcherOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Deep makes the watcher track every nested value of Objects and Lists it returns.
// The callback is then called on every change, even if the returned value is the same.
func Deep() WatchOption {
	return func(o *internal.WatcherOptions) { o.Deep = true }
}

// Sync runs the watcher right when a dependency changes instead of queueing it.
func Sync() WatchOption {
	return func(o *internal.WatcherOptions) { o.Sync = true }
}

// Immediate calls the callback once with the initial value.
func Immediate() WatchOption {
	return func(o *internal.WatcherOptions) { o.Immediate = true }
}

// Before is called during the flush, right before the watcher runs again.
func Before(fn func()) WatchOption {
	return func(o *internal.WatcherOptions) { o.Before = fn }
}

// OnUpdated is called after the flush that ran the watcher.
func OnUpdated(fn func()) WatchOption {
	return func(o *internal.WatcherOptions) { o.OnUpdated = fn }
}

// Label describes the watcher in the errors it reports.
func Label(label string) WatchOption {
	return func(o *internal.WatcherOptions) { o.Label = label }
}
