package internal

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
)

// Ticker defers callbacks to the next tick of the host.
// Callbacks queued while a tick runs belong to the following tick.
type Ticker struct {
	rt *Runtime

	callbacks []func()
	pending   bool

	backend backend

	// number of ticks that ran
	ticks int
}

func NewTicker(r *Runtime, host any) (*Ticker, error) {
	t := &Ticker{
		rt:        r,
		callbacks: make([]func(), 0),
	}

	b, err := selectBackend(host, t.flush)
	if err != nil {
		return nil, err
	}
	t.backend = b

	return t, nil
}

// Schedule appends cb to the next tick, requesting the tick from the host if needed.
func (t *Ticker) Schedule(cb func()) {
	t.callbacks = append(t.callbacks, cb)

	if !t.pending {
		t.pending = true
		t.backend.request()
	}
}

// NextTick defers fn to the next tick, failures are reported instead of aborting the tick.
// Without fn, the returned channel is closed once the tick ran.
func (t *Ticker) NextTick(fn func()) <-chan struct{} {
	var done chan struct{}
	if fn == nil {
		done = make(chan struct{})
	}

	t.Schedule(func() {
		if fn == nil {
			close(done)
			return
		}

		err := safeCall(func() error {
			fn()
			return nil
		})
		if err != nil {
			t.rt.report(&Error{Phase: PhaseNextTick, Err: err}, nil)
		}
	})

	return done
}

func (t *Ticker) flush() {
	_, span := t.rt.tracer.Start(context.Background(), "observe.tick")
	defer span.End()

	t.pending = false
	t.ticks++

	callbacks := t.callbacks
	t.callbacks = make([]func(), 0)

	span.SetAttributes(attribute.Int("observe.callbacks", len(callbacks)))
	t.rt.metrics.tick(len(callbacks))

	for _, cb := range callbacks {
		err := safeCall(func() error {
			cb()
			return nil
		})
		if err != nil {
			t.rt.report(&Error{Phase: PhaseNextTick, Err: err}, nil)
		}
	}
}

func (t *Ticker) Backend() BackendKind {
	return t.backend.kind
}

func (t *Ticker) UsesMicrotask() bool {
	return t.backend.kind.Microtask()
}

func (t *Ticker) Pending() bool {
	return t.pending
}

// Ticks is the number of ticks that ran.
func (t *Ticker) Ticks() int {
	return t.ticks
}
