package internal

import (
	"time"
)

// MicrotaskQueuer is a host with a native microtask queue.
type MicrotaskQueuer interface {
	QueueMicrotask(fn func())
}

// MutationObserver is a host that delivers an observed change at its next microtask checkpoint.
// Observe registers fn once, each call to trigger schedules one delivery.
type MutationObserver interface {
	Observe(fn func()) (trigger func())
}

// ImmediateScheduler is a host with an "as soon as possible" macrotask queue.
type ImmediateScheduler interface {
	SetImmediate(fn func())
}

// TimeoutScheduler is a host with timers.
type TimeoutScheduler interface {
	SetTimeout(fn func(), delay time.Duration)
}

type BackendKind int

const (
	BackendMicrotask BackendKind = iota
	BackendObserver
	BackendImmediate
	BackendTimeout
)

func (k BackendKind) String() string {
	switch k {
	case BackendMicrotask:
		return "microtask"
	case BackendObserver:
		return "observer"
	case BackendImmediate:
		return "immediate"
	case BackendTimeout:
		return "timeout"
	}
	return "unknown"
}

// Microtask reports whether the backend runs after the current synchronous code and before the host's next task.
func (k BackendKind) Microtask() bool {
	return k == BackendMicrotask || k == BackendObserver
}

type backend struct {
	kind    BackendKind
	request func()
}

// selectBackend probes host capabilities from highest to lowest fidelity and binds flush to the best one.
func selectBackend(host any, flush func()) (backend, error) {
	switch h := host.(type) {
	case MicrotaskQueuer:
		return backend{BackendMicrotask, func() { h.QueueMicrotask(flush) }}, nil
	case MutationObserver:
		return backend{BackendObserver, h.Observe(flush)}, nil
	case ImmediateScheduler:
		return backend{BackendImmediate, func() { h.SetImmediate(flush) }}, nil
	case TimeoutScheduler:
		return backend{BackendTimeout, func() { h.SetTimeout(flush, 0) }}, nil
	}

	return backend{}, ErrNoBackend
}

// Checkpoint is the built-in host used when none is configured.
// Its microtasks run when the runtime's outermost batch returns.
type Checkpoint struct {
	tasks    []func()
	draining bool

	onPanic func(error)
}

func NewCheckpoint(onPanic func(error)) *Checkpoint {
	return &Checkpoint{
		tasks:   make([]func(), 0),
		onPanic: onPanic,
	}
}

func (c *Checkpoint) QueueMicrotask(fn func()) {
	c.tasks = append(c.tasks, fn)
}

// Drain runs queued microtasks, including the ones queued while draining, until none is left.
func (c *Checkpoint) Drain() {
	if c.draining {
		return
	}

	c.draining = true
	defer func() { c.draining = false }()

	for len(c.tasks) > 0 {
		task := c.tasks[0]
		c.tasks[0] = nil
		c.tasks = c.tasks[1:]

		err := safeCall(func() error {
			task()
			return nil
		})
		if err != nil && c.onPanic != nil {
			c.onPanic(err)
		}
	}
}

func (c *Checkpoint) Pending() int {
	return len(c.tasks)
}
