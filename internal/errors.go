package internal

import (
	"errors"
	"fmt"
)

var (
	// ErrInfiniteUpdate is reported when a watcher keeps re-queueing itself within one flush.
	ErrInfiniteUpdate = errors.New("observe: infinite update loop")

	// ErrPanic wraps a value recovered from a panicking computation, callback or hook.
	ErrPanic = errors.New("observe: panic")

	// ErrNoBackend is returned when a host exposes none of the tick capabilities.
	ErrNoBackend = errors.New("observe: host offers no tick backend")
)

type Phase int

const (
	PhaseGetter Phase = iota
	PhaseCallback
	PhaseBefore
	PhaseUpdated
	PhaseFlush
	PhaseNextTick
)

func (p Phase) String() string {
	switch p {
	case PhaseGetter:
		return "getter"
	case PhaseCallback:
		return "callback"
	case PhaseBefore:
		return "before"
	case PhaseUpdated:
		return "updated"
	case PhaseFlush:
		return "flush"
	case PhaseNextTick:
		return "nexttick"
	}
	return "unknown"
}

// Error carries the context of a failure isolated by the engine.
type Error struct {
	Phase Phase

	// zero when the failure is not tied to a watcher (e.g. a NextTick callback)
	WatcherID uint64
	Kind      Kind
	Label     string

	Err error
}

func (e *Error) Error() string {
	if e.WatcherID == 0 {
		return fmt.Sprintf("observe: %s: %v", e.Phase, e.Err)
	}

	if e.Label != "" {
		return fmt.Sprintf("observe: %s of %s watcher %d %q: %v", e.Phase, e.Kind, e.WatcherID, e.Label, e.Err)
	}

	return fmt.Sprintf("observe: %s of %s watcher %d: %v", e.Phase, e.Kind, e.WatcherID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newWatcherError(w *Watcher, phase Phase, err error) *Error {
	return &Error{
		Phase:     phase,
		WatcherID: w.id,
		Kind:      w.kind,
		Label:     w.label,
		Err:       err,
	}
}

// safeCall runs fn, turning a panic into an error wrapping ErrPanic.
func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()

	return fn()
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("%w: %w", ErrPanic, err)
	}

	return fmt.Errorf("%w: %v", ErrPanic, r)
}
