// Package loop provides a single goroutine event loop that can host the reactive runtime.
//
// Every callback runs on the loop goroutine. Each task (ingress, immediate or timer)
// is followed by a microtask checkpoint: all microtasks, including the ones they
// queue, run before the next task starts.
package loop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/petermattis/goid"
)

var (
	// ErrLoopAlreadyRunning is returned when Run is called on a loop that is already running.
	ErrLoopAlreadyRunning = errors.New("loop: loop is already running")

	// ErrLoopTerminated is returned when work is submitted to a stopped loop.
	ErrLoopTerminated = errors.New("loop: loop has been terminated")

	// ErrReentrantRun is returned when Run is called from the loop itself.
	ErrReentrantRun = errors.New("loop: cannot call Run from within the loop")
)

const (
	stateAwake int32 = iota
	stateRunning
	stateTerminated
)

// microtask queues longer than this are logged as a potential infinite loop
const microtaskWarnThreshold = 10000

type Loop struct {
	// ingress is the only state written from other goroutines
	ingressMu sync.Mutex
	ingress   []func()
	wake      chan struct{}

	// loop goroutine only
	microtasks []func()
	immediates []func()
	timers     timerHeap
	timerSeq   uint64

	gid      atomic.Int64
	state    atomic.Int32
	stopping atomic.Bool
	done     chan struct{}

	logger *slog.Logger

	// OnPanic receives values recovered from panicking tasks, nil logs them
	OnPanic func(any)
}

// New creates a loop, a nil logger uses slog.Default().
func New(logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}

	l := &Loop{
		wake:       make(chan struct{}, 1),
		microtasks: make([]func(), 0, 64),
		done:       make(chan struct{}),
		logger:     logger,
	}
	l.state.Store(stateAwake)

	return l
}

// Run runs the loop on the calling goroutine until Stop is called or ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	if l.OnLoop() {
		return ErrReentrantRun
	}

	if !l.state.CompareAndSwap(stateAwake, stateRunning) {
		if l.state.Load() == stateTerminated {
			return ErrLoopTerminated
		}
		return ErrLoopAlreadyRunning
	}

	l.gid.Store(goid.Get())
	defer func() {
		l.ingressMu.Lock()
		l.state.Store(stateTerminated)
		l.ingressMu.Unlock()

		l.gid.Store(0)
		close(l.done)
	}()

	for {
		l.tick()

		if l.stopping.Load() {
			// finish what was already submitted
			for l.processIngress() {
			}
			return nil
		}

		if !l.wait(ctx) {
			return ctx.Err()
		}
	}
}

// Stop asks the loop to return once the work already submitted is done.
func (l *Loop) Stop() {
	l.stopping.Store(true)
	l.signal()
}

// Done is closed once Run returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// OnLoop reports whether the caller runs on the loop goroutine.
func (l *Loop) OnLoop() bool {
	gid := l.gid.Load()
	return gid != 0 && gid == goid.Get()
}

// Submit queues fn as a task, it is safe to call from any goroutine.
func (l *Loop) Submit(fn func()) error {
	l.ingressMu.Lock()
	if l.state.Load() == stateTerminated {
		l.ingressMu.Unlock()
		return ErrLoopTerminated
	}
	l.ingress = append(l.ingress, fn)
	l.ingressMu.Unlock()

	l.signal()
	return nil
}

// Do runs fn on the loop and waits for it, including the microtasks it queued.
// Called from the loop goroutine, it runs fn directly.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	if l.OnLoop() {
		return l.execute(fn)
	}

	done := make(chan error, 1)
	err := l.Submit(func() {
		err := l.execute(fn)
		l.drainMicrotasks()
		done <- err
	})
	if err != nil {
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		select {
		case err := <-done:
			return err
		default:
			return ErrLoopTerminated
		}
	}
}

// QueueMicrotask runs fn at the next microtask checkpoint.
func (l *Loop) QueueMicrotask(fn func()) {
	l.onLoop(func() {
		l.microtasks = append(l.microtasks, fn)
	})
}

// SetImmediate runs fn as a task on the next iteration.
func (l *Loop) SetImmediate(fn func()) {
	l.onLoop(func() {
		l.immediates = append(l.immediates, fn)
	})
}

// SetTimeout runs fn as a task once delay elapsed.
func (l *Loop) SetTimeout(fn func(), delay time.Duration) {
	when := time.Now().Add(delay)

	l.onLoop(func() {
		l.timerSeq++
		l.timers.push(timer{when: when, seq: l.timerSeq, task: fn})
	})
}

// Observe registers fn once and returns a trigger.
// Each trigger schedules one delivery of fn at the next microtask checkpoint,
// triggers happening before the delivery are coalesced.
func (l *Loop) Observe(fn func()) func() {
	o := &observation{fn: fn}

	return func() {
		l.onLoop(func() {
			if o.pending {
				return
			}

			o.pending = true
			l.microtasks = append(l.microtasks, o.deliver)
		})
	}
}

type observation struct {
	fn      func()
	pending bool
}

func (o *observation) deliver() {
	o.pending = false
	o.fn()
}

// onLoop runs fn now when called from the loop, otherwise submits it.
func (l *Loop) onLoop(fn func()) {
	if l.OnLoop() {
		fn()
		return
	}

	if err := l.Submit(fn); err != nil {
		l.logger.Warn("loop: dropped work scheduled on a terminated loop", "err", err)
	}
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// tick is a single iteration: expired timers, submitted tasks, then immediates.
func (l *Loop) tick() {
	l.runTimers()
	l.processIngress()
	l.processImmediates()
}

func (l *Loop) runTimers() {
	now := time.Now()
	for len(l.timers) > 0 && !l.timers[0].when.After(now) {
		t := l.timers.pop()
		l.runTask(t.task)
	}
}

// processIngress runs the tasks submitted so far, it reports whether there were any.
func (l *Loop) processIngress() bool {
	l.ingressMu.Lock()
	tasks := l.ingress
	l.ingress = nil
	l.ingressMu.Unlock()

	for i, task := range tasks {
		l.runTask(task)
		tasks[i] = nil
	}

	return len(tasks) > 0
}

// processImmediates runs the immediates queued before this iteration,
// the ones they queue wait for the next iteration.
func (l *Loop) processImmediates() {
	immediates := l.immediates
	l.immediates = nil

	for _, task := range immediates {
		l.runTask(task)
	}
}

func (l *Loop) runTask(task func()) {
	l.safeExecute(task)
	l.drainMicrotasks()
}

func (l *Loop) drainMicrotasks() {
	if len(l.microtasks) > microtaskWarnThreshold {
		l.logger.Warn("loop: microtask queue is large, potential infinite loop", "length", len(l.microtasks))
	}

	for len(l.microtasks) > 0 {
		task := l.microtasks[0]
		l.microtasks[0] = nil
		l.microtasks = l.microtasks[1:]

		l.safeExecute(task)
	}
}

func (l *Loop) safeExecute(task func()) {
	if task == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			if l.OnPanic != nil {
				l.OnPanic(r)
				return
			}
			l.logger.Error("loop: task panicked", "panic", fmt.Sprint(r))
		}
	}()

	task()
}

func (l *Loop) execute(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("loop: task panicked: %v", r)
		}
	}()

	fn()
	return nil
}

// wait blocks until there is work to do, it returns false once ctx is done.
func (l *Loop) wait(ctx context.Context) bool {
	if len(l.immediates) > 0 || len(l.microtasks) > 0 {
		return ctx.Err() == nil
	}

	var timerC <-chan time.Time
	if len(l.timers) > 0 {
		d := time.Until(l.timers[0].when)
		if d <= 0 {
			return ctx.Err() == nil
		}

		t := time.NewTimer(d)
		defer t.Stop()
		timerC = t.C
	}

	select {
	case <-ctx.Done():
		return false
	case <-l.wake:
		return true
	case <-timerC:
		return true
	}
}
