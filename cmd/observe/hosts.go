package main

import (
	"fmt"
	"time"

	"github.com/AnatoleLucet/observe/loop"
)

// each host exposes a single capability of the loop so the runtime picks that backend

type microtaskHost struct{ l *loop.Loop }

func (h microtaskHost) QueueMicrotask(fn func()) { h.l.QueueMicrotask(fn) }

type observerHost struct{ l *loop.Loop }

func (h observerHost) Observe(fn func()) func() { return h.l.Observe(fn) }

type immediateHost struct{ l *loop.Loop }

func (h immediateHost) SetImmediate(fn func()) { h.l.SetImmediate(fn) }

type timeoutHost struct{ l *loop.Loop }

func (h timeoutHost) SetTimeout(fn func(), delay time.Duration) { h.l.SetTimeout(fn, delay) }

func hostFor(l *loop.Loop, backend string) (any, error) {
	switch backend {
	case "microtask":
		return microtaskHost{l}, nil
	case "observer":
		return observerHost{l}, nil
	case "immediate":
		return immediateHost{l}, nil
	case "timeout":
		return timeoutHost{l}, nil
	}
	return nil, fmt.Errorf("unknown backend %q", backend)
}
