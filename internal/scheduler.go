package internal

import (
	"context"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const DefaultMaxUpdateCount = 100

type Scheduler struct {
	rt *Runtime

	// watchers pending flush, sorted by id once the flush starts
	queue []*Watcher
	has   map[uint64]bool

	// position of the watcher being processed during a flush
	index int

	// per watcher re-queue counts for the flush in progress
	flushed  map[uint64]bool
	circular map[uint64]int
	dropped  map[uint64]bool

	waiting  bool
	flushing bool

	// span of the flush in progress
	span trace.Span

	// incremented each time the queue is flushed
	clock int
}

func NewScheduler(r *Runtime) *Scheduler {
	return &Scheduler{
		rt: r,

		has:      make(map[uint64]bool),
		flushed:  make(map[uint64]bool),
		circular: make(map[uint64]int),
		dropped:  make(map[uint64]bool),
	}
}

// Queue adds w to the pending flush unless it is already in it.
func (s *Scheduler) Queue(w *Watcher) {
	id := w.ID()
	if s.has[id] || s.dropped[id] {
		return
	}

	if s.flushing && s.flushed[id] {
		s.circular[id]++

		if s.circular[id] > s.rt.config.MaxUpdateCount {
			s.drop(w)
			return
		}
	}

	s.has[id] = true

	if !s.flushing {
		s.queue = append(s.queue, w)
	} else {
		// splice it by id into the part of the queue that is still to be processed
		i := len(s.queue) - 1
		for i > s.index && s.queue[i].ID() > id {
			i--
		}
		s.queue = slices.Insert(s.queue, i+1, w)
	}

	if s.waiting {
		return
	}
	s.waiting = true

	if !s.rt.config.Async {
		s.Flush()
		return
	}

	s.rt.ticker.Schedule(s.Flush)
}

func (s *Scheduler) drop(w *Watcher) {
	s.dropped[w.ID()] = true
	s.rt.metrics.runaway()

	err := newWatcherError(w, PhaseFlush, ErrInfiniteUpdate)
	if s.span != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, ErrInfiniteUpdate.Error())
	}

	s.rt.report(err, w.owner)
}

// Flush re-evaluates every queued watcher in ascending id order.
// The queue may grow while it is iterated, new entries run in the same pass.
func (s *Scheduler) Flush() {
	_, s.span = s.rt.tracer.Start(context.Background(), "observe.flush")
	started := time.Now()

	s.flushing = true
	slices.SortFunc(s.queue, byID)

	for s.index = 0; s.index < len(s.queue); s.index++ {
		w := s.queue[s.index]
		id := w.ID()

		if s.dropped[id] {
			continue
		}

		w.runBefore()

		s.has[id] = false
		s.flushed[id] = true
		w.Run()
	}

	flushed := make([]*Watcher, 0, len(s.queue))
	for _, w := range s.queue {
		id := w.ID()
		if s.flushed[id] && !s.dropped[id] {
			flushed = append(flushed, w)
			s.flushed[id] = false
		}
	}

	s.clock++
	s.rt.metrics.flush(len(s.queue), time.Since(started))

	s.span.SetAttributes(
		attribute.Int("observe.queue_length", len(s.queue)),
		attribute.Int("observe.flushed", len(flushed)),
	)
	s.span.End()
	s.span = nil

	s.reset()

	// requeues spliced behind the cursor can leave the queue out of order
	slices.SortFunc(flushed, byID)
	for _, w := range flushed {
		w.runUpdated()
	}
}

func (s *Scheduler) reset() {
	clear(s.queue)
	s.queue = s.queue[:0]
	s.index = 0

	clear(s.has)
	clear(s.flushed)
	clear(s.circular)
	clear(s.dropped)

	s.waiting = false
	s.flushing = false
}

// Len is the number of watchers currently pending.
func (s *Scheduler) Len() int {
	return len(s.queue) - s.index
}

func (s *Scheduler) IsFlushing() bool {
	return s.flushing
}

// Time is the number of completed flushes.
func (s *Scheduler) Time() int {
	return s.clock
}
