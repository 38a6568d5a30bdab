package internal

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicker(t *testing.T) {
	t.Run("one host request per tick", func(t *testing.T) {
		m := &manual{}
		rt := newRuntime(t, withHost(microtaskHost{m}))

		for range 3 {
			rt.NextTick(func() {})
		}

		assert.Len(t, m.tasks, 1)
		assert.True(t, rt.Ticker().Pending())

		m.run()
		assert.False(t, rt.Ticker().Pending())
		assert.Equal(t, 1, rt.Ticker().Ticks())
	})

	t.Run("callbacks run in order", func(t *testing.T) {
		log := []string{}

		m := &manual{}
		rt := newRuntime(t, withHost(microtaskHost{m}))

		for i := range 3 {
			rt.NextTick(func() { log = append(log, fmt.Sprintf("cb %d", i)) })
		}
		assert.Empty(t, log)

		m.run()
		assert.Equal(t, []string{"cb 0", "cb 1", "cb 2"}, log)
	})

	t.Run("callbacks queued during a tick run in the next one", func(t *testing.T) {
		log := []string{}

		m := &manual{}
		rt := newRuntime(t, withHost(microtaskHost{m}))

		rt.NextTick(func() {
			log = append(log, fmt.Sprintf("a in tick %d", rt.Ticker().Ticks()))
			rt.NextTick(func() {
				log = append(log, fmt.Sprintf("c in tick %d", rt.Ticker().Ticks()))
			})
		})
		rt.NextTick(func() {
			log = append(log, fmt.Sprintf("b in tick %d", rt.Ticker().Ticks()))
		})

		m.run()

		assert.Equal(t, []string{
			"a in tick 1",
			"b in tick 1",
			"c in tick 2",
		}, log)
	})

	t.Run("a failing callback does not abort the tick", func(t *testing.T) {
		errs := []error{}
		log := []string{}

		rt := newRuntime(t, collect(&errs))

		rt.Batch(func() {
			rt.NextTick(func() { log = append(log, "first") })
			rt.NextTick(func() { panic("boom") })
			rt.NextTick(func() { log = append(log, "last") })
		})

		assert.Equal(t, []string{"first", "last"}, log)
		require.Len(t, errs, 1)

		var e *Error
		require.ErrorAs(t, errs[0], &e)
		assert.Equal(t, PhaseNextTick, e.Phase)
		assert.Zero(t, e.WatcherID)
		assert.ErrorIs(t, errs[0], ErrPanic)
	})

	t.Run("without callback the channel closes once the tick ran", func(t *testing.T) {
		m := &manual{}
		rt := newRuntime(t, withHost(microtaskHost{m}))

		done := rt.NextTick(nil)
		require.NotNil(t, done)

		select {
		case <-done:
			t.Fatal("closed before the tick")
		default:
		}

		m.run()

		select {
		case <-done:
		default:
			t.Fatal("not closed after the tick")
		}
	})

	t.Run("next tick sees the flushed state", func(t *testing.T) {
		log := []string{}

		m := &manual{}
		rt := newRuntime(t, withHost(microtaskHost{m}))
		p := rt.NewProp(0, PropOptions{})

		effect(rt, func() {
			log = append(log, fmt.Sprintf("render %v", p.Get()))
		})

		p.Set(1)
		rt.NextTick(func() { log = append(log, "next tick") })
		log = append(log, "sync done")

		m.run()

		assert.Equal(t, []string{
			"render 0",
			"sync done",
			"render 1",
			"next tick",
		}, log)
	})

	t.Run("macrotask backends still batch", func(t *testing.T) {
		runs := 0

		m := &manual{}
		rt := newRuntime(t, withHost(immediateHost{m}))
		p := rt.NewProp(0, PropOptions{})
		effect(rt, func() {
			p.Get()
			runs++
		})

		p.Set(1)
		p.Set(2)
		p.Set(3)

		assert.False(t, rt.Ticker().UsesMicrotask())
		assert.Equal(t, 1, runs)

		m.run()
		assert.Equal(t, 2, runs)
	})
}
