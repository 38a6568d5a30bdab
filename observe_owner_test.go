package observe

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOwner(t *testing.T) {
	t.Run("runs function and disposes", func(t *testing.T) {
		log := []string{}

		o := NewOwner()

		o.Run(func() {
			Effect(func() {
				log = append(log, "effect")

				OnCleanup(func() { log = append(log, "cleanup") })
			})
		})

		log = append(log, "ran")
		o.Dispose()
		log = append(log, "disposed")

		assert.Equal(t, []string{
			"effect",
			"ran",
			"cleanup",
			"disposed",
		}, log)
		assert.True(t, o.Disposed())
	})

	t.Run("nested owners", func(t *testing.T) {
		log := []string{}

		o := NewOwner()
		o.OnCleanup(func() {
			log = append(log, "parent disposed")
		})

		o.Run(func() {
			NewOwner().OnCleanup(func() {
				log = append(log, "child disposed")
			})
		})

		o.Dispose()

		assert.Equal(t, []string{
			"child disposed",
			"parent disposed",
		}, log)
	})

	t.Run("disposed watchers stop updating", func(t *testing.T) {
		runs := 0

		count := NewRef(0)
		o := NewOwner()
		o.Run(func() {
			Watch(count.Get, func(value, old int) { runs++ })
			Mount(func() int { return count.Get() }, func(prev, next int) { runs++ })
		})

		count.Set(1)
		assert.Equal(t, 3, runs)

		o.Dispose()
		count.Set(2)
		assert.Equal(t, 3, runs)
	})

	t.Run("disposing inside a flush skips the queued children", func(t *testing.T) {
		log := []string{}

		show := NewRef(true)
		count := NewRef(0)

		var child *Owner
		Effect(func() {
			if !show.Get() && child != nil {
				child.Dispose()
				child = nil
			}
		})

		child = NewOwner()
		child.Run(func() {
			Effect(func() {
				log = append(log, "child "+map[bool]string{true: "on", false: "off"}[count.Get() > 0])
			})
		})

		Batch(func() {
			count.Set(1)
			show.Set(false)
		})

		assert.Equal(t, []string{"child off"}, log)
	})

	t.Run("catches errors", func(t *testing.T) {
		caught := []error{}

		o := NewOwner()
		o.OnError(func(err error) bool {
			caught = append(caught, err)
			return false
		})

		count := NewRef(0)
		o.Run(func() {
			Effect(func() {
				if count.Get() > 0 {
					panic("boom")
				}
			})
		})

		count.Set(1)

		require.Len(t, caught, 1)
		assert.ErrorIs(t, caught[0], ErrPanic)

		var e *Error
		require.ErrorAs(t, caught[0], &e)
		assert.Equal(t, PhaseGetter, e.Phase)
		assert.Equal(t, KindUser, e.Kind)
	})

	t.Run("errors propagate to the parents", func(t *testing.T) {
		log := []string{}
		errs := []error{}
		broken := errors.New("broken")

		require.NoError(t, Install(WithErrorHandler(func(err error) { errs = append(errs, err) })))

		parent := NewOwner()
		parent.OnError(func(err error) bool {
			log = append(log, "parent")
			return true
		})

		parent.Run(func() {
			child := NewOwner()
			child.OnError(func(err error) bool {
				log = append(log, "child")
				return true
			})

			child.Run(func() {
				Watch(func() int { return 1 }, func(value, old int) {}, Immediate())
				Watch(func() int { panic(broken) }, func(value, old int) {})
			})
		})

		assert.Equal(t, []string{"child", "parent"}, log)
		require.Len(t, errs, 1)
		assert.ErrorIs(t, errs[0], broken)
		assert.ErrorIs(t, errs[0], ErrPanic)
	})
}

func TestUntrack(t *testing.T) {
	t.Run("reads are not tracked", func(t *testing.T) {
		log := []string{}

		a := NewRef(0)
		b := NewRef(0)

		Effect(func() {
			sum := a.Get() + Untrack(b.Get)
			log = append(log, fmt.Sprintf("sum %d", sum))
		})

		b.Set(10)
		a.Set(1)

		assert.Equal(t, []string{"sum 0", "sum 11"}, log)
	})

	t.Run("outside of a watcher", func(t *testing.T) {
		count := NewRef(3)
		assert.Equal(t, 3, Untrack(count.Get))
	})
}
