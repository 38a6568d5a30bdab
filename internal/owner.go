package internal

import (
	"iter"
	"slices"
)

// Owner groups the watchers and child owners created while it is current,
// so that a whole component subtree can be torn down at once.
type Owner struct {
	rt *Runtime

	// cleanup functions to be called when the owner is disposed
	cleanups []func()

	// error handlers, returning false stops the propagation
	catchers []func(error) bool

	watchers []*Watcher

	parent   *Owner
	children []*Owner

	disposed bool
}

func (r *Runtime) NewOwner() *Owner {
	o := &Owner{
		rt:       r,
		cleanups: make([]func(), 0),
		parent:   r.currentOwner,
	}

	if o.parent != nil {
		o.parent.addChild(o)
	}

	return o
}

// Run calls fn with o as the current owner.
func (o *Owner) Run(fn func()) {
	prev := o.rt.currentOwner
	o.rt.currentOwner = o
	defer func() { o.rt.currentOwner = prev }()

	fn()
}

func (o *Owner) Parent() *Owner {
	return o.parent
}

func (o *Owner) Children() iter.Seq[*Owner] {
	return slices.Values(slices.Clone(o.children))
}

func (o *Owner) Watchers() iter.Seq[*Watcher] {
	return slices.Values(slices.Clone(o.watchers))
}

func (o *Owner) Disposed() bool {
	return o.disposed
}

func (parent *Owner) addChild(child *Owner) {
	parent.children = append(parent.children, child)
}

func (parent *Owner) removeChild(child *Owner) {
	if i := slices.Index(parent.children, child); i != -1 {
		parent.children = slices.Delete(parent.children, i, i+1)
	}
}

func (o *Owner) addWatcher(w *Watcher) {
	o.watchers = append(o.watchers, w)
}

func (o *Owner) removeWatcher(w *Watcher) {
	if i := slices.Index(o.watchers, w); i != -1 {
		o.watchers = slices.Delete(o.watchers, i, i+1)
	}
}

// Dispose tears down children first, then the owned watchers, then runs the cleanups.
func (o *Owner) Dispose() {
	if o.disposed {
		return
	}
	o.disposed = true

	o.rt.Batch(func() {
		for _, child := range slices.Clone(o.children) {
			child.Dispose()
		}
		o.children = nil

		for _, w := range slices.Clone(o.watchers) {
			w.Teardown()
		}
		o.watchers = nil

		for i := 0; i < len(o.cleanups); i++ {
			o.cleanups[i]()
		}
		o.cleanups = nil

		if o.parent != nil {
			o.parent.removeChild(o)
		}
	})
}

func (o *Owner) OnCleanup(fn func()) {
	o.cleanups = append(o.cleanups, fn)
}

func (o *Owner) OnError(fn func(error) bool) {
	o.catchers = append(o.catchers, fn)
}

// capture offers err to the catchers, it returns false once one of them stops the propagation.
func (o *Owner) capture(err error) bool {
	for _, catcher := range o.catchers {
		propagate := true

		failed := safeCall(func() error {
			propagate = catcher(err)
			return nil
		})
		if failed != nil {
			o.rt.logger.Error("observe: error catcher failed", "err", failed)
			continue
		}

		if !propagate {
			return false
		}
	}

	return true
}
