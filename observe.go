// Package observe is a dependency tracking reactivity runtime.
//
// Reactive values (Ref, Object, List) record which watchers read them. Writing a
// value queues its watchers, and the queue is flushed once per tick in creation
// order. Computed values are lazy and cached until one of their dependencies changes.
package observe

import "github.com/AnatoleLucet/observe/internal"

func as[T any](v any) T {
	if v == nil {
		var zero T
		return zero
	}

	return v.(T)
}

type Ref[T any] struct {
	prop *internal.Prop
}

// NewRef creates a reactive value. The value is stored as is, maps and slices are not made reactive.
func NewRef[T any](initial T, opts ...RefOption[T]) *Ref[T] {
	var o internal.PropOptions
	for _, opt := range opts {
		opt(&o)
	}

	return &Ref[T]{
		internal.GetRuntime().NewProp(initial, o),
	}
}

// Get the current value, tracking the read if a watcher is evaluating.
func (r *Ref[T]) Get() T {
	return as[T](r.prop.Get())
}

// Peek the current value without tracking it.
func (r *Ref[T]) Peek() T {
	return as[T](r.prop.Peek())
}

// Set a new value, the watchers that read the ref are queued if it changed.
func (r *Ref[T]) Set(v T) {
	r.prop.Set(v)
}

// Update sets the value returned by fn, called with the current value.
// fn reads the value without tracking it, like Peek.
func (r *Ref[T]) Update(fn func(T) T) {
	r.prop.Set(fn(r.Peek()))
}

type Computed[T any] struct {
	rt      *internal.Runtime
	watcher *internal.Watcher
}

// NewComputed creates a lazy derived value. It is computed on first read and
// cached until one of the values it read changes.
func NewComputed[T any](compute func() T) *Computed[T] {
	rt := internal.GetRuntime()

	return &Computed[T]{
		rt: rt,
		watcher: rt.NewWatcher(internal.KindComputed, func() (any, error) {
			return compute(), nil
		}, nil, internal.WatcherOptions{Lazy: true}),
	}
}

// Get the value, recomputing it if stale. A watcher reading it depends on
// everything the computed value depends on.
func (c *Computed[T]) Get() T {
	if c.watcher.Dirty() && c.watcher.Active() {
		c.watcher.Evaluate()
	}

	if c.rt.CurrentTarget() != nil {
		c.watcher.Depend()
	}

	return as[T](c.watcher.Value())
}

// Dirty reports whether the next Get recomputes the value.
func (c *Computed[T]) Dirty() bool { return c.watcher.Dirty() }

// Stop unsubscribes the computed value, it keeps returning its last value.
func (c *Computed[T]) Stop() { c.watcher.Teardown() }

type Watcher struct {
	rt      *internal.Runtime
	watcher *internal.Watcher

	// owner of what an effect creates, disposed with the watcher
	scope *internal.Owner
}

// Watch calls cb with the new and previous value of source every time it changes.
// A source returning a reactive Object or List calls cb on every change it
// depends on, even when the same container is returned.
func Watch[T any](source func() T, cb func(value, old T), opts ...WatchOption) *Watcher {
	rt := internal.GetRuntime()

	return &Watcher{
		rt: rt,
		watcher: rt.NewWatcher(internal.KindUser, func() (any, error) {
			return source(), nil
		}, func(value, old any) error {
			cb(as[T](value), as[T](old))
			return nil
		}, watchOptions(opts)),
	}
}

// Effect runs fn now and again every time a value it read changes.
// Watchers, owners and cleanups created by fn are disposed before each rerun.
func Effect(fn func(), opts ...WatchOption) *Watcher {
	rt := internal.GetRuntime()

	w := &Watcher{rt: rt, scope: rt.NewOwner()}

	var run *internal.Owner
	w.watcher = rt.NewWatcher(internal.KindUser, func() (any, error) {
		if run != nil {
			run.Dispose()
		}

		w.scope.Run(func() { run = rt.NewOwner() })
		run.Run(fn)

		return nil, nil
	}, nil, watchOptions(opts))

	return w
}

func (w *Watcher) ID() uint64 { return w.watcher.ID() }

// Active reports whether the watcher is still subscribed.
func (w *Watcher) Active() bool { return w.watcher.Active() }

// Stop unsubscribes the watcher.
func (w *Watcher) Stop() {
	w.rt.Batch(func() {
		w.watcher.Teardown()
		if w.scope != nil {
			w.scope.Dispose()
		}
	})
}

type Render[N any] struct {
	rt      *internal.Runtime
	watcher *internal.Watcher

	tree    N
	mounted bool
}

// Mount renders a tree and re-renders it when a value read by render changes.
// Every render is followed by patch(prev, next), prev is the zero N on the first render.
func Mount[N any](render func() N, patch func(prev, next N), opts ...WatchOption) *Render[N] {
	rt := internal.GetRuntime()

	r := &Render[N]{rt: rt}
	r.watcher = rt.NewWatcher(internal.KindRender, func() (any, error) {
		next := render()
		if patch != nil {
			patch(r.tree, next)
		}

		r.tree = next
		r.mounted = true

		return nil, nil
	}, nil, watchOptions(opts))

	return r
}

func (r *Render[N]) ID() uint64 { return r.watcher.ID() }

// Tree returns the last rendered tree.
func (r *Render[N]) Tree() N { return r.tree }

// Mounted reports whether the first render completed.
func (r *Render[N]) Mounted() bool { return r.mounted }

// ForceUpdate queues a re-render even though nothing it read changed.
func (r *Render[N]) ForceUpdate() {
	r.rt.Batch(r.watcher.Update)
}

// Stop unmounts the render watcher, the tree is kept as is.
func (r *Render[N]) Stop() {
	r.rt.Batch(r.watcher.Teardown)
}

// NextTick runs fn after the pending flush and returns a channel closed once the tick ran.
// Without fn, only the channel is useful.
func NextTick(fn func()) <-chan struct{} {
	if fn == nil {
		return internal.GetRuntime().NextTick(nil)
	}

	done := make(chan struct{})
	internal.GetRuntime().NextTick(func() {
		defer close(done)
		fn()
	})

	return done
}

// Batch runs fn as one unit, the watchers queued by it are flushed after it returned.
func Batch(fn func()) {
	internal.GetRuntime().Batch(fn)
}

// Untrack runs the given function without tracking any reactive dependencies.
func Untrack[T any](fn func() T) T {
	var result T
	internal.GetRuntime().Untrack(func() { result = fn() })
	return result
}

// OnCleanup registers a function called when the current owner is disposed.
// Outside of an owner, it does nothing.
func OnCleanup(fn func()) {
	if o := internal.GetRuntime().CurrentOwner(); o != nil {
		o.OnCleanup(fn)
	}
}

type Owner struct {
	owner *internal.Owner
}

// NewOwner creates an owner, child of the current one.
// An owner groups the watchers created while it runs and disposes them together.
func NewOwner() *Owner {
	return &Owner{
		internal.GetRuntime().NewOwner(),
	}
}

// Run fn with this owner as the current owner.
func (o *Owner) Run(fn func()) { o.owner.Run(fn) }

// Dispose the children of this owner, then its watchers, then run its cleanups.
func (o *Owner) Dispose() { o.owner.Dispose() }

// Disposed reports whether Dispose was called.
func (o *Owner) Disposed() bool { return o.owner.Disposed() }

// Add a cleanup function called once when the owner is disposed.
func (o *Owner) OnCleanup(fn func()) { o.owner.OnCleanup(fn) }

// Add an error catcher for the watchers of this owner and its children.
// Returning false stops the error from reaching the parent owners and the error handler.
func (o *Owner) OnError(fn func(error) bool) { o.owner.OnError(fn) }

type (
	Object = internal.Object
	List   = internal.List
)

// NewObject creates a reactive object. Nested map[string]any and []any values are converted too.
func NewObject(data map[string]any) *Object {
	return internal.GetRuntime().NewObject(data)
}

// NewList creates a reactive list. Nested map[string]any and []any values are converted too.
func NewList(items ...any) *List {
	return internal.GetRuntime().NewList(items)
}

// Observe converts map[string]any and []any values into reactive Objects and Lists,
// other values are returned as is.
func Observe(v any) any {
	return internal.GetRuntime().Observe(v)
}

// UsesMicrotask reports whether flushes run before the host's next task.
func UsesMicrotask() bool {
	return internal.GetRuntime().Ticker().UsesMicrotask()
}

// Backend names the tick backend of the current runtime.
func Backend() BackendKind {
	return internal.GetRuntime().Ticker().Backend()
}
