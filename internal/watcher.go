package internal

type Kind int

const (
	KindRender Kind = iota
	KindComputed
	KindUser
)

func (k Kind) String() string {
	switch k {
	case KindRender:
		return "render"
	case KindComputed:
		return "computed"
	case KindUser:
		return "user"
	}
	return "unknown"
}

type WatcherOptions struct {
	Lazy bool
	Sync bool

	// traverse the value so nested reactive reads are tracked too
	Deep bool

	// run the callback once right after the first evaluation
	Immediate bool

	// called by the scheduler right before a flushed re-evaluation
	Before func()

	// called after the flush that re-evaluated the watcher
	OnUpdated func()

	// describes the watched expression in reported errors
	Label string
}

// Watcher wraps a computation and re-evaluates it when a dependency it read changes.
type Watcher struct {
	rt    *Runtime
	owner *Owner

	id   uint64
	kind Kind

	getter func() (any, error)
	cb     func(value, old any) error

	lazy      bool
	sync      bool
	deep      bool
	before    func()
	onUpdated func()
	label     string

	active bool
	dirty  bool
	value  any

	// subscriptions of the last completed evaluation
	deps   []*Dep
	depIDs map[uint64]struct{}

	// dependencies discovered during the evaluation in progress
	newDeps   []*Dep
	newDepIDs map[uint64]struct{}
}

func (r *Runtime) NewWatcher(kind Kind, getter func() (any, error), cb func(value, old any) error, opts WatcherOptions) *Watcher {
	r.watcherIDs++

	w := &Watcher{
		rt:    r,
		owner: r.currentOwner,

		id:   r.watcherIDs,
		kind: kind,

		getter: getter,
		cb:     cb,

		lazy:      opts.Lazy,
		sync:      opts.Sync,
		deep:      opts.Deep,
		before:    opts.Before,
		onUpdated: opts.OnUpdated,
		label:     opts.Label,

		active: true,
		dirty:  opts.Lazy,

		depIDs:    make(map[uint64]struct{}),
		newDepIDs: make(map[uint64]struct{}),
	}

	if w.owner != nil {
		w.owner.addWatcher(w)
	}

	if w.lazy {
		return w
	}

	r.Batch(func() {
		value, ok := w.get()
		if ok {
			w.value = value
		}

		if ok && opts.Immediate && w.cb != nil {
			w.callback(value, nil)
		}
	})

	return w
}

func (w *Watcher) ID() uint64    { return w.id }
func (w *Watcher) Kind() Kind    { return w.kind }
func (w *Watcher) Label() string { return w.label }
func (w *Watcher) Active() bool  { return w.active }
func (w *Watcher) Dirty() bool   { return w.dirty }
func (w *Watcher) Lazy() bool    { return w.lazy }
func (w *Watcher) Value() any    { return w.value }

// Deps returns the dependencies of the last completed evaluation.
func (w *Watcher) Deps() []*Dep {
	deps := make([]*Dep, len(w.deps))
	copy(deps, w.deps)
	return deps
}

// get evaluates the getter with w as the current target and reconciles subscriptions.
// ok is false when the getter failed, the failure is already reported.
func (w *Watcher) get() (value any, ok bool) {
	var err error

	w.rt.targets.Run(w, func() {
		err = safeCall(func() error {
			var gerr error
			value, gerr = w.getter()
			return gerr
		})

		if err == nil && w.deep {
			traverse(value)
		}
	})

	w.cleanupDeps()

	// torn down while evaluating: drop what this pass subscribed to
	if !w.active {
		w.unsubscribe()
	}

	if err != nil {
		w.rt.report(newWatcherError(w, PhaseGetter, err), w.owner)
		return nil, false
	}

	return value, true
}

// AddDep is called by Dep.Depend while w is evaluating.
func (w *Watcher) AddDep(d *Dep) {
	if !w.active {
		return
	}

	id := d.ID()
	if _, seen := w.newDepIDs[id]; seen {
		return
	}

	w.newDepIDs[id] = struct{}{}
	w.newDeps = append(w.newDeps, d)

	if _, subscribed := w.depIDs[id]; !subscribed {
		d.AddSub(w)
	}
}

// cleanupDeps drops the subscriptions that were not read again and swaps the sets.
func (w *Watcher) cleanupDeps() {
	for _, d := range w.deps {
		if _, kept := w.newDepIDs[d.ID()]; !kept {
			d.RemoveSub(w)
		}
	}

	w.depIDs, w.newDepIDs = w.newDepIDs, w.depIDs
	clear(w.newDepIDs)

	w.deps, w.newDeps = w.newDeps, w.deps[:0]
	clear(w.newDeps[:cap(w.newDeps)])
}

// Update is the subscriber interface called when a dependency changes.
func (w *Watcher) Update() {
	switch {
	case w.lazy:
		w.dirty = true
	case w.sync:
		w.Run()
	default:
		w.rt.scheduler.Queue(w)
	}
}

// Run re-evaluates the watcher and calls its callback if the value changed.
// A torn down watcher still referenced by a queue or a notify round is a no-op.
func (w *Watcher) Run() {
	if !w.active {
		return
	}

	w.rt.metrics.watcherRun(w.kind)

	value, ok := w.get()
	if !ok {
		return
	}

	// a reactive container may have changed in place
	_, mutable := value.(container)
	if isSame(value, w.value) && !w.deep && !mutable {
		return
	}

	old := w.value
	w.value = value

	if w.cb != nil {
		w.callback(value, old)
	}
}

func (w *Watcher) callback(value, old any) {
	err := safeCall(func() error { return w.cb(value, old) })
	if err != nil {
		w.rt.report(newWatcherError(w, PhaseCallback, err), w.owner)
	}
}

// Evaluate computes the value of a lazy watcher and clears its dirty flag.
func (w *Watcher) Evaluate() {
	value, ok := w.get()
	if ok {
		w.value = value
	}
	w.dirty = false
}

// Depend makes the current target depend on every dependency of w.
func (w *Watcher) Depend() {
	for _, d := range w.deps {
		d.Depend()
	}
}

// Teardown unsubscribes w from all its dependencies and deactivates it.
func (w *Watcher) Teardown() {
	if !w.active {
		return
	}

	if w.owner != nil {
		w.owner.removeWatcher(w)
	}

	w.unsubscribe()
	w.active = false
}

func (w *Watcher) unsubscribe() {
	for _, d := range w.deps {
		d.RemoveSub(w)
	}
	for _, d := range w.newDeps {
		d.RemoveSub(w)
	}

	w.deps = nil
	clear(w.depIDs)
	clear(w.newDeps[:cap(w.newDeps)])
	w.newDeps = w.newDeps[:0]
	clear(w.newDepIDs)
}

func (w *Watcher) runBefore() {
	if w.before == nil || !w.active {
		return
	}

	err := safeCall(func() error {
		w.before()
		return nil
	})
	if err != nil {
		w.rt.report(newWatcherError(w, PhaseBefore, err), w.owner)
	}
}

func (w *Watcher) runUpdated() {
	if w.onUpdated == nil || !w.active {
		return
	}

	err := safeCall(func() error {
		w.onUpdated()
		return nil
	})
	if err != nil {
		w.rt.report(newWatcherError(w, PhaseUpdated, err), w.owner)
	}
}
