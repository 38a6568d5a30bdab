package internal

import (
	"cmp"
	"slices"
)

// Dep is an observable point of mutable state.
// It keeps the watchers interested in it, it does not own them.
type Dep struct {
	rt *Runtime

	id   uint64
	subs []*Watcher
}

func (r *Runtime) NewDep() *Dep {
	r.depIDs++

	return &Dep{
		rt: r,
		id: r.depIDs,
	}
}

func (d *Dep) ID() uint64 {
	return d.id
}

// AddSub appends w without any membership check, the watcher dedups on its side.
func (d *Dep) AddSub(w *Watcher) {
	d.subs = append(d.subs, w)
}

// RemoveSub removes the first entry matching w.
func (d *Dep) RemoveSub(w *Watcher) {
	if i := slices.Index(d.subs, w); i != -1 {
		d.subs = slices.Delete(d.subs, i, i+1)
	}
}

// Subs returns a copy of the current subscriber list.
func (d *Dep) Subs() []*Watcher {
	return slices.Clone(d.subs)
}

// Depend registers a mutual subscription with the watcher currently evaluating, if any.
func (d *Dep) Depend() {
	if w := d.rt.targets.Current(); w != nil {
		w.AddDep(d)
	}
}

// Notify calls Update on every subscriber of this round.
func (d *Dep) Notify() {
	// cloning so that updates touching d.subs don't affect this round
	subs := slices.Clone(d.subs)

	// the scheduler sorts when batching, without it we need to do it here
	if !d.rt.config.Async {
		slices.SortFunc(subs, byID)
	}

	for _, sub := range subs {
		sub.Update()
	}
}

func byID(a, b *Watcher) int {
	return cmp.Compare(a.id, b.id)
}
