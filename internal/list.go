package internal

import "slices"

// List is a reactive sequence. Any mutation notifies its Dep, any read depends on it.
type List struct {
	rt  *Runtime
	dep *Dep

	items []any
}

func (r *Runtime) NewList(items []any) *List {
	l := &List{
		rt:    r,
		dep:   r.NewDep(),
		items: make([]any, len(items)),
	}

	for i, item := range items {
		l.items[i] = r.Observe(item)
	}

	return l
}

func (l *List) shapeDep() *Dep {
	return l.dep
}

func (l *List) Dep() *Dep {
	return l.dep
}

func (l *List) Len() int {
	l.dep.Depend()
	return len(l.items)
}

// At returns the item at i, or nil when out of range.
func (l *List) At(i int) any {
	l.dep.Depend()

	if i < 0 || i >= len(l.items) {
		return nil
	}
	return l.items[i]
}

func (l *List) Values() []any {
	l.dep.Depend()
	return slices.Clone(l.items)
}

func (l *List) Push(items ...any) {
	if len(items) == 0 {
		return
	}

	for _, item := range items {
		l.items = append(l.items, l.rt.Observe(item))
	}

	l.rt.Batch(l.dep.Notify)
}

// Pop removes the last item, it returns nil on an empty list.
func (l *List) Pop() any {
	if len(l.items) == 0 {
		return nil
	}

	last := l.items[len(l.items)-1]
	l.items[len(l.items)-1] = nil
	l.items = l.items[:len(l.items)-1]

	l.rt.Batch(l.dep.Notify)
	return last
}

// Splice removes deleteCount items from start and inserts items in their place.
// It returns the removed items.
func (l *List) Splice(start, deleteCount int, items ...any) []any {
	start = min(max(start, 0), len(l.items))
	end := min(start+max(deleteCount, 0), len(l.items))

	removed := slices.Clone(l.items[start:end])

	inserted := make([]any, len(items))
	for i, item := range items {
		inserted[i] = l.rt.Observe(item)
	}

	l.items = slices.Replace(l.items, start, end, inserted...)

	if len(removed) > 0 || len(inserted) > 0 {
		l.rt.Batch(l.dep.Notify)
	}

	return removed
}

// SetAt replaces the item at i, out of range indexes are ignored.
func (l *List) SetAt(i int, v any) {
	if i < 0 || i >= len(l.items) {
		return
	}

	if isSame(l.items[i], v) {
		return
	}

	l.items[i] = l.rt.Observe(v)
	l.rt.Batch(l.dep.Notify)
}

func (l *List) Raw() []any {
	raw := make([]any, len(l.items))
	for i, item := range l.items {
		raw[i] = rawValue(item)
	}

	return raw
}

func (l *List) traverse(seen map[uint64]struct{}) {
	l.dep.Depend()

	for _, item := range l.items {
		traverseValue(item, seen)
	}
}
