package internal

type PropOptions struct {
	// Equal replaces the default change check
	Equal func(a, b any) bool

	// Deep converts map[string]any and []any values into Objects and Lists
	Deep bool
}

// Prop is a reactive attribute: reads depend on its Dep, changing writes notify it.
type Prop struct {
	rt  *Runtime
	dep *Dep

	value any

	equal func(a, b any) bool
	deep  bool
}

func (r *Runtime) NewProp(initial any, opts PropOptions) *Prop {
	p := &Prop{
		rt:  r,
		dep: r.NewDep(),

		equal: opts.Equal,
		deep:  opts.Deep,
	}

	if p.equal == nil {
		p.equal = isSame
	}

	if p.deep {
		initial = r.Observe(initial)
	}
	p.value = initial

	return p
}

func (p *Prop) Dep() *Dep {
	return p.dep
}

// Get returns the value, tracking the read if a watcher is evaluating.
func (p *Prop) Get() any {
	if p.rt.targets.Current() != nil {
		p.dep.Depend()

		// reading a container also depends on its shape (added/removed entries)
		if c, ok := p.value.(container); ok {
			c.shapeDep().Depend()
		}
	}

	return p.value
}

// Peek returns the value without tracking.
func (p *Prop) Peek() any {
	return p.value
}

// Set writes v and notifies the subscribers, unless v is the same as the current value.
func (p *Prop) Set(v any) {
	if p.equal(p.value, v) {
		return
	}

	if p.deep {
		v = p.rt.Observe(v)
	}
	p.value = v

	p.rt.Batch(p.dep.Notify)
}

// container is a reactive value with entries that can be added or removed.
type container interface {
	shapeDep() *Dep
	traverse(seen map[uint64]struct{})
}

// Observe converts plain maps and slices into reactive Objects and Lists, recursively.
func (r *Runtime) Observe(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return r.NewObject(v)
	case []any:
		return r.NewList(v)
	}

	return v
}

// traverse reads every nested reactive entry of v so the current target depends on all of them.
func traverse(v any) {
	if c, ok := v.(container); ok {
		c.traverse(make(map[uint64]struct{}))
	}
}

func traverseValue(v any, seen map[uint64]struct{}) {
	c, ok := v.(container)
	if !ok {
		return
	}

	id := c.shapeDep().ID()
	if _, done := seen[id]; done {
		return
	}
	seen[id] = struct{}{}

	c.traverse(seen)
}
