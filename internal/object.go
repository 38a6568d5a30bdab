package internal

import (
	"maps"
	"slices"
)

// Object is a string keyed set of reactive attributes.
type Object struct {
	rt  *Runtime
	dep *Dep

	keys  []string
	props map[string]*Prop
}

// NewObject converts data into an Object, keys are kept in sorted order.
func (r *Runtime) NewObject(data map[string]any) *Object {
	o := &Object{
		rt:    r,
		dep:   r.NewDep(),
		props: make(map[string]*Prop, len(data)),
	}

	for _, key := range slices.Sorted(maps.Keys(data)) {
		o.keys = append(o.keys, key)
		o.props[key] = r.NewProp(data[key], PropOptions{Deep: true})
	}

	return o
}

func (o *Object) shapeDep() *Dep {
	return o.dep
}

func (o *Object) Dep() *Dep {
	return o.dep
}

// Get returns the value at key, or nil.
func (o *Object) Get(key string) any {
	v, _ := o.Lookup(key)
	return v
}

// Lookup depends on the attribute at key and on the object's shape,
// so adding or deleting the key is seen too.
func (o *Object) Lookup(key string) (any, bool) {
	o.dep.Depend()

	p, ok := o.props[key]
	if !ok {
		return nil, false
	}

	return p.Get(), true
}

// Prop returns the attribute at key, or nil.
func (o *Object) Prop(key string) *Prop {
	return o.props[key]
}

// Set writes an existing attribute, or adds it and notifies the object's shape subscribers.
func (o *Object) Set(key string, v any) {
	if p, ok := o.props[key]; ok {
		p.Set(v)
		return
	}

	o.keys = append(o.keys, key)
	o.props[key] = o.rt.NewProp(v, PropOptions{Deep: true})

	o.rt.Batch(o.dep.Notify)
}

func (o *Object) Delete(key string) {
	if _, ok := o.props[key]; !ok {
		return
	}

	delete(o.props, key)
	if i := slices.Index(o.keys, key); i != -1 {
		o.keys = slices.Delete(o.keys, i, i+1)
	}

	o.rt.Batch(o.dep.Notify)
}

func (o *Object) Has(key string) bool {
	o.dep.Depend()

	_, ok := o.props[key]
	return ok
}

func (o *Object) Keys() []string {
	o.dep.Depend()
	return slices.Clone(o.keys)
}

func (o *Object) Len() int {
	o.dep.Depend()
	return len(o.keys)
}

// Raw returns an untracked plain copy, nested Objects and Lists are converted back.
func (o *Object) Raw() map[string]any {
	raw := make(map[string]any, len(o.keys))
	for _, key := range o.keys {
		raw[key] = rawValue(o.props[key].Peek())
	}

	return raw
}

func (o *Object) traverse(seen map[uint64]struct{}) {
	o.dep.Depend()

	for _, key := range o.keys {
		traverseValue(o.props[key].Get(), seen)
	}
}

func rawValue(v any) any {
	switch v := v.(type) {
	case *Object:
		return v.Raw()
	case *List:
		return v.Raw()
	}

	return v
}
