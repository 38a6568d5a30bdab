package internal

// TargetStack tracks which watcher is evaluating right now.
// Pushes and pops are strictly nested, a nil target disables tracking.
type TargetStack struct {
	current *Watcher
	stack   []*Watcher
}

func NewTargetStack() *TargetStack {
	return &TargetStack{}
}

func (t *TargetStack) Push(w *Watcher) {
	t.stack = append(t.stack, t.current)
	t.current = w
}

func (t *TargetStack) Pop() {
	if len(t.stack) == 0 {
		t.current = nil
		return
	}

	last := len(t.stack) - 1
	t.current = t.stack[last]
	t.stack[last] = nil
	t.stack = t.stack[:last]
}

func (t *TargetStack) Current() *Watcher {
	return t.current
}

func (t *TargetStack) Depth() int {
	return len(t.stack)
}

// Run evaluates fn with w as the current target, popping even if fn panics.
func (t *TargetStack) Run(w *Watcher, fn func()) {
	t.Push(w)
	defer t.Pop()

	fn()
}

// RunUntracked evaluates fn without any current target.
func (t *TargetStack) RunUntracked(fn func()) {
	t.Run(nil, fn)
}
