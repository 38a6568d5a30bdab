package internal

type Batcher struct {
	// each nested batch increases the depth by 1
	// onComplete only runs when the outermost batch is done
	depth int
}

func NewBatcher() *Batcher {
	return &Batcher{
		depth: 0,
	}
}

func (b *Batcher) IsBatching() bool {
	return b.depth > 0
}

func (b *Batcher) Batch(fn, onComplete func()) {
	b.depth++
	defer func() {
		b.depth--
		if b.depth == 0 && onComplete != nil {
			onComplete()
		}
	}()

	fn()
}

// Batch runs fn as one synchronous unit: microtasks queued on the built-in
// checkpoint host are drained once the outermost batch returns.
func (r *Runtime) Batch(fn func()) {
	r.batcher.Batch(fn, r.settle)
}

func (r *Runtime) settle() {
	if r.checkpoint != nil {
		r.checkpoint.Drain()
	}
}
