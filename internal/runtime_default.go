//go:build !wasm

package internal

import (
	"sync"

	"github.com/petermattis/goid"
)

// one runtime per goroutine, evaluations never cross goroutines
var runtimes sync.Map

func GetRuntime() *Runtime {
	gid := getGID()

	if r, ok := runtimes.Load(gid); ok {
		return r.(*Runtime)
	}

	r := MustRuntime(DefaultConfig())
	runtimes.Store(gid, r)
	return r
}

// SetRuntime binds r to the calling goroutine, nil unbinds it.
func SetRuntime(r *Runtime) {
	gid := getGID()

	if r == nil {
		runtimes.Delete(gid)
		return
	}

	runtimes.Store(gid, r)
}

func getGID() int64 {
	return goid.Get()
}
