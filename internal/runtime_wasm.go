//go:build wasm

package internal

var globalRuntime *Runtime

// wasm is single threaded, every goroutine shares the same runtime
func GetRuntime() *Runtime {
	if globalRuntime == nil {
		globalRuntime = MustRuntime(DefaultConfig())
	}

	return globalRuntime
}

func SetRuntime(r *Runtime) {
	globalRuntime = r
}
