package internal

import (
	"math"
	"reflect"
)

// isSame reports whether a write of b over a should be treated as "unchanged".
// NaN is the same as NaN, and values of non comparable types are never the same.
func isSame(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}

	if !ta.Comparable() {
		return false
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch va.Kind() {
	case reflect.Float32, reflect.Float64:
		fa, fb := va.Float(), vb.Float()
		if math.IsNaN(fa) && math.IsNaN(fb) {
			return true
		}
		return fa == fb
	case reflect.Interface, reflect.Array, reflect.Struct:
		// may still hold a non comparable dynamic value
		return safeEqual(a, b)
	}

	return a == b
}

func safeEqual(a, b any) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()

	return a == b
}
