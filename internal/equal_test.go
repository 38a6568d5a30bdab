package internal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSame(t *testing.T) {
	type point struct{ X, Y int }
	type holder struct{ V any }

	ptr := &point{}

	tests := []struct {
		name string
		a, b any
		same bool
	}{
		{"equal ints", 1, 1, true},
		{"different ints", 1, 2, false},
		{"different types", 1, int64(1), false},
		{"strings", "a", "a", true},
		{"nil", nil, nil, true},
		{"nil and value", nil, 0, false},
		{"NaN", math.NaN(), math.NaN(), true},
		{"float32 NaN", float32(math.NaN()), float32(math.NaN()), true},
		{"floats", 1.5, 1.5, true},
		{"structs", point{1, 2}, point{1, 2}, true},
		{"same pointer", ptr, ptr, true},
		{"other pointer", ptr, &point{}, false},
		{"slices", []int{1}, []int{1}, false},
		{"maps", map[string]int{}, map[string]int{}, false},
		{"struct holding a slice", holder{[]int{1}}, holder{[]int{1}}, false},
		{"struct holding an int", holder{1}, holder{1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.same, isSame(tt.a, tt.b))
		})
	}
}
