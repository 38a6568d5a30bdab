package observe

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObject(t *testing.T) {
	t.Run("renders nested state", func(t *testing.T) {
		log := []string{}

		state := NewObject(map[string]any{
			"title": "todos",
			"items": []any{"a", "b"},
		})

		Mount(func() string {
			items := state.Get("items").(*List)

			parts := []string{}
			for _, item := range items.Values() {
				parts = append(parts, item.(string))
			}
			return fmt.Sprintf("%s: %s", state.Get("title"), strings.Join(parts, ","))
		}, func(prev, next string) {
			log = append(log, next)
		})

		state.Get("items").(*List).Push("c")
		state.Set("title", "done")
		state.Set("items", []any{})

		assert.Equal(t, []string{
			"todos: a,b",
			"todos: a,b,c",
			"done: a,b,c",
			"done: ",
		}, log)
	})

	t.Run("raw returns plain values", func(t *testing.T) {
		state := NewObject(map[string]any{
			"user": map[string]any{"name": "ada", "tags": []any{"math"}},
		})

		assert.Equal(t, map[string]any{
			"user": map[string]any{"name": "ada", "tags": []any{"math"}},
		}, state.Raw())
	})

	t.Run("keys", func(t *testing.T) {
		log := []string{}

		state := NewObject(map[string]any{"b": 1, "a": 2})
		Effect(func() {
			log = append(log, strings.Join(state.Keys(), ","))
		})

		state.Set("c", 3)
		state.Delete("a")

		assert.Equal(t, []string{"a,b", "a,b,c", "b,c"}, log)
		assert.True(t, state.Has("b"))
		assert.False(t, state.Has("a"))
	})
}

func TestList(t *testing.T) {
	t.Run("from values", func(t *testing.T) {
		l := NewList(1, map[string]any{"a": 1})

		assert.Equal(t, 2, l.Len())
		assert.Equal(t, 1, l.At(0))
		require.IsType(t, &Object{}, l.At(1))
	})

	t.Run("splice", func(t *testing.T) {
		log := []string{}

		l := NewList("a", "b", "c")
		Effect(func() {
			log = append(log, fmt.Sprint(l.Values()))
		})

		removed := l.Splice(1, 1, "x", "y")

		assert.Equal(t, []any{"b"}, removed)
		assert.Equal(t, []string{"[a b c]", "[a x y c]"}, log)
	})
}

func TestObserve(t *testing.T) {
	assert.IsType(t, &Object{}, Observe(map[string]any{}))
	assert.IsType(t, &List{}, Observe([]any{}))
	assert.Equal(t, 1, Observe(1))
	assert.Equal(t, []int{1}, Observe([]int{1}))
}
