package lookup_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/espalier/pkg/lookup"
)

func abc() *lookup.Lookup[string, int] {
	return lookup.New(
		lookup.Pair[string, int]{Key: "a", Value: 1},
		lookup.Pair[string, int]{Key: "b", Value: 2},
		lookup.Pair[string, int]{Key: "c", Value: 3},
	)
}

func TestLookup_Accessors(t *testing.T) {
	l := abc()

	assert.Equal(t, []string{"a", "b", "c"}, l.Keys())
	assert.Equal(t, []int{1, 2, 3}, l.Values())
	assert.Equal(t, map[string]int{"a": 1, "b": 2, "c": 3}, l.Items())
	assert.Equal(t, 3, l.Len())

	v, ok := l.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = l.Get("d")
	assert.False(t, ok)
}

func TestLookup_CopiesDoNotAlias(t *testing.T) {
	l := abc()

	items := l.Items()
	items["a"] = 100
	keys := l.Keys()
	keys[0] = "z"
	values := l.Values()
	values[0] = 42
	pairs := l.Pairs()
	pairs[0].Value = 7

	assert.Equal(t, map[string]int{"a": 1, "b": 2, "c": 3}, l.Items())
	assert.Equal(t, []string{"a", "b", "c"}, l.Keys())
	assert.Equal(t, []int{1, 2, 3}, l.Values())
}

func TestLookup_Add(t *testing.T) {
	t.Run("Appends And Returns Self", func(t *testing.T) {
		l := abc()
		assert.Same(t, l, l.Add("d", 4))
		assert.Equal(t, []string{"a", "b", "c", "d"}, l.Keys())
	})

	t.Run("Overwrite Keeps Position", func(t *testing.T) {
		l := abc()
		l.Add("a", 10)
		assert.Equal(t, []string{"a", "b", "c"}, l.Keys())
		assert.Equal(t, []int{10, 2, 3}, l.Values())
	})

	t.Run("Emits Add", func(t *testing.T) {
		l := abc()
		var got []lookup.Pair[string, int]
		l.On(lookup.EventAdd, func(k string, v int) {
			got = append(got, lookup.Pair[string, int]{Key: k, Value: v})
		})

		l.Add("d", 4)
		l.Add("a", 5)
		assert.Equal(t, []lookup.Pair[string, int]{{Key: "d", Value: 4}, {Key: "a", Value: 5}}, got)
	})

	t.Run("Zero Value Usable", func(t *testing.T) {
		var l lookup.Lookup[string, int]
		l.Add("x", 1)
		v, ok := l.Get("x")
		assert.True(t, ok)
		assert.Equal(t, 1, v)
	})
}

func TestLookup_Remove(t *testing.T) {
	t.Run("Returns Removed Value", func(t *testing.T) {
		l := abc()
		v, ok := l.Remove("c")
		assert.True(t, ok)
		assert.Equal(t, 3, v)
		assert.Equal(t, map[string]int{"a": 1, "b": 2}, l.Items())
	})

	t.Run("Emits Remove Once", func(t *testing.T) {
		l := abc()
		calls := 0
		l.On(lookup.EventRemove, func(k string, v int) {
			calls++
			assert.Equal(t, "c", k)
			assert.Equal(t, 3, v)
		})

		l.Remove("c")
		l.Remove("c")
		assert.Equal(t, 1, calls)
	})

	t.Run("Missing Key Is No-op", func(t *testing.T) {
		l := abc()
		emitted := false
		l.On(lookup.EventRemove, func(string, int) { emitted = true })

		_, ok := l.Remove("nope")
		assert.False(t, ok)
		assert.False(t, emitted)
		assert.Equal(t, 3, l.Len())
	})
}

func TestLookup_Listeners(t *testing.T) {
	t.Run("Off Function", func(t *testing.T) {
		l := abc()
		calls := 0
		off := l.On(lookup.EventAdd, func(string, int) { calls++ })

		l.Add("d", 4)
		off()
		off()
		l.Add("e", 5)
		assert.Equal(t, 1, calls)
	})

	t.Run("Off Kind", func(t *testing.T) {
		l := abc()
		calls := 0
		l.On(lookup.EventRemove, func(string, int) { calls++ })
		l.Off(lookup.EventRemove)
		l.Remove("a")
		assert.Zero(t, calls)
	})

	t.Run("Reentrant Mutation", func(t *testing.T) {
		l := abc()
		l.On(lookup.EventRemove, func(k string, _ int) {
			if k == "a" {
				l.Remove("b")
			}
		})

		l.Remove("a")
		assert.Equal(t, []string{"c"}, l.Keys())
	})

	t.Run("Unsubscribe During Dispatch", func(t *testing.T) {
		l := abc()
		var offSecond func()
		secondCalls := 0
		l.On(lookup.EventAdd, func(string, int) { offSecond() })
		offSecond = l.On(lookup.EventAdd, func(string, int) { secondCalls++ })

		l.Add("d", 4)
		require.Zero(t, secondCalls)
		l.Add("e", 5)
		assert.Zero(t, secondCalls)
	})
}
