package collection_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policy-onboarding/internal/collection"
)

type entry struct {
	name string
	kind string
	pct  float64
}

func TestAddKeepsInsertionOrder(t *testing.T) {
	s := collection.New[entry]()
	assert.Equal(t, 0, s.Add(entry{name: "a"}))
	assert.Equal(t, 1, s.Add(entry{name: "b"}))
	assert.Equal(t, 2, s.Add(entry{name: "c"}))

	var names []string
	for _, e := range s.All() {
		names = append(names, e.name)
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestAllIsRestartable(t *testing.T) {
	s := collection.New(1, 2, 3)
	for i := 0; i < 2; i++ {
		var got []int
		for _, v := range s.All() {
			got = append(got, v)
		}
		assert.Equal(t, []int{1, 2, 3}, got)
	}

	var first []int
	for idx, v := range s.All() {
		first = append(first, v)
		if idx == 0 {
			break
		}
	}
	assert.Equal(t, []int{1}, first)
}

func TestRemoveAtReindexes(t *testing.T) {
	s := collection.New("a", "b", "c")

	removed, err := s.RemoveAt(1)
	require.NoError(t, err)
	assert.Equal(t, "b", removed)
	assert.Equal(t, []string{"a", "c"}, s.Items())

	v, ok := s.At(1)
	assert.True(t, ok)
	assert.Equal(t, "c", v)

	assert.Equal(t, 2, s.Add("d"))
	assert.Equal(t, []string{"a", "c", "d"}, s.Items())
}

func TestRemoveAtOutOfRange(t *testing.T) {
	s := collection.New("a")
	_, err := s.RemoveAt(1)
	assert.ErrorIs(t, err, collection.ErrIndexOutOfRange)
	_, err = s.RemoveAt(-1)
	assert.ErrorIs(t, err, collection.ErrIndexOutOfRange)
	assert.Equal(t, 1, s.Len())
}

func TestDuplicatesAllowed(t *testing.T) {
	s := collection.New[entry]()
	s.Add(entry{name: "x", kind: "child"})
	s.Add(entry{name: "x", kind: "child"})
	assert.Equal(t, 2, s.Len())
}

func TestAggregates(t *testing.T) {
	s := collection.New(
		entry{name: "a", kind: "child", pct: 60},
		entry{name: "b", kind: "spouse", pct: 25},
		entry{name: "c", kind: "child", pct: 15},
	)

	assert.Equal(t, 2, s.CountBy(func(e entry) bool { return e.kind == "child" }))
	assert.Equal(t, 100.0, s.SumBy(func(e entry) float64 { return e.pct }))
	assert.Equal(t, map[string]int{"child": 2, "spouse": 1},
		collection.CountByKey(s, func(e entry) string { return e.kind }))
}

func TestItemsIsACopy(t *testing.T) {
	s := collection.New("a")
	items := s.Items()
	items[0] = "z"
	v, _ := s.At(0)
	assert.Equal(t, "a", v)
}
