package jsonpatch_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policy-onboarding/internal/jsonpatch"
)

type view struct {
	Step  string   `json:"step"`
	Names []string `json:"names"`
	Note  string   `json:"note,omitempty"`
}

func TestBetween(t *testing.T) {
	before := view{Step: "children", Names: []string{"a", "b"}, Note: "x"}
	after := view{Step: "spouse", Names: []string{"a", "c", "d"}}

	ops, err := jsonpatch.Between(before, after)
	require.NoError(t, err)
	assert.Equal(t, []jsonpatch.Op{
		{Op: jsonpatch.OpRemove, Path: "/note"},
		{Op: jsonpatch.OpReplace, Path: "/names/1", Value: "c"},
		{Op: jsonpatch.OpAdd, Path: "/names/2", Value: "d"},
		{Op: jsonpatch.OpReplace, Path: "/step", Value: "spouse"},
	}, ops)
}

func TestBetweenEqual(t *testing.T) {
	v := view{Step: "summary", Names: []string{"a"}}
	ops, err := jsonpatch.Between(v, v)
	require.NoError(t, err)
	assert.Empty(t, ops)
}

func TestDiffDeterministic(t *testing.T) {
	a := map[string]any{"k1": 1.0, "k2": 2.0, "k3": 3.0, "k4": 4.0}
	b := map[string]any{"k5": 5.0, "k6": 6.0, "k7": 7.0, "k8": 8.0}

	first := jsonpatch.Diff(a, b, "")
	for range 20 {
		assert.Equal(t, first, jsonpatch.Diff(a, b, ""))
	}
	assert.Equal(t, "/k1", first[0].Path)
	assert.Equal(t, "/k8", first[len(first)-1].Path)
}

func TestDiffArrayShrinkAndEscape(t *testing.T) {
	a := map[string]any{"a/b": []any{1.0, 2.0, 3.0}}
	b := map[string]any{"a/b": []any{1.0}}

	assert.Equal(t, []jsonpatch.Op{
		{Op: jsonpatch.OpRemove, Path: "/a~1b/2"},
		{Op: jsonpatch.OpRemove, Path: "/a~1b/1"},
	}, jsonpatch.Diff(a, b, ""))
}

func TestDiffTypeChange(t *testing.T) {
	ops := jsonpatch.Diff(map[string]any{"v": "1"}, map[string]any{"v": []any{"1"}}, "")
	assert.Equal(t, []jsonpatch.Op{
		{Op: jsonpatch.OpReplace, Path: "/v", Value: []any{"1"}},
	}, ops)
}
