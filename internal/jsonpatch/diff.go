package jsonpatch

import (
	"reflect"
	"slices"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

type (
	OpKind string

	// Op is one RFC 6902 operation.
	Op struct {
		Op    OpKind `json:"op"`
		Path  string `json:"path"`
		Value any    `json:"value,omitempty"`
	}
)

const (
	OpAdd     OpKind = "add"
	OpRemove  OpKind = "remove"
	OpReplace OpKind = "replace"
)

// Between renders both values to JSON and returns the patch turning
// before into after. Object keys are visited in sorted order so equal
// inputs always give the same patch.
func Between(before, after any) ([]Op, error) {
	a, err := generic(before)
	if err != nil {
		return nil, err
	}
	b, err := generic(after)
	if err != nil {
		return nil, err
	}
	return Diff(a, b, ""), nil
}

// Diff computes the patch that transforms a into b. Both must be the
// result of json.Unmarshal into any. Path is "" for the root document.
func Diff(a, b any, path string) []Op {
	if a == nil && b == nil {
		return nil
	}
	if a == nil || b == nil {
		return []Op{replace(path, b)}
	}

	aMap, aIsMap := a.(map[string]any)
	bMap, bIsMap := b.(map[string]any)
	if aIsMap && bIsMap {
		return diffObjects(aMap, bMap, path)
	}

	aArr, aIsArr := a.([]any)
	bArr, bIsArr := b.([]any)
	if aIsArr && bIsArr {
		return diffArrays(aArr, bArr, path)
	}

	if !reflect.DeepEqual(a, b) {
		return []Op{replace(path, b)}
	}
	return nil
}

func diffObjects(a, b map[string]any, path string) []Op {
	var ops []Op

	for _, k := range sortedKeys(a) {
		if _, ok := b[k]; !ok {
			ops = append(ops, Op{Op: OpRemove, Path: path + "/" + escapeKey(k)})
		}
	}

	for _, k := range sortedKeys(b) {
		childPath := path + "/" + escapeKey(k)
		av, inA := a[k]
		if !inA {
			ops = append(ops, Op{Op: OpAdd, Path: childPath, Value: b[k]})
			continue
		}
		ops = append(ops, Diff(av, b[k], childPath)...)
	}
	return ops
}

func diffArrays(a, b []any, path string) []Op {
	var ops []Op
	common := min(len(a), len(b))

	for i := range common {
		ops = append(ops, Diff(a[i], b[i], path+"/"+strconv.Itoa(i))...)
	}

	// removals run backwards so earlier indices stay valid
	for i := len(a) - 1; i >= common; i-- {
		ops = append(ops, Op{Op: OpRemove, Path: path + "/" + strconv.Itoa(i)})
	}
	for i := common; i < len(b); i++ {
		ops = append(ops, Op{Op: OpAdd, Path: path + "/" + strconv.Itoa(i), Value: b[i]})
	}
	return ops
}

func generic(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func replace(path string, value any) Op {
	return Op{Op: OpReplace, Path: path, Value: value}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// escapeKey escapes a JSON Pointer token per RFC 6901.
func escapeKey(s string) string {
	s = strings.ReplaceAll(s, "~", "~0")
	s = strings.ReplaceAll(s, "/", "~1")
	return s
}
