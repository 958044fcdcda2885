package collection

import (
	"errors"
	"fmt"
	"iter"
)

var ErrIndexOutOfRange = errors.New("index out of range")

// Store is an ordered list of repeatable records. Items keep insertion
// order; removing one shifts the later items down. Identical items are
// allowed. A Store is not safe for concurrent mutation.
type Store[T any] struct {
	items []T
}

func New[T any](items ...T) *Store[T] {
	s := &Store[T]{}
	s.items = append(s.items, items...)
	return s
}

// Add appends item and returns its index.
func (s *Store[T]) Add(item T) int {
	s.items = append(s.items, item)
	return len(s.items) - 1
}

// RemoveAt deletes the item at index i and returns it.
func (s *Store[T]) RemoveAt(i int) (T, error) {
	var zero T
	if i < 0 || i >= len(s.items) {
		return zero, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(s.items))
	}
	item := s.items[i]
	s.items = append(s.items[:i], s.items[i+1:]...)
	return item, nil
}

// At returns the item at index i.
func (s *Store[T]) At(i int) (T, bool) {
	var zero T
	if i < 0 || i >= len(s.items) {
		return zero, false
	}
	return s.items[i], true
}

func (s *Store[T]) Len() int { return len(s.items) }

// All yields index/item pairs in insertion order. Each call starts over.
func (s *Store[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i, item := range s.items {
			if !yield(i, item) {
				return
			}
		}
	}
}

// Items returns a copy of the stored items.
func (s *Store[T]) Items() []T {
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store[T]) CountBy(pred func(T) bool) int {
	n := 0
	for _, item := range s.items {
		if pred(item) {
			n++
		}
	}
	return n
}

func (s *Store[T]) SumBy(selector func(T) float64) float64 {
	var sum float64
	for _, item := range s.items {
		sum += selector(item)
	}
	return sum
}

// CountByKey groups the items by key and counts each group.
func CountByKey[T any, K comparable](s *Store[T], key func(T) K) map[K]int {
	out := map[K]int{}
	for _, item := range s.items {
		out[key(item)]++
	}
	return out
}
