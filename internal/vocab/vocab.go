package vocab

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrImmutable = errors.New("vocab: index is frozen")
	ErrNotBinary = errors.New("vocab: flip needs exactly two entries")
)

// Index is a bidirectional mapping between keys and dense integer indices.
// Checkpoint vocabularies are frozen after load; the lock only matters while
// an index is being built.
type Index[K comparable] struct {
	mu      sync.RWMutex
	frozen  bool
	forward map[K]int
	inverse map[int]K
}

func New[K comparable]() *Index[K] {
	return &Index[K]{forward: make(map[K]int), inverse: make(map[int]K)}
}

// FromSlice builds a frozen index where keys[i] maps to i.
func FromSlice[K comparable](keys []K) (*Index[K], error) {
	idx := New[K]()
	for i, k := range keys {
		if idx.Exists(k) {
			return nil, fmt.Errorf("vocab: duplicate entry %v at %d", k, i)
		}
		if err := idx.Insert(k, i); err != nil {
			return nil, err
		}
	}
	idx.Freeze()
	return idx, nil
}

// Insert maps k to v, replacing any previous mapping of k.
func (x *Index[K]) Insert(k K, v int) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.frozen {
		return ErrImmutable
	}
	if old, ok := x.forward[k]; ok {
		delete(x.inverse, old)
	}
	x.forward[k] = v
	x.inverse[v] = k
	return nil
}

func (x *Index[K]) Freeze() {
	x.mu.Lock()
	x.frozen = true
	x.mu.Unlock()
}

func (x *Index[K]) Get(k K) (int, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	v, ok := x.forward[k]
	return v, ok
}

func (x *Index[K]) GetInverse(v int) (K, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	k, ok := x.inverse[v]
	return k, ok
}

func (x *Index[K]) Exists(k K) bool {
	_, ok := x.Get(k)
	return ok
}

func (x *Index[K]) ExistsInverse(v int) bool {
	_, ok := x.GetInverse(v)
	return ok
}

func (x *Index[K]) Size() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.forward)
}

// Indices returns all indices in ascending order.
func (x *Index[K]) Indices() []int {
	x.mu.RLock()
	out := make([]int, 0, len(x.inverse))
	for v := range x.inverse {
		out = append(out, v)
	}
	x.mu.RUnlock()
	sort.Ints(out)
	return out
}

// Keys returns the keys ordered by index.
func (x *Index[K]) Keys() []K {
	indices := x.Indices()
	out := make([]K, 0, len(indices))
	for _, v := range indices {
		k, _ := x.GetInverse(v)
		out = append(out, k)
	}
	return out
}

// Lookup is Get with an error for unknown keys.
func (x *Index[K]) Lookup(k K) (int, error) {
	if v, ok := x.Get(k); ok {
		return v, nil
	}
	return 0, fmt.Errorf("vocab: %v is not part of the vocabulary", k)
}

// Key is GetInverse with an error for unknown indices.
func (x *Index[K]) Key(v int) (K, error) {
	if k, ok := x.GetInverse(v); ok {
		return k, nil
	}
	var zero K
	return zero, fmt.Errorf("vocab: invalid index %d", v)
}

// Flip returns the other index of a two-entry index.
func (x *Index[K]) Flip(v int) (int, error) {
	if x.Size() != 2 {
		return 0, ErrNotBinary
	}
	if !x.ExistsInverse(v) {
		return 0, fmt.Errorf("vocab: invalid index %d", v)
	}
	for _, other := range x.Indices() {
		if other != v {
			return other, nil
		}
	}
	return 0, ErrNotBinary
}
