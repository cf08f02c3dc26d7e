package crawler

// Window is a bounded FIFO of recently seen items.
// Pushing into a full window evicts the oldest item.
//
// Design decision: We use a ring buffer rather than re-slicing because:
//  1. The windows are pushed to on every accepted URL, so allocation matters
//  2. Re-slicing a queue keeps evicted items reachable until reallocation
//  3. Capacity is fixed for the lifetime of a crawl
//
// Window is not safe for concurrent use. The pipeline Processor serializes
// all access.
type Window[T any] struct {
	items []T
	start int
	size  int
}

// NewWindow creates a window holding at most capacity items.
// A capacity below 1 is treated as 1.
func NewWindow[T any](capacity int) *Window[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Window[T]{items: make([]T, capacity)}
}

// Push appends item, evicting the oldest item when the window is full.
// It returns the evicted item and true if an eviction happened.
func (w *Window[T]) Push(item T) (T, bool) {
	var evicted T
	capacity := len(w.items)

	if w.size < capacity {
		w.items[(w.start+w.size)%capacity] = item
		w.size++
		return evicted, false
	}

	evicted = w.items[w.start]
	w.items[w.start] = item
	w.start = (w.start + 1) % capacity
	return evicted, true
}

// Each calls fn for every item from oldest to newest until fn returns false.
func (w *Window[T]) Each(fn func(T) bool) {
	capacity := len(w.items)
	for i := 0; i < w.size; i++ {
		if !fn(w.items[(w.start+i)%capacity]) {
			return
		}
	}
}

// Items returns a copy of the items from oldest to newest.
func (w *Window[T]) Items() []T {
	out := make([]T, 0, w.size)
	w.Each(func(item T) bool {
		out = append(out, item)
		return true
	})
	return out
}

// Len returns the number of items in the window.
func (w *Window[T]) Len() int {
	return w.size
}

// Cap returns the maximum number of items the window holds.
func (w *Window[T]) Cap() int {
	return len(w.items)
}
