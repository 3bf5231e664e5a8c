package container

// heapEntry pairs a priority with the pointer it orders. Priorities
// are stored with the traditional "+1 bias": a stored value of 0 is
// never produced by NewEntry, so the zero value of heapEntry — which
// Go's zeroed allocation produces for free — can never be mistaken
// for a real, lowest-priority entry placed by a caller who asked for
// priority 0.
type heapEntry[T any] struct {
	priority int
	item     *T
}

func newEntry[T any](priority int, item *T) heapEntry[T] {
	return heapEntry[T]{priority: priority + 1, item: item}
}

func (e heapEntry[T]) exposedPriority() int { return e.priority - 1 }

// MinHeap is a binary min-heap of (priority, pointer) pairs. It is
// used by the symbol table's unused-function/unused-variable
// diagnostics (drained in source-line order) and anywhere else a
// lowest-first ordering over pointers is needed.
type MinHeap[T any] struct {
	entries []heapEntry[T]
}

// NewMinHeap returns an empty min-heap.
func NewMinHeap[T any]() *MinHeap[T] { return &MinHeap[T]{} }

// Len reports the number of queued entries.
func (h *MinHeap[T]) Len() int { return len(h.entries) }

// Push inserts item with the given priority. Capacity growth is left
// to append's lazy doubling.
func (h *MinHeap[T]) Push(priority int, item *T) {
	h.entries = append(h.entries, newEntry(priority, item))
	h.siftUp(len(h.entries) - 1)
}

// Pop removes and returns the lowest-priority item. Panics on an
// empty heap.
func (h *MinHeap[T]) Pop() (int, *T) {
	if len(h.entries) == 0 {
		panic("container: Pop on empty MinHeap")
	}
	top := h.entries[0]
	last := len(h.entries) - 1
	h.entries[0] = h.entries[last]
	h.entries = h.entries[:last]
	if len(h.entries) > 0 {
		h.siftDownMin(0)
	}
	return top.exposedPriority(), top.item
}

func (h *MinHeap[T]) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if h.entries[parent].priority <= h.entries[i].priority {
			break
		}
		h.entries[parent], h.entries[i] = h.entries[i], h.entries[parent]
		i = parent
	}
}

func (h *MinHeap[T]) siftDownMin(i int) {
	n := len(h.entries)
	for {
		left, right := 2*i+1, 2*i+2
		smallest := i
		if left < n && h.entries[left].priority < h.entries[smallest].priority {
			smallest = left
		}
		if right < n && h.entries[right].priority < h.entries[smallest].priority {
			smallest = right
		}
		if smallest == i {
			return
		}
		h.entries[i], h.entries[smallest] = h.entries[smallest], h.entries[i]
		i = smallest
	}
}

// MaxHeap is the max-priority mirror of MinHeap, used by the
// data-dependence scheduler to pop the ready node with the longest
// path to any root.
type MaxHeap[T any] struct {
	entries []heapEntry[T]
}

// NewMaxHeap returns an empty max-heap.
func NewMaxHeap[T any]() *MaxHeap[T] { return &MaxHeap[T]{} }

// Len reports the number of queued entries.
func (h *MaxHeap[T]) Len() int { return len(h.entries) }

// Push inserts item with the given priority.
func (h *MaxHeap[T]) Push(priority int, item *T) {
	h.entries = append(h.entries, newEntry(priority, item))
	i := len(h.entries) - 1
	for i > 0 {
		parent := (i - 1) / 2
		if h.entries[parent].priority >= h.entries[i].priority {
			break
		}
		h.entries[parent], h.entries[i] = h.entries[i], h.entries[parent]
		i = parent
	}
}

// Pop removes and returns the highest-priority item. Panics on an
// empty heap.
func (h *MaxHeap[T]) Pop() (int, *T) {
	if len(h.entries) == 0 {
		panic("container: Pop on empty MaxHeap")
	}
	top := h.entries[0]
	last := len(h.entries) - 1
	h.entries[0] = h.entries[last]
	h.entries = h.entries[:last]
	if len(h.entries) > 0 {
		h.siftDownMax(0)
	}
	return top.exposedPriority(), top.item
}

func (h *MaxHeap[T]) siftDownMax(i int) {
	n := len(h.entries)
	for {
		left, right := 2*i+1, 2*i+2
		largest := i
		if left < n && h.entries[left].priority > h.entries[largest].priority {
			largest = left
		}
		if right < n && h.entries[right].priority > h.entries[largest].priority {
			largest = right
		}
		if largest == i {
			return
		}
		h.entries[i], h.entries[largest] = h.entries[largest], h.entries[i]
		i = largest
	}
}
