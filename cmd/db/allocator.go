package db

import "unsafe"

// Allocator accounts for the memory a Queue claims. Alloc may refuse a
// request, in which case the queue reports failure and leaves its contents
// untouched. Every successful Alloc is paired with exactly one Release of the
// same size.
type Allocator interface {
	Alloc(size int) bool
	Release(size int)
}

var (
	queueSize = int(unsafe.Sizeof(Queue{}))
	nodeSize  = int(unsafe.Sizeof(qNode{}))
)

// payloadSize is the storage a copied string occupies, terminator included.
func payloadSize(s string) int {
	return len(s) + 1
}

type heapAllocator struct{}

func (heapAllocator) Alloc(int) bool { return true }
func (heapAllocator) Release(int)    {}

type Option func(q *Queue)

// WithAllocator makes the queue draw its container, nodes and payloads from a.
func WithAllocator(a Allocator) Option {
	return func(q *Queue) {
		if a != nil {
			q.alloc = a
		}
	}
}
