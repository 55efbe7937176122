package db

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCorruptEmpty = errors.New("queue head, tail and size disagree on emptiness")
	ErrCorruptCount = errors.New("queue size does not match its chain")
	ErrCorruptTail  = errors.New("queue tail is not the last node")
)

type qNode struct {
	value string
	next  *qNode
}

// Queue is a singly linked queue of strings. The queue owns the chain through
// head; tail only points into it so that InsertTail runs in constant time.
// A Queue is not safe for concurrent use.
type Queue struct {
	head  *qNode
	tail  *qNode
	count int
	alloc Allocator
}

// NewQueue returns an empty queue, or nil if the allocator refuses the
// container itself.
func NewQueue(opts ...Option) *Queue {
	q := &Queue{alloc: heapAllocator{}}
	for _, opt := range opts {
		opt(q)
	}

	if !q.alloc.Alloc(queueSize) {
		return nil
	}

	return q
}

// Free releases every node and payload, then the queue itself. The queue must
// not be used afterwards.
func (q *Queue) Free() {
	if q == nil {
		return
	}

	for q.head != nil {
		node := q.head
		q.head = node.next
		q.release(node)
	}

	q.tail = nil
	q.count = 0
	q.alloc.Release(queueSize)
}

func (q *Queue) newNode(s string) *qNode {
	if !q.alloc.Alloc(nodeSize) {
		return nil
	}
	if !q.alloc.Alloc(payloadSize(s)) {
		q.alloc.Release(nodeSize)
		return nil
	}

	return &qNode{value: strings.Clone(s)}
}

func (q *Queue) release(node *qNode) {
	q.alloc.Release(payloadSize(node.value))
	node.value = ""
	node.next = nil
	q.alloc.Release(nodeSize)
}

// InsertHead stores a copy of s in front of the queue. It returns false if q
// is nil or the allocation fails, in which case the queue is unchanged.
func (q *Queue) InsertHead(s string) bool {
	if q == nil {
		return false
	}

	node := q.newNode(s)
	if node == nil {
		return false
	}

	node.next = q.head
	q.head = node
	if q.tail == nil {
		q.tail = node
	}
	q.count++
	return true
}

// InsertTail stores a copy of s at the end of the queue, with the same
// failure rules as InsertHead.
func (q *Queue) InsertTail(s string) bool {
	if q == nil {
		return false
	}

	node := q.newNode(s)
	if node == nil {
		return false
	}

	if q.tail == nil {
		q.head, q.tail = node, node
	} else {
		q.tail.next = node
		q.tail = node
	}
	q.count++
	return true
}

// RemoveHead drops the first element. If sp is not empty, up to len(sp)-1
// bytes of the removed string are copied into it followed by a zero byte;
// longer strings are truncated. It returns false if q is nil or empty.
func (q *Queue) RemoveHead(sp []byte) bool {
	_, ok := q.removeHead(sp)
	return ok
}

// removeHead is RemoveHead that also reports how many payload bytes were
// copied into sp, terminator excluded.
func (q *Queue) removeHead(sp []byte) (int, bool) {
	if q == nil || q.head == nil {
		return 0, false
	}

	node := q.head
	q.head = node.next
	if q.head == nil {
		q.tail = nil
	}
	q.count--

	var n int
	if len(sp) > 0 {
		n = copy(sp[:len(sp)-1], node.value)
		clear(sp[n:])
	}

	q.release(node)
	return n, true
}

func (q *Queue) Size() int {
	if q == nil {
		return 0
	}
	return q.count
}

// Values returns the stored strings from head to tail.
func (q *Queue) Values() []string {
	if q == nil {
		return nil
	}

	values := make([]string, 0, q.count)
	for node := q.head; node != nil; node = node.next {
		values = append(values, node.value)
	}
	return values
}

// Check walks the chain and reports the first broken invariant, if any.
func (q *Queue) Check() error {
	if q == nil {
		return nil
	}

	if (q.head == nil) != (q.tail == nil) || (q.head == nil) != (q.count == 0) {
		return ErrCorruptEmpty
	}

	n := 0
	var last *qNode
	for node := q.head; node != nil; node = node.next {
		n++
		// Also stops on a cycle.
		if n > q.count {
			return fmt.Errorf("%w: more than %d nodes", ErrCorruptCount, q.count)
		}
		last = node
	}

	if n != q.count {
		return fmt.Errorf("%w: %d nodes, size %d", ErrCorruptCount, n, q.count)
	}
	if last != q.tail {
		return ErrCorruptTail
	}

	return nil
}

// CString returns the contents of a zero terminated buffer filled by
// RemoveHead. It stops at the first zero byte, so payloads holding one
// come back cut short.
func CString(buf []byte) string {
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		return string(buf[:i])
	}
	return string(buf)
}
