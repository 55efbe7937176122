package db

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrNoQueue = errors.New("ERR no such queue")
	ErrAlloc   = errors.New("OOM could not allocate memory")
	ErrEmpty   = errors.New("EMPTY queue is empty")
	ErrLeak    = errors.New("LEAK blocks still allocated after free")
)

type leakReporter interface {
	Leaked() int
}

// Database holds named queues. Unlike Queue itself it may be shared between
// connections; every method takes the database lock.
type Database struct {
	mu     sync.Mutex
	queues map[string]*Queue
	alloc  Allocator
}

func NewDatabase(alloc Allocator) *Database {
	if alloc == nil {
		alloc = heapAllocator{}
	}
	return &Database{queues: make(map[string]*Queue), alloc: alloc}
}

func (d *Database) Keys() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	keys := make([]string, 0, len(d.queues))
	for k := range d.queues {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

func (d *Database) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.queues)
}

// New creates an empty queue under name, freeing any queue already there.
func (d *Database) New(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if old, found := d.queues[name]; found {
		old.Free()
		delete(d.queues, name)
	}

	q := NewQueue(WithAllocator(d.alloc))
	if q == nil {
		return ErrAlloc
	}

	d.queues[name] = q
	return nil
}

func (d *Database) Free(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	q, found := d.queues[name]
	if !found {
		return ErrNoQueue
	}

	q.Free()
	delete(d.queues, name)
	return d.checkLeaks()
}

// FlushAll frees every queue.
func (d *Database) FlushAll() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for name, q := range d.queues {
		q.Free()
		delete(d.queues, name)
	}
	return d.checkLeaks()
}

// checkLeaks only has something to say once no queue is left holding blocks.
func (d *Database) checkLeaks() error {
	if len(d.queues) != 0 {
		return nil
	}

	lr, ok := d.alloc.(leakReporter)
	if !ok {
		return nil
	}
	if n := lr.Leaked(); n != 0 {
		return fmt.Errorf("%w: %d", ErrLeak, n)
	}

	return nil
}

func (d *Database) InsertHead(name string, values ...string) (int, error) {
	return d.insert(name, values, (*Queue).InsertHead)
}

func (d *Database) InsertTail(name string, values ...string) (int, error) {
	return d.insert(name, values, (*Queue).InsertTail)
}

func (d *Database) insert(name string, values []string, insert func(*Queue, string) bool) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	q, found := d.queues[name]
	if !found {
		return 0, ErrNoQueue
	}

	for i, v := range values {
		if !insert(q, v) {
			return q.Size(), fmt.Errorf("%w: inserted %d of %d", ErrAlloc, i, len(values))
		}
	}

	return q.Size(), nil
}

// RemoveHead removes the first element and returns it as read back through a
// bufsize byte buffer, so values longer than bufsize-1 come back truncated.
// A bufsize of 0 discards the value.
func (d *Database) RemoveHead(name string, bufsize int) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	q, found := d.queues[name]
	if !found {
		return "", ErrNoQueue
	}

	var buf []byte
	if bufsize > 0 {
		buf = make([]byte, bufsize)
	}

	n, ok := q.removeHead(buf)
	if !ok {
		return "", ErrEmpty
	}

	return string(buf[:n]), nil
}

func (d *Database) Size(name string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	q, found := d.queues[name]
	if !found {
		return 0, ErrNoQueue
	}

	return q.Size(), nil
}

func (d *Database) Reverse(name string) error {
	return d.apply(name, (*Queue).Reverse)
}

func (d *Database) Sort(name string) error {
	return d.apply(name, (*Queue).Sort)
}

func (d *Database) apply(name string, fn func(*Queue)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	q, found := d.queues[name]
	if !found {
		return ErrNoQueue
	}

	fn(q)
	return q.Check()
}

// Show returns the contents of a queue after verifying its links.
func (d *Database) Show(name string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	q, found := d.queues[name]
	if !found {
		return nil, ErrNoQueue
	}

	if err := q.Check(); err != nil {
		return nil, err
	}

	return q.Values(), nil
}
