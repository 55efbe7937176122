package db

import (
	"errors"
	"math/rand"
	"slices"
	"strconv"
	"testing"

	"github.com/gammazero/deque"
	"github.com/tychoish/fun/assert"
	"github.com/tychoish/fun/assert/check"

	"github.com/Peter-Kung/linux2021-lab-0/cmd/harness"
)

func TestQueue(t *testing.T) {
	q := NewQueue()
	q.InsertTail("5")
	q.InsertTail("7")
	q.InsertTail("9")

	if q.Size() != 3 {
		t.Error("Expected Size to be 3")
	}

	buf := make([]byte, 16)
	if !q.RemoveHead(buf) || CString(buf) != "5" {
		t.Error("Expected RemoveHead() to return 5")
	}
	if !q.RemoveHead(buf) || CString(buf) != "7" {
		t.Error("Expected RemoveHead() to return 7")
	}
	if q.Size() != 1 {
		t.Error("Expected Size to be 1")
	}
	if !q.RemoveHead(buf) || CString(buf) != "9" {
		t.Error("Expected RemoveHead() to return 9")
	}
	if q.Size() != 0 {
		t.Error("Expected Size to be 0")
	}
	if q.head != nil || q.tail != nil {
		t.Error("Expected head and tail to be cleared")
	}

	q.InsertTail("11")
	if q.Size() != 1 {
		t.Error("Expected Size to be 1")
	}
	if !q.RemoveHead(buf) || CString(buf) != "11" {
		t.Error("Expected RemoveHead() to return 11")
	}
	if q.RemoveHead(buf) {
		t.Error("Expected RemoveHead() on empty queue to fail")
	}
	if q.Size() != 0 {
		t.Error("Expected Size to be 0")
	}

	q.Free()
}

func TestQueueNil(t *testing.T) {
	var q *Queue

	assert.NotPanic(t, func() {
		check.True(t, !q.InsertHead("a"))
		check.True(t, !q.InsertTail("a"))
		check.True(t, !q.RemoveHead(make([]byte, 4)))
		check.Equal(t, 0, q.Size())
		q.Reverse()
		q.Sort()
		q.Free()
	})
	check.True(t, q.Check() == nil)
	check.Equal(t, 0, len(q.Values()))
}

func TestQueueInsertHead(t *testing.T) {
	q := NewQueue()
	defer q.Free()

	q.InsertHead("b")
	q.InsertHead("a")
	check.True(t, slices.Equal([]string{"a", "b"}, q.Values()))
	check.Equal(t, "b", q.tail.value)

	q.Reverse()
	check.True(t, slices.Equal([]string{"b", "a"}, q.Values()))
	check.True(t, q.Check() == nil)
}

func TestQueueMixedInserts(t *testing.T) {
	q := NewQueue()
	defer q.Free()

	q.InsertTail("middle")
	q.InsertHead("front")
	q.InsertTail("back")

	check.Equal(t, 3, q.Size())
	check.True(t, slices.Equal([]string{"front", "middle", "back"}, q.Values()))
	check.True(t, q.Check() == nil)
}

func TestQueueRemoveHead(t *testing.T) {
	t.Run("Truncates", func(t *testing.T) {
		q := NewQueue()
		defer q.Free()
		q.InsertTail("hello")

		buf := []byte{'x', 'x', 'x'}
		check.True(t, q.RemoveHead(buf))
		check.True(t, slices.Equal([]byte{'h', 'e', 0}, buf))
		check.Equal(t, "he", CString(buf))
	})

	t.Run("ClearsRestOfBuffer", func(t *testing.T) {
		q := NewQueue()
		defer q.Free()
		q.InsertTail("ab")

		buf := []byte("zzzzzz")
		check.True(t, q.RemoveHead(buf))
		check.True(t, slices.Equal([]byte{'a', 'b', 0, 0, 0, 0}, buf))
	})

	t.Run("SingleByteBuffer", func(t *testing.T) {
		q := NewQueue()
		defer q.Free()
		q.InsertTail("hello")

		buf := []byte{'x'}
		check.True(t, q.RemoveHead(buf))
		check.Equal(t, byte(0), buf[0])
	})

	t.Run("NoBuffer", func(t *testing.T) {
		q := NewQueue()
		defer q.Free()
		q.InsertTail("a")
		q.InsertTail("b")

		check.True(t, q.RemoveHead(nil))
		check.Equal(t, 1, q.Size())
		check.True(t, slices.Equal([]string{"b"}, q.Values()))
	})

	t.Run("EmptyLeavesSize", func(t *testing.T) {
		q := NewQueue()
		defer q.Free()

		check.True(t, !q.RemoveHead(make([]byte, 8)))
		check.Equal(t, 0, q.Size())
	})
}

func TestQueuePayloadIsCopy(t *testing.T) {
	q := NewQueue()
	defer q.Free()

	b := []byte("apple")
	q.InsertTail(string(b))
	q.InsertHead(string(b))
	b[0] = 'x'

	check.True(t, slices.Equal([]string{"apple", "apple"}, q.Values()))
}

func TestQueueReverse(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		q := NewQueue()
		defer q.Free()
		q.Reverse()
		check.Equal(t, 0, q.Size())
		check.True(t, q.Check() == nil)
	})

	t.Run("Single", func(t *testing.T) {
		q := NewQueue()
		defer q.Free()
		q.InsertTail("only")
		q.Reverse()
		check.True(t, slices.Equal([]string{"only"}, q.Values()))
		check.True(t, q.head == q.tail)
	})

	t.Run("SelfInverse", func(t *testing.T) {
		q := NewQueue()
		defer q.Free()
		for i := 0; i < 10; i++ {
			q.InsertTail(strconv.Itoa(i))
		}
		orig := q.Values()

		q.Reverse()
		rev := q.Values()
		for i := range orig {
			check.Equal(t, orig[i], rev[len(rev)-1-i])
		}
		check.True(t, q.Check() == nil)
		check.Equal(t, "0", q.tail.value)

		q.Reverse()
		check.True(t, slices.Equal(orig, q.Values()))
		check.True(t, q.Check() == nil)
	})

	t.Run("KeepsNodes", func(t *testing.T) {
		q := NewQueue()
		defer q.Free()
		q.InsertTail("a")
		q.InsertTail("b")
		first, last := q.head, q.tail

		q.Reverse()
		check.True(t, q.head == last)
		check.True(t, q.tail == first)
		check.True(t, q.tail.next == nil)
	})
}

func TestQueueSort(t *testing.T) {
	t.Run("Example", func(t *testing.T) {
		q := NewQueue()
		defer q.Free()
		q.InsertTail("banana")
		q.InsertTail("apple")
		q.InsertTail("cherry")

		q.Sort()
		check.True(t, slices.Equal([]string{"apple", "banana", "cherry"}, q.Values()))
		check.Equal(t, 3, q.Size())
		check.Equal(t, "cherry", q.tail.value)
		check.True(t, q.Check() == nil)
	})

	t.Run("EmptyAndSingle", func(t *testing.T) {
		q := NewQueue()
		defer q.Free()
		q.Sort()
		check.Equal(t, 0, q.Size())

		q.InsertTail("z")
		q.Sort()
		check.True(t, slices.Equal([]string{"z"}, q.Values()))
		check.True(t, q.Check() == nil)
	})

	t.Run("Stable", func(t *testing.T) {
		q := NewQueue()
		defer q.Free()
		for _, v := range []string{"b", "a", "b", "a", "b"} {
			q.InsertTail(v)
		}

		var before []*qNode
		for node := q.head; node != nil; node = node.next {
			if node.value == "b" {
				before = append(before, node)
			}
		}

		q.Sort()

		var after []*qNode
		for node := q.head; node != nil; node = node.next {
			if node.value == "b" {
				after = append(after, node)
			}
		}
		check.True(t, slices.Equal(before, after))
	})

	t.Run("RandomMultisets", func(t *testing.T) {
		rnd := rand.New(rand.NewSource(7))
		for round := 0; round < 50; round++ {
			q := NewQueue()
			var want []string
			for i := rnd.Intn(40); i > 0; i-- {
				v := strconv.Itoa(rnd.Intn(15))
				want = append(want, v)
				if rnd.Intn(2) == 0 {
					q.InsertHead(v)
				} else {
					q.InsertTail(v)
				}
			}
			slices.Sort(want)

			q.Sort()
			got := q.Values()
			check.True(t, slices.IsSorted(got))
			check.True(t, slices.Equal(want, got))
			check.True(t, q.Check() == nil)

			q.Sort()
			check.True(t, slices.Equal(got, q.Values()))
			q.Free()
		}
	})
}

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()
	defer q.Free()

	in := []string{"one", "two", "three", "four"}
	for _, v := range in {
		q.InsertTail(v)
	}

	buf := make([]byte, 32)
	for _, v := range in {
		assert.True(t, q.RemoveHead(buf))
		check.Equal(t, v, CString(buf))
	}
	check.Equal(t, 0, q.Size())
}

// TestQueueModel drives a queue and a deque with the same random operations.
func TestQueueModel(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	q := NewQueue()
	defer q.Free()
	model := deque.New[string]()
	buf := make([]byte, 8)

	for i := 0; i < 2000; i++ {
		v := strconv.Itoa(rnd.Intn(1000))
		switch rnd.Intn(6) {
		case 0:
			assert.True(t, q.InsertHead(v))
			model.PushFront(v)
		case 1, 2:
			assert.True(t, q.InsertTail(v))
			model.PushBack(v)
		case 3:
			ok := q.RemoveHead(buf)
			check.Equal(t, model.Len() > 0, ok)
			if ok {
				check.Equal(t, model.PopFront(), CString(buf))
			}
		case 4:
			q.Reverse()
			values := modelValues(model)
			model.Clear()
			for _, v := range values {
				model.PushFront(v)
			}
		case 5:
			if rnd.Intn(10) != 0 {
				continue
			}
			q.Sort()
			values := modelValues(model)
			slices.Sort(values)
			model.Clear()
			for _, v := range values {
				model.PushBack(v)
			}
		}

		assert.Equal(t, model.Len(), q.Size())
		assert.True(t, slices.Equal(modelValues(model), q.Values()))
	}
	check.True(t, q.Check() == nil)
}

func modelValues(d *deque.Deque[string]) []string {
	values := make([]string, d.Len())
	for i := range values {
		values[i] = d.At(i)
	}
	return values
}

func TestQueueAllocation(t *testing.T) {
	t.Run("FreeReleasesEverything", func(t *testing.T) {
		h := harness.New(1)
		q := NewQueue(WithAllocator(h))
		for i := 0; i < 20; i++ {
			q.InsertTail("value" + strconv.Itoa(i))
			q.InsertHead("head" + strconv.Itoa(i))
		}
		q.RemoveHead(make([]byte, 4))
		q.RemoveHead(nil)
		q.Free()

		check.Equal(t, 0, h.Leaked())
		check.Equal(t, 0, h.Stats().Bytes)
		check.Equal(t, 0, h.Stats().BadFrees)
	})

	t.Run("ContainerFailure", func(t *testing.T) {
		h := harness.New(1)
		h.FailAfter(0)
		check.True(t, NewQueue(WithAllocator(h)) == nil)
		check.Equal(t, 0, h.Leaked())
	})

	t.Run("NodeFailure", func(t *testing.T) {
		h := harness.New(1)
		q := NewQueue(WithAllocator(h))
		q.InsertTail("keep")

		h.FailAfter(0)
		check.True(t, !q.InsertHead("lost"))
		check.True(t, !q.InsertTail("lost"))
		check.Equal(t, 1, q.Size())
		check.True(t, slices.Equal([]string{"keep"}, q.Values()))

		h.FailAfter(-1)
		q.Free()
		check.Equal(t, 0, h.Leaked())
	})

	t.Run("PayloadFailure", func(t *testing.T) {
		h := harness.New(1)
		q := NewQueue(WithAllocator(h))
		q.InsertTail("keep")
		blocks := h.Leaked()

		// The node succeeds, the payload does not.
		h.FailAfter(1)
		check.True(t, !q.InsertTail("lost"))
		check.Equal(t, blocks, h.Leaked())
		h.FailAfter(1)
		check.True(t, !q.InsertHead("lost"))
		check.Equal(t, blocks, h.Leaked())

		check.Equal(t, 1, q.Size())
		check.True(t, q.Check() == nil)

		h.FailAfter(-1)
		q.Free()
		check.Equal(t, 0, h.Leaked())
	})

	t.Run("RandomFailures", func(t *testing.T) {
		h := harness.New(3)
		h.SetFailRate(30)
		q := NewQueue(WithAllocator(h))
		for q == nil {
			q = NewQueue(WithAllocator(h))
		}

		inserted := 0
		for i := 0; i < 500; i++ {
			if q.InsertTail(strconv.Itoa(i)) {
				inserted++
			}
		}
		check.Equal(t, inserted, q.Size())
		check.True(t, h.Stats().Failures > 0)
		check.True(t, q.Check() == nil)

		q.Free()
		check.Equal(t, 0, h.Leaked())
	})
}

func TestQueueCheck(t *testing.T) {
	q := NewQueue()
	defer q.Free()
	q.InsertTail("a")
	q.InsertTail("b")
	q.InsertTail("c")
	assert.True(t, q.Check() == nil)

	q.count = 2
	check.True(t, errors.Is(q.Check(), ErrCorruptCount))
	q.count = 3

	last := q.tail
	q.tail = q.head
	check.True(t, errors.Is(q.Check(), ErrCorruptTail))
	q.tail = last

	q.tail.next = q.head
	check.True(t, errors.Is(q.Check(), ErrCorruptCount))
	q.tail.next = nil

	q.count = 0
	check.True(t, errors.Is(q.Check(), ErrCorruptEmpty))
	q.count = 3
	check.True(t, q.Check() == nil)
}
