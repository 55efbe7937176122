// Package harness provides an allocator that keeps books on every block a
// queue claims and can be told to refuse allocations, so that failure paths
// and leaks can be observed from the outside.
package harness

import (
	"fmt"
	"math/rand"
	"sync"
)

type Stats struct {
	Blocks   int // live blocks
	Bytes    int // live bytes
	Allocs   int // successful allocations
	Failures int // refused allocations
	BadFrees int // releases with nothing live
}

func (s Stats) String() string {
	return fmt.Sprintf("blocks=%d bytes=%d allocs=%d failures=%d badfrees=%d",
		s.Blocks, s.Bytes, s.Allocs, s.Failures, s.BadFrees)
}

type Harness struct {
	mu        sync.Mutex
	rnd       *rand.Rand
	failRate  int
	failAfter int
	stats     Stats
}

func New(seed int64) *Harness {
	return &Harness{rnd: rand.New(rand.NewSource(seed)), failAfter: -1}
}

// SetFailRate makes roughly pct percent of allocations fail. Values are
// clamped to [0, 100].
func (h *Harness) SetFailRate(pct int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.failRate = min(max(pct, 0), 100)
}

// FailAfter lets n more allocations succeed and refuses every one after that.
// A negative n switches this off.
func (h *Harness) FailAfter(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.failAfter = n
}

func (h *Harness) Alloc(size int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.failAfter == 0 || (h.failRate > 0 && h.rnd.Intn(100) < h.failRate) {
		h.stats.Failures++
		return false
	}
	if h.failAfter > 0 {
		h.failAfter--
	}

	h.stats.Blocks++
	h.stats.Bytes += size
	h.stats.Allocs++
	return true
}

func (h *Harness) Release(size int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stats.Blocks == 0 {
		h.stats.BadFrees++
		return
	}

	h.stats.Blocks--
	h.stats.Bytes -= size
}

// Leaked returns the number of blocks still live.
func (h *Harness) Leaked() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.stats.Blocks
}

func (h *Harness) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.stats
}
