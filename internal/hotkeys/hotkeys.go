// Package hotkeys reports the most frequently updated keys.
package hotkeys

import (
	"container/heap"
	"sync"
	"time"

	"github.com/flashdb/flashsim/internal/store"
)

// Entry is one hot key with its update count.
type Entry struct {
	DB    int    `json:"db"`
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

type slot struct {
	db  int
	key string
}

// Tracker counts key updates and reports the top-N keys. It is safe for
// concurrent use.
type Tracker struct {
	mu     sync.Mutex
	counts map[slot]*int64
	topN   int
	window time.Duration
	stop   chan struct{}
	once   sync.Once
}

// New creates a tracker reporting the top-N keys. Every window all counters
// are halved; a zero window disables decay.
func New(topN int, window time.Duration) *Tracker {
	if topN <= 0 {
		topN = 100
	}
	t := &Tracker{
		counts: make(map[slot]*int64, topN*2),
		topN:   topN,
		window: window,
		stop:   make(chan struct{}),
	}
	if window > 0 {
		go t.decayLoop()
	}
	return t
}

// Hook adapts the tracker to a store.Hook. Only updates are counted.
func (t *Tracker) Hook() store.Hook {
	return func(e store.Event) {
		if e.Type == store.EventUpdated {
			t.Record(e.DB, e.Key)
		}
	}
}

// Record counts one update of key in db.
func (t *Tracker) Record(db int, key string) {
	k := slot{db: db, key: key}
	t.mu.Lock()
	if c, ok := t.counts[k]; ok {
		*c++
	} else {
		v := int64(1)
		t.counts[k] = &v
	}
	t.mu.Unlock()
}

// Top returns the n hottest keys, hottest first. n <= 0 uses the
// configured top-N.
func (t *Tracker) Top(n int) []Entry {
	if n <= 0 {
		n = t.topN
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	h := &entryHeap{}
	for k, cnt := range t.counts {
		e := Entry{DB: k.db, Key: k.key, Count: *cnt}
		if h.Len() < n {
			heap.Push(h, e)
		} else if less((*h)[0], e) {
			(*h)[0] = e
			heap.Fix(h, 0)
		}
	}

	result := make([]Entry, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(h).(Entry)
	}
	return result
}

// Reset clears all counters.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.counts = make(map[slot]*int64, t.topN*2)
	t.mu.Unlock()
}

// Size returns the number of tracked keys.
func (t *Tracker) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.counts)
}

// Stop ends the decay loop.
func (t *Tracker) Stop() {
	t.once.Do(func() { close(t.stop) })
}

func (t *Tracker) decayLoop() {
	ticker := time.NewTicker(t.window)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
		}
		t.mu.Lock()
		for k, cnt := range t.counts {
			*cnt /= 2
			if *cnt == 0 {
				delete(t.counts, k)
			}
		}
		t.mu.Unlock()
	}
}

// less orders entries by count, breaking ties by db then key so that Top
// is deterministic.
func less(a, b Entry) bool {
	if a.Count != b.Count {
		return a.Count < b.Count
	}
	if a.DB != b.DB {
		return a.DB > b.DB
	}
	return a.Key > b.Key
}

type entryHeap []Entry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return less(h[i], h[j]) }
func (h entryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x interface{}) { *h = append(*h, x.(Entry)) }

func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
