// Package cdc keeps a bounded history of keyspace events and fans them out
// to live subscribers. It is fed by the engine's update hook.
package cdc

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flashdb/flashsim/internal/store"
)

// Event is one keyspace change as recorded by the stream.
type Event struct {
	ID        uint64 `json:"id"`
	Timestamp int64  `json:"ts"`
	Type      string `json:"type"`
	DB        int    `json:"db"`
	Key       string `json:"key,omitempty"`
}

// JSON returns the JSON encoding of the event.
func (e *Event) JSON() []byte {
	b, _ := json.Marshal(e)
	return b
}

// Stream is a thread-safe ring buffer of events with subscriber support.
type Stream struct {
	mu      sync.RWMutex
	buf     []Event
	head    int
	size    int
	cap     int
	seq     atomic.Uint64
	subs    map[uint64]chan Event
	subMu   sync.Mutex
	nextSub uint64
	now     func() time.Time
}

// NewStream creates a stream with the given ring buffer capacity.
func NewStream(capacity int) *Stream {
	if capacity <= 0 {
		capacity = 10000
	}
	return &Stream{
		buf:  make([]Event, capacity),
		cap:  capacity,
		subs: make(map[uint64]chan Event),
		now:  time.Now,
	}
}

// Hook adapts the stream to a store.Hook.
func (s *Stream) Hook() store.Hook {
	return func(e store.Event) { s.Record(e) }
}

// Record appends a keyspace event and notifies subscribers without
// blocking; a slow subscriber misses events instead of stalling writers.
func (s *Stream) Record(e store.Event) Event {
	ev := Event{
		ID:        s.seq.Add(1),
		Timestamp: s.now().UnixMilli(),
		Type:      e.Type.String(),
		DB:        e.DB,
		Key:       e.Key,
	}

	s.mu.Lock()
	s.buf[s.head] = ev
	s.head = (s.head + 1) % s.cap
	if s.size < s.cap {
		s.size++
	}
	s.mu.Unlock()

	s.subMu.Lock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.subMu.Unlock()

	return ev
}

// Since returns all buffered events with ID > afterID, oldest first.
func (s *Stream) Since(afterID uint64) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []Event{}
	start := s.head - s.size
	if start < 0 {
		start += s.cap
	}
	for i := 0; i < s.size; i++ {
		idx := (start + i) % s.cap
		if s.buf[idx].ID > afterID {
			result = append(result, s.buf[idx])
		}
	}
	return result
}

// Latest returns the n most recent events, oldest first.
func (s *Stream) Latest(n int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n > s.size {
		n = s.size
	}
	if n <= 0 {
		return []Event{}
	}
	result := make([]Event, n)
	for i := 0; i < n; i++ {
		idx := s.head - n + i
		if idx < 0 {
			idx += s.cap
		}
		result[i] = s.buf[idx]
	}
	return result
}

// Subscribe registers a channel that receives events as they are recorded.
func (s *Stream) Subscribe(bufSize int) (uint64, <-chan Event) {
	if bufSize <= 0 {
		bufSize = 256
	}
	ch := make(chan Event, bufSize)

	s.subMu.Lock()
	s.nextSub++
	id := s.nextSub
	s.subs[id] = ch
	s.subMu.Unlock()

	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (s *Stream) Unsubscribe(id uint64) {
	s.subMu.Lock()
	if ch, ok := s.subs[id]; ok {
		close(ch)
		delete(s.subs, id)
	}
	s.subMu.Unlock()
}

// Stats describes the stream.
type Stats struct {
	TotalEvents uint64 `json:"total_events"`
	BufferSize  int    `json:"buffer_size"`
	BufferCap   int    `json:"buffer_cap"`
	Subscribers int    `json:"subscribers"`
}

func (s *Stream) Stats() Stats {
	s.mu.RLock()
	size := s.size
	s.mu.RUnlock()

	s.subMu.Lock()
	subs := len(s.subs)
	s.subMu.Unlock()

	return Stats{
		TotalEvents: s.seq.Load(),
		BufferSize:  size,
		BufferCap:   s.cap,
		Subscribers: subs,
	}
}
