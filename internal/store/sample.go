package store

import (
	"math/rand"
	"sort"
	"sync"
)

// Sampler draws random members. Candidates are taken in sorted order, so a
// Sampler built from a fixed seed produces a reproducible sequence no matter
// how the underlying maps iterate. Safe for concurrent use.
type Sampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSampler creates a Sampler reading from src.
func NewSampler(src rand.Source) *Sampler {
	return &Sampler{rng: rand.New(src)}
}

// One returns a uniformly chosen member of items. ok is false when items is
// empty.
func (s *Sampler) One(items []string) (member string, ok bool) {
	if len(items) == 0 {
		return "", false
	}
	s.mu.Lock()
	i := s.rng.Intn(len(items))
	s.mu.Unlock()
	return items[i], true
}

// Distinct returns min(count, len(items)) distinct items chosen uniformly
// without replacement, in random order. items is permuted in place.
func (s *Sampler) Distinct(items []string, count int) []string {
	if count > len(items) {
		count = len(items)
	}
	if count <= 0 {
		return []string{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// Partial Fisher-Yates: the first count slots end up as the sample.
	for i := 0; i < count; i++ {
		j := i + s.rng.Intn(len(items)-i)
		items[i], items[j] = items[j], items[i]
	}
	return items[:count]
}

// WithReplacement returns exactly count items chosen uniformly with
// replacement. It returns an empty slice when items is empty.
func (s *Sampler) WithReplacement(items []string, count int) []string {
	if len(items) == 0 || count <= 0 {
		return []string{}
	}
	out := make([]string, count)
	s.mu.Lock()
	for i := range out {
		out[i] = items[s.rng.Intn(len(items))]
	}
	s.mu.Unlock()
	return out
}

// RandomMember picks one member of set without removing it.
func (s *Sampler) RandomMember(set *Set) (string, bool) {
	return s.One(set.Sorted())
}

// RandomMembers implements the SRANDMEMBER count policy: a non-negative
// count yields up to count distinct members, a negative count yields
// exactly -count members that may repeat.
func (s *Sampler) RandomMembers(set *Set, count int) []string {
	if count >= 0 {
		return s.Distinct(set.Sorted(), count)
	}
	return s.WithReplacement(set.Sorted(), -count)
}

// RandomKey picks one live key of db.
func (s *Sampler) RandomKey(db *DB) (string, bool) {
	keys := db.Keys()
	sort.Strings(keys)
	return s.One(keys)
}
