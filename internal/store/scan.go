package store

import (
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/tidwall/match"
)

// DefaultScanCount is the batch size used when COUNT is not given.
const DefaultScanCount = 10

// Cursor positions are points in the 64-bit hash space of the items. An
// iteration resumes at the first item whose hash is not below the cursor,
// so items that exist for the whole iteration are returned at least once
// even while others are added or removed. Zero both starts and ends a
// full iteration.

type hashed struct {
	h    uint64
	item string
}

func hashItems(items []string) []hashed {
	out := make([]hashed, len(items))
	for i, it := range items {
		out[i] = hashed{h: xxhash.Sum64String(it), item: it}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].h != out[j].h {
			return out[i].h < out[j].h
		}
		return out[i].item < out[j].item
	})
	return out
}

// Scan returns the next batch of items at or after cursor and the cursor to
// resume from. Items sharing a hash are never split across batches, so a
// batch may exceed count. next is 0 when the iteration is complete.
//
// Each call hashes and sorts all of items, so a full iteration costs
// O(n²/count · log n). Nothing is cached between calls, which keeps cursors
// valid across arbitrary writes.
func Scan(items []string, cursor uint64, count int) (next uint64, batch []string) {
	if count < 1 {
		count = DefaultScanCount
	}
	sorted := hashItems(items)
	start := sort.Search(len(sorted), func(i int) bool { return sorted[i].h >= cursor })
	batch = []string{}
	i := start
	for i < len(sorted) && len(batch) < count {
		h := sorted[i].h
		for i < len(sorted) && sorted[i].h == h {
			batch = append(batch, sorted[i].item)
			i++
		}
	}
	if i >= len(sorted) {
		return 0, batch
	}
	return sorted[i].h, batch
}

// Matcher returns a glob predicate with Redis pattern
// syntax. An empty pattern or "*" matches everything.
func Matcher(pattern string) func(string) bool {
	if pattern == "" || pattern == "*" {
		return func(string) bool { return true }
	}
	return func(s string) bool { return match.Match(s, pattern) }
}

// Filter keeps the items accepted by keep, preserving order.
func Filter(items []string, keep func(string) bool) []string {
	out := items[:0:0]
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

// ScanSet runs one SSCAN step over set.
func ScanSet(set *Set, cursor uint64, pattern string, count int) (uint64, []string) {
	next, batch := Scan(set.Members(), cursor, count)
	return next, Filter(batch, Matcher(pattern))
}
