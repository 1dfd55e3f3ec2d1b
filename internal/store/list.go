package store

// List is the ordered sequence variant backed by a slice. Not safe for
// concurrent use; the DB lock guards it.
type List struct {
	items [][]byte
}

// NewList creates an empty List.
func NewList() *List {
	return &List{items: make([][]byte, 0)}
}

func (l *List) Kind() Kind { return KindList }

// Len returns the number of elements. A nil list is empty.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

// LPush prepends values one at a time, so LPUSH k a b c leaves c at the
// head. Returns the new length.
func (l *List) LPush(values ...[]byte) int {
	items := make([][]byte, len(values)+len(l.items))
	for i, v := range values {
		items[len(values)-1-i] = cloneBytes(v)
	}
	copy(items[len(values):], l.items)
	l.items = items
	return len(l.items)
}

// RPush appends values and returns the new length.
func (l *List) RPush(values ...[]byte) int {
	for _, v := range values {
		l.items = append(l.items, cloneBytes(v))
	}
	return len(l.items)
}

// LPop removes and returns the head.
func (l *List) LPop() ([]byte, bool) {
	if len(l.items) == 0 {
		return nil, false
	}
	val := l.items[0]
	l.items = l.items[1:]
	return val, true
}

// RPop removes and returns the tail.
func (l *List) RPop() ([]byte, bool) {
	if len(l.items) == 0 {
		return nil, false
	}
	val := l.items[len(l.items)-1]
	l.items = l.items[:len(l.items)-1]
	return val, true
}

// Range returns the elements between start and stop inclusive. Negative
// indexes count from the tail and out-of-range bounds are clamped.
func (l *List) Range(start, stop int) [][]byte {
	n := l.Len()
	start, stop = clampRange(start, stop, n)
	if start > stop {
		return [][]byte{}
	}
	out := make([][]byte, stop-start+1)
	copy(out, l.items[start:stop+1])
	return out
}

// clampRange resolves an inclusive [start, stop] index pair against a
// sequence of length n. The result is empty when start > stop.
func clampRange(start, stop, n int) (int, int) {
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	return start, stop
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
