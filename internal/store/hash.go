package store

import "sort"

// Hash is the field/value map variant. Not safe for concurrent use; the DB
// lock guards it.
type Hash struct {
	fields map[string][]byte
}

// FieldValue is one hash entry.
type FieldValue struct {
	Field string
	Value []byte
}

// NewHash creates an empty Hash.
func NewHash() *Hash {
	return &Hash{fields: make(map[string][]byte)}
}

func (h *Hash) Kind() Kind { return KindHash }

// Len returns the number of fields. A nil hash is empty.
func (h *Hash) Len() int {
	if h == nil {
		return 0
	}
	return len(h.fields)
}

// Set stores value under field and reports whether the field is new.
func (h *Hash) Set(field string, value []byte) bool {
	_, existed := h.fields[field]
	h.fields[field] = cloneBytes(value)
	return !existed
}

// Get returns the value of field.
func (h *Hash) Get(field string) ([]byte, bool) {
	if h == nil {
		return nil, false
	}
	val, ok := h.fields[field]
	return val, ok
}

// Del removes fields and returns how many existed.
func (h *Hash) Del(fields ...string) int {
	removed := 0
	for _, f := range fields {
		if _, ok := h.fields[f]; ok {
			delete(h.fields, f)
			removed++
		}
	}
	return removed
}

// Fields returns the field names in no particular order.
func (h *Hash) Fields() []string {
	out := make([]string, 0, h.Len())
	if h == nil {
		return out
	}
	for f := range h.fields {
		out = append(out, f)
	}
	return out
}

// All returns every entry ordered by field name.
func (h *Hash) All() []FieldValue {
	names := h.Fields()
	sort.Strings(names)
	out := make([]FieldValue, len(names))
	for i, f := range names {
		out[i] = FieldValue{Field: f, Value: h.fields[f]}
	}
	return out
}
