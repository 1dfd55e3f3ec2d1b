package store

import "sort"

// Set is the unordered collection variant. Members are unique binary
// strings. A Set is not safe for concurrent use; the DB lock guards it.
type Set struct {
	members map[string]struct{}
}

// NewSet creates a set holding members.
func NewSet(members ...string) *Set {
	s := &Set{members: make(map[string]struct{}, len(members))}
	s.Add(members...)
	return s
}

func (s *Set) Kind() Kind { return KindSet }

// Len returns the cardinality. A nil set is empty.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.members)
}

// Add inserts members and returns how many were not present before.
func (s *Set) Add(members ...string) int {
	added := 0
	for _, m := range members {
		if _, exists := s.members[m]; !exists {
			s.members[m] = struct{}{}
			added++
		}
	}
	return added
}

// Remove deletes members and returns how many were present.
func (s *Set) Remove(members ...string) int {
	removed := 0
	for _, m := range members {
		if _, exists := s.members[m]; exists {
			delete(s.members, m)
			removed++
		}
	}
	return removed
}

// Has reports membership. A nil set has no members.
func (s *Set) Has(member string) bool {
	if s == nil {
		return false
	}
	_, exists := s.members[member]
	return exists
}

// Members returns the members in no particular order.
func (s *Set) Members() []string {
	out := make([]string, 0, s.Len())
	if s == nil {
		return out
	}
	for m := range s.members {
		out = append(out, m)
	}
	return out
}

// Sorted returns the members in byte order.
func (s *Set) Sorted() []string {
	out := s.Members()
	sort.Strings(out)
	return out
}

// Clone returns an independent copy. Cloning nil yields an empty set.
func (s *Set) Clone() *Set {
	c := &Set{members: make(map[string]struct{}, s.Len())}
	if s == nil {
		return c
	}
	for m := range s.members {
		c.members[m] = struct{}{}
	}
	return c
}

// unionWith adds every member of other to s.
func (s *Set) unionWith(other *Set) {
	if other == nil {
		return
	}
	for m := range other.members {
		s.members[m] = struct{}{}
	}
}

// intersectWith keeps only the members of s that other also holds.
func (s *Set) intersectWith(other *Set) {
	for m := range s.members {
		if !other.Has(m) {
			delete(s.members, m)
		}
	}
}

// subtract drops every member of other from s.
func (s *Set) subtract(other *Set) {
	if other == nil {
		return
	}
	// Walk the smaller side.
	if len(other.members) < len(s.members) {
		for m := range other.members {
			delete(s.members, m)
		}
		return
	}
	for m := range s.members {
		if other.Has(m) {
			delete(s.members, m)
		}
	}
}
