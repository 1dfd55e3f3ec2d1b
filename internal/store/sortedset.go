package store

import "sort"

// ScoredMember is a sorted-set member with its score.
type ScoredMember struct {
	Member string
	Score  float64
}

// SortedSet is the scored collection variant. Members are ordered by score,
// then by member bytes. Not safe for concurrent use; the DB lock guards it.
type SortedSet struct {
	members map[string]float64
}

// NewSortedSet creates an empty sorted set.
func NewSortedSet() *SortedSet {
	return &SortedSet{members: make(map[string]float64)}
}

func (z *SortedSet) Kind() Kind { return KindZSet }

// Len returns the cardinality. A nil sorted set is empty.
func (z *SortedSet) Len() int {
	if z == nil {
		return 0
	}
	return len(z.members)
}

// Add inserts or rescores members and returns how many were new.
func (z *SortedSet) Add(members ...ScoredMember) int {
	added := 0
	for _, m := range members {
		if _, exists := z.members[m.Member]; !exists {
			added++
		}
		z.members[m.Member] = m.Score
	}
	return added
}

// Remove deletes members and returns how many existed.
func (z *SortedSet) Remove(members ...string) int {
	removed := 0
	for _, m := range members {
		if _, exists := z.members[m]; exists {
			delete(z.members, m)
			removed++
		}
	}
	return removed
}

// Score returns the score of member.
func (z *SortedSet) Score(member string) (float64, bool) {
	if z == nil {
		return 0, false
	}
	score, ok := z.members[member]
	return score, ok
}

// Names returns the members in no particular order.
func (z *SortedSet) Names() []string {
	out := make([]string, 0, z.Len())
	if z == nil {
		return out
	}
	for m := range z.members {
		out = append(out, m)
	}
	return out
}

func (z *SortedSet) sorted() []ScoredMember {
	out := make([]ScoredMember, 0, z.Len())
	if z == nil {
		return out
	}
	for m, s := range z.members {
		out = append(out, ScoredMember{Member: m, Score: s})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score < out[j].Score
		}
		return out[i].Member < out[j].Member
	})
	return out
}

// Range returns members by rank between start and stop inclusive, with the
// same index rules as List.Range.
func (z *SortedSet) Range(start, stop int) []ScoredMember {
	all := z.sorted()
	start, stop = clampRange(start, stop, len(all))
	if start > stop {
		return []ScoredMember{}
	}
	return all[start : stop+1]
}
