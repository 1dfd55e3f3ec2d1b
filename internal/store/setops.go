package store

// SetOp selects the set-algebra operation.
type SetOp uint8

const (
	OpUnion SetOp = iota
	OpInter
	OpDiff
)

func (op SetOp) String() string {
	switch op {
	case OpUnion:
		return "union"
	case OpInter:
		return "inter"
	case OpDiff:
		return "diff"
	default:
		return "unknown"
	}
}

// ResolveSets type-checks every key before any computation takes place and
// returns the sets in argument order. Missing keys resolve to nil.
func (db *DB) ResolveSets(keys ...string) ([]*Set, error) {
	sets := make([]*Set, len(keys))
	for i, key := range keys {
		s, err := db.ReadSet(key)
		if err != nil {
			return nil, err
		}
		sets[i] = s
	}
	return sets, nil
}

// Combine folds op over sets left to right, treating nil as empty, and
// returns a fresh set. With stopIfMissing the fold returns the empty set as
// soon as it meets an empty operand, which is the intersection rule.
func Combine(op SetOp, stopIfMissing bool, sets ...*Set) *Set {
	if len(sets) == 0 {
		return NewSet()
	}
	if stopIfMissing && sets[0].Len() == 0 {
		return NewSet()
	}
	result := sets[0].Clone()
	for _, other := range sets[1:] {
		if stopIfMissing && other.Len() == 0 {
			return NewSet()
		}
		switch op {
		case OpUnion:
			result.unionWith(other)
		case OpInter:
			result.intersectWith(other)
		case OpDiff:
			result.subtract(other)
		}
	}
	return result
}

// SetAlgebra resolves keys and combines them. Intersections stop at the
// first empty operand.
func (db *DB) SetAlgebra(op SetOp, keys ...string) (*Set, error) {
	sets, err := db.ResolveSets(keys...)
	if err != nil {
		return nil, err
	}
	return Combine(op, op == OpInter, sets...), nil
}

// SetAlgebraStore writes the result of SetAlgebra to dst, replacing any
// previous value and expiry, and returns its cardinality. An empty result
// deletes dst.
func (db *DB) SetAlgebraStore(op SetOp, dst string, keys ...string) (int, error) {
	result, err := db.SetAlgebra(op, keys...)
	if err != nil {
		return 0, err
	}
	if result.Len() == 0 {
		db.Delete(dst)
		return 0, nil
	}
	db.Put(dst, result)
	db.MarkUpdated(dst)
	return result.Len(), nil
}
