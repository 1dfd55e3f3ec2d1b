package store

// lookupAs resolves key to a T. A missing key yields the zero T and no
// error; a key of another kind yields ErrWrongType.
func lookupAs[T Value](db *DB, key string) (T, error) {
	var zero T
	v, ok := db.Lookup(key)
	if !ok {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, ErrWrongType
	}
	return t, nil
}

// createAs is lookupAs for writers: a missing key is created with mk().
// The caller must call DeleteIfEmpty if the command may leave it empty.
func createAs[T Value](db *DB, key string, mk func() T) (T, error) {
	db.reclaim(key)
	t, err := lookupAs[T](db, key)
	if err != nil {
		return t, err
	}
	if _, ok := db.ks.data[key]; !ok {
		t = mk()
		db.ks.data[key] = t
	}
	return t, nil
}

// ReadSet returns the set at key, or nil if key is missing.
func (db *DB) ReadSet(key string) (*Set, error) { return lookupAs[*Set](db, key) }

// WriteSet returns the set at key, creating an empty one if needed.
func (db *DB) WriteSet(key string) (*Set, error) { return createAs(db, key, func() *Set { return NewSet() }) }

// ReadHash returns the hash at key, or nil if key is missing.
func (db *DB) ReadHash(key string) (*Hash, error) { return lookupAs[*Hash](db, key) }

// WriteHash returns the hash at key, creating an empty one if needed.
func (db *DB) WriteHash(key string) (*Hash, error) { return createAs(db, key, NewHash) }

// ReadList returns the list at key, or nil if key is missing.
func (db *DB) ReadList(key string) (*List, error) { return lookupAs[*List](db, key) }

// WriteList returns the list at key, creating an empty one if needed.
func (db *DB) WriteList(key string) (*List, error) { return createAs(db, key, NewList) }

// ReadZSet returns the sorted set at key, or nil if key is missing.
func (db *DB) ReadZSet(key string) (*SortedSet, error) { return lookupAs[*SortedSet](db, key) }

// WriteZSet returns the sorted set at key, creating an empty one if needed.
func (db *DB) WriteZSet(key string) (*SortedSet, error) {
	return createAs(db, key, NewSortedSet)
}

// ReadString returns the string at key, or nil if key is missing.
func (db *DB) ReadString(key string) (*String, error) { return lookupAs[*String](db, key) }
