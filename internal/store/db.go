package store

import (
	"sync"
	"time"
)

// EventType describes a keyspace change delivered to hooks.
type EventType uint8

const (
	EventUpdated EventType = iota + 1
	EventRemoved
	EventExpired
	EventFlushed
	EventSwapped
)

func (t EventType) String() string {
	switch t {
	case EventUpdated:
		return "updated"
	case EventRemoved:
		return "removed"
	case EventExpired:
		return "expired"
	case EventFlushed:
		return "flushed"
	case EventSwapped:
		return "swapped"
	default:
		return "unknown"
	}
}

// Event is a single keyspace change. Key is empty for Flushed and Swapped.
type Event struct {
	Type EventType
	DB   int
	Key  string
}

// Hook observes keyspace changes. Hooks run synchronously while the DB lock
// is held and must not call back into the DB.
type Hook func(Event)

// keyspace is the swappable content of a DB.
type keyspace struct {
	data     map[string]Value
	expires  map[string]time.Time
	versions map[string]uint64
}

func newKeyspace() *keyspace {
	return &keyspace{
		data:     make(map[string]Value),
		expires:  make(map[string]time.Time),
		versions: make(map[string]uint64),
	}
}

// DB is one logical database. The lock methods guard every other method;
// callers hold Lock for mutation and RLock for reads.
type DB struct {
	mu     sync.RWMutex
	index  int
	ks     *keyspace
	now    func() time.Time
	notify Hook
}

// NewDB creates an empty database with the given index. now supplies the
// clock used for expiry and notify receives every change; both may be nil.
func NewDB(index int, now func() time.Time, notify Hook) *DB {
	if now == nil {
		now = time.Now
	}
	if notify == nil {
		notify = func(Event) {}
	}
	return &DB{
		index:  index,
		ks:     newKeyspace(),
		now:    now,
		notify: notify,
	}
}

func (db *DB) Lock()    { db.mu.Lock() }
func (db *DB) Unlock()  { db.mu.Unlock() }
func (db *DB) RLock()   { db.mu.RLock() }
func (db *DB) RUnlock() { db.mu.RUnlock() }

// Index returns the database number.
func (db *DB) Index() int { return db.index }

func (db *DB) expired(key string) bool {
	at, ok := db.ks.expires[key]
	return ok && !db.now().Before(at)
}

// Lookup returns the live value stored at key. Expired keys are reported
// as absent; they are only reclaimed by writers and ActiveExpire, so Lookup
// is safe under RLock.
func (db *DB) Lookup(key string) (Value, bool) {
	v, ok := db.ks.data[key]
	if !ok || db.expired(key) {
		return nil, false
	}
	return v, true
}

// reclaim drops key if it has expired. Requires the write lock.
func (db *DB) reclaim(key string) {
	if db.expired(key) {
		db.remove(key)
		db.notify(Event{Type: EventExpired, DB: db.index, Key: key})
	}
}

func (db *DB) remove(key string) {
	delete(db.ks.data, key)
	delete(db.ks.expires, key)
}

// Exists reports whether key holds a live value.
func (db *DB) Exists(key string) bool {
	_, ok := db.Lookup(key)
	return ok
}

// Put stores v at key, replacing any previous value of any kind and
// clearing its expiry.
func (db *DB) Put(key string, v Value) {
	db.ks.data[key] = v
	delete(db.ks.expires, key)
}

// Delete removes key and reports whether a live value was removed.
func (db *DB) Delete(key string) bool {
	db.reclaim(key)
	if _, ok := db.ks.data[key]; !ok {
		return false
	}
	db.remove(key)
	db.bump(key)
	db.notify(Event{Type: EventRemoved, DB: db.index, Key: key})
	return true
}

// DeleteIfEmpty removes key when it holds an empty container, so that an
// emptied container is indistinguishable from a missing key.
func (db *DB) DeleteIfEmpty(key string) bool {
	v, ok := db.ks.data[key]
	if !ok {
		return false
	}
	c, isContainer := v.(Container)
	if !isContainer || c.Len() > 0 {
		return false
	}
	return db.Delete(key)
}

func (db *DB) bump(key string) {
	db.ks.versions[key]++
}

// MarkUpdated records one structural change to key.
func (db *DB) MarkUpdated(key string) {
	db.bump(key)
	db.notify(Event{Type: EventUpdated, DB: db.index, Key: key})
}

// Touch records a change to a container: an emptied container is deleted,
// anything else is marked updated.
func (db *DB) Touch(key string) {
	if !db.DeleteIfEmpty(key) {
		db.MarkUpdated(key)
	}
}

// Version returns the change counter of key. It keeps counting across
// deletion and recreation of the key.
func (db *DB) Version(key string) uint64 {
	return db.ks.versions[key]
}

// Expire sets an absolute expiry on key. It reports false when key is
// missing. A deadline in the past deletes the key immediately.
func (db *DB) Expire(key string, at time.Time) bool {
	db.reclaim(key)
	if _, ok := db.ks.data[key]; !ok {
		return false
	}
	if !db.now().Before(at) {
		db.Delete(key)
		return true
	}
	db.ks.expires[key] = at
	db.MarkUpdated(key)
	return true
}

// TTL returns the remaining time to live of key. ok is false when key is
// missing; hasExpiry is false for persistent keys.
func (db *DB) TTL(key string) (ttl time.Duration, hasExpiry, ok bool) {
	if !db.Exists(key) {
		return 0, false, false
	}
	at, has := db.ks.expires[key]
	if !has {
		return 0, false, true
	}
	return at.Sub(db.now()), true, true
}

// Persist removes the expiry of key and reports whether one was removed.
func (db *DB) Persist(key string) bool {
	db.reclaim(key)
	if _, ok := db.ks.expires[key]; !ok {
		return false
	}
	delete(db.ks.expires, key)
	db.MarkUpdated(key)
	return true
}

// Len returns the number of live keys.
func (db *DB) Len() int {
	n := len(db.ks.data)
	for key := range db.ks.expires {
		if db.expired(key) {
			n--
		}
	}
	return n
}

// ExpiringLen returns the number of live keys that carry an expiry.
func (db *DB) ExpiringLen() int {
	n := 0
	for key := range db.ks.expires {
		if !db.expired(key) {
			n++
		}
	}
	return n
}

// Keys returns all live keys in no particular order.
func (db *DB) Keys() []string {
	keys := make([]string, 0, len(db.ks.data))
	for key := range db.ks.data {
		if !db.expired(key) {
			keys = append(keys, key)
		}
	}
	return keys
}

// Flush drops every key. Versions survive so watchers still see a change.
func (db *DB) Flush() {
	versions := db.ks.versions
	for key := range db.ks.data {
		versions[key]++
	}
	db.ks = newKeyspace()
	db.ks.versions = versions
	db.notify(Event{Type: EventFlushed, DB: db.index})
}

// SwapWith exchanges the entire contents (values, expiries, versions) of db
// and other. The caller holds both write locks.
func (db *DB) SwapWith(other *DB) {
	if db == other {
		return
	}
	db.ks, other.ks = other.ks, db.ks
	db.notify(Event{Type: EventSwapped, DB: db.index})
	other.notify(Event{Type: EventSwapped, DB: other.index})
}

// ActiveExpire samples keys with an expiry and deletes the expired ones.
// Like Redis it repeats while more than a quarter of the
// sample was expired, up to maxRounds rounds. Requires the write lock.
func (db *DB) ActiveExpire(sampleSize, maxRounds int) int {
	total := 0
	for round := 0; round < maxRounds; round++ {
		sampled, expired := 0, 0
		for key := range db.ks.expires {
			if sampled >= sampleSize {
				break
			}
			sampled++
			if db.expired(key) {
				db.reclaim(key)
				expired++
			}
		}
		total += expired
		if sampled == 0 || expired*4 < sampled {
			break
		}
	}
	return total
}
