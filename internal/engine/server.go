package engine

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/flashdb/flashsim/internal/cdc"
	"github.com/flashdb/flashsim/internal/hotkeys"
	"github.com/flashdb/flashsim/internal/store"
)

const (
	DefaultDatabases      = 16
	DefaultVersion        = 7
	DefaultExpireInterval = 100 * time.Millisecond

	expireSampleSize = 20
	expireMaxRounds  = 16
)

type options struct {
	databases      int
	version        int
	seed           int64
	seeded         bool
	clock          func() time.Time
	registerer     prometheus.Registerer
	expireInterval time.Duration
	cdcCapacity    int
	hotkeysTopN    int
	hotkeysWindow  time.Duration
}

// Option configures a Server.
type Option func(*options)

// WithDatabases sets the number of logical databases.
func WithDatabases(n int) Option { return func(o *options) { o.databases = n } }

// WithVersion sets the emulated major server version. Commands introduced
// later than the version are reported as unknown.
func WithVersion(major int) Option { return func(o *options) { o.version = major } }

// WithSeed makes random sampling reproducible.
func WithSeed(seed int64) Option {
	return func(o *options) { o.seed, o.seeded = seed, true }
}

// WithClock replaces time.Now for expiry and save timestamps.
func WithClock(now func() time.Time) Option { return func(o *options) { o.clock = now } }

// WithRegisterer registers the server's metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithExpireInterval sets how often expired keys are reclaimed in the
// background. Zero disables the sweeper; expired keys still read as absent.
func WithExpireInterval(d time.Duration) Option {
	return func(o *options) { o.expireInterval = d }
}

// WithCDCCapacity sets the keyspace event history size.
func WithCDCCapacity(n int) Option { return func(o *options) { o.cdcCapacity = n } }

// WithHotKeys sets how many hot keys are reported and the decay window.
func WithHotKeys(topN int, window time.Duration) Option {
	return func(o *options) { o.hotkeysTopN, o.hotkeysWindow = topN, window }
}

// Server is the shared root state: the logical databases plus the save
// bookkeeping. Any number of Handles may share one Server; Servers never
// share state with each other.
type Server struct {
	dbs      []*store.DB
	version  int
	now      func() time.Time
	sampler  *store.Sampler
	registry *Registry
	metrics  *metrics
	events   *cdc.Stream
	hot      *hotkeys.Tracker

	hooksMu sync.RWMutex
	hooks   []store.Hook

	dirty         atomic.Int64
	lastSave      atomic.Int64
	bgsaving      atomic.Int32
	totalCommands atomic.Int64
	startTime     time.Time

	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once

	// bgMu orders wg.Add in BGSave before wg.Wait in Close.
	bgMu   sync.Mutex
	closed bool
}

// NewServer creates a Server. Without options it has 16 databases, emulates
// version 7 and seeds sampling from the clock.
func NewServer(opts ...Option) *Server {
	o := options{
		databases:      DefaultDatabases,
		version:        DefaultVersion,
		clock:          time.Now,
		expireInterval: DefaultExpireInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.databases <= 0 {
		o.databases = DefaultDatabases
	}
	if !o.seeded {
		o.seed = o.clock().UnixNano()
	}

	s := &Server{
		version:   o.version,
		now:       o.clock,
		sampler:   store.NewSampler(rand.NewSource(o.seed)),
		registry:  Commands(),
		events:    cdc.NewStream(o.cdcCapacity),
		hot:       hotkeys.New(o.hotkeysTopN, o.hotkeysWindow),
		startTime: o.clock(),
		stop:      make(chan struct{}),
	}
	s.lastSave.Store(s.startTime.Unix())
	s.dbs = make([]*store.DB, o.databases)
	for i := range s.dbs {
		s.dbs[i] = store.NewDB(i, s.now, s.notify)
	}
	s.Subscribe(s.events.Hook())
	s.Subscribe(s.hot.Hook())
	s.metrics = newMetrics(s, o.registerer)

	if o.expireInterval > 0 {
		s.wg.Add(1)
		go s.expireLoop(o.expireInterval)
	}
	return s
}

// notify is the hook every DB reports to. It runs under the DB lock.
func (s *Server) notify(e store.Event) {
	s.dirty.Add(1)
	s.hooksMu.RLock()
	for _, h := range s.hooks {
		h(e)
	}
	s.hooksMu.RUnlock()
}

// Subscribe adds a hook that sees every keyspace change on every database.
// Hooks run synchronously with the DB lock held and must not issue
// commands.
func (s *Server) Subscribe(h store.Hook) {
	s.hooksMu.Lock()
	s.hooks = append(s.hooks, h)
	s.hooksMu.Unlock()
}

// NewHandle returns a front-end handle on database 0.
func (s *Server) NewHandle() *Handle {
	return &Handle{srv: s}
}

// Version returns the emulated major version.
func (s *Server) Version() int { return s.version }

// Databases returns the number of logical databases.
func (s *Server) Databases() int { return len(s.dbs) }

func (s *Server) validIndex(i int) bool { return i >= 0 && i < len(s.dbs) }

// Swap exchanges the contents of databases i and j. Swapping a database
// with itself succeeds without doing anything.
func (s *Server) Swap(i, j int) error {
	if !s.validIndex(i) || !s.validIndex(j) {
		return ErrDBIndex
	}
	if i == j {
		return nil
	}
	lo, hi := s.dbs[min(i, j)], s.dbs[max(i, j)]
	lo.Lock()
	hi.Lock()
	lo.SwapWith(hi)
	hi.Unlock()
	lo.Unlock()
	return nil
}

// Flush empties database i.
func (s *Server) Flush(i int) error {
	if !s.validIndex(i) {
		return ErrDBIndex
	}
	db := s.dbs[i]
	db.Lock()
	db.Flush()
	db.Unlock()
	return nil
}

// FlushAll empties every database, holding all of them for the duration.
func (s *Server) FlushAll() {
	for _, db := range s.dbs {
		db.Lock()
	}
	for _, db := range s.dbs {
		db.Flush()
	}
	for i := len(s.dbs) - 1; i >= 0; i-- {
		s.dbs[i].Unlock()
	}
}

// Size returns the number of live keys in database i.
func (s *Server) Size(i int) (int, error) {
	if !s.validIndex(i) {
		return 0, ErrDBIndex
	}
	db := s.dbs[i]
	db.RLock()
	defer db.RUnlock()
	return db.Len(), nil
}

// Save records a save at the current instant and resets the change
// counter. Nothing is written anywhere.
func (s *Server) Save() {
	s.lastSave.Store(s.now().Unix())
	s.dirty.Store(0)
}

// BGSave performs Save on a background goroutine. After Close it saves
// synchronously.
func (s *Server) BGSave() {
	s.bgMu.Lock()
	defer s.bgMu.Unlock()
	if s.closed {
		s.Save()
		return
	}
	s.bgsaving.Add(1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.bgsaving.Add(-1)
		s.Save()
	}()
}

// LastSave returns the unix time of the last save.
func (s *Server) LastSave() int64 { return s.lastSave.Load() }

// Dirty returns the number of keyspace changes since the last save.
func (s *Server) Dirty() int64 { return s.dirty.Load() }

// Events returns the keyspace event stream.
func (s *Server) Events() *cdc.Stream { return s.events }

// HotKeys returns the n most updated keys.
func (s *Server) HotKeys(n int) []hotkeys.Entry { return s.hot.Top(n) }

func (s *Server) expireLoop(interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.ExpireCycle()
		}
	}
}

// ExpireCycle reclaims expired keys on every database and returns how many
// were removed.
func (s *Server) ExpireCycle() int {
	total := 0
	for _, db := range s.dbs {
		db.Lock()
		total += db.ActiveExpire(expireSampleSize, expireMaxRounds)
		db.Unlock()
	}
	return total
}

// Close stops background work and waits for pending background saves.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.bgMu.Lock()
		s.closed = true
		s.bgMu.Unlock()
		close(s.stop)
		s.hot.Stop()
	})
	s.wg.Wait()
	return nil
}

// DBStats describes one database.
type DBStats struct {
	Index   int `json:"db"`
	Keys    int `json:"keys"`
	Expires int `json:"expires"`
}

// Stats is a point-in-time summary of the server.
type Stats struct {
	Version       int       `json:"version"`
	StartTime     time.Time `json:"start_time"`
	TotalCommands int64     `json:"total_commands"`
	Dirty         int64     `json:"changes_since_last_save"`
	LastSave      int64     `json:"last_save"`
	Databases     []DBStats `json:"databases"`
}

// Stats returns a summary; empty databases are omitted.
func (s *Server) Stats() Stats {
	st := Stats{
		Version:       s.version,
		StartTime:     s.startTime,
		TotalCommands: s.totalCommands.Load(),
		Dirty:         s.Dirty(),
		LastSave:      s.LastSave(),
		Databases:     []DBStats{},
	}
	for _, ds := range s.dbStats() {
		if ds.Keys > 0 {
			st.Databases = append(st.Databases, ds)
		}
	}
	return st
}

func (s *Server) dbStats() []DBStats {
	out := make([]DBStats, len(s.dbs))
	for i, db := range s.dbs {
		db.RLock()
		out[i] = DBStats{Index: i, Keys: db.Len(), Expires: db.ExpiringLen()}
		db.RUnlock()
	}
	return out
}
