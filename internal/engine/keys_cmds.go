package engine

import (
	"math"
	"sort"
	"time"

	"github.com/flashdb/flashsim/internal/protocol"
	"github.com/flashdb/flashsim/internal/store"
)

func keyCommands() []Command {
	return []Command{
		{Name: "del", Arity: -2, Flags: FlagWrite, Handler: cmdDel},
		{Name: "exists", Arity: -2, Flags: FlagRead, Handler: cmdExists},
		{Name: "type", Arity: 2, Flags: FlagRead, Handler: cmdType},
		{Name: "expire", Arity: 3, Flags: FlagWrite, Handler: expireCmd(time.Second)},
		{Name: "pexpire", Arity: 3, Flags: FlagWrite, Handler: expireCmd(time.Millisecond)},
		{Name: "ttl", Arity: 2, Flags: FlagRead, Handler: ttlCmd(time.Second)},
		{Name: "pttl", Arity: 2, Flags: FlagRead, Handler: ttlCmd(time.Millisecond)},
		{Name: "persist", Arity: 2, Flags: FlagWrite, Handler: cmdPersist},
		{Name: "keys", Arity: 2, Flags: FlagRead, Handler: cmdKeys},
		{Name: "scan", Arity: -2, Flags: FlagRead, Handler: cmdScan},
		{Name: "randomkey", Arity: 1, Flags: FlagRead, Handler: cmdRandomKey},
	}
}

func cmdDel(c *Context) (protocol.Value, error) {
	n := 0
	for _, key := range c.strs(0) {
		if c.db.Delete(key) {
			n++
		}
	}
	return protocol.Int(int64(n)), nil
}

func cmdExists(c *Context) (protocol.Value, error) {
	n := 0
	for _, key := range c.strs(0) {
		if c.db.Exists(key) {
			n++
		}
	}
	return protocol.Int(int64(n)), nil
}

func cmdType(c *Context) (protocol.Value, error) {
	v, ok := c.db.Lookup(c.str(0))
	if !ok {
		return protocol.Status("none"), nil
	}
	return protocol.Status(v.Kind().String()), nil
}

func expireCmd(unit time.Duration) HandlerFunc {
	return func(c *Context) (protocol.Value, error) {
		n, err := c.int(1)
		if err != nil {
			return protocol.Value{}, err
		}
		// The deadline must fit in a time.Duration; a wrapped product would
		// land in the past and delete the key.
		if n > math.MaxInt64/int64(unit) || n < math.MinInt64/int64(unit) {
			return protocol.Value{}, &InvalidExpireError{Name: c.name}
		}
		at := c.srv.now().Add(time.Duration(n) * unit)
		return protocol.Bool(c.db.Expire(c.str(0), at)), nil
	}
}

// ttlCmd replies -2 for a missing key and -1 for a key without expiry.
func ttlCmd(unit time.Duration) HandlerFunc {
	return func(c *Context) (protocol.Value, error) {
		ttl, hasExpiry, ok := c.db.TTL(c.str(0))
		switch {
		case !ok:
			return protocol.Int(-2), nil
		case !hasExpiry:
			return protocol.Int(-1), nil
		}
		// Round to the nearest unit as Redis does.
		n := ttl / unit
		if ttl%unit >= unit/2 {
			n++
		}
		return protocol.Int(int64(n)), nil
	}
}

func cmdPersist(c *Context) (protocol.Value, error) {
	return protocol.Bool(c.db.Persist(c.str(0))), nil
}

func cmdKeys(c *Context) (protocol.Value, error) {
	keys := store.Filter(c.db.Keys(), store.Matcher(c.str(0)))
	sort.Strings(keys)
	return protocol.BulkArray(keys), nil
}

// SCAN cursor [MATCH pattern] [COUNT count] [TYPE type]
func cmdScan(c *Context) (protocol.Value, error) {
	sa, err := parseScan(c.args, true)
	if err != nil {
		return protocol.Value{}, err
	}
	next, batch := store.Scan(c.db.Keys(), sa.cursor, sa.count)
	keep := store.Matcher(sa.pattern)
	batch = store.Filter(batch, func(key string) bool {
		if !keep(key) {
			return false
		}
		if sa.typ == "" {
			return true
		}
		v, ok := c.db.Lookup(key)
		return ok && v.Kind().String() == sa.typ
	})
	return scanReply(next, batch), nil
}

func cmdRandomKey(c *Context) (protocol.Value, error) {
	key, ok := c.srv.sampler.RandomKey(c.db)
	if !ok {
		return protocol.NullBulk(), nil
	}
	return protocol.BulkString(key), nil
}
