package engine

import (
	"time"

	"github.com/flashdb/flashsim/internal/protocol"
	"github.com/flashdb/flashsim/internal/store"
)

func stringCommands() []Command {
	return []Command{
		{Name: "set", Arity: -3, Flags: FlagWrite, Handler: cmdSet},
		{Name: "get", Arity: 2, Flags: FlagRead, Handler: cmdGet},
	}
}

// SET key value [EX seconds | PX milliseconds]
func cmdSet(c *Context) (protocol.Value, error) {
	key := c.str(0)
	var ttl time.Duration
	switch {
	case c.argc() == 2:
	case c.argc() == 4 && (c.is(2, "EX") || c.is(2, "PX")):
		n, err := c.int(3)
		if err != nil {
			return protocol.Value{}, err
		}
		if n <= 0 {
			return protocol.Value{}, ErrInvalidExpire
		}
		unit := time.Second
		if c.is(2, "PX") {
			unit = time.Millisecond
		}
		ttl = time.Duration(n) * unit
	default:
		return protocol.Value{}, ErrSyntax
	}
	c.db.Put(key, store.NewString(c.args[1]))
	if ttl > 0 {
		c.db.Expire(key, c.srv.now().Add(ttl))
	} else {
		c.db.MarkUpdated(key)
	}
	return protocol.OK(), nil
}

func cmdGet(c *Context) (protocol.Value, error) {
	s, err := c.db.ReadString(c.str(0))
	if err != nil {
		return protocol.Value{}, err
	}
	if s == nil {
		return protocol.NullBulk(), nil
	}
	return protocol.Bulk(s.Bytes()), nil
}
