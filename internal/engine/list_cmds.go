package engine

import (
	"github.com/flashdb/flashsim/internal/protocol"
)

func listCommands() []Command {
	return []Command{
		{Name: "lpush", Arity: -3, Flags: FlagWrite, Handler: pushCmd(true)},
		{Name: "rpush", Arity: -3, Flags: FlagWrite, Handler: pushCmd(false)},
		{Name: "lpop", Arity: -2, Flags: FlagWrite, Handler: popCmd(true)},
		{Name: "rpop", Arity: -2, Flags: FlagWrite, Handler: popCmd(false)},
		{Name: "llen", Arity: 2, Flags: FlagRead, Handler: cmdLLen},
		{Name: "lrange", Arity: 4, Flags: FlagRead, Handler: cmdLRange},
	}
}

func pushCmd(left bool) HandlerFunc {
	return func(c *Context) (protocol.Value, error) {
		key := c.str(0)
		l, err := c.db.WriteList(key)
		if err != nil {
			return protocol.Value{}, err
		}
		var n int
		if left {
			n = l.LPush(c.args[1:]...)
		} else {
			n = l.RPush(c.args[1:]...)
		}
		c.db.MarkUpdated(key)
		return protocol.Int(int64(n)), nil
	}
}

// popCmd implements LPOP/RPOP key [count].
func popCmd(left bool) HandlerFunc {
	return func(c *Context) (protocol.Value, error) {
		if c.argc() > 2 {
			return protocol.Value{}, ErrSyntax
		}
		key := c.str(0)
		count := int64(-1)
		if c.argc() == 2 {
			var err error
			if count, err = c.int(1); err != nil {
				return protocol.Value{}, err
			}
			if count < 0 {
				return protocol.Value{}, ErrNotPositive
			}
		}
		l, err := c.db.ReadList(key)
		if err != nil {
			return protocol.Value{}, err
		}
		if l == nil {
			if count < 0 {
				return protocol.NullBulk(), nil
			}
			return protocol.NullArray(), nil
		}
		pop := l.RPop
		if left {
			pop = l.LPop
		}
		if count < 0 {
			v, _ := pop()
			c.db.Touch(key)
			return protocol.Bulk(v), nil
		}
		var out []protocol.Value
		for i := int64(0); i < count; i++ {
			v, ok := pop()
			if !ok {
				break
			}
			out = append(out, protocol.Bulk(v))
		}
		if len(out) > 0 {
			c.db.Touch(key)
		}
		return protocol.Array(out...), nil
	}
}

func cmdLLen(c *Context) (protocol.Value, error) {
	l, err := c.db.ReadList(c.str(0))
	if err != nil {
		return protocol.Value{}, err
	}
	return protocol.Int(int64(l.Len())), nil
}

func cmdLRange(c *Context) (protocol.Value, error) {
	start, err := c.int(1)
	if err != nil {
		return protocol.Value{}, err
	}
	stop, err := c.int(2)
	if err != nil {
		return protocol.Value{}, err
	}
	l, err := c.db.ReadList(c.str(0))
	if err != nil {
		return protocol.Value{}, err
	}
	if l == nil {
		return protocol.Array(), nil
	}
	items := l.Range(int(start), int(stop))
	out := make([]protocol.Value, len(items))
	for i, it := range items {
		out[i] = protocol.Bulk(it)
	}
	return protocol.Array(out...), nil
}
