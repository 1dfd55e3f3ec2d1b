package engine

import (
	"github.com/flashdb/flashsim/internal/protocol"
	"github.com/flashdb/flashsim/internal/store"
)

func hashCommands() []Command {
	return []Command{
		{Name: "hset", Arity: -4, Flags: FlagWrite, Handler: cmdHSet},
		{Name: "hget", Arity: 3, Flags: FlagRead, Handler: cmdHGet},
		{Name: "hdel", Arity: -3, Flags: FlagWrite, Handler: cmdHDel},
		{Name: "hlen", Arity: 2, Flags: FlagRead, Handler: cmdHLen},
		{Name: "hgetall", Arity: 2, Flags: FlagRead, Handler: cmdHGetAll},
		{Name: "hscan", Arity: -3, Flags: FlagRead, Handler: cmdHScan},
	}
}

func cmdHSet(c *Context) (protocol.Value, error) {
	if c.argc()%2 != 1 {
		return protocol.Value{}, &ArityError{Name: c.name}
	}
	key := c.str(0)
	h, err := c.db.WriteHash(key)
	if err != nil {
		return protocol.Value{}, err
	}
	added := 0
	for i := 1; i < c.argc(); i += 2 {
		if h.Set(c.str(i), c.args[i+1]) {
			added++
		}
	}
	c.db.MarkUpdated(key)
	return protocol.Int(int64(added)), nil
}

func cmdHGet(c *Context) (protocol.Value, error) {
	h, err := c.db.ReadHash(c.str(0))
	if err != nil {
		return protocol.Value{}, err
	}
	val, ok := h.Get(c.str(1))
	if !ok {
		return protocol.NullBulk(), nil
	}
	return protocol.Bulk(val), nil
}

func cmdHDel(c *Context) (protocol.Value, error) {
	key := c.str(0)
	h, err := c.db.ReadHash(key)
	if err != nil {
		return protocol.Value{}, err
	}
	if h == nil {
		return protocol.Int(0), nil
	}
	removed := h.Del(c.strs(1)...)
	if removed > 0 {
		c.db.Touch(key)
	}
	return protocol.Int(int64(removed)), nil
}

func cmdHLen(c *Context) (protocol.Value, error) {
	h, err := c.db.ReadHash(c.str(0))
	if err != nil {
		return protocol.Value{}, err
	}
	return protocol.Int(int64(h.Len())), nil
}

func cmdHGetAll(c *Context) (protocol.Value, error) {
	h, err := c.db.ReadHash(c.str(0))
	if err != nil {
		return protocol.Value{}, err
	}
	var out []protocol.Value
	for _, fv := range h.All() {
		out = append(out, protocol.BulkString(fv.Field), protocol.Bulk(fv.Value))
	}
	return protocol.Array(out...), nil
}

func cmdHScan(c *Context) (protocol.Value, error) {
	sa, err := parseScan(c.args[1:], false)
	if err != nil {
		return protocol.Value{}, err
	}
	h, err := c.db.ReadHash(c.str(0))
	if err != nil {
		return protocol.Value{}, err
	}
	next, fields := store.Scan(h.Fields(), sa.cursor, sa.count)
	fields = store.Filter(fields, store.Matcher(sa.pattern))
	flat := make([]string, 0, 2*len(fields))
	for _, f := range fields {
		val, _ := h.Get(f)
		flat = append(flat, f, string(val))
	}
	return scanReply(next, flat), nil
}
