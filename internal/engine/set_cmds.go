package engine

import (
	"math"

	"github.com/flashdb/flashsim/internal/protocol"
	"github.com/flashdb/flashsim/internal/store"
)

func setCommands() []Command {
	return []Command{
		{Name: "sadd", Arity: -3, Flags: FlagWrite, Handler: cmdSAdd},
		{Name: "scard", Arity: 2, Flags: FlagRead, Handler: cmdSCard},
		{Name: "sdiff", Arity: -2, Flags: FlagRead, Handler: setAlgebra(store.OpDiff)},
		{Name: "sinter", Arity: -2, Flags: FlagRead, Handler: setAlgebra(store.OpInter)},
		{Name: "sunion", Arity: -2, Flags: FlagRead, Handler: setAlgebra(store.OpUnion)},
		{Name: "sdiffstore", Arity: -3, Flags: FlagWrite, Handler: setAlgebraStore(store.OpDiff)},
		{Name: "sinterstore", Arity: -3, Flags: FlagWrite, Handler: setAlgebraStore(store.OpInter)},
		{Name: "sunionstore", Arity: -3, Flags: FlagWrite, Handler: setAlgebraStore(store.OpUnion)},
		{Name: "sintercard", Arity: -3, Flags: FlagRead, MinVersion: 7, Handler: cmdSInterCard},
		{Name: "sismember", Arity: 3, Flags: FlagRead, Handler: cmdSIsMember},
		{Name: "smismember", Arity: -3, Flags: FlagRead, Handler: cmdSMIsMember},
		{Name: "smembers", Arity: 2, Flags: FlagRead, Handler: cmdSMembers},
		{Name: "smove", Arity: 4, Flags: FlagWrite, Handler: cmdSMove},
		{Name: "spop", Arity: -2, Flags: FlagWrite, Handler: cmdSPop},
		{Name: "srandmember", Arity: -2, Flags: FlagRead, Handler: cmdSRandMember},
		{Name: "srem", Arity: -3, Flags: FlagWrite, Handler: cmdSRem},
		{Name: "sscan", Arity: -3, Flags: FlagRead, Handler: cmdSScan},
	}
}

func cmdSAdd(c *Context) (protocol.Value, error) {
	key := c.str(0)
	s, err := c.db.WriteSet(key)
	if err != nil {
		return protocol.Value{}, err
	}
	added := s.Add(c.strs(1)...)
	if added > 0 {
		c.db.MarkUpdated(key)
	}
	return protocol.Int(int64(added)), nil
}

func cmdSCard(c *Context) (protocol.Value, error) {
	s, err := c.db.ReadSet(c.str(0))
	if err != nil {
		return protocol.Value{}, err
	}
	return protocol.Int(int64(s.Len())), nil
}

func setAlgebra(op store.SetOp) HandlerFunc {
	return func(c *Context) (protocol.Value, error) {
		result, err := c.db.SetAlgebra(op, c.strs(0)...)
		if err != nil {
			return protocol.Value{}, err
		}
		return protocol.BulkArray(result.Sorted()), nil
	}
}

func setAlgebraStore(op store.SetOp) HandlerFunc {
	return func(c *Context) (protocol.Value, error) {
		n, err := c.db.SetAlgebraStore(op, c.str(0), c.strs(1)...)
		if err != nil {
			return protocol.Value{}, err
		}
		return protocol.Int(int64(n)), nil
	}
}

// SINTERCARD numkeys key [key ...] [LIMIT limit]
func cmdSInterCard(c *Context) (protocol.Value, error) {
	numkeys, err := c.int(0)
	if err != nil {
		return protocol.Value{}, err
	}
	if numkeys < 1 {
		return protocol.Value{}, ErrSyntax
	}
	keys := c.strs(1)
	limit := int64(0)
	if n := len(keys); n >= 2 && c.is(n-1, "LIMIT") && int64(n-2) >= numkeys {
		limit, err = c.int(n)
		if err != nil {
			return protocol.Value{}, err
		}
		if limit < 0 {
			return protocol.Value{}, ErrNegativeLimit
		}
		keys = keys[:n-2]
	}
	if int64(len(keys)) != numkeys {
		return protocol.Value{}, ErrSyntax
	}
	sets, err := c.db.ResolveSets(keys...)
	if err != nil {
		return protocol.Value{}, err
	}
	card := int64(store.Combine(store.OpInter, false, sets...).Len())
	if limit > 0 && card > limit {
		card = limit
	}
	return protocol.Int(card), nil
}

func cmdSIsMember(c *Context) (protocol.Value, error) {
	s, err := c.db.ReadSet(c.str(0))
	if err != nil {
		return protocol.Value{}, err
	}
	return protocol.Bool(s.Has(c.str(1))), nil
}

func cmdSMIsMember(c *Context) (protocol.Value, error) {
	s, err := c.db.ReadSet(c.str(0))
	if err != nil {
		return protocol.Value{}, err
	}
	members := c.strs(1)
	out := make([]protocol.Value, len(members))
	for i, m := range members {
		out[i] = protocol.Bool(s.Has(m))
	}
	return protocol.Array(out...), nil
}

func cmdSMembers(c *Context) (protocol.Value, error) {
	s, err := c.db.ReadSet(c.str(0))
	if err != nil {
		return protocol.Value{}, err
	}
	return protocol.BulkArray(s.Sorted()), nil
}

func cmdSMove(c *Context) (protocol.Value, error) {
	src, dst, member := c.str(0), c.str(1), c.str(2)
	from, err := c.db.ReadSet(src)
	if err != nil {
		return protocol.Value{}, err
	}
	if _, err := c.db.ReadSet(dst); err != nil {
		return protocol.Value{}, err
	}
	if !from.Has(member) {
		return protocol.Int(0), nil
	}
	if src == dst {
		return protocol.Int(1), nil
	}
	from.Remove(member)
	c.db.Touch(src)
	to, err := c.db.WriteSet(dst)
	if err != nil {
		return protocol.Value{}, err
	}
	to.Add(member)
	c.db.MarkUpdated(dst)
	return protocol.Int(1), nil
}

// SPOP key [count]. The key type is checked before the count, and every
// popped member is reported as its own update.
func cmdSPop(c *Context) (protocol.Value, error) {
	if c.argc() > 2 {
		return protocol.Value{}, ErrSyntax
	}
	key := c.str(0)
	s, err := c.db.ReadSet(key)
	if err != nil {
		return protocol.Value{}, err
	}
	hasCount := c.argc() == 2
	count := int64(1)
	if hasCount {
		if count, err = c.int(1); err != nil {
			return protocol.Value{}, err
		}
		if count < 0 {
			return protocol.Value{}, ErrIndexOutOfRange
		}
	}
	if !hasCount {
		member, ok := c.srv.sampler.RandomMember(s)
		if !ok {
			return protocol.NullBulk(), nil
		}
		s.Remove(member)
		c.db.Touch(key)
		return protocol.BulkString(member), nil
	}
	popped := c.srv.sampler.RandomMembers(s, int(count))
	for _, m := range popped {
		s.Remove(m)
		c.db.Touch(key)
	}
	return protocol.BulkArray(popped), nil
}

// maxRandomReply bounds the reply of SRANDMEMBER with a negative count, which
// is materialised in full.
const maxRandomReply = 1 << 24

// SRANDMEMBER key [count]
func cmdSRandMember(c *Context) (protocol.Value, error) {
	if c.argc() > 2 {
		return protocol.Value{}, ErrSyntax
	}
	var count int64
	if c.argc() == 2 {
		var err error
		if count, err = c.int(1); err != nil {
			return protocol.Value{}, err
		}
		if count < -math.MaxInt64/2 {
			return protocol.Value{}, ErrOutOfRange
		}
	}
	s, err := c.db.ReadSet(c.str(0))
	if err != nil {
		return protocol.Value{}, err
	}
	if c.argc() == 1 {
		member, ok := c.srv.sampler.RandomMember(s)
		if !ok {
			return protocol.NullBulk(), nil
		}
		return protocol.BulkString(member), nil
	}
	if count < -maxRandomReply && s.Len() > 0 {
		return protocol.Value{}, ErrOutOfRange
	}
	return protocol.BulkArray(c.srv.sampler.RandomMembers(s, int(count))), nil
}

func cmdSRem(c *Context) (protocol.Value, error) {
	key := c.str(0)
	s, err := c.db.ReadSet(key)
	if err != nil {
		return protocol.Value{}, err
	}
	if s == nil {
		return protocol.Int(0), nil
	}
	removed := s.Remove(c.strs(1)...)
	if removed > 0 {
		c.db.Touch(key)
	}
	return protocol.Int(int64(removed)), nil
}

func cmdSScan(c *Context) (protocol.Value, error) {
	sa, err := parseScan(c.args[1:], false)
	if err != nil {
		return protocol.Value{}, err
	}
	s, err := c.db.ReadSet(c.str(0))
	if err != nil {
		return protocol.Value{}, err
	}
	next, batch := store.ScanSet(s, sa.cursor, sa.pattern, sa.count)
	return scanReply(next, batch), nil
}

func scanReply(next uint64, batch []string) protocol.Value {
	return protocol.Array(
		protocol.BulkString(formatUint(next)),
		protocol.BulkArray(batch),
	)
}
