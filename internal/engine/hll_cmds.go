package engine

import (
	"github.com/flashdb/flashsim/internal/protocol"
	"github.com/flashdb/flashsim/internal/store"
)

// The PF* commands keep the exact members in an ordinary set, so PFCOUNT
// is exact and the keys read as sets to every other command.

func hllCommands() []Command {
	return []Command{
		{Name: "pfadd", Arity: -2, Flags: FlagWrite, Handler: cmdPFAdd},
		{Name: "pfcount", Arity: -2, Flags: FlagRead, Handler: cmdPFCount},
		{Name: "pfmerge", Arity: -2, Flags: FlagWrite, Handler: cmdPFMerge},
	}
}

func cmdPFAdd(c *Context) (protocol.Value, error) {
	key := c.str(0)
	if c.argc() == 1 {
		if _, err := c.db.ReadSet(key); err != nil {
			return protocol.Value{}, err
		}
		return protocol.Int(0), nil
	}
	s, err := c.db.WriteSet(key)
	if err != nil {
		return protocol.Value{}, err
	}
	added := s.Add(c.strs(1)...)
	if added > 0 {
		c.db.MarkUpdated(key)
	}
	return protocol.Bool(added > 0), nil
}

func cmdPFCount(c *Context) (protocol.Value, error) {
	union, err := c.db.SetAlgebra(store.OpUnion, c.strs(0)...)
	if err != nil {
		return protocol.Value{}, err
	}
	return protocol.Int(int64(union.Len())), nil
}

// PFMERGE dest [source ...] overwrites dest with the union of the sources.
func cmdPFMerge(c *Context) (protocol.Value, error) {
	dest := c.str(0)
	if c.argc() == 1 {
		if _, err := c.db.ReadSet(dest); err != nil {
			return protocol.Value{}, err
		}
		return protocol.OK(), nil
	}
	if _, err := c.db.SetAlgebraStore(store.OpUnion, dest, c.strs(1)...); err != nil {
		return protocol.Value{}, err
	}
	return protocol.OK(), nil
}
