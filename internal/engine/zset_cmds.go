package engine

import (
	"github.com/flashdb/flashsim/internal/protocol"
	"github.com/flashdb/flashsim/internal/store"
)

func zsetCommands() []Command {
	return []Command{
		{Name: "zadd", Arity: -4, Flags: FlagWrite, Handler: cmdZAdd},
		{Name: "zrem", Arity: -3, Flags: FlagWrite, Handler: cmdZRem},
		{Name: "zscore", Arity: 3, Flags: FlagRead, Handler: cmdZScore},
		{Name: "zcard", Arity: 2, Flags: FlagRead, Handler: cmdZCard},
		{Name: "zrange", Arity: -4, Flags: FlagRead, Handler: cmdZRange},
		{Name: "zscan", Arity: -3, Flags: FlagRead, Handler: cmdZScan},
	}
}

// ZADD key score member [score member ...]
func cmdZAdd(c *Context) (protocol.Value, error) {
	if c.argc()%2 != 1 {
		return protocol.Value{}, ErrSyntax
	}
	members := make([]store.ScoredMember, 0, c.argc()/2)
	for i := 1; i < c.argc(); i += 2 {
		score, err := parseFloat(c.args[i])
		if err != nil {
			return protocol.Value{}, err
		}
		members = append(members, store.ScoredMember{Member: c.str(i + 1), Score: score})
	}
	key := c.str(0)
	z, err := c.db.WriteZSet(key)
	if err != nil {
		return protocol.Value{}, err
	}
	added := z.Add(members...)
	c.db.MarkUpdated(key)
	return protocol.Int(int64(added)), nil
}

func cmdZRem(c *Context) (protocol.Value, error) {
	key := c.str(0)
	z, err := c.db.ReadZSet(key)
	if err != nil {
		return protocol.Value{}, err
	}
	if z == nil {
		return protocol.Int(0), nil
	}
	removed := z.Remove(c.strs(1)...)
	if removed > 0 {
		c.db.Touch(key)
	}
	return protocol.Int(int64(removed)), nil
}

func cmdZScore(c *Context) (protocol.Value, error) {
	z, err := c.db.ReadZSet(c.str(0))
	if err != nil {
		return protocol.Value{}, err
	}
	score, ok := z.Score(c.str(1))
	if !ok {
		return protocol.NullBulk(), nil
	}
	return protocol.BulkString(formatFloat(score)), nil
}

func cmdZCard(c *Context) (protocol.Value, error) {
	z, err := c.db.ReadZSet(c.str(0))
	if err != nil {
		return protocol.Value{}, err
	}
	return protocol.Int(int64(z.Len())), nil
}

// ZRANGE key start stop [WITHSCORES]
func cmdZRange(c *Context) (protocol.Value, error) {
	withScores := false
	switch {
	case c.argc() == 3:
	case c.argc() == 4 && c.is(3, "WITHSCORES"):
		withScores = true
	default:
		return protocol.Value{}, ErrSyntax
	}
	start, err := c.int(1)
	if err != nil {
		return protocol.Value{}, err
	}
	stop, err := c.int(2)
	if err != nil {
		return protocol.Value{}, err
	}
	z, err := c.db.ReadZSet(c.str(0))
	if err != nil {
		return protocol.Value{}, err
	}
	var out []string
	for _, m := range z.Range(int(start), int(stop)) {
		out = append(out, m.Member)
		if withScores {
			out = append(out, formatFloat(m.Score))
		}
	}
	return protocol.BulkArray(out), nil
}

func cmdZScan(c *Context) (protocol.Value, error) {
	sa, err := parseScan(c.args[1:], false)
	if err != nil {
		return protocol.Value{}, err
	}
	z, err := c.db.ReadZSet(c.str(0))
	if err != nil {
		return protocol.Value{}, err
	}
	next, members := store.Scan(z.Names(), sa.cursor, sa.count)
	members = store.Filter(members, store.Matcher(sa.pattern))
	flat := make([]string, 0, 2*len(members))
	for _, m := range members {
		score, _ := z.Score(m)
		flat = append(flat, m, formatFloat(score))
	}
	return scanReply(next, flat), nil
}
