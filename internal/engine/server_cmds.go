package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/flashdb/flashsim/internal/protocol"
	"github.com/flashdb/flashsim/internal/version"
)

func serverCommands() []Command {
	return []Command{
		{Name: "swapdb", Arity: 3, Flags: FlagAdmin, Handler: cmdSwapDB},
		{Name: "flushdb", Arity: -1, Flags: FlagAdmin, Handler: cmdFlushDB},
		{Name: "flushall", Arity: -1, Flags: FlagAdmin, Handler: cmdFlushAll},
		{Name: "dbsize", Arity: 1, Flags: FlagRead, Handler: cmdDBSize},
		{Name: "save", Arity: 1, Flags: FlagAdmin, Handler: cmdSave},
		{Name: "bgsave", Arity: -1, Flags: FlagAdmin, Handler: cmdBGSave},
		{Name: "lastsave", Arity: 1, Flags: FlagAdmin, Handler: cmdLastSave},
		{Name: "info", Arity: -1, Flags: FlagAdmin, Handler: cmdInfo},
		{Name: "time", Arity: 1, Flags: FlagAdmin, Handler: cmdTime},
		{Name: "command", Arity: -1, Flags: FlagAdmin, Handler: cmdCommand},
	}
}

func cmdSwapDB(c *Context) (protocol.Value, error) {
	i, err := c.int(0)
	if err != nil {
		return protocol.Value{}, ErrInvalidFirstDB
	}
	j, err := c.int(1)
	if err != nil {
		return protocol.Value{}, ErrInvalidSecondDB
	}
	n := int64(c.srv.Databases())
	if i < 0 || i >= n || j < 0 || j >= n {
		return protocol.Value{}, ErrDBIndex
	}
	if err := c.srv.Swap(int(i), int(j)); err != nil {
		return protocol.Value{}, err
	}
	return protocol.OK(), nil
}

// checkFlushMode accepts an optional ASYNC or SYNC. Both flush immediately.
func checkFlushMode(c *Context) error {
	switch {
	case c.argc() == 0:
		return nil
	case c.argc() == 1 && (c.is(0, "ASYNC") || c.is(0, "SYNC")):
		return nil
	default:
		return ErrSyntax
	}
}

func cmdFlushDB(c *Context) (protocol.Value, error) {
	if err := checkFlushMode(c); err != nil {
		return protocol.Value{}, err
	}
	if err := c.srv.Flush(c.handle.DB()); err != nil {
		return protocol.Value{}, err
	}
	return protocol.OK(), nil
}

func cmdFlushAll(c *Context) (protocol.Value, error) {
	if err := checkFlushMode(c); err != nil {
		return protocol.Value{}, err
	}
	c.srv.FlushAll()
	return protocol.OK(), nil
}

func cmdDBSize(c *Context) (protocol.Value, error) {
	return protocol.Int(int64(c.db.Len())), nil
}

func cmdSave(c *Context) (protocol.Value, error) {
	c.srv.Save()
	return protocol.OK(), nil
}

// BGSAVE [SCHEDULE]
func cmdBGSave(c *Context) (protocol.Value, error) {
	if c.argc() > 1 || (c.argc() == 1 && !c.is(0, "SCHEDULE")) {
		return protocol.Value{}, ErrSyntax
	}
	c.srv.BGSave()
	return protocol.Status("Background saving started"), nil
}

func cmdLastSave(c *Context) (protocol.Value, error) {
	return protocol.Int(c.srv.LastSave()), nil
}

func cmdTime(c *Context) (protocol.Value, error) {
	now := c.srv.now()
	return protocol.Array(
		protocol.BulkString(strconv.FormatInt(now.Unix(), 10)),
		protocol.BulkString(strconv.Itoa(now.Nanosecond()/1000)),
	), nil
}

// COMMAND [COUNT]
func cmdCommand(c *Context) (protocol.Value, error) {
	names := c.srv.registry.Names(c.srv.version)
	switch {
	case c.argc() == 0:
		return protocol.BulkArray(names), nil
	case c.argc() == 1 && c.is(0, "COUNT"):
		return protocol.Int(int64(len(names))), nil
	default:
		return protocol.Value{}, ErrSyntax
	}
}

// INFO [section]
func cmdInfo(c *Context) (protocol.Value, error) {
	section := "all"
	if c.argc() > 1 {
		return protocol.Value{}, ErrSyntax
	}
	if c.argc() == 1 {
		section = strings.ToLower(c.str(0))
	}
	var sb strings.Builder
	want := func(name string) bool {
		return section == "all" || section == "default" || section == "everything" || section == name
	}
	if want("server") {
		uptime := c.srv.now().Sub(c.srv.startTime)
		sb.WriteString("# Server\r\n")
		fmt.Fprintf(&sb, "redis_version:%d.0.0\r\n", c.srv.version)
		fmt.Fprintf(&sb, "flashsim_version:%s\r\n", version.Version)
		fmt.Fprintf(&sb, "uptime_in_seconds:%d\r\n", int64(uptime/time.Second))
		fmt.Fprintf(&sb, "databases:%d\r\n", c.srv.Databases())
		sb.WriteString("\r\n")
	}
	if want("persistence") {
		sb.WriteString("# Persistence\r\n")
		fmt.Fprintf(&sb, "rdb_changes_since_last_save:%d\r\n", c.srv.Dirty())
		fmt.Fprintf(&sb, "rdb_bgsave_in_progress:%d\r\n", min(c.srv.bgsaving.Load(), 1))
		fmt.Fprintf(&sb, "rdb_last_save_time:%d\r\n", c.srv.LastSave())
		sb.WriteString("\r\n")
	}
	if want("keyspace") {
		sb.WriteString("# Keyspace\r\n")
		for _, ds := range c.srv.dbStats() {
			if ds.Keys > 0 {
				fmt.Fprintf(&sb, "db%d:keys=%d,expires=%d,avg_ttl=0\r\n", ds.Index, ds.Keys, ds.Expires)
			}
		}
	}
	return protocol.BulkString(sb.String()), nil
}
