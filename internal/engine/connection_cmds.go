package engine

import (
	"github.com/flashdb/flashsim/internal/protocol"
)

func connectionCommands() []Command {
	return []Command{
		{Name: "ping", Arity: -1, Flags: FlagAdmin, Handler: cmdPing},
		{Name: "echo", Arity: 2, Flags: FlagAdmin, Handler: cmdEcho},
		{Name: "select", Arity: 2, Flags: FlagAdmin, Handler: cmdSelect},
	}
}

func cmdPing(c *Context) (protocol.Value, error) {
	switch c.argc() {
	case 0:
		return protocol.Status("PONG"), nil
	case 1:
		return protocol.Bulk(c.args[0]), nil
	default:
		return protocol.Value{}, &ArityError{Name: c.name}
	}
}

func cmdEcho(c *Context) (protocol.Value, error) {
	return protocol.Bulk(c.args[0]), nil
}

func cmdSelect(c *Context) (protocol.Value, error) {
	i, err := c.int(0)
	if err != nil {
		return protocol.Value{}, err
	}
	if i < 0 || i >= int64(c.srv.Databases()) {
		return protocol.Value{}, ErrDBIndex
	}
	if err := c.handle.Select(int(i)); err != nil {
		return protocol.Value{}, err
	}
	return protocol.OK(), nil
}
