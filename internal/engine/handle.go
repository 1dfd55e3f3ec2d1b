package engine

import (
	"sync/atomic"
	"time"

	"github.com/flashdb/flashsim/internal/protocol"
)

// Handle is one front-end attachment to a Server, the equivalent of a
// client connection. Its only private state is the selected database.
type Handle struct {
	srv *Server
	db  atomic.Int32
}

// Server returns the shared server behind h.
func (h *Handle) Server() *Server { return h.srv }

// DB returns the selected database index.
func (h *Handle) DB() int { return int(h.db.Load()) }

// Select switches h to database i.
func (h *Handle) Select(i int) error {
	if !h.srv.validIndex(i) {
		return ErrDBIndex
	}
	h.db.Store(int32(i))
	return nil
}

// Do runs one command. args[0] is the command name. The reply is an error
// value for every failure; Do itself never fails.
func (h *Handle) Do(args ...[]byte) protocol.Value {
	return h.srv.exec(h, args)
}

// DoString is Do for string arguments.
func (h *Handle) DoString(args ...string) protocol.Value {
	b := make([][]byte, len(args))
	for i, a := range args {
		b[i] = []byte(a)
	}
	return h.Do(b...)
}

func (s *Server) exec(h *Handle, args [][]byte) protocol.Value {
	if len(args) == 0 {
		return errorReply(ErrEmptyCommand)
	}
	s.totalCommands.Add(1)
	start := time.Now()

	cmd, ok := s.registry.Lookup(string(args[0]), s.version)
	if !ok {
		s.metrics.observe("unknown", start, true)
		return errorReply(&UnknownCommandError{Name: string(args[0])})
	}
	if !cmd.checkArity(len(args)) {
		s.metrics.observe(cmd.Name, start, true)
		return errorReply(&ArityError{Name: cmd.Name})
	}

	c := &Context{
		srv:    s,
		handle: h,
		db:     s.dbs[h.DB()],
		name:   cmd.Name,
		args:   args[1:],
	}
	reply := s.run(cmd, c)
	s.metrics.observe(cmd.Name, start, reply.IsError())
	return reply
}

// run calls the handler under the lock its flags ask for.
func (s *Server) run(cmd *Command, c *Context) protocol.Value {
	switch {
	case cmd.Flags&FlagWrite != 0:
		c.db.Lock()
		defer c.db.Unlock()
	case cmd.Flags&FlagRead != 0:
		c.db.RLock()
		defer c.db.RUnlock()
	}
	v, err := cmd.Handler(c)
	if err != nil {
		return errorReply(err)
	}
	return v
}
