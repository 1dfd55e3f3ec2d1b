// Package server implements the RESP-over-TCP front-end for FlashSim.
//
// Every connection owns one engine.Handle on a shared engine.Server, so
// connections see the same databases while each keeps its own SELECT. The
// front-end answers the connection-scoped commands (AUTH, QUIT, CLIENT,
// HELLO) itself and hands everything else to the engine.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flashdb/flashsim/internal/engine"
	"github.com/flashdb/flashsim/internal/protocol"
	"github.com/flashdb/flashsim/internal/version"
)

// Config holds server configuration.
type Config struct {
	Password   string
	MaxClients int
	Timeout    time.Duration
	LogLevel   string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		MaxClients: 10000,
		LogLevel:   "info",
	}
}

// clientConn represents a client connection with state.
type clientConn struct {
	id            int64
	conn          net.Conn
	handle        *engine.Handle
	addr          string
	name          atomic.Pointer[string]
	authenticated bool
	createdAt     time.Time
	lastCommand   atomic.Int64
	cmdCount      atomic.Int64
}

// Server is the FlashSim TCP server.
type Server struct {
	addr       string
	engine     *engine.Server
	config     Config
	listener   net.Listener
	wg         sync.WaitGroup
	mu         sync.RWMutex
	closed     bool
	nextConnID int64
	clients    map[int64]*clientConn
	totalConns atomic.Int64
}

// New creates a Server for addr backed by e.
func New(addr string, e *engine.Server) *Server {
	return NewWithConfig(addr, e, DefaultConfig())
}

// NewWithConfig creates a Server with the specified configuration.
func NewWithConfig(addr string, e *engine.Server, cfg Config) *Server {
	return &Server{
		addr:    addr,
		engine:  e,
		config:  cfg,
		clients: make(map[int64]*clientConn),
	}
}

// Start listens on the configured address and serves until ctx is
// cancelled or Close is called.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("server: failed to listen: %w", err)
	}
	return s.Serve(ctx, listener)
}

// Serve accepts connections on listener. It blocks until ctx is cancelled
// or Close is called.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		listener.Close()
		return nil
	}
	s.listener = listener
	s.mu.Unlock()

	log.Printf("FlashSim server listening on %s", listener.Addr())
	if s.config.Password != "" {
		log.Printf("Authentication enabled")
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-stop:
		}
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			s.mu.RLock()
			closed := s.closed
			s.mu.RUnlock()
			if closed {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return fmt.Errorf("server: accept: %w", err)
		}

		client, ok := s.register(conn)
		if !ok {
			continue
		}

		s.wg.Add(1)
		go func(c *clientConn) {
			defer s.wg.Done()
			defer s.unregister(c)
			s.handleConnection(ctx, c)
		}(client)
	}
}

func (s *Server) register(conn net.Conn) (*clientConn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		conn.Close()
		return nil, false
	}
	if s.config.MaxClients > 0 && len(s.clients) >= s.config.MaxClients {
		// Best-effort notice; the client may not read it.
		w := protocol.NewWriter(conn)
		w.WriteError("ERR max number of clients reached")
		conn.Close()
		log.Printf("server: max clients reached, rejecting %s", conn.RemoteAddr())
		return nil, false
	}
	s.nextConnID++
	now := time.Now()
	client := &clientConn{
		id:            s.nextConnID,
		conn:          conn,
		handle:        s.engine.NewHandle(),
		addr:          conn.RemoteAddr().String(),
		authenticated: s.config.Password == "",
		createdAt:     now,
	}
	client.lastCommand.Store(now.UnixNano())
	s.clients[client.id] = client
	s.totalConns.Add(1)
	return client, true
}

func (s *Server) unregister(c *clientConn) {
	s.mu.Lock()
	delete(s.clients, c.id)
	s.mu.Unlock()
}

// Addr returns the listening address, or nil before Serve is running.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Clients returns the number of open connections.
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// TotalConnections returns the number of connections accepted so far.
func (s *Server) TotalConnections() int64 {
	return s.totalConns.Load()
}

// Close stops accepting, disconnects every client and waits for their
// goroutines to exit. The engine is left running.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	listener := s.listener
	for _, c := range s.clients {
		c.conn.Close()
	}
	s.mu.Unlock()

	var err error
	if listener != nil {
		err = listener.Close()
	}
	s.wg.Wait()
	return err
}

func (s *Server) debugf(format string, args ...interface{}) {
	if s.config.LogLevel == "debug" {
		log.Printf(format, args...)
	}
}

// handleConnection serves one client until it disconnects or sends QUIT.
// Replies are flushed once the read buffer is drained, so pipelined
// commands go out in a single write.
func (s *Server) handleConnection(ctx context.Context, client *clientConn) {
	defer client.conn.Close()

	reader := protocol.NewReader(client.conn)
	writer := protocol.NewWriter(client.conn)
	writer.SetAutoFlush(false)

	s.debugf("server: client %d connected from %s", client.id, client.addr)
	defer s.debugf("server: client %d disconnected", client.id)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if s.config.Timeout > 0 {
			client.conn.SetReadDeadline(time.Now().Add(s.config.Timeout))
		}

		val, err := reader.ReadValue()
		if err != nil {
			if errors.Is(err, protocol.ErrInvalidProtocol) {
				writer.WriteError("ERR Protocol error: " + err.Error())
				writer.Flush()
			} else if err != io.EOF && !errors.Is(err, net.ErrClosed) && !isTimeout(err) {
				log.Printf("server: failed to read: %v", err)
			}
			return
		}

		if val.Type != protocol.TypeArray || len(val.Array) == 0 {
			writer.WriteError("ERR invalid command format")
		} else {
			client.lastCommand.Store(time.Now().UnixNano())
			client.cmdCount.Add(1)
			quit := s.executeCommand(writer, client, val.Array)
			if quit {
				writer.Flush()
				return
			}
		}

		if reader.Buffered() == 0 {
			if err := writer.Flush(); err != nil {
				return
			}
		}
	}
}

// executeCommand writes the reply to one command and reports whether the
// connection should close.
func (s *Server) executeCommand(w *protocol.Writer, client *clientConn, items []protocol.Value) bool {
	args := make([][]byte, len(items))
	for i, it := range items {
		args[i] = []byte(it.Str)
	}
	cmd := strings.ToUpper(items[0].Str)
	s.debugf("server: client %d: %s (%d args)", client.id, cmd, len(args)-1)

	if !client.authenticated && cmd != "AUTH" && cmd != "QUIT" && cmd != "HELLO" {
		w.WriteError("NOAUTH Authentication required.")
		return false
	}

	switch cmd {
	case "QUIT":
		w.WriteValue(protocol.OK())
		return true
	case "AUTH":
		s.cmdAuth(w, client, args[1:])
	case "HELLO":
		s.cmdHello(w, client, args[1:])
	case "CLIENT":
		s.cmdClient(w, client, args[1:])
	default:
		w.WriteValue(s.dispatch(client, args))
	}
	return false
}

// dispatch runs args on the client's handle. A panicking command is
// reported to that client only.
func (s *Server) dispatch(client *clientConn, args [][]byte) (reply protocol.Value) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("server: panic in %q from client %d: %v", args[0], client.id, r)
			reply = protocol.Error("ERR internal error")
		}
	}()
	return client.handle.Do(args...)
}

var (
	errNoPassword = errors.New("ERR AUTH <password> called without any password configured for the default user. Are you sure your configuration is correct?")
	errWrongPass  = errors.New("WRONGPASS invalid username-password pair or user is disabled.")
)

// authenticate checks [username] password against the configured password.
func (s *Server) authenticate(client *clientConn, args [][]byte) error {
	if s.config.Password == "" {
		return errNoPassword
	}
	if len(args) == 2 && string(args[0]) != "default" {
		return errWrongPass
	}
	if string(args[len(args)-1]) != s.config.Password {
		return errWrongPass
	}
	client.authenticated = true
	return nil
}

// AUTH [username] password
func (s *Server) cmdAuth(w *protocol.Writer, client *clientConn, args [][]byte) {
	if len(args) < 1 || len(args) > 2 {
		w.WriteError("ERR wrong number of arguments for 'auth' command")
		return
	}
	if err := s.authenticate(client, args); err != nil {
		w.WriteError(err.Error())
		return
	}
	w.WriteValue(protocol.OK())
}

// HELLO [protover [AUTH username password] [SETNAME name]]
//
// Only protocol version 2 is spoken, which lets RESP3 clients fall back.
func (s *Server) cmdHello(w *protocol.Writer, client *clientConn, args [][]byte) {
	if len(args) > 0 && string(args[0]) != "2" {
		w.WriteError("NOPROTO unsupported protocol version")
		return
	}
	for i := 1; i < len(args); i++ {
		switch {
		case strings.EqualFold(string(args[i]), "AUTH") && i+2 < len(args):
			if err := s.authenticate(client, args[i+1:i+3]); err != nil {
				w.WriteError(err.Error())
				return
			}
			i += 2
		case strings.EqualFold(string(args[i]), "SETNAME") && i+1 < len(args):
			client.setName(string(args[i+1]))
			i++
		default:
			w.WriteError("ERR syntax error")
			return
		}
	}
	if !client.authenticated {
		w.WriteError("NOAUTH HELLO must be called with the client already authenticated, otherwise the HELLO <proto> AUTH <user> <pass> option can be used to authenticate the client and select the RESP protocol version at the same time")
		return
	}
	w.WriteValue(protocol.Array(
		protocol.BulkString("server"), protocol.BulkString("flashsim"),
		protocol.BulkString("version"), protocol.BulkString(version.Version),
		protocol.BulkString("proto"), protocol.Int(2),
		protocol.BulkString("id"), protocol.Int(client.id),
		protocol.BulkString("mode"), protocol.BulkString("standalone"),
	))
}

// CLIENT LIST | ID | INFO | GETNAME | SETNAME name | SETINFO attr value
func (s *Server) cmdClient(w *protocol.Writer, client *clientConn, args [][]byte) {
	if len(args) == 0 {
		w.WriteError("ERR wrong number of arguments for 'client' command")
		return
	}

	subCmd := strings.ToUpper(string(args[0]))
	switch subCmd {
	case "LIST":
		s.mu.RLock()
		var sb strings.Builder
		for _, c := range s.clients {
			sb.WriteString(c.info())
			sb.WriteByte('\n')
		}
		s.mu.RUnlock()
		w.WriteValue(protocol.BulkString(sb.String()))
	case "ID":
		w.WriteValue(protocol.Int(client.id))
	case "INFO":
		w.WriteValue(protocol.BulkString(client.info() + "\n"))
	case "GETNAME":
		name := client.getName()
		if name == "" {
			w.WriteValue(protocol.NullBulk())
			return
		}
		w.WriteValue(protocol.BulkString(name))
	case "SETNAME":
		if len(args) != 2 {
			w.WriteError("ERR wrong number of arguments for 'client|setname' command")
			return
		}
		client.setName(string(args[1]))
		w.WriteValue(protocol.OK())
	case "SETINFO":
		if len(args) != 3 {
			w.WriteError("ERR wrong number of arguments for 'client|setinfo' command")
			return
		}
		w.WriteValue(protocol.OK())
	default:
		w.WriteError(fmt.Sprintf("ERR unknown subcommand '%s'. Try CLIENT HELP.", args[0]))
	}
}

func (c *clientConn) setName(name string) { c.name.Store(&name) }

func (c *clientConn) getName() string {
	if p := c.name.Load(); p != nil {
		return *p
	}
	return ""
}

func (c *clientConn) info() string {
	now := time.Now()
	age := int64(now.Sub(c.createdAt) / time.Second)
	idle := int64(now.Sub(time.Unix(0, c.lastCommand.Load())) / time.Second)
	return fmt.Sprintf("id=%d addr=%s name=%s age=%d idle=%d db=%d cmd=%d",
		c.id, c.addr, c.getName(), age, idle, c.handle.DB(), c.cmdCount.Load())
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
