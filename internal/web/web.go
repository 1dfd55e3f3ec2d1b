// Package web provides the HTTP admin interface for FlashSim.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flashdb/flashsim/internal/cdc"
	"github.com/flashdb/flashsim/internal/engine"
	"github.com/flashdb/flashsim/internal/hotkeys"
	"github.com/flashdb/flashsim/internal/protocol"
	"github.com/flashdb/flashsim/internal/version"
)

// Server represents the web server for the FlashSim admin interface.
type Server struct {
	addr     string
	engine   *engine.Server
	gatherer prometheus.Gatherer
	server   *http.Server
}

const apiVersionPath = "/api/v1"

// New creates a new web server. /metrics is served only when gatherer is
// non-nil.
func New(addr string, e *engine.Server, gatherer prometheus.Gatherer) *Server {
	return &Server{
		addr:     addr,
		engine:   e,
		gatherer: gatherer,
	}
}

// CommandRequest represents a command execution request. Command may hold
// the whole command line when Args is empty.
type CommandRequest struct {
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
	DB      int      `json:"db,omitempty"`
}

// CommandResponse represents a command execution response.
type CommandResponse struct {
	Success bool        `json:"success"`
	Result  interface{} `json:"result,omitempty"`
	Error   string      `json:"error,omitempty"`
	Type    string      `json:"type,omitempty"`
}

// StatsResponse represents server statistics.
type StatsResponse struct {
	Version      string       `json:"version"`
	Uptime       int64        `json:"uptime"`
	UptimeHuman  string       `json:"uptime_human"`
	MemoryUsed   uint64       `json:"memory_used"`
	MemoryUsedMB float64      `json:"memory_used_mb"`
	GoRoutines   int          `json:"goroutines"`
	CPUs         int          `json:"cpus"`
	Engine       engine.Stats `json:"engine"`
	Events       cdc.Stats    `json:"events"`
}

// KeyInfo represents information about a key.
type KeyInfo struct {
	Key   string      `json:"key"`
	Type  string      `json:"type"`
	TTL   int64       `json:"ttl"`
	Value interface{} `json:"value,omitempty"`
}

// Start starts the web server. It blocks until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           corsMiddleware(s.routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc(apiVersionPath+"/execute", s.handleExecute)
	mux.HandleFunc(apiVersionPath+"/stats", s.handleStats)
	mux.HandleFunc(apiVersionPath+"/keys", s.handleKeys)
	mux.HandleFunc(apiVersionPath+"/key/", s.handleKey)
	mux.HandleFunc(apiVersionPath+"/hotkeys", s.handleHotKeys)
	mux.HandleFunc(apiVersionPath+"/events", s.handleEvents)
	mux.HandleFunc(apiVersionPath+"/benchmark", s.handleBenchmark)

	// Health endpoints
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc(apiVersionPath+"/healthz", s.handleHealth)
	mux.HandleFunc(apiVersionPath+"/readyz", s.handleReady)

	if s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// corsMiddleware adds CORS headers.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handle returns a fresh handle on database db.
func (s *Server) handle(db int) (*engine.Handle, error) {
	h := s.engine.NewHandle()
	if err := h.Select(db); err != nil {
		return nil, err
	}
	return h, nil
}

// dbParam reads the db query parameter, defaulting to 0.
func dbParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("db")
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// handleExecute runs one command on a short-lived handle.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONWithStatus(w, http.StatusBadRequest, CommandResponse{Error: "Invalid request"})
		return
	}

	parts := append([]string{strings.TrimSpace(req.Command)}, req.Args...)
	if len(req.Args) == 0 {
		parts = parseCommand(req.Command)
	}
	if len(parts) == 0 || parts[0] == "" {
		writeJSONWithStatus(w, http.StatusBadRequest, CommandResponse{Error: "Empty command"})
		return
	}

	h, err := s.handle(req.DB)
	if err != nil {
		writeJSON(w, CommandResponse{Error: err.Error()})
		return
	}

	reply := h.DoString(parts...)
	if reply.IsError() {
		writeJSON(w, CommandResponse{Error: reply.Str, Type: replyType(reply)})
		return
	}
	writeJSON(w, CommandResponse{Success: true, Result: reply.Interface(), Type: replyType(reply)})
}

func replyType(v protocol.Value) string {
	switch v.Type {
	case protocol.TypeSimpleString:
		return "status"
	case protocol.TypeError:
		return "error"
	case protocol.TypeInteger:
		return "integer"
	case protocol.TypeBulkString:
		if v.Null {
			return "nil"
		}
		return "bulk"
	case protocol.TypeArray:
		if v.Null {
			return "nil"
		}
		return "array"
	default:
		return "unknown"
	}
}

// handleStats returns server statistics.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	st := s.engine.Stats()
	uptime := time.Since(st.StartTime)

	writeJSON(w, StatsResponse{
		Version:      version.Version,
		Uptime:       int64(uptime.Seconds()),
		UptimeHuman:  formatDuration(uptime),
		MemoryUsed:   m.Alloc,
		MemoryUsedMB: float64(m.Alloc) / 1024 / 1024,
		GoRoutines:   runtime.NumGoroutine(),
		CPUs:         runtime.NumCPU(),
		Engine:       st,
		Events:       s.engine.Events().Stats(),
	})
}

// handleKeys lists keys of one database with optional pattern filtering.
func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	db, err := dbParam(r)
	if err != nil {
		http.Error(w, "Invalid db", http.StatusBadRequest)
		return
	}
	h, err := s.handle(db)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	pattern := r.URL.Query().Get("pattern")
	if pattern == "" {
		pattern = "*"
	}
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	keys := h.DoString("KEYS", pattern).Strings()
	total := len(keys)
	if len(keys) > limit {
		keys = keys[:limit]
	}

	infos := make([]KeyInfo, len(keys))
	for i, key := range keys {
		infos[i] = KeyInfo{
			Key:  key,
			Type: h.DoString("TYPE", key).Str,
			TTL:  h.DoString("TTL", key).Num,
		}
	}

	writeJSON(w, map[string]interface{}{
		"db":    db,
		"keys":  infos,
		"total": total,
	})
}

// readCommands maps a key type to the command that reads its whole value.
var readCommands = map[string][]string{
	"string": {"GET"},
	"set":    {"SMEMBERS"},
	"hash":   {"HGETALL"},
	"list":   {"LRANGE", "0", "-1"},
	"zset":   {"ZRANGE", "0", "-1", "WITHSCORES"},
}

// handleKey reads or deletes a single key.
func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, apiVersionPath+"/key/")
	if key == "" {
		http.Error(w, "Key required", http.StatusBadRequest)
		return
	}
	db, err := dbParam(r)
	if err != nil {
		http.Error(w, "Invalid db", http.StatusBadRequest)
		return
	}
	h, err := s.handle(db)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		typ := h.DoString("TYPE", key).Str
		read, ok := readCommands[typ]
		if !ok {
			http.Error(w, "Key not found", http.StatusNotFound)
			return
		}
		args := append([]string{read[0], key}, read[1:]...)
		writeJSON(w, KeyInfo{
			Key:   key,
			Type:  typ,
			TTL:   h.DoString("TTL", key).Num,
			Value: h.DoString(args...).Interface(),
		})

	case http.MethodDelete:
		deleted := h.DoString("DEL", key).Num
		writeJSON(w, map[string]interface{}{"success": true, "deleted": deleted})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleHotKeys returns the most frequently written keys.
func (s *Server) handleHotKeys(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	n := 10
	if v := r.URL.Query().Get("n"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			n = parsed
		}
	}
	top := s.engine.HotKeys(n)
	if top == nil {
		top = []hotkeys.Entry{}
	}
	writeJSON(w, map[string]interface{}{"hotkeys": top})
}

// handleEvents returns keyspace change events. With since, only events
// after that ID are returned; otherwise the latest limit events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	stream := s.engine.Events()

	var events []cdc.Event
	if since := q.Get("since"); since != "" {
		id, err := strconv.ParseUint(since, 10, 64)
		if err != nil {
			http.Error(w, "Invalid since", http.StatusBadRequest)
			return
		}
		events = stream.Since(id)
	} else {
		limit := 100
		if l := q.Get("limit"); l != "" {
			if n, err := strconv.Atoi(l); err == nil && n > 0 {
				limit = n
			}
		}
		events = stream.Latest(limit)
	}
	writeJSON(w, map[string]interface{}{
		"events": events,
		"stats":  stream.Stats(),
	})
}

// handleBenchmark runs the built-in set benchmark.
func (s *Server) handleBenchmark(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	n := 10000
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 || parsed > 1000000 {
			http.Error(w, "Invalid n", http.StatusBadRequest)
			return
		}
		n = parsed
	}
	db, err := dbParam(r)
	if err != nil {
		http.Error(w, "Invalid db", http.StatusBadRequest)
		return
	}
	res, err := s.engine.RunBenchmark(db, n)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, res)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ready := s.engine != nil
	statusCode := http.StatusOK
	status := "ready"
	if !ready {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}
	writeJSONWithStatus(w, statusCode, map[string]interface{}{
		"status": status,
		"ready":  ready,
	})
}

// parseCommand parses a command string into parts, handling quoted strings.
func parseCommand(input string) []string {
	var parts []string
	var current strings.Builder
	inQuote := false
	quoteChar := byte(0)

	for i := 0; i < len(input); i++ {
		c := input[i]
		if inQuote {
			if c == quoteChar {
				inQuote = false
			} else {
				current.WriteByte(c)
			}
		} else if c == '"' || c == '\'' {
			inQuote = true
			quoteChar = c
		} else if c == ' ' {
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		} else {
			current.WriteByte(c)
		}
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}) {
	writeJSONWithStatus(w, http.StatusOK, data)
}

func writeJSONWithStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// formatDuration formats a duration as human-readable string.
func formatDuration(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60
	secs := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, mins, secs)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, mins, secs)
	}
	if mins > 0 {
		return fmt.Sprintf("%dm %ds", mins, secs)
	}
	return fmt.Sprintf("%ds", secs)
}
