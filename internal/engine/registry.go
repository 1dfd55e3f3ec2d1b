package engine

import (
	"sort"
	"strings"
	"sync"

	"github.com/flashdb/flashsim/internal/protocol"
)

// Flag describes how the dispatcher runs a command.
type Flag uint8

const (
	// FlagWrite runs the command under the selected DB's write lock.
	FlagWrite Flag = 1 << iota
	// FlagRead runs the command under the selected DB's read lock.
	FlagRead
	// FlagAdmin runs the command without a DB lock; the handler goes
	// through Server methods that lock what they touch.
	FlagAdmin
)

// HandlerFunc executes one command. Errors become error replies.
type HandlerFunc func(c *Context) (protocol.Value, error)

// Command is one registry entry.
type Command struct {
	Name string
	// Arity follows the Redis convention: positive is exact, negative is a
	// minimum. Both count the command name.
	Arity int
	Flags Flag
	// MinVersion is the first emulated major version that knows the
	// command. Zero means always available.
	MinVersion int
	Handler    HandlerFunc
}

func (c *Command) checkArity(argc int) bool {
	if c.Arity >= 0 {
		return argc == c.Arity
	}
	return argc >= -c.Arity
}

// Registry is the immutable command table.
type Registry struct {
	byName map[string]*Command
	names  []string
}

func newRegistry(groups ...[]Command) *Registry {
	r := &Registry{byName: make(map[string]*Command)}
	for _, group := range groups {
		for i := range group {
			cmd := &group[i]
			if _, dup := r.byName[cmd.Name]; dup {
				panic("engine: duplicate command " + cmd.Name)
			}
			r.byName[cmd.Name] = cmd
			r.names = append(r.names, cmd.Name)
		}
	}
	sort.Strings(r.names)
	return r
}

// Lookup finds a command by case-insensitive name as seen by a server
// emulating the given major version.
func (r *Registry) Lookup(name string, version int) (*Command, bool) {
	cmd, ok := r.byName[strings.ToLower(name)]
	if !ok || cmd.MinVersion > version {
		return nil, false
	}
	return cmd, true
}

// Names returns the commands available at version, sorted.
func (r *Registry) Names(version int) []string {
	out := make([]string, 0, len(r.names))
	for _, n := range r.names {
		if r.byName[n].MinVersion <= version {
			out = append(out, n)
		}
	}
	return out
}

var (
	registryOnce sync.Once
	registry     *Registry
)

// Commands returns the process-wide command table, built on first use.
func Commands() *Registry {
	registryOnce.Do(func() {
		registry = newRegistry(
			connectionCommands(),
			serverCommands(),
			keyCommands(),
			stringCommands(),
			hashCommands(),
			listCommands(),
			setCommands(),
			zsetCommands(),
			hllCommands(),
		)
	})
	return registry
}
