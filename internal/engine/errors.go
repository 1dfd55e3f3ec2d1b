package engine

import (
	"errors"
	"fmt"

	"github.com/flashdb/flashsim/internal/protocol"
)

// Error replies. Each message carries the prefix clients match on.
var (
	ErrSyntax          = errors.New("ERR syntax error")
	ErrNotInteger      = errors.New("ERR value is not an integer or out of range")
	ErrNotFloat        = errors.New("ERR value is not a valid float")
	ErrIndexOutOfRange = errors.New("ERR index out of range")
	ErrDBIndex         = errors.New("ERR DB index is out of range")
	ErrInvalidCursor   = errors.New("ERR invalid cursor")
	ErrNegativeLimit   = errors.New("ERR LIMIT can't be negative")
	ErrInvalidFirstDB  = errors.New("ERR invalid first DB index")
	ErrInvalidSecondDB = errors.New("ERR invalid second DB index")
	ErrNotPositive     = errors.New("ERR value is out of range, must be positive")
	ErrInvalidExpire   = &InvalidExpireError{Name: "set"}
	ErrOutOfRange      = errors.New("ERR value is out of range")
	ErrEmptyCommand    = errors.New("ERR empty command")
)

// UnknownCommandError is returned for names missing from the registry and
// for commands newer than the emulated server version.
type UnknownCommandError struct {
	Name string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("ERR unknown command '%s'", e.Name)
}

// ArityError is returned when a command gets the wrong number of arguments.
type ArityError struct {
	Name string
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("ERR wrong number of arguments for '%s' command", e.Name)
}

// InvalidExpireError is returned for a TTL that cannot be represented.
type InvalidExpireError struct {
	Name string
}

func (e *InvalidExpireError) Error() string {
	return fmt.Sprintf("ERR invalid expire time in '%s' command", e.Name)
}

// errorReply renders err as a RESP error.
func errorReply(err error) protocol.Value {
	return protocol.Error(err.Error())
}
