package engine

import (
	"strconv"
	"strings"

	"github.com/flashdb/flashsim/internal/store"
)

// Context carries one command invocation. DB is the handle's selected
// database; it is already locked according to the command's flags.
type Context struct {
	srv    *Server
	handle *Handle
	db     *store.DB
	name   string
	args   [][]byte
}

// Args returns the arguments after the command name.
func (c *Context) Args() [][]byte { return c.args }

func (c *Context) argc() int { return len(c.args) }

func (c *Context) str(i int) string { return string(c.args[i]) }

func (c *Context) strs(from int) []string {
	out := make([]string, 0, len(c.args)-from)
	for _, a := range c.args[from:] {
		out = append(out, string(a))
	}
	return out
}

// is reports whether argument i equals word, ignoring case.
func (c *Context) is(i int, word string) bool {
	return strings.EqualFold(string(c.args[i]), word)
}

func (c *Context) int(i int) (int64, error) {
	return parseInt(c.args[i])
}

func parseInt(b []byte) (int64, error) {
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, ErrNotInteger
	}
	return n, nil
}

func parseFloat(b []byte) (float64, error) {
	s := strings.ToLower(string(b))
	switch s {
	case "+inf", "inf":
		s = "+Inf"
	case "-inf":
		s = "-Inf"
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != f {
		return 0, ErrNotFloat
	}
	return f, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// scanArgs holds the parsed tail of a *SCAN command.
type scanArgs struct {
	cursor  uint64
	pattern string
	count   int
	typ     string
}

// parseScan parses "cursor [MATCH pattern] [COUNT n]" plus "[TYPE t]" when
// allowType is set. args starts at the cursor.
func parseScan(args [][]byte, allowType bool) (scanArgs, error) {
	var sa scanArgs
	cursor, err := strconv.ParseUint(string(args[0]), 10, 64)
	if err != nil {
		return sa, ErrInvalidCursor
	}
	sa.cursor = cursor
	sa.count = store.DefaultScanCount
	for i := 1; i < len(args); i += 2 {
		if i+1 >= len(args) {
			return sa, ErrSyntax
		}
		opt, val := strings.ToUpper(string(args[i])), args[i+1]
		switch {
		case opt == "MATCH":
			sa.pattern = string(val)
		case opt == "COUNT":
			n, err := parseInt(val)
			if err != nil {
				return sa, err
			}
			if n < 1 {
				return sa, ErrSyntax
			}
			sa.count = int(n)
		case opt == "TYPE" && allowType:
			sa.typ = strings.ToLower(string(val))
		default:
			return sa, ErrSyntax
		}
	}
	return sa, nil
}

func formatUint(n uint64) string {
	return strconv.FormatUint(n, 10)
}
