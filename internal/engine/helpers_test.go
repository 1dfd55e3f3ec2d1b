package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashdb/flashsim/internal/protocol"
	"github.com/flashdb/flashsim/internal/store"
)

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	base := []Option{WithSeed(1), WithExpireInterval(0)}
	srv := NewServer(append(base, opts...)...)
	t.Cleanup(func() { srv.Close() })
	return srv
}

func newTestHandle(t *testing.T, opts ...Option) *Handle {
	t.Helper()
	return newTestServer(t, opts...).NewHandle()
}

func requireOK(t *testing.T, v protocol.Value) {
	t.Helper()
	require.Equal(t, protocol.OK(), v, v.String())
}

func assertErr(t *testing.T, v protocol.Value, msg string) {
	t.Helper()
	assert.True(t, v.IsError(), "expected error %q, got %s", msg, v.String())
	assert.Equal(t, msg, v.Str)
}

func assertWrongType(t *testing.T, v protocol.Value) {
	t.Helper()
	assertErr(t, v, store.ErrWrongType.Error())
}

func members(t *testing.T, h *Handle, key string) []string {
	t.Helper()
	v := h.DoString("SMEMBERS", key)
	require.False(t, v.IsError(), v.String())
	return v.Strings()
}
