package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashdb/flashsim/internal/protocol"
)

func TestPF_AddCountMerge(t *testing.T) {
	h := newTestHandle(t)

	assert.Equal(t, protocol.Int(1), h.DoString("PFADD", "h1", "a", "b", "c"))
	assert.Equal(t, protocol.Int(0), h.DoString("PFADD", "h1", "a"))
	assert.Equal(t, protocol.Int(1), h.DoString("PFADD", "h1", "a", "d"))
	assert.Equal(t, protocol.Int(4), h.DoString("PFCOUNT", "h1"))

	h.DoString("PFADD", "h2", "d", "e")
	assert.Equal(t, protocol.Int(5), h.DoString("PFCOUNT", "h1", "h2"))
	assert.Equal(t, protocol.Int(0), h.DoString("PFCOUNT", "missing"))

	requireOK(t, h.DoString("PFMERGE", "merged", "h1", "h2"))
	assert.Equal(t, protocol.Int(5), h.DoString("PFCOUNT", "merged"))
	assert.Equal(t, protocol.Status("set"), h.DoString("TYPE", "merged"))
}

func TestPF_MergeOverwritesDestination(t *testing.T) {
	h := newTestHandle(t)
	h.DoString("PFADD", "dst", "old")
	h.DoString("PFADD", "src", "new")
	requireOK(t, h.DoString("PFMERGE", "dst", "src"))
	assert.Equal(t, []string{"new"}, members(t, h, "dst"))
}

func TestPF_EdgeCases(t *testing.T) {
	h := newTestHandle(t)
	assert.Equal(t, protocol.Int(0), h.DoString("PFADD", "k"))
	assert.Equal(t, protocol.Int(0), h.DoString("EXISTS", "k"))
	requireOK(t, h.DoString("PFMERGE", "k"))
	assert.Equal(t, protocol.Int(0), h.DoString("EXISTS", "k"))

	h.DoString("SET", "str", "v")
	assertWrongType(t, h.DoString("PFADD", "str"))
	assertWrongType(t, h.DoString("PFMERGE", "str"))
}

func TestKeys_DelExistsType(t *testing.T) {
	h := newTestHandle(t)
	fill(h, "s", "a")
	h.DoString("SET", "str", "v")
	h.DoString("HSET", "h", "f", "v")
	h.DoString("RPUSH", "l", "x")
	h.DoString("ZADD", "z", "1", "m")

	for key, kind := range map[string]string{"s": "set", "str": "string", "h": "hash", "l": "list", "z": "zset", "nope": "none"} {
		assert.Equal(t, protocol.Status(kind), h.DoString("TYPE", key), key)
	}
	assert.Equal(t, protocol.Int(3), h.DoString("EXISTS", "s", "s", "str"))
	assert.Equal(t, protocol.Int(2), h.DoString("DEL", "s", "str", "nope"))
	assert.Equal(t, protocol.Int(3), h.DoString("DBSIZE"))
}

func TestKeys_Expiry(t *testing.T) {
	clock := &testClock{t: time.Unix(1700000000, 0)}
	h := newTestHandle(t, WithClock(clock.Now))
	fill(h, "k", "a")

	assert.Equal(t, protocol.Int(-1), h.DoString("TTL", "k"))
	assert.Equal(t, protocol.Int(-2), h.DoString("TTL", "missing"))
	assert.Equal(t, protocol.Int(1), h.DoString("EXPIRE", "k", "10"))
	assert.Equal(t, protocol.Int(10), h.DoString("TTL", "k"))
	assert.Equal(t, protocol.Int(10000), h.DoString("PTTL", "k"))
	assert.Equal(t, protocol.Int(0), h.DoString("EXPIRE", "missing", "10"))

	assert.Equal(t, protocol.Int(1), h.DoString("PERSIST", "k"))
	assert.Equal(t, protocol.Int(0), h.DoString("PERSIST", "k"))
	assert.Equal(t, protocol.Int(1), h.DoString("PEXPIRE", "k", "1500"))

	clock.Advance(1500 * time.Millisecond)
	assert.Equal(t, protocol.Int(0), h.DoString("SCARD", "k"))
	assert.Equal(t, protocol.Int(0), h.DoString("DBSIZE"))
	assert.Equal(t, protocol.Int(1), h.DoString("SADD", "k", "fresh"))
	assert.Equal(t, protocol.Int(-1), h.DoString("TTL", "k"))

	assertErr(t, h.DoString("EXPIRE", "k", "soon"), "ERR value is not an integer or out of range")

	assertErr(t, h.DoString("EXPIRE", "k", "9223372036854775807"), "ERR invalid expire time in 'expire' command")
	assertErr(t, h.DoString("PEXPIRE", "k", "-9223372036854775808"), "ERR invalid expire time in 'pexpire' command")
	assert.Equal(t, protocol.Int(1), h.DoString("EXISTS", "k"))
	assert.Equal(t, protocol.Int(-1), h.DoString("TTL", "k"))

	// The largest accepted deadline still reports a sane TTL.
	assert.Equal(t, protocol.Int(1), h.DoString("PEXPIRE", "k", "9223372036854"))
	assert.Equal(t, protocol.Int(9223372036854), h.DoString("PTTL", "k"))
	assert.Equal(t, protocol.Int(9223372037), h.DoString("TTL", "k"))
}

func TestKeys_KeysAndScan(t *testing.T) {
	h := newTestHandle(t)
	fill(h, "user:1", "a")
	fill(h, "user:2", "a")
	h.DoString("SET", "user:3", "v")
	h.DoString("SET", "order:1", "v")

	assert.Equal(t, []string{"user:1", "user:2", "user:3"}, h.DoString("KEYS", "user:*").Strings())

	var got []string
	cursor := "0"
	for {
		reply := h.DoString("SCAN", cursor, "MATCH", "user:*", "COUNT", "1", "TYPE", "set")
		require.False(t, reply.IsError(), reply.String())
		cursor = reply.Array[0].Str
		got = append(got, reply.Array[1].Strings()...)
		if cursor == "0" {
			break
		}
	}
	assert.ElementsMatch(t, []string{"user:1", "user:2"}, got)
}

func TestKeys_RandomKey(t *testing.T) {
	h := newTestHandle(t)
	assert.Equal(t, protocol.NullBulk(), h.DoString("RANDOMKEY"))
	fill(h, "only", "x")
	assert.Equal(t, protocol.BulkString("only"), h.DoString("RANDOMKEY"))
}

func TestString_SetGet(t *testing.T) {
	h := newTestHandle(t)
	assert.Equal(t, protocol.NullBulk(), h.DoString("GET", "k"))
	requireOK(t, h.DoString("SET", "k", "v"))
	assert.Equal(t, protocol.BulkString("v"), h.DoString("GET", "k"))

	fill(h, "s", "a")
	assertWrongType(t, h.DoString("GET", "s"))
	requireOK(t, h.DoString("SET", "s", "replaced"))
	assert.Equal(t, protocol.BulkString("replaced"), h.DoString("GET", "s"))

	assertErr(t, h.DoString("SET", "k", "v", "EX", "0"), "ERR invalid expire time in 'set' command")
	assertErr(t, h.DoString("SET", "k", "v", "NX"), "ERR syntax error")
}

func TestHash_Commands(t *testing.T) {
	h := newTestHandle(t)
	assert.Equal(t, protocol.Int(2), h.DoString("HSET", "h", "a", "1", "b", "2"))
	assert.Equal(t, protocol.Int(0), h.DoString("HSET", "h", "a", "3"))
	assert.Equal(t, protocol.BulkString("3"), h.DoString("HGET", "h", "a"))
	assert.Equal(t, protocol.NullBulk(), h.DoString("HGET", "h", "zz"))
	assert.Equal(t, protocol.Int(2), h.DoString("HLEN", "h"))
	assert.Equal(t, []string{"a", "3", "b", "2"}, h.DoString("HGETALL", "h").Strings())

	reply := h.DoString("HSCAN", "h", "0", "MATCH", "a")
	assert.Equal(t, "0", reply.Array[0].Str)
	assert.Equal(t, []string{"a", "3"}, reply.Array[1].Strings())

	assert.Equal(t, protocol.Int(2), h.DoString("HDEL", "h", "a", "b", "c"))
	assert.Equal(t, protocol.Int(0), h.DoString("EXISTS", "h"))
	assertErr(t, h.DoString("HSET", "h", "a"), "ERR wrong number of arguments for 'hset' command")

	fill(h, "s", "x")
	assertWrongType(t, h.DoString("HSET", "s", "f", "v"))
}

func TestList_Commands(t *testing.T) {
	h := newTestHandle(t)
	assert.Equal(t, protocol.Int(2), h.DoString("RPUSH", "l", "a", "b"))
	assert.Equal(t, protocol.Int(4), h.DoString("LPUSH", "l", "y", "z"))
	assert.Equal(t, []string{"z", "y", "a", "b"}, h.DoString("LRANGE", "l", "0", "-1").Strings())
	assert.Equal(t, protocol.Int(4), h.DoString("LLEN", "l"))

	assert.Equal(t, protocol.BulkString("z"), h.DoString("LPOP", "l"))
	assert.Equal(t, []string{"b", "a"}, h.DoString("RPOP", "l", "2").Strings())
	assert.Equal(t, []string{"y"}, h.DoString("LPOP", "l", "5").Strings())
	assert.Equal(t, protocol.Int(0), h.DoString("EXISTS", "l"))
	assert.Equal(t, protocol.NullBulk(), h.DoString("LPOP", "l"))
	assert.Equal(t, protocol.NullArray(), h.DoString("LPOP", "l", "1"))
	assertErr(t, h.DoString("LPOP", "l", "-1"), "ERR value is out of range, must be positive")
}

func TestZSet_Commands(t *testing.T) {
	h := newTestHandle(t)
	assert.Equal(t, protocol.Int(3), h.DoString("ZADD", "z", "2", "b", "1", "a", "3", "c"))
	assert.Equal(t, protocol.Int(0), h.DoString("ZADD", "z", "1.5", "c"))
	assert.Equal(t, protocol.BulkString("1.5"), h.DoString("ZSCORE", "z", "c"))
	assert.Equal(t, protocol.Int(3), h.DoString("ZCARD", "z"))
	assert.Equal(t, []string{"a", "c", "b"}, h.DoString("ZRANGE", "z", "0", "-1").Strings())
	assert.Equal(t, []string{"a", "1", "c", "1.5"}, h.DoString("ZRANGE", "z", "0", "1", "WITHSCORES").Strings())

	reply := h.DoString("ZSCAN", "z", "0", "MATCH", "b")
	assert.Equal(t, []string{"b", "2"}, reply.Array[1].Strings())

	assert.Equal(t, protocol.Int(3), h.DoString("ZREM", "z", "a", "b", "c"))
	assert.Equal(t, protocol.Int(0), h.DoString("EXISTS", "z"))
	assertErr(t, h.DoString("ZADD", "z", "nan-ish", "m"), "ERR value is not a valid float")
	assertErr(t, h.DoString("ZADD", "z", "1", "m", "2"), "ERR syntax error")
}

func TestDispatch_Errors(t *testing.T) {
	h := newTestHandle(t)
	assertErr(t, h.Do(), "ERR empty command")
	assertErr(t, h.DoString("NOPE"), "ERR unknown command 'NOPE'")
	assertErr(t, h.DoString("SADD", "k"), "ERR wrong number of arguments for 'sadd' command")
	assertErr(t, h.DoString("SCARD"), "ERR wrong number of arguments for 'scard' command")
	assertErr(t, h.DoString("SCARD", "a", "b"), "ERR wrong number of arguments for 'scard' command")
}

func TestServerCommands_Misc(t *testing.T) {
	h := newTestHandle(t)
	assert.Equal(t, protocol.Status("PONG"), h.DoString("PING"))
	assert.Equal(t, protocol.BulkString("hi"), h.DoString("PING", "hi"))
	assert.Equal(t, protocol.BulkString("hi"), h.DoString("ECHO", "hi"))

	count := h.DoString("COMMAND", "COUNT")
	assert.Equal(t, int64(len(Commands().Names(DefaultVersion))), count.Num)
	assert.Contains(t, h.DoString("COMMAND").Strings(), "sintercard")

	tm := h.DoString("TIME")
	require.Len(t, tm.Array, 2)

	fill(h, "k", "a")
	info := h.DoString("INFO").Str
	assert.Contains(t, info, "redis_version:7.0.0")
	assert.Contains(t, info, "db0:keys=1,expires=0,avg_ttl=0")
	persistence := h.DoString("INFO", "persistence").Str
	assert.True(t, strings.HasPrefix(persistence, "# Persistence"))
	assert.NotContains(t, persistence, "# Keyspace")
}

func TestRegistry_VersionGate(t *testing.T) {
	r := Commands()
	_, ok := r.Lookup("SINTERCARD", 7)
	assert.True(t, ok)
	_, ok = r.Lookup("sintercard", 6)
	assert.False(t, ok)
	assert.NotContains(t, r.Names(6), "sintercard")

	cmd, ok := r.Lookup("SAdd", 6)
	require.True(t, ok)
	assert.True(t, cmd.checkArity(3))
	assert.False(t, cmd.checkArity(2))
}

func TestMetrics_CountCommands(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := newTestHandle(t, WithRegisterer(reg))
	fill(h, "k", "a")
	fill(h, "k", "b")
	h.DoString("SET", "str", "v")
	h.DoString("SADD", "str", "x")
	h.DoString("BOGUS")

	srv := h.Server()
	assert.Equal(t, 3.0, testutil.ToFloat64(srv.metrics.commands.WithLabelValues("sadd")))
	assert.Equal(t, 1.0, testutil.ToFloat64(srv.metrics.errors.WithLabelValues("sadd")))
	assert.Equal(t, 1.0, testutil.ToFloat64(srv.metrics.errors.WithLabelValues("unknown")))

	expected := `
# HELP flashsim_changes_since_last_save Keyspace changes since the last SAVE or BGSAVE.
# TYPE flashsim_changes_since_last_save gauge
flashsim_changes_since_last_save 3
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "flashsim_changes_since_last_save"))
}
