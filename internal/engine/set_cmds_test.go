package engine

import (
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashdb/flashsim/internal/protocol"
)

func TestSet_BasicOperations(t *testing.T) {
	h := newTestHandle(t)

	assert.Equal(t, protocol.Int(3), h.DoString("SADD", "k", "a", "b", "c"))
	assert.Equal(t, protocol.Int(1), h.DoString("SADD", "k", "c", "d"))
	assert.Equal(t, protocol.Int(4), h.DoString("SCARD", "k"))
	assert.Equal(t, protocol.Int(2), h.DoString("SREM", "k", "a", "b"))
	assert.Equal(t, []string{"c", "d"}, members(t, h, "k"))
}

func TestSet_RemovingLastMemberDeletesKey(t *testing.T) {
	h := newTestHandle(t)
	h.DoString("SADD", "k", "a")
	assert.Equal(t, protocol.Int(1), h.DoString("SREM", "k", "a"))
	assert.Equal(t, protocol.Int(0), h.DoString("EXISTS", "k"))
	assert.Equal(t, protocol.Status("none"), h.DoString("TYPE", "k"))
	assert.Equal(t, protocol.Int(0), h.DoString("SREM", "k", "a"))

	// Absent and emptied keys accept any type afterwards.
	requireOK(t, h.DoString("SET", "k", "v"))
}

func TestSet_WrongType(t *testing.T) {
	h := newTestHandle(t)
	requireOK(t, h.DoString("SET", "str", "v"))

	for _, cmd := range [][]string{
		{"SADD", "str", "a"},
		{"SCARD", "str"},
		{"SREM", "str", "a"},
		{"SISMEMBER", "str", "a"},
		{"SMISMEMBER", "str", "a"},
		{"SMEMBERS", "str"},
		{"SPOP", "str"},
		{"SRANDMEMBER", "str"},
		{"SSCAN", "str", "0"},
		{"SMOVE", "str", "dst", "a"},
		{"SINTER", "missing", "str"},
		{"SUNION", "missing", "str"},
		{"SDIFF", "missing", "str"},
		{"SINTERSTORE", "dst", "missing", "str"},
		{"SINTERCARD", "2", "missing", "str"},
		{"PFADD", "str", "a"},
		{"PFCOUNT", "str"},
		{"PFMERGE", "dst", "str"},
	} {
		t.Run(cmd[0], func(t *testing.T) {
			assertWrongType(t, h.DoString(cmd...))
		})
	}
	assert.Equal(t, protocol.BulkString("v"), h.DoString("GET", "str"))
	assert.Equal(t, protocol.Int(0), h.DoString("EXISTS", "dst"))
}

func TestSet_SMoveChecksDestinationType(t *testing.T) {
	h := newTestHandle(t)
	h.DoString("SADD", "src", "a")
	h.DoString("SET", "str", "v")

	assertWrongType(t, h.DoString("SMOVE", "src", "str", "a"))
	assert.Equal(t, []string{"a"}, members(t, h, "src"))
}

func TestSet_SMove(t *testing.T) {
	h := newTestHandle(t)
	h.DoString("SADD", "src", "a", "b")

	assert.Equal(t, protocol.Int(0), h.DoString("SMOVE", "src", "dst", "zz"))
	assert.Equal(t, protocol.Int(1), h.DoString("SMOVE", "src", "dst", "a"))
	assert.Equal(t, []string{"b"}, members(t, h, "src"))
	assert.Equal(t, []string{"a"}, members(t, h, "dst"))

	assert.Equal(t, protocol.Int(1), h.DoString("SMOVE", "src", "src", "b"))
	assert.Equal(t, protocol.Int(1), h.DoString("SMOVE", "src", "dst", "b"))
	assert.Equal(t, protocol.Int(0), h.DoString("EXISTS", "src"))
	assert.Equal(t, []string{"a", "b"}, members(t, h, "dst"))
}

func TestSet_SIsMemberAndSMIsMember(t *testing.T) {
	h := newTestHandle(t)
	h.DoString("SADD", "k", "a")
	assert.Equal(t, protocol.Int(1), h.DoString("SISMEMBER", "k", "a"))
	assert.Equal(t, protocol.Int(0), h.DoString("SISMEMBER", "k", "b"))
	assert.Equal(t, protocol.Int(0), h.DoString("SISMEMBER", "missing", "a"))
	assert.Equal(t,
		protocol.Array(protocol.Int(1), protocol.Int(0), protocol.Int(1)),
		h.DoString("SMISMEMBER", "k", "a", "b", "a"))
}

func fill(h *Handle, key string, members ...string) {
	args := append([]string{"SADD", key}, members...)
	h.DoString(args...)
}

func TestSet_AlgebraProperties(t *testing.T) {
	h := newTestHandle(t)
	fill(h, "A", "1", "2", "3", "4", "5")
	fill(h, "B", "4", "5", "6")

	diff := h.DoString("SDIFF", "A", "B").Strings()
	inter := h.DoString("SINTER", "A", "B").Strings()
	union := h.DoString("SUNION", "A", "B").Strings()

	assert.Equal(t, []string{"1", "2", "3"}, diff)
	assert.Equal(t, []string{"4", "5"}, inter)
	assert.Equal(t, 5, len(diff)+len(inter))
	assert.GreaterOrEqual(t, len(union), 5)
	assert.LessOrEqual(t, len(union), 8)
}

func TestSet_IntersectionWithMissingIsEmpty(t *testing.T) {
	h := newTestHandle(t)
	fill(h, "A", "x", "y")
	fill(h, "B", "x", "y")

	for _, keys := range [][]string{
		{"A", "missing", "B"},
		{"missing", "A", "B"},
		{"A", "B", "missing"},
	} {
		args := append([]string{"SINTER"}, keys...)
		assert.Empty(t, h.DoString(args...).Array, keys)
	}
}

func TestSet_StoreMatchesReturnMode(t *testing.T) {
	h := newTestHandle(t)
	fill(h, "k1", "a", "b", "c")
	fill(h, "k2", "b")
	fill(h, "k3", "c", "z")

	for _, op := range []string{"SDIFF", "SINTER", "SUNION"} {
		want := h.DoString(op, "k1", "k2", "k3").Strings()
		dst := "dst-" + op
		stored := h.DoString(op+"STORE", dst, "k1", "k2", "k3")
		assert.Equal(t, protocol.Int(int64(len(want))), stored, op)
		if len(want) == 0 {
			assert.Equal(t, protocol.Int(0), h.DoString("EXISTS", dst), op)
			continue
		}
		assert.Equal(t, want, members(t, h, dst), op)
	}
}

func TestSet_SDiffStoreOverwrites(t *testing.T) {
	h := newTestHandle(t)
	fill(h, "k1", "a", "b", "c")
	fill(h, "k2", "b")

	assert.Equal(t, protocol.Int(2), h.DoString("SDIFFSTORE", "dst", "k1", "k2"))
	assert.Equal(t, []string{"a", "c"}, members(t, h, "dst"))
}

func TestSet_StoreOverwritesAndClearsExpiry(t *testing.T) {
	h := newTestHandle(t)
	fill(h, "src", "a")
	h.DoString("SET", "dst", "v", "EX", "100")

	assert.Equal(t, protocol.Int(1), h.DoString("SUNIONSTORE", "dst", "src"))
	assert.Equal(t, protocol.Status("set"), h.DoString("TYPE", "dst"))
	assert.Equal(t, protocol.Int(-1), h.DoString("TTL", "dst"))
}

func TestSet_EmptyStoreResultDeletesDestination(t *testing.T) {
	h := newTestHandle(t)
	fill(h, "dst", "old")
	fill(h, "a", "1")

	assert.Equal(t, protocol.Int(0), h.DoString("SINTERSTORE", "dst", "a", "missing"))
	assert.Equal(t, protocol.Int(0), h.DoString("EXISTS", "dst"))
}

func TestSet_SInterCard(t *testing.T) {
	h := newTestHandle(t)
	fill(h, "a", "1", "2", "3", "4")
	fill(h, "b", "2", "3", "4", "5")

	assert.Equal(t, protocol.Int(3), h.DoString("SINTERCARD", "2", "a", "b"))
	assert.Equal(t, protocol.Int(3), h.DoString("SINTERCARD", "2", "a", "b", "LIMIT", "0"))
	assert.Equal(t, protocol.Int(2), h.DoString("SINTERCARD", "2", "a", "b", "limit", "2"))
	assert.Equal(t, protocol.Int(3), h.DoString("SINTERCARD", "2", "a", "b", "LIMIT", "10"))
	assert.Equal(t, protocol.Int(0), h.DoString("SINTERCARD", "2", "a", "missing"))
	assert.Equal(t, protocol.Int(4), h.DoString("SINTERCARD", "1", "a"))
}

func TestSet_SInterCardErrors(t *testing.T) {
	h := newTestHandle(t)
	fill(h, "a", "1")

	assertErr(t, h.DoString("SINTERCARD", "0", "a"), "ERR syntax error")
	assertErr(t, h.DoString("SINTERCARD", "-1", "a"), "ERR syntax error")
	assertErr(t, h.DoString("SINTERCARD", "2", "a"), "ERR syntax error")
	assertErr(t, h.DoString("SINTERCARD", "1", "a", "b"), "ERR syntax error")
	assertErr(t, h.DoString("SINTERCARD", "x", "a"), "ERR value is not an integer or out of range")
	assertErr(t, h.DoString("SINTERCARD", "1", "a", "LIMIT", "x"), "ERR value is not an integer or out of range")
	assertErr(t, h.DoString("SINTERCARD", "1", "a", "LIMIT", "-1"), "ERR LIMIT can't be negative")
	assertErr(t, h.DoString("SINTERCARD", "1"), "ERR wrong number of arguments for 'sintercard' command")
}

func TestSet_SInterCardVersionGate(t *testing.T) {
	h := newTestHandle(t, WithVersion(6))
	fill(h, "a", "1")
	assertErr(t, h.DoString("SINTERCARD", "1", "a"), "ERR unknown command 'SINTERCARD'")
	assertErr(t, h.DoString("sintercard", "1", "a"), "ERR unknown command 'sintercard'")
}

func TestSet_SPop(t *testing.T) {
	h := newTestHandle(t)
	fill(h, "k", "a", "b", "c", "d", "e")

	popped := h.DoString("SPOP", "k", "3").Strings()
	assert.Len(t, popped, 3)
	seen := map[string]bool{}
	for _, m := range popped {
		assert.False(t, seen[m], "duplicate %q", m)
		seen[m] = true
		assert.Equal(t, protocol.Int(0), h.DoString("SISMEMBER", "k", m))
	}
	assert.Equal(t, protocol.Int(2), h.DoString("SCARD", "k"))

	one := h.DoString("SPOP", "k")
	assert.Equal(t, byte(protocol.TypeBulkString), one.Type)
	assert.Equal(t, protocol.Int(1), h.DoString("SCARD", "k"))

	// More than available pops everything and removes the key.
	assert.Len(t, h.DoString("SPOP", "k", "10").Array, 1)
	assert.Equal(t, protocol.Int(0), h.DoString("EXISTS", "k"))
	assert.Equal(t, protocol.NullBulk(), h.DoString("SPOP", "k"))
	assert.Equal(t, protocol.Array(), h.DoString("SPOP", "k", "2"))
}

func TestSet_SPopNegativeCount(t *testing.T) {
	h := newTestHandle(t)
	fill(h, "k", "a", "b")
	assertErr(t, h.DoString("SPOP", "k", "-1"), "ERR index out of range")
	assert.Equal(t, protocol.Int(2), h.DoString("SCARD", "k"))
	assertErr(t, h.DoString("SPOP", "k", "x"), "ERR value is not an integer or out of range")
}

func TestSet_SPopChecksTypeBeforeCount(t *testing.T) {
	h := newTestHandle(t)
	h.DoString("SET", "str", "v")
	assertWrongType(t, h.DoString("SPOP", "str", "-1"))
	assertErr(t, h.DoString("SPOP", "missing", "-1"), "ERR index out of range")
}

func TestSet_SPopCountsEachMemberAsAChange(t *testing.T) {
	srv := newTestServer(t)
	h := srv.NewHandle()
	fill(h, "k", "a", "b", "c", "d")
	srv.Save()

	h.DoString("SPOP", "k", "3")
	assert.Equal(t, int64(3), srv.Dirty())
}

func TestSet_SRandMember(t *testing.T) {
	h := newTestHandle(t)
	fill(h, "k", "a", "b", "c")

	one := h.DoString("SRANDMEMBER", "k")
	assert.Contains(t, []string{"a", "b", "c"}, one.Str)

	distinct := h.DoString("SRANDMEMBER", "k", "2").Strings()
	assert.Len(t, distinct, 2)
	assert.NotEqual(t, distinct[0], distinct[1])

	assert.ElementsMatch(t, []string{"a", "b", "c"}, h.DoString("SRANDMEMBER", "k", "10").Strings())
	assert.Empty(t, h.DoString("SRANDMEMBER", "k", "0").Array)

	repeated := h.DoString("SRANDMEMBER", "k", "-10").Strings()
	assert.Len(t, repeated, 10)
	for _, m := range repeated {
		assert.Contains(t, []string{"a", "b", "c"}, m)
	}
	assert.Equal(t, protocol.Int(3), h.DoString("SCARD", "k"))
}

func TestSet_SRandMemberCountBounds(t *testing.T) {
	h := newTestHandle(t)
	fill(h, "k", "a", "b")

	assertErr(t, h.DoString("SRANDMEMBER", "k", "-9223372036854775808"), "ERR value is out of range")
	assertErr(t, h.DoString("SRANDMEMBER", "k", "-4611686018427387904"), "ERR value is out of range")
	assertErr(t, h.DoString("SRANDMEMBER", "k", "-2000000000"), "ERR value is out of range")
	assertErr(t, h.DoString("SRANDMEMBER", "missing", "-9223372036854775808"), "ERR value is out of range")

	assert.Equal(t, protocol.Array(), h.DoString("SRANDMEMBER", "missing", "-2000000000"))
	assert.Len(t, h.DoString("SRANDMEMBER", "k", "9223372036854775807").Array, 2)
	assert.Equal(t, protocol.Int(2), h.DoString("SCARD", "k"))
}

func TestSet_SRandMemberEmpty(t *testing.T) {
	h := newTestHandle(t)
	assert.Equal(t, protocol.NullBulk(), h.DoString("SRANDMEMBER", "missing"))
	assert.Equal(t, protocol.Array(), h.DoString("SRANDMEMBER", "missing", "5"))
	assert.Equal(t, protocol.Array(), h.DoString("SRANDMEMBER", "missing", "-5"))
}

func TestSet_SamplingIsReproducibleWithSeed(t *testing.T) {
	run := func() []string {
		h := newTestHandle(t, WithSeed(99))
		fill(h, "k", "a", "b", "c", "d", "e", "f", "g")
		var out []string
		for i := 0; i < 5; i++ {
			out = append(out, h.DoString("SRANDMEMBER", "k", "-3").Strings()...)
		}
		out = append(out, h.DoString("SPOP", "k", "4").Strings()...)
		return out
	}
	assert.Equal(t, run(), run())
}

func TestSet_SRandMemberNegativeCoversMembers(t *testing.T) {
	h := newTestHandle(t)
	fill(h, "k", "a", "b", "c", "d")
	counts := map[string]int{}
	for _, m := range h.DoString("SRANDMEMBER", "k", "-4000").Strings() {
		counts[m]++
	}
	require.Len(t, counts, 4)
	for m, n := range counts {
		assert.InDelta(t, 1000, n, 200, m)
	}
}

func TestSet_SScan(t *testing.T) {
	h := newTestHandle(t)
	var want []string
	for i := 0; i < 50; i++ {
		m := "m" + strconv.Itoa(i)
		want = append(want, m)
		h.DoString("SADD", "k", m)
	}
	h.DoString("SADD", "k", "other")

	var got []string
	cursor := "0"
	for calls := 0; ; calls++ {
		require.Less(t, calls, 100)
		reply := h.DoString("SSCAN", "k", cursor, "MATCH", "m*", "COUNT", "7")
		require.Len(t, reply.Array, 2, reply.String())
		cursor = reply.Array[0].Str
		got = append(got, reply.Array[1].Strings()...)
		if cursor == "0" {
			break
		}
	}
	assert.ElementsMatch(t, want, got)
}

func TestSet_SScanSurvivesConcurrentChanges(t *testing.T) {
	h := newTestHandle(t)
	stable := map[string]bool{}
	for i := 0; i < 30; i++ {
		m := fmt.Sprintf("s%d", i)
		stable[m] = true
		h.DoString("SADD", "k", m)
	}

	seen := map[string]bool{}
	cursor := "0"
	for i := 0; ; i++ {
		reply := h.DoString("SSCAN", "k", cursor, "COUNT", "4")
		cursor = reply.Array[0].Str
		for _, m := range reply.Array[1].Strings() {
			seen[m] = true
		}
		h.DoString("SADD", "k", fmt.Sprintf("new%d", i))
		h.DoString("SREM", "k", fmt.Sprintf("new%d", i-1))
		if cursor == "0" {
			break
		}
	}
	for m := range stable {
		assert.True(t, seen[m], m)
	}
}

func TestSet_SScanErrors(t *testing.T) {
	h := newTestHandle(t)
	fill(h, "k", "a")
	assertErr(t, h.DoString("SSCAN", "k", "abc"), "ERR invalid cursor")
	assertErr(t, h.DoString("SSCAN", "k", "0", "COUNT", "0"), "ERR syntax error")
	assertErr(t, h.DoString("SSCAN", "k", "0", "COUNT", "x"), "ERR value is not an integer or out of range")
	assertErr(t, h.DoString("SSCAN", "k", "0", "MATCH"), "ERR syntax error")
	assertErr(t, h.DoString("SSCAN", "k", "0", "TYPE", "set"), "ERR syntax error")

	reply := h.DoString("SSCAN", "missing", "0")
	assert.Equal(t, protocol.Array(protocol.BulkString("0"), protocol.Array()), reply)
}
