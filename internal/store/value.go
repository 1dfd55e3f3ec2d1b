// Package store implements the typed in-memory keyspace behind FlashSim.
//
// A DB maps keys to tagged values (string, list, hash, set, zset) plus an
// expiry table. DB methods do not lock: the engine holds the DB lock for the
// whole command so that a type check and the mutation that follows it are
// atomic with respect to other commands.
package store

import "errors"

// ErrWrongType is returned when a key holds a different variant than the
// command expects.
var ErrWrongType = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")

// Kind identifies the variant a Value holds. It never changes after the
// value is created.
type Kind uint8

const (
	KindString Kind = iota + 1
	KindList
	KindHash
	KindSet
	KindZSet
)

// String returns the name reported by the TYPE command.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindHash:
		return "hash"
	case KindSet:
		return "set"
	case KindZSet:
		return "zset"
	default:
		return "none"
	}
}

// Value is anything that can be stored under a key.
type Value interface {
	Kind() Kind
}

// Container is a Value whose emptiness is equivalent to key absence.
type Container interface {
	Value
	Len() int
}

// String is the plain string variant.
type String struct {
	val []byte
}

// NewString copies b into a new String value.
func NewString(b []byte) *String {
	return &String{val: append([]byte(nil), b...)}
}

func (s *String) Kind() Kind { return KindString }

// Bytes returns the stored bytes. The caller must not modify them.
func (s *String) Bytes() []byte { return s.val }
