package protocol

import (
	"strconv"
	"strings"
)

// OK is the +OK status reply.
func OK() Value { return Value{Type: TypeSimpleString, Str: "OK"} }

// Status builds a simple string reply.
func Status(s string) Value { return Value{Type: TypeSimpleString, Str: s} }

// Error builds an error reply. msg must include its prefix.
func Error(msg string) Value { return Value{Type: TypeError, Str: msg} }

// Int builds an integer reply.
func Int(n int64) Value { return Value{Type: TypeInteger, Num: n} }

// Bool is Int(1) or Int(0).
func Bool(b bool) Value {
	if b {
		return Int(1)
	}
	return Int(0)
}

// Bulk builds a bulk string reply from bytes.
func Bulk(b []byte) Value { return Value{Type: TypeBulkString, Str: string(b)} }

// BulkString builds a bulk string reply.
func BulkString(s string) Value { return Value{Type: TypeBulkString, Str: s} }

// NullBulk is the nil bulk string ($-1).
func NullBulk() Value { return Value{Type: TypeBulkString, Null: true} }

// NullArray is the nil array (*-1).
func NullArray() Value { return Value{Type: TypeArray, Null: true} }

// Array builds an array reply.
func Array(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{Type: TypeArray, Array: items}
}

// BulkArray builds an array of bulk strings.
func BulkArray(items []string) Value {
	out := make([]Value, len(items))
	for i, s := range items {
		out[i] = BulkString(s)
	}
	return Value{Type: TypeArray, Array: out}
}

// IsError reports whether v is an error reply.
func (v Value) IsError() bool { return v.Type == TypeError }

// IsNull reports whether v is a nil bulk string or nil array.
func (v Value) IsNull() bool { return v.Null }

// Strings returns the Str of every element of an array reply.
func (v Value) Strings() []string {
	out := make([]string, len(v.Array))
	for i, item := range v.Array {
		out[i] = item.Str
	}
	return out
}

// Interface converts v to plain Go values for JSON encoding: strings,
// int64, nil, []interface{}, or map{"error": msg} for errors.
func (v Value) Interface() interface{} {
	switch v.Type {
	case TypeSimpleString, TypeBulkString:
		if v.Null {
			return nil
		}
		return v.Str
	case TypeError:
		return map[string]string{"error": v.Str}
	case TypeInteger:
		return v.Num
	case TypeArray:
		if v.Null {
			return nil
		}
		out := make([]interface{}, len(v.Array))
		for i, item := range v.Array {
			out[i] = item.Interface()
		}
		return out
	default:
		return nil
	}
}

// String renders v the way redis-cli does, for logs and the console.
func (v Value) String() string {
	var sb strings.Builder
	v.render(&sb, "")
	return sb.String()
}

func (v Value) render(sb *strings.Builder, indent string) {
	switch v.Type {
	case TypeSimpleString:
		sb.WriteString(v.Str)
	case TypeError:
		sb.WriteString("(error) ")
		sb.WriteString(v.Str)
	case TypeInteger:
		sb.WriteString("(integer) ")
		sb.WriteString(strconv.FormatInt(v.Num, 10))
	case TypeBulkString:
		if v.Null {
			sb.WriteString("(nil)")
			return
		}
		sb.WriteString(strconv.Quote(v.Str))
	case TypeArray:
		if v.Null {
			sb.WriteString("(nil)")
			return
		}
		if len(v.Array) == 0 {
			sb.WriteString("(empty array)")
			return
		}
		for i, item := range v.Array {
			if i > 0 {
				sb.WriteString("\n")
				sb.WriteString(indent)
			}
			prefix := strconv.Itoa(i+1) + ") "
			sb.WriteString(prefix)
			item.render(sb, indent+strings.Repeat(" ", len(prefix)))
		}
	}
}
