// Package protocol implements the RESP2 parser and encoder shared by the
// TCP server, the HTTP console and the engine reply types.
package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
)

var (
	// ErrInvalidProtocol indicates malformed RESP data
	ErrInvalidProtocol = errors.New("protocol: invalid RESP format")
	// ErrUnexpectedType indicates an unexpected RESP type
	ErrUnexpectedType = errors.New("protocol: unexpected type")
)

// Value is a RESP value. It doubles as the reply type of every command:
// handlers build Values with the constructors in value.go and the
// transport encodes them with Writer.WriteValue.
type Value struct {
	Type  byte
	Str   string
	Num   int64
	Array []Value
	Null  bool
}

// RESP type constants
const (
	TypeSimpleString = '+'
	TypeError        = '-'
	TypeInteger      = ':'
	TypeBulkString   = '$'
	TypeArray        = '*'
)

const (
	maxBulkStringLength = 512 * 1024 * 1024 // 512 MiB
	maxArrayLength      = 1_000_000
	defaultBufSize      = 64 * 1024 // 64 KiB read/write buffers
)

// Shared byte slices to avoid allocations on every write.
var (
	crlfBytes = []byte("\r\n")
	nullBytes      = []byte("$-1\r\n")
	nullArrayBytes = []byte("*-1\r\n")
	okBytes        = []byte("+OK\r\n")
)

// intBufPool provides scratch buffers for integer formatting.
var intBufPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, 0, 20) // max int64 is 19 digits + sign
		return &b
	},
}

// Reader wraps a bufio.Reader for RESP parsing
type Reader struct {
	rd *bufio.Reader
}

// NewReader creates a new RESP Reader with an optimised buffer.
func NewReader(r io.Reader) *Reader {
	return &Reader{rd: bufio.NewReaderSize(r, defaultBufSize)}
}

// Buffered returns the number of bytes that can be read from the
// underlying buffer without issuing a syscall. This is used by the
// server to detect pipelined commands.
func (r *Reader) Buffered() int {
	return r.rd.Buffered()
}

// ReadValue reads a single RESP value from the reader
func (r *Reader) ReadValue() (Value, error) {
	typeByte, err := r.rd.ReadByte()
	if err != nil {
		return Value{}, err
	}

	switch typeByte {
	case TypeSimpleString:
		return r.readSimpleString()
	case TypeError:
		return r.readError()
	case TypeInteger:
		return r.readInteger()
	case TypeBulkString:
		return r.readBulkString()
	case TypeArray:
		return r.readArray()
	default:
		return Value{}, fmt.Errorf("%w: unknown type %c", ErrInvalidProtocol, typeByte)
	}
}

// readLine reads a line until \r\n
func (r *Reader) readLine() (string, error) {
	line, err := r.rd.ReadString('\n')
	if err != nil {
		return "", err
	}
	if len(line) < 2 || line[len(line)-2] != '\r' {
		return "", ErrInvalidProtocol
	}
	return line[:len(line)-2], nil
}

func (r *Reader) readSimpleString() (Value, error) {
	line, err := r.readLine()
	if err != nil {
		return Value{}, err
	}
	return Value{Type: TypeSimpleString, Str: line}, nil
}

func (r *Reader) readError() (Value, error) {
	line, err := r.readLine()
	if err != nil {
		return Value{}, err
	}
	return Value{Type: TypeError, Str: line}, nil
}

func (r *Reader) readInteger() (Value, error) {
	line, err := r.readLine()
	if err != nil {
		return Value{}, err
	}
	num, err := strconv.ParseInt(line, 10, 64)
	if err != nil {
		return Value{}, fmt.Errorf("%w: invalid integer", ErrInvalidProtocol)
	}
	return Value{Type: TypeInteger, Num: num}, nil
}

func (r *Reader) readBulkString() (Value, error) {
	line, err := r.readLine()
	if err != nil {
		return Value{}, err
	}
	length, err := strconv.ParseInt(line, 10, 64)
	if err != nil {
		return Value{}, fmt.Errorf("%w: invalid bulk string length", ErrInvalidProtocol)
	}

	// Null bulk string
	if length == -1 {
		return Value{Type: TypeBulkString, Null: true}, nil
	}

	if length < 0 {
		return Value{}, fmt.Errorf("%w: negative bulk string length", ErrInvalidProtocol)
	}
	if length > maxBulkStringLength {
		return Value{}, fmt.Errorf("%w: bulk string too large", ErrInvalidProtocol)
	}

	// Read the data + \r\n
	data := make([]byte, length+2)
	_, err = io.ReadFull(r.rd, data)
	if err != nil {
		return Value{}, err
	}

	if data[length] != '\r' || data[length+1] != '\n' {
		return Value{}, ErrInvalidProtocol
	}

	return Value{Type: TypeBulkString, Str: string(data[:length])}, nil
}

func (r *Reader) readArray() (Value, error) {
	line, err := r.readLine()
	if err != nil {
		return Value{}, err
	}
	count, err := strconv.ParseInt(line, 10, 64)
	if err != nil {
		return Value{}, fmt.Errorf("%w: invalid array length", ErrInvalidProtocol)
	}

	// Null array
	if count == -1 {
		return Value{Type: TypeArray, Null: true}, nil
	}

	if count < 0 {
		return Value{}, fmt.Errorf("%w: negative array length", ErrInvalidProtocol)
	}
	if count > maxArrayLength {
		return Value{}, fmt.Errorf("%w: array too large", ErrInvalidProtocol)
	}

	array := make([]Value, count)
	for i := int64(0); i < count; i++ {
		val, err := r.ReadValue()
		if err != nil {
			return Value{}, err
		}
		array[i] = val
	}

	return Value{Type: TypeArray, Array: array}, nil
}

// Writer wraps a bufio.Writer for RESP encoding.
// By default every Write* call flushes immediately (autoFlush=true).
// Call SetAutoFlush(false) before a pipeline batch, then Flush()
// once at the end, to amortise syscalls across many responses.
type Writer struct {
	wr        *bufio.Writer
	autoFlush bool
}

// NewWriter creates a new RESP Writer with an optimised buffer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{wr: bufio.NewWriterSize(w, defaultBufSize), autoFlush: true}
}

// SetAutoFlush controls whether each Write* call flushes automatically.
func (w *Writer) SetAutoFlush(on bool) { w.autoFlush = on }

// Flush writes any buffered data to the underlying io.Writer.
func (w *Writer) Flush() error { return w.wr.Flush() }

func (w *Writer) flush() error {
	if w.autoFlush {
		return w.wr.Flush()
	}
	return nil
}

// writeTypedInt writes a type byte followed by n and CRLF without going
// through fmt.
func (w *Writer) writeTypedInt(prefix byte, n int64) error {
	if err := w.wr.WriteByte(prefix); err != nil {
		return err
	}
	bp := intBufPool.Get().(*[]byte)
	b := strconv.AppendInt((*bp)[:0], n, 10)
	_, err := w.wr.Write(b)
	*bp = b
	intBufPool.Put(bp)
	if err != nil {
		return err
	}
	_, err = w.wr.Write(crlfBytes)
	return err
}

func (w *Writer) writeLine(prefix byte, s string) error {
	if err := w.wr.WriteByte(prefix); err != nil {
		return err
	}
	if _, err := w.wr.WriteString(s); err != nil {
		return err
	}
	_, err := w.wr.Write(crlfBytes)
	return err
}

func (w *Writer) writeBulk(s string) error {
	if err := w.writeTypedInt(TypeBulkString, int64(len(s))); err != nil {
		return err
	}
	if _, err := w.wr.WriteString(s); err != nil {
		return err
	}
	_, err := w.wr.Write(crlfBytes)
	return err
}

// writeValue encodes v and its children without flushing.
func (w *Writer) writeValue(v Value) error {
	switch v.Type {
	case TypeSimpleString:
		if v.Str == "OK" {
			_, err := w.wr.Write(okBytes)
			return err
		}
		return w.writeLine(TypeSimpleString, v.Str)
	case TypeError:
		return w.writeLine(TypeError, v.Str)
	case TypeInteger:
		return w.writeTypedInt(TypeInteger, v.Num)
	case TypeBulkString:
		if v.Null {
			_, err := w.wr.Write(nullBytes)
			return err
		}
		return w.writeBulk(v.Str)
	case TypeArray:
		if v.Null {
			_, err := w.wr.Write(nullArrayBytes)
			return err
		}
		if err := w.writeTypedInt(TypeArray, int64(len(v.Array))); err != nil {
			return err
		}
		for _, item := range v.Array {
			if err := w.writeValue(item); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: cannot encode type %q", ErrUnexpectedType, v.Type)
	}
}

// WriteValue encodes a (possibly nested) reply.
func (w *Writer) WriteValue(v Value) error {
	if err := w.writeValue(v); err != nil {
		return err
	}
	return w.flush()
}

// WriteCommand encodes args as an array of bulk strings, the form clients
// use to send commands.
func (w *Writer) WriteCommand(args ...string) error {
	if err := w.writeTypedInt(TypeArray, int64(len(args))); err != nil {
		return err
	}
	for _, a := range args {
		if err := w.writeBulk(a); err != nil {
			return err
		}
	}
	return w.flush()
}

// WriteSimpleString writes a status reply.
func (w *Writer) WriteSimpleString(s string) error { return w.WriteValue(Status(s)) }

// WriteError writes msg as an error reply. msg carries its own prefix
// (ERR, WRONGTYPE, ...).
func (w *Writer) WriteError(msg string) error { return w.WriteValue(Error(msg)) }

// WriteInteger writes an integer reply.
func (w *Writer) WriteInteger(n int64) error { return w.WriteValue(Int(n)) }

// WriteBulkString writes a bulk string reply.
func (w *Writer) WriteBulkString(s []byte) error { return w.WriteValue(Bulk(s)) }

// WriteNull writes a null bulk string.
func (w *Writer) WriteNull() error { return w.WriteValue(NullBulk()) }
