package bincur

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Sentinel errors for matching with errors.Is. The concrete error values
// returned by the cursor are *TruncatedError and *BoundsError, which carry
// the exact failure offsets needed for diagnostics.
var (
	ErrTruncated   = errors.New("truncated input")
	ErrOutOfBounds = errors.New("out of bounds")
)

// TruncatedError reports a read that requested more bytes than remain.
type TruncatedError struct {
	Offset int64 // cursor position when the read was attempted
	Want   int64
	Have   int64
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("truncated input at offset 0x%x: want %d bytes, have %d", e.Offset, e.Want, e.Have)
}

func (e *TruncatedError) Unwrap() error { return ErrTruncated }

// BoundsError reports a seek or offset-follow whose target lies outside
// the buffer.
type BoundsError struct {
	Target int64
	Size   int64
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("target offset 0x%x out of bounds (buffer size %d)", e.Target, e.Size)
}

func (e *BoundsError) Unwrap() error { return ErrOutOfBounds }

// Cursor is a sequential and random-access reader over an in-memory byte
// buffer. All multi-byte reads are little-endian. The buffer is never
// mutated; the only side effect of any method is the cursor position.
// Reads never clamp silently: a short buffer fails with *TruncatedError
// and an out-of-range seek fails with *BoundsError.
type Cursor struct {
	data []byte
	pos  int64
}

// New returns a cursor positioned at the start of data. The cursor borrows
// data; the caller must not mutate it while the cursor is in use.
func New(data []byte) *Cursor {
	return &Cursor{data: data}
}

// Pos returns the current cursor position.
func (c *Cursor) Pos() int64 { return c.pos }

// Len returns the total buffer size.
func (c *Cursor) Len() int64 { return int64(len(c.data)) }

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int64 { return int64(len(c.data)) - c.pos }

// Seek moves the cursor to an absolute position. The position may equal
// the buffer length (end of buffer); anything else outside [0, len] fails.
func (c *Cursor) Seek(pos int64) error {
	if pos < 0 || pos > int64(len(c.data)) {
		return &BoundsError{Target: pos, Size: int64(len(c.data))}
	}
	c.pos = pos
	return nil
}

// Skip advances the cursor by n bytes.
func (c *Cursor) Skip(n int64) error {
	return c.Seek(c.pos + n)
}

func (c *Cursor) take(n int64) ([]byte, error) {
	if n < 0 {
		return nil, &BoundsError{Target: c.pos + n, Size: int64(len(c.data))}
	}
	if rem := c.Remaining(); rem < n {
		return nil, &TruncatedError{Offset: c.pos, Want: n, Have: rem}
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// ReadU8 reads one byte.
func (c *Cursor) ReadU8() (uint8, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadU16 reads a little-endian uint16.
func (c *Cursor) ReadU16() (uint16, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadU32 reads a little-endian uint32.
func (c *Cursor) ReadU32() (uint32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadU64 reads a little-endian uint64.
func (c *Cursor) ReadU64() (uint64, error) {
	b, err := c.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadF32 reads a little-endian IEEE 754 single.
func (c *Cursor) ReadF32() (float32, error) {
	v, err := c.ReadU32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// ReadF64 reads a little-endian IEEE 754 double.
func (c *Cursor) ReadF64() (float64, error) {
	v, err := c.ReadU64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// ReadBytes reads n bytes and returns a copy, so callers may retain the
// result independently of the underlying buffer's lifetime.
func (c *Cursor) ReadBytes(n int64) ([]byte, error) {
	b, err := c.take(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// View returns a slice of the underlying buffer without copying. The slice
// is only valid as long as the buffer is.
func (c *Cursor) View(n int64) ([]byte, error) {
	return c.take(n)
}

// ReadString reads a length-prefixed UTF-8 string. lenWidth selects the
// width of the length prefix and must be 1, 2 or 4 bytes.
func (c *Cursor) ReadString(lenWidth int) (string, error) {
	var n int64
	switch lenWidth {
	case 1:
		v, err := c.ReadU8()
		if err != nil {
			return "", err
		}
		n = int64(v)
	case 2:
		v, err := c.ReadU16()
		if err != nil {
			return "", err
		}
		n = int64(v)
	case 4:
		v, err := c.ReadU32()
		if err != nil {
			return "", err
		}
		n = int64(v)
	default:
		panic(fmt.Sprintf("bincur: invalid string length width %d", lenWidth))
	}
	b, err := c.take(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadFixedString reads an n-byte NUL-padded field and returns the text up
// to the first NUL.
func (c *Cursor) ReadFixedString(n int64) (string, error) {
	b, err := c.take(n)
	if err != nil {
		return "", err
	}
	s := string(b)
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return s, nil
}

// ReadOffset32 reads a uint32 offset relative to base and returns the
// absolute target position after validating it lies inside the buffer.
// The cursor is left just past the offset field; callers Seek to the
// returned target themselves so that the surrounding record read can
// resume where it left off.
func (c *Cursor) ReadOffset32(base int64) (int64, error) {
	off, err := c.ReadU32()
	if err != nil {
		return 0, err
	}
	target := base + int64(off)
	if target < 0 || target >= int64(len(c.data)) {
		return 0, &BoundsError{Target: target, Size: int64(len(c.data))}
	}
	return target, nil
}
