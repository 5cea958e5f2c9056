package benc

import (
	"encoding/binary"

	"github.com/utxospv/spvcore/internal/core"
)

// cursor is a forward-only reader over a fixed byte slice, following the
// ledger's wire-format cursor idiom: every read either returns the
// requested bytes or a truncation error, and the caller never has to
// bounds-check manually.
type cursor struct {
	b   []byte
	pos int
}

// NewCursor wraps b for sequential little-endian/varint reads.
func NewCursor(b []byte) *cursor {
	return &cursor{b: b, pos: 0}
}

func (c *cursor) Pos() int       { return c.pos }
func (c *cursor) Len() int       { return len(c.b) }
func (c *cursor) Remaining() int {
	if c.pos >= len(c.b) {
		return 0
	}
	return len(c.b) - c.pos
}

func (c *cursor) AtEnd() bool { return c.pos == len(c.b) }

func (c *cursor) ReadExact(n int) ([]byte, error) {
	if n < 0 || c.Remaining() < n {
		return nil, core.New(core.KindDecode, "TRUNCATED", "unexpected end of input")
	}
	start := c.pos
	c.pos += n
	return c.b[start:c.pos], nil
}

func (c *cursor) ReadU8() (byte, error) {
	b, err := c.ReadExact(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *cursor) ReadU16LE() (uint16, error) {
	b, err := c.ReadExact(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (c *cursor) ReadU32LE() (uint32, error) {
	b, err := c.ReadExact(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (c *cursor) ReadU64LE() (uint64, error) {
	b, err := c.ReadExact(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (c *cursor) ReadVarInt() (uint64, error) {
	v, n, err := DecodeVarInt(c.b[c.pos:])
	if err != nil {
		return 0, err
	}
	c.pos += n
	return v, nil
}

// ReadVarIntLen reads a VarInt and converts it to an int length bounded by
// max, the caller's sanity cap for that field.
func (c *cursor) ReadVarIntLen(max uint64, name string) (int, error) {
	iv, n, err := ReadVarIntLen(c.b[c.pos:], max, name)
	if err != nil {
		return 0, err
	}
	c.pos += n
	return iv, nil
}

// AppendU16LE, AppendU32LE, AppendU64LE append little-endian integers to
// dst and return the extended slice, mirroring the ledger's append-style
// serializer idiom (no intermediate struct, no reflection).
func AppendU16LE(dst []byte, v uint16) []byte {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	return append(dst, tmp[:]...)
}

func AppendU32LE(dst []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(dst, tmp[:]...)
}

func AppendU64LE(dst []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(dst, tmp[:]...)
}

// toIntLen converts a decoded length to int, rejecting values that would
// not fit (relevant on 32-bit platforms and as a defense against
// maliciously large length prefixes).
func toIntLen(v uint64, name string) (int, error) {
	const maxInt = int(^uint(0) >> 1)
	if v > uint64(maxInt) {
		return 0, core.Newf(core.KindDecode, "LENGTH_OVERFLOW", "%s overflows platform int", name)
	}
	return int(v), nil
}
