package benc

import "github.com/utxospv/spvcore/internal/core"

// EncodeVarInt encodes n using the ledger's variable-length integer
// convention: values below 0xfd encode as a single byte; values up to
// 0xffff as 0xfd followed by 2 little-endian bytes; up to 0xffffffff as
// 0xfe followed by 4; everything else as 0xff followed by 8.
func EncodeVarInt(n uint64) []byte {
	return AppendVarInt(nil, n)
}

// AppendVarInt appends the VarInt encoding of n to dst.
func AppendVarInt(dst []byte, n uint64) []byte {
	switch {
	case n < 0xfd:
		return append(dst, byte(n))
	case n <= 0xffff:
		dst = append(dst, 0xfd)
		return AppendU16LE(dst, uint16(n))
	case n <= 0xffffffff:
		dst = append(dst, 0xfe)
		return AppendU32LE(dst, uint32(n))
	default:
		dst = append(dst, 0xff)
		return AppendU64LE(dst, n)
	}
}

// DecodeVarInt decodes one VarInt from the front of b, returning the value
// and the number of bytes consumed. Non-minimal encodings (e.g. a
// two-byte 0xfd prefix for a value below 253) are rejected, since a
// decoder that accepts them admits two different byte strings for the
// same logical value — a malleability hazard in anything hashed.
func DecodeVarInt(b []byte) (uint64, int, error) {
	if len(b) < 1 {
		return 0, 0, core.New(core.KindDecode, "VARINT_EMPTY", "empty input")
	}
	tag := b[0]
	switch {
	case tag < 0xfd:
		return uint64(tag), 1, nil
	case tag == 0xfd:
		if len(b) < 3 {
			return 0, 0, core.New(core.KindDecode, "VARINT_TRUNCATED", "truncated u16 varint")
		}
		n := uint64(b[1]) | uint64(b[2])<<8
		if n < 0xfd {
			return 0, 0, core.New(core.KindDecode, "VARINT_NON_MINIMAL", "non-minimal u16 varint")
		}
		return n, 3, nil
	case tag == 0xfe:
		if len(b) < 5 {
			return 0, 0, core.New(core.KindDecode, "VARINT_TRUNCATED", "truncated u32 varint")
		}
		n := uint64(b[1]) | uint64(b[2])<<8 | uint64(b[3])<<16 | uint64(b[4])<<24
		if n <= 0xffff {
			return 0, 0, core.New(core.KindDecode, "VARINT_NON_MINIMAL", "non-minimal u32 varint")
		}
		return n, 5, nil
	default:
		if len(b) < 9 {
			return 0, 0, core.New(core.KindDecode, "VARINT_TRUNCATED", "truncated u64 varint")
		}
		n := uint64(b[1]) | uint64(b[2])<<8 | uint64(b[3])<<16 | uint64(b[4])<<24 |
			uint64(b[5])<<32 | uint64(b[6])<<40 | uint64(b[7])<<48 | uint64(b[8])<<56
		if n <= 0xffffffff {
			return 0, 0, core.New(core.KindDecode, "VARINT_NON_MINIMAL", "non-minimal u64 varint")
		}
		return n, 9, nil
	}
}

// ReadVarIntLen decodes a VarInt from the front of b and converts it to an
// int length, bounded by max (the caller's sanity cap for that field).
func ReadVarIntLen(b []byte, max uint64, name string) (int, int, error) {
	v, n, err := DecodeVarInt(b)
	if err != nil {
		return 0, 0, err
	}
	if v > max {
		return 0, 0, core.Newf(core.KindPolicy, "LENGTH_EXCEEDS_CAP", "%s: %d exceeds cap %d", name, v, max)
	}
	iv, err := toIntLen(v, name)
	if err != nil {
		return 0, 0, err
	}
	return iv, n, nil
}
