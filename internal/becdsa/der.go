package becdsa

import (
	"math/big"

	"github.com/utxospv/spvcore/internal/core"
)

// EncodeDER serializes (r, s) as 0x30 len 0x02 rlen r 0x02 slen s, using
// minimal integer form: no leading zero byte unless needed to keep the
// value's high bit from being misread as a negative sign.
func EncodeDER(r, s *big.Int) []byte {
	rb := derInt(r)
	sb := derInt(s)

	body := make([]byte, 0, len(rb)+len(sb))
	body = append(body, rb...)
	body = append(body, sb...)

	out := make([]byte, 0, len(body)+2)
	out = append(out, 0x30, byte(len(body)))
	out = append(out, body...)
	return out
}

// derInt encodes v as a DER INTEGER (tag, length, minimal big-endian
// bytes), prefixing a 0x00 byte when the most significant bit would
// otherwise be mistaken for a sign bit.
func derInt(v *big.Int) []byte {
	b := v.Bytes()
	if len(b) == 0 {
		b = []byte{0x00}
	}
	if b[0]&0x80 != 0 {
		b = append([]byte{0x00}, b...)
	}
	out := make([]byte, 0, len(b)+2)
	out = append(out, 0x02, byte(len(b)))
	out = append(out, b...)
	return out
}

// DecodeDER parses a DER-encoded ECDSA signature, rejecting non-minimal
// integer encodings and trailing garbage.
func DecodeDER(b []byte) (r, s *big.Int, err error) {
	if len(b) < 8 || b[0] != 0x30 {
		return nil, nil, core.New(core.KindDecode, "DER_BAD_HEADER", "signature missing DER sequence tag")
	}
	seqLen := int(b[1])
	if seqLen != len(b)-2 {
		return nil, nil, core.New(core.KindDecode, "DER_BAD_LENGTH", "sequence length does not match input")
	}

	rest := b[2:]
	r, rest, err = derReadInt(rest)
	if err != nil {
		return nil, nil, err
	}
	s, rest, err = derReadInt(rest)
	if err != nil {
		return nil, nil, err
	}
	if len(rest) != 0 {
		return nil, nil, core.New(core.KindDecode, "DER_TRAILING_DATA", "trailing bytes after signature")
	}
	return r, s, nil
}

func derReadInt(b []byte) (*big.Int, []byte, error) {
	if len(b) < 3 || b[0] != 0x02 {
		return nil, nil, core.New(core.KindDecode, "DER_BAD_INT_TAG", "expected DER integer tag")
	}
	n := int(b[1])
	if n == 0 || len(b) < 2+n {
		return nil, nil, core.New(core.KindDecode, "DER_BAD_INT_LENGTH", "integer length exceeds input")
	}
	v := b[2 : 2+n]
	if v[0]&0x80 != 0 {
		return nil, nil, core.New(core.KindDecode, "DER_NEGATIVE_INT", "integer encodes as negative")
	}
	if len(v) > 1 && v[0] == 0x00 && v[1]&0x80 == 0 {
		return nil, nil, core.New(core.KindDecode, "DER_NON_MINIMAL_INT", "integer has unnecessary leading zero")
	}
	return new(big.Int).SetBytes(v), b[2+n:], nil
}
