package benc

import (
	"github.com/utxospv/spvcore/internal/bhash"
	"github.com/utxospv/spvcore/internal/core"
)

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

var base58Index [256]int8

func init() {
	for i := range base58Index {
		base58Index[i] = -1
	}
	for i := 0; i < len(base58Alphabet); i++ {
		base58Index[base58Alphabet[i]] = int8(i)
	}
}

// Base58Encode encodes data using Bitcoin's 58-character alphabet,
// preserving one leading '1' per leading zero byte.
func Base58Encode(data []byte) string {
	zeros := 0
	for zeros < len(data) && data[zeros] == 0 {
		zeros++
	}

	// log(256)/log(58) ~= 1.365; +1 rounds up for integer division slop.
	size := (len(data)-zeros)*138/100 + 1
	buf := make([]byte, size)

	for _, b := range data[zeros:] {
		carry := int(b)
		for j := len(buf) - 1; j >= 0; j-- {
			carry += int(buf[j]) << 8
			buf[j] = byte(carry % 58)
			carry /= 58
		}
	}

	j := 0
	for j < len(buf) && buf[j] == 0 {
		j++
	}

	out := make([]byte, zeros+len(buf)-j)
	for i := 0; i < zeros; i++ {
		out[i] = '1'
	}
	for i, b := range buf[j:] {
		out[zeros+i] = base58Alphabet[b]
	}
	return string(out)
}

// Base58Decode reverses Base58Encode, rejecting characters outside the
// alphabet.
func Base58Decode(s string) ([]byte, error) {
	if len(s) == 0 {
		return nil, core.New(core.KindDecode, "BASE58_EMPTY", "empty base58 string")
	}

	zeros := 0
	for zeros < len(s) && s[zeros] == '1' {
		zeros++
	}

	// log(58)/log(256) ~= 0.733; +1 rounds up for integer division slop.
	size := len(s)*733/1000 + 1
	b256 := make([]byte, size)

	for i := zeros; i < len(s); i++ {
		v := base58Index[s[i]]
		if v < 0 {
			return nil, core.Newf(core.KindDecode, "BASE58_INVALID_CHAR", "invalid base58 character %q", s[i])
		}
		carry := int(v)
		for j := len(b256) - 1; j >= 0; j-- {
			carry += int(b256[j]) * 58
			b256[j] = byte(carry % 256)
			carry /= 256
		}
	}

	j := 0
	for j < len(b256) && b256[j] == 0 {
		j++
	}

	out := make([]byte, zeros+len(b256)-j)
	copy(out[zeros:], b256[j:])
	return out, nil
}

// Base58CheckEncode prepends version, appends the 4-byte Hash256 checksum,
// and Base58-encodes the result.
func Base58CheckEncode(version byte, payload []byte) string {
	data := make([]byte, 0, 1+len(payload)+4)
	data = append(data, version)
	data = append(data, payload...)
	checksum := bhash.Hash256(data)
	data = append(data, checksum[:4]...)
	return Base58Encode(data)
}

// Base58CheckDecode decodes s, verifies the checksum in constant time, and
// returns the version byte and payload separately. Inputs shorter than 5
// bytes after Base58 decoding (1 version + 4 checksum, minimum) are
// rejected.
func Base58CheckDecode(s string) (version byte, payload []byte, err error) {
	decoded, err := Base58Decode(s)
	if err != nil {
		return 0, nil, err
	}
	if len(decoded) < 5 {
		return 0, nil, core.New(core.KindDecode, "BASE58CHECK_SHORT", "base58check payload too short")
	}

	body := decoded[:len(decoded)-4]
	checksum := decoded[len(decoded)-4:]
	want := bhash.Hash256(body)
	if !ConstantTimeEqual(checksum, want[:4]) {
		return 0, nil, core.New(core.KindDecode, "BASE58CHECK_CHECKSUM", "checksum mismatch")
	}
	return body[0], body[1:], nil
}
