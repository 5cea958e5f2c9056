package benc

import (
	"encoding/hex"
	"strings"

	"github.com/utxospv/spvcore/internal/core"
)

// DecodeHex decodes a hex string into bytes, rejecting odd length and
// non-hex characters. Go's encoding/hex already tolerates upper and lower
// case and rejects everything else.
func DecodeHex(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, core.New(core.KindDecode, "HEX_ODD_LENGTH", "hex string has odd length")
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, core.Newf(core.KindDecode, "HEX_INVALID_CHAR", "invalid hex: %v", err)
	}
	return b, nil
}

// DecodeHexExact decodes s and requires the result to be exactly n bytes.
func DecodeHexExact(s string, n int, field string) ([]byte, error) {
	b, err := DecodeHex(s)
	if err != nil {
		return nil, err
	}
	if len(b) != n {
		return nil, core.Newf(core.KindDecode, "HEX_WRONG_LENGTH", "%s: expected %d bytes, got %d", field, n, len(b))
	}
	return b, nil
}

// EncodeHex lower-cases hex-encodes b.
func EncodeHex(b []byte) string {
	return hex.EncodeToString(b)
}

// LooksHex reports whether s contains only hex digits and has even length,
// without allocating. Used by schema pre-checks before a full decode.
func LooksHex(s string) bool {
	if len(s)%2 != 0 {
		return false
	}
	return strings.IndexFunc(s, func(r rune) bool {
		return !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f' || r >= 'A' && r <= 'F')
	}) == -1
}
