package becdsa

import (
	"math/big"

	"github.com/utxospv/spvcore/internal/benc"
	"github.com/utxospv/spvcore/internal/core"
	"github.com/utxospv/spvcore/internal/secp"
)

const wifVersion = 0x80

// WIFKey is a decoded Wallet-Import-Format private key.
type WIFKey struct {
	Scalar     SecretScalar
	Compressed bool
}

// DecodeWIF Base58Check-decodes s, validates the version byte, extracts the
// 32-byte scalar and optional compression marker, and checks the scalar
// lies in [1, n-1].
func DecodeWIF(s string) (WIFKey, error) {
	version, payload, err := benc.Base58CheckDecode(s)
	if err != nil {
		return WIFKey{}, err
	}
	if version != wifVersion {
		return WIFKey{}, core.Newf(core.KindDecode, "WIF_BAD_VERSION", "expected version 0x%02x, got 0x%02x", wifVersion, version)
	}

	compressed := false
	switch len(payload) {
	case 32:
	case 33:
		if payload[32] != 0x01 {
			return WIFKey{}, core.New(core.KindDecode, "WIF_BAD_COMPRESSION_MARKER", "trailing byte is not the 0x01 compression marker")
		}
		compressed = true
		payload = payload[:32]
	default:
		return WIFKey{}, core.Newf(core.KindDecode, "WIF_BAD_LENGTH", "unexpected payload length %d", len(payload))
	}

	d := new(big.Int).SetBytes(payload)
	if d.Sign() <= 0 || d.Cmp(secp.N) >= 0 {
		return WIFKey{}, core.New(core.KindCrypto, "SCALAR_OUT_OF_RANGE", "decoded scalar out of [1, n-1]")
	}

	return WIFKey{Scalar: NewSecretScalar(d), Compressed: compressed}, nil
}

// EncodeWIF produces the Wallet-Import-Format string for scalar d.
func EncodeWIF(d *big.Int, compressed bool) string {
	payload := make([]byte, 32, 33)
	d.FillBytes(payload)
	if compressed {
		payload = append(payload, 0x01)
	}
	return benc.Base58CheckEncode(wifVersion, payload)
}
