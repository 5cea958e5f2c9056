package becdsa

import (
	"bytes"
	"math/big"

	"github.com/utxospv/spvcore/internal/bhash"
	"github.com/utxospv/spvcore/internal/secp"
)

// nonceGenerator holds the RFC 6979 §3.2 HMAC chaining state (K, V) across
// successive candidate draws, so that a candidate rejected by the caller
// (out of range, or producing r=0/s=0 in the signing equation) is followed
// by the *next* deterministic candidate in the chain rather than the same
// one recomputed from scratch.
type nonceGenerator struct {
	k, v  []byte
	rolen int
	qlen  int
}

// newNonceGenerator initializes the chain from the private scalar d and
// message hash h per RFC 6979 §3.2 steps b through f, instantiated with
// HMAC-SHA-256.
func newNonceGenerator(d *big.Int, h []byte) *nonceGenerator {
	qlen := secp.N.BitLen()
	rolen := (qlen + 7) / 8

	x := int2octets(d, rolen)
	hBytes := bits2octets(h, rolen)

	v := bytes.Repeat([]byte{0x01}, 32)
	k := make([]byte, 32)

	// Step d: K = HMAC_K(V || 0x00 || int2octets(x) || bits2octets(h))
	k = hmacSum(k, concat(v, []byte{0x00}, x, hBytes))
	v = hmacSum(k, v)

	// Step f: K = HMAC_K(V || 0x01 || int2octets(x) || bits2octets(h))
	k = hmacSum(k, concat(v, []byte{0x01}, x, hBytes))
	v = hmacSum(k, v)

	return &nonceGenerator{k: k, v: v, rolen: rolen, qlen: qlen}
}

// Next draws the next deterministic candidate in the chain, rejection
// sampling internally until it lies in [1, n-1] per RFC 6979 §3.2 h.
func (g *nonceGenerator) Next() *big.Int {
	for {
		var t []byte
		for len(t) < g.rolen {
			g.v = hmacSum(g.k, g.v)
			t = append(t, g.v...)
		}
		candidate := bits2int(t, g.qlen)
		if candidate.Sign() > 0 && candidate.Cmp(secp.N) < 0 {
			return candidate
		}
		g.k = hmacSum(g.k, concat(g.v, []byte{0x00}))
		g.v = hmacSum(g.k, g.v)
	}
}

// rfc6979Nonce derives the first deterministic per-signature nonce k from
// the private scalar d and message hash h. Exposed for the RFC 6979 test
// vector; Sign uses nonceGenerator directly so that a rejected candidate
// advances the chain instead of repeating.
func rfc6979Nonce(d *big.Int, h []byte) *big.Int {
	return newNonceGenerator(d, h).Next()
}

func hmacSum(key, data []byte) []byte {
	sum := bhash.HMACSHA256(key, data)
	return sum[:]
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// bits2int converts a bit string (here, a hash or HMAC output) to an
// integer per RFC 6979 §2.3.2, truncating to the leftmost qlen bits when
// the input is longer.
func bits2int(b []byte, qlen int) *big.Int {
	v := new(big.Int).SetBytes(b)
	blen := len(b) * 8
	if blen > qlen {
		v.Rsh(v, uint(blen-qlen))
	}
	return v
}

// int2octets encodes v as a fixed-length rolen-byte big-endian string per
// RFC 6979 §2.3.3.
func int2octets(v *big.Int, rolen int) []byte {
	out := make([]byte, rolen)
	v.FillBytes(out)
	return out
}

// bits2octets is bits2int followed by a reduction mod n and a re-encoding
// to rolen bytes, per RFC 6979 §2.3.4.
func bits2octets(b []byte, rolen int) []byte {
	z1 := bits2int(b, secp.N.BitLen())
	z2 := new(big.Int).Sub(z1, secp.N)
	if z2.Sign() < 0 {
		return int2octets(z1, rolen)
	}
	return int2octets(z2, rolen)
}
