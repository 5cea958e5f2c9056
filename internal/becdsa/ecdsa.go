// Package becdsa implements RFC-6979 deterministic ECDSA over secp256k1:
// signing with low-S normalization and a mandatory self-verify step, plain
// verification, DER signature encode/decode, and WIF private-key decoding.
package becdsa

import (
	"math/big"

	"github.com/utxospv/spvcore/internal/core"
	"github.com/utxospv/spvcore/internal/secp"
)

var halfN = new(big.Int).Rsh(secp.N, 1)

// Sign computes a deterministic ECDSA signature over hash z with private
// scalar d, following the ledger's fork-enabled sighash convention (the
// caller is responsible for producing z; this function only implements the
// curve-level signature). Low-S normalization (BIP-146) is always applied,
// and the signature is verified against the derived public key before
// being returned — a signature this function cannot verify is never
// handed back to the caller.
func Sign(d *big.Int, z []byte) (r, s *big.Int, err error) {
	if d.Sign() <= 0 || d.Cmp(secp.N) >= 0 {
		return nil, nil, core.New(core.KindCrypto, "SCALAR_OUT_OF_RANGE", "private scalar out of [1, n-1]")
	}
	zInt := new(big.Int).SetBytes(z)

	gen := newNonceGenerator(d, z)
	for {
		k := gen.Next()

		R := secp.ScalarBaseMult(k)
		r = new(big.Int).Mod(R.X, secp.N)
		if r.Sign() == 0 {
			continue
		}

		kInv := new(big.Int).ModInverse(k, secp.N)
		if kInv == nil {
			continue
		}
		s = new(big.Int).Mul(r, d)
		s.Add(s, zInt)
		s.Mul(s, kInv)
		s.Mod(s, secp.N)
		if s.Sign() == 0 {
			continue
		}

		if s.Cmp(halfN) > 0 {
			s = new(big.Int).Sub(secp.N, s)
		}
		break
	}

	Q := secp.ScalarBaseMult(d)
	if !Verify(Q, z, r, s) {
		return nil, nil, core.New(core.KindCrypto, "SELF_VERIFY_FAILED", "signature failed self-verification")
	}
	return r, s, nil
}

// Verify reports whether (r, s) is a valid ECDSA signature over hash z for
// public key Q.
func Verify(Q secp.Point, z []byte, r, s *big.Int) bool {
	if r.Sign() <= 0 || r.Cmp(secp.N) >= 0 {
		return false
	}
	if s.Sign() <= 0 || s.Cmp(secp.N) >= 0 {
		return false
	}
	if !Q.IsOnCurve() || Q.IsInfinity() {
		return false
	}

	zInt := new(big.Int).SetBytes(z)
	sInv := new(big.Int).ModInverse(s, secp.N)
	if sInv == nil {
		return false
	}

	u1 := new(big.Int).Mul(zInt, sInv)
	u1.Mod(u1, secp.N)
	u2 := new(big.Int).Mul(r, sInv)
	u2.Mod(u2, secp.N)

	X := secp.Add(secp.ScalarBaseMult(u1), secp.ScalarMult(u2, Q))
	if X.IsInfinity() {
		return false
	}
	xModN := new(big.Int).Mod(X.X, secp.N)
	return xModN.Cmp(r) == 0
}
