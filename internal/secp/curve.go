// Package secp implements secp256k1 field and group arithmetic: the curve
// y² = x³ + 7 mod p, affine point addition/doubling, scalar multiplication
// by Montgomery ladder, and compressed/uncompressed point serialization.
// There is no dependency on an elliptic-curve library here by design — the
// whole point of this package is to do the arithmetic itself.
package secp

import (
	"math/big"

	"github.com/utxospv/spvcore/internal/core"
)

// P is the field prime, N is the order of the base point G, and Gx/Gy are
// G's affine coordinates. These are the standard secp256k1 domain
// parameters.
var (
	P  = mustHex("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEFFFFFC2F")
	N  = mustHex("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEBAAEDCE6AF48A03BBFD25E8CD0364141")
	Gx = mustHex("79BE667EF9DCBBAC55A06295CE870B07029BFCDB2DCE28D959F2815B16F81798")
	Gy = mustHex("483ADA7726A3C4655DA4FBFC0E1108A8FD17B448A68554199C47D08FFB10D4B8")
)

func mustHex(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("secp: invalid domain constant " + s)
	}
	return v
}

// Point is an affine point on the curve. Infinity is represented by X == nil
// (Y is then meaningless).
type Point struct {
	X, Y *big.Int
}

// Infinity is the group identity element, O.
func Infinity() Point { return Point{} }

// IsInfinity reports whether p is the identity element.
func (p Point) IsInfinity() bool { return p.X == nil }

// Generator returns the base point G.
func Generator() Point {
	return Point{X: new(big.Int).Set(Gx), Y: new(big.Int).Set(Gy)}
}

// Equal reports whether p and q denote the same point.
func (p Point) Equal(q Point) bool {
	if p.IsInfinity() || q.IsInfinity() {
		return p.IsInfinity() == q.IsInfinity()
	}
	return p.X.Cmp(q.X) == 0 && p.Y.Cmp(q.Y) == 0
}

// IsOnCurve reports whether p satisfies y² = x³ + 7 mod P. Infinity is
// considered on-curve by convention.
func (p Point) IsOnCurve() bool {
	if p.IsInfinity() {
		return true
	}
	lhs := new(big.Int).Mul(p.Y, p.Y)
	lhs.Mod(lhs, P)

	rhs := new(big.Int).Mul(p.X, p.X)
	rhs.Mul(rhs, p.X)
	rhs.Add(rhs, big.NewInt(7))
	rhs.Mod(rhs, P)

	return lhs.Cmp(rhs) == 0
}

// Add computes p+q in affine coordinates, handling the identity and
// doubling special cases.
func Add(p, q Point) Point {
	if p.IsInfinity() {
		return q
	}
	if q.IsInfinity() {
		return p
	}
	if p.X.Cmp(q.X) == 0 {
		if p.Y.Cmp(q.Y) != 0 || p.Y.Sign() == 0 {
			// p == -q: sum is the identity.
			return Infinity()
		}
		return double(p)
	}

	// slope = (q.Y - p.Y) / (q.X - p.X) mod P
	num := new(big.Int).Sub(q.Y, p.Y)
	den := new(big.Int).Sub(q.X, p.X)
	den.Mod(den, P)
	denInv := new(big.Int).ModInverse(den, P)
	slope := new(big.Int).Mul(num, denInv)
	slope.Mod(slope, P)

	return affineFromSlope(p, q.X, slope)
}

func double(p Point) Point {
	if p.IsInfinity() || p.Y.Sign() == 0 {
		return Infinity()
	}
	// slope = (3x²) / (2y) mod P
	num := new(big.Int).Mul(p.X, p.X)
	num.Mul(num, big.NewInt(3))
	den := new(big.Int).Lsh(p.Y, 1)
	den.Mod(den, P)
	denInv := new(big.Int).ModInverse(den, P)
	slope := new(big.Int).Mul(num, denInv)
	slope.Mod(slope, P)

	return affineFromSlope(p, p.X, slope)
}

// affineFromSlope finishes an addition/doubling given the slope and the
// second point's x coordinate (equal to p.X for doubling).
func affineFromSlope(p Point, qx *big.Int, slope *big.Int) Point {
	x3 := new(big.Int).Mul(slope, slope)
	x3.Sub(x3, p.X)
	x3.Sub(x3, qx)
	x3.Mod(x3, P)

	y3 := new(big.Int).Sub(p.X, x3)
	y3.Mul(y3, slope)
	y3.Sub(y3, p.Y)
	y3.Mod(y3, P)

	return Point{X: x3, Y: y3}
}

// ScalarMult computes k*p using a fixed-pattern Montgomery ladder so that
// the sequence of point operations does not depend on the bits of k. The
// modular inverse used inside each Add/double call is not itself
// constant-time (math/big's ModInverse is variable-time) — acceptable for
// an air-gapped, single-shot signing tool with no remote timing oracle.
func ScalarMult(k *big.Int, p Point) Point {
	if k.Sign() == 0 || p.IsInfinity() {
		return Infinity()
	}
	k = new(big.Int).Mod(k, N)

	r0 := Infinity()
	r1 := p
	for i := k.BitLen() - 1; i >= 0; i-- {
		if k.Bit(i) == 0 {
			r1 = Add(r0, r1)
			r0 = double(r0)
		} else {
			r0 = Add(r0, r1)
			r1 = double(r1)
		}
	}
	return r0
}

// ScalarBaseMult computes k*G.
func ScalarBaseMult(k *big.Int) Point {
	return ScalarMult(k, Generator())
}

// Decompress recovers the full point from x and the sign of y encoded in
// prefix (0x02 for even y, 0x03 for odd y), by solving y² = x³ + 7 mod P
// and picking the root matching prefix.
func Decompress(prefix byte, x *big.Int) (Point, error) {
	if prefix != 0x02 && prefix != 0x03 {
		return Point{}, core.Newf(core.KindDecode, "POINT_BAD_PREFIX", "invalid compressed point prefix 0x%02x", prefix)
	}
	rhs := new(big.Int).Mul(x, x)
	rhs.Mul(rhs, x)
	rhs.Add(rhs, big.NewInt(7))
	rhs.Mod(rhs, P)

	y := new(big.Int).ModSqrt(rhs, P)
	if y == nil {
		return Point{}, core.New(core.KindDecode, "POINT_NOT_ON_CURVE", "x has no square root mod p")
	}

	wantOdd := prefix == 0x03
	if y.Bit(0) == 1 != wantOdd {
		y.Sub(P, y)
	}
	return Point{X: x, Y: y}, nil
}

const (
	coordLen     = 32
	compressedLen   = 1 + coordLen
	uncompressedLen = 1 + 2*coordLen
)

// EncodeCompressed serializes p as 0x02/0x03 ∥ x (33 bytes).
func EncodeCompressed(p Point) []byte {
	out := make([]byte, compressedLen)
	if p.Y.Bit(0) == 1 {
		out[0] = 0x03
	} else {
		out[0] = 0x02
	}
	p.X.FillBytes(out[1:])
	return out
}

// EncodeUncompressed serializes p as 0x04 ∥ x ∥ y (65 bytes).
func EncodeUncompressed(p Point) []byte {
	out := make([]byte, uncompressedLen)
	out[0] = 0x04
	p.X.FillBytes(out[1:1+coordLen])
	p.Y.FillBytes(out[1+coordLen:])
	return out
}

// DecodePoint parses a compressed or uncompressed public key, verifying it
// lies on the curve.
func DecodePoint(b []byte) (Point, error) {
	if len(b) == compressedLen && (b[0] == 0x02 || b[0] == 0x03) {
		x := new(big.Int).SetBytes(b[1:])
		if x.Cmp(P) >= 0 {
			return Point{}, core.New(core.KindDecode, "POINT_X_OUT_OF_RANGE", "x coordinate exceeds field prime")
		}
		return Decompress(b[0], x)
	}
	if len(b) == uncompressedLen && b[0] == 0x04 {
		x := new(big.Int).SetBytes(b[1 : 1+coordLen])
		y := new(big.Int).SetBytes(b[1+coordLen:])
		p := Point{X: x, Y: y}
		if !p.IsOnCurve() {
			return Point{}, core.New(core.KindDecode, "POINT_NOT_ON_CURVE", "uncompressed point fails curve equation")
		}
		return p, nil
	}
	return Point{}, core.Newf(core.KindDecode, "POINT_BAD_LENGTH", "public key has unexpected length %d", len(b))
}
