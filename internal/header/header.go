// Package header implements 80-byte block header parsing, compact-target
// decoding, Proof-of-Work checking, cumulative-work accounting, and
// header-chain linkage verification for the SPV core.
package header

import (
	"math/big"

	"github.com/utxospv/spvcore/internal/bhash"
	"github.com/utxospv/spvcore/internal/core"
)

// Size is the fixed wire length of a block header.
const Size = 80

// GenesisTimestamp is the earliest timestamp any valid header can carry.
const GenesisTimestamp = 1231006505

// MaxFutureDrift bounds how far into the future a header's timestamp may sit.
const MaxFutureDrift = 7200

// DifficultyTolerance is the default factor applied to the reference
// target to derive the dynamic/static difficulty floor (roughly three
// maximum downward retargets). A VerifierContext starts with this value
// and an operator may override it via Config.DifficultyTolerance.
const DifficultyTolerance = 8

// Header is a decoded 80-byte block header. PrevBlock and MerkleRoot are
// kept in their internal (hashing) byte order; callers reverse them only
// for display.
type Header struct {
	Version    uint32
	PrevBlock  [32]byte
	MerkleRoot [32]byte
	Timestamp  uint32
	Bits       uint32
	Nonce      uint32

	raw [Size]byte
}

// Parse decodes an 80-byte header. Any other length is rejected.
func Parse(b []byte) (Header, error) {
	if len(b) != Size {
		return Header{}, core.Newf(core.KindDecode, "HEADER_BAD_LENGTH", "header must be %d bytes, got %d", Size, len(b))
	}
	var h Header
	copy(h.raw[:], b)
	h.Version = leU32(b[0:4])
	copy(h.PrevBlock[:], b[4:36])
	copy(h.MerkleRoot[:], b[36:68])
	h.Timestamp = leU32(b[68:72])
	h.Bits = leU32(b[72:76])
	h.Nonce = leU32(b[76:80])
	return h, nil
}

// Bytes returns the original 80-byte wire encoding.
func (h Header) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, h.raw[:])
	return out
}

// Hash returns hash256(header) in internal byte order. Reverse32 it before
// displaying or comparing against a user-facing hex hash.
func (h Header) Hash() [32]byte {
	return bhash.Hash256(h.raw[:])
}

func leU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// Target decodes the header's nBits field into a 256-bit target, per
// nBits = EE·2^24 + M, target = M >> 8(3-EE) when EE <= 3, else M << 8(EE-3).
func Target(nBits uint32) *big.Int {
	exp := nBits >> 24
	mantissa := big.NewInt(int64(nBits & 0x007fffff))

	target := new(big.Int)
	switch {
	case exp <= 3:
		target.Rsh(mantissa, uint(8*(3-exp)))
	default:
		target.Lsh(mantissa, uint(8*(exp-3)))
	}
	return target
}

// maxTarget is 2^256 - 1, the ceiling any decoded target is bounded to.
var maxTarget = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// BoundedTarget is Target clamped to [0, 2^256-1].
func BoundedTarget(nBits uint32) *big.Int {
	t := Target(nBits)
	if t.Cmp(maxTarget) > 0 {
		return new(big.Int).Set(maxTarget)
	}
	if t.Sign() < 0 {
		return big.NewInt(0)
	}
	return t
}

var twoToThe256 = new(big.Int).Lsh(big.NewInt(1), 256)

// Work computes the per-block work w = floor(2^256 / (target+1)).
func Work(target *big.Int) *big.Int {
	denom := new(big.Int).Add(target, big.NewInt(1))
	return new(big.Int).Quo(twoToThe256, denom)
}

// CheckPoW reports whether hash256(header), read big-endian in its display
// (byte-reversed) order, is <= target.
func CheckPoW(h Header) bool {
	hash := bhash.Reverse32(h.Hash())
	hashInt := new(big.Int).SetBytes(hash[:])
	target := BoundedTarget(h.Bits)
	return hashInt.Cmp(target) <= 0
}

// CheckTimestamp rejects headers outside [GenesisTimestamp, now+MaxFutureDrift].
func CheckTimestamp(h Header, now int64) error {
	if int64(h.Timestamp) < GenesisTimestamp {
		return core.Newf(core.KindPolicy, "TIMESTAMP_TOO_EARLY", "timestamp %d predates genesis", h.Timestamp)
	}
	if int64(h.Timestamp) > now+MaxFutureDrift {
		return core.Newf(core.KindPolicy, "TIMESTAMP_TOO_LATE", "timestamp %d exceeds now+%d", h.Timestamp, MaxFutureDrift)
	}
	return nil
}

// CheckDifficultyFloor rejects a header whose target exceeds tolerance
// times the reference target (the easier direction — a larger target
// means lower difficulty). Callers normally source tolerance from a
// VerifierContext's Tolerance method rather than hardcoding it.
func CheckDifficultyFloor(h Header, referenceTarget *big.Int, tolerance int64) error {
	floor := new(big.Int).Mul(referenceTarget, big.NewInt(tolerance))
	target := BoundedTarget(h.Bits)
	if target.Cmp(floor) > 0 {
		return core.New(core.KindPolicy, "DIFFICULTY_BELOW_FLOOR", "header target exceeds the difficulty floor")
	}
	return nil
}
