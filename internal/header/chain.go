package header

import (
	"math/big"

	"github.com/utxospv/spvcore/internal/benc"
	"github.com/utxospv/spvcore/internal/core"
)

// Chain is a verified, dense sequence of headers anchored at a known
// height/hash, along with its accumulated cumulative work and a hash
// index for membership checks.
type Chain struct {
	AnchorHeight   uint32
	AnchorHash     [32]byte
	Headers        []Header
	CumulativeWork *big.Int

	hashIndex map[[32]byte]int
}

// Contains reports whether hash256(header) appears anywhere in the chain.
func (c *Chain) Contains(hash [32]byte) bool {
	_, ok := c.hashIndex[hash]
	return ok
}

// Tip returns the chain's last header. Callers must not call Tip on an
// empty chain; ParseChainFile never produces one.
func (c *Chain) Tip() Header {
	return c.Headers[len(c.Headers)-1]
}

// maxHeaderCount bounds a chain file's declared header count against
// pathological/corrupted length prefixes before allocating.
const maxHeaderCount = 1 << 20

// ParseChainFile decodes a header-chain file: anchorHeight(4 LE) ∥
// anchorHash(32) ∥ headerCount(4 LE) ∥ header[0]..header[N-1], each header
// exactly 80 raw bytes. It does not itself verify linkage or Proof-of-Work
// — call VerifyChain for that.
func ParseChainFile(b []byte) (*Chain, error) {
	c := benc.NewCursor(b)

	anchorHeight, err := c.ReadU32LE()
	if err != nil {
		return nil, wrapTruncated("anchor height", err)
	}
	anchorHashBytes, err := c.ReadExact(32)
	if err != nil {
		return nil, wrapTruncated("anchor hash", err)
	}
	count, err := c.ReadU32LE()
	if err != nil {
		return nil, wrapTruncated("header count", err)
	}
	if uint64(count) > maxHeaderCount {
		return nil, core.Newf(core.KindPolicy, "CHAIN_TOO_LARGE", "header count %d exceeds cap", count)
	}

	headers := make([]Header, 0, count)
	for i := uint32(0); i < count; i++ {
		raw, err := c.ReadExact(Size)
		if err != nil {
			return nil, core.Newf(core.KindDecode, "CHAIN_TRUNCATED", "truncated header at index %d", i)
		}
		h, err := Parse(raw)
		if err != nil {
			return nil, err
		}
		headers = append(headers, h)
	}
	if !c.AtEnd() {
		return nil, core.New(core.KindDecode, "CHAIN_TRAILING_DATA", "trailing bytes after last header")
	}

	var anchorHash [32]byte
	copy(anchorHash[:], anchorHashBytes)

	return &Chain{
		AnchorHeight: anchorHeight,
		AnchorHash:   anchorHash,
		Headers:      headers,
	}, nil
}

func wrapTruncated(field string, err error) error {
	if e, ok := core.As(err); ok {
		return core.Newf(core.KindDecode, "CHAIN_TRUNCATED", "%s: %s", field, e.Msg)
	}
	return err
}

// VerifyChain checks linkage and Proof-of-Work for every header in c
// against a difficulty floor derived from ctx's current reference target,
// rejecting the whole chain on the first failure. On success it updates
// ctx's dynamic floor from the tip and fills in c's cumulative work and
// hash index.
func VerifyChain(c *Chain, ctx *VerifierContext) error {
	prevHash := c.AnchorHash
	referenceTarget := ctx.ReferenceTarget()
	tolerance := ctx.Tolerance()
	now := ctx.Now()

	cumWork := big.NewInt(0)
	index := make(map[[32]byte]int, len(c.Headers))

	for i, h := range c.Headers {
		if !benc.ConstantTimeEqual(h.PrevBlock[:], prevHash[:]) {
			return core.Newf(core.KindIntegrity, "CHAIN_LINK_BROKEN", "header %d prevBlock does not match predecessor", i)
		}
		if err := CheckTimestamp(h, now); err != nil {
			return err
		}
		if err := CheckDifficultyFloor(h, referenceTarget, tolerance); err != nil {
			return err
		}
		if !CheckPoW(h) {
			return core.Newf(core.KindIntegrity, "POW_FAILED", "header %d fails proof-of-work", i)
		}

		hash := h.Hash()
		index[hash] = i
		cumWork.Add(cumWork, Work(BoundedTarget(h.Bits)))
		prevHash = hash
	}

	c.CumulativeWork = cumWork
	c.hashIndex = index

	if len(c.Headers) > 0 {
		ctx.SetDynamicFloor(c.Tip())
	}
	return nil
}
