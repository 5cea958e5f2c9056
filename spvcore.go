// Package spvcore composes the internal envelope, header, and
// transaction-builder packages into three pure entrypoints:
// ParseAndValidateEnvelope, VerifyHeaderChain, and
// BuildAndSignTransaction. It is the single import surface
// cmd/spv-core (and any other embedder) is expected to use; every other
// package under internal/ is an implementation detail.
package spvcore

import (
	"encoding/hex"

	"github.com/utxospv/spvcore/internal/becdsa"
	"github.com/utxospv/spvcore/internal/envelope"
	"github.com/utxospv/spvcore/internal/header"
	"github.com/utxospv/spvcore/internal/txbuild"
)

// FeePolicy bounds a build's dust threshold and maximum fee fraction.
type FeePolicy struct {
	DustThreshold  uint64
	MaxFeeFraction float64
}

// DefaultFeePolicy returns this ledger's compiled-in dust threshold and
// fee cap.
func DefaultFeePolicy() FeePolicy {
	return FeePolicy{DustThreshold: txbuild.DustThreshold, MaxFeeFraction: txbuild.MaxFeeFraction}
}

// FeeSpec selects one build's fee: either a flat per-byte rate applied to
// the estimated transaction size, or an explicit satoshi amount the
// caller has already computed.
type FeeSpec struct {
	RatePerByte uint64
	ExplicitFee uint64
	UseExplicit bool
}

// MainnetCheckpoint is the compiled-in trust anchor: the superset of the
// two coexisting checkpoint revisions noted in the open questions, height
// plus hash plus nBits. Re-implementers may swap this constant out, but
// it is the only thing a deployment is expected to configure.
var MainnetCheckpoint = header.Checkpoint{
	Height: 935_000,
	Hash:   mustHash32("000000000000000000adfe36f6bf7e60c2db8e68f4feeaa10de70ccd7c94cb79"),
	Bits:   0x170e0408,
}

func mustHash32(hexStr string) [32]byte {
	b, err := hex.DecodeString(hexStr)
	if err != nil || len(b) != 32 {
		panic("spvcore: invalid checkpoint hash constant")
	}
	var out [32]byte
	copy(out[:], b)
	return out
}

// NewVerifierContext builds a fresh VerifierContext anchored to cp.
func NewVerifierContext(cp header.Checkpoint) *header.VerifierContext {
	return header.NewVerifierContext(cp)
}

// ParseAndValidateEnvelope runs the full ordered validation sequence over a
// JSON-encoded merkle-envelope. chain may be nil if no header chain has
// been loaded.
func ParseAndValidateEnvelope(b []byte, ctx *header.VerifierContext, chain *header.Chain) (*envelope.Envelope, error) {
	return envelope.Parse(b, ctx, chain)
}

// VerifyHeaderChain parses a binary header-chain file and verifies its
// linkage and Proof-of-Work against ctx's current reference target,
// updating ctx's dynamic floor from the tip on success.
func VerifyHeaderChain(b []byte, ctx *header.VerifierContext) (*header.Chain, error) {
	chain, err := header.ParseChainFile(b)
	if err != nil {
		return nil, err
	}
	if err := header.VerifyChain(chain, ctx); err != nil {
		return nil, err
	}
	return chain, nil
}

// BuildAndSignTransaction assembles, signs, and serializes a spend of
// every UTXO named by envelopes using wifKey, producing the broadcastable
// transaction hex. fee selects the per-byte or explicit fee; policy
// bounds the dust threshold and fee cap applied to it.
func BuildAndSignTransaction(envelopes []*envelope.Envelope, wifKey becdsa.WIFKey, destAddr string, amount uint64, fee FeeSpec, policy FeePolicy) (string, error) {
	return txbuild.Build(envelopes, wifKey, destAddr, amount,
		txbuild.FeeSpec{RatePerByte: fee.RatePerByte, ExplicitFee: fee.ExplicitFee, UseExplicit: fee.UseExplicit},
		txbuild.Policy{DustThreshold: policy.DustThreshold, MaxFeeFraction: policy.MaxFeeFraction})
}
