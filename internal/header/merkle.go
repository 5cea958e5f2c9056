package header

import (
	"github.com/utxospv/spvcore/internal/benc"
	"github.com/utxospv/spvcore/internal/bhash"
	"github.com/utxospv/spvcore/internal/core"
)

// MaxProofDepth bounds a Merkle proof's length.
const MaxProofDepth = 64

// ProofStep is one level of a Merkle path: the sibling hash (internal byte
// order), or IsDuplicate for the "*" placeholder used to fold an odd row,
// and which side the sibling sits on.
type ProofStep struct {
	Sibling     [32]byte
	IsDuplicate bool
	Right       bool // true if sibling is on the right (pos == "R")
}

// ReplayMerklePath starts from reverse(txid) and folds each proof step,
// returning the resulting root in internal byte order. It rejects proofs
// longer than MaxProofDepth and, per the CVE-2012-2459 duplicate-sibling
// defense, proofs where two adjacent steps carry identical sibling hashes.
func ReplayMerklePath(txid [32]byte, proof []ProofStep) ([32]byte, error) {
	if len(proof) > MaxProofDepth {
		return [32]byte{}, core.Newf(core.KindPolicy, "MERKLE_PROOF_TOO_DEEP", "proof has %d steps, cap is %d", len(proof), MaxProofDepth)
	}
	for i := 1; i < len(proof); i++ {
		if !proof[i].IsDuplicate && !proof[i-1].IsDuplicate && benc.ConstantTimeEqual(proof[i].Sibling[:], proof[i-1].Sibling[:]) {
			return [32]byte{}, core.New(core.KindPolicy, "MERKLE_DUPLICATE_SIBLING", "adjacent proof steps carry identical sibling hashes")
		}
	}

	cur := bhash.Reverse32(txid)
	for _, step := range proof {
		sibling := step.Sibling
		if step.IsDuplicate {
			sibling = cur
		}

		var concat [64]byte
		if step.Right {
			copy(concat[:32], cur[:])
			copy(concat[32:], sibling[:])
		} else {
			copy(concat[:32], sibling[:])
			copy(concat[32:], cur[:])
		}
		cur = bhash.Hash256(concat[:])
	}
	return cur, nil
}

// VerifyMerklePath reports whether replaying proof from txid yields h's
// merkle root. Both ReplayMerklePath's result and h.MerkleRoot are in
// internal (hashing) byte order, so no further reversal is needed here —
// only the leaf (txid, which arrives in display order) gets reversed,
// inside ReplayMerklePath itself.
func VerifyMerklePath(txid [32]byte, proof []ProofStep, h Header) error {
	got, err := ReplayMerklePath(txid, proof)
	if err != nil {
		return err
	}
	if !benc.ConstantTimeEqual(got[:], h.MerkleRoot[:]) {
		return core.New(core.KindIntegrity, "MERKLE_ROOT_MISMATCH", "replayed root does not match header's merkle root")
	}
	return nil
}
