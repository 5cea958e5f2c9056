package header

import (
	"testing"

	"github.com/utxospv/spvcore/internal/bhash"
)

// buildSingleStepProof constructs a one-step Merkle proof and the resulting
// header so VerifyMerklePath has something consistent to replay against.
func buildSingleStepProof(txid, sibling [32]byte, right bool) (Header, []ProofStep) {
	step := ProofStep{Sibling: sibling, Right: right}
	root, _ := ReplayMerklePath(txid, []ProofStep{step})
	h := Header{MerkleRoot: root}
	return h, []ProofStep{step}
}

func TestReplayMerklePathSingleLeaf(t *testing.T) {
	var txid [32]byte
	txid[0] = 0xaa
	root, err := ReplayMerklePath(txid, nil)
	if err != nil {
		t.Fatalf("ReplayMerklePath: %v", err)
	}
	if root != bhash.Reverse32(txid) {
		t.Fatal("empty proof should return the leaf itself")
	}
}

func TestVerifyMerklePathAccepts(t *testing.T) {
	var txid, sibling [32]byte
	txid[0] = 0x01
	sibling[0] = 0x02

	h, proof := buildSingleStepProof(txid, sibling, true)
	if err := VerifyMerklePath(txid, proof, h); err != nil {
		t.Fatalf("VerifyMerklePath: %v", err)
	}
}

func TestVerifyMerklePathRejectsMutatedRoot(t *testing.T) {
	var txid, sibling [32]byte
	txid[0] = 0x01
	sibling[0] = 0x02

	h, proof := buildSingleStepProof(txid, sibling, true)
	h.MerkleRoot[0] ^= 0xff

	if err := VerifyMerklePath(txid, proof, h); err == nil {
		t.Fatal("expected mismatch after mutating the merkle root")
	}
}

func TestReplayMerklePathDuplicateFolding(t *testing.T) {
	var txid [32]byte
	txid[0] = 0x03
	step := ProofStep{IsDuplicate: true, Right: true}
	root, err := ReplayMerklePath(txid, []ProofStep{step})
	if err != nil {
		t.Fatalf("ReplayMerklePath: %v", err)
	}

	leaf := bhash.Reverse32(txid)
	var concat [64]byte
	copy(concat[:32], leaf[:])
	copy(concat[32:], leaf[:])
	want := bhash.Hash256(concat[:])
	if root != want {
		t.Fatal("duplicate-sibling folding did not hash leaf against itself")
	}
}

func TestReplayMerklePathRejectsAdjacentDuplicateSiblings(t *testing.T) {
	var txid, sibling [32]byte
	txid[0] = 0x04
	sibling[0] = 0x05

	proof := []ProofStep{
		{Sibling: sibling, Right: true},
		{Sibling: sibling, Right: false},
	}
	if _, err := ReplayMerklePath(txid, proof); err == nil {
		t.Fatal("expected CVE-2012-2459 duplicate-sibling rejection")
	}
}

func TestReplayMerklePathRejectsOverDepth(t *testing.T) {
	var txid [32]byte
	proof := make([]ProofStep, MaxProofDepth+1)
	for i := range proof {
		proof[i] = ProofStep{IsDuplicate: true}
	}
	if _, err := ReplayMerklePath(txid, proof); err == nil {
		t.Fatal("expected depth-cap rejection")
	}
}

func TestReplayMerklePathAllowsExactDepthCap(t *testing.T) {
	var txid [32]byte
	proof := make([]ProofStep, MaxProofDepth)
	for i := range proof {
		proof[i] = ProofStep{IsDuplicate: true}
	}
	if _, err := ReplayMerklePath(txid, proof); err != nil {
		t.Fatalf("unexpected rejection at exact depth cap: %v", err)
	}
}
