// Package envelope implements the merkle-envelope schema and the 8-step
// ordered validator that binds a claimed UTXO to a proof-of-work-secured
// block.
package envelope

import (
	"encoding/json"

	"github.com/utxospv/spvcore/internal/benc"
	"github.com/utxospv/spvcore/internal/bhash"
	"github.com/utxospv/spvcore/internal/core"
	"github.com/utxospv/spvcore/internal/header"
	"github.com/utxospv/spvcore/internal/txmodel"
)

// MaxSatoshis is the ledger-wide supply cap; no declared or observed value
// may exceed it.
const MaxSatoshis = 2_100_000_000_000_000

const (
	expectFormat  = "merkle-envelope"
	expectVersion = 1
)

// rawProofStep is the wire shape of one Merkle proof step before decoding.
type rawProofStep struct {
	Hash string `json:"hash"`
	Pos  string `json:"pos"`
}

// rawEnvelope is the wire JSON shape of a merkle-envelope, field order
// irrelevant.
type rawEnvelope struct {
	Format        string         `json:"format"`
	Version       int            `json:"version"`
	TxID          string         `json:"txid"`
	Vout          uint32         `json:"vout"`
	Satoshis      uint64         `json:"satoshis"`
	RawTx         string         `json:"rawTx"`
	BlockHash     *string        `json:"blockHash"`
	BlockHeader   string         `json:"blockHeader"`
	Proof         []rawProofStep `json:"proof"`
	Confirmations *uint64        `json:"confirmations"`
}

// Envelope is a validated, immutable merkle-envelope. Once returned from
// Parse it must be treated as read-only.
type Envelope struct {
	TxID          [32]byte
	Vout          uint32
	Satoshis      uint64
	RawTx         []byte
	Tx            txmodel.Tx
	BlockHash     *[32]byte
	BlockHeader   header.Header
	Proof         []header.ProofStep
	Confirmations *uint64

	PubKeyHash [20]byte
}

// Parse runs the full 8-step validation sequence over the JSON-encoded
// envelope in b, short-circuiting on the first failure. ctx supplies the
// difficulty floor and, if a chain was loaded, the membership index.
func Parse(b []byte, ctx *header.VerifierContext, chain *header.Chain) (*Envelope, error) {
	var raw rawEnvelope
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, core.Newf(core.KindSchema, "ENVELOPE_BAD_JSON", "invalid JSON: %v", err)
	}
	if err := validateSchema(raw); err != nil {
		return nil, err
	}

	txidBytes, err := benc.DecodeHexExact(raw.TxID, 32, "txid")
	if err != nil {
		return nil, err
	}
	var txid [32]byte
	copy(txid[:], txidBytes)

	rawTx, err := benc.DecodeHex(raw.RawTx)
	if err != nil {
		return nil, err
	}

	headerBytes, err := benc.DecodeHexExact(raw.BlockHeader, header.Size, "blockHeader")
	if err != nil {
		return nil, err
	}

	var blockHash *[32]byte
	if raw.BlockHash != nil {
		bhBytes, err := benc.DecodeHexExact(*raw.BlockHash, 32, "blockHash")
		if err != nil {
			return nil, err
		}
		var bh [32]byte
		copy(bh[:], bhBytes)
		blockHash = &bh
	}

	proof, err := decodeProof(raw.Proof)
	if err != nil {
		return nil, err
	}

	// Step 3: parse rawTx, recompute txid, require equality.
	tx, err := txmodel.Parse(rawTx)
	if err != nil {
		return nil, err
	}
	computedTxID := txmodel.TxID(tx)
	if !benc.ConstantTimeEqual(computedTxID[:], txid[:]) {
		return nil, core.New(core.KindIntegrity, "TXID_MISMATCH", "recomputed txid does not match declared txid")
	}

	// Step 4: vout range + P2PKH extraction.
	if int(raw.Vout) >= len(tx.Outputs) {
		return nil, core.Newf(core.KindIntegrity, "VOUT_OUT_OF_RANGE", "vout %d >= %d outputs", raw.Vout, len(tx.Outputs))
	}
	out := tx.Outputs[raw.Vout]
	pubKeyHash, err := txmodel.ExtractP2PKHHash(out.PkScript)
	if err != nil {
		return nil, err
	}

	// Step 5: value equality + bounds.
	if out.Value != raw.Satoshis {
		return nil, core.New(core.KindIntegrity, "VALUE_MISMATCH", "output value does not match declared satoshis")
	}
	if raw.Satoshis == 0 || raw.Satoshis > MaxSatoshis {
		return nil, core.Newf(core.KindPolicy, "SATOSHIS_OUT_OF_RANGE", "satoshis %d outside (0, %d]", raw.Satoshis, MaxSatoshis)
	}

	hdr, err := header.Parse(headerBytes)
	if err != nil {
		return nil, err
	}

	if blockHash != nil {
		computedBlockHash := bhash.Reverse32(hdr.Hash())
		if !benc.ConstantTimeEqual(computedBlockHash[:], blockHash[:]) {
			return nil, core.New(core.KindIntegrity, "BLOCK_HASH_MISMATCH", "declared blockHash does not match blockHeader")
		}
	}

	// Step 6: Proof-of-Work with floor.
	referenceTarget := ctx.ReferenceTarget()
	if err := header.CheckDifficultyFloor(hdr, referenceTarget, ctx.Tolerance()); err != nil {
		return nil, err
	}
	if err := header.CheckTimestamp(hdr, ctx.Now()); err != nil {
		return nil, err
	}
	if !header.CheckPoW(hdr) {
		return nil, core.New(core.KindIntegrity, "POW_FAILED", "blockHeader fails proof-of-work")
	}

	// Step 7: Merkle replay with duplicate-sibling guard and depth cap.
	if err := header.VerifyMerklePath(txid, proof, hdr); err != nil {
		return nil, err
	}

	// Step 8: chain membership, if a chain is loaded.
	if chain != nil {
		if !chain.Contains(hdr.Hash()) {
			return nil, core.New(core.KindIntegrity, "HEADER_NOT_IN_CHAIN", "blockHeader does not appear in the loaded chain")
		}
	}

	return &Envelope{
		TxID:          txid,
		Vout:          raw.Vout,
		Satoshis:      raw.Satoshis,
		RawTx:         rawTx,
		Tx:            tx,
		BlockHash:     blockHash,
		BlockHeader:   hdr,
		Proof:         proof,
		Confirmations: raw.Confirmations,
		PubKeyHash:    pubKeyHash,
	}, nil
}

func validateSchema(raw rawEnvelope) error {
	if raw.Format != expectFormat {
		return core.Newf(core.KindSchema, "ENVELOPE_BAD_FORMAT", "format must be %q", expectFormat)
	}
	if raw.Version != expectVersion {
		return core.Newf(core.KindSchema, "ENVELOPE_BAD_VERSION", "version must be %d", expectVersion)
	}
	if raw.TxID == "" || raw.RawTx == "" || raw.BlockHeader == "" {
		return core.New(core.KindSchema, "ENVELOPE_MISSING_FIELD", "txid, rawTx, and blockHeader are required")
	}
	if raw.Satoshis == 0 {
		return core.New(core.KindSchema, "ENVELOPE_MISSING_FIELD", "satoshis is required")
	}
	return nil
}

func decodeProof(steps []rawProofStep) ([]header.ProofStep, error) {
	if len(steps) > header.MaxProofDepth {
		return nil, core.Newf(core.KindPolicy, "MERKLE_PROOF_TOO_DEEP", "proof has %d steps, cap is %d", len(steps), header.MaxProofDepth)
	}
	out := make([]header.ProofStep, len(steps))
	for i, s := range steps {
		var step header.ProofStep
		switch s.Pos {
		case "L":
			step.Right = false
		case "R":
			step.Right = true
		default:
			return nil, core.Newf(core.KindSchema, "PROOF_BAD_POS", "proof step %d: pos must be L or R", i)
		}
		if s.Hash == "*" {
			step.IsDuplicate = true
		} else {
			hb, err := benc.DecodeHexExact(s.Hash, 32, "proof hash")
			if err != nil {
				return nil, err
			}
			copy(step.Sibling[:], hb)
		}
		out[i] = step
	}
	return out, nil
}
