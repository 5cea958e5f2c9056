// Package txbuild implements the one-shot spend-transaction assembly and
// signing pipeline: address decoding, fee policy, unsigned-skeleton
// construction, per-input signing, and final reserialization.
package txbuild

import (
	"github.com/utxospv/spvcore/internal/becdsa"
	"github.com/utxospv/spvcore/internal/benc"
	"github.com/utxospv/spvcore/internal/bhash"
	"github.com/utxospv/spvcore/internal/core"
	"github.com/utxospv/spvcore/internal/envelope"
	"github.com/utxospv/spvcore/internal/secp"
	"github.com/utxospv/spvcore/internal/sighash"
	"github.com/utxospv/spvcore/internal/txmodel"
)

// DustThreshold is the default minimum non-dust output value in satoshis.
const DustThreshold = 546

// MaxFeeFraction is the default bound on the fee as a fraction of total
// input value, a sanity guard against an accidental order-of-magnitude fee.
const MaxFeeFraction = 0.10

const addressVersion = 0x00

// Policy bounds a build's dust threshold and maximum fee fraction.
// DefaultPolicy reproduces this package's compiled-in constants;
// operators may override either field from a loaded Config.
type Policy struct {
	DustThreshold  uint64
	MaxFeeFraction float64
}

// DefaultPolicy returns the compiled-in dust threshold and fee cap.
func DefaultPolicy() Policy {
	return Policy{DustThreshold: DustThreshold, MaxFeeFraction: MaxFeeFraction}
}

// FeeSpec selects one build's fee: either a flat per-byte rate applied to
// the estimated transaction size, or an explicit satoshi amount the
// caller has already computed. UseExplicit chooses between them so a
// zero ExplicitFee is distinguishable from "not set".
type FeeSpec struct {
	RatePerByte uint64
	ExplicitFee uint64
	UseExplicit bool
}

// State is the one-shot signing session's lifecycle stage.
type State int

const (
	StateLoaded State = iota
	StateValidated
	StateComposed
	StateSigned
	StateEmitted
	StateRejected
)

// DecodeAddress Base58Check-decodes addr, requiring version 0x00, and
// returns the embedded public-key hash.
func DecodeAddress(addr string) ([20]byte, error) {
	var hash [20]byte
	version, payload, err := benc.Base58CheckDecode(addr)
	if err != nil {
		return hash, err
	}
	if version != addressVersion {
		return hash, core.Newf(core.KindInput, "ADDRESS_BAD_VERSION", "expected version 0x%02x, got 0x%02x", addressVersion, version)
	}
	if len(payload) != 20 {
		return hash, core.Newf(core.KindInput, "ADDRESS_BAD_LENGTH", "expected 20-byte payload, got %d", len(payload))
	}
	copy(hash[:], payload)
	return hash, nil
}

// ChangeAddressHash derives the signer's own P2PKH hash from their
// compressed public key, for use as the change output.
func ChangeAddressHash(compressedPubKey []byte) [20]byte {
	return bhash.Hash160(compressedPubKey)
}

// resolveFee computes the fee to charge for this build, either a flat
// per-byte rate applied to the estimated transaction size or the caller's
// explicit amount, bounded in both cases to at most maxFeeFraction of
// totalInput.
func resolveFee(spec FeeSpec, numInputs, numOutputs int, totalInput uint64, maxFeeFraction float64) (uint64, error) {
	fee := spec.ExplicitFee
	if !spec.UseExplicit {
		fee = spec.RatePerByte * estimatedTxSize(numInputs, numOutputs)
	}
	feeCap := uint64(float64(totalInput) * maxFeeFraction)
	if fee > feeCap {
		return 0, core.Newf(core.KindPolicy, "FEE_EXCEEDS_CAP", "fee %d exceeds %.0f%% of input value (%d)", fee, maxFeeFraction*100, feeCap)
	}
	return fee, nil
}

// estimatedTxSize is a rough serialized-size estimate used only for flat
// fee-rate computation: 10 bytes overhead, ~148 bytes per signed P2PKH
// input, ~34 bytes per output.
func estimatedTxSize(numInputs, numOutputs int) uint64 {
	return uint64(10 + 148*numInputs + 34*numOutputs)
}

// Build assembles, signs, and serializes a spend of every UTXO named by
// envelopes using wifKey, paying amount satoshis to destAddr with any
// change returned to the signer, at the fee feeSpec selects, bounded by
// policy's dust threshold and fee cap. All envelopes must already be
// validated; all spent outputs must share one key (wifKey). The secret
// scalar is zeroed before Build returns on every exit path.
func Build(envelopes []*envelope.Envelope, wifKey becdsa.WIFKey, destAddr string, amount uint64, feeSpec FeeSpec, policy Policy) (string, error) {
	defer wifKey.Scalar.Zero()

	if len(envelopes) == 0 {
		return "", core.New(core.KindInput, "NO_INPUTS", "at least one envelope is required")
	}
	if err := checkUniqueOutpoints(envelopes); err != nil {
		return "", err
	}

	destHash, err := DecodeAddress(destAddr)
	if err != nil {
		return "", err
	}
	if amount <= policy.DustThreshold {
		return "", core.Newf(core.KindInput, "AMOUNT_BELOW_DUST", "amount %d at or below dust threshold %d", amount, policy.DustThreshold)
	}

	d := wifKey.Scalar.Int()
	pub := secp.ScalarBaseMult(d)
	compressedPub := secp.EncodeCompressed(pub)
	changeHash := ChangeAddressHash(compressedPub)

	var totalInput uint64
	for _, e := range envelopes {
		totalInput += e.Satoshis
	}
	if amount > totalInput {
		return "", core.Newf(core.KindInput, "INSUFFICIENT_FUNDS", "amount %d exceeds total input %d", amount, totalInput)
	}

	numOutputs := 2
	fee, err := resolveFee(feeSpec, len(envelopes), numOutputs, totalInput, policy.MaxFeeFraction)
	if err != nil {
		return "", err
	}
	if amount+fee > totalInput {
		return "", core.New(core.KindInput, "INSUFFICIENT_FUNDS", "amount plus fee exceeds total input")
	}
	change := totalInput - amount - fee

	outputs := []txmodel.TxOut{
		{Value: amount, PkScript: txmodel.BuildP2PKHScript(destHash)},
	}
	if change > policy.DustThreshold {
		outputs = append(outputs, txmodel.TxOut{Value: change, PkScript: txmodel.BuildP2PKHScript(changeHash)})
	}
	// Dust change is folded into the fee by simply omitting the output.

	inputs := make([]txmodel.TxIn, len(envelopes))
	for i, e := range envelopes {
		inputs[i] = txmodel.TxIn{
			PrevOut:  txmodel.OutPoint{TxID: bhash.Reverse32(e.TxID), Vout: e.Vout},
			Sequence: 0xFFFFFFFF,
		}
	}

	tx := txmodel.Tx{Version: 1, Inputs: inputs, Outputs: outputs, LockTime: 0}

	for i, e := range envelopes {
		z := sighash.Hash(tx, i, e.PubKeyHash, e.Satoshis)
		r, s, err := becdsa.Sign(d, z[:])
		if err != nil {
			return "", err
		}
		der := becdsa.EncodeDER(r, s)
		sigWithType := append(der, byte(sighash.Type))

		scriptSig := make([]byte, 0, 1+len(sigWithType)+1+len(compressedPub))
		scriptSig = append(scriptSig, byte(len(sigWithType)))
		scriptSig = append(scriptSig, sigWithType...)
		scriptSig = append(scriptSig, byte(len(compressedPub)))
		scriptSig = append(scriptSig, compressedPub...)
		tx.Inputs[i].ScriptSig = scriptSig

		if !becdsa.Verify(pub, z[:], r, s) {
			return "", core.Newf(core.KindCrypto, "SELF_VERIFY_FAILED", "signature for input %d failed self-verification", i)
		}
	}

	return benc.EncodeHex(txmodel.Serialize(tx)), nil
}

func checkUniqueOutpoints(envelopes []*envelope.Envelope) error {
	seen := make(map[[32]byte]map[uint32]bool)
	for _, e := range envelopes {
		if seen[e.TxID] == nil {
			seen[e.TxID] = make(map[uint32]bool)
		}
		if seen[e.TxID][e.Vout] {
			return core.New(core.KindPolicy, "DUPLICATE_OUTPOINT", "envelope set contains a duplicate (txid, vout)")
		}
		seen[e.TxID][e.Vout] = true
	}
	return nil
}
