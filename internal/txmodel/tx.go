// Package txmodel implements the minimal transaction parse/serialize
// needed by the SPV core: inputs, outputs, and the P2PKH script shapes the
// envelope validator and transaction builder work with.
package txmodel

import (
	"github.com/utxospv/spvcore/internal/benc"
	"github.com/utxospv/spvcore/internal/bhash"
	"github.com/utxospv/spvcore/internal/core"
)

// maxTxInOuts bounds the input/output counts this decoder accepts, a sanity
// cap against a maliciously large varint prefix.
const maxTxInOuts = 1 << 20

// OutPoint identifies a previous output being spent.
type OutPoint struct {
	TxID [32]byte // internal (hashing) byte order
	Vout uint32
}

// TxIn is a transaction input. ScriptSig is opaque to this package; the
// sighash builder and transaction builder interpret it.
type TxIn struct {
	PrevOut   OutPoint
	ScriptSig []byte
	Sequence  uint32
}

// TxOut is a transaction output.
type TxOut struct {
	Value    uint64
	PkScript []byte
}

// Tx is a parsed transaction. No witness data, segwit marker, or
// multi-input-type support — this ledger only needs legacy P2PKH.
type Tx struct {
	Version  uint32
	Inputs   []TxIn
	Outputs  []TxOut
	LockTime uint32
}

// Parse decodes a raw legacy transaction.
func Parse(raw []byte) (Tx, error) {
	c := benc.NewCursor(raw)

	version, err := c.ReadU32LE()
	if err != nil {
		return Tx{}, wrap("version", err)
	}

	inCount, err := c.ReadVarIntLen(maxTxInOuts, "input count")
	if err != nil {
		return Tx{}, err
	}
	inputs := make([]TxIn, 0, inCount)
	for i := 0; i < inCount; i++ {
		var in TxIn
		txidBytes, err := c.ReadExact(32)
		if err != nil {
			return Tx{}, wrap("input txid", err)
		}
		copy(in.PrevOut.TxID[:], txidBytes)

		vout, err := c.ReadU32LE()
		if err != nil {
			return Tx{}, wrap("input vout", err)
		}
		in.PrevOut.Vout = vout

		scriptLen, err := c.ReadVarIntLen(maxTxInOuts, "scriptSig length")
		if err != nil {
			return Tx{}, err
		}
		script, err := c.ReadExact(scriptLen)
		if err != nil {
			return Tx{}, wrap("scriptSig", err)
		}
		in.ScriptSig = append([]byte(nil), script...)

		sequence, err := c.ReadU32LE()
		if err != nil {
			return Tx{}, wrap("sequence", err)
		}
		in.Sequence = sequence

		inputs = append(inputs, in)
	}

	outCount, err := c.ReadVarIntLen(maxTxInOuts, "output count")
	if err != nil {
		return Tx{}, err
	}
	outputs := make([]TxOut, 0, outCount)
	for i := 0; i < outCount; i++ {
		value, err := c.ReadU64LE()
		if err != nil {
			return Tx{}, wrap("output value", err)
		}
		scriptLen, err := c.ReadVarIntLen(maxTxInOuts, "pkScript length")
		if err != nil {
			return Tx{}, err
		}
		script, err := c.ReadExact(scriptLen)
		if err != nil {
			return Tx{}, wrap("pkScript", err)
		}
		outputs = append(outputs, TxOut{Value: value, PkScript: append([]byte(nil), script...)})
	}

	lockTime, err := c.ReadU32LE()
	if err != nil {
		return Tx{}, wrap("locktime", err)
	}
	if !c.AtEnd() {
		return Tx{}, core.New(core.KindDecode, "TX_TRAILING_DATA", "trailing bytes after transaction")
	}

	return Tx{Version: version, Inputs: inputs, Outputs: outputs, LockTime: lockTime}, nil
}

func wrap(field string, err error) error {
	if e, ok := core.As(err); ok {
		return core.Newf(core.KindDecode, "TX_TRUNCATED", "%s: %s", field, e.Msg)
	}
	return err
}

// Serialize re-encodes tx in the same legacy wire format Parse reads.
func Serialize(tx Tx) []byte {
	var out []byte
	out = benc.AppendU32LE(out, tx.Version)
	out = benc.AppendVarInt(out, uint64(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		out = append(out, in.PrevOut.TxID[:]...)
		out = benc.AppendU32LE(out, in.PrevOut.Vout)
		out = benc.AppendVarInt(out, uint64(len(in.ScriptSig)))
		out = append(out, in.ScriptSig...)
		out = benc.AppendU32LE(out, in.Sequence)
	}
	out = benc.AppendVarInt(out, uint64(len(tx.Outputs)))
	for _, o := range tx.Outputs {
		out = benc.AppendU64LE(out, o.Value)
		out = benc.AppendVarInt(out, uint64(len(o.PkScript)))
		out = append(out, o.PkScript...)
	}
	out = benc.AppendU32LE(out, tx.LockTime)
	return out
}

// TxID computes reverse(hash256(serialize(tx))).
func TxID(tx Tx) [32]byte {
	return bhash.Reverse32(bhash.Hash256(Serialize(tx)))
}

const (
	opDup         = 0x76
	opHash160     = 0xa9
	opPushHash160 = 0x14
	opEqualVerify = 0x88
	opCheckSig    = 0xac
)

// P2PKHScriptLen is the fixed length of a standard P2PKH output script.
const P2PKHScriptLen = 25

// ExtractP2PKHHash parses script, requiring the exact standard form
// OP_DUP OP_HASH160 <20> OP_EQUALVERIFY OP_CHECKSIG, and returns the
// embedded public-key hash.
func ExtractP2PKHHash(script []byte) ([20]byte, error) {
	var hash [20]byte
	if len(script) != P2PKHScriptLen {
		return hash, core.Newf(core.KindPolicy, "SCRIPT_NOT_P2PKH", "script length %d, want %d", len(script), P2PKHScriptLen)
	}
	if script[0] != opDup || script[1] != opHash160 || script[2] != opPushHash160 ||
		script[23] != opEqualVerify || script[24] != opCheckSig {
		return hash, core.New(core.KindPolicy, "SCRIPT_NOT_P2PKH", "script is not the standard P2PKH form")
	}
	copy(hash[:], script[3:23])
	return hash, nil
}

// BuildP2PKHScript builds a standard P2PKH output script for pubKeyHash.
func BuildP2PKHScript(pubKeyHash [20]byte) []byte {
	out := make([]byte, 0, P2PKHScriptLen)
	out = append(out, opDup, opHash160, opPushHash160)
	out = append(out, pubKeyHash[:]...)
	out = append(out, opEqualVerify, opCheckSig)
	return out
}
