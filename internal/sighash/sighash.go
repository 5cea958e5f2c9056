// Package sighash builds the fork-enabled signature-hash preimage this
// ledger's transactions are signed over: a BIP-143-style format carrying a
// fork-identifier bit in the sighash type.
package sighash

import (
	"github.com/utxospv/spvcore/internal/benc"
	"github.com/utxospv/spvcore/internal/bhash"
	"github.com/utxospv/spvcore/internal/txmodel"
)

// Type is SIGHASH_ALL | SIGHASH_FORKID, the only sighash type this core
// produces or accepts.
const Type uint32 = 0x41

// HashPrevouts computes hash256 over the concatenation of every input's
// outpoint txid ∥ vout(4 LE), in the transaction's input order. OutPoint.TxID
// is already stored in internal (hashing) byte order — the same order a
// display-form txid reversed once more yields — so it is used as-is here.
func HashPrevouts(tx txmodel.Tx) [32]byte {
	var buf []byte
	for _, in := range tx.Inputs {
		buf = append(buf, in.PrevOut.TxID[:]...)
		buf = benc.AppendU32LE(buf, in.PrevOut.Vout)
	}
	return bhash.Hash256(buf)
}

// HashSequence computes hash256 over 0xFFFFFFFF repeated once per input —
// this ledger never uses relative locktime, so every input's effective
// sequence is the default.
func HashSequence(tx txmodel.Tx) [32]byte {
	buf := make([]byte, 4*len(tx.Inputs))
	for i := range tx.Inputs {
		buf[4*i], buf[4*i+1], buf[4*i+2], buf[4*i+3] = 0xff, 0xff, 0xff, 0xff
	}
	return bhash.Hash256(buf)
}

// HashOutputs computes hash256 over the standard serialization of every
// output.
func HashOutputs(tx txmodel.Tx) [32]byte {
	var buf []byte
	for _, o := range tx.Outputs {
		buf = benc.AppendU64LE(buf, o.Value)
		buf = benc.AppendVarInt(buf, uint64(len(o.PkScript)))
		buf = append(buf, o.PkScript...)
	}
	return bhash.Hash256(buf)
}

// Preimage builds the per-input fork-enabled sighash preimage for inputIdx
// of tx, where that input spends an output with value satoshis controlled
// by pubKeyHash.
func Preimage(tx txmodel.Tx, inputIdx int, pubKeyHash [20]byte, satoshis uint64) []byte {
	in := tx.Inputs[inputIdx]

	var buf []byte
	buf = benc.AppendU32LE(buf, tx.Version)

	hp := HashPrevouts(tx)
	buf = append(buf, hp[:]...)

	hs := HashSequence(tx)
	buf = append(buf, hs[:]...)

	buf = append(buf, in.PrevOut.TxID[:]...)
	buf = benc.AppendU32LE(buf, in.PrevOut.Vout)

	scriptBody := make([]byte, 0, txmodel.P2PKHScriptLen)
	scriptBody = append(scriptBody, 0x76, 0xa9, 0x14)
	scriptBody = append(scriptBody, pubKeyHash[:]...)
	scriptBody = append(scriptBody, 0x88, 0xac)
	buf = benc.AppendVarInt(buf, uint64(len(scriptBody)))
	buf = append(buf, scriptBody...)

	buf = benc.AppendU64LE(buf, satoshis)
	buf = benc.AppendU32LE(buf, 0xFFFFFFFF) // this input's sequence

	ho := HashOutputs(tx)
	buf = append(buf, ho[:]...)

	buf = benc.AppendU32LE(buf, tx.LockTime)
	buf = benc.AppendU32LE(buf, Type)

	return buf
}

// Hash returns z = hash256(preimage), the value ECDSA signs.
func Hash(tx txmodel.Tx, inputIdx int, pubKeyHash [20]byte, satoshis uint64) [32]byte {
	return bhash.Hash256(Preimage(tx, inputIdx, pubKeyHash, satoshis))
}
