package txbuild

import (
	"math/big"
	"testing"

	"github.com/utxospv/spvcore/internal/becdsa"
	"github.com/utxospv/spvcore/internal/benc"
	"github.com/utxospv/spvcore/internal/envelope"
	"github.com/utxospv/spvcore/internal/secp"
	"github.com/utxospv/spvcore/internal/sighash"
	"github.com/utxospv/spvcore/internal/txmodel"
)

func testWIFKey(t *testing.T, d int64) becdsa.WIFKey {
	t.Helper()
	scalar := big.NewInt(d)
	wif := becdsa.EncodeWIF(scalar, true)
	key, err := becdsa.DecodeWIF(wif)
	if err != nil {
		t.Fatalf("DecodeWIF: %v", err)
	}
	return key
}

func testEnvelope(txid [32]byte, vout uint32, satoshis uint64, pubKeyHash [20]byte) *envelope.Envelope {
	return &envelope.Envelope{
		TxID:       txid,
		Vout:       vout,
		Satoshis:   satoshis,
		PubKeyHash: pubKeyHash,
	}
}

func TestDecodeAddressRoundTrip(t *testing.T) {
	payload := make([]byte, 20)
	payload[0] = 0x42
	addr := benc.Base58CheckEncode(0x00, payload)

	hash, err := DecodeAddress(addr)
	if err != nil {
		t.Fatalf("DecodeAddress: %v", err)
	}
	if hash[0] != 0x42 {
		t.Fatalf("decoded hash mismatch: %x", hash)
	}
}

func TestDecodeAddressRejectsWrongVersion(t *testing.T) {
	payload := make([]byte, 20)
	addr := benc.Base58CheckEncode(0x05, payload)
	if _, err := DecodeAddress(addr); err == nil {
		t.Fatal("expected version error")
	}
}

func TestChangeAddressHashMatchesHash160(t *testing.T) {
	d := big.NewInt(42)
	pub := secp.EncodeCompressed(secp.ScalarBaseMult(d))
	got := ChangeAddressHash(pub)
	if got == ([20]byte{}) {
		t.Fatal("expected non-zero change hash")
	}
}

func TestBuildRejectsDuplicateOutpoints(t *testing.T) {
	key := testWIFKey(t, 7)
	pub := secp.EncodeCompressed(secp.ScalarBaseMult(big.NewInt(7)))
	pkh := ChangeAddressHash(pub)

	var txid [32]byte
	txid[0] = 1
	envs := []*envelope.Envelope{
		testEnvelope(txid, 0, 10000, pkh),
		testEnvelope(txid, 0, 10000, pkh),
	}

	destPayload := make([]byte, 20)
	destAddr := benc.Base58CheckEncode(0x00, destPayload)

	if _, err := Build(envs, key, destAddr, 1000, FeeSpec{RatePerByte: 1}, DefaultPolicy()); err == nil {
		t.Fatal("expected duplicate-outpoint rejection")
	}
}

func TestBuildRejectsDustAmount(t *testing.T) {
	key := testWIFKey(t, 7)
	pub := secp.EncodeCompressed(secp.ScalarBaseMult(big.NewInt(7)))
	pkh := ChangeAddressHash(pub)

	var txid [32]byte
	txid[0] = 2
	envs := []*envelope.Envelope{testEnvelope(txid, 0, 10000, pkh)}

	destPayload := make([]byte, 20)
	destAddr := benc.Base58CheckEncode(0x00, destPayload)

	if _, err := Build(envs, key, destAddr, 100, FeeSpec{RatePerByte: 1}, DefaultPolicy()); err == nil {
		t.Fatal("expected dust-amount rejection")
	}
}

func TestBuildRejectsInsufficientFunds(t *testing.T) {
	key := testWIFKey(t, 7)
	pub := secp.EncodeCompressed(secp.ScalarBaseMult(big.NewInt(7)))
	pkh := ChangeAddressHash(pub)

	var txid [32]byte
	txid[0] = 3
	envs := []*envelope.Envelope{testEnvelope(txid, 0, 1000, pkh)}

	destPayload := make([]byte, 20)
	destAddr := benc.Base58CheckEncode(0x00, destPayload)

	if _, err := Build(envs, key, destAddr, 5000, FeeSpec{RatePerByte: 1}, DefaultPolicy()); err == nil {
		t.Fatal("expected insufficient-funds rejection")
	}
}

func TestBuildProducesValidSignedTransaction(t *testing.T) {
	d := big.NewInt(7)
	key := testWIFKey(t, 7)
	pub := secp.EncodeCompressed(secp.ScalarBaseMult(d))
	pkh := ChangeAddressHash(pub)

	var txid [32]byte
	txid[0] = 4
	envs := []*envelope.Envelope{testEnvelope(txid, 0, 100000, pkh)}

	destPayload := make([]byte, 20)
	destPayload[0] = 0x99
	destAddr := benc.Base58CheckEncode(0x00, destPayload)

	hexTx, err := Build(envs, key, destAddr, 50000, FeeSpec{RatePerByte: 2}, DefaultPolicy())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	raw, err := benc.DecodeHex(hexTx)
	if err != nil {
		t.Fatalf("output is not valid hex: %v", err)
	}
	tx, err := txmodel.Parse(raw)
	if err != nil {
		t.Fatalf("output does not parse as a transaction: %v", err)
	}
	if len(tx.Inputs) != 1 {
		t.Fatalf("expected 1 input, got %d", len(tx.Inputs))
	}
	if len(tx.Inputs[0].ScriptSig) == 0 {
		t.Fatal("expected a populated scriptSig")
	}
	if tx.Outputs[0].Value != 50000 {
		t.Fatalf("payment output value = %d, want 50000", tx.Outputs[0].Value)
	}
}

func TestBuildAfterCallZeroesTheScalar(t *testing.T) {
	key := testWIFKey(t, 9)
	pub := secp.EncodeCompressed(secp.ScalarBaseMult(big.NewInt(9)))
	pkh := ChangeAddressHash(pub)

	var txid [32]byte
	txid[0] = 5
	envs := []*envelope.Envelope{testEnvelope(txid, 0, 100000, pkh)}
	destPayload := make([]byte, 20)
	destAddr := benc.Base58CheckEncode(0x00, destPayload)

	if _, err := Build(envs, key, destAddr, 50000, FeeSpec{RatePerByte: 1}, DefaultPolicy()); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if key.Scalar.Int().Sign() != 0 {
		t.Fatal("expected secret scalar to be zeroed after Build returns")
	}
}

func TestBuildAcceptsExplicitFee(t *testing.T) {
	key := testWIFKey(t, 13)
	pub := secp.EncodeCompressed(secp.ScalarBaseMult(big.NewInt(13)))
	pkh := ChangeAddressHash(pub)

	var txid [32]byte
	txid[0] = 6
	envs := []*envelope.Envelope{testEnvelope(txid, 0, 100000, pkh)}
	destPayload := make([]byte, 20)
	destAddr := benc.Base58CheckEncode(0x00, destPayload)

	hexTx, err := Build(envs, key, destAddr, 50000, FeeSpec{ExplicitFee: 1234, UseExplicit: true}, DefaultPolicy())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	raw, err := benc.DecodeHex(hexTx)
	if err != nil {
		t.Fatalf("output is not valid hex: %v", err)
	}
	tx, err := txmodel.Parse(raw)
	if err != nil {
		t.Fatalf("output does not parse as a transaction: %v", err)
	}
	wantChange := uint64(100000 - 50000 - 1234)
	if tx.Outputs[1].Value != wantChange {
		t.Fatalf("change output value = %d, want %d", tx.Outputs[1].Value, wantChange)
	}
}

func TestBuildRejectsExplicitFeeAboveCap(t *testing.T) {
	key := testWIFKey(t, 14)
	pub := secp.EncodeCompressed(secp.ScalarBaseMult(big.NewInt(14)))
	pkh := ChangeAddressHash(pub)

	var txid [32]byte
	txid[0] = 7
	envs := []*envelope.Envelope{testEnvelope(txid, 0, 100000, pkh)}
	destPayload := make([]byte, 20)
	destAddr := benc.Base58CheckEncode(0x00, destPayload)

	_, err := Build(envs, key, destAddr, 50000, FeeSpec{ExplicitFee: 50000, UseExplicit: true}, DefaultPolicy())
	if err == nil {
		t.Fatal("expected explicit fee above the cap to be rejected")
	}
}

// TestBuildConsolidatesTwoInputsAtOneSatPerByte reproduces the spec's S6
// scenario literally: two envelopes of 60,000 and 80,000 satoshis
// consolidated under one key, sent 100,000 satoshis at a 1 sat/byte fee
// rate, must produce a two-input, two-output transaction whose change
// equals 140,000 - 100,000 - fee and whose signatures both self-verify.
func TestBuildConsolidatesTwoInputsAtOneSatPerByte(t *testing.T) {
	d := big.NewInt(11)
	key := testWIFKey(t, 11)
	pub := secp.ScalarBaseMult(d)
	compressedPub := secp.EncodeCompressed(pub)
	pkh := ChangeAddressHash(compressedPub)

	var txidA, txidB [32]byte
	txidA[0], txidB[0] = 0xAA, 0xBB
	envs := []*envelope.Envelope{
		testEnvelope(txidA, 0, 60000, pkh),
		testEnvelope(txidB, 1, 80000, pkh),
	}

	destPayload := make([]byte, 20)
	destPayload[0] = 0x77
	destAddr := benc.Base58CheckEncode(0x00, destPayload)

	hexTx, err := Build(envs, key, destAddr, 100000, FeeSpec{RatePerByte: 1}, DefaultPolicy())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	raw, err := benc.DecodeHex(hexTx)
	if err != nil {
		t.Fatalf("output is not valid hex: %v", err)
	}
	tx, err := txmodel.Parse(raw)
	if err != nil {
		t.Fatalf("output does not parse as a transaction: %v", err)
	}
	if len(tx.Inputs) != 2 {
		t.Fatalf("expected 2 inputs, got %d", len(tx.Inputs))
	}
	if len(tx.Outputs) != 2 {
		t.Fatalf("expected 2 outputs, got %d", len(tx.Outputs))
	}
	if tx.Outputs[0].Value != 100000 {
		t.Fatalf("payment output value = %d, want 100000", tx.Outputs[0].Value)
	}
	fee := estimatedTxSize(2, 2) * 1
	wantChange := uint64(60000+80000) - 100000 - fee
	if tx.Outputs[1].Value != wantChange {
		t.Fatalf("change output value = %d, want %d", tx.Outputs[1].Value, wantChange)
	}

	for i, in := range tx.Inputs {
		if len(in.ScriptSig) == 0 {
			t.Fatalf("input %d has an empty scriptSig", i)
		}
		sigLen := int(in.ScriptSig[0])
		der := in.ScriptSig[1 : 1+sigLen-1] // strip the trailing sighash-type byte
		r, s, err := becdsa.DecodeDER(der)
		if err != nil {
			t.Fatalf("input %d signature does not DER-decode: %v", i, err)
		}
		satoshis := envs[i].Satoshis
		z := sighash.Hash(tx, i, pkh, satoshis)
		if !becdsa.Verify(pub, z[:], r, s) {
			t.Fatalf("input %d signature does not self-verify", i)
		}
	}
}
