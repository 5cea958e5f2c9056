package envelope

import (
	"testing"

	"github.com/utxospv/spvcore/internal/header"
)

// These fixtures describe a one-input, one-output transaction whose single
// output is a standard P2PKH paying pubKeyHash 0xaa*20, wrapped in a block
// header whose nBits decodes (after clamping) to the maximum possible
// target — guaranteeing Proof-of-Work succeeds regardless of hash value —
// and whose merkleRoot is set so an empty Merkle proof replays correctly.
const (
	sampleRawTxHex = "010000000100000000000000000000000000000000000000000000000000" +
		"00000000000000ffffffff00ffffffff0188130000000000001976a914aa" +
		"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa88ac00000000"
	sampleTxIDHex = "91304a61c33ef6cd6adc0c4a878d51600bbb64f3daf21cfc11e1a869df98" +
		"36fe"
	sampleHeaderHex = "010000000000000000000000000000000000000000000000000000000000" +
		"000000000000fe3698df69a8e111fc1cf2daf364bb0b60518d874a0cdc6a" +
		"cdf63ec3614a309129ab5f49ffff7f2100000000"
)

func testContext() *header.VerifierContext {
	cp := header.Checkpoint{Bits: 0xff7fffff}
	ctx := header.NewVerifierContext(cp)
	ctx.SetNow(func() int64 { return 1231006505 })
	return ctx
}

func sampleEnvelopeJSON() []byte {
	return []byte(`{
		"format": "merkle-envelope",
		"version": 1,
		"txid": "` + sampleTxIDHex + `",
		"vout": 0,
		"satoshis": 5000,
		"rawTx": "` + sampleRawTxHex + `",
		"blockHeader": "` + sampleHeaderHex + `",
		"proof": []
	}`)
}

func TestParseAcceptsValidEnvelope(t *testing.T) {
	env, err := Parse(sampleEnvelopeJSON(), testContext(), nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if env.Satoshis != 5000 {
		t.Fatalf("Satoshis = %d, want 5000", env.Satoshis)
	}
	var wantHash [20]byte
	for i := range wantHash {
		wantHash[i] = 0xaa
	}
	if env.PubKeyHash != wantHash {
		t.Fatalf("PubKeyHash = %x, want %x", env.PubKeyHash, wantHash)
	}
}

func TestParseRejectsBadFormat(t *testing.T) {
	bad := []byte(`{"format":"wrong","version":1,"txid":"00","vout":0,"satoshis":1,"rawTx":"00","blockHeader":"00"}`)
	if _, err := Parse(bad, testContext(), nil); err == nil {
		t.Fatal("expected schema error for bad format")
	}
}

func TestParseRejectsTxIDMismatch(t *testing.T) {
	json := `{
		"format": "merkle-envelope",
		"version": 1,
		"txid": "0000000000000000000000000000000000000000000000000000000000000000",
		"vout": 0,
		"satoshis": 5000,
		"rawTx": "` + sampleRawTxHex + `",
		"blockHeader": "` + sampleHeaderHex + `",
		"proof": []
	}`
	if _, err := Parse([]byte(json), testContext(), nil); err == nil {
		t.Fatal("expected txid mismatch error")
	}
}

func TestParseRejectsVoutOutOfRange(t *testing.T) {
	json := `{
		"format": "merkle-envelope",
		"version": 1,
		"txid": "` + sampleTxIDHex + `",
		"vout": 5,
		"satoshis": 5000,
		"rawTx": "` + sampleRawTxHex + `",
		"blockHeader": "` + sampleHeaderHex + `",
		"proof": []
	}`
	if _, err := Parse([]byte(json), testContext(), nil); err == nil {
		t.Fatal("expected vout-out-of-range error")
	}
}

func TestParseRejectsValueMismatch(t *testing.T) {
	json := `{
		"format": "merkle-envelope",
		"version": 1,
		"txid": "` + sampleTxIDHex + `",
		"vout": 0,
		"satoshis": 9999,
		"rawTx": "` + sampleRawTxHex + `",
		"blockHeader": "` + sampleHeaderHex + `",
		"proof": []
	}`
	if _, err := Parse([]byte(json), testContext(), nil); err == nil {
		t.Fatal("expected value-mismatch error")
	}
}

func TestParseRejectsChainMembershipFailure(t *testing.T) {
	emptyChain := &header.Chain{}
	if _, err := Parse(sampleEnvelopeJSON(), testContext(), emptyChain); err == nil {
		t.Fatal("expected header-not-in-chain error when a chain is loaded but doesn't contain the header")
	}
}
