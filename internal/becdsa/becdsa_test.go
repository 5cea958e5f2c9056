package becdsa

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/utxospv/spvcore/internal/benc"
	"github.com/utxospv/spvcore/internal/bhash"
	"github.com/utxospv/spvcore/internal/secp"
)

// TestRFC6979Vector reproduces the RFC 6979 secp256k1/SHA-256 test vector
// for private key d=1, message "sample": k must come out bit-exact, which
// in turn pins down r.
func TestRFC6979Vector(t *testing.T) {
	d := big.NewInt(1)
	z := bhash.SHA256([]byte("sample"))

	wantK := "8fa1f95d514760e32b239cce7ba0cc8e2c6e4cf0f3ffc12aa7fcfd22c8b4a21" // RFC 6979 Appendix A.2.3 secp256k1 vector
	k := rfc6979Nonce(d, z[:])
	if hex.EncodeToString(k.Bytes()) != wantK {
		t.Fatalf("rfc6979Nonce = %x, want %s", k, wantK)
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	d := big.NewInt(12345)
	Q := secp.ScalarBaseMult(d)
	z := bhash.SHA256([]byte("a transaction preimage"))

	r, s, err := Sign(d, z[:])
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !Verify(Q, z[:], r, s) {
		t.Fatal("Verify rejected a signature Sign produced")
	}
}

func TestSignIsDeterministic(t *testing.T) {
	d := big.NewInt(999)
	z := bhash.SHA256([]byte("deterministic"))

	r1, s1, err := Sign(d, z[:])
	if err != nil {
		t.Fatalf("Sign (1st): %v", err)
	}
	r2, s2, err := Sign(d, z[:])
	if err != nil {
		t.Fatalf("Sign (2nd): %v", err)
	}
	if r1.Cmp(r2) != 0 || s1.Cmp(s2) != 0 {
		t.Fatal("two signs over the same (key, message) produced different signatures")
	}
}

func TestSignLowSInvariant(t *testing.T) {
	d := big.NewInt(424242)
	z := bhash.SHA256([]byte("low-s check"))
	_, s, err := Sign(d, z[:])
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if s.Cmp(halfN) > 0 {
		t.Fatalf("s = %x exceeds n/2, low-S normalization did not apply", s)
	}
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	d := big.NewInt(7)
	Q := secp.ScalarBaseMult(d)
	z := bhash.SHA256([]byte("tamper me"))

	r, s, err := Sign(d, z[:])
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	tamperedR := new(big.Int).Add(r, big.NewInt(1))
	if Verify(Q, z[:], tamperedR, s) {
		t.Fatal("Verify accepted a tampered r")
	}
}

func TestVerifyRejectsOutOfRangeRS(t *testing.T) {
	d := big.NewInt(3)
	Q := secp.ScalarBaseMult(d)
	z := bhash.SHA256([]byte("range check"))
	if Verify(Q, z[:], big.NewInt(0), big.NewInt(1)) {
		t.Fatal("Verify accepted r=0")
	}
	if Verify(Q, z[:], big.NewInt(1), big.NewInt(0)) {
		t.Fatal("Verify accepted s=0")
	}
}

func TestDEREncodeDecodeRoundTrip(t *testing.T) {
	d := big.NewInt(555)
	z := bhash.SHA256([]byte("der roundtrip"))
	r, s, err := Sign(d, z[:])
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	der := EncodeDER(r, s)
	gotR, gotS, err := DecodeDER(der)
	if err != nil {
		t.Fatalf("DecodeDER: %v", err)
	}
	if gotR.Cmp(r) != 0 || gotS.Cmp(s) != 0 {
		t.Fatal("DER roundtrip mismatch")
	}
}

func TestDecodeDERRejectsTrailingData(t *testing.T) {
	der := EncodeDER(big.NewInt(1), big.NewInt(2))
	der = append(der, 0xff)
	if _, _, err := DecodeDER(der); err == nil {
		t.Fatal("expected error for trailing data")
	}
}

func TestDecodeDERRejectsNonMinimalInt(t *testing.T) {
	// r = 0x01 encoded with two superfluous leading zero bytes.
	bad := []byte{0x30, 0x08, 0x02, 0x03, 0x00, 0x00, 0x01, 0x02, 0x01, 0x02}
	if _, _, err := DecodeDER(bad); err == nil {
		t.Fatal("expected error for non-minimal DER integer")
	}
}

func TestWIFRoundTrip(t *testing.T) {
	d := big.NewInt(0xdeadbeef)
	s := EncodeWIF(d, true)
	key, err := DecodeWIF(s)
	if err != nil {
		t.Fatalf("DecodeWIF: %v", err)
	}
	if !key.Compressed {
		t.Fatal("expected compressed flag set")
	}
	if key.Scalar.Int().Cmp(d) != 0 {
		t.Fatal("WIF roundtrip scalar mismatch")
	}
}

func TestDecodeWIFRejectsBadVersion(t *testing.T) {
	payload := make([]byte, 32)
	payload[31] = 0x01
	s := benc.Base58CheckEncode(0x6f, payload)
	if _, err := DecodeWIF(s); err == nil {
		t.Fatal("expected version mismatch error")
	}
}
