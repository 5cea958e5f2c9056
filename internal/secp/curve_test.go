package secp

import (
	"math/big"
	"testing"
)

func TestGeneratorOnCurve(t *testing.T) {
	g := Generator()
	if !g.IsOnCurve() {
		t.Fatal("generator point does not satisfy curve equation")
	}
}

func TestScalarBaseMultOne(t *testing.T) {
	g := Generator()
	got := ScalarBaseMult(big.NewInt(1))
	if !got.Equal(g) {
		t.Fatalf("1*G != G: got (%x, %x)", got.X, got.Y)
	}
}

func TestScalarBaseMultTwoIsDouble(t *testing.T) {
	g := Generator()
	want := Add(g, g)
	got := ScalarBaseMult(big.NewInt(2))
	if !got.Equal(want) {
		t.Fatalf("2*G mismatch")
	}
}

func TestScalarBaseMultOrderIsInfinity(t *testing.T) {
	got := ScalarBaseMult(N)
	if !got.IsInfinity() {
		t.Fatal("n*G should be the identity")
	}
}

func TestScalarMultDistributesOverAddition(t *testing.T) {
	g := Generator()
	a := big.NewInt(7)
	b := big.NewInt(11)
	sum := new(big.Int).Add(a, b)

	lhs := ScalarMult(sum, g)
	rhs := Add(ScalarMult(a, g), ScalarMult(b, g))
	if !lhs.Equal(rhs) {
		t.Fatal("(a+b)*G != a*G + b*G")
	}
}

func TestAddWithInfinity(t *testing.T) {
	g := Generator()
	if !Add(g, Infinity()).Equal(g) {
		t.Fatal("P + O should equal P")
	}
	if !Add(Infinity(), g).Equal(g) {
		t.Fatal("O + P should equal P")
	}
}

func TestAddPointAndItsNegationIsInfinity(t *testing.T) {
	g := Generator()
	neg := Point{X: new(big.Int).Set(g.X), Y: new(big.Int).Sub(P, g.Y)}
	if !Add(g, neg).Equal(Infinity()) {
		t.Fatal("P + (-P) should be the identity")
	}
}

func TestCompressedRoundTrip(t *testing.T) {
	g := Generator()
	enc := EncodeCompressed(g)
	got, err := DecodePoint(enc)
	if err != nil {
		t.Fatalf("DecodePoint: %v", err)
	}
	if !got.Equal(g) {
		t.Fatal("compressed roundtrip mismatch")
	}
}

func TestUncompressedRoundTrip(t *testing.T) {
	g := Generator()
	enc := EncodeUncompressed(g)
	got, err := DecodePoint(enc)
	if err != nil {
		t.Fatalf("DecodePoint: %v", err)
	}
	if !got.Equal(g) {
		t.Fatal("uncompressed roundtrip mismatch")
	}
}

func TestDecodePointRejectsBadLength(t *testing.T) {
	if _, err := DecodePoint([]byte{0x02, 0x01}); err == nil {
		t.Fatal("expected error for short compressed point")
	}
}

func TestDecodePointRejectsOffCurveUncompressed(t *testing.T) {
	bad := EncodeUncompressed(Generator())
	bad[len(bad)-1] ^= 0xff
	if _, err := DecodePoint(bad); err == nil {
		t.Fatal("expected error for off-curve uncompressed point")
	}
}

func TestDecompressPicksRequestedParity(t *testing.T) {
	g := Generator()
	even, err := Decompress(0x02, g.X)
	if err != nil {
		t.Fatalf("Decompress even: %v", err)
	}
	if even.Y.Bit(0) != 0 {
		t.Fatal("expected even y")
	}
	odd, err := Decompress(0x03, g.X)
	if err != nil {
		t.Fatalf("Decompress odd: %v", err)
	}
	if odd.Y.Bit(0) != 1 {
		t.Fatal("expected odd y")
	}
}
