package becdsa

import "math/big"

// SecretScalar holds a private scalar's byte representation so callers can
// wipe it from memory as soon as signing is done, rather than relying on
// garbage collection. Go gives no hard guarantee the backing array is never
// copied by the runtime, but zeroing the one copy we control is cheap and
// closes the obvious window.
type SecretScalar struct {
	b [32]byte
}

// NewSecretScalar copies d's big-endian bytes into a fixed-size, zeroable
// buffer.
func NewSecretScalar(d *big.Int) SecretScalar {
	var s SecretScalar
	d.FillBytes(s.b[:])
	return s
}

// Int returns a fresh *big.Int view of the scalar. The caller must not
// retain it past the point the SecretScalar is zeroed.
func (s *SecretScalar) Int() *big.Int {
	return new(big.Int).SetBytes(s.b[:])
}

// Zero overwrites the scalar's backing bytes. Call this in a defer right
// after deriving whatever the scalar was needed for.
func (s *SecretScalar) Zero() {
	for i := range s.b {
		s.b[i] = 0
	}
}
