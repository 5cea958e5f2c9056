package benc

import "crypto/subtle"

// ConstantTimeEqual reports whether a and b are equal using a comparison
// whose running time does not depend on where the first differing byte is.
// Every hash/checksum/signature comparison in this module goes through
// here rather than bytes.Equal.
func ConstantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}
