// Package bhash implements the hash primitives of the SPV core: SHA-256,
// RIPEMD-160, HMAC-SHA-256, and the two derived ledger hashes Hash256
// (double SHA-256) and Hash160 (RIPEMD-160 of SHA-256). Every function
// here is a pure byte-in, byte-out transform with no streaming API — the
// largest input this core ever hashes is a signature preimage of a few
// hundred bytes.
package bhash

import (
	"crypto/hmac"
	"crypto/sha256"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // required by the ledger's address format, not a new design choice
)

// SHA256 returns the FIPS 180-4 SHA-256 digest of data.
func SHA256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// RIPEMD160 returns the RIPEMD-160 digest of data.
//
// RIPEMD-160 was removed from Go's standard crypto/ package years ago; it
// remains in golang.org/x/crypto/ripemd160 for exactly this reason —
// legacy protocols (here, the ledger's P2PKH address format) that cannot
// change their wire hash without a hard fork.
func RIPEMD160(data []byte) [20]byte {
	h := ripemd160.New()
	_, _ = h.Write(data) // ripemd160.digest.Write never errors
	var out [20]byte
	copy(out[:], h.Sum(nil))
	return out
}

// HMACSHA256 computes HMAC-SHA-256(key, data) per FIPS 198-1.
func HMACSHA256(key, data []byte) [32]byte {
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write(data)
	var out [32]byte
	copy(out[:], mac.Sum(nil))
	return out
}

// Hash256 computes SHA-256(SHA-256(data)), the ledger's block/transaction
// hashing function.
func Hash256(data []byte) [32]byte {
	first := sha256.Sum256(data)
	return sha256.Sum256(first[:])
}

// Hash160 computes RIPEMD160(SHA256(data)), used to derive P2PKH pubkey
// hashes and addresses.
func Hash160(data []byte) [20]byte {
	first := sha256.Sum256(data)
	return RIPEMD160(first[:])
}

// Reverse32 returns a copy of b with byte order reversed. Ledger hashes are
// computed internally in the order they're hashed but displayed (and
// referenced in txid/blockHash fields) byte-reversed.
func Reverse32(b [32]byte) [32]byte {
	var out [32]byte
	for i := range b {
		out[i] = b[31-i]
	}
	return out
}
