// Package snapshot implements the optional signed header-bundle
// distribution format: a flat JSON record carrying a contiguous
// run of headers plus a signature over their deterministic binary
// encoding. The signature authenticates *distribution only* — that the
// bundle came from a holder of the whitelisted signing key — never
// consensus; every header inside is still independently linkage- and
// Proof-of-Work-checked the same way a header-chain file is.
package snapshot

import (
	"encoding/hex"
	"encoding/json"
	"math/big"

	"github.com/utxospv/spvcore/internal/becdsa"
	"github.com/utxospv/spvcore/internal/benc"
	"github.com/utxospv/spvcore/internal/bhash"
	"github.com/utxospv/spvcore/internal/core"
	"github.com/utxospv/spvcore/internal/header"
	"github.com/utxospv/spvcore/internal/secp"
)

// MaxFutureDrift bounds how far into the future a snapshot's timestamp may
// sit before it is rejected outright, matching the header-timestamp rule.
const MaxFutureDrift = 7200

// StaleWarning is the age past which a snapshot's timestamp is flagged in
// the returned warnings but not rejected.
const StaleWarning = 30 * 24 * 3600

const expectVersion = 1

// rawSnapshot is the wire JSON shape, field order irrelevant.
type rawSnapshot struct {
	Version        int    `json:"version"`
	StartHeight    uint32 `json:"startHeight"`
	EndHeight      uint32 `json:"endHeight"`
	AnchorHash     string `json:"anchorHash"`
	Headers        string `json:"headers"`
	CumulativeWork string `json:"cumulativeWork"`
	Timestamp      int64  `json:"timestamp"`
	SignerPubKey   string `json:"signerPubKey"`
	Signature      string `json:"signature"`
}

// Snapshot is a verified signed header bundle.
type Snapshot struct {
	StartHeight    uint32
	EndHeight      uint32
	AnchorHash     [32]byte
	Headers        []header.Header
	CumulativeWork *big.Int
	Timestamp      int64
	SignerPubKey   secp.Point
}

// Verify parses and verifies a signed-snapshot envelope: schema,
// timestamp bounds, signer membership in whitelist, header-chain internal
// consistency (linkage + Proof-of-Work, no difficulty floor — this
// channel carries headers the floor hasn't been calibrated against yet),
// recomputed cumulative work, and signature validity over the
// deterministic binary encoding. Returns any non-fatal warnings (a stale
// timestamp) alongside the verified Snapshot.
func Verify(b []byte, whitelist []secp.Point, now int64) (*Snapshot, []string, error) {
	var raw rawSnapshot
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, nil, core.Newf(core.KindSchema, "SNAPSHOT_BAD_JSON", "invalid JSON: %v", err)
	}
	if raw.Version != expectVersion {
		return nil, nil, core.Newf(core.KindSchema, "SNAPSHOT_BAD_VERSION", "version must be %d", expectVersion)
	}
	if raw.EndHeight < raw.StartHeight {
		return nil, nil, core.New(core.KindSchema, "SNAPSHOT_BAD_RANGE", "endHeight precedes startHeight")
	}

	anchorHashBytes, err := benc.DecodeHexExact(raw.AnchorHash, 32, "anchorHash")
	if err != nil {
		return nil, nil, err
	}
	var anchorHash [32]byte
	copy(anchorHash[:], anchorHashBytes)

	headerBytes, err := benc.DecodeHex(raw.Headers)
	if err != nil {
		return nil, nil, err
	}
	wantCount := int(raw.EndHeight-raw.StartHeight) + 1
	if len(headerBytes) != wantCount*header.Size {
		return nil, nil, core.Newf(core.KindSchema, "SNAPSHOT_HEADER_COUNT_MISMATCH",
			"height range implies %d headers, got %d bytes", wantCount, len(headerBytes))
	}

	cumulativeWorkBytes, err := benc.DecodeHexExact(raw.CumulativeWork, 32, "cumulativeWork")
	if err != nil {
		return nil, nil, err
	}
	declaredWork := new(big.Int).SetBytes(cumulativeWorkBytes)

	pubKeyBytes, err := benc.DecodeHexExact(raw.SignerPubKey, 33, "signerPubKey")
	if err != nil {
		return nil, nil, err
	}
	signerPub, err := secp.DecodePoint(pubKeyBytes)
	if err != nil {
		return nil, nil, err
	}

	sigBytes, err := benc.DecodeHex(raw.Signature)
	if err != nil {
		return nil, nil, err
	}
	r, s, err := becdsa.DecodeDER(sigBytes)
	if err != nil {
		return nil, nil, err
	}

	var warnings []string
	if raw.Timestamp > now+MaxFutureDrift {
		return nil, nil, core.Newf(core.KindPolicy, "TIMESTAMP_TOO_LATE", "timestamp %d exceeds now+%d", raw.Timestamp, MaxFutureDrift)
	}
	if raw.Timestamp < now-StaleWarning {
		warnings = append(warnings, "snapshot timestamp is more than 30 days old")
	}

	if !signerInWhitelist(signerPub, whitelist) {
		return nil, nil, core.New(core.KindPolicy, "SNAPSHOT_SIGNER_NOT_WHITELISTED", "signer public key is not in the caller's whitelist")
	}

	headers := make([]header.Header, wantCount)
	prevHash := anchorHash
	for i := 0; i < wantCount; i++ {
		h, err := header.Parse(headerBytes[i*header.Size : (i+1)*header.Size])
		if err != nil {
			return nil, nil, err
		}
		if !benc.ConstantTimeEqual(h.PrevBlock[:], prevHash[:]) {
			return nil, nil, core.Newf(core.KindIntegrity, "CHAIN_LINK_BROKEN", "header %d prevBlock does not match predecessor", i)
		}
		if !header.CheckPoW(h) {
			return nil, nil, core.Newf(core.KindIntegrity, "POW_FAILED", "header %d fails proof-of-work", i)
		}
		headers[i] = h
		prevHash = h.Hash()
	}

	computedWork := big.NewInt(0)
	for _, h := range headers {
		computedWork.Add(computedWork, header.Work(header.BoundedTarget(h.Bits)))
	}
	if computedWork.Cmp(declaredWork) != 0 {
		return nil, nil, core.New(core.KindIntegrity, "CUMULATIVE_WORK_MISMATCH", "recomputed cumulative work does not match declared value")
	}

	msg := canonicalMessage(raw.StartHeight, raw.EndHeight, anchorHash, headerBytes, cumulativeWorkBytes, raw.Timestamp)
	digest := bhash.Hash256(msg)
	if !becdsa.Verify(signerPub, digest[:], r, s) {
		return nil, nil, core.New(core.KindCrypto, "SNAPSHOT_SIGNATURE_INVALID", "signature does not verify against signerPubKey")
	}

	return &Snapshot{
		StartHeight:    raw.StartHeight,
		EndHeight:      raw.EndHeight,
		AnchorHash:     anchorHash,
		Headers:        headers,
		CumulativeWork: computedWork,
		Timestamp:      raw.Timestamp,
		SignerPubKey:   signerPub,
	}, warnings, nil
}

// canonicalMessage builds the deterministic binary serialization the
// snapshot's signature authenticates: heights as 8-byte big-endian, the
// anchor hash as 32 raw bytes, headers as raw concatenated bytes,
// cumulative work as 32-byte big-endian, and the timestamp as 8-byte
// big-endian.
func canonicalMessage(startHeight, endHeight uint32, anchorHash [32]byte, headerBytes, cumulativeWorkBytes []byte, timestamp int64) []byte {
	buf := make([]byte, 0, 8+8+32+len(headerBytes)+32+8)
	buf = appendU64BE(buf, uint64(startHeight))
	buf = appendU64BE(buf, uint64(endHeight))
	buf = append(buf, anchorHash[:]...)
	buf = append(buf, headerBytes...)
	buf = append(buf, cumulativeWorkBytes...)
	buf = appendU64BE(buf, uint64(timestamp))
	return buf
}

func appendU64BE(dst []byte, v uint64) []byte {
	var tmp [8]byte
	for i := 7; i >= 0; i-- {
		tmp[i] = byte(v)
		v >>= 8
	}
	return append(dst, tmp[:]...)
}

func signerInWhitelist(pub secp.Point, whitelist []secp.Point) bool {
	for _, w := range whitelist {
		if pub.Equal(w) {
			return true
		}
	}
	return false
}

// DecodeSignerPubKey hex-decodes a 33-byte compressed public key, for
// building a whitelist from caller-supplied configuration.
func DecodeSignerPubKey(hexStr string) (secp.Point, error) {
	b, err := hex.DecodeString(hexStr)
	if err != nil || len(b) != 33 {
		return secp.Point{}, core.New(core.KindDecode, "SNAPSHOT_BAD_PUBKEY", "signer public key must be 33-byte compressed hex")
	}
	return secp.DecodePoint(b)
}
