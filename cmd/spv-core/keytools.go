package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/utxospv/spvcore/internal/becdsa"
	"github.com/utxospv/spvcore/internal/benc"
	"github.com/utxospv/spvcore/internal/bhash"
	"github.com/utxospv/spvcore/internal/core"
	"github.com/utxospv/spvcore/internal/secp"
	"github.com/utxospv/spvcore/internal/snapshot"
	"github.com/utxospv/spvcore/internal/txbuild"
)

// --- wif-info ---
//
// Offline sanity check for a WIF private key before a live signing
// session: decode it, derive the public key and P2PKH address, and print
// them back without ever writing the scalar itself to the response.
// Modeled on node/keymgr.go's verify-pubkey subcommand (decode,
// recompute, compare).

type wifInfoResponse struct {
	OK            bool   `json:"ok"`
	Err           string `json:"err,omitempty"`
	Kind          string `json:"kind,omitempty"`
	Compressed    bool   `json:"compressed,omitempty"`
	PublicKeyHex  string `json:"public_key,omitempty"`
	PubKeyHashHex string `json:"pubkey_hash,omitempty"`
	Address       string `json:"address,omitempty"`
}

func cmdWIFInfoMain(logger *slog.Logger, argv []string) int {
	fs := flag.NewFlagSet("wif-info", flag.ContinueOnError)
	wif := fs.String("wif", "", "Wallet-Import-Format private key")
	if err := fs.Parse(argv); err != nil {
		return 2
	}
	if *wif == "" {
		writeJSON(wifInfoResponse{Err: "missing required flag: --wif"})
		return 2
	}

	key, err := becdsa.DecodeWIF(*wif)
	if err != nil {
		resp := wifInfoResponse{Err: err.Error()}
		if e, ok := core.As(err); ok {
			resp.Kind = string(e.Kind)
		}
		writeJSON(resp)
		return failureCode(logger, "wif-info", err)
	}
	defer key.Scalar.Zero()

	d := key.Scalar.Int()
	pub := secp.ScalarBaseMult(d)

	var pubBytes []byte
	if key.Compressed {
		pubBytes = secp.EncodeCompressed(pub)
	} else {
		pubBytes = secp.EncodeUncompressed(pub)
	}
	pubKeyHash := bhash.Hash160(secp.EncodeCompressed(pub))
	address := benc.Base58CheckEncode(0x00, pubKeyHash[:])

	writeJSON(wifInfoResponse{
		OK:            true,
		Compressed:    key.Compressed,
		PublicKeyHex:  hex.EncodeToString(pubBytes),
		PubKeyHashHex: hex.EncodeToString(pubKeyHash[:]),
		Address:       address,
	})
	logger.Info("wif decoded", "op", "wif-info", "compressed", key.Compressed)
	return 0
}

// --- address-info ---

type addressInfoResponse struct {
	OK            bool   `json:"ok"`
	Err           string `json:"err,omitempty"`
	Kind          string `json:"kind,omitempty"`
	Version       byte   `json:"version,omitempty"`
	PubKeyHashHex string `json:"pubkey_hash,omitempty"`
}

func cmdAddressInfoMain(logger *slog.Logger, argv []string) int {
	fs := flag.NewFlagSet("address-info", flag.ContinueOnError)
	addr := fs.String("address", "", "Base58Check P2PKH address")
	if err := fs.Parse(argv); err != nil {
		return 2
	}
	if *addr == "" {
		writeJSON(addressInfoResponse{Err: "missing required flag: --address"})
		return 2
	}

	hash, err := txbuild.DecodeAddress(*addr)
	if err != nil {
		resp := addressInfoResponse{Err: err.Error()}
		if e, ok := core.As(err); ok {
			resp.Kind = string(e.Kind)
		}
		writeJSON(resp)
		return failureCode(logger, "address-info", err)
	}

	writeJSON(addressInfoResponse{OK: true, Version: 0x00, PubKeyHashHex: hex.EncodeToString(hash[:])})
	logger.Info("address decoded", "op", "address-info")
	return 0
}

// --- verify-snapshot ---
//
// Offline verifier for the optional signed header-bundle distribution
// channel. The signature authenticates distribution only, never
// consensus — every header inside is still independently linkage- and
// Proof-of-Work-checked.

type verifySnapshotRequest struct {
	Snapshot json.RawMessage `json:"snapshot"`
}

type verifySnapshotResponse struct {
	OK          bool     `json:"ok"`
	Err         string   `json:"err,omitempty"`
	Kind        string   `json:"kind,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
	StartHeight uint32   `json:"start_height,omitempty"`
	EndHeight   uint32   `json:"end_height,omitempty"`
	HeaderCount int      `json:"header_count,omitempty"`
}

func cmdVerifySnapshotMain(logger *slog.Logger, argv []string) int {
	fs := flag.NewFlagSet("verify-snapshot", flag.ContinueOnError)
	signerPubKeys := fs.String("signer-pubkeys", "", "comma-separated list of 33-byte compressed signer public keys (hex), the distribution whitelist")
	if err := fs.Parse(argv); err != nil {
		return 2
	}
	if *signerPubKeys == "" {
		writeJSON(verifySnapshotResponse{Err: "missing required flag: --signer-pubkeys"})
		return 2
	}

	var whitelist []secp.Point
	for _, tok := range strings.Split(*signerPubKeys, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		pub, err := snapshot.DecodeSignerPubKey(tok)
		if err != nil {
			writeJSON(verifySnapshotResponse{Err: "bad --signer-pubkeys entry: " + err.Error()})
			return 2
		}
		whitelist = append(whitelist, pub)
	}

	body, err := io.ReadAll(os.Stdin)
	if err != nil {
		writeJSON(verifySnapshotResponse{Err: "read stdin: " + err.Error()})
		return 1
	}
	var req verifySnapshotRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(verifySnapshotResponse{Err: "bad request: " + err.Error()})
		return 1
	}

	logger.Info("verifying snapshot", "op", "verify-snapshot")
	snap, warnings, err := snapshot.Verify(req.Snapshot, whitelist, time.Now().Unix())
	if err != nil {
		resp := verifySnapshotResponse{Err: err.Error()}
		if e, ok := core.As(err); ok {
			resp.Kind = string(e.Kind)
		}
		writeJSON(resp)
		return failureCode(logger, "verify-snapshot", err)
	}

	writeJSON(verifySnapshotResponse{
		OK:          true,
		Warnings:    warnings,
		StartHeight: snap.StartHeight,
		EndHeight:   snap.EndHeight,
		HeaderCount: len(snap.Headers),
	})
	logger.Info("snapshot verified", "op", "verify-snapshot", "headers", len(snap.Headers))
	return 0
}
