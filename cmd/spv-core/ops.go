package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"

	spvcore "github.com/utxospv/spvcore"
	"github.com/utxospv/spvcore/internal/becdsa"
	"github.com/utxospv/spvcore/internal/benc"
	"github.com/utxospv/spvcore/internal/config"
	"github.com/utxospv/spvcore/internal/core"
	"github.com/utxospv/spvcore/internal/envelope"
	"github.com/utxospv/spvcore/internal/header"
)

// reasonExitCode maps a core.Kind to the enclosing tool's exit-code
// category: non-zero, distinguished per reason category, never plain 1
// for anything that isn't a catch-all.
func reasonExitCode(kind core.Kind) int {
	switch kind {
	case core.KindDecode:
		return 2
	case core.KindSchema:
		return 3
	case core.KindIntegrity:
		return 4
	case core.KindPolicy:
		return 5
	case core.KindCrypto:
		return 6
	case core.KindInput:
		return 7
	default:
		return 1
	}
}

// writeJSON writes v to stdout as a single JSON document; stdout is
// reserved for the response envelope, never log lines or prompts.
func writeJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// failureCode logs err at Error level with its reason code (never raw
// secret bytes) and returns the exit code its Kind maps to.
func failureCode(logger *slog.Logger, op string, err error) int {
	if e, ok := core.As(err); ok {
		logger.Error("operation failed", "op", op, "kind", e.Kind, "reason", e.Reason)
		return reasonExitCode(e.Kind)
	}
	logger.Error("operation failed", "op", op, "error", err.Error())
	return 1
}

// loadCheckpointContext loads cfgPath (or the compiled-in defaults if
// empty), applies its log level and difficulty-tolerance factor, and
// returns a VerifierContext anchored to its checkpoint along with the
// loaded Config for callers that need its dust/fee bounds too.
func loadCheckpointContext(cfgPath string) (*header.VerifierContext, config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, config.Config{}, err
	}
	applyLogLevel(cfg.LogLevel)
	cp, err := cfg.Checkpoint.Decode()
	if err != nil {
		return nil, config.Config{}, err
	}
	ctx := spvcore.NewVerifierContext(cp)
	ctx.SetTolerance(cfg.DifficultyTolerance)
	return ctx, cfg, nil
}

func readStdin() ([]byte, error) {
	return io.ReadAll(os.Stdin)
}

// --- validate-envelope ---

type validateEnvelopeRequest struct {
	Envelope     json.RawMessage `json:"envelope"`
	ChainFileHex string          `json:"chain_file_hex,omitempty"`
}

type validateEnvelopeResponse struct {
	OK            bool   `json:"ok"`
	Err           string `json:"err,omitempty"`
	Kind          string `json:"kind,omitempty"`
	Reason        string `json:"reason,omitempty"`
	TxIDHex       string `json:"txid,omitempty"`
	Vout          uint32 `json:"vout,omitempty"`
	Satoshis      uint64 `json:"satoshis,omitempty"`
	PubKeyHashHex string `json:"pubkey_hash,omitempty"`
}

func cmdValidateEnvelopeMain(logger *slog.Logger, argv []string) int {
	fs := flag.NewFlagSet("validate-envelope", flag.ContinueOnError)
	cfgPath := registerConfigFlag(fs)
	if err := fs.Parse(argv); err != nil {
		return 2
	}

	body, err := readStdin()
	if err != nil {
		writeJSON(validateEnvelopeResponse{Err: "read stdin: " + err.Error()})
		return 1
	}
	var req validateEnvelopeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(validateEnvelopeResponse{Err: "bad request: " + err.Error()})
		return 1
	}

	ctx, _, err := loadCheckpointContext(*cfgPath)
	if err != nil {
		writeJSON(validateEnvelopeResponse{Err: err.Error()})
		return 1
	}

	var chain *header.Chain
	if req.ChainFileHex != "" {
		chainBytes, err := benc.DecodeHex(req.ChainFileHex)
		if err != nil {
			writeJSON(validateEnvelopeResponse{Err: "bad chain_file_hex"})
			return reasonExitCode(core.KindDecode)
		}
		chain, err = spvcore.VerifyHeaderChain(chainBytes, ctx)
		if err != nil {
			writeJSON(errEnvelopeResponse(err))
			return failureCode(logger, "validate-envelope", err)
		}
	}

	logger.Info("validating envelope", "op", "validate-envelope")
	env, err := spvcore.ParseAndValidateEnvelope(req.Envelope, ctx, chain)
	if err != nil {
		writeJSON(errEnvelopeResponse(err))
		return failureCode(logger, "validate-envelope", err)
	}

	writeJSON(validateEnvelopeResponse{
		OK:            true,
		TxIDHex:       hex.EncodeToString(env.TxID[:]),
		Vout:          env.Vout,
		Satoshis:      env.Satoshis,
		PubKeyHashHex: hex.EncodeToString(env.PubKeyHash[:]),
	})
	logger.Info("envelope validated", "op", "validate-envelope", "satoshis", env.Satoshis)
	return 0
}

func errEnvelopeResponse(err error) validateEnvelopeResponse {
	resp := validateEnvelopeResponse{Err: err.Error()}
	if e, ok := core.As(err); ok {
		resp.Kind = string(e.Kind)
		resp.Reason = e.Reason
	}
	return resp
}

// --- verify-chain ---

type verifyChainRequest struct {
	ChainFileHex string `json:"chain_file_hex"`
}

type verifyChainResponse struct {
	OK                bool   `json:"ok"`
	Err               string `json:"err,omitempty"`
	Kind              string `json:"kind,omitempty"`
	Reason            string `json:"reason,omitempty"`
	AnchorHeight      uint32 `json:"anchor_height,omitempty"`
	HeaderCount       int    `json:"header_count,omitempty"`
	CumulativeWorkHex string `json:"cumulative_work,omitempty"`
	TipHashHex        string `json:"tip_hash,omitempty"`
}

func cmdVerifyChainMain(logger *slog.Logger, argv []string) int {
	fs := flag.NewFlagSet("verify-chain", flag.ContinueOnError)
	cfgPath := registerConfigFlag(fs)
	if err := fs.Parse(argv); err != nil {
		return 2
	}

	body, err := readStdin()
	if err != nil {
		writeJSON(verifyChainResponse{Err: "read stdin: " + err.Error()})
		return 1
	}
	var req verifyChainRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(verifyChainResponse{Err: "bad request: " + err.Error()})
		return 1
	}

	ctx, _, err := loadCheckpointContext(*cfgPath)
	if err != nil {
		writeJSON(verifyChainResponse{Err: err.Error()})
		return 1
	}

	chainBytes, err := benc.DecodeHex(req.ChainFileHex)
	if err != nil {
		writeJSON(verifyChainResponse{Err: "bad chain_file_hex"})
		return reasonExitCode(core.KindDecode)
	}

	logger.Info("verifying header chain", "op", "verify-chain")
	chain, err := spvcore.VerifyHeaderChain(chainBytes, ctx)
	if err != nil {
		resp := verifyChainResponse{Err: err.Error()}
		if e, ok := core.As(err); ok {
			resp.Kind = string(e.Kind)
			resp.Reason = e.Reason
		}
		writeJSON(resp)
		return failureCode(logger, "verify-chain", err)
	}

	tip := chain.Tip().Hash()
	writeJSON(verifyChainResponse{
		OK:                true,
		AnchorHeight:      chain.AnchorHeight,
		HeaderCount:       len(chain.Headers),
		CumulativeWorkHex: hex.EncodeToString(chain.CumulativeWork.Bytes()),
		TipHashHex:        hex.EncodeToString(tip[:]),
	})
	logger.Info("chain verified", "op", "verify-chain", "headers", len(chain.Headers))
	return 0
}

// --- build-tx ---

type buildTxRequest struct {
	Envelopes           []json.RawMessage `json:"envelopes"`
	WIF                 string            `json:"wif"`
	DestAddress         string            `json:"dest_address"`
	AmountSatoshis      uint64            `json:"amount_satoshis"`
	FeeRatePerByte      uint64            `json:"fee_rate_per_byte"`
	ExplicitFeeSatoshis *uint64           `json:"explicit_fee_satoshis,omitempty"`
	ChainFileHex        string            `json:"chain_file_hex,omitempty"`
}

type buildTxResponse struct {
	OK     bool   `json:"ok"`
	Err    string `json:"err,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Reason string `json:"reason,omitempty"`
	TxHex  string `json:"tx_hex,omitempty"`
}

func cmdBuildTxMain(logger *slog.Logger, argv []string) int {
	fs := flag.NewFlagSet("build-tx", flag.ContinueOnError)
	cfgPath := registerConfigFlag(fs)
	if err := fs.Parse(argv); err != nil {
		return 2
	}

	body, err := readStdin()
	if err != nil {
		writeJSON(buildTxResponse{Err: "read stdin: " + err.Error()})
		return 1
	}
	var req buildTxRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(buildTxResponse{Err: "bad request: " + err.Error()})
		return 1
	}

	ctx, cfg, err := loadCheckpointContext(*cfgPath)
	if err != nil {
		writeJSON(buildTxResponse{Err: err.Error()})
		return 1
	}

	var chain *header.Chain
	if req.ChainFileHex != "" {
		chainBytes, err := benc.DecodeHex(req.ChainFileHex)
		if err != nil {
			writeJSON(buildTxResponse{Err: "bad chain_file_hex"})
			return reasonExitCode(core.KindDecode)
		}
		chain, err = spvcore.VerifyHeaderChain(chainBytes, ctx)
		if err != nil {
			resp := buildTxResponse{Err: err.Error()}
			if e, ok := core.As(err); ok {
				resp.Kind, resp.Reason = string(e.Kind), e.Reason
			}
			writeJSON(resp)
			return failureCode(logger, "build-tx", err)
		}
	}

	logger.Info("building spend transaction", "op", "build-tx", "inputs", len(req.Envelopes))

	envelopes := make([]*envelope.Envelope, 0, len(req.Envelopes))
	for _, raw := range req.Envelopes {
		env, err := spvcore.ParseAndValidateEnvelope(raw, ctx, chain)
		if err != nil {
			resp := buildTxResponse{Err: err.Error()}
			if e, ok := core.As(err); ok {
				resp.Kind, resp.Reason = string(e.Kind), e.Reason
			}
			writeJSON(resp)
			return failureCode(logger, "build-tx", err)
		}
		envelopes = append(envelopes, env)
	}

	wifKey, err := becdsa.DecodeWIF(req.WIF)
	if err != nil {
		resp := buildTxResponse{Err: err.Error()}
		if e, ok := core.As(err); ok {
			resp.Kind, resp.Reason = string(e.Kind), e.Reason
		}
		writeJSON(resp)
		return failureCode(logger, "build-tx", err)
	}

	feeSpec := spvcore.FeeSpec{RatePerByte: req.FeeRatePerByte}
	if req.ExplicitFeeSatoshis != nil {
		feeSpec = spvcore.FeeSpec{ExplicitFee: *req.ExplicitFeeSatoshis, UseExplicit: true}
	}
	policy := spvcore.FeePolicy{DustThreshold: cfg.DustThreshold, MaxFeeFraction: cfg.MaxFeeFraction}

	txHex, err := spvcore.BuildAndSignTransaction(envelopes, wifKey, req.DestAddress, req.AmountSatoshis, feeSpec, policy)
	if err != nil {
		resp := buildTxResponse{Err: err.Error()}
		if e, ok := core.As(err); ok {
			resp.Kind, resp.Reason = string(e.Kind), e.Reason
		}
		writeJSON(resp)
		return failureCode(logger, "build-tx", err)
	}

	writeJSON(buildTxResponse{OK: true, TxHex: txHex})
	logger.Info("transaction signed", "op", "build-tx", "inputs", len(envelopes))
	return 0
}
