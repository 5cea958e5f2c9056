// Package config loads the air-gapped signer's runtime configuration: the
// checkpoint profile, the difficulty-tolerance factor, and the dust/fee
// bounds, following node/config.go's DefaultConfig/Validate shape. There
// is no network, peer list, or data directory here — this signer never
// talks to anything but stdin/stdout.
package config

import (
	"encoding/hex"
	"encoding/json"
	"os"

	"github.com/utxospv/spvcore/internal/core"
	"github.com/utxospv/spvcore/internal/header"
)

// Config is the signer's full runtime configuration. All fields have
// usable defaults; the only override an operator is expected to supply is
// a test-fixture checkpoint via a JSON config file.
type Config struct {
	Checkpoint          CheckpointConfig `json:"checkpoint"`
	DifficultyTolerance int64            `json:"difficulty_tolerance"`
	DustThreshold       uint64           `json:"dust_threshold"`
	MaxFeeFraction      float64          `json:"max_fee_fraction"`
	LogLevel            string           `json:"log_level"`
}

// CheckpointConfig is the JSON-friendly mirror of header.Checkpoint (the
// hash travels as hex on the wire, not raw bytes).
type CheckpointConfig struct {
	Height uint32 `json:"height"`
	Hash   string `json:"hash"`
	Bits   uint32 `json:"bits"`
}

var allowedLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

// DefaultConfig returns the compiled-in mainnet profile: the superset
// checkpoint (height/hash/nBits), a difficulty-tolerance factor of 8, and
// the dust/fee-cap constants enforced in internal/txbuild.
func DefaultConfig() Config {
	return Config{
		Checkpoint: CheckpointConfig{
			Height: 935_000,
			Hash:   "000000000000000000adfe36f6bf7e60c2db8e68f4feeaa10de70ccd7c94cb79",
			Bits:   0x170e0408,
		},
		DifficultyTolerance: header.DifficultyTolerance,
		DustThreshold:       546,
		MaxFeeFraction:      0.10,
		LogLevel:            "info",
	}
}

// Load reads a JSON config file at path, overlaying it onto DefaultConfig.
// An empty path returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path) // #nosec G304 -- path is an explicit operator-supplied flag, not derived from untrusted input.
	if err != nil {
		return Config{}, core.Newf(core.KindInput, "CONFIG_UNREADABLE", "read config: %v", err)
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, core.Newf(core.KindSchema, "CONFIG_BAD_JSON", "parse config: %v", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects a config whose fields are structurally unusable. It
// does not second-guess an operator's choice of checkpoint.
func Validate(cfg Config) error {
	if _, ok := allowedLogLevels[cfg.LogLevel]; !ok {
		return core.Newf(core.KindInput, "CONFIG_BAD_LOG_LEVEL", "invalid log_level %q", cfg.LogLevel)
	}
	if cfg.DifficultyTolerance <= 0 {
		return core.New(core.KindInput, "CONFIG_BAD_DIFFICULTY_TOLERANCE", "difficulty_tolerance must be positive")
	}
	if cfg.MaxFeeFraction <= 0 || cfg.MaxFeeFraction > 1 {
		return core.New(core.KindInput, "CONFIG_BAD_MAX_FEE_FRACTION", "max_fee_fraction must be in (0, 1]")
	}
	if _, err := cfg.Checkpoint.Decode(); err != nil {
		return err
	}
	return nil
}

// Decode converts the wire-format checkpoint into a header.Checkpoint.
func (c CheckpointConfig) Decode() (header.Checkpoint, error) {
	b, err := hex.DecodeString(c.Hash)
	if err != nil || len(b) != 32 {
		return header.Checkpoint{}, core.New(core.KindDecode, "CONFIG_BAD_CHECKPOINT_HASH", "checkpoint hash must be 64 hex characters")
	}
	var hash [32]byte
	copy(hash[:], b)
	return header.Checkpoint{Height: c.Height, Hash: hash, Bits: c.Bits}, nil
}
