package header

import (
	"math/big"
	"sync"
	"time"
)

// Checkpoint is the embedded {height, hash, nBits} triple: an optional
// identity check for a loaded chain's anchor, and the source of the static
// difficulty floor when no chain is loaded.
type Checkpoint struct {
	Height uint32
	Hash   [32]byte
	Bits   uint32
}

// VerifierContext carries the mutable dynamic difficulty floor across
// calls. This is the only piece of runtime state in the core; everything
// else is passed explicitly. Access is guarded by a mutex since a CLI
// process could in principle reuse one context across sequential
// operations.
type VerifierContext struct {
	mu            sync.Mutex
	checkpoint    Checkpoint
	dynamicTarget *big.Int
	tolerance     int64
	now           func() int64
}

// NewVerifierContext builds a context anchored to checkpoint, with no
// dynamic floor set yet (the checkpoint's target is used as the reference
// until a header chain is verified) and the default difficulty-tolerance
// factor. Call SetTolerance to override it from a loaded Config.
func NewVerifierContext(cp Checkpoint) *VerifierContext {
	return &VerifierContext{checkpoint: cp, tolerance: DifficultyTolerance, now: func() int64 { return time.Now().Unix() }}
}

// Checkpoint returns the context's configured checkpoint.
func (v *VerifierContext) Checkpoint() Checkpoint {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.checkpoint
}

// ReferenceTarget returns the target currently used as the difficulty-floor
// reference: the dynamic floor set by the last verified chain's tip, or the
// checkpoint's static target if no chain has been verified yet.
func (v *VerifierContext) ReferenceTarget() *big.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.dynamicTarget != nil {
		return v.dynamicTarget
	}
	t := BoundedTarget(v.checkpoint.Bits)
	return t
}

// SetDynamicFloor updates the reference target from a newly verified
// chain's tip header, per the header-chain-verify step 3 rule.
func (v *VerifierContext) SetDynamicFloor(tip Header) {
	v.mu.Lock()
	defer v.mu.Unlock()
	t := BoundedTarget(tip.Bits)
	v.dynamicTarget = t
}

// Tolerance returns the difficulty-floor tolerance factor currently in
// effect.
func (v *VerifierContext) Tolerance() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.tolerance
}

// SetTolerance overrides the difficulty-floor tolerance factor, e.g. from
// an operator-supplied Config.
func (v *VerifierContext) SetTolerance(t int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tolerance = t
}

// Now returns the current Unix time, overridable in tests.
func (v *VerifierContext) Now() int64 {
	v.mu.Lock()
	fn := v.now
	v.mu.Unlock()
	return fn()
}

// SetNow overrides the context's clock, for deterministic tests.
func (v *VerifierContext) SetNow(fn func() int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.now = fn
}
