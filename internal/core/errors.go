// Package core holds the error taxonomy shared by every component of the
// SPV signing core. Every exported function in internal/* returns this
// error type on failure; there is no other error shape crossing a package
// boundary.
package core

import "fmt"

// Kind is one of the coarse error categories every package in this module
// returns. It is not a Go type hierarchy — just a stable tag callers can
// switch on without string-matching the message.
type Kind string

const (
	KindDecode    Kind = "DECODE"
	KindSchema    Kind = "SCHEMA"
	KindIntegrity Kind = "INTEGRITY"
	KindPolicy    Kind = "POLICY"
	KindCrypto    Kind = "CRYPTO"
	KindInput     Kind = "INPUT"
)

// Error is the single error type produced by this module's internal
// packages. Reason is a stable machine-readable code (e.g.
// "TXID_MISMATCH"); Msg is a short human-readable detail that may change
// between releases.
type Error struct {
	Kind   Kind
	Reason string
	Msg    string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Reason, e.Msg)
}

// New builds an *Error with a fixed message.
func New(kind Kind, reason, msg string) error {
	return &Error{Kind: kind, Reason: reason, Msg: msg}
}

// Newf builds an *Error with a formatted message.
func Newf(kind Kind, reason, format string, args ...any) error {
	return &Error{Kind: kind, Reason: reason, Msg: fmt.Sprintf(format, args...)}
}

// As reports whether err is (or wraps) an *Error and returns it.
func As(err error) (*Error, bool) {
	e, ok := err.(*Error)
	return e, ok
}
