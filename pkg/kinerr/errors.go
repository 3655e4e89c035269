// Package kinerr defines the error kinds surfaced by the wallet core.
//
// Every component boundary returns a *Error tagged with exactly one Kind.
// Callers switch on KindOf(err) for the outermost kind, or use errors.Is
// against the per-kind sentinels to look anywhere in the chain:
//
//	switch kinerr.KindOf(err) {
//	case kinerr.InsufficientBalance:
//		...
//	}
//
//	if errors.Is(err, kinerr.ErrConnectivity) {
//		// some layer failed to reach the node
//	}
package kinerr

import (
	"errors"
	"fmt"
)

// Kind identifies the category of a failure.
type Kind uint8

const (
	// Unknown is returned by KindOf for nil or untagged errors.
	Unknown Kind = iota

	// Connectivity means the node could not be reached. Safe to retry with backoff.
	Connectivity

	// RPC means the node answered with an application-level error.
	RPC

	// Decoding means a response did not match the expected ABI or encoding.
	// It is never interpreted as a default value.
	Decoding

	// Conversion means an amount has too much precision or does not fit in 256 bits.
	Conversion

	// Passphrase means the key custody refused to sign.
	Passphrase

	// InsufficientBalance means the confirmed balance does not cover the transfer.
	InsufficientBalance

	// OperationFailed wraps any other cause, including invalid input.
	OperationFailed
)

var kindNames = map[Kind]string{
	Unknown:             "unknown",
	Connectivity:        "connectivity",
	RPC:                 "rpc",
	Decoding:            "decoding",
	Conversion:          "conversion",
	Passphrase:          "passphrase",
	InsufficientBalance: "insufficient balance",
	OperationFailed:     "operation failed",
}

// String returns a short human-readable name for the kind.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrConnectivity        = &Error{Kind: Connectivity}
	ErrRPC                 = &Error{Kind: RPC}
	ErrDecoding            = &Error{Kind: Decoding}
	ErrConversion          = &Error{Kind: Conversion}
	ErrPassphrase          = &Error{Kind: Passphrase}
	ErrInsufficientBalance = &Error{Kind: InsufficientBalance}
	ErrOperationFailed     = &Error{Kind: OperationFailed}
)

// Error is a failure tagged with a Kind and the operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// New returns an error of the given kind wrapping err.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf returns an error of the given kind with a formatted cause.
func Newf(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	default:
		return e.Kind.String()
	}
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a sentinel (no Op, no cause) of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Op != "" || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Wrap tags err as OperationFailed unless it already carries a kind, in which
// case it is returned unchanged. A nil err yields nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return New(OperationFailed, op, err)
}
