// Package errs defines the kernel's error taxonomy (spec §7) by meaning,
// not by type name. Domain packages declare their own sentinel errors
// (matching the teacher's errors.New-per-condition style) and classify
// them into one of these kinds via Is/As so callers — chiefly the Tool
// Executor and Kernel Client — can build a structured result envelope
// without string-matching messages.
package errs

import (
	"errors"
	"fmt"
)

// Kind is one taxonomy bucket from spec §7.
type Kind int

// The zero Kind is deliberately unnamed: it marks an unclassified error
// (Classify's false case) and the Kind of a successful kernel.Result.
const (
	// ConfigurationMissing: a required collaborator or value was never
	// wired. Never recoverable locally — surfaced at construction or
	// first use, and the boundary must throw, not return a result
	// envelope.
	ConfigurationMissing Kind = iota + 1
	// InvalidArgument: quantity <= 0, negative price/amount, blank
	// currency/tender/session, unknown product or line item id.
	InvalidArgument
	// IllegalState: operation attempted in a terminal state, payment on
	// an empty transaction, store switch with an open transaction.
	IllegalState
	// PaymentPolicyViolation: unknown tender, disallowed overpay, inexact
	// tender on an exact-required type.
	PaymentPolicyViolation
	// ModifierRuleViolation: unknown/non-applicable/incompatible/
	// duplicate-in-single-select/missing-required modifier selection.
	ModifierRuleViolation
	// SchemaIntegrityViolation: gap, checksum mismatch, unknown applied
	// version, read-only filesystem, partial script failure.
	SchemaIntegrityViolation
)

func (k Kind) String() string {
	switch k {
	case ConfigurationMissing:
		return "ConfigurationMissing"
	case InvalidArgument:
		return "InvalidArgument"
	case IllegalState:
		return "IllegalState"
	case PaymentPolicyViolation:
		return "PaymentPolicyViolation"
	case ModifierRuleViolation:
		return "ModifierRuleViolation"
	case SchemaIntegrityViolation:
		return "SchemaIntegrityViolation"
	default:
		return "Unknown"
	}
}

// Error carries a Kind plus a short, specific, user-visible message naming
// the offending field or rule, and optionally the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Classify walks err's Unwrap chain for an *Error and reports its Kind.
// Callers building a structured result envelope (the Kernel Client, the
// Tool Executor) use this instead of string-matching a message.
func Classify(err error) (Kind, bool) {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind, true
	}
	return 0, false
}

// New builds an *Error of the given kind with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error of the given kind around an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// ConfigurationMissingf panics with a ConfigurationMissing error. Per spec
// §7, ConfigurationMissing is never recoverable locally: the host must
// terminate or reconfigure, so it throws at the boundary rather than
// returning a result envelope.
func ConfigurationMissingf(format string, args ...any) {
	panic(New(ConfigurationMissing, fmt.Sprintf(format, args...)))
}

// FinancialIntegrityViolation panics with a plain error. It is deliberately
// NOT part of the Kind enum: per spec §7 it indicates a programmer error
// (corruption) and must propagate as a panic, never as a result envelope
// that could be silently discarded by a caller.
type FinancialIntegrityViolation struct {
	Message string
}

func (e *FinancialIntegrityViolation) Error() string {
	return "financial integrity violation: " + e.Message
}

// PanicIntegrity panics with a FinancialIntegrityViolation.
func PanicIntegrity(format string, args ...any) {
	panic(&FinancialIntegrityViolation{Message: fmt.Sprintf(format, args...)})
}
