// internal/escrow/errors.go
package escrow

import (
	"errors"
	"fmt"
)

// Kind classifies escrow and swap failures.
type Kind string

const (
	// input
	KindInvalidAddress Kind = "InvalidAddress"
	KindInvalidRange   Kind = "InvalidRange"
	KindInvalidRate    Kind = "InvalidRate"
	KindInvalidName    Kind = "InvalidName"

	// state
	KindConfigMismatch    Kind = "ConfigMismatch"
	KindAuthorityMismatch Kind = "AuthorityMismatch"
	KindWrongCollection   Kind = "WrongCollection"
	KindNotOwned          Kind = "NotOwned"

	// resource
	KindInsufficientBalance Kind = "InsufficientBalance"

	// transaction
	KindInitializationFailed Kind = "InitializationFailed"
	KindTransactionRejected  Kind = "TransactionRejected"
	KindEscrowUnavailable    Kind = "EscrowUnavailable"
)

// Error - типизированная ошибка эскроу. Field указывает на поле конфигурации или
// участника (wallet, escrow), к которому относится ошибка.
type Error struct {
	Kind     Kind
	Field    string
	Expected string
	Actual   string
	Err      error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Field != "" {
		msg += "(" + e.Field + ")"
	}
	if e.Expected != "" || e.Actual != "" {
		msg += fmt.Sprintf(": expected %s, got %s", e.Expected, e.Actual)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches by kind; a target with a Field also has to match the field.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Field == "" || t.Field == e.Field)
}

var (
	ErrInvalidAddress       = &Error{Kind: KindInvalidAddress}
	ErrInvalidRange         = &Error{Kind: KindInvalidRange}
	ErrInvalidRate          = &Error{Kind: KindInvalidRate}
	ErrInvalidName          = &Error{Kind: KindInvalidName}
	ErrConfigMismatch       = &Error{Kind: KindConfigMismatch}
	ErrAuthorityMismatch    = &Error{Kind: KindAuthorityMismatch}
	ErrWrongCollection      = &Error{Kind: KindWrongCollection}
	ErrNotOwned             = &Error{Kind: KindNotOwned}
	ErrInsufficientBalance  = &Error{Kind: KindInsufficientBalance}
	ErrInitializationFailed = &Error{Kind: KindInitializationFailed}
	ErrTransactionRejected  = &Error{Kind: KindTransactionRejected}
	ErrEscrowUnavailable    = &Error{Kind: KindEscrowUnavailable}
)

// ErrAlreadyInitialized is returned by Initialize when the escrow account already exists.
var ErrAlreadyInitialized = errors.New("escrow already initialized")

// KindOf returns the kind of the outermost *Error in the chain, or "" if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func newError(kind Kind, field string, err error) *Error {
	return &Error{Kind: kind, Field: field, Err: err}
}

func mismatch(kind Kind, field string, expected, actual fmt.Stringer) *Error {
	return &Error{Kind: kind, Field: field, Expected: expected.String(), Actual: actual.String()}
}
