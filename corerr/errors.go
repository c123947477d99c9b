// Package corerr implements the error taxonomy spec.md §7 describes:
// a small set of operation kinds, a recognized-code vocabulary, and
// chaining via an optional wrapped previous error. It is the idiomatic Go
// rendering of "each error carries an optional short code, an optional
// human message, and an optional wrapped previous error" — a struct
// instead of a message-only fmt.Errorf, so Kind/Code survive
// errors.As/errors.Is traversal instead of being baked into a string, the
// way hardware.go/classic.go bake everything into fmt.Errorf("...: %v").
package corerr

import "fmt"

// Kind is the taxonomy of operations that can fail (spec.md §7).
type Kind string

const (
	KindConnect               Kind = "Connect"
	KindDisconnect            Kind = "Disconnect"
	KindTransmit              Kind = "Transmit"
	KindControl               Kind = "Control"
	KindLoadAuthenticationKey Kind = "LoadAuthenticationKey"
	KindAuthentication        Kind = "Authentication"
	KindRead                  Kind = "Read"
	KindWrite                 Kind = "Write"
	KindGetUID                Kind = "GetUID"
)

// Recognized codes (spec.md §7).
const (
	CodeFailure           = "failure"
	CodeCardNotConnected  = "card_not_connected"
	CodeOperationFailed   = "operation_failed"
	CodeInvalidKey        = "invalid_key"
	CodeInvalidKeyNumber  = "invalid_key_number"
	CodeInvalidDataLength = "invalid_data_length"
	CodeInvalidMode       = "invalid_mode"
	CodeNotConnected      = "not_connected"
	CodeInvalidResponse   = "invalid_response"
	CodeUnableToLoadKey   = "unable_to_load_key"
	CodeUnknownError      = "unknown_error"
)

// Error is one error of the taxonomy in Kind, carrying an optional code,
// message, and wrapped previous error.
type Error struct {
	Kind     Kind
	Code     string
	Message  string
	Previous error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code
	}
	if e.Code != "" && msg != e.Code {
		return fmt.Sprintf("%s/%s: %s", e.Kind, e.Code, msg)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s/%s", e.Kind, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap exposes the wrapped previous error for errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.Previous }

// New builds an Error with no wrapped previous error.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap builds an Error wrapping previous as its chained cause.
func Wrap(kind Kind, code, message string, previous error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Previous: previous}
}

// Failure builds the common "provider-layer failure" shape: the given
// kind, code "failure", and the provider error wrapped (spec.md §7:
// "Provider-layer failures surfaced through callbacks become the
// corresponding kind with code failure and the provider error wrapped").
func Failure(kind Kind, message string, previous error) *Error {
	return Wrap(kind, CodeFailure, message, previous)
}

// OperationFailed builds the common "status-word mismatch" shape: the
// given kind, code "operation_failed", and the status word embedded in
// the message (spec.md §7).
func OperationFailed(kind Kind, statusHex string) *Error {
	return New(kind, CodeOperationFailed, fmt.Sprintf("operation failed with status %s", statusHex))
}
