// Package apperr defines the error kinds surfaced by the store layer.
//
// An *Error carries a fixed, client-safe Message and keeps the underlying
// cause in Err for server-side logging. Error() never includes the cause.
//
//	if apperr.IsKind(err, apperr.Conflict) { ... }
package apperr

import "errors"

// Kind classifies an error so callers can branch without parsing messages.
type Kind uint8

const (
	// Storage is any database failure that is not a constraint violation.
	Storage Kind = iota
	// Validation means the caller supplied unusable input.
	Validation
	// NotFound is used only where an operation cannot express absence as nil.
	NotFound
	// Conflict is a data-integrity rejection (foreign key, unique).
	Conflict
)

// String returns the wire code of k, e.g. "CONFLICT".
func (k Kind) String() string {
	switch k {
	case Validation:
		return "VALIDATION"
	case NotFound:
		return "NOT_FOUND"
	case Conflict:
		return "CONFLICT"
	default:
		return "STORAGE"
	}
}

// Error is a kind-tagged error with a generic message.
type Error struct {
	Kind    Kind
	Op      string // e.g. "store.CreateTodo"
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Err }

// Extensions exposes the kind to GraphQL responses as extensions.code.
func (e *Error) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.Kind.String()}
}

// E builds an *Error.
func E(kind Kind, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or Storage
// when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Storage
}

// IsKind reports whether err carries an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}
