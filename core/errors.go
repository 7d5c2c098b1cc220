package core

import "errors"

// Error kinds. Match with errors.Is; the adapter maps them to HTTP statuses.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")
	ErrForbidden    = errors.New("forbidden")
	ErrUpstream     = errors.New("upstream failure")
	ErrPersistence  = errors.New("persistence failure")
)

// Error carries a kind, a caller-facing message, and the underlying cause.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func unauthorized(msg string, err error) error { return &Error{Kind: ErrUnauthorized, Msg: msg, Err: err} }
func badRequest(msg string) error              { return &Error{Kind: ErrBadRequest, Msg: msg} }
func upstream(msg string, err error) error     { return &Error{Kind: ErrUpstream, Msg: msg, Err: err} }
func persistence(msg string, err error) error  { return &Error{Kind: ErrPersistence, Msg: msg, Err: err} }

// Forbidden builds a forbidden error for gates outside this package.
func Forbidden(msg string) error { return &Error{Kind: ErrForbidden, Msg: msg} }

// Unauthorized builds an unauthorized error for gates outside this package.
func Unauthorized(msg string) error { return &Error{Kind: ErrUnauthorized, Msg: msg} }

// BadRequest builds a bad-request error for validation outside this package.
func BadRequest(msg string) error { return badRequest(msg) }

// KindOf returns the error kind, or nil for errors outside the taxonomy.
func KindOf(err error) error {
	for _, k := range []error{ErrUnauthorized, ErrBadRequest, ErrForbidden, ErrUpstream, ErrPersistence} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
