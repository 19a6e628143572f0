// Package apperr is the error taxonomy shared by the API server and its
// clients. Every failure that reaches a caller is an *Error carrying a Kind,
// a user-safe message and, on the server, the underlying cause for logs.
package apperr

import (
	"errors"
	"net/http"
)

type Kind string

const (
	KindValidation          Kind = "validation"
	KindAuth                Kind = "auth"
	KindDuplicate           Kind = "duplicate"
	KindVerification        Kind = "verification"
	KindServer              Kind = "server"
	KindNotFound            Kind = "not_found"
	KindInvalidPlan         Kind = "invalid_plan"
	KindPremiumRequired     Kind = "premium_required"
	KindProviderUnavailable Kind = "provider_unavailable"
	KindCancelled           Kind = "cancelled"
	KindTimeout             Kind = "timeout"
	KindRateLimited         Kind = "rate_limited"
)

// Wire codes that refine KindAuth.
const (
	CodeNoToken            = "no_token"
	CodeVerificationFailed = "verification_failed"
	CodeInvalidCredentials = "invalid_credentials"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	// Expired is set on premium_required when the user had premium that lapsed.
	Expired bool
	Err     error
}

var (
	ErrNoToken             = &Error{Kind: KindAuth, Code: CodeNoToken, Message: "No authentication token, access denied"}
	ErrVerificationFailed  = &Error{Kind: KindAuth, Code: CodeVerificationFailed, Message: "Token verification failed"}
	ErrInvalidCredentials  = &Error{Kind: KindAuth, Code: CodeInvalidCredentials, Message: "Invalid email or password"}
	ErrInvalidPlan         = &Error{Kind: KindInvalidPlan, Message: "Invalid plan type"}
	ErrPremiumRequired     = &Error{Kind: KindPremiumRequired, Message: "Premium subscription required"}
	ErrProviderUnavailable = &Error{Kind: KindProviderUnavailable, Message: "Sign-in provider is not available"}
	ErrCancelled           = &Error{Kind: KindCancelled, Message: "Cancelled by user"}
	ErrTimeout             = &Error{Kind: KindTimeout, Message: "The server took too long to respond, please try again"}
)

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind, and on Code when the target sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// WithCause returns a copy of e that wraps err.
func (e *Error) WithCause(err error) *Error {
	c := *e
	c.Err = err
	return &c
}

// WireCode is the code sent in error bodies.
func (e *Error) WireCode() string {
	if e.Code != "" {
		return e.Code
	}
	return string(e.Kind)
}

func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation, KindDuplicate, KindInvalidPlan, KindVerification:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindPremiumRequired:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindProviderUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether repeating the same call may succeed.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindServer, KindRateLimited:
		return true
	}
	return false
}

// As extracts an *Error from err. Anything else becomes a server error that
// keeps the original as its cause.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(KindServer, "Something went wrong, please try again", err)
}

func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return As(err).Kind
}
