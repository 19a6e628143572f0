package apperr

import "net/http"

// Body is the JSON shape of every error response.
type Body struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Expired bool   `json:"expired,omitempty"`
}

func (e *Error) Body() Body {
	return Body{Message: e.Message, Code: e.WireCode(), Expired: e.Expired}
}

// FromResponse rebuilds an *Error from a non-2xx status and decoded body.
// Unknown codes fall back to the kind implied by the status.
func FromResponse(status int, body Body) *Error {
	e := &Error{Message: body.Message, Expired: body.Expired}

	switch Kind(body.Code) {
	case KindValidation, KindDuplicate, KindVerification, KindNotFound, KindInvalidPlan,
		KindPremiumRequired, KindProviderUnavailable, KindRateLimited, KindTimeout, KindServer:
		e.Kind = Kind(body.Code)
	}

	switch body.Code {
	case CodeNoToken, CodeVerificationFailed, CodeInvalidCredentials:
		e.Kind = KindAuth
		e.Code = body.Code
	}

	if e.Kind == "" {
		switch {
		case status == http.StatusUnauthorized:
			e.Kind = KindAuth
		case status == http.StatusForbidden:
			e.Kind = KindPremiumRequired
		case status == http.StatusNotFound:
			e.Kind = KindNotFound
		case status == http.StatusTooManyRequests:
			e.Kind = KindRateLimited
		case status >= 400 && status < 500:
			e.Kind = KindValidation
		default:
			e.Kind = KindServer
		}
	}

	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}
