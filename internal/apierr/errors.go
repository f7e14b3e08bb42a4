// Package apierr defines the typed error taxonomy used across HyprCAT.
// Internal code never builds an HTTP response directly; it returns an
// *Error and lets the API layer translate it into the linked-data error
// envelope.
package apierr

import "fmt"

// Kind identifies an error category. Kinds map 1:1 onto HTTP status codes
// but are compared with errors.Is/As independent of any transport.
type Kind string

const (
	KindBadRequest         Kind = "bad_request"
	KindUnauthorized       Kind = "unauthorized"
	KindForbidden          Kind = "forbidden"
	KindNotFound           Kind = "not_found"
	KindConflict           Kind = "conflict"
	KindPaymentRequired    Kind = "payment_required"
	KindTooManyRequests    Kind = "rate_limited"
	KindValidation         Kind = "validation_failed"
	KindUpstreamFailure    Kind = "upstream_failure"
	KindInternal           Kind = "internal_error"
)

var statusByKind = map[Kind]int{
	KindBadRequest:      400,
	KindUnauthorized:    401,
	KindPaymentRequired: 402,
	KindForbidden:       403,
	KindNotFound:        404,
	KindConflict:        409,
	KindValidation:      422,
	KindTooManyRequests: 429,
	KindUpstreamFailure: 502,
	KindInternal:        500,
}

// Error is the typed error carried through internal code and rendered by
// the HTTP layer into the standard error envelope.
type Error struct {
	Kind     Kind
	Title    string
	Detail   string
	Instance string
	Wrapped  error
	// Meta carries kind-specific extras a caller needs to react
	// programmatically: an invoice for payment_required, retryAfter for
	// rate_limited.
	Meta map[string]interface{}
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Title, e.Detail)
	}
	return e.Title
}

func (e *Error) Unwrap() error { return e.Wrapped }

// HTTPStatus returns the status code associated with e's Kind, defaulting
// to 500 for an unrecognized Kind.
func (e *Error) HTTPStatus() int {
	if status, ok := statusByKind[e.Kind]; ok {
		return status
	}
	return 500
}

// New builds an *Error of the given kind with a human-readable title.
func New(kind Kind, title string) *Error {
	return &Error{Kind: kind, Title: title}
}

// Wrap builds an *Error of the given kind wrapping an underlying cause.
func Wrap(kind Kind, title string, cause error) *Error {
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	return &Error{Kind: kind, Title: title, Detail: detail, Wrapped: cause}
}

// WithDetail returns a copy of e with Detail set.
func (e *Error) WithDetail(detail string) *Error {
	clone := *e
	clone.Detail = detail
	return &clone
}

// WithMeta returns a copy of e with key set in Meta.
func (e *Error) WithMeta(key string, value interface{}) *Error {
	clone := *e
	clone.Meta = make(map[string]interface{}, len(e.Meta)+1)
	for k, v := range e.Meta {
		clone.Meta[k] = v
	}
	clone.Meta[key] = value
	return &clone
}

// WithInstance returns a copy of e with Instance (the request path) set.
func (e *Error) WithInstance(instance string) *Error {
	clone := *e
	clone.Instance = instance
	return &clone
}

func NotFound(title string) *Error         { return New(KindNotFound, title) }
func BadRequest(title string) *Error       { return New(KindBadRequest, title) }
func Unauthorized(title string) *Error     { return New(KindUnauthorized, title) }
func Forbidden(title string) *Error        { return New(KindForbidden, title) }
func Conflict(title string) *Error         { return New(KindConflict, title) }
func PaymentRequired(title string) *Error  { return New(KindPaymentRequired, title) }
func TooManyRequests(title string) *Error  { return New(KindTooManyRequests, title) }
func ValidationFailed(title string) *Error { return New(KindValidation, title) }
func Internal(title string) *Error         { return New(KindInternal, title) }
