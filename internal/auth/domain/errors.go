package domain

import (
	"errors"
	"net/http"
)

// Kind classifies every failure the authentication path can produce.
type Kind int

const (
	KindUnknown Kind = iota
	KindMissingHeader
	KindInvalidHeader
	KindInvalidToken
	KindTokenExpired
	KindIssuerOrAudienceMismatch
	KindUserNotFound
	KindStoreFailure
	KindEncodingFailure
	KindInvalidCredentials
	KindInvalidRequest
	KindConflict
	KindForbidden
)

var kindNames = map[Kind]string{
	KindUnknown:                  "internal_error",
	KindMissingHeader:            "missing_header",
	KindInvalidHeader:            "invalid_header",
	KindInvalidToken:             "invalid_token",
	KindTokenExpired:             "token_expired",
	KindIssuerOrAudienceMismatch: "issuer_or_audience_mismatch",
	KindUserNotFound:             "user_not_found",
	KindStoreFailure:             "store_failure",
	KindEncodingFailure:          "encoding_failure",
	KindInvalidCredentials:       "invalid_credentials",
	KindInvalidRequest:           "invalid_request",
	KindConflict:                 "conflict",
	KindForbidden:                "forbidden",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return kindNames[KindUnknown]
}

// Status is the HTTP status a failure of this kind is reported with.
// UserNotFound is 401, never 404, so identities can't be enumerated.
func (k Kind) Status() int {
	switch k {
	case KindMissingHeader, KindInvalidHeader, KindInvalidRequest:
		return http.StatusBadRequest
	case KindInvalidToken, KindTokenExpired, KindIssuerOrAudienceMismatch,
		KindUserNotFound, KindInvalidCredentials:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure. Msg is safe to show to clients; Err is the
// underlying cause and is only ever logged.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrTokenExpired)
// works regardless of message or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrMissingHeader            = &Error{Kind: KindMissingHeader}
	ErrInvalidHeader            = &Error{Kind: KindInvalidHeader}
	ErrInvalidToken             = &Error{Kind: KindInvalidToken}
	ErrTokenExpired             = &Error{Kind: KindTokenExpired}
	ErrIssuerOrAudienceMismatch = &Error{Kind: KindIssuerOrAudienceMismatch}
	ErrUserNotFound             = &Error{Kind: KindUserNotFound}
	ErrStoreFailure             = &Error{Kind: KindStoreFailure}
	ErrEncodingFailure          = &Error{Kind: KindEncodingFailure}
	ErrInvalidCredentials       = &Error{Kind: KindInvalidCredentials}
	ErrInvalidRequest           = &Error{Kind: KindInvalidRequest}
	ErrConflict                 = &Error{Kind: KindConflict}
	ErrForbidden                = &Error{Kind: KindForbidden}
)

// E builds an *Error of kind with a client-safe message and optional cause.
func E(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

// KindOf extracts the Kind of err, KindUnknown if it isn't classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// PublicMessage returns the client-safe text for err. Causes of server-side
// failures are never included.
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "internal error"
	}
	if e.Kind.Status() >= http.StatusInternalServerError {
		return "internal error"
	}
	if e.Msg != "" {
		return e.Msg
	}
	return e.Kind.String()
}
