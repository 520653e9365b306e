// Package apperror defines the failure categories surfaced to users.
// Each kind carries its own remediation text so front ends can tell the
// user whether to reload the page, check the key or check the connection.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies a user-facing failure category
type Kind int

const (
	KindUnknown Kind = iota
	KindMissingCredential
	KindCredentialRejected
	KindTransport
	KindContentUnavailable
	KindUnsupportedPage
	KindMalformedResponse
	KindPersistence
	KindNoContent
	KindProvider
)

var kindNames = map[Kind]string{
	KindUnknown:            "unknown",
	KindMissingCredential:  "missing_or_invalid_credential",
	KindCredentialRejected: "credential_rejected_by_provider",
	KindTransport:          "transport_failure",
	KindContentUnavailable: "content_script_unavailable",
	KindUnsupportedPage:    "unsupported_page",
	KindMalformedResponse:  "malformed_provider_response",
	KindPersistence:        "persistence_failure",
	KindNoContent:          "no_article_content",
	KindProvider:           "provider_error",
}

var remediations = map[Kind]string{
	KindUnknown:            "Something went wrong. Please try again.",
	KindMissingCredential:  "Please enter a valid OpenAI API key. API keys start with 'sk-' and are 20+ characters long.",
	KindCredentialRejected: "Please check your API key and try again.",
	KindTransport:          "Please check your internet connection and try again.",
	KindContentUnavailable: "Please refresh the page and try again. The content script needs to be reloaded.",
	KindUnsupportedPage:    "Please navigate to a news article or webpage to analyze.",
	KindMalformedResponse:  "The model returned an unexpected response. Please try again.",
	KindPersistence:        "The key works for this session but could not be saved. It will be lost on restart.",
	KindNoContent:          "No article content found on this page.",
	KindProvider:           "The model provider returned an error. Please try again later.",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// Remediation returns the advice shown to the user for this kind
func (k Kind) Remediation() string {
	if r, ok := remediations[k]; ok {
		return r
	}
	return remediations[KindUnknown]
}

// HTTPStatus maps the kind to a response status code
func (k Kind) HTTPStatus() int {
	switch k {
	case KindMissingCredential:
		return http.StatusBadRequest
	case KindCredentialRejected:
		return http.StatusUnauthorized
	case KindTransport:
		return http.StatusGatewayTimeout
	case KindContentUnavailable, KindMalformedResponse, KindProvider:
		return http.StatusBadGateway
	case KindUnsupportedPage, KindNoContent:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Error is a categorized failure. Status and Message hold the provider's
// HTTP status and message when the failure came from a remote call.
type Error struct {
	Kind    Kind
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("status %d: %s", e.Status, msg)
	}
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given kind with a message
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap categorizes an underlying error
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first categorized error in err's chain
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
