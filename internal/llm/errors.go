package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies provider failures so callers can branch without
// inspecting provider-specific error types.
type Kind int8

const (
	// KindUnknown is the default for unclassified failures.
	KindUnknown Kind = iota
	// KindRateLimit covers 429 responses and exhausted quotas.
	KindRateLimit
	// KindAuth covers 401/403 and missing API keys.
	KindAuth
	// KindTransient covers 5xx responses, timeouts and dropped connections.
	KindTransient
	// KindEmptyResponse is a successful call that returned no text.
	KindEmptyResponse
)

func (k Kind) String() string {
	switch k {
	case KindRateLimit:
		return "rate_limit"
	case KindAuth:
		return "auth"
	case KindTransient:
		return "transient"
	case KindEmptyResponse:
		return "empty_response"
	default:
		return "unknown"
	}
}

// Error is a classified provider failure.
type Error struct {
	Err        error
	Provider   string
	Kind       Kind
	StatusCode int
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error (%s): %v", e.Provider, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s error (%s): status %d", e.Provider, e.Kind, e.StatusCode)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a classified error, or KindUnknown.
func KindOf(err error) Kind {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Kind
	}
	return KindUnknown
}

// IsRateLimit reports whether err is a rate-limit or quota failure.
func IsRateLimit(err error) bool {
	return KindOf(err) == KindRateLimit
}

// classify builds an *Error from a status code, falling back to the error
// text when the provider gave none.
func classify(provider string, status int, err error) *Error {
	kind := kindForStatus(status)
	if kind == KindUnknown && err != nil {
		kind = kindForMessage(err.Error())
	}
	return &Error{Err: err, Provider: provider, Kind: kind, StatusCode: status}
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return KindAuth
	case status >= http.StatusInternalServerError:
		return KindTransient
	default:
		return KindUnknown
	}
}

func kindForMessage(msg string) Kind {
	msg = strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "quota"), strings.Contains(msg, "429"), strings.Contains(msg, "rate limit"):
		return KindRateLimit
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"),
		strings.Contains(msg, "connection reset"), strings.Contains(msg, "eof"):
		return KindTransient
	default:
		return KindUnknown
	}
}
