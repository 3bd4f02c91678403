// ABOUTME: Error taxonomy for the marketplace API client
// ABOUTME: Normalizes transport and backend failures into a single Error type

package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies why a request failed
type Kind int

const (
	KindUnknown Kind = iota
	// KindUnauthenticated means no credential was available for an authenticated call
	KindUnauthenticated
	// KindUnauthorized means the backend rejected the credential (401/403)
	KindUnauthorized
	// KindNetwork means the backend could not be reached
	KindNetwork
	// KindServer means the backend answered with a non-2xx status
	KindServer
	// KindInvalidResponse means the response body could not be decoded
	KindInvalidResponse
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindUnauthorized:
		return "unauthorized"
	case KindNetwork:
		return "network"
	case KindServer:
		return "server_error"
	case KindInvalidResponse:
		return "invalid_response"
	default:
		return "unknown"
	}
}

// Error is returned by every client call that fails after argument validation.
// Message is the human-readable text, usually the backend's "detail" field.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind so callers can write errors.Is(err, client.ErrUnauthorized)
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is checks
var (
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated, Message: "not logged in: run `shelf login` first"}
	ErrUnauthorized    = &Error{Kind: KindUnauthorized, Message: "credentials rejected by backend"}
	ErrNetwork         = &Error{Kind: KindNetwork, Message: "backend unreachable"}
	ErrServer          = &Error{Kind: KindServer, Message: "backend error"}
	ErrInvalidResponse = &Error{Kind: KindInvalidResponse, Message: "invalid response from backend"}
)

// KindOf returns the Kind of err, or KindUnknown if err is not a client error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// ValidationError is returned before any request is sent when an argument
// fails the client-side checks.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// errorEnvelope is the backend's error body. FastAPI sends detail either as a
// string or, for request validation failures, as a list of {loc, msg, type}.
type errorEnvelope struct {
	Detail json.RawMessage `json:"detail"`
}

// detailMessage extracts the human-readable message from an error body.
// Returns "" if the body carries no usable detail.
func detailMessage(body []byte) string {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil || len(env.Detail) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(env.Detail, &text); err == nil {
		return text
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(env.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			if item.Msg != "" {
				msgs = append(msgs, item.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}

	return ""
}
