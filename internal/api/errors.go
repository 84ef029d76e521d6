package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// ErrSessionExpired is returned when a 401 could not be recovered by a
// token refresh. The session has been torn down and the user must log
// in again.
var ErrSessionExpired = errors.New("session expired")

// ErrorKind classifies API failures for presentation.
type ErrorKind int

const (
	// KindGeneric is an unclassified failure.
	KindGeneric ErrorKind = iota
	// KindConnection means no usable response arrived (network error
	// or timeout).
	KindConnection
	// KindUnauthorized is an authorization failure (401).
	KindUnauthorized
	// KindNotFound means the resource is absent server-side (404).
	KindNotFound
	// KindValidation is a 4xx with a server-provided message.
	KindValidation
)

// UserMessage returns the human-readable message for the kind, shown
// when the server did not provide a better one.
func (k ErrorKind) UserMessage() string {
	switch k {
	case KindConnection:
		return "Could not reach the server. Check that the backend is running."
	case KindUnauthorized:
		return "Session expired. Please log in again."
	case KindNotFound:
		return "Not found on the server."
	case KindValidation:
		return "The server rejected the request."
	default:
		return "Something went wrong. Please try again."
	}
}

// Error is a classified failure from the platform API.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("api: %s (status %d)", e.Message, e.Status)
	}
	return "api: " + e.Message
}

// Classify maps any error to its taxonomy kind. Unknown errors are
// generic.
func Classify(err error) ErrorKind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	if errors.Is(err, ErrSessionExpired) {
		return KindUnauthorized
	}
	if isConnectionError(err) {
		return KindConnection
	}
	return KindGeneric
}

// UserMessage returns the message to surface for err: the server's own
// message when present, the kind default otherwise.
func UserMessage(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return Classify(err).UserMessage()
}

// isConnectionError reports whether err means no response arrived.
// Timeouts count: a binary fetch past its deadline surfaces as a
// connection failure.
func isConnectionError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// connectionError wraps a transport-level failure.
func connectionError(err error) *Error {
	return &Error{
		Kind:    KindConnection,
		Message: KindConnection.UserMessage() + ": " + err.Error(),
	}
}

// responseError classifies a non-2xx response, consuming its body for
// a server-provided message.
func responseError(resp *http.Response) *Error {
	message := serverMessage(resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if message == "" {
			message = KindUnauthorized.UserMessage()
		}
		return &Error{Kind: KindUnauthorized, Status: resp.StatusCode, Message: message}
	case resp.StatusCode == http.StatusNotFound:
		if message == "" {
			message = KindNotFound.UserMessage()
		}
		return &Error{Kind: KindNotFound, Status: resp.StatusCode, Message: message}
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && message != "":
		return &Error{Kind: KindValidation, Status: resp.StatusCode, Message: message}
	default:
		if message == "" {
			message = KindGeneric.UserMessage()
		}
		return &Error{Kind: KindGeneric, Status: resp.StatusCode, Message: message}
	}
}

// serverMessage extracts the message the backend puts in error bodies
// (detail, error or message keys).
func serverMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}

	var payload struct {
		Detail  string `json:"detail"`
		Err     string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}

	for _, m := range []string{payload.Detail, payload.Err, payload.Message} {
		if strings.TrimSpace(m) != "" {
			return m
		}
	}
	return ""
}
