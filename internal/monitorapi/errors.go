package monitorapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// TransportError means no HTTP response was received: DNS, dial, TLS,
// timeout or cancellation.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("monitoring api %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServerError is any non-2xx response other than an unrecoverable 401.
type ServerError struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
}

func (e *ServerError) Error() string {
	body := strings.TrimSpace(string(e.Body))
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("monitoring api %s %s returned %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("monitoring api %s %s returned %d: %s", e.Method, e.Path, e.StatusCode, body)
}

// Message extracts a human readable reason from the response body, falling
// back to the status text.
func (e *ServerError) Message() string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(e.Body, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	if text := http.StatusText(e.StatusCode); text != "" {
		return text
	}
	return fmt.Sprintf("status %d", e.StatusCode)
}

// AuthorizationExpiredError is returned once the single replay budget is
// spent: either the forced refresh failed or the replay was rejected again.
// The caller must send the operator back to the login entry point.
type AuthorizationExpiredError struct {
	Method string
	Path   string
	Err    error
}

func (e *AuthorizationExpiredError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("monitoring api %s %s: authorization expired: %v", e.Method, e.Path, e.Err)
	}
	return fmt.Sprintf("monitoring api %s %s: authorization expired", e.Method, e.Path)
}

func (e *AuthorizationExpiredError) Unwrap() error { return e.Err }

func IsAuthorizationExpired(err error) bool {
	var expired *AuthorizationExpiredError
	return errors.As(err, &expired)
}

// StatusCode returns the HTTP status of a ServerError, or 0.
func StatusCode(err error) int {
	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		return serverErr.StatusCode
	}
	return 0
}
