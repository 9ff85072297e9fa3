package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	goopenai "github.com/sashabaranov/go-openai"
)

// Kind classifies a dispatch failure.
type Kind string

const (
	KindUnsupportedProvider Kind = "unsupported_provider"
	KindAuthentication      Kind = "authentication"
	KindRateLimited         Kind = "rate_limited"
	KindNetwork             Kind = "network"
	KindTimeout             Kind = "timeout"
	KindEmptyResponse       Kind = "empty_response"
	KindProvider            Kind = "provider"
)

// DispatchError is the only error type Dispatch returns. Its Error() text is user-facing:
// the orchestrator stores it as the assistant answer.
type DispatchError struct {
	Kind     Kind
	Provider string
	Err      error
}

func (e *DispatchError) Error() string {
	var msg string
	switch e.Kind {
	case KindUnsupportedProvider:
		return fmt.Sprintf("Unsupported provider: %q", e.Provider)
	case KindAuthentication:
		msg = "Invalid API key or authentication failed"
	case KindRateLimited:
		msg = "Rate limit exceeded, try again later"
	case KindTimeout:
		msg = "Request timed out"
	case KindEmptyResponse:
		msg = "Empty response from model"
	case KindNetwork:
		msg = "Network error"
	default:
		msg = "Provider error"
	}
	if e.Err != nil && e.Kind != KindAuthentication && e.Kind != KindEmptyResponse {
		msg += ": " + e.Err.Error()
	}
	if e.Provider == "" {
		return msg
	}
	return e.Provider + ": " + msg
}

func (e *DispatchError) Unwrap() error { return e.Err }

// Is matches another *DispatchError by Kind, so errors.Is(err, &DispatchError{Kind: KindTimeout}) works.
func (e *DispatchError) Is(target error) bool {
	t, ok := target.(*DispatchError)
	return ok && t.Kind == e.Kind && (t.Provider == "" || t.Provider == e.Provider)
}

// statusError is a non-2xx response from a backend reached over plain net/http.
type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status %d", e.StatusCode)
	}
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
}

var errEmptyCompletion = errors.New("no completion returned")

// Classify wraps err into a *DispatchError for provider. Existing DispatchErrors pass through.
func Classify(provider string, err error) *DispatchError {
	if err == nil {
		return nil
	}
	var de *DispatchError
	if errors.As(err, &de) {
		return de
	}
	return &DispatchError{Kind: classifyKind(err), Provider: provider, Err: err}
}

func classifyKind(err error) Kind {
	switch {
	case errors.Is(err, errEmptyCompletion):
		return KindEmptyResponse
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindNetwork
	}

	if code := statusCodeOf(err); code != 0 {
		switch {
		case code == http.StatusUnauthorized || code == http.StatusForbidden:
			return KindAuthentication
		case code == http.StatusTooManyRequests:
			return KindRateLimited
		case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
			return KindTimeout
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return KindTimeout
		}
		return KindNetwork
	}

	text := strings.ToLower(err.Error())
	switch {
	case containsAny(text, "authentication", "unauthorized", "invalid api key", "incorrect api key",
		"invalid x-api-key", "permission denied", "status 401", "status code 401", "status 403", "status code 403"):
		return KindAuthentication
	case containsAny(text, "rate limit", "rate_limit", "too many requests", "quota", "status 429", "status code 429"):
		return KindRateLimited
	case containsAny(text, "timeout", "timed out", "deadline exceeded"):
		return KindTimeout
	case containsAny(text, "connection refused", "connection reset", "no such host", "dial tcp",
		"network is unreachable", "unexpected eof", "tls handshake") || strings.HasSuffix(text, ": eof"):
		return KindNetwork
	}
	return KindProvider
}

// statusCodeOf extracts the HTTP status from the client library errors we know about.
func statusCodeOf(err error) int {
	var se *statusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	var oe *openai.Error
	if errors.As(err, &oe) {
		return oe.StatusCode
	}
	var ae *goopenai.APIError
	if errors.As(err, &ae) {
		return ae.HTTPStatusCode
	}
	var re *goopenai.RequestError
	if errors.As(err, &re) {
		return re.HTTPStatusCode
	}
	return 0
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
