package providers

import (
	"encoding/json"
	"fmt"
)

// BackendError represents a transport failure, timeout, or non-success
// response from the chat backend. It is terminal for the call that produced
// it: the tool loop aborts immediately and never retries.
type BackendError struct {
	// Operation describes the request that failed (e.g. "chat completion").
	Operation string

	// StatusCode is the HTTP status code, or 0 for transport-level failures.
	StatusCode int

	// Body is an excerpt of the response body, when one was received.
	Body string

	// Err is the underlying transport error, if any.
	Err error
}

// Error returns a human-readable representation of the failure.
func (e *BackendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed (HTTP %d): %s", e.Operation, e.StatusCode, e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("%s failed", e.Operation)
}

// Unwrap returns the underlying transport error, enabling errors.Is/As.
func (e *BackendError) Unwrap() error {
	return e.Err
}

// parseAPIError extracts a human-readable message from an OpenRouter error
// body. OpenRouter returns JSON like {"error":{"message":"..."}} on 4xx/5xx.
// Falls back to the raw body when parsing fails.
func parseAPIError(statusCode int, body []byte) *BackendError {
	excerpt := string(body)
	var errResp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		excerpt = errResp.Error.Message
	}
	if len(excerpt) > maxErrorBodyExcerpt {
		excerpt = excerpt[:maxErrorBodyExcerpt]
	}
	return &BackendError{
		Operation:  "chat completion",
		StatusCode: statusCode,
		Body:       excerpt,
	}
}

// maxErrorBodyExcerpt bounds how much of an error body is kept on the error.
const maxErrorBodyExcerpt = 512
