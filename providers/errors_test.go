package providers

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAPIErrorStructuredBody(t *testing.T) {
	err := parseAPIError(429, []byte(`{"error": {"message": "Rate limit exceeded"}}`))
	assert.Equal(t, 429, err.StatusCode)
	assert.Equal(t, "Rate limit exceeded", err.Body)
	assert.Contains(t, err.Error(), "HTTP 429")
}

func TestParseAPIErrorRawBody(t *testing.T) {
	err := parseAPIError(502, []byte("<html>Bad Gateway</html>"))
	assert.Equal(t, "<html>Bad Gateway</html>", err.Body)
}

func TestParseAPIErrorTruncatesLongBody(t *testing.T) {
	err := parseAPIError(500, []byte(strings.Repeat("x", 2000)))
	assert.Len(t, err.Body, maxErrorBodyExcerpt)
}

func TestBackendErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &BackendError{Operation: "chat completion", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}
