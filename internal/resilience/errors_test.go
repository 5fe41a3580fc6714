package resilience

import (
	"errors"
	"fmt"
	"net/http"
	"syscall"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsTransient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"explicit", NewTransientError(errors.New("busy"), 503), true},
		{"wrapped with fmt", fmt.Errorf("call: %w", NewTransientError(errors.New("x"), 429)), true},
		{"wrapped with eris", eris.Wrap(NewTransientError(errors.New("x"), 502), "llm"), true},
		{"net timeout", fmt.Errorf("dial: %w", timeoutErr{}), true},
		{"connection reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"connection refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"overloaded message", errors.New("API Overloaded, try again"), true},
		{"unexpected eof", errors.New("read body: unexpected EOF"), true},
		{"permanent", errors.New("invalid api key"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	t.Parallel()

	for _, code := range []int{408, 429, 500, 502, 503, 504, 529} {
		assert.True(t, IsTransientHTTPStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 400, 401, 403, 404, 422} {
		assert.False(t, IsTransientHTTPStatus(code), "status %d", code)
	}
}

func TestFromResponse(t *testing.T) {
	t.Parallel()

	base := errors.New("status 429")

	resp := &http.Response{StatusCode: 429, Header: http.Header{"Retry-After": []string{"12"}}}
	err := FromResponse(base, resp)
	assert.True(t, IsTransient(err))
	assert.Equal(t, 12*time.Second, RetryAfter(err))
	assert.ErrorIs(t, err, base)

	resp = &http.Response{StatusCode: 404, Header: http.Header{}}
	assert.Same(t, base, FromResponse(base, resp))
	assert.Same(t, base, FromResponse(base, nil))
}

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 3*time.Second, parseRetryAfter("3"))
	assert.Zero(t, parseRetryAfter(""))
	assert.Zero(t, parseRetryAfter("-1"))
	assert.Zero(t, parseRetryAfter("soon"))

	future := time.Now().Add(90 * time.Second).UTC().Format(http.TimeFormat)
	d := parseRetryAfter(future)
	assert.Greater(t, d, 60*time.Second)
	assert.LessOrEqual(t, d, 90*time.Second)
}
