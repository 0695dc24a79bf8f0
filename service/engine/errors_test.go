package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tucanapay/tucana/service/payload"
	"github.com/tucanapay/tucana/service/selector"
)

type fakeTimeoutError struct{}

func (fakeTimeoutError) Error() string   { return "dial tcp: operation failed" }
func (fakeTimeoutError) Timeout() bool   { return true }
func (fakeTimeoutError) Temporary() bool { return true }

func TestIsRecoverable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{
			name: "parse error is terminal",
			err:  &payload.ParseError{Format: payload.FormatUnknown, Reason: "unrecognized"},
			want: false,
		},
		{
			name: "validation error is terminal",
			err:  &payload.ValidationError{Reason: "bad amount"},
			want: false,
		},
		{
			name: "insufficient balance is terminal",
			err:  &InsufficientBalanceError{Result: selector.CanSendResult{Reason: "insufficient"}},
			want: false,
		},
		{
			name: "wrapped parse error stays terminal",
			err:  fmt.Errorf("resolve: %w", &payload.ParseError{Format: payload.FormatPix, Reason: "x"}),
			want: false,
		},
		{name: "deadline exceeded", err: context.DeadlineExceeded, want: true},
		{name: "net timeout", err: fakeTimeoutError{}, want: true},
		{name: "429 response", err: errors.New("server returned 429 Too Many Requests"), want: true},
		{name: "rate limit message", err: errors.New("RPC rate limit exceeded"), want: true},
		{name: "connection refused", err: errors.New("dial tcp 127.0.0.1:6379: connection refused"), want: true},
		{name: "connection reset", err: errors.New("read: connection reset by peer"), want: true},
		{name: "plain error", err: errors.New("something unexpected"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRecoverable(tt.err))
		})
	}
}

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, 2*time.Second, RetryDelay(0))
	assert.Equal(t, 4*time.Second, RetryDelay(1))
	assert.Equal(t, 8*time.Second, RetryDelay(2))
	assert.Equal(t, 64*time.Second, RetryDelay(5))
	// Out-of-range attempts are clamped.
	assert.Equal(t, 2*time.Second, RetryDelay(-3))
	assert.Equal(t, 64*time.Second, RetryDelay(100))
}

func TestInsufficientBalanceError_Message(t *testing.T) {
	err := &InsufficientBalanceError{Result: selector.CanSendResult{
		Reason: "insufficient usdc balance on ethereum",
	}}
	assert.Equal(t, "insufficient usdc balance on ethereum", err.Error())
}
