package engine

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/tucanapay/tucana/service/payload"
	"github.com/tucanapay/tucana/service/selector"
)

// InsufficientBalanceError reports that no acceptable chain can cover the
// requested amount. It carries the selector's human-readable reason and, when
// another chain could cover the payment, a suggestion. Not retryable: the
// balance will not change by retrying.
type InsufficientBalanceError struct {
	Result selector.CanSendResult
}

func (e *InsufficientBalanceError) Error() string {
	return e.Result.Reason
}

// recoverableMarkers are substrings of error messages from the surrounding
// I/O layers (balance fetches, preference store) that indicate a transient
// condition worth retrying after a backoff.
var recoverableMarkers = []string{
	"429",
	"rate limit",
	"timeout",
	"timed out",
	"temporarily unavailable",
	"connection refused",
	"connection reset",
	"broken pipe",
	"i/o error",
}

// IsRecoverable classifies an error for the caller's retry policy.
// Network, timeout, and rate-limit conditions are recoverable; format,
// validation, and insufficient-balance errors are terminal — the input is
// wrong, not the moment.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}

	var parseErr *payload.ParseError
	var validationErr *payload.ValidationError
	var balanceErr *InsufficientBalanceError
	if errors.As(err, &parseErr) || errors.As(err, &validationErr) || errors.As(err, &balanceErr) {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range recoverableMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// RetryDelay returns the backoff before retry attempt n (0-based) of a
// recoverable error: 2s, 4s, 8s, ...
func RetryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 5 {
		attempt = 5
	}
	return time.Duration(2<<uint(attempt)) * time.Second
}
