package ports

import (
	"context"
	"time"
)

// EndpointClass groups routes sharing one rate-limit policy.
type EndpointClass string

const (
	ClassAuth     EndpointClass = "auth"
	ClassRegister EndpointClass = "register"
	ClassGeneral  EndpointClass = "general_api"
)

// Decision is the outcome of a rate-limit check. RetryAfter is only set when
// the request is blocked.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// RateLimiter gates requests with fixed-window counters keyed by
// (clientKey, class). A non-nil error means the backing store failed; the
// caller decides between fail-open and fail-closed per configuration.
type RateLimiter interface {
	Check(ctx context.Context, clientKey string, class EndpointClass) (Decision, error)
}
