package interceptors

import (
	"context"
	"fmt"

	"github.com/abdul-hamid-achik/qxhr/packages/xhr"
	"golang.org/x/time/rate"
)

// RateLimit delays each request until limiter grants a token. A cancelled
// ctx rejects the waiting requests.
func RateLimit(ctx context.Context, limiter *rate.Limiter) xhr.Interceptor {
	return xhr.Interceptor{
		Request: func(c *xhr.Config) (*xhr.Config, error) {
			if err := limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limit: %w", err)
			}
			return c, nil
		},
	}
}

// NewLimiter returns a limiter allowing rps requests per second with the
// given burst. A burst below 1 is raised to 1.
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if burst < 1 {
		burst = 1
	}
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, burst)
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
