package transport

import (
	"context"
	"math"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/time/rate"

	"github.com/goliatone/go-crmquery/core"
)

// RateLimitedAdapter spaces requests to the CRM, grants and queries alike.
// Do blocks until the limiter admits the request or ctx ends.
type RateLimitedAdapter struct {
	next    core.TransportAdapter
	limiter *rate.Limiter
}

// NewRateLimitedAdapter allows perSecond requests with a burst of
// ceil(perSecond). A non-positive rate returns next unchanged.
func NewRateLimitedAdapter(next core.TransportAdapter, perSecond float64) core.TransportAdapter {
	if next == nil || perSecond <= 0 {
		return next
	}
	burst := int(math.Ceil(perSecond))
	return &RateLimitedAdapter{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (a *RateLimitedAdapter) Kind() string {
	return a.next.Kind()
}

func (a *RateLimitedAdapter) Do(ctx context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := a.limiter.Wait(ctx); err != nil {
		return core.TransportResponse{}, transportWrapError(
			err,
			goerrors.CategoryRateLimit,
			"transport: request rate limit wait aborted",
			http.StatusTooManyRequests,
			map[string]any{"adapter": a.next.Kind(), "url": req.URL},
		)
	}
	return a.next.Do(ctx, req)
}
