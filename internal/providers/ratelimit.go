package providers

import (
	"context"
	"math"

	"golang.org/x/time/rate"
)

type limitedClient struct {
	Client
	limiter *rate.Limiter
}

// WithRateLimit wraps c so that requests are admitted at no more than rps per
// second. rps <= 0 returns c unchanged.
func WithRateLimit(c Client, rps float64) Client {
	if rps <= 0 {
		return c
	}
	burst := int(math.Ceil(rps))
	return &limitedClient{Client: c, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (l *limitedClient) Complete(ctx context.Context, req Request) (Response, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return Response{}, wrapTransport(l.Name(), req.Model, err)
	}
	return l.Client.Complete(ctx, req)
}
