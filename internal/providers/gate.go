package providers

import (
	"context"

	"golang.org/x/time/rate"
)

// Gate bounds concurrent calls to the external embedding/scoring services
// and throttles their aggregate request rate. One gate is shared by every
// job and query in the process, which is what keeps uncontrolled fan-out
// from tripping the provider's global rate limit.
type Gate struct {
	permits chan struct{}
	limiter *rate.Limiter
}

func NewGate(permits int, perSecond float64) *Gate {
	if permits <= 0 {
		permits = 4
	}
	if perSecond <= 0 {
		perSecond = 5
	}
	return &Gate{
		permits: make(chan struct{}, permits),
		limiter: rate.NewLimiter(rate.Limit(perSecond), permits),
	}
}

// Acquire blocks until a permit and a rate token are available, or the
// context ends. The returned func releases the permit.
func (g *Gate) Acquire(ctx context.Context) (func(), error) {
	select {
	case g.permits <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if err := g.limiter.Wait(ctx); err != nil {
		<-g.permits
		return nil, err
	}
	return func() { <-g.permits }, nil
}
