package serverdriver

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned when repeated call failures have tripped
// the breaker; the caller should treat it as a fatal server error
// rather than retrying into the archive-wait budget.
var ErrCircuitOpen = errors.New("serverdriver: circuit breaker open, server calls are failing fast")

// callBreaker wraps every request/response call to the server (not the
// waitForArchive poll loop, which has its own fixed timeout). Calls are
// not retried; after three consecutive failures the breaker opens and
// later calls fail fast with ErrCircuitOpen.
type callBreaker struct {
	cb *gobreaker.CircuitBreaker
}

func newCallBreaker() *callBreaker {
	settings := gobreaker.Settings{
		Name:        "serverdriver",
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}
	return &callBreaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *callBreaker) run(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}
	return err
}
