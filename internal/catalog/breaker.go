package catalog

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/franz/movie-checklist/internal/library"
	"github.com/franz/movie-checklist/internal/util"
)

// Backend is the read surface shared by Client, Breaker and Cache
type Backend interface {
	SearchMulti(ctx context.Context, query string, page int) (*SearchPage, error)
	Details(ctx context.Context, id int64, mediaType library.MediaType) (*Detail, error)
}

// BreakerConfig controls when the circuit opens
type BreakerConfig struct {
	MaxFailures uint32        // consecutive failures before opening
	Timeout     time.Duration // open duration before probing again
}

// Breaker wraps a Backend with a circuit breaker so an unreachable catalog
// fails fast instead of stalling every session on the HTTP timeout.
// Rejections surface as a NetworkError wrapping ErrCircuitOpen.
type Breaker struct {
	next Backend
	cb   *gobreaker.CircuitBreaker[any]
}

// NewBreaker creates a circuit breaker around next
func NewBreaker(next Backend, cfg BreakerConfig) *Breaker {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "catalog-api",
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		// Only transport failures and 5xx count against the catalog;
		// a 404 or a cancelled request says nothing about its health.
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrNotFound) {
				return true
			}
			if code := StatusCode(err); code != 0 && code < 500 {
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			util.WarnLog("Circuit breaker %s: %s -> %s", name, from, to)
		},
	})

	return &Breaker{next: next, cb: cb}
}

// SearchMulti implements Backend
func (b *Breaker) SearchMulti(ctx context.Context, query string, page int) (*SearchPage, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.next.SearchMulti(ctx, query, page)
	})
	if err != nil {
		return nil, b.translate("search", err)
	}
	return out.(*SearchPage), nil
}

// Details implements Backend
func (b *Breaker) Details(ctx context.Context, id int64, mediaType library.MediaType) (*Detail, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.next.Details(ctx, id, mediaType)
	})
	if err != nil {
		return nil, b.translate("details", err)
	}
	return out.(*Detail), nil
}

// State returns the breaker state name
func (b *Breaker) State() string {
	return b.cb.State().String()
}

func (b *Breaker) translate(op string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &NetworkError{Op: op, Err: ErrCircuitOpen}
	}
	return err
}
