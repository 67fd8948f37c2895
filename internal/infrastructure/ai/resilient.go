// Package ai wires the configured text-understanding provider behind a
// circuit breaker
package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/platewise/engine/internal/infrastructure/config"
	"github.com/platewise/engine/internal/ports/outbound"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// ErrCircuitOpen is returned while the breaker rejects calls
var ErrCircuitOpen = errors.New("text service circuit open")

// ResilientCompleter guards a NamedCompleter with a circuit breaker so a
// failing provider is not called on every request
type ResilientCompleter struct {
	next    outbound.NamedCompleter
	breaker *gobreaker.CircuitBreaker[string]
	logger  *zap.Logger
}

var _ outbound.NamedCompleter = (*ResilientCompleter)(nil)

// NewResilientCompleter wraps next with a breaker tuned by cfg
func NewResilientCompleter(next outbound.NamedCompleter, cfg config.BreakerConfig, logger *zap.Logger) *ResilientCompleter {
	r := &ResilientCompleter{
		next:   next,
		logger: logger.Named("ai-breaker"),
	}

	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	r.breaker = gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        next.Provider(),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			// the caller giving up is not a provider failure
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.logger.Warn("Circuit breaker state changed",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return r
}

// Provider implements outbound.NamedCompleter
func (r *ResilientCompleter) Provider() string { return r.next.Provider() }

// Model implements outbound.NamedCompleter
func (r *ResilientCompleter) Model() string { return r.next.Model() }

// State reports the breaker state
func (r *ResilientCompleter) State() gobreaker.State { return r.breaker.State() }

// Complete calls the provider unless the breaker is open
func (r *ResilientCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	out, err := r.breaker.Execute(func() (string, error) {
		return r.next.Complete(ctx, prompt)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	return out, err
}
