// Package breaker guards a remote document store with a circuit breaker so
// a failing backend is not hammered by every request.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"portfolio/application/ports"
	"portfolio/domain/content"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Config holds configuration for the circuit breaker
type Config struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultConfig returns the breaker settings used for the document store
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          15 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// StateObserver is told about breaker state transitions
type StateObserver interface {
	SetBreakerState(name string, state gobreaker.State)
}

// DocumentStore decorates another store. Revision conflicts and cancelled
// contexts are caller outcomes and do not count against the backend.
type DocumentStore struct {
	next ports.DocumentStore
	cb   *gobreaker.CircuitBreaker
}

// NewDocumentStore wraps next. observer may be nil.
func NewDocumentStore(next ports.DocumentStore, cfg Config, observer StateObserver, logger *zap.Logger) *DocumentStore {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if observer != nil {
				observer.SetBreakerState(name, to)
			}
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ports.ErrRevisionConflict) ||
				errors.Is(err, context.Canceled)
		},
	})
	return &DocumentStore{next: next, cb: cb}
}

// State reports the current breaker state
func (s *DocumentStore) State() gobreaker.State {
	return s.cb.State()
}

// Load delegates through the breaker
func (s *DocumentStore) Load(ctx context.Context) (*content.Document, error) {
	v, err := s.cb.Execute(func() (interface{}, error) {
		return s.next.Load(ctx)
	})
	if err != nil {
		return nil, wrapOpen(err)
	}
	return v.(*content.Document), nil
}

// Save delegates through the breaker
func (s *DocumentStore) Save(ctx context.Context, doc *content.Document) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.next.Save(ctx, doc)
	})
	return wrapOpen(err)
}

// Ensure delegates through the breaker
func (s *DocumentStore) Ensure(ctx context.Context) (bool, error) {
	v, err := s.cb.Execute(func() (interface{}, error) {
		return s.next.Ensure(ctx)
	})
	if err != nil {
		return false, wrapOpen(err)
	}
	return v.(bool), nil
}

func wrapOpen(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("document store unavailable: %w", err)
	}
	return err
}
