package transcribe

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerSettings configures the circuit breaker around a provider.
type BreakerSettings struct {
	Name             string
	MaxRequests      uint32        // requests allowed while half-open
	Interval         time.Duration // closed-state window before counts reset
	Timeout          time.Duration // open-state duration before half-open
	FailureThreshold float64       // failure ratio that trips the breaker
	MinRequests      uint32        // requests needed before the ratio counts
}

// DefaultBreakerSettings returns the defaults used when fields are zero.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:             "transcription",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      3,
	}
}

func (s BreakerSettings) withDefaults() BreakerSettings {
	d := DefaultBreakerSettings()
	if s.Name == "" {
		s.Name = d.Name
	}
	if s.MaxRequests == 0 {
		s.MaxRequests = d.MaxRequests
	}
	if s.Interval == 0 {
		s.Interval = d.Interval
	}
	if s.Timeout == 0 {
		s.Timeout = d.Timeout
	}
	if s.FailureThreshold == 0 {
		s.FailureThreshold = d.FailureThreshold
	}
	if s.MinRequests == 0 {
		s.MinRequests = d.MinRequests
	}
	return s
}

// Breaker stops calling a failing provider for a while instead of sending
// every new narration to it. A transcription counts as successful once it
// yields a final result, empty or not.
type Breaker struct {
	next Transcriber
	cb   *gobreaker.TwoStepCircuitBreaker
}

// NewBreaker wraps next in a circuit breaker.
func NewBreaker(next Transcriber, settings BreakerSettings, logger *zap.Logger) *Breaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := settings.withDefaults()
	cb := gobreaker.NewTwoStepCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("transcription circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return &Breaker{next: next, cb: cb}
}

// State returns the breaker state (closed, half-open, open).
func (b *Breaker) State() string {
	return b.cb.State().String()
}

func (b *Breaker) Transcribe(ctx context.Context, audioPath string) (<-chan Result, error) {
	done, err := b.cb.Allow()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	in, err := b.next.Transcribe(ctx, audioPath)
	if err != nil {
		done(false)
		return nil, err
	}

	out := make(chan Result, 1)
	go func() {
		defer close(out)
		ok := false
		for r := range in {
			if r.Final && r.Err == nil {
				ok = true
			}
			select {
			case out <- r:
			case <-ctx.Done():
			}
		}
		done(ok)
	}()
	return out, nil
}
