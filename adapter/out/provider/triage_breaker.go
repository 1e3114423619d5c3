package provider

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"google.golang.org/api/googleapi"
)

// Adapter instances are per-request, but provider health is global: breaker
// state lives here so it survives across instances and users.
var (
	gmailBreaker    = newProviderBreaker("gmail-api")
	calendarBreaker = newProviderBreaker("calendar-api")
)

func newProviderBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var nce *nonCircuitError
			return errors.As(err, &nce)
		},
	})
}

// executeWithBreaker runs one provider call under the breaker. Client-side
// API errors (bad request, auth, not found) say nothing about provider
// health, so they pass through without counting as failures; server errors
// and rate limiting open the circuit.
func executeWithBreaker(cb *gobreaker.CircuitBreaker, fn func() error) error {
	_, err := cb.Execute(func() (any, error) {
		if err := fn(); err != nil {
			var apiErr *googleapi.Error
			if errors.As(err, &apiErr) && apiErr.Code >= 400 && apiErr.Code < 500 && apiErr.Code != 429 {
				return nil, &nonCircuitError{err: err}
			}
			return nil, err
		}
		return nil, nil
	})

	var nce *nonCircuitError
	if errors.As(err, &nce) {
		return nce.err
	}
	return err
}

// nonCircuitError marks errors that must not trip the circuit.
type nonCircuitError struct{ err error }

func (e *nonCircuitError) Error() string { return e.err.Error() }
func (e *nonCircuitError) Unwrap() error { return e.err }
