package provider

import (
	"errors"
	"testing"

	"github.com/sony/gobreaker"
	"google.golang.org/api/googleapi"
)

func TestBreakerIgnoresClientErrors(t *testing.T) {
	cb := newProviderBreaker("test-client-errors")
	apiErr := &googleapi.Error{Code: 404, Message: "not found"}

	for i := 0; i < 20; i++ {
		err := executeWithBreaker(cb, func() error { return apiErr })
		if !errors.Is(err, apiErr) {
			t.Fatalf("call %d: err = %v, want the original API error", i, err)
		}
	}

	if cb.State() != gobreaker.StateClosed {
		t.Errorf("state = %s, want closed: client errors must not trip the circuit", cb.State())
	}
}

func TestBreakerOpensOnServerErrors(t *testing.T) {
	cb := newProviderBreaker("test-server-errors")
	apiErr := &googleapi.Error{Code: 503, Message: "backend unavailable"}

	for i := 0; i < 10; i++ {
		executeWithBreaker(cb, func() error { return apiErr })
	}

	if cb.State() != gobreaker.StateOpen {
		t.Fatalf("state = %s, want open after consecutive server errors", cb.State())
	}

	// Open circuit fails fast without invoking the call.
	called := false
	err := executeWithBreaker(cb, func() error {
		called = true
		return nil
	})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("err = %v, want ErrOpenState", err)
	}
	if called {
		t.Error("call must not run while the circuit is open")
	}
}

func TestBreakerRateLimitCountsAsFailure(t *testing.T) {
	cb := newProviderBreaker("test-rate-limit")
	apiErr := &googleapi.Error{Code: 429, Message: "rate limited"}

	for i := 0; i < 10; i++ {
		executeWithBreaker(cb, func() error { return apiErr })
	}

	if cb.State() != gobreaker.StateOpen {
		t.Errorf("state = %s, want open: sustained rate limiting should back off", cb.State())
	}
}
