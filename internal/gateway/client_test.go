package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/quietpage/inkdex/internal/domain"
)

func gatewayStub(status int, body string, hits *atomic.Int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestFetchBody_PrimarySuccess_NoFallbackContact(t *testing.T) {
	var primaryHits, fallbackHits atomic.Int32
	primary := gatewayStub(http.StatusOK, "hello body", &primaryHits)
	defer primary.Close()
	fallback := gatewayStub(http.StatusOK, "wrong body", &fallbackHits)
	defer fallback.Close()

	c := New(primary.URL, fallback.URL, time.Second, zap.NewNop())

	body, err := c.FetchBody(context.Background(), "bafyexample")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != "hello body" {
		t.Errorf("got body %q, want %q", body, "hello body")
	}
	if fallbackHits.Load() != 0 {
		t.Errorf("fallback contacted %d times, want 0", fallbackHits.Load())
	}
}

func TestFetchBody_ForbiddenTriggersFallback(t *testing.T) {
	var primaryHits, fallbackHits atomic.Int32
	primary := gatewayStub(http.StatusForbidden, "", &primaryHits)
	defer primary.Close()
	fallback := gatewayStub(http.StatusOK, "from fallback", &fallbackHits)
	defer fallback.Close()

	c := New(primary.URL, fallback.URL, time.Second, zap.NewNop())

	body, err := c.FetchBody(context.Background(), "bafyexample")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != "from fallback" {
		t.Errorf("got body %q, want fallback body", body)
	}
	if fallbackHits.Load() != 1 {
		t.Errorf("fallback contacted %d times, want 1", fallbackHits.Load())
	}
}

func TestFetchBody_TransportErrorTriggersFallback(t *testing.T) {
	var fallbackHits atomic.Int32
	// A closed server produces a connection error on the primary.
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	fallback := gatewayStub(http.StatusOK, "recovered", &fallbackHits)
	defer fallback.Close()

	c := New(deadURL, fallback.URL, time.Second, zap.NewNop())

	body, err := c.FetchBody(context.Background(), "bafyexample")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != "recovered" {
		t.Errorf("got body %q, want %q", body, "recovered")
	}
}

func TestFetchBody_ServerErrorDoesNotFallBack(t *testing.T) {
	var primaryHits, fallbackHits atomic.Int32
	primary := gatewayStub(http.StatusInternalServerError, "", &primaryHits)
	defer primary.Close()
	fallback := gatewayStub(http.StatusOK, "nope", &fallbackHits)
	defer fallback.Close()

	c := New(primary.URL, fallback.URL, time.Second, zap.NewNop())

	_, err := c.FetchBody(context.Background(), "bafyexample")
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if !errors.Is(err, domain.ErrGatewayUnavailable) {
		t.Errorf("expected ErrGatewayUnavailable, got %v", err)
	}
	if fallbackHits.Load() != 0 {
		t.Errorf("500 must not trigger fallback, fallback hit %d times", fallbackHits.Load())
	}
}

func TestFetchBody_BothFail_PrimaryErrorSurfaces(t *testing.T) {
	var primaryHits, fallbackHits atomic.Int32
	primary := gatewayStub(http.StatusTooManyRequests, "", &primaryHits)
	defer primary.Close()
	fallback := gatewayStub(http.StatusNotFound, "", &fallbackHits)
	defer fallback.Close()

	c := New(primary.URL, fallback.URL, time.Second, zap.NewNop())

	_, err := c.FetchBody(context.Background(), "bafyexample")
	if err == nil {
		t.Fatal("expected error when both endpoints fail")
	}
	// The original rejection stays visible, not the fallback's 404.
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Errorf("expected primary's ErrRateLimited, got %v", err)
	}
	// A rate limit is still a gateway failure; both sentinels match.
	if !errors.Is(err, domain.ErrGatewayUnavailable) {
		t.Errorf("429 should also match ErrGatewayUnavailable, got %v", err)
	}

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T", err)
	}
	if fe.Status != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", fe.Status)
	}
}

func TestFetchBody_IdenticalEndpoints_SingleAttempt(t *testing.T) {
	var hits atomic.Int32
	srv := gatewayStub(http.StatusTooManyRequests, "", &hits)
	defer srv.Close()

	c := New(srv.URL, srv.URL, time.Second, zap.NewNop())

	_, err := c.FetchBody(context.Background(), "bafyexample")
	if err == nil {
		t.Fatal("expected error")
	}
	if hits.Load() != 1 {
		t.Errorf("identical endpoints fetched %d times, want 1", hits.Load())
	}
}

func TestFetchBody_EmptyAddress(t *testing.T) {
	c := New("http://localhost:1", "http://localhost:1", time.Second, zap.NewNop())

	_, err := c.FetchBody(context.Background(), "")
	if !errors.Is(err, domain.ErrAddressEmpty) {
		t.Errorf("expected ErrAddressEmpty, got %v", err)
	}
}

func TestIsRetryableFetch(t *testing.T) {
	if !IsRetryableFetch(&FetchError{Status: http.StatusBadGateway}) {
		t.Error("status failures should be retryable later")
	}
	if !IsRetryableFetch(&FetchError{Status: http.StatusTooManyRequests}) {
		t.Error("rate limiting should be retryable later")
	}
	if IsRetryableFetch(domain.ErrAddressEmpty) {
		t.Error("an empty address never becomes fetchable")
	}
}
