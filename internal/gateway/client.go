// Package gateway resolves content addresses into document bodies through a
// primary/fallback pair of IPFS-style HTTP gateways. Content may be pinned
// only on a private gateway that rate-limits or rejects unauthenticated
// callers; the public mirror is the slower always-available path.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/quietpage/inkdex/internal/domain"
	"github.com/quietpage/inkdex/internal/metrics"
)

// maxBodyBytes caps a single gateway response read.
const maxBodyBytes = 8 << 20

// FetchError describes a failed fetch against one endpoint.
// Status is 0 for transport-level failures.
type FetchError struct {
	Endpoint string
	Status   int
	Err      error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("gateway %s: status %d", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("gateway %s: %v", e.Endpoint, e.Err)
}

func (e *FetchError) Unwrap() error {
	if e.Status == http.StatusTooManyRequests {
		// Rate limiting is a transient variant of gateway unavailability;
		// callers matching either sentinel see this failure.
		return errors.Join(domain.ErrRateLimited, domain.ErrGatewayUnavailable)
	}
	return domain.ErrGatewayUnavailable
}

// retryable reports whether this failure justifies the single fallback hop:
// a transport failure, or a status the private gateway uses to reject us.
func (e *FetchError) retryable() bool {
	switch e.Status {
	case 0, http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}

func (e *FetchError) reason() string {
	if e.Status == 0 {
		return "transport"
	}
	return "status"
}

// Client fetches document bodies by content address. No caching here; callers
// that need caching layer it on top.
type Client struct {
	primary  string
	fallback string
	httpc    *http.Client
	logger   *zap.Logger
}

// New creates a gateway client. Endpoint URLs are base URLs without the
// /ipfs/ path segment.
func New(primary, fallback string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		primary:  primary,
		fallback: fallback,
		httpc:    &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// WithHTTPClient overrides the transport, for tests.
func (c *Client) WithHTTPClient(httpc *http.Client) *Client {
	c.httpc = httpc
	return c
}

// FetchBody resolves a content address to its bytes. The primary endpoint is
// tried first; on a transport failure or a 401/403/429 rejection the fallback
// endpoint is tried exactly once. When both fail, the primary's error is
// surfaced so the root cause stays visible. No further retries: the caller
// decides whether the whole operation is worth repeating later.
func (c *Client) FetchBody(ctx context.Context, address string) ([]byte, error) {
	if address == "" {
		return nil, domain.ErrAddressEmpty
	}

	body, primaryErr := c.fetch(ctx, c.primary, address)
	if primaryErr == nil {
		return body, nil
	}

	if !primaryErr.retryable() || c.primary == c.fallback {
		return nil, primaryErr
	}

	metrics.GatewayFallbackTotal.WithLabelValues(primaryErr.reason()).Inc()
	c.logger.Debug("primary gateway rejected fetch, trying fallback",
		zap.String("address", address),
		zap.Int("status", primaryErr.Status),
	)

	body, fallbackErr := c.fetch(ctx, c.fallback, address)
	if fallbackErr == nil {
		return body, nil
	}

	c.logger.Warn("both gateway endpoints failed",
		zap.String("address", address),
		zap.Error(primaryErr),
		zap.NamedError("fallback_error", fallbackErr),
	)
	return nil, primaryErr
}

func (c *Client) fetch(ctx context.Context, endpoint, address string) ([]byte, *FetchError) {
	url := endpoint + "/ipfs/" + address

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Endpoint: endpoint, Err: err}
	}

	start := time.Now()
	resp, err := c.httpc.Do(req)
	metrics.GatewayFetchDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.GatewayFetchTotal.WithLabelValues(endpoint, "transport_error").Inc()
		return nil, &FetchError{Endpoint: endpoint, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	metrics.GatewayFetchTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{Endpoint: endpoint, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &FetchError{Endpoint: endpoint, Err: fmt.Errorf("read body: %w", err)}
	}
	return body, nil
}

// IsRetryableFetch reports whether err is a gateway failure that a later
// scheduled run may succeed on (as opposed to a data bug like an empty address).
func IsRetryableFetch(err error) bool {
	return errors.Is(err, domain.ErrGatewayUnavailable) || errors.Is(err, domain.ErrRateLimited)
}
