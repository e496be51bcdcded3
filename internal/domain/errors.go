package domain

import "errors"

var (
	// ErrAddressEmpty signals a document without a content address where one is required.
	ErrAddressEmpty = errors.New("content address is empty")
	// ErrGatewayUnavailable signals that both gateway endpoints failed to serve a body.
	ErrGatewayUnavailable = errors.New("content gateway unavailable")
	// ErrRateLimited signals a rate limit hit on the gateway or provider.
	ErrRateLimited = errors.New("rate limited")
	// ErrProviderCredentialMissing signals that no embedding credential is configured.
	// Capability-absent, not a failure: callers degrade instead of aborting.
	ErrProviderCredentialMissing = errors.New("embedding provider credential missing")
	// ErrInvalidProviderResponse signals a malformed embedding payload.
	ErrInvalidProviderResponse = errors.New("invalid embedding provider response")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrUnknownKind signals an unrecognized document kind.
	ErrUnknownKind = errors.New("unknown document kind")
)
