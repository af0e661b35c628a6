package types

import "errors"

var (
	// ErrAuthenticationMissing means no bearer token is available; the caller must log in.
	ErrAuthenticationMissing = errors.New("authentication missing")
	// ErrSessionExpired means the server rejected the token with 401.
	ErrSessionExpired = errors.New("session expired")
	// ErrRemoteUnavailable covers network failures, timeouts and non-401 error statuses.
	ErrRemoteUnavailable = errors.New("remote catalog unavailable")
	// ErrLocalStoreUnavailable means the structured store could not serve the request.
	ErrLocalStoreUnavailable = errors.New("local store unavailable")
	// ErrCatalogUnavailable is terminal: no tier could produce data.
	ErrCatalogUnavailable = errors.New("catalog unavailable")

	ErrProductNotFound = errors.New("product not found")
	ErrCacheMiss       = errors.New("page cache miss")
	ErrInvalidRequest  = errors.New("invalid request")
)

// IsAuthError reports whether err must be surfaced to the caller unmodified.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuthenticationMissing) || errors.Is(err, ErrSessionExpired)
}
