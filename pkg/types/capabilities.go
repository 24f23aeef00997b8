package types

import (
	"context"
	"errors"
)

// CookieReader looks up a cookie by name. ok is false when the cookie is
// missing.
type CookieReader interface {
	Cookie(name string) (value string, ok bool)
}

// CSRFFetcher retrieves a CSRF token from a remote endpoint. Implementations
// report every failure as an error; the sequencer decides how to degrade.
type CSRFFetcher interface {
	FetchCSRFToken(ctx context.Context, url string) (string, error)
}

// TokenStore is persistent local storage keyed by string, in the manner of a
// browser's localStorage.
type TokenStore interface {
	// GetItem returns ErrNotFound when no value is stored under key.
	GetItem(key string) (string, error)
	SetItem(key, value string) error
	RemoveItem(key string) error
}

// AuthTokenKey is the local storage key holding the auth token.
const AuthTokenKey = "authToken"

// Storage errors.
var (
	ErrNotFound        = errors.New("item not found")
	ErrInvalidKey      = errors.New("key must not be empty")
	ErrStorageDetached = errors.New("storage is detached")
	ErrAlreadyAttached = errors.New("storage is already attached")
)
