package httpclient

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/geoclient/pkg/types"
)

// AuthInterceptor reads the auth token from store on every request and, when
// one is stored, sets "Authorization: Token <value>". A missing token or a
// failing store leaves the request untouched, as does an Authorization
// header already present on the request.
func AuthInterceptor(store types.TokenStore, logger *slog.Logger) Interceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return func(req *http.Request) error {
		if store == nil || req.Header.Get(HeaderAuthorization) != "" {
			return nil
		}
		token, err := store.GetItem(types.AuthTokenKey)
		if err != nil {
			if !errors.Is(err, types.ErrNotFound) {
				logger.DebugContext(req.Context(), "auth token unavailable", "error", err)
			}
			return nil
		}
		if token == "" {
			return nil
		}
		req.Header.Set(HeaderAuthorization, AuthSchemeToken+" "+token)
		return nil
	}
}

// RequestIDInterceptor tags each request with a UUID v7 X-Request-Id unless
// the caller already set one.
func RequestIDInterceptor() Interceptor {
	return func(req *http.Request) error {
		if req.Header.Get(HeaderRequestID) != "" {
			return nil
		}
		id, err := uuid.NewV7()
		if err != nil {
			id = uuid.New()
		}
		req.Header.Set(HeaderRequestID, id.String())
		return nil
	}
}
