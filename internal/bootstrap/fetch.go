package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/mesh-intelligence/geoclient/internal/httpclient"
)

// Fetch errors. The sequencer treats all of them as "token not found".
var (
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrMalformedBody    = errors.New("malformed response body")
	ErrTokenMissing     = errors.New("response has no csrfToken")
)

// maxTokenBody caps the CSRF endpoint response that is read.
const maxTokenBody = 64 << 10

// csrfResponse is the body served by the backend's get-csrf-token view.
type csrfResponse struct {
	CSRFToken *string `json:"csrfToken"`
}

// EndpointFetcher fetches the token with a GET through the shared client.
// The GET is allowed before the client settles.
type EndpointFetcher struct {
	Client *httpclient.Client
}

// FetchCSRFToken implements types.CSRFFetcher.
func (f EndpointFetcher) FetchCSRFToken(ctx context.Context, url string) (string, error) {
	resp, err := f.Client.Get(ctx, url)
	if err != nil {
		return "", fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if !httpclient.IsSuccess(resp) {
		return "", fmt.Errorf("get %s: %w: %d", url, ErrUnexpectedStatus, resp.StatusCode)
	}

	var body csrfResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxTokenBody)).Decode(&body); err != nil {
		return "", fmt.Errorf("get %s: %w: %v", url, ErrMalformedBody, err)
	}
	if body.CSRFToken == nil || *body.CSRFToken == "" {
		return "", fmt.Errorf("get %s: %w", url, ErrTokenMissing)
	}
	return *body.CSRFToken, nil
}
