package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/geoclient/internal/logging"
	"github.com/mesh-intelligence/geoclient/pkg/types"
)

// mapStore is an in-memory types.TokenStore.
type mapStore struct {
	items map[string]string
	err   error
}

func (m *mapStore) GetItem(key string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	v, ok := m.items[key]
	if !ok {
		return "", types.ErrNotFound
	}
	return v, nil
}

func (m *mapStore) SetItem(key, value string) error {
	m.items[key] = value
	return nil
}

func (m *mapStore) RemoveItem(key string) error {
	delete(m.items, key)
	return nil
}

// recorder captures the last request a test server received.
type recorder struct {
	hits   atomic.Int32
	last   atomic.Pointer[http.Request]
	status int
}

func newServer(t *testing.T, rec *recorder) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.hits.Add(1)
		rec.last.Store(r.Clone(context.Background()))
		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, `{}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(Options{BaseURL: baseURL, Logger: logging.Discard()})
	require.NoError(t, err)
	return c
}

func TestNew_RejectsRelativeBaseURL(t *testing.T) {
	_, err := New(Options{BaseURL: "/api/"})
	assert.Error(t, err)
}

func TestClient_MutatingRequestsHeldUntilSettled(t *testing.T) {
	rec := &recorder{}
	srv := newServer(t, rec)
	c := newClient(t, srv.URL)
	ctx := context.Background()

	resp, err := c.Get(ctx, "/api/points/")
	require.NoError(t, err, "GET must pass before settlement")
	resp.Body.Close()
	assert.Equal(t, int32(1), rec.hits.Load())

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		req, err := c.NewRequest(ctx, method, "/api/points/", nil)
		require.NoError(t, err)
		_, err = c.Do(ctx, req)
		assert.ErrorIs(t, err, ErrNotConfigured, method)
	}
	assert.Equal(t, int32(1), rec.hits.Load(), "held requests must not reach the server")

	c.Settle()
	assert.True(t, c.Settled())

	resp, err = c.PostJSON(ctx, "/api/points/delete-multiple/", map[string]any{"ids": []string{"A"}})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, int32(2), rec.hits.Load())
}

func TestClient_DefaultHeadersApplied(t *testing.T) {
	rec := &recorder{}
	srv := newServer(t, rec)
	c := newClient(t, srv.URL)
	c.Settle()

	c.Defaults().Set(HeaderCSRFToken, "tok")
	c.Defaults().Set(HeaderCSRFToken, "tok")
	assert.Equal(t, []string{"tok"}, c.Defaults().Values(HeaderCSRFToken))

	resp, err := c.PostJSON(context.Background(), "/api/x/", struct{}{})
	require.NoError(t, err)
	resp.Body.Close()

	got := rec.last.Load()
	assert.Equal(t, []string{"tok"}, got.Header.Values(HeaderCSRFToken))
	assert.Equal(t, ContentTypeJSON, got.Header.Get(HeaderContentType))
}

func TestClient_RequestHeaderWinsOverDefault(t *testing.T) {
	rec := &recorder{}
	srv := newServer(t, rec)
	c := newClient(t, srv.URL)
	c.Defaults().Set(HeaderCSRFToken, "default")

	req, err := c.NewRequest(context.Background(), http.MethodGet, "/", nil)
	require.NoError(t, err)
	req.Header.Set(HeaderCSRFToken, "explicit")

	resp, err := c.Do(context.Background(), req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "explicit", rec.last.Load().Header.Get(HeaderCSRFToken))
}

func TestClient_ResolveRelativeRequestURL(t *testing.T) {
	rec := &recorder{}
	srv := newServer(t, rec)
	c := newClient(t, srv.URL+"/base/")

	req, err := http.NewRequest(http.MethodGet, "api/points/", nil)
	require.NoError(t, err)

	resp, err := c.Do(context.Background(), req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "/base/api/points/", rec.last.Load().URL.Path)

	_, err = (&Client{}).Resolve("/x")
	assert.Error(t, err, "relative url without base must fail")
}

func TestClient_InterceptorErrorFailsRequest(t *testing.T) {
	rec := &recorder{}
	srv := newServer(t, rec)
	c := newClient(t, srv.URL)

	boom := errors.New("boom")
	c.Use(func(*http.Request) error { return boom })

	_, err := c.Get(context.Background(), "/")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(0), rec.hits.Load())
}

func TestClient_CircuitBreakerTripsOnServerErrors(t *testing.T) {
	rec := &recorder{status: http.StatusInternalServerError}
	srv := newServer(t, rec)
	c := newClient(t, srv.URL)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		resp, err := c.Get(ctx, "/")
		require.NoError(t, err, "5xx responses are returned to the caller")
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		resp.Body.Close()
	}

	_, err := c.Get(ctx, "/")
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(3), rec.hits.Load())
}

func TestClient_PatchAndDeleteCarryCSRF(t *testing.T) {
	rec := &recorder{}
	srv := newServer(t, rec)
	c := newClient(t, srv.URL)
	ctx := context.Background()

	_, err := c.PatchJSON(ctx, "/api/points/P1/", map[string]any{"name": "x"})
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = c.Delete(ctx, "/api/points/P1/")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Equal(t, int32(0), rec.hits.Load())

	c.Defaults().Set(HeaderCSRFToken, "tok")
	c.Settle()

	resp, err := c.PatchJSON(ctx, "/api/points/P1/", map[string]any{"name": "x"})
	require.NoError(t, err)
	resp.Body.Close()
	got := rec.last.Load()
	assert.Equal(t, http.MethodPatch, got.Method)
	assert.Equal(t, "tok", got.Header.Get(HeaderCSRFToken))
	assert.Equal(t, ContentTypeJSON, got.Header.Get(HeaderContentType))

	resp, err = c.Delete(ctx, "/api/points/P1/")
	require.NoError(t, err)
	resp.Body.Close()
	got = rec.last.Load()
	assert.Equal(t, http.MethodDelete, got.Method)
	assert.Equal(t, "tok", got.Header.Get(HeaderCSRFToken))
}

func TestClient_PostMultipart(t *testing.T) {
	type upload struct{ field, file, name string }
	uploads := make(chan upload, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f, hdr, err := r.FormFile("kml_files")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		uploads <- upload{field: r.FormValue("radius"), file: string(data), name: hdr.Filename}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	c := newClient(t, srv.URL)
	c.Settle()

	resp, err := c.PostMultipart(context.Background(), "/api/upload-kml/",
		map[string]string{"radius": "5"},
		[]FilePart{{Field: "kml_files", Filename: "points.kml", Content: strings.NewReader("<kml/>")}},
	)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	got := <-uploads
	assert.Equal(t, "5", got.field)
	assert.Equal(t, "<kml/>", got.file)
	assert.Equal(t, "points.kml", got.name)
}

func TestAuthInterceptor(t *testing.T) {
	newReq := func() *http.Request {
		req, err := http.NewRequest(http.MethodGet, "http://backend.test/", nil)
		require.NoError(t, err)
		return req
	}

	t.Run("sets Token scheme when stored", func(t *testing.T) {
		req := newReq()
		store := &mapStore{items: map[string]string{types.AuthTokenKey: "abc"}}
		require.NoError(t, AuthInterceptor(store, logging.Discard())(req))
		assert.Equal(t, "Token abc", req.Header.Get(HeaderAuthorization))
	})

	t.Run("no-op when nothing stored", func(t *testing.T) {
		req := newReq()
		require.NoError(t, AuthInterceptor(&mapStore{items: map[string]string{}}, logging.Discard())(req))
		assert.Empty(t, req.Header.Get(HeaderAuthorization))
	})

	t.Run("no-op when store fails", func(t *testing.T) {
		req := newReq()
		store := &mapStore{err: errors.New("disk gone")}
		require.NoError(t, AuthInterceptor(store, logging.Discard())(req))
		assert.Empty(t, req.Header.Get(HeaderAuthorization))
	})

	t.Run("no-op with nil store", func(t *testing.T) {
		req := newReq()
		require.NoError(t, AuthInterceptor(nil, nil)(req))
		assert.Empty(t, req.Header.Get(HeaderAuthorization))
	})

	t.Run("keeps an explicit Authorization header", func(t *testing.T) {
		req := newReq()
		req.Header.Set(HeaderAuthorization, "Bearer x")
		store := &mapStore{items: map[string]string{types.AuthTokenKey: "abc"}}
		require.NoError(t, AuthInterceptor(store, logging.Discard())(req))
		assert.Equal(t, "Bearer x", req.Header.Get(HeaderAuthorization))
	})

	t.Run("reads the store on every request", func(t *testing.T) {
		store := &mapStore{items: map[string]string{}}
		intercept := AuthInterceptor(store, logging.Discard())

		first := newReq()
		require.NoError(t, intercept(first))
		assert.Empty(t, first.Header.Get(HeaderAuthorization))

		require.NoError(t, store.SetItem(types.AuthTokenKey, "later"))
		second := newReq()
		require.NoError(t, intercept(second))
		assert.Equal(t, "Token later", second.Header.Get(HeaderAuthorization))
	})
}

func TestRequestIDInterceptor(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "http://backend.test/", nil)
	require.NoError(t, err)

	require.NoError(t, RequestIDInterceptor()(req))
	id, err := uuid.Parse(req.Header.Get(HeaderRequestID))
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())

	req.Header.Set(HeaderRequestID, "fixed")
	require.NoError(t, RequestIDInterceptor()(req))
	assert.Equal(t, "fixed", req.Header.Get(HeaderRequestID))
}

func TestIsSafeMethod(t *testing.T) {
	assert.True(t, IsSafeMethod(http.MethodGet))
	assert.True(t, IsSafeMethod(http.MethodHead))
	assert.True(t, IsSafeMethod(http.MethodOptions))
	assert.False(t, IsSafeMethod(http.MethodPost))
	assert.False(t, IsSafeMethod(http.MethodPatch))
}
