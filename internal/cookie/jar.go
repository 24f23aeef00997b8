package cookie

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/mesh-intelligence/geoclient/pkg/types"
)

// StoreKey is the local storage key the csrftoken cookie is kept under
// between runs.
const StoreKey = "cookie." + Name

// PersistentJar is a cookie jar that carries the csrftoken cookie across
// processes through local storage. Other cookies live only in memory.
type PersistentJar struct {
	jar    *cookiejar.Jar
	store  types.TokenStore
	origin *url.URL
	logger *slog.Logger
}

var _ http.CookieJar = (*PersistentJar)(nil)

// NewPersistentJar returns a jar for the server at rawURL, seeded with the
// csrftoken cookie saved by an earlier run.
func NewPersistentJar(store types.TokenStore, rawURL string, logger *slog.Logger) (*PersistentJar, error) {
	origin, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	j := &PersistentJar{jar: jar, store: store, origin: origin, logger: logger}
	if store == nil {
		return j, nil
	}
	v, err := store.GetItem(StoreKey)
	switch {
	case err == nil && v != "":
		jar.SetCookies(origin, []*http.Cookie{{Name: Name, Value: v, Path: "/"}})
	case err != nil && !errors.Is(err, types.ErrNotFound):
		logger.Warn("read saved csrf cookie", "error", err)
	}
	return j, nil
}

// Cookies implements http.CookieJar.
func (j *PersistentJar) Cookies(u *url.URL) []*http.Cookie {
	return j.jar.Cookies(u)
}

// SetCookies implements http.CookieJar. A csrftoken cookie from the server
// is saved; one that expires it removes the saved value.
func (j *PersistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.jar.SetCookies(u, cookies)
	if j.store == nil || u.Host != j.origin.Host {
		return
	}
	for _, c := range cookies {
		if c.Name != Name {
			continue
		}
		var err error
		if c.Value == "" || c.MaxAge < 0 || (!c.Expires.IsZero() && c.Expires.Before(time.Now())) {
			err = j.store.RemoveItem(StoreKey)
		} else {
			err = j.store.SetItem(StoreKey, c.Value)
		}
		if err != nil {
			j.logger.Warn("save csrf cookie", "error", err)
		}
	}
}
