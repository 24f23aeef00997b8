// Package cookie parses cookie strings and reads the CSRF cookie set by the
// backend.
package cookie

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/mesh-intelligence/geoclient/pkg/types"
)

// Name is the cookie the backend stores its CSRF token under.
const Name = "csrftoken"

// Parse splits a cookie string of semicolon-separated key=value pairs into a
// map. Values are URL-decoded; a value that fails to decode is kept raw.
// Pairs without '=' are skipped and the first occurrence of a name wins.
func Parse(s string) map[string]string {
	out := make(map[string]string)
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, seen := out[name]; seen {
			continue
		}
		value = strings.TrimSpace(value)
		if decoded, err := url.PathUnescape(value); err == nil {
			value = decoded
		}
		out[name] = value
	}
	return out
}

// Lookup returns the named cookie from a cookie string.
func Lookup(s, name string) (string, bool) {
	v, ok := Parse(s)[name]
	return v, ok
}

// StringReader reads cookies from a fixed cookie string.
type StringReader string

// Cookie implements types.CookieReader.
func (r StringReader) Cookie(name string) (string, bool) {
	return Lookup(string(r), name)
}

// JarReader reads cookies that a cookie jar holds for one URL.
type JarReader struct {
	Jar http.CookieJar
	URL *url.URL
}

// NewJarReader returns a reader over jar scoped to rawURL.
func NewJarReader(jar http.CookieJar, rawURL string) (*JarReader, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	return &JarReader{Jar: jar, URL: u}, nil
}

// Cookie implements types.CookieReader.
func (r *JarReader) Cookie(name string) (string, bool) {
	if r == nil || r.Jar == nil || r.URL == nil {
		return "", false
	}
	for _, c := range r.Jar.Cookies(r.URL) {
		if c.Name == name {
			if decoded, err := url.PathUnescape(c.Value); err == nil {
				return decoded, true
			}
			return c.Value, true
		}
	}
	return "", false
}

// Chain consults each reader in order and returns the first hit.
type Chain []types.CookieReader

// Cookie implements types.CookieReader.
func (c Chain) Cookie(name string) (string, bool) {
	for _, r := range c {
		if r == nil {
			continue
		}
		if v, ok := r.Cookie(name); ok {
			return v, true
		}
	}
	return "", false
}
