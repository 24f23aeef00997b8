package httpclient

import (
	"net/http"
	"sync"
)

// Header names and auth schemes sent to the backend.
const (
	HeaderCSRFToken     = "X-CSRFToken"
	HeaderAuthorization = "Authorization"
	HeaderRequestID     = "X-Request-Id"
	HeaderContentType   = "Content-Type"
	HeaderAccept        = "Accept"

	AuthSchemeToken = "Token"
	ContentTypeJSON = "application/json"
)

// Defaults is the set of headers copied onto every outgoing request. It is
// owned by whoever constructs it and handed to the client by reference, so
// changes made after construction apply to all later requests.
type Defaults struct {
	mu sync.RWMutex
	h  http.Header
}

// NewDefaults returns an empty header set.
func NewDefaults() *Defaults {
	return &Defaults{h: make(http.Header)}
}

// Set replaces any value held for name.
func (d *Defaults) Set(name, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.h.Set(name, value)
}

// Get returns the value held for name, or "".
func (d *Defaults) Get(name string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.h.Get(name)
}

// Values returns every value held for name.
func (d *Defaults) Values(name string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.h.Values(name)...)
}

// apply copies defaults onto req. Headers the request already carries win.
func (d *Defaults) apply(req *http.Request) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for name, values := range d.h {
		if _, ok := req.Header[name]; ok {
			continue
		}
		req.Header[name] = append([]string(nil), values...)
	}
}
