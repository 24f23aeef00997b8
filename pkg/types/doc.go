// Package types holds the values and interfaces shared between the
// geoclient bootstrap sequencer, its HTTP client, local storage, and CLI.
//
// Settings is the injected bundle; CSRFToken is the resolved anti-forgery
// token; CookieReader, CSRFFetcher and TokenStore are the capabilities the
// sequencer is built from.
package types
