// Package geoclient holds build metadata for the geoclient module.
package geoclient

// Version is the release version, overridden at build time with
// -ldflags "-X github.com/mesh-intelligence/geoclient/pkg/geoclient.Version=...".
var Version = "0.1.0"

// ModulePath is the Go module path.
const ModulePath = "github.com/mesh-intelligence/geoclient"
