// Command geoclient is the command-line client for the geodetic points
// backend.
package main

import "github.com/mesh-intelligence/geoclient/internal/cli"

func main() {
	cli.Execute()
}
