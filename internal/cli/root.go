// Package cli implements the geoclient command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/geoclient/internal/config"
	"github.com/mesh-intelligence/geoclient/pkg/geoclient"
	"github.com/mesh-intelligence/geoclient/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool

	// envFiles overrides the .env files loaded by config; nil loads ".env".
	envFiles []string
}

// NewRootCmd creates the top-level "geoclient" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}
	return newRootCmd(flags)
}

func newRootCmd(flags *rootFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "geoclient",
		Short: "Command-line client for the geodetic points backend",
		Long: "geoclient talks to the geodetic points backend. Every backend command first\n" +
			"resolves a CSRF token, configures the HTTP client with it and then runs.",
		Version: geoclient.Version,
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: $XDG_CONFIG_HOME/geoclient)")
	pf.StringVar(&flags.dataDir, "data-dir", "", "data directory (default: $XDG_DATA_HOME/geoclient)")
	pf.String(config.FlagServer, "", "backend base URL (default: "+types.DefaultServer+")")
	pf.Duration(config.FlagTimeout, 0, "HTTP request timeout (default: 15s)")
	pf.String(config.FlagCookie, "", "cookie header to read csrftoken from")
	pf.String(config.FlagSettings, "", "JSON settings bundle file")
	pf.String(config.FlagLogLevel, "", "log level: debug, info, warn, error")
	pf.String(config.FlagLogFormat, "", "log format: text or json")
	pf.BoolVar(&flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(flags))
	root.AddCommand(newBootstrapCmd(flags))
	root.AddCommand(newLoginCmd(flags))
	root.AddCommand(newLogoutCmd(flags))
	root.AddCommand(newPointsCmd(flags))
	root.AddCommand(newStationsCmd(flags))
	root.AddCommand(newDeletePointsCmd(flags))
	root.AddCommand(newPointCmd(flags))
	root.AddCommand(newUploadCmd(flags))
	root.AddCommand(newDownloadCmd(flags))

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	os.Exit(Run(os.Args[1:], os.Stdout, os.Stderr))
}

// Run executes the command line args and returns the process exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitCode(err)
	}
	return exitSuccess
}

// exitError tags err with the exit code Run should return.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func userError(err error) error { return &exitError{code: exitUserError, err: err} }
func sysError(err error) error  { return &exitError{code: exitSysError, err: err} }

// exitCode returns the code tagged on err; untagged errors come from cobra
// argument and flag parsing and count as user errors.
func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUserError
}
