package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/geoclient/internal/httpclient"
	"github.com/mesh-intelligence/geoclient/pkg/types"
)

// bootstrapReport describes the outcome of the startup sequence. It never
// carries the token value.
type bootstrapReport struct {
	Source    string   `json:"source"`
	HeaderSet bool     `json:"header_set"`
	Endpoints []string `json:"endpoints"`
}

func newBootstrapCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Resolve the CSRF token and report where it came from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if err := s.bootstrap(ctx); err != nil {
				return err
			}

			report := bootstrapReport{
				Source:    s.seq.Token().Source,
				HeaderSet: s.http.Defaults().Get(httpclient.HeaderCSRFToken) != "",
				Endpoints: []string{},
			}
			configured := s.app.Settings().Map()
			for _, k := range types.SettingsKeys {
				if k == types.KeyCSRFToken {
					continue
				}
				if _, ok := configured[k]; ok {
					report.Endpoints = append(report.Endpoints, k)
				}
			}

			out := cmd.OutOrStdout()
			if flags.jsonMode {
				return printJSON(out, report)
			}
			fmt.Fprintf(out, "csrf token source: %s\n", report.Source)
			fmt.Fprintf(out, "%s header set: %t\n", httpclient.HeaderCSRFToken, report.HeaderSet)
			fmt.Fprintf(out, "endpoints configured: %d\n", len(report.Endpoints))
			return nil
		},
	}
}
