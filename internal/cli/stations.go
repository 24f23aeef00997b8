package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/geoclient/internal/app"
)

func newStationsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stations",
		Short: "List the station name directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.runApp(cmd, func(ctx context.Context, a *app.App) error {
				names, err := a.API().ListStationNames(ctx)
				if err != nil {
					return err
				}
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), names)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME")
				for _, n := range names {
					fmt.Fprintf(tw, "%d\t%s\n", n.ID, n.Name)
				}
				return tw.Flush()
			})
		},
	}
}
