package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/geoclient/internal/app"
)

func newPointsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "points",
		Short: "Print the geodetic points as GeoJSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.runApp(cmd, func(ctx context.Context, a *app.App) error {
				geo, err := a.API().ListPoints(ctx)
				if err != nil {
					return err
				}
				return printRawJSON(cmd.OutOrStdout(), geo)
			})
		},
	}
}

func newDeletePointsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-points ID...",
		Short: "Delete geodetic points by id",
		Example: `  geoclient delete-points ALMA BISH
  geoclient --json delete-points P-0001`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.runApp(cmd, func(ctx context.Context, a *app.App) error {
				res, err := a.API().DeletePoints(ctx, args)
				if err != nil {
					return err
				}
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), res)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d point(s)\n", res.DeletedCount)
				return nil
			})
		},
	}
}
