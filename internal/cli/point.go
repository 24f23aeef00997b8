package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/geoclient/internal/app"
)

func newPointCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "point",
		Short: "Show, edit or delete a single geodetic point",
	}
	cmd.AddCommand(newPointGetCmd(flags))
	cmd.AddCommand(newPointUpdateCmd(flags))
	cmd.AddCommand(newPointDeleteCmd(flags))
	return cmd
}

func newPointGetCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Print one point as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.runApp(cmd, func(ctx context.Context, a *app.App) error {
				point, err := a.API().GetPoint(ctx, args[0])
				if err != nil {
					return err
				}
				return printRawJSON(cmd.OutOrStdout(), point)
			})
		},
	}
}

func newPointUpdateCmd(flags *rootFlags) *cobra.Command {
	var (
		sets []string
		data string
	)
	cmd := &cobra.Command{
		Use:   "update ID (--set FIELD=VALUE... | --data JSON)",
		Short: "Change fields of one point",
		Example: `  geoclient point update P-0001 --set name=ALMA --set height=812.4
  geoclient point update P-0001 --data '{"description":"moved"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseFields(data, sets)
			if err != nil {
				return userError(err)
			}
			return flags.runApp(cmd, func(ctx context.Context, a *app.App) error {
				point, err := a.API().UpdatePoint(ctx, args[0], fields)
				if err != nil {
					return err
				}
				return printRawJSON(cmd.OutOrStdout(), point)
			})
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "field to change as FIELD=VALUE; VALUE is read as JSON when it parses")
	cmd.Flags().StringVar(&data, "data", "", "JSON object of fields to change")
	return cmd
}

func newPointDeleteCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete one point",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.runApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.API().DeletePoint(ctx, args[0]); err != nil {
					return err
				}
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), map[string]any{"deleted": strings.TrimSpace(args[0])})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted point %s\n", strings.TrimSpace(args[0]))
				return nil
			})
		},
	}
}

// parseFields merges the --data object with --set pairs; --set wins.
func parseFields(data string, sets []string) (map[string]any, error) {
	fields := map[string]any{}
	if data != "" {
		if err := json.Unmarshal([]byte(data), &fields); err != nil {
			return nil, fmt.Errorf("--data must be a JSON object: %w", err)
		}
		if fields == nil {
			fields = map[string]any{}
		}
	}
	for _, s := range sets {
		name, raw, ok := strings.Cut(s, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("--set %q: want FIELD=VALUE", s)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		fields[name] = v
	}
	return fields, nil
}
