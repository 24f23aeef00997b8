package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/geoclient/pkg/types"
)

func newLoginCmd(flags *rootFlags) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "login --token TOKEN",
		Short: "Store the API auth token sent as Authorization: Token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token = strings.TrimSpace(token)
			if token == "" {
				return userError(errors.New("--token must not be empty"))
			}
			cfg, _, err := flags.loadConfig(cmd)
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Detach()

			if err := store.SetItem(types.AuthTokenKey, token); err != nil {
				return sysError(fmt.Errorf("store token: %w", err))
			}
			if flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]bool{"logged_in": true})
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Token stored")
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "API auth token")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func newLogoutCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored API auth token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := flags.loadConfig(cmd)
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Detach()

			if err := store.RemoveItem(types.AuthTokenKey); err != nil {
				return sysError(fmt.Errorf("remove token: %w", err))
			}
			if flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]bool{"logged_in": false})
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Token removed")
			return nil
		},
	}
}
