package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/geoclient/internal/config"
)

func newInitCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize geoclient configuration and storage",
		Long: "Create the configuration directory with a config.yaml holding the backend's\n" +
			"endpoint paths, then initialize local storage. An existing config.yaml is kept.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.runInit(cmd)
		},
	}
}

func (f *rootFlags) runInit(cmd *cobra.Command) error {
	cfg, logger, err := f.loadConfig(cmd)
	if err != nil {
		return err
	}

	path, created, err := config.WriteDefault(cfg.ConfigDir, cfg.Server, cfg.DataDir)
	if err != nil {
		return sysError(err)
	}
	logger.Debug("config file", "path", path, "created", created)

	// Attach then Detach initializes the data directory.
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	if err := store.Detach(); err != nil {
		return sysError(fmt.Errorf("finalize storage: %w", err))
	}

	out := cmd.OutOrStdout()
	if f.jsonMode {
		return printJSON(out, map[string]any{
			"config_file": path,
			"created":     created,
			"data_dir":    cfg.DataDir,
		})
	}
	if created {
		fmt.Fprintf(out, "Wrote %s\n", path)
	} else {
		fmt.Fprintf(out, "Kept existing %s\n", path)
	}
	fmt.Fprintf(out, "geoclient initialized successfully (data: %s)\n", cfg.DataDir)
	return nil
}
