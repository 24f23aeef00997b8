package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/geoclient/internal/app"
)

func newDownloadCmd(flags *rootFlags) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "download ID",
		Short: "Download the source file of an observation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.runApp(cmd, func(ctx context.Context, a *app.App) error {
				if output == "" || output == "-" {
					_, err := a.API().DownloadObservation(ctx, args[0], cmd.OutOrStdout())
					return err
				}
				return downloadToFile(ctx, a, args[0], output, cmd.ErrOrStderr())
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to FILE instead of stdout")
	return cmd
}

// downloadToFile writes into a temp file beside path and renames it on
// success, so a failed download leaves no partial file.
func downloadToFile(ctx context.Context, a *app.App, id, path string, status io.Writer) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".geoclient-download-*")
	if err != nil {
		return sysError(fmt.Errorf("create %s: %w", path, err))
	}
	tmpName := tmp.Name()

	n, err := a.API().DownloadObservation(ctx, id, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return sysError(fmt.Errorf("write %s: %w", path, err))
	}
	fmt.Fprintf(status, "Wrote %d bytes to %s\n", n, path)
	return nil
}
