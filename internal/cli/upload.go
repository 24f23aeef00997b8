package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/geoclient/internal/api"
	"github.com/mesh-intelligence/geoclient/internal/app"
)

func newUploadCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload RINEX or KML files",
	}
	cmd.AddCommand(newUploadRinexCmd(flags))
	cmd.AddCommand(newUploadKMLCmd(flags))
	return cmd
}

func newUploadRinexCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "rinex FILE...",
		Short: "Upload RINEX observation files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, closeAll, err := openFiles(args)
			if err != nil {
				return err
			}
			defer closeAll()

			return flags.runApp(cmd, func(ctx context.Context, a *app.App) error {
				res, err := a.API().UploadRinex(ctx, files)
				if err != nil {
					return err
				}
				return printUpload(cmd.OutOrStdout(), flags.jsonMode, res)
			})
		},
	}
}

func newUploadKMLCmd(flags *rootFlags) *cobra.Command {
	var radius int
	cmd := &cobra.Command{
		Use:   "kml [--radius N] FILE...",
		Short: "Upload KML files to update point attributes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if radius <= 0 {
				return userError(api.ErrInvalidRadius)
			}
			files, closeAll, err := openFiles(args)
			if err != nil {
				return err
			}
			defer closeAll()

			return flags.runApp(cmd, func(ctx context.Context, a *app.App) error {
				res, err := a.API().UploadKML(ctx, files, radius)
				if err != nil {
					return err
				}
				return printUpload(cmd.OutOrStdout(), flags.jsonMode, res)
			})
		},
	}
	cmd.Flags().IntVar(&radius, "radius", api.DefaultRadius, "match radius in metres")
	return cmd
}

// openFiles opens every path for upload. closeAll closes them all.
func openFiles(paths []string) (files []api.File, closeAll func(), err error) {
	var opened []*os.File
	closeAll = func() {
		for _, f := range opened {
			f.Close()
		}
	}
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			closeAll()
			return nil, func() {}, userError(fmt.Errorf("open %s: %w", p, err))
		}
		opened = append(opened, f)
		files = append(files, api.File{Name: filepath.Base(p), Content: f})
	}
	return files, closeAll, nil
}

func printUpload(w io.Writer, jsonMode bool, res api.UploadResult) error {
	if jsonMode {
		return printJSON(w, res)
	}
	if res.Message != "" {
		fmt.Fprintln(w, res.Message)
	}
	for _, m := range res.Messages {
		fmt.Fprintf(w, "[%s] %s\n", m.Type, m.Text)
	}
	switch {
	case res.CreatedCount > 0:
		fmt.Fprintf(w, "Created %d observation(s)\n", res.CreatedCount)
	case res.UpdatedCount > 0:
		fmt.Fprintf(w, "Updated %d point(s)\n", res.UpdatedCount)
	}
	if !res.Success {
		return userError(fmt.Errorf("upload reported failures"))
	}
	return nil
}
