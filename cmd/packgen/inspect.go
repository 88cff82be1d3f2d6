// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/thecrown/packgen/pkg/packager"
)

func newInspectCommand(app *App) *cobra.Command {
	var asJSON, listFiles bool
	cmd := &cobra.Command{
		Use:   "inspect <archive>",
		Short: "Show the identity and contents of a resource pack archive",
		Long: `Show the identity and contents of a resource pack archive.

Prints the entry count, size, SHA-1 and pack UUID the server would send to
clients, plus pack_format and description from pack.mcmeta when present.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(1)(cmd, args); err != nil {
				return usageError(err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := packager.Inspect(args[0])
			if err != nil {
				return app.fail(err, "inspect archive", args[0])
			}
			if asJSON {
				data, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return app.fail(err, "inspect archive", args[0])
				}
				fmt.Fprintln(app.stdout, string(data))
				return nil
			}
			printInspect(app.stdout, info, listFiles)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	cmd.Flags().BoolVarP(&listFiles, "files", "l", false, "list every entry")
	return cmd
}

func printInspect(w io.Writer, info *packager.Info, listFiles bool) {
	line := func(key string, value any) {
		fmt.Fprintf(w, "  %s%v\n", summaryKeyStyle.Render(key), value)
	}

	fmt.Fprintln(w, TitleStyle.Render(info.Path))
	line("entries", info.Entries)
	line("size", fmt.Sprintf("%d bytes", info.Size))
	line("sha1", info.SHA1)
	line("uuid", info.UUID)
	if info.PackFormat != 0 {
		line("format", info.PackFormat)
	}
	if info.Description != "" {
		line("description", info.Description)
	}

	if !listFiles {
		return
	}
	fmt.Fprintln(w)
	for _, f := range info.Files {
		fmt.Fprintf(w, "  %s %s\n", f.Name, VerboseStyle.Render(fmt.Sprintf("(%d bytes)", f.Size)))
	}
}
