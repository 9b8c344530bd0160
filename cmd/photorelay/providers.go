package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/memohai/photorelay/internal/boot"
	"github.com/memohai/photorelay/internal/email"
)

var providersJSON bool

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List email providers and their [email.config] keys",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := boot.ProvideEmailRegistry(slog.New(slog.NewTextHandler(io.Discard, nil)))
		metas := reg.ListMeta()
		if providersJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(metas)
		}
		return writeProviders(cmd.OutOrStdout(), metas)
	},
}

func init() {
	providersCmd.Flags().BoolVar(&providersJSON, "json", false, "Print provider schemas as JSON")
}

func writeProviders(out io.Writer, metas []email.ProviderMeta) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for i, meta := range metas {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintf(tw, "%s\t%s\n", meta.Provider, meta.DisplayName)
		for _, f := range meta.ConfigSchema.Fields {
			var notes []string
			if f.Required {
				notes = append(notes, "required")
			}
			if len(f.Enum) > 0 {
				notes = append(notes, strings.Join(f.Enum, "|"))
			}
			if f.Example != nil {
				notes = append(notes, fmt.Sprintf("e.g. %v", f.Example))
			}
			if f.Description != "" {
				notes = append(notes, f.Description)
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", f.Key, f.Type, strings.Join(notes, ", "))
		}
	}
	return tw.Flush()
}
