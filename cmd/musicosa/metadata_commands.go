package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"musicosa/internal/store"
)

func newMetadataCommand(ctx *commandContext) *cobra.Command {
	metadataCmd := &cobra.Command{
		Use:   "metadata",
		Short: "Show or edit the edition metadata printed in the run banner",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				values, err := st.Metadata(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, field := range store.MetadataFields {
					value := values[field]
					if value == "" {
						value = "-"
					}
					fmt.Fprintf(out, "%-12s %s\n", field+":", value)
				}
				return nil
			})
		},
	}
	metadataCmd.AddCommand(&cobra.Command{
		Use:   "set <field> <value>",
		Short: "Set one metadata field",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				if err := st.SetMetadata(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Set %s\n", args[0])
				return nil
			})
		},
	})
	return metadataCmd
}
