package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"musicosa/internal/store"
	"musicosa/internal/textutil"
)

func newSettingsCommand(ctx *commandContext) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or edit the stored settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				settings, err := st.LoadSettings(cmd.Context())
				if err != nil {
					return err
				}
				rows := [][]string{}
				for _, s := range settings.Sorted() {
					value := "(not set)"
					if s.Value != nil {
						value = *s.Value
					}
					rows = append(rows, []string{s.Key(), string(s.Type), value})
				}
				fmt.Fprintln(cmd.OutOrStdout(), textutil.RenderTable([]string{"Key", "Type", "Value"}, rows))
				return nil
			})
		},
	}
	settingsCmd.AddCommand(&cobra.Command{
		Use:   "set <group.name> <value>",
		Short: "Set one setting, checked against its declared type",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				setting, err := st.SetSetting(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", setting.Key(), *setting.Value)
				return nil
			})
		},
	})
	return settingsCmd
}
