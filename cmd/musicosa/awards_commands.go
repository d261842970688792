package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"musicosa/internal/config"
	"musicosa/internal/store"
	"musicosa/internal/textutil"
)

func newAwardsCommand(ctx *commandContext) *cobra.Command {
	awardsCmd := &cobra.Command{
		Use:   "awards",
		Short: "Manage the registered awards",
	}
	awardsCmd.AddCommand(newAwardsListCommand(ctx))
	awardsCmd.AddCommand(newAwardsAddCommand(ctx))
	awardsCmd.AddCommand(newAwardsImportCommand(ctx))
	return awardsCmd
}

func newAwardsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered awards",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				awards, err := st.Awards(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(awards) == 0 {
					fmt.Fprintln(out, "No awards registered")
					return nil
				}
				rows := make([][]string, 0, len(awards))
				for _, a := range awards {
					rows = append(rows, []string{a.Slug, a.Designation})
				}
				fmt.Fprintln(out, textutil.RenderTable([]string{"Slug", "Designation"}, rows))
				return nil
			})
		},
	}
}

func newAwardsAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <slug> <designation>",
		Short: "Register one award",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			award := store.Award{Slug: strings.TrimSpace(args[0]), Designation: strings.TrimSpace(args[1])}
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				if err := st.AddAwards(cmd.Context(), award); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Registered award %s\n", award.Slug)
				return nil
			})
		},
	}
}

func newAwardsImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Register awards from a slug,designation CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			file, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open awards file: %w", err)
			}
			defer file.Close()
			awards, err := parseAwards(file)
			if err != nil {
				return fmt.Errorf("awards file %s: %w", args[0], err)
			}
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				if err := st.AddAwards(cmd.Context(), awards...); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Registered %d awards\n", len(awards))
				return nil
			})
		},
	}
}

// parseAwards reads slug,designation rows. A leading "slug" header row is
// skipped.
func parseAwards(r io.Reader) ([]store.Award, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	var awards []store.Award
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if line == 1 && len(record) > 0 && strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(record[0], "\ufeff")), "slug") {
			continue
		}
		if len(record) < 2 || strings.TrimSpace(record[0]) == "" {
			return nil, fmt.Errorf("line %d: expected slug,designation", line)
		}
		awards = append(awards, store.Award{Slug: strings.TrimSpace(record[0]), Designation: strings.TrimSpace(record[1])})
	}
	if len(awards) == 0 {
		return nil, errors.New("no awards found")
	}
	return awards, nil
}
