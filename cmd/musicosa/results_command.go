package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"musicosa/internal/store"
	"musicosa/internal/textutil"
)

func newResultsCommand(ctx *commandContext) *cobra.Command {
	var award string

	cmd := &cobra.Command{
		Use:   "results",
		Short: "Show the stored ranking",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				rankings, err := st.Rankings(cmd.Context(), strings.TrimSpace(award))
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(rankings) == 0 {
					fmt.Fprintln(out, "No ranking stored yet; run stage 2 first.")
					return nil
				}
				rows := make([][]string, 0, len(rankings))
				for _, r := range rankings {
					title := r.Entry.Title
					if r.Entry.Nominee != "" {
						title = fmt.Sprintf("%s [%s]", title, r.Entry.Nominee)
					}
					rows = append(rows, []string{
						r.Entry.Award,
						strconv.Itoa(r.Stats.RankingPlace),
						strconv.Itoa(r.Stats.RankingSequence),
						strconv.FormatFloat(r.Stats.AvgScore, 'f', -1, 64),
						title,
					})
				}
				fmt.Fprintln(out, textutil.RenderTable([]string{"Award", "Place", "Seq", "Avg", "Entry"}, rows, 1, 2, 3))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&award, "award", "", "Only show one award slug")
	return cmd
}
