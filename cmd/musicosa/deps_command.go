package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"musicosa/internal/deps"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check the external binaries the stages call",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			statuses := deps.CheckBinaries(deps.Requirements(cfg))
			for _, s := range statuses {
				kind := statusOK
				message := fmt.Sprintf("%s (stage %d)", s.Command, s.Stage)
				switch {
				case !s.Available && s.Optional:
					kind = statusWarn
					message = fmt.Sprintf("%s; not needed when starting from stage %d", s.Detail, cfg.StartFrom)
				case !s.Available:
					kind = statusError
					message = s.Detail
				}
				fmt.Fprintln(out, renderStatusLine(s.Name, kind, message, colorize))
			}
			if missing := deps.Missing(statuses); len(missing) > 0 {
				return errors.New("required binaries are missing")
			}
			return nil
		},
	}
}
