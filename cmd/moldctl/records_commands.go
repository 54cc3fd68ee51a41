package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yungbote/moldindex-backend/internal/app"
	"github.com/yungbote/moldindex-backend/internal/domain"
	"github.com/yungbote/moldindex-backend/internal/platform/dbctx"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "search <part-or-mold-number>",
		Short: "Find records whose part or mold number matches exactly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(a *app.App) error {
				rows, err := a.Services.Molds.Search(dbctx.Context{Ctx: cmd.Context()}, args[0])
				if err != nil {
					return err
				}
				return printRecords(cmd, ctx, rows, fmt.Sprintf("No records match %q", strings.TrimSpace(args[0])))
			})
		},
	}
}

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(a *app.App) error {
				rows, err := a.Services.Molds.List(dbctx.Context{Ctx: cmd.Context()})
				if err != nil {
					return err
				}
				return printRecords(cmd, ctx, rows, "No records")
			})
		},
	}
}

func printRecords(cmd *cobra.Command, ctx *commandContext, rows []*domain.MoldRecord, empty string) error {
	if ctx.jsonOutput {
		return writeJSON(cmd, rows)
	}
	if len(rows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), empty)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderRecords(rows))
	return nil
}
