package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/yungbote/moldindex-backend/internal/app"
	"github.com/yungbote/moldindex-backend/internal/platform/dbctx"
	"github.com/yungbote/moldindex-backend/internal/services"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var policyFlag string

	cmd := &cobra.Command{
		Use:   "import <file.csv|file.xlsx>",
		Short: "Bulk-import records from a spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(a *app.App) error {
				return runImport(cmd, ctx, a, args[0], policyFlag)
			})
		},
	}
	cmd.Flags().StringVar(&policyFlag, "policy", "", "skip invalid rows or abort the whole import (default from IMPORT_POLICY)")
	return cmd
}

func runImport(cmd *cobra.Command, ctx *commandContext, a *app.App, path, policyFlag string) error {
	policy := services.ImportPolicy(a.Cfg.ImportPolicy)
	if policyFlag != "" {
		p, err := services.ParseImportPolicy(policyFlag)
		if err != nil {
			return err
		}
		policy = p
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	name := filepath.Base(path)
	res, err := a.Services.Imports.Import(dbctx.Context{Ctx: cmd.Context()}, name, f, policy)
	if err != nil {
		var rejected *services.ImportRejectedError
		if errors.As(err, &rejected) {
			if ctx.jsonOutput {
				_ = writeJSON(cmd, map[string]any{"error": err.Error(), "rows": rejected.Rows})
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), renderRowErrors(rejected.Rows))
			}
		}
		if res != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d record(s) from %s before the import stopped\n", res.Inserted, name)
		}
		return err
	}

	if ctx.jsonOutput {
		return writeJSON(cmd, res)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d record(s) from %s (policy %s)\n", res.Inserted, name, res.Policy)
	if len(res.Skipped) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Skipped %d row(s):\n", len(res.Skipped))
		fmt.Fprintln(cmd.OutOrStdout(), renderRowErrors(res.Skipped))
	}
	return nil
}

func renderRowErrors(rows []services.RowError) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Row", "Part", "Mold", "Code", "Reason"})
	for _, r := range rows {
		tw.AppendRow(table.Row{r.Row, r.PartNumber, r.MoldNumber, r.Code, r.Message})
	}
	return tw.Render()
}
