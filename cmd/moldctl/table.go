package main

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/yungbote/moldindex-backend/internal/domain"
)

func renderRecords(records []*domain.MoldRecord) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"ID", "Part", "Mold", "Cycle (min)", "Operators", "Media", "BOM"})
	for _, r := range records {
		tw.AppendRow(table.Row{
			r.ID,
			r.PartNumber,
			r.MoldNumber,
			strconv.FormatFloat(r.CycleTime, 'f', -1, 64),
			r.NumOperators,
			len(r.Media),
			strings.ReplaceAll(r.BOM, "\n", ", "),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, WidthMax: 40},
	})
	return tw.Render()
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
