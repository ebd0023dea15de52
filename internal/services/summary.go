package services

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/olekukonko/tablewriter"

	"instaetl/internal/warehouse"
)

// RenderSummary prints the per-table outcome of a run
func RenderSummary(w io.Writer, summary *RunSummary) {
	if summary == nil {
		return
	}

	loaded := make(map[string]int64, len(summary.Loads))
	for _, l := range summary.Loads {
		loaded[l.Table] = l.Inserted
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Table", "Rows", "File", "Loaded"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, out := range summary.Outputs {
		load := "-"
		if n, ok := loaded[out.Table]; ok {
			load = fmt.Sprintf("%d", n)
		}
		table.Append([]string{
			out.Table,
			fmt.Sprintf("%d", out.Rows),
			filepath.Base(out.Path),
			load,
		})
	}
	table.Render()

	r := summary.Report
	fmt.Fprintf(w, "\nrun %s: %d rows read, %d kept, %d dropped (invalid date %d, missing post_id %d, duplicate %d), %d imputed cells\n",
		summary.RunID, r.InputRows, r.OutputRows, r.Dropped(),
		r.InvalidDates, r.MissingPostIDs, r.Duplicates, totalImputed(r.Imputed))
	if summary.Workbook != "" {
		fmt.Fprintf(w, "workbook: %s\n", summary.Workbook)
	}
}

// RenderLoads prints the outcome of a warehouse load
func RenderLoads(w io.Writer, loads []warehouse.LoadResult) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Table", "Target", "Rows", "Inserted"})
	table.SetBorder(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, l := range loads {
		table.Append([]string{l.Table, l.Target, fmt.Sprintf("%d", l.Rows), fmt.Sprintf("%d", l.Inserted)})
	}
	table.Render()
}

func totalImputed(imputed map[string]int) int {
	total := 0
	for _, n := range imputed {
		total += n
	}
	return total
}
