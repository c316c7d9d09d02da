package advisor

import (
	"strings"

	"spendsight/internal/core"
)

const instruction = `Analyze these expenses. Identify spending patterns, overspending areas, and give
practical strategies to save money and balance the budget.

Expenses:
`

// BuildPrompt embeds the tabulated records into the fixed instruction
// template. The table is the sole variable part of the prompt.
func BuildPrompt(records []core.Record) string {
	return instruction + RenderTable(records)
}

// RenderTable formats records as a fixed-width text table in insertion
// order, one row per record with a header line.
func RenderTable(records []core.Record) string {
	headers := []string{"Date", "Amount", "Category", "Description"}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{r.Date.ISO(), r.Amount.Decimal(), r.Category, r.Description})
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		for i, cell := range cells {
			if i > 0 {
				b.WriteString("  ")
			}
			if i == 1 {
				// Right-align the numeric column.
				b.WriteString(strings.Repeat(" ", widths[i]-len(cell)))
				b.WriteString(cell)
			} else {
				b.WriteString(cell)
				if i < len(cells)-1 {
					b.WriteString(strings.Repeat(" ", widths[i]-len(cell)))
				}
			}
		}
		b.WriteString("\n")
	}

	writeRow(headers)
	for _, row := range rows {
		writeRow(row)
	}
	return b.String()
}
