package report

import (
	"fmt"
	"strings"
)

// Markdown renders the corpus summary as a Markdown document, one table
// over all sections with a linking footer. Tool surfaces return this form.
func Markdown(r *CorpusReport) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Corpus evaluation %s\n\n", r.ID)
	fmt.Fprintf(&sb, "Generated %s over %d documents.\n\n",
		r.GeneratedAt.Format("2006-01-02 15:04:05 UTC"), len(r.PerDocument))

	writeMarkdownTable(&sb, r.Rows())

	linking := r.LinkingAccuracy()
	fmt.Fprintf(&sb, "Linking accuracy: %d/%d = %s\n",
		linking.Correct, linking.Total, formatScore(linking.Value()))

	if len(r.Ignored) > 0 {
		fmt.Fprintf(&sb, "\nIgnored predictions without gold: %s\n",
			strings.Join(r.Ignored, ", "))
	}
	return sb.String()
}

// MarkdownTable renders an arbitrary row set, e.g. after filtering.
func MarkdownTable(rows []Row) string {
	var sb strings.Builder
	writeMarkdownTable(&sb, rows)
	return sb.String()
}

func writeMarkdownTable(sb *strings.Builder, rows []Row) {
	header := []string{"Section", "Label", "TP", "FP", "FN", "P", "R", "F1"}
	cells := make([][]string, 0, len(rows)+1)
	cells = append(cells, header)
	for _, row := range rows {
		cells = append(cells, []string{
			string(row.Section),
			row.Label,
			fmt.Sprintf("%d", row.TP),
			fmt.Sprintf("%d", row.FP),
			fmt.Sprintf("%d", row.FN),
			formatScore(row.Precision),
			formatScore(row.Recall),
			formatOptScore(row.F1),
		})
	}

	widths := make([]int, len(header))
	for _, row := range cells {
		for j, cell := range row {
			if len(cell) > widths[j] {
				widths[j] = len(cell)
			}
		}
	}

	for i, row := range cells {
		sb.WriteString("|")
		for j, cell := range row {
			padding := widths[j] - len(cell)
			sb.WriteString(" " + cell + strings.Repeat(" ", padding) + " |")
		}
		sb.WriteString("\n")

		if i == 0 {
			sb.WriteString("|")
			for _, width := range widths {
				sb.WriteString(strings.Repeat("-", width+2) + "|")
			}
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\n")
}
