package formatters

import (
	"fmt"
	"strings"

	"github.com/dataops-tools/model-diff/cmd/report"
)

// MarkdownFormatter renders the report as Markdown suitable for PR comments.
type MarkdownFormatter struct{}

// NewMarkdownFormatter creates a new Markdown formatter.
func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Render produces the Markdown report.
func (f *MarkdownFormatter) Render(r *report.Report) ([]byte, error) {
	var lines []string

	lines = append(lines, fmt.Sprintf("## model-diff: `%s`", r.Meta.Model))
	lines = append(lines, fmt.Sprintf("**Base:** `%s`  |  **Head:** `%s`", r.Meta.Base, r.Meta.Head))
	modeLine := fmt.Sprintf("**Mode:** `%s`", r.Meta.Mode)
	if len(r.Meta.Keys) > 0 {
		modeLine += fmt.Sprintf("  |  **Keys:** `%s`", strings.Join(r.Meta.Keys, ", "))
	}
	lines = append(lines, modeLine, "")

	lines = append(lines, mdTable([][]string{
		{"Metric", "Value"},
		{"Base rowcount", fmt.Sprintf("%d", r.RowCounts.Base)},
		{"Head rowcount", fmt.Sprintf("%d", r.RowCounts.Head)},
	}), "")

	if len(r.SchemaDiff.OnlyInHead) > 0 || len(r.SchemaDiff.OnlyInBase) > 0 {
		lines = append(lines, "### Schema differences")
		if len(r.SchemaDiff.OnlyInHead) > 0 {
			lines = append(lines, fmt.Sprintf("- Columns only in **HEAD**: `%s`", strings.Join(r.SchemaDiff.OnlyInHead, ", ")))
		}
		if len(r.SchemaDiff.OnlyInBase) > 0 {
			lines = append(lines, fmt.Sprintf("- Columns only in **BASE**: `%s`", strings.Join(r.SchemaDiff.OnlyInBase, ", ")))
		}
		lines = append(lines, "")
	}

	if len(r.ColumnProfile) > 0 {
		lines = append(lines, "### Column profile (common columns)")
		rows := [][]string{{"Column", "Base null %", "Head null %", "Base distinct", "Head distinct", "Base uniq %", "Head uniq %"}}
		// Iterate in common-column order so the table is deterministic.
		for _, col := range r.SchemaDiff.Common {
			p, ok := r.ColumnProfile[col]
			if !ok {
				continue
			}
			rows = append(rows, []string{
				col,
				fmt.Sprintf("%.1f", p.Base.NullPct),
				fmt.Sprintf("%.1f", p.Head.NullPct),
				fmt.Sprintf("%d", p.Base.Distinct),
				fmt.Sprintf("%d", p.Head.Distinct),
				fmt.Sprintf("%.1f", p.Base.UniqPct),
				fmt.Sprintf("%.1f", p.Head.UniqPct),
			})
		}
		lines = append(lines, mdTable(rows), "")
	}

	if r.RowDiff != nil {
		lines = append(lines, "### Row-level diff")
		lines = append(lines, fmt.Sprintf("- Added: **%d**", r.RowDiff.Added))
		lines = append(lines, fmt.Sprintf("- Removed: **%d**", r.RowDiff.Removed))
		lines = append(lines, fmt.Sprintf("- Changed: **%d**", r.RowDiff.Changed))
		if r.RowDiff.DuplicateKeyGroups.Base > 0 || r.RowDiff.DuplicateKeyGroups.Head > 0 {
			lines = append(lines, fmt.Sprintf("- ⚠️ Duplicate key groups: **%d** (base), **%d** (head)",
				r.RowDiff.DuplicateKeyGroups.Base, r.RowDiff.DuplicateKeyGroups.Head))
		}
		if len(r.RowDiff.SampleKeys) > 0 {
			lines = append(lines, "", "#### Sample changed keys")
			rows := [][]string{r.Meta.Keys}
			for _, tuple := range r.RowDiff.SampleKeys {
				rows = append(rows, tuple)
			}
			lines = append(lines, mdTable(rows))
		}
		lines = append(lines, "")
	}

	out := strings.TrimRight(strings.Join(lines, "\n"), "\n") + "\n"
	return []byte(out), nil
}

// Extension returns the file extension for Markdown output.
func (f *MarkdownFormatter) Extension() string {
	return ".md"
}

// MIMEType returns the MIME type for Markdown output.
func (f *MarkdownFormatter) MIMEType() string {
	return "text/markdown"
}

func mdTable(rows [][]string) string {
	header := "| " + strings.Join(rows[0], " | ") + " |"
	sep := "|" + strings.Repeat("---|", len(rows[0]))
	body := make([]string, 0, len(rows)-1)
	for _, r := range rows[1:] {
		body = append(body, "| "+strings.Join(r, " | ")+" |")
	}
	return strings.Join(append([]string{header, sep}, body...), "\n")
}
