package formatters

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dataops-tools/model-diff/cmd/report"
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00D9FF"))

	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#22C55E")).Bold(true)
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	changedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EAB308")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F97316"))
)

// TextFormatter renders the report for interactive terminal use.
type TextFormatter struct{}

// NewTextFormatter creates a new terminal text formatter.
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{}
}

// Render produces the styled terminal report.
func (f *TextFormatter) Render(r *report.Report) ([]byte, error) {
	var b strings.Builder

	keys := "(none)"
	if len(r.Meta.Keys) > 0 {
		keys = strings.Join(r.Meta.Keys, ", ")
	}
	panel := panelStyle.Render(strings.Join([]string{
		headerStyle.Render(r.Meta.Model),
		fmt.Sprintf("mode=%s", r.Meta.Mode),
		fmt.Sprintf("base=%s  head=%s", r.Meta.Base, r.Meta.Head),
		fmt.Sprintf("keys=%s", keys),
		fmt.Sprintf("diff_schema=%s", r.Meta.DiffSchema),
		fmt.Sprintf("tables: %s / %s", r.Meta.Tables.Base, r.Meta.Tables.Head),
	}, "\n"))
	b.WriteString(panel + "\n\n")

	b.WriteString(headerStyle.Render("Row counts") + "\n")
	b.WriteString(fmt.Sprintf("  %s %d\n", labelStyle.Render("base:"), r.RowCounts.Base))
	b.WriteString(fmt.Sprintf("  %s %d\n\n", labelStyle.Render("head:"), r.RowCounts.Head))

	if len(r.SchemaDiff.OnlyInHead) > 0 || len(r.SchemaDiff.OnlyInBase) > 0 {
		b.WriteString(headerStyle.Render("Schema differences") + "\n")
		if len(r.SchemaDiff.OnlyInHead) > 0 {
			b.WriteString(fmt.Sprintf("  %s %s\n", addedStyle.Render("only in head:"), strings.Join(r.SchemaDiff.OnlyInHead, ", ")))
		}
		if len(r.SchemaDiff.OnlyInBase) > 0 {
			b.WriteString(fmt.Sprintf("  %s %s\n", removedStyle.Render("only in base:"), strings.Join(r.SchemaDiff.OnlyInBase, ", ")))
		}
		b.WriteString("\n")
	} else {
		b.WriteString(labelStyle.Render("No schema differences") + "\n\n")
	}

	if len(r.ColumnProfile) > 0 {
		b.WriteString(headerStyle.Render("Column profile (common columns)") + "\n")
		b.WriteString(fmt.Sprintf("  %-24s %12s %12s %14s %14s\n",
			"column", "base null%", "head null%", "base distinct", "head distinct"))
		for _, col := range r.SchemaDiff.Common {
			p, ok := r.ColumnProfile[col]
			if !ok {
				continue
			}
			b.WriteString(fmt.Sprintf("  %-24s %11.1f%% %11.1f%% %14d %14d\n",
				col, p.Base.NullPct, p.Head.NullPct, p.Base.Distinct, p.Head.Distinct))
		}
		b.WriteString("\n")
	}

	if r.RowDiff != nil {
		b.WriteString(headerStyle.Render("Row-level diff") + "\n")
		b.WriteString(fmt.Sprintf("  %s %d\n", addedStyle.Render("added:  "), r.RowDiff.Added))
		b.WriteString(fmt.Sprintf("  %s %d\n", removedStyle.Render("removed:"), r.RowDiff.Removed))
		b.WriteString(fmt.Sprintf("  %s %d\n", changedStyle.Render("changed:"), r.RowDiff.Changed))
		if r.RowDiff.DuplicateKeyGroups.Base > 0 || r.RowDiff.DuplicateKeyGroups.Head > 0 {
			b.WriteString(warnStyle.Render(fmt.Sprintf("  duplicate key groups: %d (base), %d (head)",
				r.RowDiff.DuplicateKeyGroups.Base, r.RowDiff.DuplicateKeyGroups.Head)) + "\n")
		}
		if len(r.RowDiff.SampleKeys) > 0 {
			b.WriteString("\n" + headerStyle.Render("Sample changed keys") + "\n")
			b.WriteString("  " + strings.Join(r.Meta.Keys, " | ") + "\n")
			for _, tuple := range r.RowDiff.SampleKeys {
				b.WriteString("  " + strings.Join(tuple, " | ") + "\n")
			}
		}
	}

	return []byte(b.String()), nil
}

// Extension returns the file extension for text output.
func (f *TextFormatter) Extension() string {
	return ".txt"
}

// MIMEType returns the MIME type for text output.
func (f *TextFormatter) MIMEType() string {
	return "text/plain"
}
