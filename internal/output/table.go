package output

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// TableFormatter renders results as an ASCII table.
type TableFormatter struct {
	MaxRows int
}

// Format renders value as a titled table.
func (f *TableFormatter) Format(value any) (string, error) {
	doc, err := documentFor(value)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	if doc.Title != "" {
		sb.WriteString(doc.Title)
		sb.WriteString("\n")
	}
	for _, fl := range doc.Fields {
		sb.WriteString(fmt.Sprintf("  %s: %s\n", fl.Key, fl.Value))
	}
	if sb.Len() > 0 {
		sb.WriteString("\n")
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Footer = text.FormatDefault
	t.AppendHeader(toRow(doc.Header))

	rows, hidden := visibleRows(doc.Rows, f.MaxRows)
	for _, r := range rows {
		t.AppendRow(toRow(r))
	}

	summary := doc.Summary
	if hidden > 0 {
		summary = joinNonEmpty(", ", summary, fmt.Sprintf("%d more not shown", hidden))
	}
	if summary != "" && len(doc.Header) > 0 {
		footer := make(table.Row, len(doc.Header))
		footer[len(footer)-1] = summary
		t.AppendFooter(footer)
	}

	sb.WriteString(t.Render())
	return sb.String(), nil
}

func toRow(values []string) table.Row {
	row := make(table.Row, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}
