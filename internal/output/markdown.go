package output

import (
	"fmt"
	"strings"
)

// MarkdownFormatter renders results as a markdown table.
type MarkdownFormatter struct {
	MaxRows int
}

// Format renders value as Markdown.
func (f *MarkdownFormatter) Format(value any) (string, error) {
	doc, err := documentFor(value)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	if doc.Title != "" {
		sb.WriteString(fmt.Sprintf("## %s\n\n", escapeMarkdownCell(doc.Title)))
	}
	for _, fl := range doc.Fields {
		sb.WriteString(fmt.Sprintf("- **%s**: %s\n", fl.Key, escapeMarkdownCell(fl.Value)))
	}
	if len(doc.Fields) > 0 {
		sb.WriteString("\n")
	}

	if len(doc.Header) > 0 {
		sb.WriteString("| " + strings.Join(doc.Header, " | ") + " |\n")
		separators := make([]string, len(doc.Header))
		for i, h := range doc.Header {
			separators[i] = strings.Repeat("-", len(h))
		}
		sb.WriteString("|" + strings.Join(separators, "|") + "|\n")

		rows, hidden := visibleRows(doc.Rows, f.MaxRows)
		for _, r := range rows {
			cells := make([]string, len(r))
			for i, c := range r {
				cells[i] = escapeMarkdownCell(c)
			}
			sb.WriteString("| " + strings.Join(cells, " | ") + " |\n")
		}
		if hidden > 0 {
			sb.WriteString(fmt.Sprintf("\n_%d more rows not shown_\n", hidden))
		}
	}

	if doc.Summary != "" {
		sb.WriteString(fmt.Sprintf("\n**Total**: %s\n", doc.Summary))
	}
	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
