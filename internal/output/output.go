package output

import (
	"fmt"
	"strings"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatYAML     Format = "yaml"
)

// DefaultMaxRows caps the rows of table and markdown output. Structured
// formats are never truncated.
const DefaultMaxRows = 25

// Formatter renders one EDGAR result: *core.SubmissionHistory,
// *core.CompanyConcept, *core.CompanyFacts, *core.Frame, []core.Company or a
// CIK string.
type Formatter interface {
	Format(value any) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	case string(FormatYAML), "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format. maxRows bounds
// tabular output; zero means DefaultMaxRows and a negative value disables
// the cap.
func NewFormatter(format Format, maxRows int) Formatter {
	if maxRows == 0 {
		maxRows = DefaultMaxRows
	}
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatYAML:
		return &YAMLFormatter{}
	case FormatMarkdown:
		return &MarkdownFormatter{MaxRows: maxRows}
	default:
		return &TableFormatter{MaxRows: maxRows}
	}
}

// Render formats value in one call.
func Render(format Format, value any) (string, error) {
	return NewFormatter(format, 0).Format(value)
}

func visibleRows(rows [][]string, maxRows int) ([][]string, int) {
	if maxRows < 0 || len(rows) <= maxRows {
		return rows, 0
	}
	return rows[:maxRows], len(rows) - maxRows
}
