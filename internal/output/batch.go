package output

import (
	"strings"

	"github.com/edgarlens/edgarlens/internal/core/engine"
)

// BatchEntry is one rendered outcome of a batch run.
type BatchEntry struct {
	ID    string `json:"id"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// BatchEntries converts batch items into entries, preserving order.
func BatchEntries[T any](items []engine.BatchItem[T]) []BatchEntry {
	entries := make([]BatchEntry, len(items))
	for i, item := range items {
		entries[i] = BatchEntry{ID: item.Key}
		if item.Err != nil {
			entries[i].Error = item.Err.Error()
			continue
		}
		entries[i].Data = item.Value
	}
	return entries
}

// FormatBatchList renders multiple batch entries using the requested format.
// Structured formats emit one list; tabular formats emit one section per
// entry.
func FormatBatchList(format Format, entries []BatchEntry, maxRows int) (string, error) {
	formatter := NewFormatter(format, maxRows)
	if format == FormatJSON || format == FormatYAML {
		return formatter.Format(entries)
	}

	rendered := make([]string, 0, len(entries))
	for _, entry := range entries {
		heading := "### " + entry.ID
		if format != FormatMarkdown {
			heading = "== " + entry.ID + " =="
		}
		if entry.Error != "" {
			rendered = append(rendered, heading+"\nerror: "+entry.Error)
			continue
		}
		value, err := formatter.Format(entry.Data)
		if err != nil {
			return "", err
		}
		rendered = append(rendered, heading+"\n"+value)
	}

	return strings.Join(rendered, "\n\n"), nil
}
