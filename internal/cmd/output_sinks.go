package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/edgarlens/edgarlens/internal/output"
)

type outputSink struct {
	writer io.Writer
	close  func() error
	path   string
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "table", "Output format: table, json, markdown, yaml")
	cmd.Flags().String("out", "", "Write output to file (default stdout)")
	cmd.Flags().Int("max-rows", output.DefaultMaxRows, "Rows shown in table and markdown output (-1 for all)")
}

func outputExtension(format output.Format) string {
	switch format {
	case output.FormatJSON:
		return "json"
	case output.FormatMarkdown:
		return "md"
	case output.FormatYAML:
		return "yaml"
	default:
		return "txt"
	}
}

var nonFilename = regexp.MustCompile(`[^a-z0-9._-]+`)

func sanitizeFilename(value string) string {
	clean := strings.ToLower(strings.TrimSpace(value))
	clean = nonFilename.ReplaceAllString(clean, "-")
	clean = strings.Trim(clean, "-.")
	if clean == "" {
		return "output"
	}
	return clean
}

func resolveOutputFormat(cmd *cobra.Command) (output.Format, error) {
	value, err := cmd.Flags().GetString("output")
	if err != nil {
		return "", err
	}
	return output.ParseFormat(value)
}

func resolveOutputTargets(cmd *cobra.Command) (outPath string, outDir string, err error) {
	outPath, err = cmd.Flags().GetString("out")
	if err != nil {
		return "", "", err
	}
	if cmd.Flags().Lookup("out-dir") != nil {
		outDir, err = cmd.Flags().GetString("out-dir")
		if err != nil {
			return "", "", err
		}
	}
	if strings.TrimSpace(outPath) != "" && strings.TrimSpace(outDir) != "" {
		return "", "", fmt.Errorf("--out and --out-dir are mutually exclusive")
	}
	return strings.TrimSpace(outPath), strings.TrimSpace(outDir), nil
}

// openSink opens path for writing. An empty path or "-" writes to stdout.
func openSink(path string, stdout io.Writer) (*outputSink, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || trimmed == "-" {
		return &outputSink{writer: stdout, close: func() error { return nil }, path: "-"}, nil
	}

	if err := os.MkdirAll(filepath.Dir(trimmed), 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	file, err := os.Create(trimmed)
	if err != nil {
		return nil, err
	}
	return &outputSink{writer: file, close: file.Close, path: trimmed}, nil
}

func ensureOutDir(dir string) (string, error) {
	clean := strings.TrimSpace(dir)
	if clean == "" {
		return "", nil
	}
	if err := os.MkdirAll(clean, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	abs, err := filepath.Abs(clean)
	if err != nil {
		return clean, nil
	}
	return abs, nil
}

// writeRendered writes rendered text to the --out target, or stdout.
func writeRendered(cmd *cobra.Command, path, rendered string) error {
	sink, err := openSink(path, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer sink.close() // nolint:errcheck // best-effort cleanup after write

	if _, err := fmt.Fprintln(sink.writer, rendered); err != nil {
		return fmt.Errorf("write %s: %w", sink.path, err)
	}
	return nil
}

// renderResult formats value per the output flags and writes it.
func renderResult(cmd *cobra.Command, value any) error {
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}
	maxRows, err := cmd.Flags().GetInt("max-rows")
	if err != nil {
		return err
	}
	outPath, _, err := resolveOutputTargets(cmd)
	if err != nil {
		return err
	}

	rendered, err := output.NewFormatter(format, maxRows).Format(value)
	if err != nil {
		return err
	}
	return writeRendered(cmd, outPath, rendered)
}
