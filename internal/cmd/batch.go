package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edgarlens/edgarlens/internal/core/engine"
	"github.com/edgarlens/edgarlens/internal/edgar"
	"github.com/edgarlens/edgarlens/internal/observability"
	"github.com/edgarlens/edgarlens/internal/output"
)

const (
	batchKindSubmissions = "submissions"
	batchKindFacts       = "facts"
)

var batchCmd = &cobra.Command{
	Use:   "batch [ticker|cik...]",
	Short: "Fetch submissions or facts for many entities",
	Long: `Fetch submissions or company facts for many entities concurrently while
sharing one request quota.

Identifiers come from the arguments or from --file (one per line, # starts a
comment, - reads stdin). A failure for one entity is reported on its entry
and does not stop the rest unless --fail-fast is set.`,
	Example: `  edgarlens batch AAPL MSFT 1744489
  edgarlens batch --file tickers.txt --kind facts -o json --out-dir ./facts`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
	addOutputFlags(batchCmd)

	batchCmd.Flags().String("file", "", "read identifiers from file (- for stdin)")
	batchCmd.Flags().String("kind", batchKindSubmissions, "what to fetch: submissions, facts")
	batchCmd.Flags().Int("concurrency", 0, "concurrent fetches (default: workers from config)")
	batchCmd.Flags().Bool("fail-fast", false, "stop at the first failed entity")
	batchCmd.Flags().String("out-dir", "", "write one file per entity into this directory")
}

func runBatch(cmd *cobra.Command, args []string) error {
	kind, err := cmd.Flags().GetString("kind")
	if err != nil {
		return err
	}
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind != batchKindSubmissions && kind != batchKindFacts {
		return fmt.Errorf("unsupported kind %q (expected submissions or facts)", kind)
	}

	concurrency, err := cmd.Flags().GetInt("concurrency")
	if err != nil {
		return err
	}
	if concurrency < 0 {
		return errors.New("concurrency must not be negative")
	}
	failFast, err := cmd.Flags().GetBool("fail-fast")
	if err != nil {
		return err
	}

	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}
	maxRows, err := cmd.Flags().GetInt("max-rows")
	if err != nil {
		return err
	}
	outPath, outDir, err := resolveOutputTargets(cmd)
	if err != nil {
		return err
	}

	filePath, err := cmd.Flags().GetString("file")
	if err != nil {
		return err
	}
	ids, err := resolveIDs(args, filePath, cmd.InOrStdin())
	if err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close() // nolint:errcheck // releases idle connections only

	startedAt := time.Now()
	entries, err := fetchBatch(cmd.Context(), client.Async(), kind, ids, engine.BatchOptions{
		Concurrency: concurrency,
		FailFast:    failFast,
	})
	if err != nil {
		return err
	}

	failed := 0
	for _, entry := range entries {
		if entry.Error != "" {
			failed++
		}
	}
	observability.CLILogger.Debug("Batch complete",
		zap.String("kind", kind),
		zap.Int("entities", len(entries)),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(startedAt)))

	if outDir != "" {
		return writeBatchFiles(cmd, outDir, format, maxRows, entries)
	}

	rendered, err := output.FormatBatchList(format, entries, maxRows)
	if err != nil {
		return err
	}
	return writeRendered(cmd, outPath, rendered)
}

func fetchBatch(ctx context.Context, client *edgar.AsyncClient, kind string, ids []string, opts engine.BatchOptions) ([]output.BatchEntry, error) {
	selectors := make([]edgar.Selector, len(ids))
	for i, id := range ids {
		selectors[i] = edgar.ParseSelector(id)
	}

	if kind == batchKindFacts {
		items, err := client.CompanyFactsBatch(ctx, selectors, opts)
		if err != nil {
			return nil, err
		}
		return output.BatchEntries(items), nil
	}

	items, err := client.SubmissionsBatch(ctx, selectors, opts)
	if err != nil {
		return nil, err
	}
	return output.BatchEntries(items), nil
}

// writeBatchFiles writes each successful entry to <dir>/<id>.<ext> and
// reports failures on stderr.
func writeBatchFiles(cmd *cobra.Command, dir string, format output.Format, maxRows int, entries []output.BatchEntry) error {
	absDir, err := ensureOutDir(dir)
	if err != nil {
		return err
	}

	formatter := output.NewFormatter(format, maxRows)
	written := 0
	for _, entry := range entries {
		if entry.Error != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", entry.ID, entry.Error)
			continue
		}
		rendered, err := formatter.Format(entry.Data)
		if err != nil {
			return fmt.Errorf("render %s: %w", entry.ID, err)
		}
		path := filepath.Join(absDir, sanitizeFilename(entry.ID)+"."+outputExtension(format))
		if err := os.WriteFile(path, []byte(rendered+"\n"), 0644); err != nil {
			return err
		}
		written++
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d of %d entities to %s\n", written, len(entries), absDir)
	return nil
}

// resolveIDs merges positional identifiers with the optional id file,
// dropping blanks and duplicates while keeping first-seen order.
func resolveIDs(positional []string, path string, stdin io.Reader) ([]string, error) {
	ids := append([]string(nil), positional...)
	if trimmed := strings.TrimSpace(path); trimmed != "" {
		fromFile, err := readIDsFile(trimmed, stdin)
		if err != nil {
			return nil, err
		}
		ids = append(ids, fromFile...)
	}

	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		key := strings.ToUpper(id)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return nil, errors.New("at least one ticker or CIK is required")
	}
	return unique, nil
}

func readIDsFile(path string, stdin io.Reader) ([]string, error) {
	reader := stdin
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer file.Close() // nolint:errcheck
		reader = file
	}

	ids := make([]string, 0)
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := scanner.Text()
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		for _, field := range strings.FieldsFunc(line, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' }) {
			ids = append(ids, field)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ids, nil
}
