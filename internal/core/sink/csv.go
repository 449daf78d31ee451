package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zeusync/corestate/internal/core/aggregator"
)

// CSVSink writes the two datasets as CSV files in Dir.
type CSVSink struct {
	Dir string
}

func (s *CSVSink) Write(ctx context.Context, report aggregator.Report) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	patterns := make([][]string, 0, len(report.Records))
	for _, rec := range report.Records {
		patterns = append(patterns, PatternRow(rec))
	}
	if err := writeCSV(ctx, filepath.Join(s.Dir, PatternsFile), PatternsHeader, patterns); err != nil {
		return err
	}

	summary := make([][]string, 0, len(report.Summary))
	for _, row := range report.Summary {
		summary = append(summary, SummaryRow(row))
	}
	return writeCSV(ctx, filepath.Join(s.Dir, SummaryFile), SummaryHeader, summary)
}

func writeCSV(ctx context.Context, path string, header []string, rows [][]string) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
