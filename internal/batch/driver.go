package batch

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"

	"github.com/aigoflow/estimate-time/internal/models"
)

// Driver orchestrates full-table processing: eager input load, header
// write, in-order row iteration, one flushed output line per row.
type Driver struct {
	Processor *Processor
	Progress  *Progress
	Audit     Audit
}

// Run processes every input row and streams results to outputCSV.
// The first fatal error (unreadable input, unreadable cache entry,
// write failure, interruption) aborts the run; previously written
// lines survive because each line is flushed before the next row
// starts. No partial line is ever written for the aborting row.
func (d *Driver) Run(ctx context.Context, inputCSV, outputCSV string) error {
	rows, err := ReadInput(inputCSV)
	if err != nil {
		return err
	}

	out, err := os.Create(outputCSV)
	if err != nil {
		return fmt.Errorf("creating output CSV %s: %w", outputCSV, err)
	}
	defer out.Close()

	w := csv.NewWriter(out)

	header := []string{"file_path", "our_seconds"}
	for i := 0; i < d.Processor.Repeats; i++ {
		header = append(header, fmt.Sprintf("llm_seconds_%d", i))
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing output header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("writing output header: %w", err)
	}

	if d.Progress != nil {
		d.Progress.Start(len(rows))
	}

	for _, row := range rows {
		// Interruption is observed between rows, never mid-line.
		if err := ctx.Err(); err != nil {
			slog.Info("Interrupted", "file", row.FilePath)
			d.event("info", "run.interrupted", "Run interrupted", row.FilePath, nil)
			return err
		}

		attempts, err := d.Processor.ProcessRow(ctx, row)
		if err != nil {
			slog.Error("Error processing file", "file", row.FilePath, "error", err)
			d.event("error", "row.failed", "Row processing failed", row.FilePath, err)
			return fmt.Errorf("processing %s: %w", row.FilePath, err)
		}

		record := []string{row.FilePath, row.Measures}
		for _, a := range attempts {
			record = append(record, a.String())
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("writing output row for %s: %w", row.FilePath, err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return fmt.Errorf("writing output row for %s: %w", row.FilePath, err)
		}

		if d.Progress != nil {
			d.Progress.Advance()
		}
	}

	if d.Progress != nil {
		d.Progress.Finish()
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("closing output CSV: %w", err)
	}
	return nil
}

func (d *Driver) event(level, code, msg, file string, err error) {
	if d.Audit == nil {
		return
	}
	meta := map[string]interface{}{"file_path": file}
	if err != nil {
		meta["error"] = err.Error()
	}
	d.Audit.Event(level, code, msg, meta)
}

// ReadInput loads the whole input table eagerly. The header must carry
// at least file_path and measures columns; extra columns are ignored.
func ReadInput(path string) ([]models.InputRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input CSV %s: %w", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading input CSV %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("input CSV %s has no header", path)
	}

	pathIdx, measuresIdx := -1, -1
	for i, col := range records[0] {
		switch col {
		case "file_path":
			pathIdx = i
		case "measures":
			measuresIdx = i
		}
	}
	if pathIdx < 0 || measuresIdx < 0 {
		return nil, fmt.Errorf("input CSV %s must have file_path and measures columns", path)
	}

	rows := make([]models.InputRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		rows = append(rows, models.InputRow{
			FilePath: rec[pathIdx],
			Measures: rec[measuresIdx],
		})
	}
	return rows, nil
}
