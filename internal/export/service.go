// Package export writes recovery outcomes as XLSX workbooks.
package export

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/tracking-recovery/constants"
)

const (
	resultsSheet = "Results"
	summarySheet = "Summary"
)

// Row is one processed file.
type Row struct {
	File        string
	Kind        constants.ResultKind
	TrackingID  string
	Source      string
	Message     string
	Code        string // error code on failures
	Duration    time.Duration
	ProcessedAt time.Time
}

// Report collects rows from concurrent workers.
type Report struct {
	mu     sync.Mutex
	rows   []Row
	logger *slog.Logger
}

func NewReport(logger *slog.Logger) *Report {
	if logger == nil {
		logger = slog.Default()
	}
	return &Report{logger: logger}
}

func (r *Report) Add(row Row) {
	if row.ProcessedAt.IsZero() {
		row.ProcessedAt = time.Now().UTC()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, row)
}

// Rows returns a copy in insertion order.
func (r *Report) Rows() []Row {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Row(nil), r.rows...)
}

func (r *Report) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

// XLSX renders a Results sheet (one line per file) and a Summary sheet with
// counts per result kind.
func (r *Report) XLSX() ([]byte, error) {
	start := time.Now()
	rows := r.Rows()

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			r.logger.Warn("xlsx close failed", "error", err)
		}
	}()
	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}

	headers := []string{"File", "Status", "Tracking ID", "Source", "Message", "Duration (ms)", "Processed At", "Error Code"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(resultsSheet, cell, h)
	}

	counts := map[constants.ResultKind]int{}
	for i, row := range rows {
		line := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, line)
			_ = f.SetCellValue(resultsSheet, cell, v)
		}
		write(1, row.File)
		write(2, string(row.Kind))
		write(3, row.TrackingID)
		write(4, row.Source)
		write(5, truncate(row.Message, 140))
		write(6, row.Duration.Milliseconds())
		write(7, row.ProcessedAt.UTC().Format(time.RFC3339))
		if row.Code != "" {
			write(8, row.Code)
		}
		counts[row.Kind]++
	}

	_ = f.SetColWidth(resultsSheet, "A", "A", 60) // file
	_ = f.SetColWidth(resultsSheet, "B", "B", 20) // status
	_ = f.SetColWidth(resultsSheet, "C", "C", 26) // id
	_ = f.SetColWidth(resultsSheet, "D", "D", 12)
	_ = f.SetColWidth(resultsSheet, "E", "E", 60) // message
	_ = f.SetColWidth(resultsSheet, "F", "H", 22)

	_ = f.SetCellValue(summarySheet, "A1", "Status")
	_ = f.SetCellValue(summarySheet, "B1", "Files")
	for i, kind := range []constants.ResultKind{constants.ResultSuccess, constants.ResultNeedsManualCrop, constants.ResultFailure} {
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", i+2), string(kind))
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", i+2), counts[kind])
	}
	_ = f.SetCellValue(summarySheet, "A5", "TOTAL")
	_ = f.SetCellValue(summarySheet, "B5", len(rows))
	_ = f.SetColWidth(summarySheet, "A", "A", 22)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	r.logger.Info("report rendered",
		"rows", len(rows),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// WriteFile renders the report to path.
func (r *Report) WriteFile(path string) error {
	b, err := r.XLSX()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
