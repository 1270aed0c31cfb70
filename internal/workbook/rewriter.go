// Package workbook applies per-identifier date shifts to Excel workbooks.
// Only cells in configured date columns on configured sheets are touched;
// everything else in the workbook is preserved as-is because the rewriter
// mutates the input workbook in place before saving it to the output path.
package workbook

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Health-Informatics-UoN/nuh-helper/internal/config"
	"github.com/Health-Informatics-UoN/nuh-helper/internal/dateparse"
	"github.com/Health-Informatics-UoN/nuh-helper/internal/errors"
	"github.com/Health-Informatics-UoN/nuh-helper/internal/shift"
)

// rawOpts reads cell values unformatted so native date cells surface as Excel
// serial numbers rather than locale-formatted text.
var rawOpts = excelize.Options{RawCellValue: true}

// Rewriter shifts dates in a workbook according to a job and a shift mapping.
type Rewriter struct {
	logger *slog.Logger
}

// NewRewriter creates a new workbook rewriter.
func NewRewriter(logger *slog.Logger) *Rewriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rewriter{logger: logger}
}

// CollectPatientIDs reads the patient sheet of the input workbook and returns
// the identifiers in first-seen order, normalized and de-duplicated.
func (r *Rewriter) CollectPatientIDs(job *config.ShiftJob) ([]string, error) {
	f, err := excelize.OpenFile(job.InputFile)
	if err != nil {
		return nil, errors.NewIOError("cannot open workbook", err).WithFile(job.InputFile)
	}
	defer f.Close()

	headerRow := 0
	if cfg, ok := job.Sheets[job.PatientSheet]; ok {
		headerRow = cfg.HeaderRow
	}

	rows, err := sheetRows(f, job.PatientSheet)
	if err != nil {
		return nil, err
	}
	columns, err := headerColumns(rows, job.PatientSheet, headerRow)
	if err != nil {
		return nil, err
	}
	idCol, ok := columns[job.PatientIDColumn]
	if !ok {
		return nil, errors.Newf(errors.ErrTypeConfig,
			"patient identifier column %q not found in sheet %q", job.PatientIDColumn, job.PatientSheet)
	}

	var ids []string
	seen := make(map[string]struct{})
	for _, row := range rows[headerRow+1:] {
		id := shift.NormalizeID(cellAt(row, idCol))
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	r.logger.Info("collected patient identifiers",
		slog.String("sheet", job.PatientSheet),
		slog.Int("count", len(ids)))
	return ids, nil
}

// Rewrite shifts every configured date cell by its row's identifier offset and
// saves the result to the job's output path. The mapping must cover every
// identifier encountered on a row with a shiftable date.
func (r *Rewriter) Rewrite(ctx context.Context, job *config.ShiftJob, mapping *shift.Mapping) error {
	logger := r.logger

	f, err := excelize.OpenFile(job.InputFile)
	if err != nil {
		return errors.NewIOError("cannot open workbook", err).WithFile(job.InputFile)
	}
	defer f.Close()

	// Optional output date format, applied as a cell number format.
	styleID := -1
	if job.DateFormat != "" {
		numFmt := excelDateFormat(job.DateFormat)
		id, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
		if err != nil {
			return errors.NewConfigError("invalid output date format", err).
				WithContext("date_format", job.DateFormat)
		}
		styleID = id
	}

	// Configured sheets absent from the workbook fail the run before any
	// cell is touched.
	for sheet := range job.Sheets {
		if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
			return errors.Newf(errors.ErrTypeConfig, "configured sheet %q not found in workbook", sheet).
				WithFile(job.InputFile)
		}
	}

	for _, sheet := range f.GetSheetList() {
		cfg, configured := job.Sheets[sheet]
		if !configured {
			logger.DebugContext(ctx, "sheet not configured, copied verbatim", slog.String("sheet", sheet))
			continue
		}
		if err := r.rewriteSheet(ctx, f, sheet, cfg, mapping, styleID); err != nil {
			return err
		}
	}

	if dir := filepath.Dir(job.OutputFile); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.NewIOError("cannot create output directory", err).WithFile(job.OutputFile)
		}
	}
	if err := f.SaveAs(job.OutputFile); err != nil {
		return errors.NewIOError("cannot save workbook", err).WithFile(job.OutputFile)
	}

	logger.InfoContext(ctx, "workbook rewritten",
		slog.String("input", job.InputFile),
		slog.String("output", job.OutputFile),
		slog.Int("configured_sheets", len(job.Sheets)))
	return nil
}

// rewriteSheet shifts the configured date columns of one sheet. All column
// lookups are validated before the first row is touched.
func (r *Rewriter) rewriteSheet(ctx context.Context, f *excelize.File, sheet string, cfg config.SheetConfig, mapping *shift.Mapping, styleID int) error {
	rows, err := sheetRows(f, sheet)
	if err != nil {
		return err
	}
	columns, err := headerColumns(rows, sheet, cfg.HeaderRow)
	if err != nil {
		return err
	}

	idCol, ok := columns[cfg.IDColumn]
	if !ok {
		return errors.Newf(errors.ErrTypeConfig,
			"identifier column %q not found in sheet %q", cfg.IDColumn, sheet)
	}
	dateCols := make(map[string]int, len(cfg.DateColumns))
	for _, name := range cfg.DateColumns {
		idx, ok := columns[name]
		if !ok {
			return errors.Newf(errors.ErrTypeConfig,
				"date column %q not found in sheet %q", name, sheet)
		}
		dateCols[name] = idx
	}

	shifted := 0
	for i := cfg.HeaderRow + 1; i < len(rows); i++ {
		row := rows[i]
		id := shift.NormalizeID(cellAt(row, idCol))

		for _, name := range cfg.DateColumns {
			colIdx := dateCols[name]
			value := cellAt(row, colIdx)
			if dateparse.IsPlaceholder(value) {
				continue
			}

			parsed, strategy, err := dateparse.Parse(value)
			if err != nil {
				return errors.NewParseError(fmt.Sprintf("unparseable date value %q", value), err).
					WithCell(sheet, i+1, name)
			}

			offset, ok := mapping.Offset(id)
			if !ok {
				return errors.NewLookupError(id).WithCell(sheet, i+1, name)
			}

			if err := writeShiftedCell(f, sheet, colIdx, i, parsed.AddDate(0, 0, offset), strategy, styleID); err != nil {
				return err
			}
			shifted++
		}
	}

	r.logger.InfoContext(ctx, "sheet processed",
		slog.String("sheet", sheet),
		slog.Int("rows", len(rows)-cfg.HeaderRow-1),
		slog.Int("cells_shifted", shifted))
	return nil
}

// writeShiftedCell writes a shifted date back into its cell. With an explicit
// style the cell becomes a native date cell in that format; otherwise text
// dates keep the layout they arrived in and serial dates stay native.
func writeShiftedCell(f *excelize.File, sheet string, colIdx, rowIdx int, shifted time.Time, strategy string, styleID int) error {
	cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
	if err != nil {
		return errors.NewIOError("cannot address cell", err).WithCell(sheet, rowIdx+1, "")
	}

	if styleID >= 0 {
		if err := f.SetCellValue(sheet, cell, shifted); err != nil {
			return errors.NewIOError("cannot write cell", err).WithCell(sheet, rowIdx+1, cell)
		}
		if err := f.SetCellStyle(sheet, cell, cell, styleID); err != nil {
			return errors.NewIOError("cannot style cell", err).WithCell(sheet, rowIdx+1, cell)
		}
		return nil
	}

	if strategy == dateparse.StrategySerial {
		if err := f.SetCellValue(sheet, cell, shifted); err != nil {
			return errors.NewIOError("cannot write cell", err).WithCell(sheet, rowIdx+1, cell)
		}
		return nil
	}

	if err := f.SetCellStr(sheet, cell, dateparse.Format(shifted, strategy)); err != nil {
		return errors.NewIOError("cannot write cell", err).WithCell(sheet, rowIdx+1, cell)
	}
	return nil
}

// sheetRows reads all rows of a sheet with raw cell values.
func sheetRows(f *excelize.File, sheet string) ([][]string, error) {
	rows, err := f.GetRows(sheet, rawOpts)
	if err != nil {
		return nil, errors.Newf(errors.ErrTypeConfig, "sheet %q not found in workbook", sheet)
	}
	return rows, nil
}

// headerColumns maps trimmed header names to zero-based column indexes.
func headerColumns(rows [][]string, sheet string, headerRow int) (map[string]int, error) {
	if headerRow >= len(rows) {
		return nil, errors.Newf(errors.ErrTypeConfig,
			"sheet %q has no header row at index %d", sheet, headerRow)
	}
	columns := make(map[string]int, len(rows[headerRow]))
	for i, name := range rows[headerRow] {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}
	return columns, nil
}

// cellAt returns the value at a column index, tolerating short rows.
func cellAt(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}

// excelDateFormat normalizes a user-supplied date format to Excel's lowercase
// tokens, so "YYYY-MM-DD" and "yyyy-mm-dd" are both accepted.
func excelDateFormat(format string) string {
	return strings.NewReplacer("YYYY", "yyyy", "YY", "yy", "DD", "dd", "MM", "mm").Replace(format)
}
