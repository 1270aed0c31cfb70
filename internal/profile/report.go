package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Health-Informatics-UoN/nuh-helper/internal/errors"
)

// DefaultReportName is the conventional scan report file name.
const DefaultReportName = "ScanReport.xlsx"

// reportVersion is written to the report's meta sheet.
const reportVersion = "nuh-helper"

var fieldOverviewHeaders = []interface{}{
	"Table", "Field", "Description", "Type", "Max length", "N rows",
}

var tableOverviewHeaders = []interface{}{
	"Table", "Description", "N rows", "N rows checked", "N fields", "N fields empty",
}

// Excel caps sheet names at 31 characters.
const maxSheetName = 31

// WriteXLSX renders the report as a scan-report workbook: a Field Overview
// sheet, a Table Overview sheet, one value sheet per scanned file and a "_"
// meta sheet describing the scan.
func WriteXLSX(report *Report, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	names := indexTableNames(report.Files)
	sheets := valueSheetNames(names)

	if err := writeFieldOverview(f, report, names); err != nil {
		return err
	}
	if err := writeTableOverview(f, report, names); err != nil {
		return err
	}
	for i := range report.Files {
		if err := writeValueSheet(f, &report.Files[i], sheets[i]); err != nil {
			return err
		}
	}
	if err := writeMetaSheet(f, report); err != nil {
		return err
	}

	if idx, err := f.GetSheetIndex("Field Overview"); err == nil && idx >= 0 {
		f.SetActiveSheet(idx)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.NewIOError("cannot create report directory", err).WithFile(path)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return errors.NewIOError("cannot save scan report", err).WithFile(path)
	}
	return nil
}

// WriteJSON renders the report as indented JSON.
func WriteJSON(report *Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return errors.NewIOError("cannot encode scan report", err).WithFile(path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.NewIOError("cannot create report directory", err).WithFile(path)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return errors.NewIOError("cannot write scan report", err).WithFile(path)
	}
	return nil
}

// indexTableNames disambiguates duplicate file names by suffixing repeats with
// their occurrence index, so two files both named data.csv become data.csv and
// data.csv_1.
func indexTableNames(files []FileReport) []string {
	names := make([]string, len(files))
	counts := make(map[string]int, len(files))
	for i, file := range files {
		if n := counts[file.Name]; n > 0 {
			names[i] = fmt.Sprintf("%s_%d", file.Name, n)
		} else {
			names[i] = file.Name
		}
		counts[file.Name]++
	}
	return names
}

func writeFieldOverview(f *excelize.File, report *Report, names []string) error {
	const sheet = "Field Overview"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return errors.NewIOError("cannot create sheet", err)
	}
	row := 1
	if err := setRow(f, sheet, row, fieldOverviewHeaders); err != nil {
		return err
	}
	for i := range report.Files {
		file := &report.Files[i]
		for _, column := range file.Columns {
			stats := file.Stats[column]
			row++
			record := []interface{}{
				names[i], column, "", stats.Type, stats.MaxLength, stats.NRows,
			}
			if err := setRow(f, sheet, row, record); err != nil {
				return err
			}
		}
		// Blank separator row between tables.
		row++
	}
	return nil
}

func writeTableOverview(f *excelize.File, report *Report, names []string) error {
	const sheet = "Table Overview"
	if _, err := f.NewSheet(sheet); err != nil {
		return errors.NewIOError("cannot create sheet", err)
	}
	if err := setRow(f, sheet, 1, tableOverviewHeaders); err != nil {
		return err
	}
	for i := range report.Files {
		file := &report.Files[i]
		empty := 0
		for _, stats := range file.Stats {
			if stats.Type == TypeEmpty {
				empty++
			}
		}
		record := []interface{}{
			names[i], "", file.NRows, file.NRows, len(file.Columns), empty,
		}
		if err := setRow(f, sheet, i+2, record); err != nil {
			return err
		}
	}
	return nil
}

// writeValueSheet writes one table's value breakdown as paired value/Frequency
// columns. Fields above the enumeration threshold contribute header cells but
// no values.
func writeValueSheet(f *excelize.File, file *FileReport, sheet string) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return errors.NewIOError("cannot create sheet", err)
	}

	header := make([]interface{}, 0, 2*len(file.Columns))
	depth := 0
	for _, column := range file.Columns {
		header = append(header, column, "Frequency")
		if n := len(file.Stats[column].Values); n > depth {
			depth = n
		}
	}
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}

	for i := 0; i < depth; i++ {
		record := make([]interface{}, 0, 2*len(file.Columns))
		for _, column := range file.Columns {
			values := file.Stats[column].Values
			if i < len(values) {
				record = append(record, values[i].Value, values[i].Count)
			} else {
				record = append(record, "", "")
			}
		}
		if err := setRow(f, sheet, i+2, record); err != nil {
			return err
		}
	}
	return nil
}

func writeMetaSheet(f *excelize.File, report *Report) error {
	const sheet = "_"
	if _, err := f.NewSheet(sheet); err != nil {
		return errors.NewIOError("cannot create sheet", err)
	}
	rows := [][]interface{}{
		{"Key", "Value"},
		{"Version", reportVersion},
		{"Scan started at", report.StartedAt.Format(time.RFC3339)},
		{"Scan finished at", report.FinishedAt.Format(time.RFC3339)},
		{"sourceType", "CSV_FILES"},
		{"scanValues", true},
		{"minCellCount", report.MinCellCount},
	}
	for i, record := range rows {
		if err := setRow(f, sheet, i+1, record); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return errors.NewIOError("cannot address report row", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return errors.NewIOError("cannot write report row", err)
	}
	return nil
}

// valueSheetNames maps the indexed table names onto unique sheet names within
// Excel's length limit. Names that collide after truncation get an occurrence
// suffix, the same scheme indexTableNames uses for duplicate file names.
func valueSheetNames(names []string) []string {
	out := make([]string, len(names))
	counts := make(map[string]int, len(names))
	for i, name := range names {
		base := truncateSheetName(name, maxSheetName)
		if n := counts[base]; n > 0 {
			suffix := fmt.Sprintf("_%d", n)
			out[i] = truncateSheetName(name, maxSheetName-len(suffix)) + suffix
		} else {
			out[i] = base
		}
		counts[base]++
	}
	return out
}

// truncateSheetName trims a table name to at most limit runes.
func truncateSheetName(name string, limit int) string {
	runes := []rune(name)
	if len(runes) <= limit {
		return name
	}
	return string(runes[:limit])
}
