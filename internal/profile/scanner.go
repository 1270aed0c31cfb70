// Package profile scans delimited files and summarizes every column into a
// scan report: detected type, cardinality, null count and, for low-cardinality
// columns only, the full value/frequency breakdown. Columns whose distinct
// count reaches the configured threshold report aggregates alone, so
// effectively-identifying values never leak into the report.
package profile

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Health-Informatics-UoN/nuh-helper/internal/config"
	"github.com/Health-Informatics-UoN/nuh-helper/internal/dateparse"
	"github.com/Health-Informatics-UoN/nuh-helper/internal/errors"
)

// Column types reported in scan reports.
const (
	TypeInt    = "INT"
	TypeReal   = "REAL"
	TypeDate   = "DATE"
	TypeBool   = "BOOL"
	TypeString = "STRING"
	TypeEmpty  = "EMPTY"
)

// ValueCount is one distinct value and its frequency.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ColumnStats summarizes one column.
type ColumnStats struct {
	Type      string `json:"type"`
	NRows     int    `json:"n_rows"`
	NDistinct int    `json:"n_distinct"`
	NNulls    int    `json:"n_nulls"`
	MaxLength int    `json:"max_length"`
	// Values holds the full breakdown, ordered by descending frequency then
	// value. Populated only when NDistinct is below the scan threshold.
	Values []ValueCount `json:"values,omitempty"`
}

// FileReport summarizes one scanned file, keyed by column with the column
// order retained for rendering.
type FileReport struct {
	Name    string                 `json:"name"`
	Path    string                 `json:"path"`
	NRows   int                    `json:"n_rows"`
	Columns []string               `json:"columns"`
	Stats   map[string]ColumnStats `json:"stats"`
}

// Report is the structured scan report, keyed by file then column.
type Report struct {
	StartedAt    time.Time    `json:"started_at"`
	FinishedAt   time.Time    `json:"finished_at"`
	MinCellCount int          `json:"min_cell_count"`
	Files        []FileReport `json:"files"`
}

// ScannerConfig holds configuration options for the Scanner.
type ScannerConfig struct {
	MinCellCount int    // Distinct-value threshold for value enumeration
	Delimiter    string // Field separator, a single character
}

// Scanner profiles delimited files into a Report.
type Scanner struct {
	logger       *slog.Logger
	minCellCount int
	delimiter    rune
}

// NewScanner creates a new scanner with the given configuration.
func NewScanner(logger *slog.Logger, cfg ScannerConfig) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MinCellCount <= 0 {
		cfg.MinCellCount = config.DefaultMinCellCount
	}
	delimiter := ','
	if cfg.Delimiter != "" {
		delimiter = []rune(cfg.Delimiter)[0]
	}
	return &Scanner{
		logger:       logger,
		minCellCount: cfg.MinCellCount,
		delimiter:    delimiter,
	}
}

// ScanFiles profiles every file and assembles the report. Files are ordered
// by base name; any unreadable or malformed file aborts the whole scan.
func (s *Scanner) ScanFiles(ctx context.Context, paths []string) (*Report, error) {
	report := &Report{
		StartedAt:    time.Now(),
		MinCellCount: s.minCellCount,
	}

	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.SliceStable(sorted, func(i, j int) bool {
		return filepath.Base(sorted[i]) < filepath.Base(sorted[j])
	})

	for _, path := range sorted {
		fileReport, err := s.scanFile(ctx, path)
		if err != nil {
			return nil, err
		}
		report.Files = append(report.Files, fileReport)
	}

	report.FinishedAt = time.Now()
	s.logger.InfoContext(ctx, "scan complete",
		slog.Int("files", len(report.Files)),
		slog.Int("min_cell_count", s.minCellCount))
	return report, nil
}

// scanFile reads one delimited file and computes its column statistics in a
// single pass.
func (s *Scanner) scanFile(ctx context.Context, path string) (FileReport, error) {
	file, err := os.Open(path)
	if err != nil {
		return FileReport{}, errors.NewIOError("cannot open file", err).WithFile(path)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = s.delimiter

	header, err := reader.Read()
	if err != nil {
		return FileReport{}, errors.NewIOError("cannot read header row", err).WithFile(path)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	columns := make([]string, len(header))
	for i, name := range header {
		columns[i] = strings.TrimSpace(name)
	}

	counters := make([]map[string]int, len(columns))
	types := make([]*typeTracker, len(columns))
	for i := range columns {
		counters[i] = make(map[string]int)
		types[i] = &typeTracker{}
	}

	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return FileReport{}, errors.NewParseError("malformed delimited row", err).
				WithFile(path).WithContext("row", rows+2)
		}
		rows++
		for i := range columns {
			value := ""
			if i < len(record) {
				value = record[i]
			}
			counters[i][value]++
			types[i].observe(value)
		}
	}

	fileReport := FileReport{
		Name:    filepath.Base(path),
		Path:    path,
		NRows:   rows,
		Columns: columns,
		Stats:   make(map[string]ColumnStats, len(columns)),
	}
	for i, column := range columns {
		fileReport.Stats[column] = s.columnStats(counters[i], types[i], rows)
	}

	s.logger.DebugContext(ctx, "file scanned",
		slog.String("file", fileReport.Name),
		slog.Int("rows", rows),
		slog.Int("columns", len(columns)))
	return fileReport, nil
}

// columnStats condenses a column's value counter into its statistics.
func (s *Scanner) columnStats(counter map[string]int, tracker *typeTracker, rows int) ColumnStats {
	stats := ColumnStats{
		Type:      tracker.columnType(),
		NRows:     rows,
		MaxLength: tracker.maxLength,
	}

	for value, count := range counter {
		if dateparse.IsPlaceholder(value) {
			stats.NNulls += count
			continue
		}
		stats.NDistinct++
	}

	if stats.NDistinct >= s.minCellCount {
		return stats
	}
	for value, count := range counter {
		if dateparse.IsPlaceholder(value) {
			continue
		}
		stats.Values = append(stats.Values, ValueCount{Value: value, Count: count})
	}
	sort.Slice(stats.Values, func(i, j int) bool {
		if stats.Values[i].Count != stats.Values[j].Count {
			return stats.Values[i].Count > stats.Values[j].Count
		}
		return stats.Values[i].Value < stats.Values[j].Value
	})
	return stats
}

// typeTracker accumulates per-value classifications for one column.
type typeTracker struct {
	nonNull   int
	ints      int
	reals     int
	bools     int
	dates     int
	maxLength int
}

// observe classifies a single cell value.
func (t *typeTracker) observe(value string) {
	if n := len([]rune(value)); n > t.maxLength {
		t.maxLength = n
	}
	v := strings.TrimSpace(value)
	if dateparse.IsPlaceholder(v) {
		return
	}
	t.nonNull++

	switch strings.ToLower(v) {
	case "true", "false":
		t.bools++
		return
	}
	if _, err := strconv.ParseInt(v, 10, 64); err == nil {
		t.ints++
		return
	}
	if _, err := strconv.ParseFloat(v, 64); err == nil {
		t.reals++
		return
	}
	if _, _, err := dateparse.Parse(v); err == nil {
		t.dates++
	}
}

// columnType resolves the accumulated classifications into one column type.
// Any mixture that is not purely numeric degrades to STRING.
func (t *typeTracker) columnType() string {
	switch {
	case t.nonNull == 0:
		return TypeEmpty
	case t.bools == t.nonNull:
		return TypeBool
	case t.ints == t.nonNull:
		return TypeInt
	case t.ints+t.reals == t.nonNull:
		return TypeReal
	case t.dates == t.nonNull:
		return TypeDate
	default:
		return TypeString
	}
}
