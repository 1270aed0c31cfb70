// scanreport profiles delimited files and writes a scan report workbook in the
// WhiteRabbit layout, optionally alongside a JSON rendering of the same data.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/Health-Informatics-UoN/nuh-helper/internal/config"
	"github.com/Health-Informatics-UoN/nuh-helper/internal/files"
	"github.com/Health-Informatics-UoN/nuh-helper/internal/infrastructure"
	"github.com/Health-Informatics-UoN/nuh-helper/internal/profile"
	"github.com/Health-Informatics-UoN/nuh-helper/internal/validation"
)

func main() {
	jobPath := flag.String("job", "", "path to the YAML job config")
	output := flag.String("output", "", "scan report workbook path (overrides the job config)")
	jsonOutput := flag.String("json", "", "JSON report path (overrides the job config)")
	minCellCount := flag.Int("min-cell-count", 0, "distinct-value threshold for value enumeration (overrides the job config)")
	delimiter := flag.String("delimiter", "", "field separator (overrides the job config)")
	flag.Parse()

	logCfg, err := config.LoadLogging()
	if err != nil {
		slog.Warn("Failed to load logging config, using defaults", "error", err)
		logCfg = config.LoggingConfig{Level: "info", Format: "json", Output: "console"}
	}
	if _, err := infrastructure.InitializeLogger(logCfg); err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
	}
	defer infrastructure.CloseLogFile()

	ctx := infrastructure.EnsureRunID(context.Background())
	logger := infrastructure.LoggerWithContext(ctx)

	job, err := loadJob(*jobPath, flag.Args())
	if err != nil {
		logger.Error("Failed to load job config",
			slog.String("path", *jobPath),
			slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *output != "" {
		job.Output = *output
	}
	if *jsonOutput != "" {
		job.JSONOutput = *jsonOutput
	}
	if *minCellCount > 0 {
		job.MinCellCount = *minCellCount
	}
	if *delimiter != "" {
		job.Delimiter = *delimiter
	}
	if err := job.Validate(); err != nil {
		logger.Error("Invalid job config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	inputs, err := files.ExpandInputs(job.Files)
	if err != nil {
		logger.Error("Failed to resolve input files", slog.String("error", err.Error()))
		os.Exit(1)
	}
	validator := validation.NewFileValidator(infrastructure.GetLogger())
	for _, path := range inputs {
		if err := validator.ValidateDelimitedFile(path); err != nil {
			logger.Error("Invalid input file", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}
	if err := validator.ValidateOutputDirectory(job.Output); err != nil {
		logger.Error("Invalid output location", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Starting scan",
		slog.Int("files", len(inputs)),
		slog.Int("min_cell_count", job.MinCellCount),
		slog.String("output", job.Output))
	fmt.Printf("Scanning %d files\n", len(inputs))

	scanner := profile.NewScanner(infrastructure.GetLogger(), profile.ScannerConfig{
		MinCellCount: job.MinCellCount,
		Delimiter:    job.Delimiter,
	})
	report, err := scanner.ScanFiles(ctx, inputs)
	if err != nil {
		logger.Error("Scan failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := profile.WriteXLSX(report, job.Output); err != nil {
		logger.Error("Failed to write scan report",
			slog.String("path", job.Output),
			slog.String("error", err.Error()))
		os.Exit(1)
	}
	if job.JSONOutput != "" {
		if err := profile.WriteJSON(report, job.JSONOutput); err != nil {
			logger.Error("Failed to write JSON report",
				slog.String("path", job.JSONOutput),
				slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	logger.Info("Scan report written",
		slog.String("output", job.Output),
		slog.String("json_output", job.JSONOutput))
	fmt.Printf("Scan report complete: %s\n", job.Output)
}

// loadJob builds the scan job from a YAML config, or from positional file
// arguments when no config is given.
func loadJob(jobPath string, args []string) (*config.ScanJob, error) {
	if jobPath != "" {
		return config.LoadScanJob(jobPath)
	}
	job := &config.ScanJob{Files: args}
	job.ApplyDefaults()
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return job, nil
}
