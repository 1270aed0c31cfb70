// dateshift applies per-patient date shifts to an Excel workbook. It collects
// patient identifiers, resolves a shift mapping (loading an existing linking
// table when configured, generating fresh offsets otherwise), rewrites every
// configured date cell and saves the complete linking table next to the output.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/Health-Informatics-UoN/nuh-helper/internal/config"
	"github.com/Health-Informatics-UoN/nuh-helper/internal/infrastructure"
	"github.com/Health-Informatics-UoN/nuh-helper/internal/shift"
	"github.com/Health-Informatics-UoN/nuh-helper/internal/validation"
	"github.com/Health-Informatics-UoN/nuh-helper/internal/workbook"
)

func main() {
	jobPath := flag.String("job", "", "path to the YAML job config (required)")
	input := flag.String("input", "", "input workbook path (overrides the job config)")
	output := flag.String("output", "", "output workbook path (overrides the job config)")
	linkingTable := flag.String("linking-table", "", "existing linking table to load (overrides the job config)")
	linkingOut := flag.String("linking-out", "", "path for the saved linking table (overrides the job config)")
	seed := flag.String("seed", "", "fixed seed for offset generation (overrides the job config)")
	dateFormat := flag.String("date-format", "", "Excel number format for shifted cells (overrides the job config)")
	flag.Parse()

	if *jobPath == "" {
		fmt.Fprintln(os.Stderr, "dateshift: -job is required")
		flag.Usage()
		os.Exit(2)
	}

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

	job, err := config.LoadShiftJob(*jobPath)
	if err != nil {
		logger.Error("Failed to load job config",
			slog.String("path", *jobPath),
			slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *input != "" {
		job.InputFile = *input
	}
	if *output != "" {
		job.OutputFile = *output
	}
	if *linkingTable != "" {
		job.LinkingTablePath = *linkingTable
	}
	if *linkingOut != "" {
		job.LinkingTableOutput = *linkingOut
	}
	if *seed != "" {
		s, err := strconv.ParseInt(*seed, 10, 64)
		if err != nil {
			logger.Error("Invalid -seed value", slog.String("seed", *seed))
			os.Exit(2)
		}
		job.Seed = &s
	}
	if *dateFormat != "" {
		job.DateFormat = *dateFormat
	}
	if err := job.Validate(); err != nil {
		logger.Error("Invalid job config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Starting date shift",
		slog.String("input", job.InputFile),
		slog.String("output", job.OutputFile),
		slog.Int("configured_sheets", len(job.Sheets)))

	validator := validation.NewFileValidator(infrastructure.GetLogger())
	if err := validator.ValidateWorkbook(job.InputFile); err != nil {
		logger.Error("Invalid input workbook", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := validator.ValidateOutputDirectory(job.OutputFile); err != nil {
		logger.Error("Invalid output location", slog.String("error", err.Error()))
		os.Exit(1)
	}

	rewriter := workbook.NewRewriter(infrastructure.GetLogger())

	ids, err := rewriter.CollectPatientIDs(job)
	if err != nil {
		logger.Error("Failed to collect patient identifiers", slog.String("error", err.Error()))
		os.Exit(1)
	}
	fmt.Printf("Found %d patient identifiers\n", len(ids))

	mapping, err := shift.Resolve(ids, job.LinkingTablePath, job.ShiftOptions())
	if err != nil {
		logger.Error("Failed to resolve shift mapping", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Shift mapping resolved",
		slog.Int("identifiers", mapping.Len()),
		slog.String("linking_table", job.LinkingTablePath))

	if err := rewriter.Rewrite(ctx, job, mapping); err != nil {
		logger.Error("Failed to rewrite workbook", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := mapping.Save(job.LinkingTableOutput); err != nil {
		logger.Error("Failed to save linking table",
			slog.String("path", job.LinkingTableOutput),
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Date shift completed",
		slog.String("output", job.OutputFile),
		slog.String("linking_table_output", job.LinkingTableOutput))
	fmt.Printf("Date shift complete: %s\n", job.OutputFile)
}
