// Package config defines the job configuration for the date-shifting and
// profiling tools. Jobs are described in YAML files passed at invocation time;
// logging settings additionally honor NUH_* environment variables. All
// validation happens eagerly, before any input file is opened.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "github.com/Health-Informatics-UoN/nuh-helper/internal/errors"
	"github.com/Health-Informatics-UoN/nuh-helper/internal/shift"
)

// DefaultLinkingTableOutput is where the linking table is written when the job
// does not name a path.
const DefaultLinkingTableOutput = "shift_mappings.csv"

// DefaultMinCellCount is the cardinality threshold below which scan reports
// enumerate column values.
const DefaultMinCellCount = 5

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/nuh-helper.log"`
}

// LoadLogging loads logging configuration from NUH_* environment variables,
// falling back to the struct defaults.
func LoadLogging() (LoggingConfig, error) {
	var cfg LoggingConfig
	if err := envconfig.Process("NUH", &cfg); err != nil {
		return LoggingConfig{}, fmt.Errorf("failed to load logging config from env: %w", err)
	}
	return cfg, nil
}

// SheetConfig describes how one sheet of the workbook is shifted.
type SheetConfig struct {
	// IDColumn is the header name of the identifier column in this sheet.
	IDColumn string `yaml:"id_column" validate:"required"`
	// DateColumns are the header names of the columns to shift, in order.
	DateColumns []string `yaml:"date_columns" validate:"required,min=1,dive,required"`
	// HeaderRow is the zero-based row index of the column names. Rows above
	// it (description rows) are copied through untouched.
	HeaderRow int `yaml:"header_row" validate:"gte=0"`
}

// ShiftJob is the full parameter set for one date-shifting run.
type ShiftJob struct {
	InputFile       string `yaml:"input_file" validate:"required"`
	OutputFile      string `yaml:"output_file" validate:"required"`
	PatientSheet    string `yaml:"patient_sheet" validate:"required"`
	PatientIDColumn string `yaml:"patient_id_column" validate:"required"`

	// Sheets maps sheet names to their shifting configuration. Sheets not
	// mentioned here are copied verbatim.
	Sheets map[string]SheetConfig `yaml:"sheets" validate:"required,min=1,dive"`

	MinShiftDays int    `yaml:"min_shift_days" validate:"ltefield=MaxShiftDays"`
	MaxShiftDays int    `yaml:"max_shift_days"`
	Seed         *int64 `yaml:"seed"`

	// LinkingTablePath, when set and existing, is loaded instead of
	// generating fresh offsets. LinkingTableOutput receives the complete
	// mapping after the run.
	LinkingTablePath   string `yaml:"linking_table_path"`
	LinkingTableOutput string `yaml:"linking_table_output"`

	// DateFormat is an Excel number format (e.g. "yyyy-mm-dd") applied to
	// shifted cells. Empty preserves each value's source format.
	DateFormat string `yaml:"date_format"`
}

// ApplyDefaults fills in the default shift range and linking table output.
func (j *ShiftJob) ApplyDefaults() {
	if j.MinShiftDays == 0 && j.MaxShiftDays == 0 {
		j.MinShiftDays = shift.DefaultMinShiftDays
		j.MaxShiftDays = shift.DefaultMaxShiftDays
	}
	if j.LinkingTableOutput == "" {
		j.LinkingTableOutput = DefaultLinkingTableOutput
	}
}

// Validate checks the job before any file is touched.
func (j *ShiftJob) Validate() error {
	if err := validate.Struct(j); err != nil {
		return configError("invalid shift job", err)
	}
	return nil
}

// ShiftOptions converts the job's range and seed into shift generation options.
func (j *ShiftJob) ShiftOptions() shift.Options {
	return shift.Options{
		MinShiftDays: j.MinShiftDays,
		MaxShiftDays: j.MaxShiftDays,
		Seed:         j.Seed,
	}
}

// LoadShiftJob reads, defaults and validates a shift job from a YAML file.
func LoadShiftJob(path string) (*ShiftJob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewIOError("cannot read job config", err).WithFile(path)
	}

	var job ShiftJob
	if err := yaml.UnmarshalStrict(data, &job); err != nil {
		return nil, apperrors.NewConfigError("cannot parse job config", err).WithFile(path)
	}

	job.ApplyDefaults()
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return &job, nil
}

// ScanJob is the full parameter set for one profiling run.
type ScanJob struct {
	// Files are the delimited files to profile.
	Files []string `yaml:"files" validate:"required,min=1,dive,required"`
	// Output is the scan report workbook path.
	Output string `yaml:"output" validate:"required"`
	// JSONOutput, when set, additionally writes the structured report as JSON.
	JSONOutput string `yaml:"json_output"`
	// MinCellCount is the distinct-value threshold: columns at or above it
	// report aggregate statistics only, with no value enumeration.
	MinCellCount int `yaml:"min_cell_count" validate:"gte=0"`
	// Delimiter is the field separator, a single character. Default comma.
	Delimiter string `yaml:"delimiter" validate:"omitempty,len=1"`
}

// ApplyDefaults fills in the default output path, threshold and delimiter.
func (j *ScanJob) ApplyDefaults() {
	if j.Output == "" {
		j.Output = "ScanReport.xlsx"
	}
	if j.MinCellCount == 0 {
		j.MinCellCount = DefaultMinCellCount
	}
	if j.Delimiter == "" {
		j.Delimiter = ","
	}
}

// Validate checks the job before any file is touched.
func (j *ScanJob) Validate() error {
	if err := validate.Struct(j); err != nil {
		return configError("invalid scan job", err)
	}
	return nil
}

// LoadScanJob reads, defaults and validates a scan job from a YAML file.
func LoadScanJob(path string) (*ScanJob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewIOError("cannot read job config", err).WithFile(path)
	}

	var job ScanJob
	if err := yaml.UnmarshalStrict(data, &job); err != nil {
		return nil, apperrors.NewConfigError("cannot parse job config", err).WithFile(path)
	}

	job.ApplyDefaults()
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return &job, nil
}

// configError converts validator errors into the CONFIG taxonomy, keeping the
// offending field names.
func configError(message string, err error) error {
	appErr := apperrors.NewConfigError(message, err)
	if fieldErrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range fieldErrs {
			appErr = appErr.WithContext(fe.Namespace(), fe.Tag())
		}
	}
	return appErr
}
