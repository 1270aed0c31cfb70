package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Health-Informatics-UoN/nuh-helper/internal/errors"
)

func validShiftJob() *ShiftJob {
	return &ShiftJob{
		InputFile:       "in.xlsx",
		OutputFile:      "out.xlsx",
		PatientSheet:    "patients",
		PatientIDColumn: "patient_id",
		Sheets: map[string]SheetConfig{
			"patients": {IDColumn: "patient_id", DateColumns: []string{"dob"}},
		},
		MinShiftDays: -15,
		MaxShiftDays: 15,
	}
}

func TestShiftJob_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ShiftJob)
		wantErr bool
	}{
		{
			name:    "valid job",
			mutate:  func(j *ShiftJob) {},
			wantErr: false,
		},
		{
			name:    "missing input file",
			mutate:  func(j *ShiftJob) { j.InputFile = "" },
			wantErr: true,
		},
		{
			name:    "missing patient sheet",
			mutate:  func(j *ShiftJob) { j.PatientSheet = "" },
			wantErr: true,
		},
		{
			name:    "no sheets configured",
			mutate:  func(j *ShiftJob) { j.Sheets = nil },
			wantErr: true,
		},
		{
			name: "sheet without id column",
			mutate: func(j *ShiftJob) {
				j.Sheets["labs"] = SheetConfig{DateColumns: []string{"test_date"}}
			},
			wantErr: true,
		},
		{
			name: "sheet without date columns",
			mutate: func(j *ShiftJob) {
				j.Sheets["labs"] = SheetConfig{IDColumn: "patient_id"}
			},
			wantErr: true,
		},
		{
			name: "negative header row",
			mutate: func(j *ShiftJob) {
				j.Sheets["labs"] = SheetConfig{IDColumn: "patient_id", DateColumns: []string{"d"}, HeaderRow: -1}
			},
			wantErr: true,
		},
		{
			name:    "inverted shift range",
			mutate:  func(j *ShiftJob) { j.MinShiftDays = 10; j.MaxShiftDays = -10 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := validShiftJob()
			tt.mutate(job)
			err := job.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestShiftJob_ApplyDefaults(t *testing.T) {
	job := &ShiftJob{}
	job.ApplyDefaults()

	assert.Equal(t, -15, job.MinShiftDays)
	assert.Equal(t, 15, job.MaxShiftDays)
	assert.Equal(t, DefaultLinkingTableOutput, job.LinkingTableOutput)
}

func TestShiftJob_ApplyDefaults_KeepsExplicitRange(t *testing.T) {
	job := &ShiftJob{MinShiftDays: -7, MaxShiftDays: 7}
	job.ApplyDefaults()

	assert.Equal(t, -7, job.MinShiftDays)
	assert.Equal(t, 7, job.MaxShiftDays)
}

func TestLoadShiftJob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.yaml")
	content := `
input_file: patients.xlsx
output_file: shifted.xlsx
patient_sheet: patients
patient_id_column: patient_id
seed: 42
sheets:
  patients:
    id_column: patient_id
    date_columns: [dob, last_alive]
  results:
    id_column: patient_id
    date_columns: [date_result]
    header_row: 2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	job, err := LoadShiftJob(path)
	require.NoError(t, err)

	assert.Equal(t, "patients.xlsx", job.InputFile)
	assert.Equal(t, -15, job.MinShiftDays)
	assert.Equal(t, 15, job.MaxShiftDays)
	require.NotNil(t, job.Seed)
	assert.Equal(t, int64(42), *job.Seed)
	assert.Equal(t, []string{"dob", "last_alive"}, job.Sheets["patients"].DateColumns)
	assert.Equal(t, 2, job.Sheets["results"].HeaderRow)
	assert.Equal(t, DefaultLinkingTableOutput, job.LinkingTableOutput)
}

func TestLoadShiftJob_UnknownKeyRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte("input_file: a\nno_such_key: b\n"), 0644))

	_, err := LoadShiftJob(path)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}

func TestLoadShiftJob_MissingFile(t *testing.T) {
	_, err := LoadShiftJob(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeIO))
}

func TestScanJob_Defaults(t *testing.T) {
	job := &ScanJob{Files: []string{"a.csv"}}
	job.ApplyDefaults()

	assert.Equal(t, "ScanReport.xlsx", job.Output)
	assert.Equal(t, DefaultMinCellCount, job.MinCellCount)
	assert.Equal(t, ",", job.Delimiter)
	assert.NoError(t, job.Validate())
}

func TestScanJob_Validate(t *testing.T) {
	tests := []struct {
		name    string
		job     ScanJob
		wantErr bool
	}{
		{
			name:    "valid",
			job:     ScanJob{Files: []string{"a.csv"}, Output: "r.xlsx", MinCellCount: 5, Delimiter: ","},
			wantErr: false,
		},
		{
			name:    "no files",
			job:     ScanJob{Output: "r.xlsx", MinCellCount: 5},
			wantErr: true,
		},
		{
			name:    "empty file entry",
			job:     ScanJob{Files: []string{""}, Output: "r.xlsx", MinCellCount: 5},
			wantErr: true,
		},
		{
			name:    "multi-character delimiter",
			job:     ScanJob{Files: []string{"a.csv"}, Output: "r.xlsx", MinCellCount: 5, Delimiter: ";;"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.job.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadLogging_Defaults(t *testing.T) {
	cfg, err := LoadLogging()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
}
