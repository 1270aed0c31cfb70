// Package validation checks input and output paths before a run starts, so
// misconfigured jobs fail with a CONFIG or IO error instead of partway through
// a rewrite or scan.
package validation

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Health-Informatics-UoN/nuh-helper/internal/errors"
)

// FileValidator provides pre-run file checks for the command-line tools.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator.
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{logger: logger}
}

// ValidateFile checks that a path exists, is a regular file and is readable.
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return errors.Newf(errors.ErrTypeIO, "file does not exist").WithFile(path)
	}
	if err != nil {
		return errors.NewIOError("cannot stat file", err).WithFile(path)
	}
	if info.IsDir() {
		return errors.Newf(errors.ErrTypeConfig, "path is a directory, not a file").WithFile(path)
	}

	file, err := os.Open(path)
	if err != nil {
		return errors.NewIOError("file is not readable", err).WithFile(path)
	}
	file.Close()

	v.logger.Debug("file validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateWorkbook checks that a path names a readable Excel workbook. Office
// lock files ("~$...") are rejected because they are not real workbooks.
func (v *FileValidator) ValidateWorkbook(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".xlsx" && ext != ".xlsm" {
		return errors.Newf(errors.ErrTypeConfig,
			"not an Excel workbook (extension %q)", ext).WithFile(path)
	}
	if strings.HasPrefix(filepath.Base(path), "~$") {
		return errors.Newf(errors.ErrTypeConfig, "Excel lock file, not a workbook").WithFile(path)
	}
	return nil
}

// ValidateDelimitedFile checks that a path names a readable delimited file.
func (v *FileValidator) ValidateDelimitedFile(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".csv", ".tsv", ".txt":
		return nil
	}
	return errors.Newf(errors.ErrTypeConfig,
		"not a delimited file (extension %q)", ext).WithFile(path)
}

// ValidateOutputDirectory ensures the directory for an output path exists and
// is writable, creating it if needed.
func (v *FileValidator) ValidateOutputDirectory(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.NewIOError("cannot create output directory", err).WithFile(dir)
	}

	probe := filepath.Join(dir, ".write_test")
	file, err := os.Create(probe)
	if err != nil {
		return errors.NewIOError("output directory is not writable", err).WithFile(dir)
	}
	file.Close()
	os.Remove(probe)

	v.logger.Debug("output directory validated", slog.String("directory", dir))
	return nil
}
