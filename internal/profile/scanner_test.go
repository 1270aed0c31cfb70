package profile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Health-Informatics-UoN/nuh-helper/internal/errors"
)

func writeTempCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestScanFiles_BasicStats(t *testing.T) {
	path := writeTempCSV(t, "patients.csv",
		"patient_id,age,admitted\n"+
			"P001,34,2023-01-15\n"+
			"P002,41,2023-02-20\n"+
			"P003,34,2023-03-25\n")

	scanner := NewScanner(nil, ScannerConfig{MinCellCount: 10})
	report, err := scanner.ScanFiles(context.Background(), []string{path})
	require.NoError(t, err)
	require.Len(t, report.Files, 1)

	file := report.Files[0]
	assert.Equal(t, "patients.csv", file.Name)
	assert.Equal(t, 3, file.NRows)
	assert.Equal(t, []string{"patient_id", "age", "admitted"}, file.Columns)

	id := file.Stats["patient_id"]
	assert.Equal(t, TypeString, id.Type)
	assert.Equal(t, 3, id.NDistinct)
	assert.Equal(t, 0, id.NNulls)

	age := file.Stats["age"]
	assert.Equal(t, TypeInt, age.Type)
	assert.Equal(t, 2, age.NDistinct)

	admitted := file.Stats["admitted"]
	assert.Equal(t, TypeDate, admitted.Type)
	assert.Equal(t, 3, admitted.NDistinct)
}

func TestScanFiles_TypeDetection(t *testing.T) {
	path := writeTempCSV(t, "types.csv",
		"i,r,b,d,s,e,mixed\n"+
			"1,1.5,true,2023-01-15,abc,,1\n"+
			"2,2,FALSE,15/01/2023,def,,x\n"+
			"3,-0.25,True,44941,ghi,,2.5\n")

	scanner := NewScanner(nil, ScannerConfig{MinCellCount: 10})
	report, err := scanner.ScanFiles(context.Background(), []string{path})
	require.NoError(t, err)

	stats := report.Files[0].Stats
	assert.Equal(t, TypeInt, stats["i"].Type)
	assert.Equal(t, TypeReal, stats["r"].Type)
	assert.Equal(t, TypeBool, stats["b"].Type)
	assert.Equal(t, TypeString, stats["s"].Type)
	assert.Equal(t, TypeEmpty, stats["e"].Type)
	assert.Equal(t, TypeString, stats["mixed"].Type)

	// The serial value 44941 classifies as INT, so the date column mixes
	// and degrades to STRING.
	assert.Equal(t, TypeString, stats["d"].Type)
}

func TestScanFiles_PureDateColumn(t *testing.T) {
	path := writeTempCSV(t, "dates.csv",
		"d\n2023-01-15\n15/01/2023\n2023-01-15 09:30:00\n")

	scanner := NewScanner(nil, ScannerConfig{})
	report, err := scanner.ScanFiles(context.Background(), []string{path})
	require.NoError(t, err)

	assert.Equal(t, TypeDate, report.Files[0].Stats["d"].Type)
}

func TestScanFiles_NullsArePlaceholders(t *testing.T) {
	path := writeTempCSV(t, "nulls.csv",
		"v\n1\n\nunknown\nN/A\nnull\n2\n")

	scanner := NewScanner(nil, ScannerConfig{MinCellCount: 10})
	report, err := scanner.ScanFiles(context.Background(), []string{path})
	require.NoError(t, err)

	stats := report.Files[0].Stats["v"]
	assert.Equal(t, TypeInt, stats.Type)
	assert.Equal(t, 6, stats.NRows)
	assert.Equal(t, 4, stats.NNulls)
	assert.Equal(t, 2, stats.NDistinct)
}

func TestScanFiles_ValueEnumerationThreshold(t *testing.T) {
	content := "few,many\n"
	for i := 0; i < 10; i++ {
		content += fmt.Sprintf("%c,v%d\n", 'a'+rune(i%2), i)
	}
	path := writeTempCSV(t, "threshold.csv", content)

	scanner := NewScanner(nil, ScannerConfig{MinCellCount: 5})
	report, err := scanner.ScanFiles(context.Background(), []string{path})
	require.NoError(t, err)

	stats := report.Files[0].Stats

	few := stats["few"]
	assert.Equal(t, 2, few.NDistinct)
	require.Len(t, few.Values, 2)
	// Ordered by descending frequency, then value.
	assert.Equal(t, ValueCount{Value: "a", Count: 5}, few.Values[0])
	assert.Equal(t, ValueCount{Value: "b", Count: 5}, few.Values[1])

	many := stats["many"]
	assert.Equal(t, 10, many.NDistinct)
	assert.Empty(t, many.Values)
}

func TestScanFiles_SortedByName(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"zeta.csv", "alpha.csv"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("a\n1\n"), 0644))
	}

	scanner := NewScanner(nil, ScannerConfig{})
	report, err := scanner.ScanFiles(context.Background(), []string{
		filepath.Join(dir, "zeta.csv"),
		filepath.Join(dir, "alpha.csv"),
	})
	require.NoError(t, err)
	require.Len(t, report.Files, 2)
	assert.Equal(t, "alpha.csv", report.Files[0].Name)
	assert.Equal(t, "zeta.csv", report.Files[1].Name)
}

func TestScanFiles_SemicolonDelimiter(t *testing.T) {
	path := writeTempCSV(t, "semi.csv", "a;b\n1;x\n2;y\n")

	scanner := NewScanner(nil, ScannerConfig{Delimiter: ";"})
	report, err := scanner.ScanFiles(context.Background(), []string{path})
	require.NoError(t, err)

	file := report.Files[0]
	assert.Equal(t, []string{"a", "b"}, file.Columns)
	assert.Equal(t, TypeInt, file.Stats["a"].Type)
}

func TestScanFiles_BOMHeaderStripped(t *testing.T) {
	path := writeTempCSV(t, "bom.csv", "\ufeffid,v\n1,x\n")

	scanner := NewScanner(nil, ScannerConfig{})
	report, err := scanner.ScanFiles(context.Background(), []string{path})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "v"}, report.Files[0].Columns)
}

func TestScanFiles_MissingFile(t *testing.T) {
	scanner := NewScanner(nil, ScannerConfig{})
	_, err := scanner.ScanFiles(context.Background(), []string{"no/such/file.csv"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeIO))
}

func TestScanFiles_MalformedRow(t *testing.T) {
	path := writeTempCSV(t, "bad.csv", "a,b\n1,2\n\"unterminated\n")

	scanner := NewScanner(nil, ScannerConfig{})
	_, err := scanner.ScanFiles(context.Background(), []string{path})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeParse))
}

func TestScanFiles_EmptyTrailingFieldCountsAsNull(t *testing.T) {
	path := writeTempCSV(t, "trailing.csv", "a,b\n1,x\n2,\n")

	scanner := NewScanner(nil, ScannerConfig{})
	report, err := scanner.ScanFiles(context.Background(), []string{path})
	require.NoError(t, err)

	b := report.Files[0].Stats["b"]
	assert.Equal(t, 1, b.NNulls)
	assert.Equal(t, 1, b.NDistinct)
}

func TestScanFiles_MaxLength(t *testing.T) {
	path := writeTempCSV(t, "len.csv", "v\nab\nabcde\na\n")

	scanner := NewScanner(nil, ScannerConfig{})
	report, err := scanner.ScanFiles(context.Background(), []string{path})
	require.NoError(t, err)
	assert.Equal(t, 5, report.Files[0].Stats["v"].MaxLength)
}
