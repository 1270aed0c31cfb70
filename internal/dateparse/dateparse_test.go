package dateparse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Health-Informatics-UoN/nuh-helper/internal/errors"
)

func TestIsPlaceholder(t *testing.T) {
	tests := []struct {
		value    string
		expected bool
	}{
		{"", true},
		{"   ", true},
		{"unknown", true},
		{"Unknown", true},
		{"UNKNOWN", true},
		{"unk", true},
		{"unkown", true},
		{"n/a", true},
		{"N/A", true},
		{"none", true},
		{"null", true},
		{"  unknown  ", true},
		{"2023-01-15", false},
		{"not a date", false},
		{"0", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsPlaceholder(tt.value))
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		expected     time.Time
		strategy     string
	}{
		{
			name:     "iso date",
			value:    "2023-01-15",
			expected: time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC),
			strategy: "iso",
		},
		{
			name:     "iso date with slashes",
			value:    "2023/01/15",
			expected: time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC),
			strategy: "iso-slash",
		},
		{
			name:     "iso datetime keeps time component",
			value:    "2023-01-15 09:30:00",
			expected: time.Date(2023, 1, 15, 9, 30, 0, 0, time.UTC),
			strategy: "iso-datetime",
		},
		{
			name:     "year-day-month when day cannot be a month",
			value:    "2023-15-01",
			expected: time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC),
			strategy: "iso-dayfirst",
		},
		{
			name:     "day first",
			value:    "15-01-2023",
			expected: time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC),
			strategy: "dayfirst",
		},
		{
			name:     "day first with slashes",
			value:    "15/01/2023",
			expected: time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC),
			strategy: "dayfirst-slash",
		},
		{
			name:     "month first when day cannot be a month",
			value:    "01-15-2023",
			expected: time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC),
			strategy: "monthfirst",
		},
		{
			name:     "ambiguous day-month resolves day first",
			value:    "02-03-2023",
			expected: time.Date(2023, 3, 2, 0, 0, 0, 0, time.UTC),
			strategy: "dayfirst",
		},
		{
			name:     "non-padded iso",
			value:    "2020-1-9",
			expected: time.Date(2020, 1, 9, 0, 0, 0, 0, time.UTC),
			strategy: "iso-nopad",
		},
		{
			name:     "non-padded day first",
			value:    "5-1-2023",
			expected: time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC),
			strategy: "dayfirst-nopad",
		},
		{
			name:     "non-padded ambiguous resolves day first",
			value:    "1/2/2023",
			expected: time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC),
			strategy: "dayfirst-nopad-slash",
		},
		{
			name:     "non-padded year-day-month when day cannot be a month",
			value:    "2023-15-1",
			expected: time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC),
			strategy: "iso-dayfirst-nopad",
		},
		{
			name:     "excel serial number",
			value:    "44941", // 2023-01-15
			expected: time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC),
			strategy: StrategySerial,
		},
		{
			name:     "surrounding whitespace is trimmed",
			value:    "  2023-01-15  ",
			expected: time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC),
			strategy: "iso",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, strategy, err := Parse(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.strategy, strategy)
			assert.True(t, tt.expected.Equal(parsed), "expected %v, got %v", tt.expected, parsed)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"free text", "tomorrow"},
		{"month out of range everywhere", "2023-13-32"},
		{"negative number", "-5"},
		{"number beyond excel serial range", "20230115"},
		{"empty string is not parseable", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse(tt.value)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrTypeParse))
		})
	}
}

func TestFormat_PreservesSourceLayout(t *testing.T) {
	date := time.Date(2023, 1, 25, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		strategy string
		expected string
	}{
		{"iso", "2023-01-25"},
		{"iso-slash", "2023/01/25"},
		{"iso-dayfirst", "2023-25-01"},
		{"dayfirst", "25-01-2023"},
		{"dayfirst-slash", "25/01/2023"},
		{"monthfirst", "01-25-2023"},
		{"monthfirst-slash", "01/25/2023"},
		{"iso-nopad", "2023-1-25"},
		{"dayfirst-nopad", "25-1-2023"},
		{"monthfirst-nopad-slash", "1/25/2023"},
		{StrategySerial, "2023-01-25"},
		{"no-such-strategy", "2023-01-25"},
	}

	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			assert.Equal(t, tt.expected, Format(date, tt.strategy))
		})
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	// A value re-serialized by the strategy that parsed it must parse back
	// to the same date via the same strategy.
	values := []string{"2023-01-15", "2023-15-01", "15-01-2023", "01-15-2023", "5-1-2023", "2020-1-9"}

	for _, v := range values {
		t.Run(v, func(t *testing.T) {
			parsed, strategy, err := Parse(v)
			require.NoError(t, err)

			again, strategy2, err := Parse(Format(parsed, strategy))
			require.NoError(t, err)
			assert.Equal(t, strategy, strategy2)
			assert.True(t, parsed.Equal(again))
		})
	}
}
