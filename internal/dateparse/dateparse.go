// Package dateparse parses the heterogeneous date representations found in
// research spreadsheets. Parsing tries a fixed, ordered list of named
// strategies and the first match wins, so behaviour is deterministic for
// ambiguous inputs. Values in the placeholder set are never parsed.
package dateparse

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Health-Informatics-UoN/nuh-helper/internal/errors"
)

// StrategySerial is the strategy name reported for Excel serial-number dates.
// Serial dates have no text layout; callers should write shifted values back
// as native date cells.
const StrategySerial = "serial"

// strategy is a named layout tried during parsing. One strategy per layout so
// a shifted date can be re-serialized exactly the way it arrived, separator
// included.
type strategy struct {
	name   string
	layout string
}

// strategies is the documented parse order. iso forms are tried before the
// day-first variants so unambiguous ISO dates never get reinterpreted; the
// year-day-month forms handle feeds that emit YYYY-DD-MM. Non-padded variants
// come after the whole padded group and accept forms like "5-1-2023".
var strategies = []strategy{
	{name: "iso", layout: "2006-01-02"},
	{name: "iso-slash", layout: "2006/01/02"},
	{name: "iso-datetime", layout: "2006-01-02 15:04:05"},
	{name: "iso-t-datetime", layout: "2006-01-02T15:04:05"},
	{name: "iso-dayfirst", layout: "2006-02-01"},
	{name: "iso-dayfirst-slash", layout: "2006/02/01"},
	{name: "dayfirst", layout: "02-01-2006"},
	{name: "dayfirst-slash", layout: "02/01/2006"},
	{name: "monthfirst", layout: "01-02-2006"},
	{name: "monthfirst-slash", layout: "01/02/2006"},
	{name: "iso-nopad", layout: "2006-1-2"},
	{name: "iso-nopad-slash", layout: "2006/1/2"},
	{name: "iso-dayfirst-nopad", layout: "2006-2-1"},
	{name: "iso-dayfirst-nopad-slash", layout: "2006/2/1"},
	{name: "dayfirst-nopad", layout: "2-1-2006"},
	{name: "dayfirst-nopad-slash", layout: "2/1/2006"},
	{name: "monthfirst-nopad", layout: "1-2-2006"},
	{name: "monthfirst-nopad-slash", layout: "1/2/2006"},
}

// placeholders are the recognized non-date sentinels, matched case-insensitively
// after trimming. They pass through the rewriter unshifted and count as nulls
// in scan reports.
var placeholders = map[string]struct{}{
	"":        {},
	"unknown": {},
	"unk":     {},
	"unkown":  {},
	"n/a":     {},
	"none":    {},
	"null":    {},
}

// maxSerial is the Excel serial for 9999-12-31; larger numbers are not dates.
const maxSerial = 2958465

// IsPlaceholder reports whether value is a recognized non-date sentinel.
func IsPlaceholder(value string) bool {
	_, ok := placeholders[strings.ToLower(strings.TrimSpace(value))]
	return ok
}

// Parse parses value into a date, returning the parsed time and the name of
// the strategy that matched. Placeholders are not accepted here; callers must
// check IsPlaceholder first. A value matching no strategy is a PARSE error.
func Parse(value string) (time.Time, string, error) {
	v := strings.TrimSpace(value)

	for _, s := range strategies {
		if t, err := time.Parse(s.layout, v); err == nil {
			return t, s.name, nil
		}
	}

	// Excel serial number, as returned for native date cells when reading
	// raw cell values.
	if serial, err := strconv.ParseFloat(v, 64); err == nil && serial > 0 && serial <= maxSerial {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return t, StrategySerial, nil
		}
	}

	return time.Time{}, "", errors.Newf(errors.ErrTypeParse, "unparseable date value %q", value)
}

// Layout returns the text layout for a strategy name, or "" when the strategy
// has no text form (serial dates). Used to re-serialize a shifted date in the
// same format it arrived in.
func Layout(strategyName string) string {
	for _, s := range strategies {
		if s.name == strategyName {
			return s.layout
		}
	}
	return ""
}

// Format renders a shifted date in the layout of the strategy that parsed the
// original value. Strategies without a text layout fall back to ISO.
func Format(t time.Time, strategyName string) string {
	layout := Layout(strategyName)
	if layout == "" {
		layout = "2006-01-02"
	}
	return t.Format(layout)
}
