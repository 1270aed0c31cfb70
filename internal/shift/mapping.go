// Package shift generates and persists per-identifier day offsets. Each
// identifier gets exactly one integer offset drawn uniformly from a closed
// range; generation is reproducible for a fixed seed and identifier order.
// The mapping round-trips through a two-column linking table CSV so that a
// later run can re-apply the same shifts.
package shift

import (
	"encoding/csv"
	"io"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Health-Informatics-UoN/nuh-helper/internal/errors"
	"github.com/Health-Informatics-UoN/nuh-helper/internal/exporter"
)

// Default shift range in days.
const (
	DefaultMinShiftDays = -15
	DefaultMaxShiftDays = 15
)

// Linking table column names.
const (
	colPatientID = "patient_id"
	colShiftDays = "shift_days"
)

// Options configures shift generation.
type Options struct {
	MinShiftDays int
	MaxShiftDays int
	// Seed makes generation reproducible. Nil seeds from the clock.
	Seed *int64
}

// withDefaults returns the options with the default range applied when the
// range is left entirely unset.
func (o Options) withDefaults() Options {
	if o.MinShiftDays == 0 && o.MaxShiftDays == 0 {
		o.MinShiftDays = DefaultMinShiftDays
		o.MaxShiftDays = DefaultMaxShiftDays
	}
	return o
}

// Mapping assigns each identifier exactly one day offset. Insertion order is
// preserved so saved linking tables list identifiers in first-seen order.
type Mapping struct {
	ids     []string
	offsets map[string]int
}

// NewMapping creates an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{offsets: make(map[string]int)}
}

// Add records an offset for an identifier. The first offset for an identifier
// wins; later adds for the same identifier are ignored.
func (m *Mapping) Add(id string, offset int) {
	if _, exists := m.offsets[id]; exists {
		return
	}
	m.ids = append(m.ids, id)
	m.offsets[id] = offset
}

// Offset returns the day offset for an identifier.
func (m *Mapping) Offset(id string) (int, bool) {
	offset, ok := m.offsets[id]
	return offset, ok
}

// Len returns the number of identifiers in the mapping.
func (m *Mapping) Len() int {
	return len(m.ids)
}

// Identifiers returns the identifiers in insertion order.
func (m *Mapping) Identifiers() []string {
	out := make([]string, len(m.ids))
	copy(out, m.ids)
	return out
}

// NormalizeID canonicalizes an identifier cell value. Returns "" when the
// cell holds no identifier.
func NormalizeID(value string) string {
	return strings.TrimSpace(value)
}

// Generate produces a mapping assigning each identifier a uniform random
// offset within the configured range. Identical seed and identifier order
// yield an identical mapping. Blank and duplicate identifiers are skipped.
func Generate(ids []string, opts Options) (*Mapping, error) {
	opts = opts.withDefaults()
	if opts.MinShiftDays > opts.MaxShiftDays {
		return nil, errors.Newf(errors.ErrTypeConfig,
			"min shift days %d exceeds max shift days %d", opts.MinShiftDays, opts.MaxShiftDays)
	}

	var seed int64
	if opts.Seed != nil {
		seed = *opts.Seed
	} else {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	m := NewMapping()
	span := opts.MaxShiftDays - opts.MinShiftDays + 1
	for _, id := range ids {
		id = NormalizeID(id)
		if id == "" {
			continue
		}
		if _, exists := m.offsets[id]; exists {
			continue
		}
		m.Add(id, opts.MinShiftDays+rng.Intn(span))
	}
	return m, nil
}

// Load reads a mapping from a linking table CSV. The file must have a header
// row containing the patient_id and shift_days columns. Duplicate identifiers
// keep their first offset.
func Load(path string) (*Mapping, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIOError("cannot open linking table", err).WithFile(path)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, errors.NewIOError("cannot read linking table header", err).WithFile(path)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	idIdx, daysIdx := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case colPatientID:
			idIdx = i
		case colShiftDays:
			daysIdx = i
		}
	}
	if idIdx < 0 || daysIdx < 0 {
		return nil, errors.Newf(errors.ErrTypeConfig,
			"linking table must contain %q and %q columns", colPatientID, colShiftDays).
			WithFile(path)
	}

	m := NewMapping()
	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewParseError("malformed linking table row", err).
				WithFile(path).WithContext("row", row+1)
		}
		row++
		if idIdx >= len(record) || daysIdx >= len(record) {
			return nil, errors.Newf(errors.ErrTypeParse,
				"linking table row has %d fields, need at least %d", len(record), daysIdx+1).
				WithFile(path).WithContext("row", row)
		}
		id := NormalizeID(record[idIdx])
		if id == "" {
			continue
		}
		offset, err := strconv.Atoi(strings.TrimSpace(record[daysIdx]))
		if err != nil {
			return nil, errors.Newf(errors.ErrTypeParse,
				"invalid shift offset %q for identifier %q", record[daysIdx], id).
				WithFile(path).WithContext("row", row)
		}
		m.Add(id, offset)
	}
	return m, nil
}

// Save writes the complete mapping, including any entries merged in after a
// load, so a later Load is self-sufficient.
func (m *Mapping) Save(path string) error {
	records := make([][]string, 0, len(m.ids))
	for _, id := range m.ids {
		records = append(records, []string{id, strconv.Itoa(m.offsets[id])})
	}
	if err := exporter.WriteSimpleCSV(path, []string{colPatientID, colShiftDays}, records); err != nil {
		return errors.NewIOError("cannot write linking table", err).WithFile(path)
	}
	return nil
}

// Resolve produces the mapping for a run. When linkingTablePath names an
// existing file it is loaded and its entries take precedence; identifiers not
// present in the load get freshly generated offsets appended to the mapping.
// Loaded entries for identifiers outside ids are dropped. Without a usable
// linking table the whole mapping is generated.
func Resolve(ids []string, linkingTablePath string, opts Options) (*Mapping, error) {
	normalized := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = NormalizeID(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		normalized = append(normalized, id)
	}

	if linkingTablePath == "" {
		return Generate(normalized, opts)
	}
	if _, err := os.Stat(linkingTablePath); err != nil {
		return Generate(normalized, opts)
	}

	loaded, err := Load(linkingTablePath)
	if err != nil {
		return nil, err
	}

	m := NewMapping()
	var missing []string
	for _, id := range normalized {
		if offset, ok := loaded.Offset(id); ok {
			m.Add(id, offset)
		} else {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		fresh, err := Generate(missing, opts)
		if err != nil {
			return nil, err
		}
		for _, id := range fresh.Identifiers() {
			offset, _ := fresh.Offset(id)
			m.Add(id, offset)
		}
	}
	return m, nil
}
