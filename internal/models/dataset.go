package models

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sort"
	"time"

	"github.com/quantlab/zoneanalyzer/internal/errs"
)

// RequiredColumns are the price columns every dataset must carry before
// any detection or feature extraction runs.
var RequiredColumns = []string{"open", "high", "low", "close", "volume"}

// Dataset is an ordered, timestamp-indexed table of numeric columns:
// open/high/low/close/volume plus zero or more indicator columns.
// Timestamps are strictly increasing with no duplicates.
type Dataset struct {
	Timestamps []time.Time          `json:"timestamps"`
	Columns    map[string][]float64 `json:"columns"`
}

// NewDataset creates a dataset with n zeroed rows and the required
// price columns preallocated.
func NewDataset(n int) *Dataset {
	d := &Dataset{
		Timestamps: make([]time.Time, n),
		Columns:    make(map[string][]float64, len(RequiredColumns)),
	}
	for _, name := range RequiredColumns {
		d.Columns[name] = make([]float64, n)
	}
	return d
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.Timestamps)
}

// HasColumn reports whether a named column exists.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.Columns[name]
	return ok
}

// Column returns the named column, or a DataError if it does not exist.
func (d *Dataset) Column(name string) ([]float64, error) {
	col, ok := d.Columns[name]
	if !ok {
		return nil, errs.NewDataErrorf("required column %q not found in dataset", name)
	}
	return col, nil
}

// SetColumn replaces or adds a column. The column must match the dataset
// length.
func (d *Dataset) SetColumn(name string, values []float64) error {
	if len(values) != d.Len() {
		return errs.NewDataErrorf("column %q has %d values, dataset has %d rows", name, len(values), d.Len())
	}
	d.Columns[name] = values
	return nil
}

// ColumnNames returns all column names in sorted order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, 0, len(d.Columns))
	for name := range d.Columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the dataset invariants: non-empty, required price
// columns present, all columns the same length, timestamps strictly
// increasing.
func (d *Dataset) Validate() error {
	if d.Len() == 0 {
		return errs.NewDataError("dataset is empty")
	}
	for _, name := range RequiredColumns {
		if !d.HasColumn(name) {
			return errs.NewDataErrorf("required column %q missing from dataset", name)
		}
	}
	for name, col := range d.Columns {
		if len(col) != d.Len() {
			return errs.NewDataErrorf("column %q has %d values, expected %d", name, len(col), d.Len())
		}
	}
	for i := 1; i < len(d.Timestamps); i++ {
		if !d.Timestamps[i].After(d.Timestamps[i-1]) {
			return errs.NewDataErrorf("timestamps not strictly increasing at index %d", i)
		}
	}
	return nil
}

// Slice returns a copy of rows [start, end] (inclusive bounds). Bounds
// outside the dataset are a DataError.
func (d *Dataset) Slice(start, end int) (*Dataset, error) {
	if start < 0 || end >= d.Len() || start > end {
		return nil, errs.NewDataErrorf("invalid slice bounds [%d, %d] for dataset of %d rows", start, end, d.Len())
	}
	out := &Dataset{
		Timestamps: make([]time.Time, end-start+1),
		Columns:    make(map[string][]float64, len(d.Columns)),
	}
	copy(out.Timestamps, d.Timestamps[start:end+1])
	for name, col := range d.Columns {
		vals := make([]float64, end-start+1)
		copy(vals, col[start:end+1])
		out.Columns[name] = vals
	}
	return out, nil
}

// Clone returns a deep copy of the dataset.
func (d *Dataset) Clone() *Dataset {
	if d.Len() == 0 {
		return &Dataset{Columns: make(map[string][]float64)}
	}
	out, _ := d.Slice(0, d.Len()-1)
	return out
}

// Fingerprint returns a hex SHA-256 digest of the full dataset content:
// every timestamp and every column value, columns visited in sorted name
// order. Identical content always produces an identical fingerprint.
func (d *Dataset) Fingerprint() string {
	h := sha256.New()
	var buf [8]byte
	for _, ts := range d.Timestamps {
		binary.BigEndian.PutUint64(buf[:], uint64(ts.UnixNano()))
		h.Write(buf[:])
	}
	for _, name := range d.ColumnNames() {
		h.Write([]byte(name))
		for _, v := range d.Columns[name] {
			binary.BigEndian.PutUint64(buf[:], math.Float64bits(v))
			h.Write(buf[:])
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
