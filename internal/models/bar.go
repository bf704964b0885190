package models

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantlab/zoneanalyzer/internal/errs"
)

// Bar is a single OHLCV record at the ingestion boundary. Prices are
// decimals at this layer and are converted to float64 once, when the
// analysis dataset is built.
type Bar struct {
	Timestamp time.Time       `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
}

// DatasetFromBars converts chronological bars into an analysis dataset.
// The bars must already be in timestamp order; Validate on the returned
// dataset enforces it.
func DatasetFromBars(bars []Bar) (*Dataset, error) {
	if len(bars) == 0 {
		return nil, errs.NewDataError("no bars to build dataset from")
	}
	ds := &Dataset{
		Timestamps: make([]time.Time, len(bars)),
		Columns: map[string][]float64{
			"open":   make([]float64, len(bars)),
			"high":   make([]float64, len(bars)),
			"low":    make([]float64, len(bars)),
			"close":  make([]float64, len(bars)),
			"volume": make([]float64, len(bars)),
		},
	}
	for i, bar := range bars {
		ds.Timestamps[i] = bar.Timestamp
		ds.Columns["open"][i] = bar.Open.InexactFloat64()
		ds.Columns["high"][i] = bar.High.InexactFloat64()
		ds.Columns["low"][i] = bar.Low.InexactFloat64()
		ds.Columns["close"][i] = bar.Close.InexactFloat64()
		ds.Columns["volume"][i] = bar.Volume.InexactFloat64()
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

// LoadCSV reads an OHLCV dataset from a CSV file with the header
// timestamp,open,high,low,close,volume. Extra columns are loaded as
// indicator columns. Timestamps are RFC 3339 or unix seconds.
func LoadCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.NewDataErrorf("open dataset file %s: %v", path, err)
	}
	defer f.Close()
	return readCSV(f)
}

func readCSV(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, errs.NewDataErrorf("read csv header: %v", err)
	}
	if len(header) < 2 || header[0] != "timestamp" {
		return nil, errs.NewDataError("csv header must start with a timestamp column")
	}

	ds := NewDataset(0)
	for _, name := range header[1:] {
		ds.Columns[name] = nil
	}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errs.NewDataErrorf("read csv line %d: %v", line, err)
		}
		if len(record) != len(header) {
			return nil, errs.NewDataErrorf("csv line %d has %d fields, expected %d", line, len(record), len(header))
		}
		ts, err := parseTimestamp(record[0])
		if err != nil {
			return nil, errs.NewDataErrorf("csv line %d: %v", line, err)
		}
		ds.Timestamps = append(ds.Timestamps, ts)
		for i, name := range header[1:] {
			val, err := decimal.NewFromString(record[i+1])
			if err != nil {
				return nil, errs.NewDataErrorf("csv line %d column %q: %v", line, name, err)
			}
			ds.Columns[name] = append(ds.Columns[name], val.InexactFloat64())
		}
	}

	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errs.NewDataErrorf("unparseable timestamp %q", s)
}
