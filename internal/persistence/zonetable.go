package persistence

import (
	"encoding/csv"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/quantlab/zoneanalyzer/internal/errs"
	"github.com/quantlab/zoneanalyzer/internal/models"
)

var zoneTableHeader = []string{
	"zone_id", "type", "start_index", "end_index",
	"start_time", "end_time", "duration",
	"num_swings", "avg_rally_amplitude", "avg_drop_amplitude",
	"rally_speed", "drop_speed",
	"skewness", "kurtosis", "smoothness",
	"divergence_type", "divergence_count", "divergence_strength", "divergence_direction",
	"return_std", "zone_return", "max_drawdown", "volatility_regime",
	"avg_volume", "volume_trend", "volume_indicator_corr", "volume_zscore",
}

// SaveZoneTable writes one CSV row per zone with its identity and the
// commonly charted features. Missing feature families leave their cells
// empty.
func SaveZoneTable(path string, zones []*models.Zone) error {
	f, err := os.Create(path)
	if err != nil {
		return errs.NewDataErrorf("creating zone table %s: %v", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(zoneTableHeader); err != nil {
		f.Close()
		return errs.NewDataErrorf("writing zone table %s: %v", path, err)
	}
	for _, zone := range zones {
		if err := w.Write(zoneRow(zone)); err != nil {
			f.Close()
			return errs.NewDataErrorf("writing zone table %s: %v", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return errs.NewDataErrorf("flushing zone table %s: %v", path, err)
	}
	if err := f.Close(); err != nil {
		return errs.NewDataErrorf("closing zone table %s: %v", path, err)
	}
	return nil
}

func zoneRow(zone *models.Zone) []string {
	row := []string{
		strconv.Itoa(zone.ID),
		zone.Type,
		strconv.Itoa(zone.StartIndex),
		strconv.Itoa(zone.EndIndex),
		zone.StartTime.Format(time.RFC3339),
		zone.EndTime.Format(time.RFC3339),
		strconv.Itoa(zone.Duration),
	}
	if s := zone.Features.Swing; s != nil {
		row = append(row,
			strconv.Itoa(s.NumSwings),
			formatFloat(s.AvgRallyAmplitude),
			formatFloat(s.AvgDropAmplitude),
			formatFloat(s.RallySpeed),
			formatFloat(s.DropSpeed),
		)
	} else {
		row = append(row, "", "", "", "", "")
	}
	if s := zone.Features.Shape; s != nil {
		row = append(row, formatFloat(s.Skewness), formatFloat(s.Kurtosis), formatFloat(s.Smoothness))
	} else {
		row = append(row, "", "", "")
	}
	if d := zone.Features.Divergence; d != nil {
		row = append(row, d.Type, strconv.Itoa(d.Count), formatFloat(d.Strength), d.Direction)
	} else {
		row = append(row, "", "", "", "")
	}
	if v := zone.Features.Volatility; v != nil {
		row = append(row, formatFloat(v.ReturnStd), formatFloat(v.ZoneReturn), formatFloat(v.MaxDrawdown), v.Regime)
	} else {
		row = append(row, "", "", "", "")
	}
	if v := zone.Features.Volume; v != nil {
		row = append(row, formatFloat(v.AvgVolume), v.VolumeTrend, formatFloat(v.VolumeIndicatorCorr), formatFloat(v.VolumeZScore))
	} else {
		row = append(row, "", "", "", "")
	}
	return row
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// LoadZoneTable reads a table written by SaveZoneTable back into zones.
// Only the columns the table carries are reconstructed; families whose
// cells are empty stay nil, and per-zone datasets are not retained.
func LoadZoneTable(path string) ([]*models.Zone, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.NewDataErrorf("opening zone table %s: %v", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, errs.NewDataErrorf("reading zone table %s: %v", path, err)
	}
	if len(records) == 0 || !slices.Equal(records[0], zoneTableHeader) {
		return nil, errs.NewDataErrorf("zone table %s has an unrecognized header", path)
	}

	zones := make([]*models.Zone, 0, len(records)-1)
	for i, row := range records[1:] {
		zone, err := parseZoneRow(row)
		if err != nil {
			return nil, errs.NewDataErrorf("zone table %s row %d: %v", path, i+1, err)
		}
		zones = append(zones, zone)
	}
	return zones, nil
}

// rowParser reads typed cells out of one record, remembering the first
// conversion failure so callers check the error once.
type rowParser struct {
	row []string
	err error
}

func (p *rowParser) intAt(i int) int {
	if p.err != nil {
		return 0
	}
	v, err := strconv.Atoi(p.row[i])
	if err != nil {
		p.err = err
	}
	return v
}

func (p *rowParser) floatAt(i int) float64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(p.row[i], 64)
	if err != nil {
		p.err = err
	}
	return v
}

func (p *rowParser) timeAt(i int) time.Time {
	if p.err != nil {
		return time.Time{}
	}
	v, err := time.Parse(time.RFC3339, p.row[i])
	if err != nil {
		p.err = err
	}
	return v
}

func parseZoneRow(row []string) (*models.Zone, error) {
	if len(row) != len(zoneTableHeader) {
		return nil, errs.NewDataErrorf("expected %d cells, got %d", len(zoneTableHeader), len(row))
	}
	p := &rowParser{row: row}
	zone := &models.Zone{
		ID:         p.intAt(0),
		Type:       row[1],
		StartIndex: p.intAt(2),
		EndIndex:   p.intAt(3),
		StartTime:  p.timeAt(4),
		EndTime:    p.timeAt(5),
		Duration:   p.intAt(6),
	}
	// Each family's leading numeric cell marks whether it was saved.
	if row[7] != "" {
		zone.Features.Swing = &models.SwingMetrics{
			NumSwings:         p.intAt(7),
			AvgRallyAmplitude: p.floatAt(8),
			AvgDropAmplitude:  p.floatAt(9),
			RallySpeed:        p.floatAt(10),
			DropSpeed:         p.floatAt(11),
		}
	}
	if row[12] != "" {
		zone.Features.Shape = &models.ShapeMetrics{
			Skewness:   p.floatAt(12),
			Kurtosis:   p.floatAt(13),
			Smoothness: p.floatAt(14),
		}
	}
	if row[16] != "" {
		zone.Features.Divergence = &models.DivergenceMetrics{
			Type:      row[15],
			Count:     p.intAt(16),
			Strength:  p.floatAt(17),
			Direction: row[18],
		}
	}
	if row[19] != "" {
		zone.Features.Volatility = &models.VolatilityMetrics{
			ReturnStd:   p.floatAt(19),
			ZoneReturn:  p.floatAt(20),
			MaxDrawdown: p.floatAt(21),
			Regime:      row[22],
		}
	}
	if row[23] != "" {
		zone.Features.Volume = &models.VolumeMetrics{
			AvgVolume:           p.floatAt(23),
			VolumeTrend:         row[24],
			VolumeIndicatorCorr: p.floatAt(25),
			VolumeZScore:        p.floatAt(26),
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	return zone, nil
}
