// Package viz turns analysis results into renderer-agnostic view
// requests. It decides what belongs on each view; actually drawing is
// left to Renderer implementations supplied by the embedding
// application.
package viz

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/quantlab/zoneanalyzer/internal/errs"
	"github.com/quantlab/zoneanalyzer/internal/models"
)

// Kind names the available view layouts.
type Kind string

const (
	KindOverview   Kind = "overview"
	KindZoneDetail Kind = "zone_detail"
	KindComparison Kind = "comparison"
	KindStatistics Kind = "statistics"
)

// Series is one plottable line.
type Series struct {
	Name string      `json:"name"`
	X    []time.Time `json:"x"`
	Y    []float64   `json:"y"`
}

// Span is a shaded horizontal region marking one zone.
type Span struct {
	Label string    `json:"label"`
	Type  string    `json:"type"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Table is a labelled grid of pre-formatted cells.
type Table struct {
	Title   string     `json:"title"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// ViewRequest is one fully specified view, ready for any Renderer.
type ViewRequest struct {
	Kind   Kind     `json:"kind"`
	Title  string   `json:"title"`
	Series []Series `json:"series,omitempty"`
	Spans  []Span   `json:"spans,omitempty"`
	Tables []Table  `json:"tables,omitempty"`
}

// Renderer materializes a view request on some output medium.
type Renderer interface {
	Render(ctx context.Context, req *ViewRequest) error
}

// BuildOverview lays the close price over every detected zone span.
func BuildOverview(ds *models.Dataset, result *models.AnalysisResult) (*ViewRequest, error) {
	closes, err := ds.Column("close")
	if err != nil {
		return nil, err
	}
	req := &ViewRequest{
		Kind:   KindOverview,
		Title:  fmt.Sprintf("Zone overview (%d zones)", len(result.Zones)),
		Series: []Series{{Name: "close", X: ds.Timestamps, Y: closes}},
	}
	for _, zone := range result.Zones {
		req.Spans = append(req.Spans, Span{
			Label: fmt.Sprintf("%s#%d", zone.Type, zone.ID),
			Type:  zone.Type,
			Start: zone.StartTime,
			End:   zone.EndTime,
		})
	}
	return req, nil
}

// BuildZoneDetail plots one zone's price and detection indicator with a
// feature table alongside.
func BuildZoneDetail(zone *models.Zone) (*ViewRequest, error) {
	if zone.Data == nil {
		return nil, errs.NewDataErrorf("zone %d carries no data slice", zone.ID)
	}
	closes, err := zone.Data.Column("close")
	if err != nil {
		return nil, err
	}
	req := &ViewRequest{
		Kind:   KindZoneDetail,
		Title:  fmt.Sprintf("Zone %s#%d [%d..%d]", zone.Type, zone.ID, zone.StartIndex, zone.EndIndex),
		Series: []Series{{Name: "close", X: zone.Data.Timestamps, Y: closes}},
	}
	if col := zone.Detection.IndicatorColumn(); col != "" && zone.Data.HasColumn(col) {
		values, err := zone.Data.Column(col)
		if err != nil {
			return nil, err
		}
		req.Series = append(req.Series, Series{Name: col, X: zone.Data.Timestamps, Y: values})
	}
	req.Tables = append(req.Tables, featureTable(zone))
	return req, nil
}

// BuildComparison compares one feature across zone types as box-plot
// style summary rows.
func BuildComparison(result *models.AnalysisResult, feature string) (*ViewRequest, error) {
	if result.Statistics == nil {
		return nil, errs.NewDataError("result carries no statistics to compare")
	}
	table := Table{
		Title:   fmt.Sprintf("%s by zone type", feature),
		Columns: []string{"type", "count", "mean", "median", "std", "min", "max"},
	}
	types := make([]string, 0, len(result.Statistics.PerType))
	for zoneType := range result.Statistics.PerType {
		types = append(types, zoneType)
	}
	sort.Strings(types)
	for _, zoneType := range types {
		stats := result.Statistics.PerType[zoneType]
		s, ok := stats.Features[feature]
		if !ok {
			continue
		}
		table.Rows = append(table.Rows, []string{
			zoneType,
			fmt.Sprintf("%d", stats.Count),
			fmt.Sprintf("%.4f", s.Mean),
			fmt.Sprintf("%.4f", s.Median),
			fmt.Sprintf("%.4f", s.Std),
			fmt.Sprintf("%.4f", s.Min),
			fmt.Sprintf("%.4f", s.Max),
		})
	}
	if len(table.Rows) == 0 {
		return nil, errs.NewDataErrorf("feature %q not present in per-type statistics", feature)
	}
	return &ViewRequest{
		Kind:   KindComparison,
		Title:  table.Title,
		Tables: []Table{table},
	}, nil
}

// BuildStatistics summarizes the run: hypothesis tests and, when
// present, clustering and regression artifacts.
func BuildStatistics(result *models.AnalysisResult) *ViewRequest {
	req := &ViewRequest{Kind: KindStatistics, Title: "Analysis summary"}

	if len(result.Hypotheses) > 0 {
		table := Table{
			Title:   "Hypothesis tests",
			Columns: []string{"name", "method", "statistic", "p_value", "significant"},
		}
		for _, h := range result.Hypotheses {
			table.Rows = append(table.Rows, []string{
				h.Name, h.Method,
				fmt.Sprintf("%.4f", h.Statistic),
				fmt.Sprintf("%.4f", h.PValue),
				fmt.Sprintf("%t", h.Significant),
			})
		}
		req.Tables = append(req.Tables, table)
	}

	if c := result.Clustering; c != nil {
		table := Table{Title: "Clusters", Columns: []string{"cluster", "size"}}
		for i, size := range c.Sizes {
			table.Rows = append(table.Rows, []string{fmt.Sprintf("%d", i), fmt.Sprintf("%d", size)})
		}
		req.Tables = append(req.Tables, table)
	}

	if r := result.Regression; r != nil {
		table := Table{
			Title:   fmt.Sprintf("Regression on %s (R²=%.3f, n=%d)", r.Target, r.RSquared, r.SampleSize),
			Columns: []string{"feature", "coefficient"},
		}
		table.Rows = append(table.Rows, []string{"(intercept)", fmt.Sprintf("%.6f", r.Intercept)})
		for i, name := range r.FeatureNames {
			table.Rows = append(table.Rows, []string{name, fmt.Sprintf("%.6f", r.Coefficients[i])})
		}
		req.Tables = append(req.Tables, table)
	}

	return req
}

func featureTable(zone *models.Zone) Table {
	table := Table{Title: "Features", Columns: []string{"feature", "value"}}
	add := func(name, value string) {
		table.Rows = append(table.Rows, []string{name, value})
	}
	add("duration", fmt.Sprintf("%d", zone.Duration))
	if s := zone.Features.Swing; s != nil {
		add("num_swings", fmt.Sprintf("%d", s.NumSwings))
		add("avg_rally_amplitude", fmt.Sprintf("%.4f", s.AvgRallyAmplitude))
		add("avg_drop_amplitude", fmt.Sprintf("%.4f", s.AvgDropAmplitude))
	}
	if s := zone.Features.Shape; s != nil {
		add("smoothness", fmt.Sprintf("%.4f", s.Smoothness))
	}
	if d := zone.Features.Divergence; d != nil {
		add("divergence", d.Type+"/"+d.Direction)
	}
	if v := zone.Features.Volatility; v != nil {
		add("volatility_regime", v.Regime)
		add("zone_return", fmt.Sprintf("%.4f", v.ZoneReturn))
	}
	if v := zone.Features.Volume; v != nil {
		add("volume_trend", v.VolumeTrend)
	}
	return table
}
