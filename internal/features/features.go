// Package features computes fixed-schema structural metrics for single
// zones. Every family is pluggable through a name-keyed registry, and
// every calculator degrades to a canonical zero record on degenerate
// input instead of failing.
package features

import (
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/quantlab/zoneanalyzer/internal/errs"
	"github.com/quantlab/zoneanalyzer/internal/models"
)

// Config selects which feature families run and how swings are found.
type Config struct {
	Swing      SwingConfig `json:"swing" mapstructure:"swing"`
	Shape      bool        `json:"shape" mapstructure:"shape"`
	Divergence bool        `json:"divergence" mapstructure:"divergence"`
	Volatility bool        `json:"volatility" mapstructure:"volatility"`
	Volume     bool        `json:"volume" mapstructure:"volume"`
}

// DefaultConfig enables every family with the zigzag swing algorithm in
// per-zone scope.
func DefaultConfig() Config {
	return Config{
		Swing:      DefaultSwingConfig(),
		Shape:      true,
		Divergence: true,
		Volatility: true,
		Volume:     true,
	}
}

// registry is a small name-keyed registry shared by the families.
type registry[T any] struct {
	mu sync.RWMutex
	m  map[string]T
}

func newRegistry[T any]() *registry[T] {
	return &registry[T]{m: make(map[string]T)}
}

func (r *registry[T]) register(name string, v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[name] = v
}

func (r *registry[T]) lookup(family, name string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.m[name]
	if !ok {
		var zero T
		return zero, errs.NewConfigurationErrorf("unknown %s algorithm %q (known: %v)", family, name, r.names())
	}
	return v, nil
}

func (r *registry[T]) names() []string {
	names := make([]string, 0, len(r.m))
	for name := range r.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// indicatorSeries resolves the series a feature family should look at:
// the detection indicator column when the zone slice carries it,
// otherwise the close price.
func indicatorSeries(zone *models.Zone) []float64 {
	if col := zone.Detection.IndicatorColumn(); col != "" && zone.Data.HasColumn(col) {
		series, _ := zone.Data.Column(col)
		return series
	}
	series, _ := zone.Data.Column("close")
	return series
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}

func minMax(values []float64) (min, max float64) {
	if len(values) == 0 {
		return 0, 0
	}
	min, max = values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

func safeRatio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
