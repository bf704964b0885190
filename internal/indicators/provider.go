// Package indicators provides indicator columns to the zone pipeline
// through a factory interface. Sources are registered by name; the
// pipeline never computes an indicator itself.
package indicators

import (
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/quantlab/zoneanalyzer/internal/errs"
	"github.com/quantlab/zoneanalyzer/internal/models"
)

// Spec identifies how to compute or locate an indicator column.
// Immutable once constructed.
type Spec struct {
	Source string                 `json:"source" mapstructure:"source"`
	Name   string                 `json:"name" mapstructure:"name"`
	Params map[string]interface{} `json:"parameters,omitempty" mapstructure:"parameters"`
}

// Source computes one family of indicators. Implementations register
// themselves with Register; the provider dispatches by spec.Source.
type Source interface {
	Name() string
	Supports(indicator string) bool
	Compute(ds *models.Dataset, spec Spec) (map[string][]float64, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Source)
)

// Register adds a source to the registry. Later registrations with the
// same name replace earlier ones.
func Register(src Source) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[src.Name()] = src
}

// Sources returns the registered source names in sorted order.
func Sources() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Provider merges indicator columns into datasets. It is the only layer
// that knows how indicator values come to exist.
type Provider struct {
	logger *logrus.Logger
}

// NewProvider creates an indicator provider.
func NewProvider(logger *logrus.Logger) *Provider {
	return &Provider{logger: logger}
}

// Supports reports whether the given (source, name) pair can be served.
func (p *Provider) Supports(source, name string) bool {
	registryMu.RLock()
	src, ok := registry[source]
	registryMu.RUnlock()
	return ok && src.Supports(name)
}

// Provide returns a copy of the dataset with the indicator's output
// columns merged in. Calling twice with the same spec yields identical
// columns. An unknown (source, name) pair is a configuration error; the
// pipeline never falls back to a different indicator.
func (p *Provider) Provide(ds *models.Dataset, spec Spec) (*models.Dataset, error) {
	registryMu.RLock()
	src, ok := registry[spec.Source]
	registryMu.RUnlock()
	if !ok {
		return nil, errs.NewConfigurationErrorf("unknown indicator source %q (known sources: %v)", spec.Source, Sources())
	}
	if !src.Supports(spec.Name) {
		return nil, errs.NewConfigurationErrorf("indicator source %q does not support indicator %q", spec.Source, spec.Name)
	}

	columns, err := src.Compute(ds, spec)
	if err != nil {
		return nil, err
	}

	out := ds.Clone()
	for name, values := range columns {
		if err := out.SetColumn(name, values); err != nil {
			return nil, err
		}
	}

	p.logger.WithFields(logrus.Fields{
		"source":    spec.Source,
		"indicator": spec.Name,
		"columns":   len(columns),
	}).Debug("Merged indicator columns")

	return out, nil
}

// IntParam reads an integer parameter from a spec, falling back to def.
// JSON round-trips deliver numbers as float64, viper as int.
func IntParam(params map[string]interface{}, key string, def int) int {
	if params == nil {
		return def
	}
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

// FloatParam reads a float parameter from a spec, falling back to def.
func FloatParam(params map[string]interface{}, key string, def float64) float64 {
	if params == nil {
		return def
	}
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return def
	}
}

// StringParam reads a string parameter from a spec, falling back to def.
func StringParam(params map[string]interface{}, key, def string) string {
	if params == nil {
		return def
	}
	if v, ok := params[key].(string); ok {
		return v
	}
	return def
}

// columnError converts a missing-column failure into the configuration
// error the provider contract requires.
func columnError(source, name string, err error) error {
	return errs.NewConfigurationErrorf("indicator %s/%s: %v", source, name, err)
}
