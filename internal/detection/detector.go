// Package detection segments an indicator-bearing dataset into zones.
// Strategies are registered by name; adding a new segmentation rule means
// registering a new Detector, never editing the callers.
package detection

import (
	"sort"
	"sync"

	"github.com/quantlab/zoneanalyzer/internal/errs"
	"github.com/quantlab/zoneanalyzer/internal/models"
)

// Config is the detection configuration surface. Rules content is
// strategy-specific and validated against the strategy's required-keys
// list before any computation starts.
type Config struct {
	Strategy         string                 `json:"strategy_name" mapstructure:"strategy_name"`
	Rules            map[string]interface{} `json:"rules" mapstructure:"rules"`
	MinDuration      int                    `json:"min_duration" mapstructure:"min_duration"`
	AllowedZoneTypes []string               `json:"allowed_zone_types" mapstructure:"allowed_zone_types"`
}

// Detector is the pluggable rule that segments a dataset into zones.
// Detect must return zones ordered by start index, mutually
// non-overlapping, each with duration >= Config.MinDuration.
type Detector interface {
	Name() string
	RequiredRules() []string
	Detect(ds *models.Dataset, cfg Config) ([]*models.Zone, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Detector)
)

// Register adds a detector to the registry.
func Register(d Detector) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[d.Name()] = d
}

// Strategies returns the registered strategy names in sorted order.
func Strategies() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New returns the detector registered under name, or a configuration
// error listing the known strategies.
func New(name string) (Detector, error) {
	registryMu.RLock()
	d, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, errs.NewConfigurationErrorf("unknown detection strategy %q (known strategies: %v)", name, Strategies())
	}
	return d, nil
}

// validateRules fails fast with a configuration error naming the first
// missing required rule key.
func validateRules(d Detector, cfg Config) error {
	for _, key := range d.RequiredRules() {
		if _, ok := cfg.Rules[key]; !ok {
			return errs.NewConfigurationErrorf("strategy %q: missing required rule key %q", d.Name(), key)
		}
	}
	return nil
}

// zonesFromLabels converts a per-row label series into zones. An empty
// label is a gap. Maximal runs of one label become candidate zones; runs
// shorter than MinDuration are dropped, never merged into neighbors.
func zonesFromLabels(ds *models.Dataset, labels []string, cfg Config, ctx models.DetectionContext) ([]*models.Zone, error) {
	// Detach provenance from the caller's live rules map.
	ctx.RuleParams = copyRules(ctx.RuleParams)

	allowed := map[string]bool{}
	for _, t := range cfg.AllowedZoneTypes {
		allowed[t] = true
	}

	var zones []*models.Zone
	i := 0
	for i < len(labels) {
		if labels[i] == "" {
			i++
			continue
		}
		start := i
		label := labels[i]
		for i < len(labels) && labels[i] == label {
			i++
		}
		end := i - 1

		duration := end - start + 1
		if duration < cfg.MinDuration {
			continue
		}
		if len(allowed) > 0 && !allowed[label] {
			continue
		}

		data, err := ds.Slice(start, end)
		if err != nil {
			return nil, err
		}
		zones = append(zones, &models.Zone{
			ID:         len(zones),
			Type:       label,
			StartIndex: start,
			EndIndex:   end,
			StartTime:  ds.Timestamps[start],
			EndTime:    ds.Timestamps[end],
			Duration:   duration,
			Data:       data,
			Detection:  ctx,
		})
	}
	return zones, nil
}

func copyRules(rules map[string]interface{}) map[string]interface{} {
	if rules == nil {
		return nil
	}
	out := make(map[string]interface{}, len(rules))
	for k, v := range rules {
		out[k] = v
	}
	return out
}
