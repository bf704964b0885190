package detection

import (
	"sort"

	"github.com/quantlab/zoneanalyzer/internal/errs"
	"github.com/quantlab/zoneanalyzer/internal/indicators"
	"github.com/quantlab/zoneanalyzer/internal/models"
)

func init() {
	Register(&Preloaded{})
}

// Preloaded adopts zone boundaries produced outside this system. The
// zones rule carries a list of {start_index, end_index, type} markers;
// they are validated against the dataset bounds, ordered, and turned
// into regular zones without recomputing any indicator.
type Preloaded struct{}

// Name returns the registry name of the strategy.
func (p *Preloaded) Name() string { return "preloaded" }

// RequiredRules lists the rule keys Detect validates before running.
func (p *Preloaded) RequiredRules() []string { return []string{"zones"} }

// Detect converts the supplied markers into zones.
func (p *Preloaded) Detect(ds *models.Dataset, cfg Config) ([]*models.Zone, error) {
	if err := validateRules(p, cfg); err != nil {
		return nil, err
	}

	markers, ok := cfg.Rules["zones"].([]interface{})
	if !ok {
		return nil, errs.NewConfigurationError("strategy \"preloaded\": rule \"zones\" must be a list of {start_index, end_index, type} markers")
	}

	allowed := map[string]bool{}
	for _, t := range cfg.AllowedZoneTypes {
		allowed[t] = true
	}

	column := indicators.StringParam(cfg.Rules, "indicator_column", "")
	ctx := models.DetectionContext{
		Strategy:   p.Name(),
		RuleParams: copyRules(cfg.Rules),
	}
	if column != "" {
		ctx.IndicatorColumns = []string{column}
	}

	type marker struct {
		start, end int
		zoneType   string
	}
	parsed := make([]marker, 0, len(markers))
	for _, raw := range markers {
		m, ok := raw.(map[string]interface{})
		if !ok {
			return nil, errs.NewConfigurationError("strategy \"preloaded\": each zone marker must be an object")
		}
		start := indicators.IntParam(m, "start_index", -1)
		end := indicators.IntParam(m, "end_index", -1)
		zoneType := indicators.StringParam(m, "type", "")
		if start < 0 || end >= ds.Len() || start > end {
			return nil, errs.NewConfigurationErrorf("strategy \"preloaded\": marker [%d, %d] out of bounds for dataset of %d rows", start, end, ds.Len())
		}
		if zoneType == "" {
			return nil, errs.NewConfigurationErrorf("strategy \"preloaded\": marker [%d, %d] has no type", start, end)
		}
		parsed = append(parsed, marker{start: start, end: end, zoneType: zoneType})
	}

	sort.Slice(parsed, func(i, j int) bool { return parsed[i].start < parsed[j].start })
	for i := 1; i < len(parsed); i++ {
		if parsed[i].start <= parsed[i-1].end {
			return nil, errs.NewConfigurationErrorf("strategy \"preloaded\": markers [%d, %d] and [%d, %d] overlap",
				parsed[i-1].start, parsed[i-1].end, parsed[i].start, parsed[i].end)
		}
	}

	var zones []*models.Zone
	for _, m := range parsed {
		duration := m.end - m.start + 1
		if duration < cfg.MinDuration {
			continue
		}
		if len(allowed) > 0 && !allowed[m.zoneType] {
			continue
		}
		data, err := ds.Slice(m.start, m.end)
		if err != nil {
			return nil, err
		}
		zones = append(zones, &models.Zone{
			ID:         len(zones),
			Type:       m.zoneType,
			StartIndex: m.start,
			EndIndex:   m.end,
			StartTime:  ds.Timestamps[m.start],
			EndTime:    ds.Timestamps[m.end],
			Duration:   duration,
			Data:       data,
			Detection:  ctx,
		})
	}
	return zones, nil
}
