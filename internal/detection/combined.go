package detection

import (
	"math"

	"github.com/quantlab/zoneanalyzer/internal/errs"
	"github.com/quantlab/zoneanalyzer/internal/indicators"
	"github.com/quantlab/zoneanalyzer/internal/models"
)

func init() {
	Register(&CombinedRules{})
}

// CombinedRules evaluates N row-wise boolean conditions joined with AND
// or OR. A maximal run of one boolean outcome becomes a zone; the zone
// type for each outcome comes from the type_map rule, e.g.
// {"true": "active", "false": "quiet"}. Rows touching NaN break runs.
type CombinedRules struct{}

// Name returns the registry name of the strategy.
func (c *CombinedRules) Name() string { return "combined_rules" }

// RequiredRules lists the rule keys Detect validates before running.
func (c *CombinedRules) RequiredRules() []string {
	return []string{"conditions", "type_map"}
}

type condition struct {
	column string
	op     string
	value  float64
}

// Detect segments the dataset by the combined boolean outcome.
func (c *CombinedRules) Detect(ds *models.Dataset, cfg Config) ([]*models.Zone, error) {
	if err := validateRules(c, cfg); err != nil {
		return nil, err
	}

	conditions, columns, err := parseConditions(cfg.Rules["conditions"])
	if err != nil {
		return nil, err
	}
	trueType, falseType, err := parseTypeMap(cfg.Rules["type_map"])
	if err != nil {
		return nil, err
	}
	logic := indicators.StringParam(cfg.Rules, "logic", "and")
	if logic != "and" && logic != "or" {
		return nil, errs.NewConfigurationErrorf("strategy %q: logic must be \"and\" or \"or\", got %q", c.Name(), logic)
	}

	series := make([][]float64, len(conditions))
	for i, cond := range conditions {
		col, err := ds.Column(cond.column)
		if err != nil {
			return nil, err
		}
		series[i] = col
	}

	labels := make([]string, ds.Len())
	for row := 0; row < ds.Len(); row++ {
		outcome, valid := evaluateRow(conditions, series, row, logic)
		if !valid {
			continue
		}
		if outcome {
			labels[row] = trueType
		} else {
			labels[row] = falseType
		}
	}

	ctx := models.DetectionContext{
		Strategy:         c.Name(),
		IndicatorColumns: columns,
		RuleParams:       cfg.Rules,
	}
	return zonesFromLabels(ds, labels, cfg, ctx)
}

func evaluateRow(conditions []condition, series [][]float64, row int, logic string) (outcome, valid bool) {
	result := logic == "and"
	for i, cond := range conditions {
		v := series[i][row]
		if math.IsNaN(v) {
			return false, false
		}
		var ok bool
		switch cond.op {
		case ">":
			ok = v > cond.value
		case ">=":
			ok = v >= cond.value
		case "<":
			ok = v < cond.value
		case "<=":
			ok = v <= cond.value
		case "==":
			ok = v == cond.value
		case "!=":
			ok = v != cond.value
		}
		if logic == "and" {
			result = result && ok
		} else {
			result = result || ok
		}
	}
	return result, true
}

func parseConditions(raw interface{}) ([]condition, []string, error) {
	items, ok := raw.([]interface{})
	if !ok || len(items) == 0 {
		return nil, nil, errs.NewConfigurationError("strategy \"combined_rules\": rule \"conditions\" must be a non-empty list")
	}
	conditions := make([]condition, 0, len(items))
	columns := make([]string, 0, len(items))
	seen := map[string]bool{}
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, nil, errs.NewConfigurationError("strategy \"combined_rules\": each condition must be an object with column, op and value")
		}
		col := indicators.StringParam(m, "column", "")
		op := indicators.StringParam(m, "op", "")
		if col == "" || !validOp(op) {
			return nil, nil, errs.NewConfigurationErrorf("strategy \"combined_rules\": invalid condition on column %q with op %q", col, op)
		}
		conditions = append(conditions, condition{
			column: col,
			op:     op,
			value:  indicators.FloatParam(m, "value", 0),
		})
		if !seen[col] {
			seen[col] = true
			columns = append(columns, col)
		}
	}
	return conditions, columns, nil
}

func validOp(op string) bool {
	switch op {
	case ">", ">=", "<", "<=", "==", "!=":
		return true
	}
	return false
}

func parseTypeMap(raw interface{}) (trueType, falseType string, err error) {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return "", "", errs.NewConfigurationError("strategy \"combined_rules\": rule \"type_map\" must map \"true\" and \"false\" to zone types")
	}
	trueType = indicators.StringParam(m, "true", "")
	falseType = indicators.StringParam(m, "false", "")
	if trueType == "" || falseType == "" {
		return "", "", errs.NewConfigurationError("strategy \"combined_rules\": rule \"type_map\" must name both the \"true\" and \"false\" zone types")
	}
	return trueType, falseType, nil
}
