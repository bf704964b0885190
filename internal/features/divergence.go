package features

import (
	"math"

	"github.com/quantlab/zoneanalyzer/internal/models"
)

// DivergenceCalculator classifies price-versus-indicator divergence
// inside a zone.
type DivergenceCalculator interface {
	Name() string
	Calculate(zone *models.Zone) (*models.DivergenceMetrics, error)
}

var divergenceRegistry = newRegistry[DivergenceCalculator]()

// RegisterDivergenceCalculator adds a divergence algorithm to the
// registry.
func RegisterDivergenceCalculator(c DivergenceCalculator) {
	divergenceRegistry.register(c.Name(), c)
}

func init() {
	RegisterDivergenceCalculator(&defaultDivergence{})
}

// CalculateDivergence runs the named algorithm ("default" when empty).
func CalculateDivergence(zone *models.Zone, algorithm string) (*models.DivergenceMetrics, error) {
	if algorithm == "" {
		algorithm = "default"
	}
	calc, err := divergenceRegistry.lookup("divergence", algorithm)
	if err != nil {
		return nil, err
	}
	return calc.Calculate(zone)
}

// defaultDivergence compares the direction of consecutive price extrema
// against the direction of the indicator extrema nearest to them.
// Higher price highs with lower indicator highs are regular bearish;
// lower price lows with higher indicator lows are regular bullish;
// the hidden variants invert the price leg.
type defaultDivergence struct{}

func (d *defaultDivergence) Name() string { return "default" }

const neutralDivergence = "none"

func (d *defaultDivergence) Calculate(zone *models.Zone) (*models.DivergenceMetrics, error) {
	neutral := &models.DivergenceMetrics{Type: neutralDivergence, Direction: neutralDivergence}
	if zone.Data == nil || zone.Data.Len() < 5 {
		return neutral, nil
	}
	indicator := indicatorSeries(zone)
	prices, err := zone.Data.Column("close")
	if err != nil {
		return nil, err
	}

	k := 2
	priceHighs, priceLows := localExtrema(prices, prices, k)
	indHighs, indLows := localExtrema(indicator, indicator, k)

	var regular, hidden int
	var bullish, bearish int
	var strengths []float64

	record := func(kind string, direction string, strength float64) {
		if kind == "regular" {
			regular++
		} else {
			hidden++
		}
		if direction == "bullish" {
			bullish++
		} else {
			bearish++
		}
		strengths = append(strengths, strength)
	}

	forPairs(priceHighs, func(p1, p2 int) {
		r1, r2 := nearestPair(p1, p2, indHighs)
		if r1 < 0 {
			return
		}
		switch {
		case prices[p2] > prices[p1] && indicator[r2] < indicator[r1]:
			record("regular", "bearish", divergenceStrength(prices[p2]/prices[p1], indicator[r1], indicator[r2]))
		case prices[p2] < prices[p1] && indicator[r2] > indicator[r1]:
			record("hidden", "bearish", divergenceStrength(prices[p1]/prices[p2], indicator[r2], indicator[r1]))
		}
	})
	forPairs(priceLows, func(p1, p2 int) {
		r1, r2 := nearestPair(p1, p2, indLows)
		if r1 < 0 {
			return
		}
		switch {
		case prices[p2] < prices[p1] && indicator[r2] > indicator[r1]:
			record("regular", "bullish", divergenceStrength(prices[p1]/prices[p2], indicator[r2], indicator[r1]))
		case prices[p2] > prices[p1] && indicator[r2] < indicator[r1]:
			record("hidden", "bullish", divergenceStrength(prices[p2]/prices[p1], indicator[r1], indicator[r2]))
		}
	})

	count := regular + hidden
	if count == 0 {
		return neutral, nil
	}

	m := &models.DivergenceMetrics{
		Count:    count,
		Strength: mean(strengths),
	}
	switch {
	case regular > 0 && hidden > 0:
		m.Type = "mixed"
	case regular > 0:
		m.Type = "regular"
	default:
		m.Type = "hidden"
	}
	switch {
	case bullish > 0 && bearish > 0:
		m.Direction = "mixed"
	case bullish > 0:
		m.Direction = "bullish"
	default:
		m.Direction = "bearish"
	}
	return m, nil
}

// forPairs visits consecutive extrema pairs.
func forPairs(indices []int, visit func(p1, p2 int)) {
	for i := 1; i < len(indices); i++ {
		visit(indices[i-1], indices[i])
	}
}

// nearestPair finds the indicator extrema closest to the two price
// extrema, requiring them to stay in order.
func nearestPair(p1, p2 int, swings []int) (int, int) {
	closest1, closest2 := -1, -1
	dist1, dist2 := math.MaxInt, math.MaxInt
	for _, s := range swings {
		if d := intAbs(s - p1); d < dist1 {
			dist1, closest1 = d, s
		}
		if d := intAbs(s - p2); d < dist2 {
			dist2, closest2 = d, s
		}
	}
	if closest1 >= 0 && closest2 >= 0 && closest1 < closest2 {
		return closest1, closest2
	}
	return -1, -1
}

// divergenceStrength maps the disagreement between the price ratio and
// the indicator ratio into [0, 1].
func divergenceStrength(priceRatio, ind1, ind2 float64) float64 {
	if ind2 == 0 {
		return 0
	}
	diff := math.Abs(priceRatio - ind1/ind2)
	return 1 - math.Exp(-diff)
}

func intAbs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
