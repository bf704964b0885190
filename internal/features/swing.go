package features

import (
	"fmt"

	"github.com/quantlab/zoneanalyzer/internal/models"
)

// SwingConfig selects the swing sub-algorithm and its scope. In "zone"
// scope extrema are found strictly inside each zone's own slice; in
// "global" scope they are found once over the whole dataset and sliced
// per zone, keeping the nearest neighboring extrema outside the zone so
// partially visible swings are not truncated.
type SwingConfig struct {
	Algorithm   string  `json:"algorithm" mapstructure:"algorithm"`
	Scope       string  `json:"scope" mapstructure:"scope"`
	Threshold   float64 `json:"threshold" mapstructure:"threshold"`
	Window      int     `json:"window" mapstructure:"window"`
	PriceColumn string  `json:"price_column" mapstructure:"price_column"`
}

// DefaultSwingConfig returns the zigzag algorithm at a 2% reversal
// threshold, per-zone scope.
func DefaultSwingConfig() SwingConfig {
	return SwingConfig{
		Algorithm:   "zigzag",
		Scope:       "zone",
		Threshold:   0.02,
		Window:      3,
		PriceColumn: "close",
	}
}

func (c SwingConfig) priceColumn() string {
	if c.PriceColumn == "" {
		return "close"
	}
	return c.PriceColumn
}

func (c SwingConfig) paramString() string {
	return fmt.Sprintf("algorithm=%s,scope=%s,threshold=%g,window=%d,price_column=%s",
		c.Algorithm, c.Scope, c.Threshold, c.Window, c.priceColumn())
}

// SwingPoint is one local price extreme. Index is a position into the
// series the algorithm ran over: dataset-global in global scope, local
// to the zone slice otherwise.
type SwingPoint struct {
	Index int     `json:"index"`
	Price float64 `json:"price"`
	High  bool    `json:"high"`
}

// SwingAlgorithm locates alternating local extrema in a dataset.
type SwingAlgorithm interface {
	Name() string
	FindPoints(ds *models.Dataset, cfg SwingConfig) ([]SwingPoint, error)
}

var swingRegistry = newRegistry[SwingAlgorithm]()

// RegisterSwingAlgorithm adds a swing sub-algorithm to the registry.
func RegisterSwingAlgorithm(a SwingAlgorithm) {
	swingRegistry.register(a.Name(), a)
}

func init() {
	RegisterSwingAlgorithm(&zigzagAlgorithm{})
	RegisterSwingAlgorithm(&extremaAlgorithm{})
	RegisterSwingAlgorithm(&pivotAlgorithm{})
}

// SwingContext holds dataset-wide swing points shared by all zones of a
// detection run in global scope.
type SwingContext struct {
	Points []SwingPoint
}

// NewSwingContext runs the configured algorithm once over the full
// dataset.
func NewSwingContext(ds *models.Dataset, cfg SwingConfig) (*SwingContext, error) {
	algo, err := swingRegistry.lookup("swing", cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	points, err := algo.FindPoints(ds, cfg)
	if err != nil {
		return nil, err
	}
	return &SwingContext{Points: points}, nil
}

// Window returns the points inside [start, end] plus the nearest
// neighboring extremum on each side, when one exists.
func (c *SwingContext) Window(start, end int) []SwingPoint {
	var out []SwingPoint
	before := -1
	after := -1
	for i, p := range c.Points {
		switch {
		case p.Index < start:
			before = i
		case p.Index > end:
			if after < 0 {
				after = i
			}
		default:
			out = append(out, p)
		}
	}
	if before >= 0 {
		out = append([]SwingPoint{c.Points[before]}, out...)
	}
	if after >= 0 {
		out = append(out, c.Points[after])
	}
	return out
}

// CalculateSwings computes the swing metrics record for one zone. Fewer
// than 3 data points, or fewer than 2 usable extrema, yield the
// canonical zero record.
func CalculateSwings(zone *models.Zone, cfg SwingConfig, sctx *SwingContext) (*models.SwingMetrics, error) {
	zero := &models.SwingMetrics{
		StrategyName:   cfg.Algorithm,
		StrategyParams: cfg.paramString(),
	}
	if zone.Data == nil || zone.Data.Len() < 3 {
		return zero, nil
	}

	var points []SwingPoint
	if cfg.Scope == "global" && sctx != nil {
		points = sctx.Window(zone.StartIndex, zone.EndIndex)
	} else {
		algo, err := swingRegistry.lookup("swing", cfg.Algorithm)
		if err != nil {
			return nil, err
		}
		points, err = algo.FindPoints(zone.Data, cfg)
		if err != nil {
			return nil, err
		}
	}
	if len(points) < 2 {
		return zero, nil
	}

	return metricsFromPoints(points, cfg), nil
}

type leg struct {
	amplitude float64
	duration  float64
}

// metricsFromPoints folds an alternating extrema sequence into the
// fixed-schema swing record. A low-to-high leg is a rally, high-to-low
// is a drop; amplitudes are relative to the leg's starting price.
func metricsFromPoints(points []SwingPoint, cfg SwingConfig) *models.SwingMetrics {
	var rallies, drops []leg
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1], points[i]
		if prev.High == cur.High || prev.Price == 0 {
			continue
		}
		l := leg{
			amplitude: abs(cur.Price-prev.Price) / abs(prev.Price),
			duration:  float64(cur.Index - prev.Index),
		}
		if cur.High {
			rallies = append(rallies, l)
		} else {
			drops = append(drops, l)
		}
	}

	m := &models.SwingMetrics{
		NumSwings:      len(rallies) + len(drops),
		NumRallies:     len(rallies),
		NumDrops:       len(drops),
		StrategyName:   cfg.Algorithm,
		StrategyParams: cfg.paramString(),
	}

	rallyAmps, rallyDurs := legSeries(rallies)
	dropAmps, dropDurs := legSeries(drops)

	m.AvgRallyAmplitude = mean(rallyAmps)
	m.MinRallyAmplitude, m.MaxRallyAmplitude = minMax(rallyAmps)
	m.MedianRallyAmplitude = median(rallyAmps)
	m.AvgDropAmplitude = mean(dropAmps)
	m.MinDropAmplitude, m.MaxDropAmplitude = minMax(dropAmps)
	m.MedianDropAmplitude = median(dropAmps)
	m.AvgRallyDuration = mean(rallyDurs)
	m.MedianRallyDuration = median(rallyDurs)
	m.AvgDropDuration = mean(dropDurs)
	m.MedianDropDuration = median(dropDurs)
	m.RallySpeed = safeRatio(m.AvgRallyAmplitude, m.AvgRallyDuration)
	m.DropSpeed = safeRatio(m.AvgDropAmplitude, m.AvgDropDuration)
	m.AmplitudeRatio = safeRatio(m.AvgRallyAmplitude, m.AvgDropAmplitude)
	m.DurationRatio = safeRatio(m.AvgRallyDuration, m.AvgDropDuration)
	m.SpeedRatio = safeRatio(m.RallySpeed, m.DropSpeed)
	m.CountRatio = safeRatio(float64(m.NumRallies), float64(m.NumDrops))
	return m
}

func legSeries(legs []leg) (amps, durs []float64) {
	amps = make([]float64, len(legs))
	durs = make([]float64, len(legs))
	for i, l := range legs {
		amps[i] = l.amplitude
		durs[i] = l.duration
	}
	return amps, durs
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// zigzagAlgorithm commits an extremum whenever price reverses against
// the running extreme by at least the configured relative threshold.
type zigzagAlgorithm struct{}

func (a *zigzagAlgorithm) Name() string { return "zigzag" }

func (a *zigzagAlgorithm) FindPoints(ds *models.Dataset, cfg SwingConfig) ([]SwingPoint, error) {
	prices, err := ds.Column(cfg.priceColumn())
	if err != nil {
		return nil, err
	}
	if len(prices) < 2 {
		return nil, nil
	}
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = 0.02
	}

	var points []SwingPoint
	trendUp := prices[1] >= prices[0]
	extIdx, extPrice := 0, prices[0]
	for i := 1; i < len(prices); i++ {
		p := prices[i]
		if trendUp {
			if p >= extPrice {
				extIdx, extPrice = i, p
				continue
			}
			if extPrice != 0 && (extPrice-p)/extPrice >= threshold {
				points = append(points, SwingPoint{Index: extIdx, Price: extPrice, High: true})
				trendUp = false
				extIdx, extPrice = i, p
			}
		} else {
			if p <= extPrice {
				extIdx, extPrice = i, p
				continue
			}
			if extPrice != 0 && (p-extPrice)/extPrice >= threshold {
				points = append(points, SwingPoint{Index: extIdx, Price: extPrice, High: false})
				trendUp = true
				extIdx, extPrice = i, p
			}
		}
	}
	points = append(points, SwingPoint{Index: extIdx, Price: extPrice, High: trendUp})
	return alternatePoints(points), nil
}

// extremaAlgorithm scans for local maxima and minima of the price column
// within a symmetric neighborhood.
type extremaAlgorithm struct{}

func (a *extremaAlgorithm) Name() string { return "extrema" }

func (a *extremaAlgorithm) FindPoints(ds *models.Dataset, cfg SwingConfig) ([]SwingPoint, error) {
	prices, err := ds.Column(cfg.priceColumn())
	if err != nil {
		return nil, err
	}
	highs, lows := localExtrema(prices, prices, window(cfg))
	return alternatePoints(mergePoints(prices, prices, highs, lows)), nil
}

// pivotAlgorithm decomposes the bar range: pivot highs come from the
// high column, pivot lows from the low column.
type pivotAlgorithm struct{}

func (a *pivotAlgorithm) Name() string { return "pivot" }

func (a *pivotAlgorithm) FindPoints(ds *models.Dataset, cfg SwingConfig) ([]SwingPoint, error) {
	highCol, err := ds.Column("high")
	if err != nil {
		return nil, err
	}
	lowCol, err := ds.Column("low")
	if err != nil {
		return nil, err
	}
	highs, lows := localExtrema(highCol, lowCol, window(cfg))
	return alternatePoints(mergePoints(highCol, lowCol, highs, lows)), nil
}

func window(cfg SwingConfig) int {
	if cfg.Window < 1 {
		return 3
	}
	return cfg.Window
}

// localExtrema returns indices where highSeries peaks and lowSeries
// troughs within k bars on each side. Ties count as extrema so flat
// tops are not silently skipped.
func localExtrema(highSeries, lowSeries []float64, k int) (highs, lows []int) {
	for i := k; i < len(highSeries)-k; i++ {
		isHigh, isLow := true, true
		for j := i - k; j <= i+k; j++ {
			if j == i {
				continue
			}
			if highSeries[j] > highSeries[i] {
				isHigh = false
			}
			if lowSeries[j] < lowSeries[i] {
				isLow = false
			}
			if !isHigh && !isLow {
				break
			}
		}
		if isHigh {
			highs = append(highs, i)
		}
		if isLow {
			lows = append(lows, i)
		}
	}
	return highs, lows
}

func mergePoints(highSeries, lowSeries []float64, highs, lows []int) []SwingPoint {
	points := make([]SwingPoint, 0, len(highs)+len(lows))
	hi, li := 0, 0
	for hi < len(highs) || li < len(lows) {
		switch {
		case hi >= len(highs):
			points = append(points, SwingPoint{Index: lows[li], Price: lowSeries[lows[li]], High: false})
			li++
		case li >= len(lows) || highs[hi] <= lows[li]:
			points = append(points, SwingPoint{Index: highs[hi], Price: highSeries[highs[hi]], High: true})
			hi++
		default:
			points = append(points, SwingPoint{Index: lows[li], Price: lowSeries[lows[li]], High: false})
			li++
		}
	}
	return points
}

// alternatePoints collapses consecutive same-kind extrema, keeping the
// more extreme one, so legs always alternate high/low.
func alternatePoints(points []SwingPoint) []SwingPoint {
	var out []SwingPoint
	for _, p := range points {
		if len(out) > 0 && out[len(out)-1].High == p.High {
			last := &out[len(out)-1]
			if (p.High && p.Price >= last.Price) || (!p.High && p.Price <= last.Price) {
				*last = p
			}
			continue
		}
		out = append(out, p)
	}
	return out
}
