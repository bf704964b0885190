package indicators

import (
	"fmt"
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/cinar/indicator/v2/volatility"
	"github.com/cinar/indicator/v2/volume"

	"github.com/quantlab/zoneanalyzer/internal/models"
)

func init() {
	Register(&builtinSource{})
	Register(&columnSource{})
}

// builtinSource computes standard technical indicators with
// cinar/indicator. Output columns are left-padded with NaN so they align
// with the dataset rows; detection treats NaN as a gap.
type builtinSource struct{}

func (s *builtinSource) Name() string { return "builtin" }

var builtinIndicators = map[string]bool{
	"sma":    true,
	"ema":    true,
	"rsi":    true,
	"macd":   true,
	"bbands": true,
	"atr":    true,
	"stoch":  true,
	"obv":    true,
}

func (s *builtinSource) Supports(indicator string) bool {
	return builtinIndicators[indicator]
}

func (s *builtinSource) Compute(ds *models.Dataset, spec Spec) (map[string][]float64, error) {
	closes, err := ds.Column("close")
	if err != nil {
		return nil, columnError(spec.Source, spec.Name, err)
	}

	switch spec.Name {
	case "sma":
		period := IntParam(spec.Params, "period", 20)
		sma := trend.NewSmaWithPeriod[float64](period)
		values := helper.ChanToSlice(sma.Compute(helper.SliceToChan(closes)))
		return map[string][]float64{
			fmt.Sprintf("sma_%d", period): padLeft(values, len(closes)),
		}, nil

	case "ema":
		period := IntParam(spec.Params, "period", 12)
		ema := trend.NewEmaWithPeriod[float64](period)
		values := helper.ChanToSlice(ema.Compute(helper.SliceToChan(closes)))
		return map[string][]float64{
			fmt.Sprintf("ema_%d", period): padLeft(values, len(closes)),
		}, nil

	case "rsi":
		period := IntParam(spec.Params, "period", 14)
		rsi := momentum.NewRsiWithPeriod[float64](period)
		values := helper.ChanToSlice(rsi.Compute(helper.SliceToChan(closes)))
		return map[string][]float64{
			fmt.Sprintf("rsi_%d", period): padLeft(values, len(closes)),
		}, nil

	case "macd":
		fast := IntParam(spec.Params, "fast", 12)
		slow := IntParam(spec.Params, "slow", 26)
		signal := IntParam(spec.Params, "signal", 9)
		macd := trend.NewMacdWithPeriod[float64](fast, slow, signal)

		macdChan, signalChan := macd.Compute(helper.SliceToChan(closes))
		var macdLine []float64
		done := make(chan struct{})
		go func() {
			macdLine = helper.ChanToSlice(macdChan)
			close(done)
		}()
		signalLine := helper.ChanToSlice(signalChan)
		<-done

		// Both outputs share the signal line's (shorter) length.
		n := len(signalLine)
		if len(macdLine) > n {
			macdLine = macdLine[len(macdLine)-n:]
		}
		hist := make([]float64, n)
		for i := range hist {
			hist[i] = macdLine[i] - signalLine[i]
		}
		return map[string][]float64{
			"macd":        padLeft(macdLine, len(closes)),
			"macd_signal": padLeft(signalLine, len(closes)),
			"macd_hist":   padLeft(hist, len(closes)),
		}, nil

	case "bbands":
		return s.computeBollinger(closes, spec)

	case "atr":
		highs, err := ds.Column("high")
		if err != nil {
			return nil, columnError(spec.Source, spec.Name, err)
		}
		lows, err := ds.Column("low")
		if err != nil {
			return nil, columnError(spec.Source, spec.Name, err)
		}
		atr := volatility.NewAtr[float64]()
		values := helper.ChanToSlice(atr.Compute(
			helper.SliceToChan(highs),
			helper.SliceToChan(lows),
			helper.SliceToChan(closes),
		))
		return map[string][]float64{"atr": padLeft(values, len(closes))}, nil

	case "stoch":
		highs, err := ds.Column("high")
		if err != nil {
			return nil, columnError(spec.Source, spec.Name, err)
		}
		lows, err := ds.Column("low")
		if err != nil {
			return nil, columnError(spec.Source, spec.Name, err)
		}
		return s.computeStochastic(highs, lows, closes, spec)

	case "obv":
		volumes, err := ds.Column("volume")
		if err != nil {
			return nil, columnError(spec.Source, spec.Name, err)
		}
		obv := volume.NewObv[float64]()
		values := helper.ChanToSlice(obv.Compute(
			helper.SliceToChan(closes),
			helper.SliceToChan(volumes),
		))
		return map[string][]float64{"obv": padLeft(values, len(closes))}, nil
	}

	return nil, columnError(spec.Source, spec.Name, fmt.Errorf("not implemented"))
}

// computeBollinger builds the bands from an SMA plus a rolling standard
// deviation, producing bb_upper, bb_middle and bb_lower columns.
func (s *builtinSource) computeBollinger(closes []float64, spec Spec) (map[string][]float64, error) {
	period := IntParam(spec.Params, "period", 20)
	stdDev := FloatParam(spec.Params, "std_dev", 2.0)
	if period < 1 || period > len(closes) {
		return nil, columnError(spec.Source, spec.Name, fmt.Errorf("period %d out of range for %d rows", period, len(closes)))
	}

	sma := trend.NewSmaWithPeriod[float64](period)
	middle := helper.ChanToSlice(sma.Compute(helper.SliceToChan(closes)))

	upper := make([]float64, len(middle))
	lower := make([]float64, len(middle))
	for i := range middle {
		window := closes[i : i+period]
		sd := windowStdDev(window, middle[i])
		upper[i] = middle[i] + stdDev*sd
		lower[i] = middle[i] - stdDev*sd
	}

	return map[string][]float64{
		"bb_upper":  padLeft(upper, len(closes)),
		"bb_middle": padLeft(middle, len(closes)),
		"bb_lower":  padLeft(lower, len(closes)),
	}, nil
}

// computeStochastic produces the %K and %D lines.
func (s *builtinSource) computeStochastic(highs, lows, closes []float64, spec Spec) (map[string][]float64, error) {
	kPeriod := IntParam(spec.Params, "k_period", 14)
	dPeriod := IntParam(spec.Params, "d_period", 3)
	if len(closes) < kPeriod+dPeriod {
		return nil, columnError(spec.Source, spec.Name, fmt.Errorf("need at least %d rows, got %d", kPeriod+dPeriod, len(closes)))
	}

	k := make([]float64, len(closes))
	for i := range k {
		k[i] = math.NaN()
	}
	for i := kPeriod - 1; i < len(closes); i++ {
		hh, ll := highs[i], lows[i]
		for j := i - kPeriod + 1; j < i; j++ {
			if highs[j] > hh {
				hh = highs[j]
			}
			if lows[j] < ll {
				ll = lows[j]
			}
		}
		if hh != ll {
			k[i] = (closes[i] - ll) / (hh - ll) * 100
		} else {
			k[i] = 50
		}
	}

	d := make([]float64, len(closes))
	for i := range d {
		d[i] = math.NaN()
	}
	for i := kPeriod + dPeriod - 2; i < len(closes); i++ {
		sum := 0.0
		for j := i - dPeriod + 1; j <= i; j++ {
			sum += k[j]
		}
		d[i] = sum / float64(dPeriod)
	}

	return map[string][]float64{"stoch_k": k, "stoch_d": d}, nil
}

func windowStdDev(window []float64, mean float64) float64 {
	if len(window) == 0 {
		return 0
	}
	variance := 0.0
	for _, v := range window {
		diff := v - mean
		variance += diff * diff
	}
	return math.Sqrt(variance / float64(len(window)))
}

// padLeft aligns a shortened indicator output with the dataset rows by
// prepending NaN for the warm-up bars.
func padLeft(values []float64, n int) []float64 {
	if len(values) >= n {
		return values[len(values)-n:]
	}
	out := make([]float64, n)
	pad := n - len(values)
	for i := 0; i < pad; i++ {
		out[i] = math.NaN()
	}
	copy(out[pad:], values)
	return out
}

// columnSource serves precomputed indicator columns already present on
// the dataset, e.g. loaded from the input file.
type columnSource struct{}

func (s *columnSource) Name() string { return "column" }

func (s *columnSource) Supports(string) bool { return true }

func (s *columnSource) Compute(ds *models.Dataset, spec Spec) (map[string][]float64, error) {
	if !ds.HasColumn(spec.Name) {
		return nil, columnError(spec.Source, spec.Name, fmt.Errorf("column not present in dataset"))
	}
	// Nothing to merge; the column is already there.
	return map[string][]float64{}, nil
}
