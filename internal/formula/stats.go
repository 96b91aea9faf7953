package formula

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// windowStart clamps a trailing window of the given period to the left
// edge of the series, so bars before the window has filled still get a
// partial-window statistic instead of NaN.
func windowStart(i, period int) int {
	if i+1 >= period {
		return i + 1 - period
	}
	return 0
}

// calcStd computes the trailing-window population standard deviation of series,
// delegating the per-window statistics to gonum rather than hand-rolling
// variance accumulation. Windows shorter than period (near the start of
// the series) are computed over whatever history is available.
func (e *Evaluator) calcStd(series Series, period int) Series {
	out := make(Series, len(series))
	for i := range series {
		window := series[windowStart(i, period) : i+1]
		out[i] = stat.PopStdDev(window, nil)
	}
	return out
}

// calcAvedev computes the trailing-window mean absolute deviation, over a
// partial window near the start of the series.
func (e *Evaluator) calcAvedev(series Series, period int) Series {
	out := make(Series, len(series))
	for i := range series {
		window := series[windowStart(i, period) : i+1]
		mean := stat.Mean(window, nil)
		sum := 0.0
		for _, v := range window {
			sum += math.Abs(v - mean)
		}
		out[i] = sum / float64(len(window))
	}
	return out
}

// calcSlope fits a trailing-window linear regression against bar index
// and returns the fitted slope, one point of TDX's linear-trend family.
// Unlike the other window statistics, bars before the window has fully
// filled are left at 0 rather than computed over a partial window.
func (e *Evaluator) calcSlope(series Series, period int) Series {
	out := make(Series, len(series))
	if period < 2 {
		return out
	}
	xs := make([]float64, period)
	for i := range xs {
		xs[i] = float64(i)
	}
	for i := range series {
		if i+1 < period {
			continue
		}
		window := series[i-period+1 : i+1]
		_, slope := stat.LinearRegression(xs, window, nil, false)
		out[i] = slope
	}
	return out
}
