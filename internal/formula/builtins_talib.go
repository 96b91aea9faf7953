package formula

import (
	"math"

	"github.com/markcheno/go-talib"
)

// calcTaRSI is a convenience builtin wrapping go-talib's Wilder-smoothed
// RSI rather than reimplementing it from TDX's gain/loss primitives.
// There is no plain RSI builtin: a formula ported from TDX source builds
// RSI itself from SMA, MAX and ABS.
func (e *Evaluator) calcTaRSI(series Series, period int) Series {
	out := make(Series, len(series))
	if period <= 0 || len(series) < period+1 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	vals := talib.Rsi([]float64(series), period)
	copy(out, vals)
	return out
}
