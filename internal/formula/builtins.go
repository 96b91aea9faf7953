package formula

import (
	"fmt"
	"math"
)

// evalFunc dispatches a built-in function call (name matched
// case-insensitively) to its calc_* implementation, first evaluating
// every series argument into a Series. Period arguments are read directly
// off a NumberExpr and truncated toward zero; any other expression in a
// period position is an EvalError.
func (e *Evaluator) evalFunc(name string, args []Expr) (Series, error) {
	switch upper(name) {
	case "MA":
		return e.callSeriesInt(args, "MA", e.calcMA)
	case "EMA":
		return e.callSeriesInt(args, "EMA", e.calcEMA)
	case "SMA":
		return e.calcSMAFunc(args)
	case "REF":
		return e.callSeriesInt(args, "REF", e.calcREF)
	case "LLV":
		return e.callSeriesInt(args, "LLV", e.calcLLV)
	case "HHV":
		return e.callSeriesInt(args, "HHV", e.calcHHV)
	case "MAX":
		return e.call2(args, "MAX", e.calcMax)
	case "MIN":
		return e.call2(args, "MIN", e.calcMin)
	case "ABS":
		return e.call1(args, "ABS", e.calcAbs)
	case "IF":
		return e.calcIF(args)
	case "CROSS":
		return e.call2(args, "CROSS", e.calcCross)
	case "COUNT":
		return e.callCondInt(args, "COUNT", e.calcCount)
	case "EVERY":
		return e.callCondInt(args, "EVERY", e.calcEvery)
	case "EXIST":
		return e.callCondInt(args, "EXIST", e.calcExist)
	case "BARSLAST":
		return e.call1(args, "BARSLAST", e.calcBarsLast)
	case "AVEDEV":
		return e.callSeriesInt(args, "AVEDEV", e.calcAvedev)
	case "STD":
		return e.callSeriesInt(args, "STD", e.calcStd)
	case "SLOPE":
		return e.callSeriesInt(args, "SLOPE", e.calcSlope)
	case "INTPART":
		return e.call1(args, "INTPART", e.calcIntpart)
	case "TA_RSI":
		return e.callSeriesInt(args, "TA_RSI", e.calcTaRSI)
	default:
		return nil, &EvalError{Msg: fmt.Sprintf("unknown function %q", name)}
	}
}

// callSeriesInt evaluates args[0] into a Series and args[1] as a literal
// period, matching the (series, N) shape shared by MA/EMA/REF/LLV/HHV/...
func (e *Evaluator) callSeriesInt(args []Expr, fn string, f func(Series, int) Series) (Series, error) {
	if len(args) != 2 {
		return nil, &EvalError{Msg: fmt.Sprintf("%s expects 2 arguments, got %d", fn, len(args))}
	}
	series, err := e.evalExpr(args[0])
	if err != nil {
		return nil, err
	}
	period, err := e.literalInt(args[1], fn)
	if err != nil {
		return nil, err
	}
	return f(series, period), nil
}

func (e *Evaluator) callCondInt(args []Expr, fn string, f func(Series, int) Series) (Series, error) {
	return e.callSeriesInt(args, fn, f)
}

func (e *Evaluator) call1(args []Expr, fn string, f func(Series) Series) (Series, error) {
	if len(args) != 1 {
		return nil, &EvalError{Msg: fmt.Sprintf("%s expects 1 argument, got %d", fn, len(args))}
	}
	series, err := e.evalExpr(args[0])
	if err != nil {
		return nil, err
	}
	return f(series), nil
}

func (e *Evaluator) call2(args []Expr, fn string, f func(Series, Series) Series) (Series, error) {
	if len(args) != 2 {
		return nil, &EvalError{Msg: fmt.Sprintf("%s expects 2 arguments, got %d", fn, len(args))}
	}
	a, err := e.evalExpr(args[0])
	if err != nil {
		return nil, err
	}
	b, err := e.evalExpr(args[1])
	if err != nil {
		return nil, err
	}
	return f(a, b), nil
}

func (e *Evaluator) literalInt(expr Expr, fn string) (int, error) {
	n, ok := expr.(*NumberExpr)
	if !ok {
		return 0, &EvalError{Msg: fmt.Sprintf("%s period argument must be a literal number", fn)}
	}
	return int(n.Value), nil
}

func (e *Evaluator) calcIF(args []Expr) (Series, error) {
	if len(args) != 3 {
		return nil, &EvalError{Msg: fmt.Sprintf("IF expects 3 arguments, got %d", len(args))}
	}
	cond, err := e.evalExpr(args[0])
	if err != nil {
		return nil, err
	}
	yes, err := e.evalExpr(args[1])
	if err != nil {
		return nil, err
	}
	no, err := e.evalExpr(args[2])
	if err != nil {
		return nil, err
	}
	out := make(Series, len(cond))
	for i := range cond {
		if truthy(cond[i]) {
			out[i] = yes[i]
		} else {
			out[i] = no[i]
		}
	}
	return out, nil
}

func (e *Evaluator) calcSMAFunc(args []Expr) (Series, error) {
	if len(args) != 3 {
		return nil, &EvalError{Msg: fmt.Sprintf("SMA expects 3 arguments, got %d", len(args))}
	}
	series, err := e.evalExpr(args[0])
	if err != nil {
		return nil, err
	}
	n, err := e.literalInt(args[1], "SMA")
	if err != nil {
		return nil, err
	}
	m, err := e.literalInt(args[2], "SMA")
	if err != nil {
		return nil, err
	}
	return calcSMA(series, n, m), nil
}

// calcMA computes the simple moving average over the trailing period
// bars. Near the start of the series, before period bars exist, it
// averages over whatever history is available instead of waiting for
// a full window.
func (e *Evaluator) calcMA(series Series, period int) Series {
	out := make(Series, len(series))
	if period == 0 {
		return out
	}
	for i := range series {
		start := windowStart(i, period)
		sum := 0.0
		for j := start; j <= i; j++ {
			sum += series[j]
		}
		out[i] = sum / float64(i-start+1)
	}
	return out
}

// calcEMA computes the exponential moving average, seeded with the
// first value and smoothed with alpha = 2/(period+1).
func (e *Evaluator) calcEMA(series Series, period int) Series {
	out := make(Series, len(series))
	if len(series) == 0 {
		return out
	}
	alpha := 2.0 / (float64(period) + 1.0)
	out[0] = series[0]
	for i := 1; i < len(series); i++ {
		out[i] = alpha*series[i] + (1-alpha)*out[i-1]
	}
	return out
}

// calcSMA is TDX's weighted moving average: SMA(X,N,M) = (M*X + (N-M)*prev)/N.
func calcSMA(series Series, n, m int) Series {
	out := make(Series, len(series))
	if len(series) == 0 {
		return out
	}
	out[0] = series[0]
	for i := 1; i < len(series); i++ {
		out[i] = (float64(m)*series[i] + float64(n-m)*out[i-1]) / float64(n)
	}
	return out
}

func (e *Evaluator) calcREF(series Series, period int) Series {
	out := make(Series, len(series))
	for i := range series {
		if i < period {
			out[i] = math.NaN()
			continue
		}
		out[i] = series[i-period]
	}
	return out
}

func (e *Evaluator) calcLLV(series Series, period int) Series {
	out := make(Series, len(series))
	for i := range series {
		start := windowStart(i, period)
		min := series[start]
		for j := start + 1; j <= i; j++ {
			if series[j] < min {
				min = series[j]
			}
		}
		out[i] = min
	}
	return out
}

func (e *Evaluator) calcHHV(series Series, period int) Series {
	out := make(Series, len(series))
	for i := range series {
		start := windowStart(i, period)
		max := series[start]
		for j := start + 1; j <= i; j++ {
			if series[j] > max {
				max = series[j]
			}
		}
		out[i] = max
	}
	return out
}

func (e *Evaluator) calcMax(a, b Series) Series {
	out := make(Series, len(a))
	for i := range a {
		out[i] = math.Max(a[i], b[i])
	}
	return out
}

func (e *Evaluator) calcMin(a, b Series) Series {
	out := make(Series, len(a))
	for i := range a {
		out[i] = math.Min(a[i], b[i])
	}
	return out
}

func (e *Evaluator) calcAbs(series Series) Series {
	out := make(Series, len(series))
	for i, v := range series {
		out[i] = math.Abs(v)
	}
	return out
}

// calcCross reports, at each bar, whether a crossed above b on this bar
// (a was <= b the bar before and is > b now).
func (e *Evaluator) calcCross(a, b Series) Series {
	out := make(Series, len(a))
	for i := range a {
		if i == 0 {
			out[i] = 0
			continue
		}
		out[i] = boolF(a[i-1] <= b[i-1] && a[i] > b[i])
	}
	return out
}

// calcCount counts how many of the trailing period bars had a truthy
// condition value, over a partial window near the start of the series.
func (e *Evaluator) calcCount(cond Series, period int) Series {
	out := make(Series, len(cond))
	for i := range cond {
		n := 0
		for j := windowStart(i, period); j <= i; j++ {
			if truthy(cond[j]) {
				n++
			}
		}
		out[i] = float64(n)
	}
	return out
}

// calcEvery reports whether all period trailing bars were truthy — which,
// since calcCount only ever counts a partial window before period bars
// exist, is automatically false until the window has fully filled.
func (e *Evaluator) calcEvery(cond Series, period int) Series {
	count := e.calcCount(cond, period)
	out := make(Series, len(cond))
	for i, c := range count {
		out[i] = boolF(math.Abs(c-float64(period)) < epsilon)
	}
	return out
}

// calcExist reports whether any of the trailing period bars (or, near
// the start of the series, whatever bars exist so far) were truthy.
func (e *Evaluator) calcExist(cond Series, period int) Series {
	count := e.calcCount(cond, period)
	out := make(Series, len(cond))
	for i, c := range count {
		out[i] = boolF(c > 0.5)
	}
	return out
}

// calcBarsLast counts the bars since the condition was last truthy,
// the window length if it has never been true up to and including this
// bar.
func (e *Evaluator) calcBarsLast(cond Series) Series {
	out := make(Series, len(cond))
	last := -1
	for i := range cond {
		if truthy(cond[i]) {
			last = i
			out[i] = 0
			continue
		}
		if last == -1 {
			out[i] = float64(len(cond))
		} else {
			out[i] = float64(i - last)
		}
	}
	return out
}

func (e *Evaluator) calcIntpart(series Series) Series {
	out := make(Series, len(series))
	for i, v := range series {
		out[i] = math.Trunc(v)
	}
	return out
}
