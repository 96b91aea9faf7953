package formula

import (
	"fmt"
	"testing"

	"github.com/aristath/arduino-watcher/internal/domain"
)

func makeBars(closes []float64) []domain.KlineBar {
	bars := make([]domain.KlineBar, len(closes))
	for i, c := range closes {
		bars[i] = domain.KlineBar{
			Date:  fmt.Sprintf("2026-01-%02d", i+1),
			Open:  c,
			High:  c,
			Low:   c,
			Close: c,
		}
	}
	return bars
}

func evalSource(t *testing.T, src string, bars []domain.KlineBar) *EvalResult {
	t.Helper()
	toks, err := NewTokenizer(src).Tokenize()
	if err != nil {
		t.Fatalf("tokenize error: %v", err)
	}
	stmts, err := NewParser(toks).Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	result, err := NewEvaluator(bars).Eval(stmts)
	if err != nil {
		t.Fatalf("eval error: %v", err)
	}
	return result
}

func approxEqual(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 0.01
}

func TestEvalMA(t *testing.T) {
	bars := makeBars([]float64{10, 20, 30, 40, 50})
	result := evalSource(t, "MA5 : MA(CLOSE, 3);", bars)
	ma5 := result.Outputs["MA5"]
	if !approxEqual(ma5[4], 40.0) {
		t.Errorf("MA5[4] = %v, want 40.0", ma5[4])
	}
}

func TestEvalEMA(t *testing.T) {
	bars := makeBars([]float64{10, 20, 30, 40, 50})
	result := evalSource(t, "E : EMA(CLOSE, 3);", bars)
	e := result.Outputs["E"]
	if !approxEqual(e[0], 10.0) {
		t.Errorf("E[0] = %v, want 10.0", e[0])
	}
	if !approxEqual(e[1], 15.0) {
		t.Errorf("E[1] = %v, want 15.0", e[1])
	}
	if !approxEqual(e[2], 22.5) {
		t.Errorf("E[2] = %v, want 22.5", e[2])
	}
}

func TestEvalDrawTextTriggered(t *testing.T) {
	bars := makeBars([]float64{10, 20, 30, 40, 50})
	result := evalSource(t, "DRAWTEXT(C > REF(C, 1), LOW, 'buy');", bars)
	if len(result.Signals) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(result.Signals))
	}
	if !result.Signals[0].Triggered {
		t.Errorf("expected triggered signal")
	}
	if result.Signals[0].Text != "buy" {
		t.Errorf("text = %q, want buy", result.Signals[0].Text)
	}
}

func TestEvalDrawTextNotTriggered(t *testing.T) {
	bars := makeBars([]float64{50, 40, 30, 20, 10})
	result := evalSource(t, "DRAWTEXT(C > REF(C, 1), LOW, 'buy');", bars)
	if result.Signals[0].Triggered {
		t.Errorf("expected not triggered")
	}
}

func TestEvalCross(t *testing.T) {
	bars := makeBars([]float64{10, 20, 15, 25, 30})
	result := evalSource(t, "MA3 := MA(C, 3);\nMA5 := MA(C, 5);\nGOLD := CROSS(MA3, MA5);\nGOLD_OUT : GOLD;", bars)
	gold := result.Outputs["GOLD_OUT"]
	if len(gold) != 5 {
		t.Errorf("len(gold) = %d, want 5", len(gold))
	}
}

func TestEvalFullBBIFormula(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 10.0 + float64(i+1)*0.5
	}
	bars := makeBars(closes)
	src := `
		MA3 := MA(CLOSE, 3);
		MA6 := MA(CLOSE, 6);
		MA12 := MA(CLOSE, 12);
		MA24 := MA(CLOSE, 24);
		BBI : (MA3 + MA6 + MA12 + MA24) / 4;
		DRAWTEXT(CLOSE > BBI AND REF(CLOSE, 1) < REF(BBI, 1), LOW, 'cross up buy');
	`
	result := evalSource(t, src, bars)
	if _, ok := result.Outputs["BBI"]; !ok {
		t.Fatalf("expected BBI output")
	}
	if len(result.Signals) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(result.Signals))
	}
}

func TestEvalMAPartialWindow(t *testing.T) {
	bars := makeBars([]float64{10, 20, 30, 40, 50})
	result := evalSource(t, "MA3 : MA(CLOSE, 3);", bars)
	ma3 := result.Outputs["MA3"]
	if !approxEqual(ma3[0], 10.0) {
		t.Errorf("MA3[0] = %v, want 10.0 (partial window of 1)", ma3[0])
	}
	if !approxEqual(ma3[1], 15.0) {
		t.Errorf("MA3[1] = %v, want 15.0 (partial window of 2)", ma3[1])
	}
	if !approxEqual(ma3[2], 20.0) {
		t.Errorf("MA3[2] = %v, want 20.0 (full window)", ma3[2])
	}
}

func TestEvalBarsLastNeverTriggered(t *testing.T) {
	bars := makeBars([]float64{10, 20, 30, 40, 50})
	result := evalSource(t, "B : BARSLAST(CLOSE > 1000);", bars)
	b := result.Outputs["B"]
	for i, v := range b {
		if !approxEqual(v, float64(len(bars))) {
			t.Errorf("B[%d] = %v, want %d (never triggered)", i, v, len(bars))
		}
	}
}

func TestEvalEveryRequiresFullWindow(t *testing.T) {
	bars := makeBars([]float64{10, 20, 30, 40, 50})
	result := evalSource(t, "E : EVERY(CLOSE > 0, 3);", bars)
	e := result.Outputs["E"]
	if e[0] != 0 || e[1] != 0 {
		t.Errorf("E[0..1] = %v, want 0 before the window fills", e[:2])
	}
	if e[2] != 1 {
		t.Errorf("E[2] = %v, want 1 once the window fills and all bars are truthy", e[2])
	}
}

func TestTruthyThreshold(t *testing.T) {
	bars := makeBars([]float64{10, 20, 30})
	result := evalSource(t, "A : 0.3 AND 1;\nN : NOT 0.3;", bars)
	for i, v := range result.Outputs["A"] {
		if v != 0 {
			t.Errorf("0.3 AND 1 [%d] = %v, want 0", i, v)
		}
	}
	for i, v := range result.Outputs["N"] {
		if v != 1 {
			t.Errorf("NOT 0.3 [%d] = %v, want 1", i, v)
		}
	}
}

func TestEvalSMA(t *testing.T) {
	bars := makeBars([]float64{10, 20, 30, 40, 50})
	result := evalSource(t, "S : SMA(CLOSE, 3, 1);", bars)
	s := result.Outputs["S"]
	if !approxEqual(s[0], 10.0) {
		t.Errorf("S[0] = %v, want 10.0", s[0])
	}
	if !approxEqual(s[1], 13.333) {
		t.Errorf("S[1] = %v, want 13.333", s[1])
	}
}

func TestValidateRejectsUnknownVariable(t *testing.T) {
	result := Validate("X := BOGUS + 1;")
	if result.Valid {
		t.Errorf("expected invalid result for unknown variable")
	}
	if len(result.Errors) == 0 {
		t.Errorf("expected at least one error for unknown variable")
	}
}

func TestValidateRejectsUnknownFunction(t *testing.T) {
	result := Validate("X := NOPE(CLOSE, 5);")
	if result.Valid {
		t.Errorf("expected invalid result for unknown function")
	}
}

func TestValidateAcceptsKnownFormula(t *testing.T) {
	result := Validate("MA5 := MA(CLOSE, 5);\nSIGNAL : CLOSE > MA5;")
	if !result.Valid {
		t.Errorf("unexpected errors: %v", result.Errors)
	}
	if len(result.AssignVars) != 1 || result.AssignVars[0] != "MA5" {
		t.Errorf("assign_vars = %v, want [MA5]", result.AssignVars)
	}
	if len(result.OutputVars) != 1 || result.OutputVars[0] != "SIGNAL" {
		t.Errorf("output_vars = %v, want [SIGNAL]", result.OutputVars)
	}
	if result.DrawTextCount != 0 {
		t.Errorf("drawtext_count = %d, want 0", result.DrawTextCount)
	}
	if len(result.Warnings) != 1 {
		t.Errorf("expected a warning for missing DRAWTEXT, got %v", result.Warnings)
	}
}
