package formula

import "fmt"

var knownFuncs = map[string]int{
	"MA": 2, "EMA": 2, "SMA": 3, "REF": 2, "LLV": 2, "HHV": 2,
	"MAX": 2, "MIN": 2, "ABS": 1, "IF": 3, "CROSS": 2,
	"COUNT": 2, "EVERY": 2, "EXIST": 2, "BARSLAST": 1,
	"AVEDEV": 2, "STD": 2, "SLOPE": 2, "INTPART": 1, "TA_RSI": 2,
}

var knownVars = map[string]bool{
	"OPEN": true, "O": true, "HIGH": true, "H": true, "LOW": true, "L": true,
	"CLOSE": true, "C": true, "VOL": true, "VOLUME": true, "V": true,
}

// ValidationResult is the full outcome of linting a formula: whether it's
// valid, every error and warning collected along the way, and the names
// and counts extracted from its statement list, mirroring
// original_source's tdx::mod::ValidationResult.
type ValidationResult struct {
	Valid         bool     `json:"valid"`
	Errors        []string `json:"errors"`
	Warnings      []string `json:"warnings"`
	OutputVars    []string `json:"output_vars"`
	AssignVars    []string `json:"assign_vars"`
	DrawTextCount int      `json:"drawtext_count"`
}

// Validate lints a formula without evaluating it: it tokenizes, parses,
// and resolves every variable and function reference against the set of
// built-ins plus names assigned earlier in the same formula. It's the
// gate indicators are checked against before they're ever stored, so a
// typo surfaces immediately instead of at the next scheduler tick.
func Validate(source string) *ValidationResult {
	result := &ValidationResult{
		Errors:     []string{},
		Warnings:   []string{},
		OutputVars: []string{},
		AssignVars: []string{},
	}

	tokens, err := NewTokenizer(source).Tokenize()
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}
	stmts, err := NewParser(tokens).Parse()
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}
	if len(stmts) == 0 {
		result.Errors = append(result.Errors, "formula: empty statement list")
		return result
	}

	assigned := make(map[string]bool)
	for name := range knownVars {
		assigned[name] = true
	}

	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *AssignStmt:
			if err := checkExpr(s.Expr, assigned); err != nil {
				result.Errors = append(result.Errors, err.Error())
			}
			assigned[upper(s.Name)] = true
			result.AssignVars = append(result.AssignVars, s.Name)
		case *OutputStmt:
			if err := checkExpr(s.Expr, assigned); err != nil {
				result.Errors = append(result.Errors, err.Error())
			}
			if s.Name != "" {
				assigned[upper(s.Name)] = true
			}
			result.OutputVars = append(result.OutputVars, s.Name)
		case *DrawTextStmt:
			if err := checkExpr(s.Condition, assigned); err != nil {
				result.Errors = append(result.Errors, err.Error())
			}
			if err := checkExpr(s.PriceExpr, assigned); err != nil {
				result.Errors = append(result.Errors, err.Error())
			}
			result.DrawTextCount++
		}
	}

	if result.DrawTextCount == 0 {
		result.Warnings = append(result.Warnings, "formula has no DRAWTEXT statement and will never produce a signal")
	}

	result.Valid = len(result.Errors) == 0
	return result
}

func checkExpr(expr Expr, assigned map[string]bool) error {
	switch x := expr.(type) {
	case *NumberExpr, *StringExpr:
		return nil
	case *VariableExpr:
		if !assigned[upper(x.Name)] {
			return fmt.Errorf("formula: unknown variable %q", x.Name)
		}
		return nil
	case *BinaryExpr:
		if err := checkExpr(x.Left, assigned); err != nil {
			return err
		}
		return checkExpr(x.Right, assigned)
	case *UnaryExpr:
		return checkExpr(x.Operand, assigned)
	case *CallExpr:
		arity, ok := knownFuncs[upper(x.Name)]
		if !ok {
			return fmt.Errorf("formula: unknown function %q", x.Name)
		}
		if len(x.Args) != arity {
			return fmt.Errorf("formula: %s expects %d arguments, got %d", x.Name, arity, len(x.Args))
		}
		for _, a := range x.Args {
			if err := checkExpr(a, assigned); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("formula: unrecognized expression node")
	}
}
