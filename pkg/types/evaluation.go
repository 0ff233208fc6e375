package types

// Verdict is the result of evaluating a condition against a candle prefix.
// Neutral means "not applicable this bar" — it never propagates as False
// through a conjunction, only as "inconclusive".
type Verdict string

const (
	VerdictTrue    Verdict = "true"
	VerdictFalse   Verdict = "false"
	VerdictNeutral Verdict = "neutral"
)

// EvaluationResult is the three-valued outcome of Condition.Evaluate, along
// with the named scalars that produced it (for logging and testing).
type EvaluationResult struct {
	Verdict       Verdict
	ConditionName string
	Details       string
	Values        map[string]interface{}
}

// Bool coerces the result to a plain boolean. Only True coerces to true;
// both False and Neutral coerce to false.
func (r EvaluationResult) Bool() bool {
	return r.Verdict == VerdictTrue
}

// NeutralResult builds a Neutral EvaluationResult, the standard response to
// missing context keys or insufficient warm-up history.
func NeutralResult(name, details string) EvaluationResult {
	return EvaluationResult{Verdict: VerdictNeutral, ConditionName: name, Details: details}
}

// TrueResult builds a True EvaluationResult carrying supporting values.
func TrueResult(name, details string, values map[string]interface{}) EvaluationResult {
	return EvaluationResult{Verdict: VerdictTrue, ConditionName: name, Details: details, Values: values}
}

// FalseResult builds a False EvaluationResult carrying supporting values.
func FalseResult(name, details string, values map[string]interface{}) EvaluationResult {
	return EvaluationResult{Verdict: VerdictFalse, ConditionName: name, Details: details, Values: values}
}
