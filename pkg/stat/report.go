package stat

import "sort"

const (
	StatusViolated = "VIOLADA"
	StatusOK       = "OK"
)

// MinPoints is the shortest sequence the rules are evaluated on.  Shorter sequences report every rule as OK.
const MinPoints = 2

// RuleResult is the verdict of one rule over a whole sequence
type RuleResult struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Violated    bool   `json:"violated"`
	Status      string `json:"status"`
}

// Report holds the verdict of every rule keyed by rule identifier
type Report map[RuleID]RuleResult

// Evaluate runs every Western Electric rule over the sequence.  The chart tag does not change the verdicts.
// Evaluate has no error states; a zero sigma collapses all zones onto the center line.
func Evaluate(values []float64, _ Chart, c ControlContext) Report {
	report := make(Report, len(westernElectric))
	for _, r := range westernElectric {
		violated := len(values) >= MinPoints && r.Violated(values, c)
		report[r.ID] = newResult(r, violated)
	}
	return report
}

func newResult(r Rule, violated bool) RuleResult {
	status := StatusOK
	if violated {
		status = StatusViolated
	}
	return RuleResult{
		Name:        r.Name,
		Description: r.Description,
		Violated:    violated,
		Status:      status,
	}
}

// Violations returns the number of violated rules
func (r Report) Violations() int {
	return len(r.Violated())
}

// Violated returns the violated rule identifiers in rule order
func (r Report) Violated() []RuleID {
	out := make([]RuleID, 0)
	for id, res := range r {
		if res.Violated {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return ruleNumber(out[i]) < ruleNumber(out[j]) })
	return out
}

// InControl is true when no rule is violated
func (r Report) InControl() bool {
	return r.Violations() == 0
}

func ruleNumber(id RuleID) int {
	for i, r := range westernElectric {
		if r.ID == id {
			return i
		}
	}
	return len(westernElectric)
}
