package stat

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func zigzag(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = lo
		} else {
			out[i] = hi
		}
	}
	return out
}

func TestRules(t *testing.T) {
	rules := Rules()
	assert.Len(t, rules, 8)
	windows := []int{1, 9, 6, 14, 3, 5, 15, 8}
	for i, r := range rules {
		assert.Equal(t, RuleID(fmt.Sprintf("rule_%d", i+1)), r.ID)
		assert.Equal(t, windows[i], r.Window)
		assert.NotEmpty(t, r.Name)
		assert.NotEmpty(t, r.Description)
	}

	// callers can't alter the rule table
	rules[0].Window = 100
	assert.Equal(t, 1, Rules()[0].Window)
}

func TestEvaluate(t *testing.T) {
	tt := []struct {
		name     string
		values   []float64
		ctx      ControlContext
		violated []RuleID
	}{
		{name: "one point beyond 3 sigma", values: []float64{10, 10, 10, 50}, ctx: NewControlContext(10, 1), violated: []RuleID{"rule_1"}},
		{name: "point on 3 sigma boundary", values: []float64{10, 13}, ctx: NewControlContext(10, 1), violated: []RuleID{}},
		{name: "point below lower 3 sigma", values: []float64{10, 6.9}, ctx: NewControlContext(10, 1), violated: []RuleID{"rule_1"}},
		{name: "nine above center", values: repeat(11, 9), ctx: NewControlContext(10, 1), violated: []RuleID{"rule_2"}},
		{name: "eight above center", values: repeat(11, 8), ctx: NewControlContext(10, 1), violated: []RuleID{}},
		{name: "six increasing", values: []float64{1, 2, 3, 4, 5, 6}, ctx: NewControlContext(3.5, 10), violated: []RuleID{"rule_3"}},
		{name: "six decreasing", values: []float64{6, 5, 4, 3, 2, 1}, ctx: NewControlContext(3.5, 10), violated: []RuleID{"rule_3"}},
		{name: "flat step breaks trend", values: []float64{1, 2, 3, 3, 4, 5}, ctx: NewControlContext(3, 10), violated: []RuleID{}},
		{name: "fourteen alternating up first", values: zigzag(10, 11, 14), ctx: NewControlContext(10.5, 10), violated: []RuleID{"rule_4"}},
		{name: "fourteen alternating down first", values: zigzag(11, 10, 14), ctx: NewControlContext(10.5, 10), violated: []RuleID{"rule_4"}},
		{name: "thirteen alternating", values: zigzag(10, 11, 13), ctx: NewControlContext(10.5, 10), violated: []RuleID{}},
		{name: "two of three beyond 2 sigma", values: []float64{10, 12.5, 12.5}, ctx: NewControlContext(10, 1), violated: []RuleID{"rule_5"}},
		{name: "two of three on 2 sigma boundary", values: []float64{10, 12, 8}, ctx: NewControlContext(10, 1), violated: []RuleID{}},
		{name: "four of five beyond 1 sigma", values: []float64{10, 11.5, 11.5, 8.5, 11.5}, ctx: NewControlContext(10, 1), violated: []RuleID{"rule_6"}},
		{name: "fifteen within 1 sigma", values: zigzag(9.5, 10.5, 15), ctx: NewControlContext(10, 1), violated: []RuleID{"rule_4", "rule_7"}},
		{name: "fifteen on 1 sigma boundary", values: zigzag(9, 11, 15), ctx: NewControlContext(10, 1), violated: []RuleID{"rule_4", "rule_7"}},
		{name: "eight beyond 1 sigma", values: zigzag(8.5, 11.5, 8), ctx: NewControlContext(10, 1), violated: []RuleID{"rule_6", "rule_8"}},
		{name: "eight on 1 sigma boundary", values: zigzag(9, 11, 8), ctx: NewControlContext(10, 1), violated: []RuleID{}},
		{name: "single point never violates", values: []float64{50}, ctx: NewControlContext(10, 1), violated: []RuleID{}},
		{name: "empty sequence", values: nil, ctx: NewControlContext(10, 1), violated: []RuleID{}},
		{name: "zero sigma on center", values: []float64{10, 10, 10}, ctx: NewControlContext(10, 0), violated: []RuleID{}},
		{name: "zero sigma off center", values: []float64{10, 10.1}, ctx: NewControlContext(10, 0), violated: []RuleID{"rule_1"}},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			report := Evaluate(tc.values, XBar, tc.ctx)
			assert.Len(t, report, 8)
			assert.Equal(t, tc.violated, report.Violated())
			assert.Equal(t, len(tc.violated), report.Violations())
			assert.Equal(t, len(tc.violated) == 0, report.InControl())
			for id, res := range report {
				if res.Violated {
					assert.Equal(t, StatusViolated, res.Status, id)
				} else {
					assert.Equal(t, StatusOK, res.Status, id)
				}
			}
		})
	}
}

func TestRule2EitherSide(t *testing.T) {
	values := repeat(11, 9)
	for _, cl := range []float64{10, 20} {
		report := Evaluate(values, XBar, NewControlContext(cl, 1))
		assert.True(t, report["rule_2"].Violated, "cl=%v", cl)
	}
}

func TestEvaluateIdempotent(t *testing.T) {
	values := []float64{10, 12.5, 9, 13.5, 10, 10, 11, 7, 10.2, 10.1}
	ctx := FromLimits(10, 13)
	assert.Equal(t, Evaluate(values, XBar, ctx), Evaluate(values, XBar, ctx))
	assert.Equal(t, Evaluate(values, XBar, ctx), Evaluate(values, Range, ctx))
}

func TestEvaluateDoesNotModifyInput(t *testing.T) {
	values := []float64{3, 1, 2, 5, 4}
	Evaluate(values, Range, NewControlContext(3, 1))
	assert.Equal(t, []float64{3, 1, 2, 5, 4}, values)
}

func TestDocumentedExamples(t *testing.T) {
	nine := []float64{11, 12, 11, 13, 12, 14, 11, 12, 13}
	tt := []struct {
		name     string
		values   []float64
		ctx      ControlContext
		rule     RuleID
		violated bool
	}{
		{name: "spike beyond 3 sigma", values: []float64{10, 10, 10, 50}, ctx: NewControlContext(10, 1), rule: "rule_1", violated: true},
		{name: "nine above center", values: nine, ctx: NewControlContext(10, 1), rule: "rule_2", violated: true},
		{name: "nine below center", values: nine, ctx: NewControlContext(20, 1), rule: "rule_2", violated: true},
		{name: "nine straddling center", values: nine, ctx: NewControlContext(12, 1), rule: "rule_2", violated: false},
		{name: "increasing run", values: []float64{1, 2, 3, 4, 5, 6}, ctx: NewControlContext(3, 1), rule: "rule_3", violated: true},
		{name: "broken run", values: []float64{1, 2, 3, 2, 5, 6}, ctx: NewControlContext(3, 1), rule: "rule_3", violated: false},
		{name: "hugging center", values: []float64{19, 21, 20, 19.5, 20.5, 21, 19, 20, 20, 19.9, 20.1, 21, 19, 20.2, 19.8}, ctx: NewControlContext(20, 2), rule: "rule_7", violated: true},
		{name: "shorter than window", values: []float64{11, 12, 13}, ctx: NewControlContext(10, 1), rule: "rule_2", violated: false},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.violated, Evaluate(tc.values, XBar, tc.ctx)[tc.rule].Violated)
		})
	}
}
