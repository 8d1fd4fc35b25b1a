package stat

import "fmt"

// RuleID identifies one of the eight Western Electric rules, rule_1 through rule_8
type RuleID string

// Rule is a run pattern that signals a process out of statistical control.  A rule is violated when any window of
// Window consecutive points matches.
type Rule struct {
	ID          RuleID
	Name        string
	Description string
	Window      int

	match func(w []float64, c ControlContext) bool
}

// Violated scans every window of the sequence and stops at the first match.  Sequences shorter than the window
// never violate the rule.
func (r Rule) Violated(values []float64, c ControlContext) bool {
	if len(values) < r.Window {
		return false
	}
	for i := 0; i+r.Window <= len(values); i++ {
		if r.match(values[i:i+r.Window], c) {
			return true
		}
	}
	return false
}

func ruleID(n int) RuleID {
	return RuleID(fmt.Sprintf("rule_%d", n))
}

// Rules returns the eight Western Electric rules in order
func Rules() []Rule {
	return append([]Rule{}, westernElectric...)
}

var westernElectric = []Rule{
	{
		ID:          ruleID(1),
		Name:        "Um ponto fora de 3-sigma (±3σ)",
		Description: "Qualquer ponto fora dos limites de controle",
		Window:      1,
		match: func(w []float64, c ControlContext) bool {
			return c.Outside(w[0], 3)
		},
	},
	{
		ID:          ruleID(2),
		Name:        "9 pontos consecutivos no mesmo lado",
		Description: "Nove pontos consecutivos acima ou abaixo da linha central",
		Window:      9,
		match:       sameSide,
	},
	{
		ID:          ruleID(3),
		Name:        "6 pontos em ordem crescente/decrescente",
		Description: "Seis pontos consecutivos em tendência crescente ou decrescente",
		Window:      6,
		match: func(w []float64, _ ControlContext) bool {
			return monotonic(w, true) || monotonic(w, false)
		},
	},
	{
		ID:          ruleID(4),
		Name:        "14 pontos alternando acima/abaixo",
		Description: "Quatorze pontos consecutivos alternando para cima e para baixo",
		Window:      14,
		match: func(w []float64, _ ControlContext) bool {
			return alternating(w, true) || alternating(w, false)
		},
	},
	{
		ID:          ruleID(5),
		Name:        "2 de 3 pontos fora de 2-sigma",
		Description: "Dois de três pontos consecutivos fora de ±2σ",
		Window:      3,
		match: func(w []float64, c ControlContext) bool {
			return countOutside(w, c, 2) >= 2
		},
	},
	{
		ID:          ruleID(6),
		Name:        "4 de 5 pontos fora de 1-sigma",
		Description: "Quatro de cinco pontos consecutivos fora de ±1σ",
		Window:      5,
		match: func(w []float64, c ControlContext) bool {
			return countOutside(w, c, 1) >= 4
		},
	},
	{
		ID:          ruleID(7),
		Name:        "15 pontos consecutivos dentro de 1-sigma",
		Description: "Quinze pontos consecutivos dentro de ±1σ (falta de variação)",
		Window:      15,
		match: func(w []float64, c ControlContext) bool {
			for _, v := range w {
				if !c.Within(v, 1) {
					return false
				}
			}
			return true
		},
	},
	{
		ID:          ruleID(8),
		Name:        "8 pontos consecutivos fora de 1-sigma",
		Description: "Oito pontos consecutivos fora de ±1σ (muita variação)",
		Window:      8,
		match: func(w []float64, c ControlContext) bool {
			return countOutside(w, c, 1) == len(w)
		},
	},
}

// sameSide is true when every point is strictly above, or every point strictly below, the center line
func sameSide(w []float64, c ControlContext) bool {
	above, below := true, true
	for _, v := range w {
		above = above && v > c.CL
		below = below && v < c.CL
	}
	return above || below
}

// monotonic is true when every step strictly rises (up) or strictly falls
func monotonic(w []float64, up bool) bool {
	for i := 0; i+1 < len(w); i++ {
		if !moves(w[i], w[i+1], up) {
			return false
		}
	}
	return true
}

// alternating is true when every step strictly reverses the direction of the previous one, starting with up
func alternating(w []float64, up bool) bool {
	for i := 0; i+1 < len(w); i++ {
		if !moves(w[i], w[i+1], up) {
			return false
		}
		up = !up
	}
	return true
}

func moves(from, to float64, up bool) bool {
	if up {
		return from < to
	}
	return from > to
}

func countOutside(w []float64, c ControlContext, k float64) int {
	n := 0
	for _, v := range w {
		if c.Outside(v, k) {
			n++
		}
	}
	return n
}
