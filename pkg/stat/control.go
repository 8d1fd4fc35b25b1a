// Package stat evaluates charted sample statistics against the Western Electric run rules
package stat

import "math"

// Chart tags which sample statistic a sequence holds.  It is informational only; every rule treats values the same.
type Chart string

const (
	// XBar charts sample means
	XBar Chart = "X"
	// Range charts sample ranges
	Range Chart = "R"
)

// ControlContext is the center line and dispersion of a charted statistic.  Zone k spans CL ± k·Sigma.
type ControlContext struct {
	CL    float64
	Sigma float64
}

// NewControlContext returns a context for the center line and sigma.  A negative sigma is treated as its magnitude.
func NewControlContext(cl, sigma float64) ControlContext {
	return ControlContext{CL: cl, Sigma: math.Abs(sigma)}
}

// FromLimits derives sigma from an upper control limit placed at CL + 3σ
func FromLimits(cl, ucl float64) ControlContext {
	return NewControlContext(cl, (ucl-cl)/3)
}

// Upper returns CL + k·σ
func (c ControlContext) Upper(k float64) float64 {
	return c.CL + k*c.Sigma
}

// Lower returns CL - k·σ
func (c ControlContext) Lower(k float64) float64 {
	return c.CL - k*c.Sigma
}

// Outside reports whether v lies strictly beyond the k·σ zone on either side.  A value on the boundary is not outside.
func (c ControlContext) Outside(v, k float64) bool {
	return v > c.Upper(k) || v < c.Lower(k)
}

// Within reports whether v lies in the closed interval [CL-k·σ, CL+k·σ]
func (c ControlContext) Within(v, k float64) bool {
	return v >= c.Lower(k) && v <= c.Upper(k)
}

// Limits are externally computed control limits for one chart
type Limits struct {
	CL  float64 `yaml:"cl" json:"cl"`
	UCL float64 `yaml:"ucl" json:"ucl"`
	LCL float64 `yaml:"lcl" json:"lcl"`
}

// Context returns the control context implied by the limits
func (l Limits) Context() ControlContext {
	return FromLimits(l.CL, l.UCL)
}

// OutOfLimits counts the points strictly above UCL or strictly below LCL
func OutOfLimits(values []float64, l Limits) int {
	n := 0
	for _, v := range values {
		if v > l.UCL || v < l.LCL {
			n++
		}
	}
	return n
}
