package rng

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

var _ RNG = &NormalRNG{}

// NormalRNG generates normally distributed numbers.  It is safe for concurrent use.
type NormalRNG struct {
	mean  float64
	stdev float64

	mu sync.Mutex
	r  *rand.Rand
}

func (r *NormalRNG) Rand() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.r.NormFloat64()*r.stdev + r.mean
}

// NewNormalRNG seeds the generator from the clock.  A negative stdev is treated as its magnitude.
func NewNormalRNG(mean float64, stdev float64) *NormalRNG {
	return NewSeededNormalRNG(mean, stdev, time.Now().UnixNano())
}

// NewSeededNormalRNG returns a reproducible generator
func NewSeededNormalRNG(mean float64, stdev float64, seed int64) *NormalRNG {
	return &NormalRNG{
		mean:  mean,
		stdev: math.Abs(stdev),
		r:     rand.New(rand.NewSource(seed)),
	}
}

// Rounded wraps a generator and rounds every value to the given number of decimal places, the way a sensor reports
type Rounded struct {
	RNG
	Places int
}

func (r Rounded) Rand() float64 {
	p := math.Pow(10, float64(r.Places))
	return math.Round(r.RNG.Rand()*p) / p
}
