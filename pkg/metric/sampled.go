package metric

import "math"

// SampleAverage returns the arithmetic mean of the observations, 0 for an empty sample
func SampleAverage(obs []float64) float64 {
	if len(obs) == 0 {
		return 0.0
	}
	return SampleSum(obs) / float64(len(obs))
}

func SampleMin(obs []float64) float64 {
	if len(obs) == 0 {
		return 0.0
	}
	min := obs[0]
	for _, o := range obs {
		min = math.Min(min, o)
	}
	return min
}

func SampleMax(obs []float64) float64 {
	if len(obs) == 0 {
		return 0.0
	}
	max := obs[0]
	for _, o := range obs {
		max = math.Max(max, o)
	}
	return max
}

// SampleRange returns max - min of the observations, the statistic plotted on an R chart
func SampleRange(obs []float64) float64 {
	return SampleMax(obs) - SampleMin(obs)
}

func SampleSum(obs []float64) float64 {
	sum := 0.0
	for _, o := range obs {
		sum += o
	}
	return sum
}
