package features

import "math"

// SMA returns the simple mean of the last period values.
// ok is false when fewer than period values are available.
func SMA(values []float64, period int) (float64, bool) {
	if period <= 0 || len(values) < period {
		return 0, false
	}
	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period), true
}

// StdDev returns the population standard deviation of the last period values.
func StdDev(values []float64, period int) (float64, bool) {
	mean, ok := SMA(values, period)
	if !ok {
		return 0, false
	}
	sum2 := 0.0
	for _, v := range values[len(values)-period:] {
		d := v - mean
		sum2 += d * d
	}
	return math.Sqrt(sum2 / float64(period)), true
}

// Bands returns the Bollinger middle, upper and lower bands over the last
// period values using k population standard deviations.
func Bands(values []float64, period int, k float64) (mid, upper, lower float64, ok bool) {
	mid, ok = SMA(values, period)
	if !ok {
		return 0, 0, 0, false
	}
	sd, _ := StdDev(values, period)
	return mid, mid + k*sd, mid - k*sd, true
}

// RSI computes the relative strength index of the newest value with Wilder
// smoothing (alpha = 1/period). Gains and losses are smoothed recursively from
// the first bar, which contributes zero movement. A series with gains and no
// losses scores 100. ok is false when fewer than period+1 values are
// available or when the series never moved; common TA libraries report 100
// for a motionless series, which would read as overbought.
func RSI(values []float64, period int) (float64, bool) {
	if period <= 0 || len(values) < period+1 {
		return 0, false
	}
	alpha := 1.0 / float64(period)
	avgGain, avgLoss := 0.0, 0.0
	for i := 1; i < len(values); i++ {
		diff := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if diff > 0 {
			gain = diff
		} else {
			loss = -diff
		}
		avgGain = (1-alpha)*avgGain + alpha*gain
		avgLoss = (1-alpha)*avgLoss + alpha*loss
	}
	if avgGain+avgLoss == 0 {
		return 0, false
	}
	return 100 * avgGain / (avgGain + avgLoss), true
}
