package calculator

import "errors"

// SMA computes the simple moving average of the last period prices.
func SMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// MovingAverage returns the rolling simple moving average aligned with prices. The first
// period-1 values average whatever prices are available so far.
func MovingAverage(prices []float64, period int) []float64 {
	if period <= 0 {
		period = 1
	}
	out := make([]float64, len(prices))
	sum := 0.0
	for i, p := range prices {
		sum += p
		n := i + 1
		if n > period {
			sum -= prices[i-period]
			n = period
		}
		out[i] = sum / float64(n)
	}
	return out
}
