package indicators

// CalculateEMA computes the Exponential Moving Average series.
// The series is seeded with the first value, so early points lean towards it.
// Output has the same length as data.
func CalculateEMA(data []float64, period int) []float64 {
	ema := make([]float64, len(data))
	if len(data) == 0 || period < 1 {
		return ema
	}

	k := 2.0 / (float64(period) + 1.0)

	ema[0] = data[0]
	for i := 1; i < len(data); i++ {
		ema[i] = (data[i] * k) + (ema[i-1] * (1 - k))
	}

	return ema
}

// LastEMA returns the final point of the EMA series and false for empty input.
func LastEMA(data []float64, period int) (float64, bool) {
	if len(data) == 0 || period < 1 {
		return 0, false
	}
	series := CalculateEMA(data, period)
	return series[len(series)-1], true
}
