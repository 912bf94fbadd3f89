package indicators

// DefaultRSIPeriod is the Wilder look-back used by the strategy.
const DefaultRSIPeriod = 14

// zeroLossRS caps the relative strength when there were no losses,
// which keeps RSI just under 100 for a monotonically rising series.
const zeroLossRS = 100.0

// CalculateRSI computes the Relative Strength Index of the last close.
// It returns false when fewer than period+1 closes are supplied.
func CalculateRSI(closes []float64, period int) (float64, bool) {
	if period < 1 || len(closes) < period+1 {
		return 0, false
	}

	// Seed with the simple average of the first period deltas.
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	// Wilder smoothing for the remaining deltas.
	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	rs := zeroLossRS
	if avgLoss != 0 {
		rs = avgGain / avgLoss
	}
	return 100 - (100 / (1 + rs)), true
}
