package core

// -----------------------------------------------------------------------------
// Pure indicator math over close-price arrays. Each function returns one
// value slot per input point; slots inside the warm-up window are nil.
// -----------------------------------------------------------------------------

// SMA computes the simple moving average over period points.
func SMA(closes []float64, period int) []*float64 {
	out := make([]*float64, len(closes))
	if period <= 0 || len(closes) < period {
		return out
	}

	sum := 0.0
	for i, c := range closes {
		sum += c
		if i >= period {
			sum -= closes[i-period]
		}
		if i >= period-1 {
			v := sum / float64(period)
			out[i] = &v
		}
	}
	return out
}

// -----------------------------------------------------------------------------

// EMA computes the exponential moving average, seeded with the SMA of the
// first period points.
func EMA(closes []float64, period int) []*float64 {
	out := make([]*float64, len(closes))
	if period <= 0 || len(closes) < period {
		return out
	}

	seed := 0.0
	for _, c := range closes[:period] {
		seed += c
	}
	prev := seed / float64(period)
	v0 := prev
	out[period-1] = &v0

	k := 2.0 / float64(period+1)
	for i := period; i < len(closes); i++ {
		prev = closes[i]*k + prev*(1-k)
		v := prev
		out[i] = &v
	}
	return out
}

// -----------------------------------------------------------------------------

// RSI computes the relative strength index (Wilder smoothing).
func RSI(closes []float64, period int) []*float64 {
	out := make([]*float64, len(closes))
	if period <= 0 || len(closes) <= period {
		return out
	}

	avgGain, avgLoss := 0.0, 0.0
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	store := func(i int) {
		v := 100.0
		if avgLoss > 0 {
			rs := avgGain / avgLoss
			v = 100 - 100/(1+rs)
		}
		out[i] = &v
	}
	store(period)

	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		store(i)
	}
	return out
}

// -----------------------------------------------------------------------------

// BollingerBands returns middle/upper/lower bands for the period and width
// multiplier.
func BollingerBands(closes []float64, period int, mult float64) (middle, upper, lower []*float64) {
	middle = make([]*float64, len(closes))
	upper = make([]*float64, len(closes))
	lower = make([]*float64, len(closes))
	if period <= 0 || len(closes) < period {
		return
	}

	for i := period - 1; i < len(closes); i++ {
		mean, std := CalculateMeanStd(closes[i-period+1 : i+1])
		m, u, l := mean, mean+mult*std, mean-mult*std
		middle[i] = &m
		upper[i] = &u
		lower[i] = &l
	}
	return
}
