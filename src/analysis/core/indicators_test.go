package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

func TestSMA(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}
	out := SMA(closes, 3)

	require.Len(t, out, 5)
	require.Nil(t, out[0])
	require.Nil(t, out[1])
	require.InDelta(t, 2.0, *out[2], 1e-9)
	require.InDelta(t, 3.0, *out[3], 1e-9)
	require.InDelta(t, 4.0, *out[4], 1e-9)
}

// -----------------------------------------------------------------------------

func TestSMA_ShortSeriesAllNil(t *testing.T) {
	out := SMA([]float64{1, 2}, 3)
	require.Len(t, out, 2)
	require.Nil(t, out[0])
	require.Nil(t, out[1])
}

// -----------------------------------------------------------------------------

func TestEMA(t *testing.T) {
	closes := []float64{10, 10, 10, 20}
	out := EMA(closes, 3)

	require.Nil(t, out[0])
	require.Nil(t, out[1])
	// Seed is the SMA of the first 3 points
	require.InDelta(t, 10.0, *out[2], 1e-9)
	// k = 2/(3+1) = 0.5 -> 20*0.5 + 10*0.5
	require.InDelta(t, 15.0, *out[3], 1e-9)
}

// -----------------------------------------------------------------------------

func TestRSI_MonotonicUpIsHundred(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5, 6, 7}
	out := RSI(closes, 3)

	require.Nil(t, out[2])
	for i := 3; i < len(out); i++ {
		require.NotNil(t, out[i])
		require.InDelta(t, 100.0, *out[i], 1e-9)
	}
}

// -----------------------------------------------------------------------------

func TestRSI_AlternatingSeriesMidrange(t *testing.T) {
	closes := []float64{10, 11, 10, 11, 10, 11, 10}
	out := RSI(closes, 2)

	for i := 2; i < len(out); i++ {
		require.NotNil(t, out[i])
		require.Greater(t, *out[i], 0.0)
		require.Less(t, *out[i], 100.0)
	}
}

// -----------------------------------------------------------------------------

func TestBollingerBands(t *testing.T) {
	closes := []float64{2, 4, 6, 8}
	middle, upper, lower := BollingerBands(closes, 3, 2.0)

	require.Nil(t, middle[0])
	require.Nil(t, middle[1])
	require.NotNil(t, middle[2])

	// Window {2,4,6}: mean 4, population std sqrt(8/3)
	require.InDelta(t, 4.0, *middle[2], 1e-9)
	require.InDelta(t, 4.0+2*1.632993161855452, *upper[2], 1e-9)
	require.InDelta(t, 4.0-2*1.632993161855452, *lower[2], 1e-9)
	require.Greater(t, *upper[3], *middle[3])
	require.Greater(t, *middle[3], *lower[3])
}

// -----------------------------------------------------------------------------

func TestCalculateMeanStd(t *testing.T) {
	mean, std := CalculateMeanStd([]float64{2, 4, 6})
	require.InDelta(t, 4.0, mean, 1e-9)
	require.InDelta(t, 1.632993161855452, std, 1e-9)

	mean, std = CalculateMeanStd(nil)
	require.Equal(t, 0.0, mean)
	require.Equal(t, 0.0, std)
}
