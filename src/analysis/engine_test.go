package analysis

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"market-cache/src/logger"
	"market-cache/src/models"
)

// -----------------------------------------------------------------------------

func testCandles(closes ...float64) []models.MCandle {
	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	out := make([]models.MCandle, len(closes))
	for i, c := range closes {
		d := decimal.NewFromFloat(c)
		out[i] = models.MCandle{
			Timestamp: base.AddDate(0, 0, i).Format(time.RFC3339),
			Open:      d, High: d, Low: d, Close: d,
			Volume: 1000,
		}
	}
	return out
}

// -----------------------------------------------------------------------------

func TestEngine_ComputeSMA(t *testing.T) {
	engine := NewIndicatorEngine(logger.NewLogger("ERROR", "test"))

	out, err := engine.Compute("sma", map[string]string{"period": "3"}, testCandles(1, 2, 3, 4, 5))
	require.NoError(t, err)
	require.Equal(t, 5, out.DataPoints)
	require.Len(t, out.Timestamps, 5)

	series := out.Data["sma"]
	require.Nil(t, series[1])
	require.InDelta(t, 2.0, *series[2], 1e-9)
}

// -----------------------------------------------------------------------------

func TestEngine_ComputeBollinger(t *testing.T) {
	engine := NewIndicatorEngine(logger.NewLogger("ERROR", "test"))

	out, err := engine.Compute("bbands", map[string]string{"period": "3", "mult": "2"}, testCandles(2, 4, 6, 8))
	require.NoError(t, err)
	require.Contains(t, out.Data, "middle")
	require.Contains(t, out.Data, "upper")
	require.Contains(t, out.Data, "lower")
	require.NoError(t, out.Validate())
}

// -----------------------------------------------------------------------------

func TestEngine_UnsupportedIndicator(t *testing.T) {
	engine := NewIndicatorEngine(logger.NewLogger("ERROR", "test"))

	_, err := engine.Compute("macd", nil, testCandles(1, 2, 3))
	require.Error(t, err)
}

// -----------------------------------------------------------------------------

func TestEngine_InvalidPeriodRejected(t *testing.T) {
	engine := NewIndicatorEngine(logger.NewLogger("ERROR", "test"))

	_, err := engine.Compute("sma", map[string]string{"period": "-1"}, testCandles(1, 2, 3))
	require.Error(t, err)
}

// -----------------------------------------------------------------------------

func TestEngine_DefaultPeriod(t *testing.T) {
	engine := NewIndicatorEngine(logger.NewLogger("ERROR", "test"))

	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = float64(i + 1)
	}
	out, err := engine.Compute("sma", nil, testCandles(closes...))
	require.NoError(t, err)

	// Default period is 14: slot 12 still warming up, slot 13 filled
	series := out.Data["sma"]
	require.Nil(t, series[12])
	require.NotNil(t, series[13])
}

// -----------------------------------------------------------------------------

func TestSupportedIndicators(t *testing.T) {
	names := SupportedIndicators()
	require.Len(t, names, 4)
	require.Contains(t, names, "sma")
	require.Contains(t, names, "rsi")
}
