package analysis

import (
	"fmt"
	"strconv"

	"market-cache/src/analysis/core"
	"market-cache/src/logger"
	"market-cache/src/models"
)

// -----------------------------------------------------------------------------
// IndicatorEngine turns a candle series into an MIndicatorOutput bundle.
// The cache layer never calls this directly; it is handed in as the
// compute function on an indicator-cache miss.
// -----------------------------------------------------------------------------

type IndicatorEngine struct {
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewIndicatorEngine(log *logger.Logger) *IndicatorEngine {
	return &IndicatorEngine{Logger: log}
}

// -----------------------------------------------------------------------------

// SupportedIndicators lists the names Compute accepts.
func SupportedIndicators() []string {
	return []string{"sma", "ema", "rsi", "bbands"}
}

// -----------------------------------------------------------------------------

// Compute evaluates the named indicator over candles. params carry the
// serialized parameters from the cache key ("period", "mult").
func (e *IndicatorEngine) Compute(name string, params map[string]string, candles []models.MCandle) (*models.MIndicatorOutput, error) {
	closes := make([]float64, len(candles))
	timestamps := make([]int64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close.InexactFloat64()
		timestamps[i] = c.Time().Unix()
	}

	period := paramInt(params, "period", 14)
	if period <= 0 {
		return nil, fmt.Errorf("invalid period %d for indicator '%s'", period, name)
	}

	data := make(map[string][]*float64)
	switch name {
	case "sma":
		data[name] = core.SMA(closes, period)
	case "ema":
		data[name] = core.EMA(closes, period)
	case "rsi":
		data[name] = core.RSI(closes, period)
	case "bbands":
		mult := paramFloat(params, "mult", 2.0)
		middle, upper, lower := core.BollingerBands(closes, period, mult)
		data["middle"] = middle
		data["upper"] = upper
		data["lower"] = lower
	default:
		return nil, fmt.Errorf("unsupported indicator '%s'", name)
	}

	out := &models.MIndicatorOutput{
		Timestamps: timestamps,
		Data:       data,
		DataPoints: len(timestamps),
		Metadata:   map[string]string{"indicator": name},
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func paramInt(params map[string]string, name string, def int) int {
	if raw, ok := params[name]; ok {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return def
}

func paramFloat(params map[string]string, name string, def float64) float64 {
	if raw, ok := params[name]; ok {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
	}
	return def
}
