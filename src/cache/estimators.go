package cache

import "market-cache/src/models"

// -----------------------------------------------------------------------------
// Size estimators for the two value shapes. These feed BoundedCache budget
// accounting; they approximate the in-memory footprint, not allocator truth.
// -----------------------------------------------------------------------------

const (
	// One decimal value: coefficient big.Int word + struct overhead.
	decimalBytes = 40
	// Slice header + map/struct bookkeeping per candle.
	candleOverheadBytes = 32
	entryOverheadBytes  = 96
)

// CandleSeriesSize estimates the footprint of a candle slice.
func CandleSeriesSize(candles []models.MCandle) int64 {
	size := int64(entryOverheadBytes)
	for _, c := range candles {
		size += int64(len(c.Timestamp)) + 4*decimalBytes + 8 + candleOverheadBytes
	}
	return size
}

// -----------------------------------------------------------------------------

// IndicatorOutputSize estimates the footprint of an indicator bundle:
// 8 bytes per timestamp, 16 per nullable float (pointer + value), plus
// metadata strings.
func IndicatorOutputSize(out *models.MIndicatorOutput) int64 {
	if out == nil {
		return entryOverheadBytes
	}

	size := int64(entryOverheadBytes)
	size += int64(8 * len(out.Timestamps))
	for name := range out.Data {
		size += int64(len(name)) + int64(16*out.DataPoints)
	}
	for k, v := range out.Metadata {
		size += int64(len(k) + len(v))
	}
	return size
}
