package interfaces

import (
	"context"

	"market-cache/src/models"
)

// -----------------------------------------------------------------------------
// IFetcher is the external fetch layer invoked on a full cache miss.
// Its failures propagate unchanged to the caller; the cache never stores a
// failed fetch.
// -----------------------------------------------------------------------------

type IFetcher interface {

	// Name identifies the source for logging.
	Name() string

	// -----------------------------------------------------------------------------

	// FetchCandles returns the full candle series for symbol at interval over
	// the named range (e.g. "5d", "1mo").
	FetchCandles(ctx context.Context, symbol, interval, rangeStr string) ([]models.MCandle, error)
}
