package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"market-cache/src/helpers"
	"market-cache/src/logger"
	"market-cache/src/models"
	"market-cache/src/network"

	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------
// YahooFinanceSource is the external fetch layer: the function handed to the
// cache orchestrator on a full miss. It is deliberately dumb — no caching
// here; a failed fetch propagates so the cache stores nothing for it.
// -----------------------------------------------------------------------------

const chartURL = "https://query1.finance.yahoo.com/v8/finance/chart/%s"

type YahooFinanceSource struct {
	Config  *models.MConfig
	Network *network.NetworkManager
	Logger  *logger.Logger
}

// -----------------------------------------------------------------------------

func NewYahooFinanceSource(cfg *models.MConfig, nm *network.NetworkManager, log *logger.Logger) *YahooFinanceSource {
	return &YahooFinanceSource{
		Config:  cfg,
		Network: nm,
		Logger:  log,
	}
}

// -----------------------------------------------------------------------------

func (s *YahooFinanceSource) Name() string {
	return "yahoo"
}

// -----------------------------------------------------------------------------

// FetchCandles loads the candle series for symbol at interval over rangeStr
// (e.g. "5d", "1mo"), retrying transient failures with backoff.
func (s *YahooFinanceSource) FetchCandles(ctx context.Context, symbol, interval, rangeStr string) ([]models.MCandle, error) {
	params := map[string]string{
		"interval":       interval,
		"range":          rangeStr,
		"includePrePost": "false",
	}
	url := fmt.Sprintf(chartURL, symbol)

	res, err := helpers.RetryWithBackoff(
		fmt.Sprintf("yahoo fetch %s/%s", symbol, interval),
		s.Config.Network.MaxRetries+1,
		500*time.Millisecond,
		s.Logger,
		func() (interface{}, error) {
			return s.Network.Get(ctx, url, params)
		},
	)
	if err != nil {
		return nil, helpers.NewFetchError(fmt.Sprintf("fetch failed for %s", symbol), err)
	}

	return s.parseChartResponse(symbol, res.([]byte))
}

// -----------------------------------------------------------------------------

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					High   []*float64 `json:"high"`   // Use pointers to handle null
					Low    []*float64 `json:"low"`    // Use pointers to handle null
					Open   []*float64 `json:"open"`   // Use pointers to handle null
					Close  []*float64 `json:"close"`  // Use pointers to handle null
					Volume []*float64 `json:"volume"` // Use pointers to handle null
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// -----------------------------------------------------------------------------

func (s *YahooFinanceSource) parseChartResponse(symbol string, data []byte) ([]models.MCandle, error) {
	var resp yahooChartResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("json unmarshal failed: %w", err)
	}

	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s - %s", resp.Chart.Error.Code, resp.Chart.Error.Description)
	}

	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("no result in response for %s", symbol)
	}

	result := resp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no quote data in response for %s", symbol)
	}

	quote := result.Indicators.Quote[0]

	// Alignment check before indexing any array
	n := len(result.Timestamp)
	if len(quote.Open) != n || len(quote.High) != n || len(quote.Low) != n ||
		len(quote.Close) != n || len(quote.Volume) != n {
		return nil, fmt.Errorf("data alignment error for %s", symbol)
	}

	candles := make([]models.MCandle, 0, n)
	lastTS := int64(0)
	for i := 0; i < n; i++ {
		// Null slots appear while a bar is forming; skip them.
		if quote.Open[i] == nil || quote.High[i] == nil || quote.Low[i] == nil ||
			quote.Close[i] == nil || quote.Volume[i] == nil {
			continue
		}
		if *quote.Close[i] <= 0 || *quote.Volume[i] < 0 {
			s.Logger.Debug("Skipping invalid point for %s: close=%f", symbol, *quote.Close[i])
			continue
		}
		// Yahoo occasionally repeats the trailing timestamp; keep the series
		// strictly ascending.
		if result.Timestamp[i] <= lastTS {
			continue
		}
		lastTS = result.Timestamp[i]

		candles = append(candles, models.MCandle{
			Timestamp: time.Unix(result.Timestamp[i], 0).UTC().Format(time.RFC3339),
			Open:      decimal.NewFromFloat(*quote.Open[i]),
			High:      decimal.NewFromFloat(*quote.High[i]),
			Low:       decimal.NewFromFloat(*quote.Low[i]),
			Close:     decimal.NewFromFloat(*quote.Close[i]),
			Volume:    int64(*quote.Volume[i]),
		})
	}

	if len(candles) == 0 {
		return nil, fmt.Errorf("no usable data points for %s", symbol)
	}

	s.Logger.Debug("Fetched %d candles for %s", len(candles), symbol)
	return candles, nil
}
