// Package validation fetches market data, correlates it against the
// pipeline's sentiment/GPR output, and grid-searches impact-score weights
// against that correlation. The Finnhub client is a rate-limited HTTP
// client fetching one symbol per call, with a single key rather than a
// rotation pool since Finnhub's free tier is keyed to one account.
package validation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/aristath/sentinel/internal/store"
)

const finnhubBaseURL = "https://finnhub.io/api/v1/stock/candle"
const finnhubPacing = 1100 * time.Millisecond // free tier: 60 calls/minute

// MarketFeed fetches daily candles for the symbol passed to each call; the
// validation runner passes its one configured symbol.
type MarketFeed struct {
	apiKey  string
	limiter *rate.Limiter
	client  *http.Client
	log     zerolog.Logger
}

// NewMarketFeed builds a feed client. An empty apiKey is valid: IsAvailable
// reports false and the validation stage is skipped, since market
// validation is a non-fatal collaborator.
func NewMarketFeed(apiKey string, log zerolog.Logger) *MarketFeed {
	return &MarketFeed{
		apiKey:  apiKey,
		limiter: rate.NewLimiter(rate.Every(finnhubPacing), 1),
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("component", "market_feed").Logger(),
	}
}

func (f *MarketFeed) IsAvailable() bool { return f.apiKey != "" }

type finnhubCandleResponse struct {
	Close  []float64 `json:"c"`
	Volume []float64 `json:"v"`
	Time   []int64   `json:"t"`
	Status string    `json:"s"`
}

// FetchDaily returns daily candles for symbol over the last `days` days,
// oldest first, with day-over-day change percent computed locally (Finnhub's
// free candle endpoint does not supply it).
func (f *MarketFeed) FetchDaily(ctx context.Context, symbol string, days int) ([]store.MarketDatapoint, error) {
	if !f.IsAvailable() {
		return nil, fmt.Errorf("finnhub: no API key configured")
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -days-1) // one extra day so the first day has a prior close to diff against

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finnhubBaseURL, nil)
	if err != nil {
		return nil, err
	}
	q := req.URL.Query()
	q.Set("symbol", symbol)
	q.Set("resolution", "D")
	q.Set("from", fmt.Sprintf("%d", from.Unix()))
	q.Set("to", fmt.Sprintf("%d", to.Unix()))
	q.Set("token", f.apiKey)
	req.URL.RawQuery = q.Encode()

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("finnhub request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("finnhub status %d", resp.StatusCode)
	}

	var parsed finnhubCandleResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("finnhub decode: %w", err)
	}
	if parsed.Status != "ok" || len(parsed.Close) == 0 {
		return nil, nil
	}

	out := make([]store.MarketDatapoint, 0, len(parsed.Close))
	for i, c := range parsed.Close {
		var changePct float64
		if i > 0 && parsed.Close[i-1] != 0 {
			changePct = (c - parsed.Close[i-1]) / parsed.Close[i-1] * 100
		}
		var volume int64
		if i < len(parsed.Volume) {
			volume = int64(parsed.Volume[i])
		}
		out = append(out, store.MarketDatapoint{
			Date:      time.Unix(parsed.Time[i], 0).UTC().Format("2006-01-02"),
			Symbol:    symbol,
			Close:     c,
			ChangePct: changePct,
			Volume:    volume,
		})
	}
	// Drop the seed day used only to compute the first real day's change.
	if len(out) > 1 {
		out = out[1:]
	}
	return out, nil
}
