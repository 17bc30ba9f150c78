package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	commonerrors "github.com/bentoswap/swap-lib/common/errors"
	"github.com/bentoswap/swap-lib/config"
)

type oracleRecorder struct {
	mu       sync.Mutex
	requests []oracleRequest
	status   int
}

type oracleRequest struct {
	ids []string
	at  time.Time
}

func (r *oracleRecorder) handler(prices map[string]float64) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ids := strings.Split(req.URL.Query().Get("ids"), ",")

		r.mu.Lock()
		r.requests = append(r.requests, oracleRequest{ids: ids, at: time.Now()})
		status := r.status
		r.mu.Unlock()

		if status != 0 {
			w.WriteHeader(status)
			return
		}

		payload := make(map[string]map[string]float64)
		for _, id := range ids {
			if price, ok := prices[id]; ok {
				payload[id] = map[string]float64{"usd": price}
			}
		}
		json.NewEncoder(w).Encode(payload)
	}
}

func (r *oracleRecorder) recorded() []oracleRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]oracleRequest, len(r.requests))
	copy(out, r.requests)
	return out
}

func newTestService(t *testing.T, handler http.HandlerFunc, spacing time.Duration) *Service {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.OracleBaseURL = server.URL
	cfg.PriceRequestSpacing = spacing
	cfg.RateLimitErrorClear = 50 * time.Millisecond

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	service := NewService(cfg, logger)
	t.Cleanup(service.Close)

	return service
}

func TestGetPricesCachesBySymbolSet(t *testing.T) {
	recorder := &oracleRecorder{}
	service := newTestService(t, recorder.handler(map[string]float64{
		"ethereum": 2000, "usd-coin": 1,
	}), time.Millisecond)

	prices, err := service.GetPrices(context.Background(), []string{"ETH", "USDC"})
	require.NoError(t, err)
	require.Equal(t, 2000.0, prices["ETH"])
	require.Equal(t, 1.0, prices["USDC"])
	require.Len(t, recorder.recorded(), 1)

	// Same set within the TTL: served from cache, no dispatch.
	prices, err = service.GetPrices(context.Background(), []string{"USDC", "ETH"})
	require.NoError(t, err)
	require.Equal(t, 2000.0, prices["ETH"])
	require.Len(t, recorder.recorded(), 1)
}

func TestGetPricesSkipsFreshSymbolsInLargerSet(t *testing.T) {
	recorder := &oracleRecorder{}
	service := newTestService(t, recorder.handler(map[string]float64{
		"ethereum": 2000, "usd-coin": 1, "wrapped-bitcoin": 60000,
	}), time.Millisecond)

	_, err := service.GetPrices(context.Background(), []string{"ETH"})
	require.NoError(t, err)

	prices, err := service.GetPrices(context.Background(), []string{"ETH", "WBTC"})
	require.NoError(t, err)
	require.Equal(t, 2000.0, prices["ETH"])
	require.Equal(t, 60000.0, prices["WBTC"])

	requests := recorder.recorded()
	require.Len(t, requests, 2)
	// The second dispatch must not re-request the still-fresh symbol.
	require.Equal(t, []string{"wrapped-bitcoin"}, requests[1].ids)
}

func TestGetPricesRefetchesAfterTTL(t *testing.T) {
	recorder := &oracleRecorder{}
	service := newTestService(t, recorder.handler(map[string]float64{
		"ethereum": 2000,
	}), time.Millisecond)

	_, err := service.GetPrices(context.Background(), []string{"ETH"})
	require.NoError(t, err)

	base := time.Now()
	service.now = func() time.Time { return base.Add(3 * time.Minute) }

	_, err = service.GetPrices(context.Background(), []string{"ETH"})
	require.NoError(t, err)
	require.Len(t, recorder.recorded(), 2)
}

func TestDispatchSpacingIsEnforcedGlobally(t *testing.T) {
	spacing := 60 * time.Millisecond
	recorder := &oracleRecorder{}
	service := newTestService(t, recorder.handler(map[string]float64{
		"ethereum": 2000, "usd-coin": 1, "tether": 1,
	}), spacing)

	var wg sync.WaitGroup
	for _, symbol := range []string{"ETH", "USDC", "USDT"} {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			_, err := service.GetPrices(context.Background(), []string{symbol})
			require.NoError(t, err)
		}(symbol)
	}
	wg.Wait()

	requests := recorder.recorded()
	require.Len(t, requests, 3)
	for i := 1; i < len(requests); i++ {
		gap := requests[i].at.Sub(requests[i-1].at)
		require.GreaterOrEqual(t, gap, spacing-10*time.Millisecond,
			"dispatches %d and %d only %v apart", i-1, i, gap)
	}
}

func TestGetPricesBatchesLargeSymbolSets(t *testing.T) {
	prices := make(map[string]float64)
	symbols := make([]string, 0, 120)
	for i := 0; i < 120; i++ {
		symbol := fmt.Sprintf("tok%03d", i)
		symbols = append(symbols, symbol)
		prices[symbol] = float64(i + 1)
	}

	recorder := &oracleRecorder{}
	service := newTestService(t, recorder.handler(prices), time.Millisecond)

	result, err := service.GetPrices(context.Background(), symbols)
	require.NoError(t, err)
	require.Len(t, result, 120)

	requests := recorder.recorded()
	require.Len(t, requests, 3)
	require.Len(t, requests[0].ids, 50)
	require.Len(t, requests[1].ids, 50)
	require.Len(t, requests[2].ids, 20)
}

func TestRateLimitErrorAutoClears(t *testing.T) {
	recorder := &oracleRecorder{status: http.StatusTooManyRequests}
	service := newTestService(t, recorder.handler(nil), time.Millisecond)

	_, err := service.GetPrices(context.Background(), []string{"ETH"})
	require.ErrorIs(t, err, commonerrors.ErrRateLimited)
	require.ErrorIs(t, service.Err(), commonerrors.ErrRateLimited)

	require.Eventually(t, func() bool {
		return service.Err() == nil
	}, time.Second, 10*time.Millisecond)
}

func TestConvertUsesUSDPivot(t *testing.T) {
	recorder := &oracleRecorder{}
	service := newTestService(t, recorder.handler(map[string]float64{
		"ethereum": 2000, "usd-coin": 1,
	}), time.Millisecond)

	_, err := service.GetPrices(context.Background(), []string{"ETH", "USDC"})
	require.NoError(t, err)

	require.Equal(t, 2000.0, service.Convert("ETH", "USDC", 1))
	require.Equal(t, 0.0, service.Convert("ETH", "USDC", 0))
	require.Equal(t, 0.0, service.Convert("ETH", "USDC", -1))
	require.Equal(t, 0.0, service.Convert("ETH", "DOGE", 1))

	// Round trip within floating rounding tolerance.
	amount := 1.2345
	back := service.Convert("USDC", "ETH", service.Convert("ETH", "USDC", amount))
	require.InDelta(t, amount, back, 1e-9)
}

func TestOracleIDMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		symbol   string
		expected string
	}{
		{"ETH", "ethereum"},
		{"eth", "ethereum"},
		{"WETH", "ethereum"},
		{"WBTC", "wrapped-bitcoin"},
		{"wrapped-bitcoin", "wrapped-bitcoin"},
		{"ethereum", "ethereum"},
		{"UNKNOWN", "unknown"},
	}

	for _, tt := range tests {
		require.Equal(t, tt.expected, oracleID(tt.symbol), "symbol %s", tt.symbol)
	}
}
