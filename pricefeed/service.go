// Package pricefeed implements the TTL-cached, rate-limited, batched
// price lookup service shared by all swap sessions in the process.
package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"

	commonerrors "github.com/bentoswap/swap-lib/common/errors"
	"github.com/bentoswap/swap-lib/config"
)

// cacheEntry is a cached price map with its creation time. An entry is
// valid only while now - timestamp < TTL.
type cacheEntry struct {
	prices    map[string]float64
	timestamp time.Time
}

// dispatchJob is one oracle request waiting in the global FIFO queue.
type dispatchJob struct {
	ids    []string
	result chan dispatchResult
}

type dispatchResult struct {
	prices map[string]float64
	err    error
}

// Service is the process-wide price feed. It owns its own cache, clock
// and dispatch queue; construct it once and pass it by reference to all
// consumers.
type Service struct {
	logger *logrus.Logger
	cfg    *config.Config

	httpClient *http.Client
	limiter    ratelimit.Limiter
	queue      chan *dispatchJob
	stopChan   chan struct{}
	stopOnce   sync.Once

	cacheMutex sync.RWMutex
	cache      map[string]cacheEntry
	livePrices map[string]float64
	fetchedAt  map[string]time.Time
	lastErr    error
	errSeq     uint64

	now func() time.Time
}

// NewService creates the price feed service and starts its dispatch
// loop. Call Close when the service is no longer needed.
//
// Parameters:
// - cfg: the engine configuration.
// - logger: the logger for logging events.
//
// Returns:
// - *Service: the running price feed service.
func NewService(cfg *config.Config, logger *logrus.Logger) *Service {
	s := &Service{
		logger:     logger,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    ratelimit.New(1, ratelimit.Per(cfg.PriceRequestSpacing)),
		queue:      make(chan *dispatchJob, 64),
		stopChan:   make(chan struct{}),
		cache:      make(map[string]cacheEntry),
		livePrices: make(map[string]float64),
		fetchedAt:  make(map[string]time.Time),
		now:        time.Now,
	}

	go s.dispatchLoop()

	return s
}

// Close stops the dispatch loop. Jobs still queued are answered with an
// error.
func (s *Service) Close() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// GetPrices returns USD prices for the given symbols. A fresh cache hit
// for the same symbol set returns immediately without network access;
// on a miss the symbols are batched and dispatched through the global
// FIFO queue.
//
// Parameters:
// - ctx: the context for managing the request.
// - symbols: the token symbols to price.
//
// Returns:
// - map[string]float64: prices keyed by the requested symbols.
// - error: an error if any batch dispatch fails.
func (s *Service) GetPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	if len(symbols) == 0 {
		return map[string]float64{}, nil
	}

	key := cacheKey(symbols)

	s.cacheMutex.RLock()
	entry, ok := s.cache[key]
	fresh := ok && s.now().Sub(entry.timestamp) < s.cfg.PriceCacheTTL
	s.cacheMutex.RUnlock()

	if fresh {
		return copyPrices(entry.prices), nil
	}

	// Symbols already fetched fresh by an earlier call are served from
	// the live map instead of being dispatched again.
	idBySymbol := make(map[string]string, len(symbols))
	seen := make(map[string]struct{})
	ids := make([]string, 0, len(symbols))
	priceByID := make(map[string]float64)

	s.cacheMutex.RLock()
	for _, symbol := range symbols {
		id := oracleID(symbol)
		idBySymbol[symbol] = id
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if at, ok := s.fetchedAt[symbol]; ok && s.now().Sub(at) < s.cfg.PriceCacheTTL {
			priceByID[id] = s.livePrices[symbol]
			continue
		}
		ids = append(ids, id)
	}
	s.cacheMutex.RUnlock()

	for _, batch := range chunk(ids, s.cfg.MaxSymbolsPerRequest) {
		result, err := s.enqueue(ctx, batch)
		if err != nil {
			s.setError(err)
			return nil, err
		}
		for id, price := range result {
			priceByID[id] = price
		}
	}

	prices := make(map[string]float64, len(symbols))
	for _, symbol := range symbols {
		if price, ok := priceByID[idBySymbol[symbol]]; ok {
			prices[symbol] = price
		}
	}

	s.cacheMutex.Lock()
	now := s.now()
	s.cache[key] = cacheEntry{prices: copyPrices(prices), timestamp: now}
	for symbol, price := range prices {
		s.livePrices[symbol] = price
		s.fetchedAt[symbol] = now
	}
	s.lastErr = nil
	s.cacheMutex.Unlock()

	return prices, nil
}

// Convert converts an amount between two symbols using USD as pivot.
// It returns 0 when either price is missing or the amount is not
// positive.
func (s *Service) Convert(fromSymbol, toSymbol string, amount float64) float64 {
	s.cacheMutex.RLock()
	fromPrice := s.livePrices[fromSymbol]
	toPrice := s.livePrices[toSymbol]
	s.cacheMutex.RUnlock()

	if fromPrice == 0 || toPrice == 0 || amount <= 0 {
		return 0
	}

	return amount * fromPrice / toPrice
}

// Prices returns a copy of the live price map.
func (s *Service) Prices() map[string]float64 {
	s.cacheMutex.RLock()
	defer s.cacheMutex.RUnlock()
	return copyPrices(s.livePrices)
}

// Err returns the last fetch error. Rate-limit errors auto-clear after
// the configured delay; cached prices stay valid and usable meanwhile.
func (s *Service) Err() error {
	s.cacheMutex.RLock()
	defer s.cacheMutex.RUnlock()
	return s.lastErr
}

// enqueue places one batch on the global FIFO queue and waits for its
// result. In-flight requests are never cancelled; an expired context
// only abandons the wait.
func (s *Service) enqueue(ctx context.Context, ids []string) (map[string]float64, error) {
	job := &dispatchJob{ids: ids, result: make(chan dispatchResult, 1)}

	select {
	case s.queue <- job:
	case <-s.stopChan:
		return nil, errors.New("price feed service closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case result := <-job.result:
		return result.prices, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// dispatchLoop serializes all oracle requests across all callers. The
// limiter enforces the minimum spacing between dispatches; requests are
// executed strictly in queue order.
func (s *Service) dispatchLoop() {
	for {
		select {
		case <-s.stopChan:
			return
		case job := <-s.queue:
			s.limiter.Take()
			prices, err := s.fetchBatch(job.ids)
			job.result <- dispatchResult{prices: prices, err: err}
		}
	}
}

// fetchBatch performs one oracle request. Failed batches are not
// retried.
func (s *Service) fetchBatch(ids []string) (map[string]float64, error) {
	endpoint := fmt.Sprintf(
		"%s/simple/price?ids=%s&vs_currencies=usd",
		s.cfg.OracleBaseURL,
		url.QueryEscape(strings.Join(ids, ",")),
	)

	resp, err := s.httpClient.Get(endpoint)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch prices")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, commonerrors.ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Errorf("price oracle returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read oracle response")
	}

	var payload map[string]struct {
		USD float64 `json:"usd"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Wrap(err, "failed to decode oracle response")
	}

	prices := make(map[string]float64, len(payload))
	for id, value := range payload {
		prices[id] = value.USD
	}

	s.logger.WithFields(logrus.Fields{
		"ids":    len(ids),
		"priced": len(prices),
	}).Debug("Price batch fetched")

	return prices, nil
}

// setError records a fetch error. A rate-limit error is transient and
// auto-clears after the configured delay unless a newer error replaced
// it.
func (s *Service) setError(err error) {
	s.cacheMutex.Lock()
	s.lastErr = err
	s.errSeq++
	seq := s.errSeq
	s.cacheMutex.Unlock()

	if errors.Is(err, commonerrors.ErrRateLimited) {
		time.AfterFunc(s.cfg.RateLimitErrorClear, func() {
			s.cacheMutex.Lock()
			if s.errSeq == seq {
				s.lastErr = nil
			}
			s.cacheMutex.Unlock()
		})
	}
}

// cacheKey builds the canonical key for a symbol set: sorted and
// comma-joined.
func cacheKey(symbols []string) string {
	sorted := make([]string, len(symbols))
	copy(sorted, symbols)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

func copyPrices(prices map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(prices))
	for symbol, price := range prices {
		out[symbol] = price
	}
	return out
}

func chunk(ids []string, size int) [][]string {
	if size <= 0 {
		size = len(ids)
	}
	var chunks [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
