package pricefeed

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Watcher keeps the prices for a fixed symbol set warm. It re-issues a
// fetch at most once per refresh interval, and only if at least a full
// TTL has elapsed since the last fetch, so repeated invocation never
// causes redundant oracle calls.
type Watcher struct {
	service *Service
	logger  *logrus.Logger
	symbols []string

	stopChan   chan struct{}
	isWatching bool
	watchMutex sync.RWMutex

	lastFetch      time.Time
	lastFetchMutex sync.Mutex
}

// NewWatcher creates a price refresh watcher for the given symbols.
//
// Parameters:
// - service: the shared price feed service.
// - symbols: the token symbols to keep fresh.
// - logger: the logger for logging events.
//
// Returns:
// - *Watcher: the new watcher instance.
func NewWatcher(service *Service, symbols []string, logger *logrus.Logger) *Watcher {
	return &Watcher{
		service:  service,
		logger:   logger,
		symbols:  symbols,
		stopChan: make(chan struct{}),
	}
}

// Start begins the refresh loop with an immediate first fetch.
//
// Parameters:
// - ctx: the context for managing the loop lifetime.
//
// Returns:
// - error: an error if the watcher is already running.
func (w *Watcher) Start(ctx context.Context) error {
	w.watchMutex.Lock()
	if w.isWatching {
		w.watchMutex.Unlock()
		return errors.New("price watcher is already running")
	}
	w.isWatching = true
	w.watchMutex.Unlock()

	go w.watch(ctx)
	return nil
}

// Stop stops the refresh loop.
func (w *Watcher) Stop() {
	w.watchMutex.Lock()
	defer w.watchMutex.Unlock()

	if !w.isWatching {
		return
	}

	close(w.stopChan)
	w.isWatching = false
}

// Refetch forces the next fetch regardless of how recently one ran.
func (w *Watcher) Refetch(ctx context.Context) {
	w.lastFetchMutex.Lock()
	w.lastFetch = time.Time{}
	w.lastFetchMutex.Unlock()

	w.fetchIfDue(ctx)
}

// watch runs the refresh loop until stopped.
func (w *Watcher) watch(ctx context.Context) {
	w.fetchIfDue(ctx)

	ticker := time.NewTicker(w.service.cfg.PriceRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Price watcher stopped due to context cancellation")
			return

		case <-w.stopChan:
			w.logger.Info("Price watcher stopped")
			return

		case <-ticker.C:
			w.fetchIfDue(ctx)
		}
	}
}

// fetchIfDue fetches prices only when at least a cache TTL has elapsed
// since the last fetch issued by this watcher.
func (w *Watcher) fetchIfDue(ctx context.Context) {
	if len(w.symbols) == 0 {
		return
	}

	w.lastFetchMutex.Lock()
	if time.Since(w.lastFetch) < w.service.cfg.PriceCacheTTL {
		w.lastFetchMutex.Unlock()
		return
	}
	w.lastFetch = time.Now()
	w.lastFetchMutex.Unlock()

	if _, err := w.service.GetPrices(ctx, w.symbols); err != nil {
		w.logger.WithFields(logrus.Fields{
			"symbols": len(w.symbols),
			"error":   err,
		}).Warn("Price refresh failed")
	}
}
