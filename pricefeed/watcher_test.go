package pricefeed

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestWatcherFetchesOnStart(t *testing.T) {
	recorder := &oracleRecorder{}
	service := newTestService(t, recorder.handler(map[string]float64{
		"ethereum": 2000,
	}), time.Millisecond)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	watcher := NewWatcher(service, []string{"ETH"}, logger)
	require.NoError(t, watcher.Start(context.Background()))
	t.Cleanup(watcher.Stop)

	require.Eventually(t, func() bool {
		return len(recorder.recorded()) == 1
	}, time.Second, 5*time.Millisecond)

	require.Error(t, watcher.Start(context.Background()))
}

func TestWatcherRefetchBypassesFreshnessGuard(t *testing.T) {
	recorder := &oracleRecorder{}
	service := newTestService(t, recorder.handler(map[string]float64{
		"ethereum": 2000,
	}), time.Millisecond)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	watcher := NewWatcher(service, []string{"ETH"}, logger)
	require.NoError(t, watcher.Start(context.Background()))
	t.Cleanup(watcher.Stop)

	require.Eventually(t, func() bool {
		return len(recorder.recorded()) == 1
	}, time.Second, 5*time.Millisecond)

	// Within the TTL the per-symbol freshness keeps the refetch local,
	// so expire the cached state first.
	base := time.Now()
	service.now = func() time.Time { return base.Add(3 * time.Minute) }

	watcher.Refetch(context.Background())
	require.Eventually(t, func() bool {
		return len(recorder.recorded()) == 2
	}, time.Second, 5*time.Millisecond)
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	recorder := &oracleRecorder{}
	service := newTestService(t, recorder.handler(nil), time.Millisecond)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	watcher := NewWatcher(service, nil, logger)
	require.NoError(t, watcher.Start(context.Background()))
	watcher.Stop()
	watcher.Stop()
}
